// Package service implements the yield ledger: declared distributions are
// pull-based pools that holders claim pro-rata, each holder exactly once per
// distribution.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tessera/internal/ledger"
	"tessera/internal/paytoken"
	regmodels "tessera/internal/registry/models"
	"tessera/internal/yield/metrics"
	"tessera/internal/yield/models"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/platform/events"
	"tessera/pkg/platform/sentinel"
	"tessera/pkg/requestcontext"
)

// DistributionStore persists distributions and per-holder claim marks.
type DistributionStore interface {
	Append(ctx context.Context, dist *models.Distribution) (uint64, error)
	Find(ctx context.Context, assetID domain.AssetID, seq uint64) (*models.Distribution, error)
	ListByAsset(ctx context.Context, assetID domain.AssetID) ([]*models.Distribution, error)
	Claim(ctx context.Context, assetID domain.AssetID, seq uint64, holder domain.Address, at time.Time) error
	Unclaim(ctx context.Context, assetID domain.AssetID, seq uint64, holder domain.Address) error
	IsClaimed(ctx context.Context, assetID domain.AssetID, seq uint64, holder domain.Address) (bool, error)
}

// AssetReader exposes the asset records distributions are declared against.
type AssetReader interface {
	GetAsset(ctx context.Context, assetID domain.AssetID) (*regmodels.Asset, error)
}

// BalanceReader reports settled share balances at claim time.
type BalanceReader interface {
	BalanceOf(ctx context.Context, assetID domain.AssetID, holder domain.Address) (domain.Shares, error)
}

// PriceSource quotes the payment token in USD cents per unit.
type PriceSource interface {
	LatestPrice(ctx context.Context) (domain.USD, time.Time, error)
}

// CapabilityChecker answers whether the caller holds a capability.
type CapabilityChecker interface {
	Require(ctx context.Context, capability domain.Capability) error
}

// EventPublisher delivers ledger events to external observers.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Ledger declares distributions and settles claims from escrow.
type Ledger struct {
	distributions DistributionStore
	assets        AssetReader
	balances      BalanceReader
	pay           paytoken.Ledger
	oracle        PriceSource
	authz         CapabilityChecker
	guard         *ledger.Guard
	events        EventPublisher
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func WithEvents(publisher EventPublisher) Option {
	return func(l *Ledger) { l.events = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// New constructs the yield ledger.
func New(distributions DistributionStore, assets AssetReader, balances BalanceReader, pay paytoken.Ledger, oracle PriceSource, authz CapabilityChecker, guard *ledger.Guard, opts ...Option) *Ledger {
	l := &Ledger{
		distributions: distributions,
		assets:        assets,
		balances:      balances,
		pay:           pay,
		oracle:        oracle,
		authz:         authz,
		guard:         guard,
		logger:        slog.Default(),
		tracer:        otel.Tracer("tessera/yield"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DistributeYield appends an immutable distribution for the asset. No funds
// move; holders pull their cut through ClaimYield.
func (l *Ledger) DistributeYield(ctx context.Context, assetID domain.AssetID, amount domain.USD) (*models.Distribution, error) {
	if err := l.authz.Require(ctx, domain.CapabilityAdmin); err != nil {
		return nil, err
	}

	asset, err := l.assets.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !asset.Tokenized || !asset.Active {
		return nil, dErrors.New(dErrors.CodeConflict, "asset is not open for distributions")
	}

	dist, err := models.NewDistribution(assetID, amount, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if _, err := l.distributions.Append(ctx, dist); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store distribution")
	}

	l.emit(ctx, events.EventYieldDistributed, assetID, map[string]any{
		"seq":          dist.Seq,
		"amount_cents": dist.Amount.Cents(),
	})
	if l.metrics != nil {
		l.metrics.Distributions.Inc()
		l.metrics.DistributedCents.Add(float64(dist.Amount.Cents()))
	}
	l.logger.InfoContext(ctx, "yield distributed",
		"asset_id", assetID,
		"seq", dist.Seq,
		"amount_cents", dist.Amount.Cents(),
	)
	return dist, nil
}

// ClaimYield pays the caller their pro-rata cut of one distribution. The
// claim mark lands before the payout; a failed payout reverses the mark so
// the holder can retry. A repeat claim fails and never pays twice.
func (l *Ledger) ClaimYield(ctx context.Context, assetID domain.AssetID, seq uint64) (domain.TokenUnits, error) {
	ctx, span := l.tracer.Start(ctx, "yield.claim",
		trace.WithAttributes(attribute.Int64("asset_id", int64(assetID))))
	defer span.End()

	holder := requestcontext.Principal(ctx)
	if holder.IsZero() {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	now := requestcontext.Now(ctx)
	var payout domain.TokenUnits
	err := l.guard.Do(func() error {
		dist, err := l.distributions.Find(ctx, assetID, seq)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "distribution not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "distribution lookup failed")
		}

		asset, err := l.assets.GetAsset(ctx, assetID)
		if err != nil {
			return err
		}
		balance, err := l.balances.BalanceOf(ctx, assetID, holder)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "balance lookup failed")
		}
		if balance <= 0 {
			return dErrors.New(dErrors.CodeValidation, "caller holds no shares of this asset")
		}

		cut, err := dist.ShareOf(balance, asset.TotalShares)
		if err != nil {
			return err
		}

		price, _, err := l.oracle.LatestPrice(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "oracle price lookup failed")
		}
		if !price.IsPositive() {
			return dErrors.New(dErrors.CodeInvariantViolation, "oracle returned a non-positive price")
		}
		units := domain.TokenUnits(cut.Cents() / price.Cents())

		if err := l.distributions.Claim(ctx, assetID, seq, holder, now); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "distribution already claimed")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark claim")
		}

		if units > 0 {
			ok, err := l.pay.Transfer(ctx, holder, units)
			if err != nil || !ok {
				if unclaimErr := l.distributions.Unclaim(ctx, assetID, seq, holder); unclaimErr != nil {
					l.logger.ErrorContext(ctx, "failed to reverse claim after payout failure",
						"asset_id", assetID,
						"seq", seq,
						"holder", holder,
						"error", unclaimErr,
					)
				} else if l.metrics != nil {
					l.metrics.ClaimsReversed.Inc()
				}
				if err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "payout transfer failed")
				}
				return dErrors.New(dErrors.CodeInsufficientFunds, "escrow cannot cover the claim")
			}
		}
		payout = units

		if l.metrics != nil {
			l.metrics.Claims.Inc()
			l.metrics.PaidOutCents.Add(float64(cut.Cents()))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	l.emit(ctx, events.EventYieldClaimed, assetID, map[string]any{
		"seq":          seq,
		"holder":       holder.String(),
		"payout_units": int64(payout),
	})
	l.logger.InfoContext(ctx, "yield claimed",
		"asset_id", assetID,
		"seq", seq,
		"holder", holder,
		"payout_units", payout,
	)
	return payout, nil
}

// GetDistribution fetches one distribution.
func (l *Ledger) GetDistribution(ctx context.Context, assetID domain.AssetID, seq uint64) (*models.Distribution, error) {
	dist, err := l.distributions.Find(ctx, assetID, seq)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "distribution not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "distribution lookup failed")
	}
	return dist, nil
}

// ListDistributions returns an asset's distributions in sequence order.
func (l *Ledger) ListDistributions(ctx context.Context, assetID domain.AssetID) ([]*models.Distribution, error) {
	out, err := l.distributions.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list distributions")
	}
	return out, nil
}

// ClaimStatus reports whether holder already collected one distribution.
func (l *Ledger) ClaimStatus(ctx context.Context, assetID domain.AssetID, seq uint64, holder domain.Address) (bool, error) {
	claimed, err := l.distributions.IsClaimed(ctx, assetID, seq, holder)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "claim lookup failed")
	}
	return claimed, nil
}

func (l *Ledger) emit(ctx context.Context, eventType events.Type, assetID domain.AssetID, payload map[string]any) {
	if l.events == nil {
		return
	}
	event := events.New(eventType, requestcontext.Now(ctx))
	event.AssetID = assetID
	event.Principal = requestcontext.Principal(ctx)
	event.Payload = payload
	if err := l.events.Emit(ctx, event); err != nil {
		l.logger.ErrorContext(ctx, "failed to emit event",
			"event_type", eventType,
			"asset_id", assetID,
			"error", err,
		)
	}
}
