// Package service implements the trading engine. Purchases draw from the
// custodian's unsold pool and sales return shares to it, so the sum of
// balances for a tokenized asset always equals its total share count.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"tessera/internal/ledger"
	"tessera/internal/paytoken"
	regmodels "tessera/internal/registry/models"
	"tessera/internal/trading/metrics"
	"tessera/internal/trading/models"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/platform/events"
	"tessera/pkg/platform/sentinel"
	"tessera/pkg/requestcontext"
)

// AssetReader exposes the asset records the engine trades against.
type AssetReader interface {
	GetAsset(ctx context.Context, assetID domain.AssetID) (*regmodels.Asset, error)
}

// ComplianceGate clears every inbound transfer and screens sellers.
type ComplianceGate interface {
	CanReceive(ctx context.Context, assetID domain.AssetID, addr domain.Address, incoming domain.Shares) error
	IsBlacklisted(ctx context.Context, addr domain.Address) (bool, error)
}

// BalanceStore persists share balances and holder clocks.
type BalanceStore interface {
	BalanceOf(ctx context.Context, assetID domain.AssetID, holder domain.Address) (domain.Shares, error)
	Credit(ctx context.Context, assetID domain.AssetID, holder domain.Address, amount domain.Shares) error
	Transfer(ctx context.Context, assetID domain.AssetID, from, to domain.Address, amount domain.Shares) error
	TotalByAsset(ctx context.Context, assetID domain.AssetID) (domain.Shares, error)
	HoldingsOf(ctx context.Context, holder domain.Address) ([]models.Holding, error)
	HoldersOf(ctx context.Context, assetID domain.AssetID) ([]models.Holding, error)
	LastTransferAt(ctx context.Context, holder domain.Address) (time.Time, error)
	SetLastTransferAt(ctx context.Context, holder domain.Address, at time.Time) error
}

// EventPublisher delivers ledger events to external observers.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Engine settles purchases and sales against the payment-token escrow.
type Engine struct {
	assets   AssetReader
	gate     ComplianceGate
	balances BalanceStore
	pay      paytoken.Ledger
	guard    *ledger.Guard
	escrow   domain.Address
	// minHold is how long after a purchase every position of the buyer
	// stays sell-locked.
	minHold time.Duration
	events  EventPublisher
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithEvents(publisher EventPublisher) Option {
	return func(e *Engine) { e.events = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New constructs the trading engine.
func New(assets AssetReader, gate ComplianceGate, balances BalanceStore, pay paytoken.Ledger, guard *ledger.Guard, escrow domain.Address, minHold time.Duration, opts ...Option) *Engine {
	e := &Engine{
		assets:   assets,
		gate:     gate,
		balances: balances,
		pay:      pay,
		guard:    guard,
		escrow:   escrow,
		minHold:  minHold,
		logger:   slog.Default(),
		tracer:   otel.Tracer("tessera/trading"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PurchaseShares settles a buy order for the caller against the custodian's
// unsold pool. The payment transfer runs first; a failed payment leaves every
// balance untouched, and a failure after the payment pull refunds the buyer
// before the error returns.
func (e *Engine) PurchaseShares(ctx context.Context, assetID domain.AssetID, amount domain.Shares) (*models.Trade, error) {
	ctx, span := e.tracer.Start(ctx, "trading.purchase",
		trace.WithAttributes(attribute.Int64("asset_id", int64(assetID))))
	defer span.End()

	buyer := requestcontext.Principal(ctx)
	if buyer.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if amount <= 0 {
		return nil, e.reject(dErrors.New(dErrors.CodeValidation, "share amount must be positive"))
	}

	asset, err := e.assets.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !asset.Tradeable() {
		return nil, e.reject(dErrors.New(dErrors.CodeConflict, "asset is not open for trading"))
	}

	cost, err := tradeValue(asset.SharePrice, amount)
	if err != nil {
		return nil, e.reject(err)
	}

	now := requestcontext.Now(ctx)
	var trade *models.Trade
	err = e.guard.Do(func() error {
		// The ceiling check reads the buyer's balance, so it must run under
		// the lock or a concurrent purchase could slip both orders past it.
		if err := e.gate.CanReceive(ctx, assetID, buyer, amount); err != nil {
			return e.reject(err)
		}

		pool, err := e.balances.BalanceOf(ctx, assetID, asset.Custodian)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "balance lookup failed")
		}
		if pool < amount {
			return e.reject(dErrors.New(dErrors.CodeConflict, "unsold share pool cannot cover the order"))
		}

		ok, err := e.pay.TransferFrom(ctx, buyer, e.escrow, cost.FaceValue())
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "payment transfer failed")
		}
		if !ok {
			return e.reject(dErrors.New(dErrors.CodeInsufficientFunds, "payment token balance cannot cover the cost"))
		}

		if err := e.balances.Transfer(ctx, assetID, asset.Custodian, buyer, amount); err != nil {
			e.refundBuyer(ctx, buyer, cost)
			return dErrors.Wrap(err, dErrors.CodeInternal, "share transfer failed")
		}
		if err := e.balances.SetLastTransferAt(ctx, buyer, now); err != nil {
			if rbErr := e.balances.Transfer(ctx, assetID, buyer, asset.Custodian, amount); rbErr != nil {
				e.logger.ErrorContext(ctx, "share transfer rollback failed",
					"asset_id", assetID, "buyer", buyer, "error", rbErr)
			}
			e.refundBuyer(ctx, buyer, cost)
			return dErrors.Wrap(err, dErrors.CodeInternal, "holder clock update failed")
		}

		balance, err := e.balances.BalanceOf(ctx, assetID, buyer)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "balance lookup failed")
		}
		trade = &models.Trade{
			AssetID:    assetID,
			Holder:     buyer,
			Shares:     amount,
			AmountUSD:  cost,
			SettledAt:  now,
			NewBalance: balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, events.EventSharesPurchased, assetID, map[string]any{
		"buyer":        buyer.String(),
		"shares":       int64(amount),
		"amount_cents": cost.Cents(),
	})
	if e.metrics != nil {
		e.metrics.Purchases.Inc()
		e.metrics.VolumeCents.WithLabelValues("buy").Add(float64(cost.Cents()))
	}
	e.logger.InfoContext(ctx, "purchase settled",
		"asset_id", assetID,
		"buyer", buyer,
		"shares", amount,
		"amount_cents", cost.Cents(),
	)
	return trade, nil
}

// SellShares settles a sell order back into the unsold pool. Proceeds leave
// escrow before the shares move; an escrow that cannot cover the proceeds
// fails the whole call with no partial effect.
func (e *Engine) SellShares(ctx context.Context, assetID domain.AssetID, amount domain.Shares) (*models.Trade, error) {
	ctx, span := e.tracer.Start(ctx, "trading.sell",
		trace.WithAttributes(attribute.Int64("asset_id", int64(assetID))))
	defer span.End()

	seller := requestcontext.Principal(ctx)
	if seller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if amount <= 0 {
		return nil, e.reject(dErrors.New(dErrors.CodeValidation, "share amount must be positive"))
	}

	asset, err := e.assets.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !asset.Tradeable() {
		return nil, e.reject(dErrors.New(dErrors.CodeConflict, "asset is not open for trading"))
	}

	blacklisted, err := e.gate.IsBlacklisted(ctx, seller)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, e.reject(dErrors.New(dErrors.CodeComplianceDenied, "address is blacklisted"))
	}

	proceeds, err := tradeValue(asset.SharePrice, amount)
	if err != nil {
		return nil, e.reject(err)
	}

	now := requestcontext.Now(ctx)
	var trade *models.Trade
	err = e.guard.Do(func() error {
		balance, err := e.balances.BalanceOf(ctx, assetID, seller)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "balance lookup failed")
		}
		if balance < amount {
			return e.reject(dErrors.New(dErrors.CodeInsufficientFunds, "share balance cannot cover the sale"))
		}

		lockedAt, err := e.balances.LastTransferAt(ctx, seller)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			// Never purchased; only possible for a custodian selling its
			// tokenization credit, which carries no hold lock.
		case err != nil:
			return dErrors.Wrap(err, dErrors.CodeInternal, "holder clock lookup failed")
		case now.Sub(lockedAt) < e.minHold:
			return e.reject(dErrors.New(dErrors.CodeConflict, "minimum hold period has not elapsed"))
		}

		ok, err := e.pay.Transfer(ctx, seller, proceeds.FaceValue())
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "proceeds transfer failed")
		}
		if !ok {
			return e.reject(dErrors.New(dErrors.CodeInsufficientFunds, "escrow cannot cover the proceeds"))
		}

		if err := e.balances.Transfer(ctx, assetID, seller, asset.Custodian, amount); err != nil {
			e.reclaimProceeds(ctx, seller, proceeds)
			return dErrors.Wrap(err, dErrors.CodeInternal, "share transfer failed")
		}

		remaining, err := e.balances.BalanceOf(ctx, assetID, seller)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "balance lookup failed")
		}
		trade = &models.Trade{
			AssetID:    assetID,
			Holder:     seller,
			Shares:     amount,
			AmountUSD:  proceeds,
			SettledAt:  now,
			NewBalance: remaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, events.EventSharesSold, assetID, map[string]any{
		"seller":       seller.String(),
		"shares":       int64(amount),
		"amount_cents": proceeds.Cents(),
	})
	if e.metrics != nil {
		e.metrics.Sales.Inc()
		e.metrics.VolumeCents.WithLabelValues("sell").Add(float64(proceeds.Cents()))
	}
	e.logger.InfoContext(ctx, "sale settled",
		"asset_id", assetID,
		"seller", seller,
		"shares", amount,
		"amount_cents", proceeds.Cents(),
	)
	return trade, nil
}

// BalanceOf returns holder's position in assetID.
func (e *Engine) BalanceOf(ctx context.Context, assetID domain.AssetID, holder domain.Address) (domain.Shares, error) {
	balance, err := e.balances.BalanceOf(ctx, assetID, holder)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "balance lookup failed")
	}
	return balance, nil
}

// HoldersOf returns every non-zero position in assetID.
func (e *Engine) HoldersOf(ctx context.Context, assetID domain.AssetID) ([]models.Holding, error) {
	holders, err := e.balances.HoldersOf(ctx, assetID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "holder listing failed")
	}
	return holders, nil
}

// EscrowBalance returns the payment-token value held at the engine's escrow
// address.
func (e *Engine) EscrowBalance(ctx context.Context) (domain.TokenUnits, error) {
	balance, err := e.pay.BalanceOf(ctx, e.escrow)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "escrow balance lookup failed")
	}
	return balance, nil
}

// PortfolioSummary joins holder's positions with current asset pricing and
// their payment-token balance. Asset lookups fan out concurrently.
func (e *Engine) PortfolioSummary(ctx context.Context, holder domain.Address) (*models.Portfolio, error) {
	holdings, err := e.balances.HoldingsOf(ctx, holder)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "holdings lookup failed")
	}

	portfolio := &models.Portfolio{
		Holder:    holder,
		Positions: make([]models.Position, len(holdings)),
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, holding := range holdings {
		g.Go(func() error {
			asset, err := e.assets.GetAsset(gctx, holding.AssetID)
			if err != nil {
				return err
			}
			value, err := tradeValue(asset.SharePrice, holding.Shares)
			if err != nil {
				return err
			}
			portfolio.Positions[i] = models.Position{
				AssetID:    holding.AssetID,
				Name:       asset.Name,
				Shares:     holding.Shares,
				SharePrice: asset.SharePrice,
				Value:      value,
			}
			return nil
		})
	}
	g.Go(func() error {
		balance, err := e.pay.BalanceOf(gctx, holder)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "token balance lookup failed")
		}
		portfolio.TokenBalance = balance
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, position := range portfolio.Positions {
		portfolio.TotalValue += position.Value
	}
	return portfolio, nil
}

// refundBuyer returns a buyer's payment from escrow after a later settlement
// step failed. The refund runs inside the guarded section, so no concurrent
// operation can observe the escrow holding the failed order's payment.
func (e *Engine) refundBuyer(ctx context.Context, buyer domain.Address, cost domain.USD) {
	ok, err := e.pay.Transfer(ctx, buyer, cost.FaceValue())
	if err != nil || !ok {
		e.logger.ErrorContext(ctx, "refund of failed purchase payment failed",
			"buyer", buyer,
			"amount_cents", cost.Cents(),
			"error", err,
		)
	}
}

// reclaimProceeds pulls a payout back into escrow after the share move of a
// sale failed, so the seller never keeps both the proceeds and the shares.
func (e *Engine) reclaimProceeds(ctx context.Context, seller domain.Address, proceeds domain.USD) {
	ok, err := e.pay.TransferFrom(ctx, seller, e.escrow, proceeds.FaceValue())
	if err != nil || !ok {
		e.logger.ErrorContext(ctx, "reclaim of failed sale proceeds failed",
			"seller", seller,
			"amount_cents", proceeds.Cents(),
			"error", err,
		)
	}
}

// tradeValue computes amount shares at price, guarding int64 overflow.
func tradeValue(price domain.USD, amount domain.Shares) (domain.USD, error) {
	if price.Cents() < 0 || amount < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "negative trade terms")
	}
	if price.Cents() > 0 && int64(amount) > math.MaxInt64/price.Cents() {
		return 0, dErrors.New(dErrors.CodeValidation, "trade value overflows")
	}
	return domain.USDFromCents(price.Cents() * int64(amount)), nil
}

func (e *Engine) reject(err error) error {
	if e.metrics != nil {
		e.metrics.RejectedTrades.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
	}
	return err
}

func (e *Engine) emit(ctx context.Context, eventType events.Type, assetID domain.AssetID, payload map[string]any) {
	if e.events == nil {
		return
	}
	event := events.New(eventType, requestcontext.Now(ctx))
	event.AssetID = assetID
	event.Principal = requestcontext.Principal(ctx)
	event.Payload = payload
	if err := e.events.Emit(ctx, event); err != nil {
		e.logger.ErrorContext(ctx, "failed to emit event",
			"event_type", eventType,
			"asset_id", assetID,
			"error", err,
		)
	}
}
