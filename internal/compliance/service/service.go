// Package service implements the compliance gate: every share transfer into
// an address clears the blacklist, whitelist, KYC expiry, and concentration
// checks before the trading engine moves anything.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tessera/internal/compliance/metrics"
	"tessera/internal/compliance/models"
	"tessera/internal/ledger"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/platform/events"
	"tessera/pkg/platform/sentinel"
	"tessera/pkg/requestcontext"
)

// RecordStore persists per-address compliance records.
type RecordStore interface {
	UpsertRecord(ctx context.Context, record *models.Record) error
	FindRecord(ctx context.Context, addr domain.Address) (*models.Record, error)
	ListRecords(ctx context.Context) ([]*models.Record, error)
}

// BlacklistStore persists per-address blacklist flags.
type BlacklistStore interface {
	SetFlag(ctx context.Context, flag *models.BlacklistFlag) error
	FindFlag(ctx context.Context, addr domain.Address) (*models.BlacklistFlag, error)
}

// HoldingsReader reports a holder's current share balance; the trading store
// provides it so the concentration check sees settled balances.
type HoldingsReader interface {
	BalanceOf(ctx context.Context, assetID domain.AssetID, holder domain.Address) (domain.Shares, error)
}

// CapabilityChecker answers whether the caller holds a capability.
type CapabilityChecker interface {
	Require(ctx context.Context, capability domain.Capability) error
}

// EventPublisher delivers ledger events to external observers.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Gate owns compliance state and answers transfer-eligibility checks.
type Gate struct {
	records   RecordStore
	blacklist BlacklistStore
	holdings  HoldingsReader
	authz     CapabilityChecker
	guard     *ledger.Guard
	// protocolMax caps any single holder's per-asset position when the
	// record sets no personal ceiling. Zero disables the check.
	protocolMax domain.Shares
	events      EventPublisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

func WithEvents(publisher EventPublisher) Option {
	return func(g *Gate) { g.events = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// New constructs the compliance gate.
func New(records RecordStore, blacklist BlacklistStore, holdings HoldingsReader, authz CapabilityChecker, guard *ledger.Guard, protocolMax domain.Shares, opts ...Option) *Gate {
	g := &Gate{
		records:     records,
		blacklist:   blacklist,
		holdings:    holdings,
		authz:       authz,
		guard:       guard,
		protocolMax: protocolMax,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CanReceive reports whether addr may take delivery of incoming shares of
// assetID. A nil return means the transfer clears every check; otherwise the
// error carries the denial reason. KYC expiry is evaluated at call time, so a
// record that was valid at whitelisting can still deny later trades.
func (g *Gate) CanReceive(ctx context.Context, assetID domain.AssetID, addr domain.Address, incoming domain.Shares) error {
	blacklisted, err := g.IsBlacklisted(ctx, addr)
	if err != nil {
		return err
	}
	if blacklisted {
		return g.deny(ctx, addr, "blacklisted", "address is blacklisted")
	}

	record, err := g.records.FindRecord(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return g.deny(ctx, addr, "not_whitelisted", "address has no compliance record")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "compliance record lookup failed")
	}
	if !record.Whitelisted {
		return g.deny(ctx, addr, "not_whitelisted", "address is not whitelisted")
	}
	if record.KYCExpired(requestcontext.Now(ctx)) {
		return g.deny(ctx, addr, "kyc_expired", "KYC verification has expired")
	}

	if ceiling := record.HoldingCeiling(g.protocolMax); ceiling > 0 {
		balance, err := g.holdings.BalanceOf(ctx, assetID, addr)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "holdings lookup failed")
		}
		if balance+incoming > ceiling {
			return g.deny(ctx, addr, "holding_ceiling", "transfer would exceed the holding ceiling")
		}
	}

	if g.metrics != nil {
		g.metrics.ChecksAllowed.Inc()
	}
	return nil
}

// UpdateCompliance overwrites the record for input's address. Idempotent.
func (g *Gate) UpdateCompliance(ctx context.Context, input RecordInput) (*models.Record, error) {
	if err := g.authz.Require(ctx, domain.CapabilityCompliance); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	record, err := models.NewRecord(input.Address, input.Whitelisted, input.KYCExpiry,
		input.KYCDocumentHash, input.Jurisdiction, input.MaxHolding, now)
	if err != nil {
		return nil, err
	}

	err = g.guard.DoPrincipal(record.Address, func() error {
		return g.records.UpsertRecord(ctx, record)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store compliance record")
	}

	g.emit(ctx, events.EventComplianceUpdated, record.Address, map[string]any{
		"whitelisted":  record.Whitelisted,
		"kyc_expiry":   record.KYCExpiry,
		"jurisdiction": record.Jurisdiction,
		"max_holding":  int64(record.MaxHolding),
	})
	if g.metrics != nil {
		g.metrics.RecordUpserts.Inc()
	}
	g.logger.InfoContext(ctx, "compliance record updated",
		"address", record.Address,
		"whitelisted", record.Whitelisted,
	)
	return record, nil
}

// SetBlacklisted flags or clears addr. Idempotent; the flag overrides any
// whitelist entry while set.
func (g *Gate) SetBlacklisted(ctx context.Context, addr domain.Address, flagged bool, reason string) error {
	if err := g.authz.Require(ctx, domain.CapabilityCompliance); err != nil {
		return err
	}
	if addr.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "address is required")
	}

	flag := &models.BlacklistFlag{
		Address:   addr,
		Flagged:   flagged,
		Reason:    reason,
		UpdatedAt: requestcontext.Now(ctx),
	}
	err := g.guard.DoPrincipal(addr, func() error {
		return g.blacklist.SetFlag(ctx, flag)
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store blacklist flag")
	}

	g.emit(ctx, events.EventBlacklistSet, addr, map[string]any{
		"flagged": flagged,
		"reason":  reason,
	})
	g.logger.InfoContext(ctx, "blacklist flag set",
		"address", addr,
		"flagged", flagged,
	)
	return nil
}

// GetRecord fetches the compliance record for addr.
func (g *Gate) GetRecord(ctx context.Context, addr domain.Address) (*models.Record, error) {
	record, err := g.records.FindRecord(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "compliance record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "compliance record lookup failed")
	}
	return record, nil
}

// ListRecords returns every compliance record.
func (g *Gate) ListRecords(ctx context.Context) ([]*models.Record, error) {
	records, err := g.records.ListRecords(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list compliance records")
	}
	return records, nil
}

// IsBlacklisted reports whether addr carries an active blacklist flag.
func (g *Gate) IsBlacklisted(ctx context.Context, addr domain.Address) (bool, error) {
	flag, err := g.blacklist.FindFlag(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "blacklist lookup failed")
	}
	return flag.Flagged, nil
}

// RecordInput carries compliance record fields.
type RecordInput struct {
	Address         domain.Address
	Whitelisted     bool
	KYCExpiry       time.Time
	KYCDocumentHash string
	Jurisdiction    string
	MaxHolding      domain.Shares
}

func (g *Gate) deny(ctx context.Context, addr domain.Address, reason, message string) error {
	if g.metrics != nil {
		g.metrics.ChecksDenied.WithLabelValues(reason).Inc()
	}
	g.logger.InfoContext(ctx, "transfer denied",
		"address", addr,
		"reason", reason,
	)
	return dErrors.New(dErrors.CodeComplianceDenied, message)
}

func (g *Gate) emit(ctx context.Context, eventType events.Type, addr domain.Address, payload map[string]any) {
	if g.events == nil {
		return
	}
	event := events.New(eventType, requestcontext.Now(ctx))
	event.Principal = requestcontext.Principal(ctx)
	if payload == nil {
		payload = map[string]any{}
	}
	payload["address"] = addr.String()
	event.Payload = payload
	if err := g.events.Emit(ctx, event); err != nil {
		g.logger.ErrorContext(ctx, "failed to emit event",
			"event_type", eventType,
			"address", addr,
			"error", err,
		)
	}
}
