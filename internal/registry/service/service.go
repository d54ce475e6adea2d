package service

import (
	"context"
	"errors"
	"log/slog"

	"tessera/internal/ledger"
	"tessera/internal/registry/metrics"
	"tessera/internal/registry/models"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/platform/events"
	"tessera/pkg/platform/sentinel"
	"tessera/pkg/requestcontext"
)

// AssetStore persists asset records. Execute holds the record lock across
// validate and mutate (mutex in memory, FOR UPDATE in PostgreSQL).
type AssetStore interface {
	Create(ctx context.Context, asset *models.Asset) (domain.AssetID, error)
	FindByID(ctx context.Context, id domain.AssetID) (*models.Asset, error)
	List(ctx context.Context) ([]*models.Asset, error)
	Execute(ctx context.Context, id domain.AssetID, validate func(*models.Asset) error, mutate func(*models.Asset)) (*models.Asset, error)
}

// ShareCrediter seeds the custodian's balance at tokenization. The share
// ledger itself is owned by the trading engine's store.
type ShareCrediter interface {
	Credit(ctx context.Context, assetID domain.AssetID, holder domain.Address, amount domain.Shares) error
}

// CertificateIssuer mints the external ownership certificate; the registry
// never blocks on its outcome.
type CertificateIssuer interface {
	IssueCertificate(ctx context.Context, assetID domain.AssetID, owner domain.Address, shares domain.Shares)
}

// CapabilityChecker answers whether the caller holds a capability.
type CapabilityChecker interface {
	Require(ctx context.Context, capability domain.Capability) error
}

// EventPublisher delivers ledger events to external observers.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Service owns asset metadata and the valuation lifecycle.
type Service struct {
	assets  AssetStore
	shares  ShareCrediter
	issuer  CertificateIssuer
	authz   CapabilityChecker
	guard   *ledger.Guard
	events  EventPublisher
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEvents(publisher EventPublisher) Option {
	return func(s *Service) { s.events = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the registry service.
func New(assets AssetStore, shares ShareCrediter, issuer CertificateIssuer, authz CapabilityChecker, guard *ledger.Guard, opts ...Option) *Service {
	s := &Service{
		assets: assets,
		shares: shares,
		issuer: issuer,
		authz:  authz,
		guard:  guard,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput carries asset registration fields.
type RegisterInput struct {
	Name           string
	Category       string
	Location       string
	Valuation      domain.USD
	DocumentHash   string
	RegistryNumber string
	Custodian      domain.Address
}

// RegisterAsset allocates the next asset ID and stores the record,
// untokenized and active.
func (s *Service) RegisterAsset(ctx context.Context, input RegisterInput) (*models.Asset, error) {
	if err := s.authz.Require(ctx, domain.CapabilityAdmin); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	asset, err := models.NewAsset(input.Name, input.Category, input.Location,
		input.Valuation, input.DocumentHash, input.RegistryNumber, input.Custodian, now)
	if err != nil {
		return nil, err
	}

	if _, err := s.assets.Create(ctx, asset); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store asset")
	}

	s.emit(ctx, events.EventAssetRegistered, asset.ID, map[string]any{
		"name":            asset.Name,
		"category":        asset.Category,
		"valuation_cents": asset.Valuation.Cents(),
		"custodian":       asset.Custodian.String(),
	})
	if s.metrics != nil {
		s.metrics.AssetsRegistered.Inc()
	}
	s.logger.InfoContext(ctx, "asset registered",
		"asset_id", asset.ID,
		"name", asset.Name,
		"custodian", asset.Custodian,
	)
	return asset, nil
}

// TokenizeAsset irreversibly splits the asset into totalShares fungible
// shares at floor(valuation/totalShares) each and credits the full supply to
// the custodian. Runs under the engine-wide guard because it mints the
// asset's entire share supply.
func (s *Service) TokenizeAsset(ctx context.Context, assetID domain.AssetID, totalShares domain.Shares) (*models.Asset, error) {
	if err := s.authz.Require(ctx, domain.CapabilityAdmin); err != nil {
		return nil, err
	}

	var asset *models.Asset
	err := s.guard.Do(func() error {
		updated, err := s.assets.Execute(ctx, assetID,
			func(a *models.Asset) error { return a.CanTokenize(totalShares) },
			func(a *models.Asset) { a.ApplyTokenization(totalShares) },
		)
		if err != nil {
			return wrapAssetErr(err)
		}
		if err := s.shares.Credit(ctx, assetID, updated.Custodian, totalShares); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to credit custodian supply")
		}
		asset = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.issuer.IssueCertificate(ctx, asset.ID, asset.Custodian, asset.TotalShares)

	s.emit(ctx, events.EventAssetTokenized, asset.ID, map[string]any{
		"total_shares":      int64(asset.TotalShares),
		"share_price_cents": asset.SharePrice.Cents(),
		"custodian":         asset.Custodian.String(),
	})
	if s.metrics != nil {
		s.metrics.AssetsTokenized.Inc()
	}
	s.logger.InfoContext(ctx, "asset tokenized",
		"asset_id", asset.ID,
		"total_shares", asset.TotalShares,
		"share_price_cents", asset.SharePrice.Cents(),
	)
	return asset, nil
}

// UpdateValuation records a new appraisal. Forward-only: already-settled
// trades keep their prices.
func (s *Service) UpdateValuation(ctx context.Context, assetID domain.AssetID, valuation domain.USD) (*models.Asset, error) {
	if err := s.authz.Require(ctx, domain.CapabilityAppraiser); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var asset *models.Asset
	err := s.guard.Do(func() error {
		updated, err := s.assets.Execute(ctx, assetID,
			func(a *models.Asset) error { return a.CanRevalue(valuation) },
			func(a *models.Asset) { a.ApplyValuation(valuation, now) },
		)
		if err != nil {
			return wrapAssetErr(err)
		}
		asset = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.EventAssetRevalued, asset.ID, map[string]any{
		"valuation_cents":   asset.Valuation.Cents(),
		"share_price_cents": asset.SharePrice.Cents(),
	})
	if s.metrics != nil {
		s.metrics.Revaluations.Inc()
	}
	return asset, nil
}

// UpdateCustodian reassigns the accountable address. No balance effect: the
// previous custodian keeps any unsold shares it holds.
func (s *Service) UpdateCustodian(ctx context.Context, assetID domain.AssetID, custodian domain.Address) (*models.Asset, error) {
	if err := s.authz.Require(ctx, domain.CapabilityAdmin); err != nil {
		return nil, err
	}

	if custodian.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "custodian address is required")
	}
	asset, err := s.assets.Execute(ctx, assetID,
		func(a *models.Asset) error { return nil },
		func(a *models.Asset) { a.Custodian = custodian },
	)
	if err != nil {
		return nil, wrapAssetErr(err)
	}

	s.emit(ctx, events.EventCustodianChanged, asset.ID, map[string]any{
		"custodian": asset.Custodian.String(),
	})
	return asset, nil
}

// DeactivateAsset parks the asset: trading and new distributions stop.
func (s *Service) DeactivateAsset(ctx context.Context, assetID domain.AssetID) (*models.Asset, error) {
	if err := s.authz.Require(ctx, domain.CapabilityAdmin); err != nil {
		return nil, err
	}

	asset, err := s.assets.Execute(ctx, assetID,
		func(a *models.Asset) error { return a.CanDeactivate() },
		func(a *models.Asset) { a.ApplyDeactivation() },
	)
	if err != nil {
		return nil, wrapAssetErr(err)
	}

	s.emit(ctx, events.EventAssetDeactivated, asset.ID, nil)
	return asset, nil
}

// GetAsset fetches one asset record.
func (s *Service) GetAsset(ctx context.Context, assetID domain.AssetID) (*models.Asset, error) {
	asset, err := s.assets.FindByID(ctx, assetID)
	if err != nil {
		return nil, wrapAssetErr(err)
	}
	return asset, nil
}

// ListAssets returns all asset records ordered by ID.
func (s *Service) ListAssets(ctx context.Context) ([]*models.Asset, error) {
	assets, err := s.assets.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assets")
	}
	return assets, nil
}

func (s *Service) emit(ctx context.Context, eventType events.Type, assetID domain.AssetID, payload map[string]any) {
	if s.events == nil {
		return
	}
	event := events.New(eventType, requestcontext.Now(ctx))
	event.AssetID = assetID
	event.Principal = requestcontext.Principal(ctx)
	event.Payload = payload
	if err := s.events.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit event",
			"event_type", eventType,
			"asset_id", assetID,
			"error", err,
		)
	}
}

func wrapAssetErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "asset not found")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "asset store failure")
	}
}
