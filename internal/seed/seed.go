// Package seed bootstraps a dev deployment with one tokenized asset, a
// whitelisted investor, and a funded escrow so the API is explorable without
// manual setup.
package seed

import (
	"context"
	"fmt"
	"time"

	"tessera/internal/compliance"
	complianceservice "tessera/internal/compliance/service"
	"tessera/internal/paytoken"
	"tessera/internal/registry"
	registryservice "tessera/internal/registry/service"
	"tessera/pkg/domain"
	"tessera/pkg/requestcontext"
)

const (
	Custodian = domain.Address("seed-custodian")
	Investor  = domain.Address("seed-investor")
)

// Bootstrap registers and tokenizes a demo asset, whitelists the demo
// investor, and funds both the investor and the escrow.
func Bootstrap(ctx context.Context, assets *registry.Service, gate *compliance.Gate, pay *paytoken.Memory, escrow domain.Address) (domain.AssetID, error) {
	now := time.Now()
	admin := requestcontext.WithPrincipal(ctx, domain.Address("seed-admin"))
	admin = requestcontext.WithCapabilities(admin, []domain.Capability{
		domain.CapabilityAdmin, domain.CapabilityCompliance,
	})
	admin = requestcontext.WithTime(admin, now)

	asset, err := assets.RegisterAsset(admin, registryservice.RegisterInput{
		Name:           "Riverside Warehouse",
		Category:       "real_estate",
		Location:       "Porto",
		Valuation:      domain.USDFromCents(100_000_000),
		DocumentHash:   "seed-doc-hash",
		RegistryNumber: "SEED-001",
		Custodian:      Custodian,
	})
	if err != nil {
		return 0, fmt.Errorf("seed asset: %w", err)
	}
	if _, err := assets.TokenizeAsset(admin, asset.ID, domain.Shares(1_000_000)); err != nil {
		return 0, fmt.Errorf("seed tokenization: %w", err)
	}

	_, err = gate.UpdateCompliance(admin, complianceservice.RecordInput{
		Address:         Investor,
		Whitelisted:     true,
		KYCExpiry:       now.Add(365 * 24 * time.Hour),
		KYCDocumentHash: "seed-kyc-hash",
		Jurisdiction:    "PT",
	})
	if err != nil {
		return 0, fmt.Errorf("seed compliance record: %w", err)
	}

	pay.Mint(Investor, domain.TokenUnits(10_000_000))
	pay.Mint(escrow, domain.TokenUnits(10_000_000))
	return asset.ID, nil
}
