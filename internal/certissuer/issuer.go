// Package certissuer is the boundary to the external ownership-certificate
// issuer. The engine hands over {asset, owner, amount} after tokenization and
// never blocks on or fails from the issuer's outcome.
package certissuer

import (
	"context"
	"log/slog"

	"tessera/pkg/domain"
)

// Issuer mints an external certificate representation for newly tokenized
// holdings.
type Issuer interface {
	IssueCertificate(ctx context.Context, assetID domain.AssetID, owner domain.Address, shares domain.Shares)
}

// Logging records issuance requests without an external system attached.
type Logging struct {
	logger *slog.Logger
}

func NewLogging(logger *slog.Logger) *Logging {
	return &Logging{logger: logger}
}

func (l *Logging) IssueCertificate(ctx context.Context, assetID domain.AssetID, owner domain.Address, shares domain.Shares) {
	l.logger.InfoContext(ctx, "certificate issuance requested",
		"asset_id", assetID,
		"owner", owner,
		"shares", shares,
	)
}
