// Package events defines the ledger's outbound event stream. Every state
// change emits one transport-agnostic envelope; sinks fan the stream out to
// Kafka in production and to an in-memory buffer in tests.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tessera/pkg/domain"
)

// Type names a ledger event.
type Type string

const (
	EventAssetRegistered  Type = "asset.registered"
	EventAssetTokenized   Type = "asset.tokenized"
	EventAssetRevalued    Type = "asset.revalued"
	EventCustodianChanged Type = "asset.custodian_changed"
	EventAssetDeactivated Type = "asset.deactivated"

	EventComplianceUpdated Type = "compliance.updated"
	EventBlacklistSet      Type = "compliance.blacklist_set"

	EventSharesPurchased Type = "shares.purchased"
	EventSharesSold      Type = "shares.sold"

	EventYieldDistributed Type = "yield.distributed"
	EventYieldClaimed     Type = "yield.claimed"
)

// Event is the envelope published for external observers. Payload carries
// event-specific fields and must be JSON-serializable.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Type      Type           `json:"type"`
	AssetID   domain.AssetID `json:"asset_id,omitempty"`
	Principal domain.Address `json:"principal,omitempty"`
	At        time.Time      `json:"at"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Publisher delivers events to external observers. Emit failures are logged
// by callers but never fail the originating ledger operation.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
	Close() error
}

// New builds an envelope with a fresh ID and the given timestamp.
func New(eventType Type, at time.Time) Event {
	return Event{ID: uuid.New(), Type: eventType, At: at}
}
