package yield

import (
	"log/slog"

	"tessera/internal/yield/handler"
	"tessera/internal/yield/service"
)

// Ledger declares distributions and settles claims from escrow.
type Ledger = service.Ledger

// Handler wires HTTP endpoints to the yield ledger.
type Handler = handler.Handler

// NewLedger constructs the yield ledger with required dependencies.
var NewLedger = service.New

// NewHandler constructs an HTTP handler for yield routes.
func NewHandler(l *Ledger, logger *slog.Logger) *Handler {
	return handler.New(l, logger)
}
