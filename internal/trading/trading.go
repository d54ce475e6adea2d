package trading

import (
	"log/slog"

	"tessera/internal/trading/handler"
	"tessera/internal/trading/service"
)

// Engine settles purchases and sales against the payment-token escrow.
type Engine = service.Engine

// Handler wires HTTP endpoints to the trading engine.
type Handler = handler.Handler

// NewEngine constructs the trading engine with required dependencies.
var NewEngine = service.New

// NewHandler constructs an HTTP handler for trading routes.
func NewHandler(e *Engine, logger *slog.Logger) *Handler {
	return handler.New(e, logger)
}
