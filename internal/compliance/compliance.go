package compliance

import (
	"log/slog"

	"tessera/internal/compliance/handler"
	"tessera/internal/compliance/service"
)

// Gate owns compliance state and answers transfer-eligibility checks.
type Gate = service.Gate

// Handler wires HTTP endpoints to the compliance gate.
type Handler = handler.Handler

// NewGate constructs the compliance gate with required dependencies.
var NewGate = service.New

// NewHandler constructs an HTTP handler for compliance routes.
func NewHandler(g *Gate, logger *slog.Logger) *Handler {
	return handler.New(g, logger)
}
