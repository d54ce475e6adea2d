package registry

import (
	"log/slog"

	"tessera/internal/registry/handler"
	"tessera/internal/registry/service"
)

// Service owns asset metadata and the valuation lifecycle.
type Service = service.Service

// Handler wires HTTP endpoints to the registry service.
type Handler = handler.Handler

// NewService constructs the registry service with required dependencies.
var NewService = service.New

// NewHandler constructs an HTTP handler for registry routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
