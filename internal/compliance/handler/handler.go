package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tessera/internal/compliance/service"
	"tessera/pkg/domain"
	"tessera/pkg/platform/httputil"
	"tessera/pkg/requestcontext"
)

// Handler wires compliance endpoints to the gate.
type Handler struct {
	gate   *service.Gate
	logger *slog.Logger
}

func New(gate *service.Gate, logger *slog.Logger) *Handler {
	return &Handler{gate: gate, logger: logger}
}

// Register mounts compliance endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Put("/compliance/records", h.handleUpdate)
	r.Get("/compliance/records", h.handleList)
	r.Get("/compliance/records/{address}", h.handleGet)
	r.Put("/compliance/blacklist/{address}", h.handleBlacklist)
	r.Get("/compliance/blacklist/{address}", h.handleBlacklistStatus)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.gate.UpdateCompliance(r.Context(), input)
	if err != nil {
		h.logError(r, "update compliance record failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	record, err := h.gate.GetRecord(r.Context(), addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.gate.ListRecords(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) handleBlacklist(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req blacklistRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.gate.SetBlacklisted(r.Context(), addr, req.Flagged, req.Reason); err != nil {
		h.logError(r, "set blacklist flag failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"address": addr.String(),
		"flagged": req.Flagged,
	})
}

func (h *Handler) handleBlacklistStatus(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	flagged, err := h.gate.IsBlacklisted(r.Context(), addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"address": addr.String(),
		"flagged": flagged,
	})
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		"request_id", requestcontext.RequestID(r.Context()),
		"principal", requestcontext.Principal(r.Context()),
		"error", err,
	)
}
