package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tessera/internal/registry/service"
	"tessera/pkg/domain"
	"tessera/pkg/platform/httputil"
	"tessera/pkg/requestcontext"
)

// Handler wires asset registry endpoints to the registry service.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/assets", h.handleRegister)
	r.Get("/assets", h.handleList)
	r.Get("/assets/{assetID}", h.handleGet)
	r.Post("/assets/{assetID}/tokenize", h.handleTokenize)
	r.Post("/assets/{assetID}/valuation", h.handleRevalue)
	r.Post("/assets/{assetID}/custodian", h.handleCustodian)
	r.Post("/assets/{assetID}/deactivate", h.handleDeactivate)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	asset, err := h.service.RegisterAsset(r.Context(), input)
	if err != nil {
		h.logError(r, "register asset failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, asset)
}

func (h *Handler) handleTokenize(w http.ResponseWriter, r *http.Request) {
	assetID, err := domain.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req tokenizeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	asset, err := h.service.TokenizeAsset(r.Context(), assetID, domain.Shares(req.TotalShares))
	if err != nil {
		h.logError(r, "tokenize asset failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, asset)
}

func (h *Handler) handleRevalue(w http.ResponseWriter, r *http.Request) {
	assetID, err := domain.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req revalueRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	asset, err := h.service.UpdateValuation(r.Context(), assetID, domain.USDFromCents(req.ValuationCents))
	if err != nil {
		h.logError(r, "update valuation failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, asset)
}

func (h *Handler) handleCustodian(w http.ResponseWriter, r *http.Request) {
	assetID, err := domain.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req custodianRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	custodian, err := domain.ParseAddress(req.Custodian)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	asset, err := h.service.UpdateCustodian(r.Context(), assetID, custodian)
	if err != nil {
		h.logError(r, "update custodian failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, asset)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	assetID, err := domain.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	asset, err := h.service.DeactivateAsset(r.Context(), assetID)
	if err != nil {
		h.logError(r, "deactivate asset failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, asset)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	assetID, err := domain.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	asset, err := h.service.GetAsset(r.Context(), assetID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, asset)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	assets, err := h.service.ListAssets(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, assets)
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		"request_id", requestcontext.RequestID(r.Context()),
		"principal", requestcontext.Principal(r.Context()),
		"error", err,
	)
}
