package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tessera/internal/yield/service"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/platform/httputil"
	"tessera/pkg/requestcontext"
)

// Handler wires yield endpoints to the ledger.
type Handler struct {
	ledger *service.Ledger
	logger *slog.Logger
}

func New(ledger *service.Ledger, logger *slog.Logger) *Handler {
	return &Handler{ledger: ledger, logger: logger}
}

// Register mounts yield endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/assets/{assetID}/distributions", h.handleDistribute)
	r.Get("/assets/{assetID}/distributions", h.handleList)
	r.Get("/assets/{assetID}/distributions/{seq}", h.handleGet)
	r.Post("/assets/{assetID}/distributions/{seq}/claim", h.handleClaim)
	r.Get("/assets/{assetID}/distributions/{seq}/claims/{address}", h.handleClaimStatus)
}

func (h *Handler) handleDistribute(w http.ResponseWriter, r *http.Request) {
	assetID, err := domain.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req distributeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	dist, err := h.ledger.DistributeYield(r.Context(), assetID, domain.USDFromCents(req.AmountCents))
	if err != nil {
		h.logError(r, "distribute yield failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, dist)
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	assetID, seq, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	payout, err := h.ledger.ClaimYield(r.Context(), assetID, seq)
	if err != nil {
		h.logError(r, "claim yield failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"asset_id":     assetID,
		"seq":          seq,
		"payout_units": int64(payout),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	assetID, seq, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	dist, err := h.ledger.GetDistribution(r.Context(), assetID, seq)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dist)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	assetID, err := domain.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	dists, err := h.ledger.ListDistributions(r.Context(), assetID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dists)
}

func (h *Handler) handleClaimStatus(w http.ResponseWriter, r *http.Request) {
	assetID, seq, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	holder, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	claimed, err := h.ledger.ClaimStatus(r.Context(), assetID, seq, holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"asset_id": assetID,
		"seq":      seq,
		"holder":   holder.String(),
		"claimed":  claimed,
	})
}

func pathIDs(r *http.Request) (domain.AssetID, uint64, error) {
	assetID, err := domain.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		return 0, 0, err
	}
	seq, err := strconv.ParseUint(chi.URLParam(r, "seq"), 10, 64)
	if err != nil {
		return 0, 0, dErrors.New(dErrors.CodeValidation, "invalid distribution sequence")
	}
	return assetID, seq, nil
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		"request_id", requestcontext.RequestID(r.Context()),
		"principal", requestcontext.Principal(r.Context()),
		"error", err,
	)
}
