package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tessera/internal/trading/service"
	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
	"tessera/pkg/platform/httputil"
	"tessera/pkg/requestcontext"
)

// Handler wires trading endpoints to the engine.
type Handler struct {
	engine *service.Engine
	logger *slog.Logger
}

func New(engine *service.Engine, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

// Register mounts trading endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/assets/{assetID}/purchase", h.handlePurchase)
	r.Post("/assets/{assetID}/sell", h.handleSell)
	r.Get("/assets/{assetID}/balances/{address}", h.handleBalance)
	r.Get("/assets/{assetID}/holders", h.handleHolders)
	r.Get("/escrow", h.handleEscrow)
	r.Get("/portfolio", h.handlePortfolio)
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	assetID, err := domain.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req tradeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	trade, err := h.engine.PurchaseShares(r.Context(), assetID, domain.Shares(req.Shares))
	if err != nil {
		h.logError(r, "purchase failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, trade)
}

func (h *Handler) handleSell(w http.ResponseWriter, r *http.Request) {
	assetID, err := domain.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req tradeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	trade, err := h.engine.SellShares(r.Context(), assetID, domain.Shares(req.Shares))
	if err != nil {
		h.logError(r, "sell failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, trade)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	assetID, err := domain.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	holder, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	balance, err := h.engine.BalanceOf(r.Context(), assetID, holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"asset_id": assetID,
		"holder":   holder.String(),
		"shares":   int64(balance),
	})
}

func (h *Handler) handleHolders(w http.ResponseWriter, r *http.Request) {
	assetID, err := domain.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	holders, err := h.engine.HoldersOf(r.Context(), assetID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, holders)
}

func (h *Handler) handleEscrow(w http.ResponseWriter, r *http.Request) {
	balance, err := h.engine.EscrowBalance(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"token_balance": int64(balance),
	})
}

func (h *Handler) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	holder := requestcontext.Principal(r.Context())
	if holder.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required"))
		return
	}
	portfolio, err := h.engine.PortfolioSummary(r.Context(), holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, portfolio)
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		"request_id", requestcontext.RequestID(r.Context()),
		"principal", requestcontext.Principal(r.Context()),
		"error", err,
	)
}
