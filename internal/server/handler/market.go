package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/phamdat721101/antdle-market/internal/domain"
	"github.com/phamdat721101/antdle-market/internal/service"
)

// MarketService defines the methods the market handler requires from the
// service layer. Declared locally so the handler depends on behavior, not
// the concrete service.
type MarketService interface {
	CreateMarket(ctx context.Context, p service.CreateMarketParams) (domain.Market, error)
	GetMarket(ctx context.Context, id string) (domain.Market, error)
	ListMarkets(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error)
	SettleMarket(ctx context.Context, id string, settledPrice float64) (domain.Market, error)
	Count(ctx context.Context) (int64, error)
}

// ClaimProcessor pays out every unclaimed winning position of a settled
// market in one call.
type ClaimProcessor interface {
	ProcessMarket(ctx context.Context, marketID string) (int, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	claims  ClaimProcessor
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketService, claims ClaimProcessor, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		claims:  claims,
		logger:  logger,
	}
}

// createMarketRequest is the JSON body for market creation.
type createMarketRequest struct {
	AssetName   string  `json:"asset_name"`
	Description string  `json:"description"`
	StrikePrice float64 `json:"strike_price"`
	ExpiryAt    string  `json:"expiry_timestamp"`
	Creator     string  `json:"creator"`
}

// CreateMarket creates a new binary market.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	expiry, err := time.Parse(time.RFC3339, req.ExpiryAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "expiry_timestamp must be RFC 3339")
		return
	}

	m, err := h.markets.CreateMarket(r.Context(), service.CreateMarketParams{
		AssetName:   req.AssetName,
		Description: req.Description,
		StrikePrice: req.StrikePrice,
		ExpiryAt:    expiry,
		Creator:     req.Creator,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: create market failed",
			slog.String("asset_name", req.AssetName),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListMarkets returns markets, optionally filtered by status.
// GET /api/markets?status=active&limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	status := domain.MarketStatus(r.URL.Query().Get("status"))

	markets, err := h.markets.ListMarkets(r.Context(), status, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}
	if markets == nil {
		markets = []domain.Market{}
	}

	total, err := h.markets.Count(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: count markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to count markets")
		return
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	m, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// settleMarketRequest is the JSON body for manual settlement.
type settleMarketRequest struct {
	SettledPrice float64 `json:"settled_price"`
}

// SettleMarket settles an expired market at the given price.
// POST /api/markets/{id}/settle
func (h *MarketHandler) SettleMarket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	var req settleMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	m, err := h.markets.SettleMarket(r.Context(), id, req.SettledPrice)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: settle market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// PayoutMarket pays every unclaimed winning position of a settled market.
// POST /api/markets/{id}/payout
func (h *MarketHandler) PayoutMarket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	paid, err := h.claims.ProcessMarket(r.Context(), id)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: payout market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": id,
		"paid":      paid,
	})
}
