package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/phamdat721101/antdle-market/internal/domain"
	"github.com/phamdat721101/antdle-market/internal/service"
)

// TradeService defines the methods the trade handler requires.
type TradeService interface {
	PlaceTrade(ctx context.Context, p service.PlaceTradeParams) (service.TradeResult, error)
	ListPositions(ctx context.Context, walletAddr string, opts domain.ListOpts) ([]domain.PositionWithMarket, error)
}

// ClaimService defines the single-position claim operation.
type ClaimService interface {
	Claim(ctx context.Context, positionID, walletAddr string) (service.ClaimResult, error)
}

// TradeHandler serves trade and position endpoints.
type TradeHandler struct {
	trades TradeService
	claims ClaimService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades TradeService, claims ClaimService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		trades: trades,
		claims: claims,
		logger: logger,
	}
}

// placeTradeRequest is the JSON body for placing a trade.
type placeTradeRequest struct {
	MarketID string  `json:"market_id"`
	Wallet   string  `json:"wallet_address"`
	Side     string  `json:"side"`
	Amount   float64 `json:"amount"`
}

// PlaceTrade stakes an amount on one side of a market.
// POST /api/trades
func (h *TradeHandler) PlaceTrade(w http.ResponseWriter, r *http.Request) {
	var req placeTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.MarketID == "" || req.Wallet == "" {
		writeError(w, http.StatusBadRequest, "market_id and wallet_address are required")
		return
	}

	result, err := h.trades.PlaceTrade(r.Context(), service.PlaceTradeParams{
		MarketID: req.MarketID,
		Wallet:   req.Wallet,
		Side:     domain.Side(req.Side),
		Amount:   req.Amount,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: place trade failed",
			slog.String("market_id", req.MarketID),
			slog.String("wallet", req.Wallet),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// listPositionsResponse wraps the positions list.
type listPositionsResponse struct {
	Positions []domain.PositionWithMarket `json:"positions"`
}

// ListPositions returns a wallet's positions joined with their markets.
// GET /api/positions?wallet=0x...&limit=50&offset=0
func (h *TradeHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "wallet query parameter required")
		return
	}

	positions, err := h.trades.ListPositions(r.Context(), wallet, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed",
			slog.String("wallet", wallet),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}
	if positions == nil {
		positions = []domain.PositionWithMarket{}
	}

	writeJSON(w, http.StatusOK, listPositionsResponse{Positions: positions})
}

// claimRequest is the JSON body for claiming a position.
type claimRequest struct {
	Wallet string `json:"wallet_address"`
}

// ClaimPosition pays out a winning position.
// POST /api/positions/{id}/claim
func (h *TradeHandler) ClaimPosition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing position id")
		return
	}

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.claims.Claim(r.Context(), id, req.Wallet)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: claim failed",
			slog.String("position_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
