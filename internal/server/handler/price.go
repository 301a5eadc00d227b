package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// PriceService defines the price lookups the handler needs.
type PriceService interface {
	Latest(ctx context.Context, assetName string) (domain.PricePoint, error)
	LatestMany(ctx context.Context, assetNames []string) (map[string]float64, error)
}

// PriceHandler serves price feed endpoints.
type PriceHandler struct {
	prices PriceService
	logger *slog.Logger
}

// NewPriceHandler creates a PriceHandler.
func NewPriceHandler(prices PriceService, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{
		prices: prices,
		logger: logger,
	}
}

// ListPrices returns the latest price for each requested asset.
// GET /api/prices?assets=BTC,ETH
func (h *PriceHandler) ListPrices(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("assets")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "assets query parameter required")
		return
	}

	var assets []string
	for _, a := range strings.Split(raw, ",") {
		if a = strings.TrimSpace(a); a != "" {
			assets = append(assets, a)
		}
	}

	prices, err := h.prices.LatestMany(r.Context(), assets)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list prices failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read prices")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"prices": prices})
}

// GetPrice returns the latest recorded price for one asset.
// GET /api/prices/{asset}
func (h *PriceHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	asset := r.PathValue("asset")
	if asset == "" {
		writeError(w, http.StatusBadRequest, "missing asset name")
		return
	}

	p, err := h.prices.Latest(r.Context(), asset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}
