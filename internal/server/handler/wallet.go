package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/phamdat721101/antdle-market/internal/service"
)

// WalletService defines the methods the wallet handler requires.
type WalletService interface {
	Connect(ctx context.Context) (service.Session, error)
	Balances(ctx context.Context, walletAddr string) (map[string]float64, error)
	Swap(ctx context.Context, walletAddr, fromToken string, amount float64) (service.SwapResult, error)
}

// WalletHandler serves wallet endpoints.
type WalletHandler struct {
	wallets WalletService
	logger  *slog.Logger
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(wallets WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		wallets: wallets,
		logger:  logger,
	}
}

// Connect generates a session wallet seeded with the starting balance.
// POST /api/wallet/connect
func (h *WalletHandler) Connect(w http.ResponseWriter, r *http.Request) {
	sess, err := h.wallets.Connect(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: wallet connect failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to connect wallet")
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

// Balances returns a wallet's token balances. Tokens without a stored row
// report zero.
// GET /api/wallet/balances?wallet=0x...
func (h *WalletHandler) Balances(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "wallet query parameter required")
		return
	}

	balances, err := h.wallets.Balances(r.Context(), wallet)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: balances failed",
			slog.String("wallet", wallet),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read balances")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"wallet_address": wallet,
		"balances":       balances,
	})
}

// swapRequest is the JSON body for a token swap.
type swapRequest struct {
	Wallet    string  `json:"wallet_address"`
	FromToken string  `json:"from_token"`
	Amount    float64 `json:"amount"`
}

// Swap exchanges between the staking token and the quote token.
// POST /api/wallet/swap
func (h *WalletHandler) Swap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Wallet == "" {
		writeError(w, http.StatusBadRequest, "wallet_address is required")
		return
	}

	result, err := h.wallets.Swap(r.Context(), req.Wallet, req.FromToken, req.Amount)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: swap failed",
			slog.String("wallet", req.Wallet),
			slog.String("from_token", req.FromToken),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
