package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phamdat721101/antdle-market/internal/domain"
)

// HistoryService defines the transaction history lookups the handler needs.
type HistoryService interface {
	ByWallet(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.ChainTransaction, error)
	ByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.ChainTransaction, error)
	ByHash(ctx context.Context, hash string) (domain.ChainTransaction, error)
}

// TransactionHandler serves transaction history endpoints.
type TransactionHandler struct {
	history HistoryService
	logger  *slog.Logger
}

// NewTransactionHandler creates a TransactionHandler.
func NewTransactionHandler(history HistoryService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		history: history,
		logger:  logger,
	}
}

// listTransactionsResponse wraps the transaction list.
type listTransactionsResponse struct {
	Transactions []domain.ChainTransaction `json:"transactions"`
}

// ListTransactions returns transactions for a wallet or a market, newest
// first.
// GET /api/transactions?wallet=0x...  or  ?market_id=...
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	wallet := q.Get("wallet")
	marketID := q.Get("market_id")

	if wallet == "" && marketID == "" {
		writeError(w, http.StatusBadRequest, "wallet or market_id query parameter required")
		return
	}

	opts := parseListOpts(r)

	var (
		txs []domain.ChainTransaction
		err error
	)
	if marketID != "" {
		txs, err = h.history.ByMarket(r.Context(), marketID, opts)
	} else {
		txs, err = h.history.ByWallet(r.Context(), wallet, opts)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list transactions failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if txs == nil {
		txs = []domain.ChainTransaction{}
	}

	writeJSON(w, http.StatusOK, listTransactionsResponse{Transactions: txs})
}

// GetTransaction returns a single transaction by its hash.
// GET /api/transactions/{hash}
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	if hash == "" {
		writeError(w, http.StatusBadRequest, "missing transaction hash")
		return
	}

	tx, err := h.history.ByHash(r.Context(), hash)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}
