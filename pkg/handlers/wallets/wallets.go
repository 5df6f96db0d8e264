package wallets

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/prepally/credits-engine/pkg/ledger"
	"github.com/prepally/credits-engine/pkg/models"
	"github.com/prepally/credits-engine/pkg/storage"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// WalletsHandler holds the dependencies for wallet-related handlers.
type WalletsHandler struct {
	Store  storage.WalletStore
	Engine *ledger.Engine
}

// NewWalletsHandler creates a new WalletsHandler.
func NewWalletsHandler(store storage.WalletStore, engine *ledger.Engine) *WalletsHandler {
	return &WalletsHandler{Store: store, Engine: engine}
}

// GetWallet handles the logic for retrieving a user's wallet. Wallets are
// created lazily, so the first read materializes an empty one.
func (h *WalletsHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	wallet, err := h.Store.GetOrCreateWallet(r.Context(), userID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve wallet: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// HistoryResponse is the paginated ledger listing body.
type HistoryResponse struct {
	UserID  string               `json:"user_id"`
	Entries []models.LedgerEntry `json:"entries"`
	Limit   int32                `json:"limit"`
	Offset  int32                `json:"offset"`
}

// GetHistory handles the logic for listing a user's ledger entries, newest
// first, with limit/offset/type query parameters.
func (h *WalletsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	opts := storage.ListOptions{Limit: defaultHistoryLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		opts.Limit = int32(n)
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "offset must be a non-negative integer", http.StatusBadRequest)
			return
		}
		opts.Offset = int32(n)
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		opts.Type = models.LedgerEntryType(raw)
	}

	entries, err := h.Engine.GetTransactionHistory(r.Context(), userID, opts)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve ledger: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{
		UserID:  userID,
		Entries: entries,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}
