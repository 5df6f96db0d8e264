package wallets_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/prepally/credits-engine/pkg/handlers/wallets"
	"github.com/prepally/credits-engine/pkg/ledger"
	"github.com/prepally/credits-engine/pkg/models"
	"github.com/prepally/credits-engine/pkg/storage"
	"github.com/prepally/credits-engine/pkg/storage/mocks"
)

func newRouter(mockStorage *mocks.Storage) *chi.Mux {
	h := wallets.NewWalletsHandler(mockStorage, ledger.NewEngine(mockStorage, nil))
	r := chi.NewRouter()
	r.Get("/wallets/{userID}", h.GetWallet)
	r.Get("/wallets/{userID}/ledger", h.GetHistory)
	return r
}

func TestGetWallet(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockStorage := new(mocks.Storage)
		mockStorage.On("GetOrCreateWallet", mock.Anything, "user-a").
			Return(&models.Wallet{UserID: "user-a", Balance: 7}, nil)

		req := httptest.NewRequest(http.MethodGet, "/wallets/user-a", nil)
		rr := httptest.NewRecorder()
		newRouter(mockStorage).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var wallet models.Wallet
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &wallet))
		assert.Equal(t, int64(7), wallet.Balance)
		mockStorage.AssertExpectations(t)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockStorage := new(mocks.Storage)
		mockStorage.On("GetOrCreateWallet", mock.Anything, "user-a").
			Return(nil, errors.New("dynamo down"))

		req := httptest.NewRequest(http.MethodGet, "/wallets/user-a", nil)
		rr := httptest.NewRecorder()
		newRouter(mockStorage).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestGetHistory(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		mockStorage := new(mocks.Storage)
		mockStorage.On("ListLedgerEntries", mock.Anything, "user-a", storage.ListOptions{Limit: 20}).
			Return([]models.LedgerEntry{{ID: "e1", Type: models.PURCHASE}}, nil)

		req := httptest.NewRequest(http.MethodGet, "/wallets/user-a/ledger", nil)
		rr := httptest.NewRecorder()
		newRouter(mockStorage).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp wallets.HistoryResponse
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Len(t, resp.Entries, 1)
		assert.Equal(t, "user-a", resp.UserID)
		mockStorage.AssertExpectations(t)
	})

	t.Run("Query Parameters", func(t *testing.T) {
		mockStorage := new(mocks.Storage)
		mockStorage.On("ListLedgerEntries", mock.Anything, "user-a",
			storage.ListOptions{Limit: 5, Offset: 10, Type: models.SPEND}).
			Return([]models.LedgerEntry{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/wallets/user-a/ledger?limit=5&offset=10&type=SPEND", nil)
		rr := httptest.NewRecorder()
		newRouter(mockStorage).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockStorage.AssertExpectations(t)
	})

	t.Run("Limit Capped", func(t *testing.T) {
		mockStorage := new(mocks.Storage)
		mockStorage.On("ListLedgerEntries", mock.Anything, "user-a", storage.ListOptions{Limit: 100}).
			Return([]models.LedgerEntry{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/wallets/user-a/ledger?limit=5000", nil)
		rr := httptest.NewRecorder()
		newRouter(mockStorage).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockStorage.AssertExpectations(t)
	})

	t.Run("Bad Limit", func(t *testing.T) {
		mockStorage := new(mocks.Storage)

		req := httptest.NewRequest(http.MethodGet, "/wallets/user-a/ledger?limit=abc", nil)
		rr := httptest.NewRecorder()
		newRouter(mockStorage).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockStorage.AssertNotCalled(t, "ListLedgerEntries", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Negative Offset", func(t *testing.T) {
		mockStorage := new(mocks.Storage)

		req := httptest.NewRequest(http.MethodGet, "/wallets/user-a/ledger?offset=-1", nil)
		rr := httptest.NewRecorder()
		newRouter(mockStorage).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
