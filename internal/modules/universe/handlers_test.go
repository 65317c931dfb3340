package universe

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*chi.Mux, *SecurityRepository) {
	t.Helper()

	repo := NewSecurityRepository(newTestDB(t), zerolog.Nop())
	require.NoError(t, repo.SeedDefaults())

	handlers := NewHandlers(repo, NewHistoryDB(t.TempDir(), zerolog.Nop()), 20, zerolog.Nop())

	r := chi.NewRouter()
	r.Get("/securities", handlers.HandleGetSecurities)
	r.Post("/securities", handlers.HandleUpsertSecurity)
	r.Get("/securities/{symbol}", handlers.HandleGetSecurity)
	r.Put("/securities/{symbol}/price", handlers.HandleUpdatePrice)

	return r, repo
}

func TestHandleGetSecurities(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/securities", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var securities []SecurityWithStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&securities))
	assert.Len(t, securities, len(DefaultSecurities))

	// No price history recorded, so history stats are absent
	for _, sec := range securities {
		assert.Nil(t, sec.SmoothedPrice)
		assert.Nil(t, sec.Volatility)
	}
}

func TestHandleGetSecurity(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/securities/XUT.TO", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var sec SecurityWithStats
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&sec))
		assert.Equal(t, "XUT.TO", sec.Symbol)
		assert.Equal(t, 26.80, sec.Price)
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/securities/NOPE.TO", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid symbol", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/securities/XUT.TORONTO", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleUpsertSecurity(t *testing.T) {
	router, repo := newTestRouter(t)

	t.Run("creates a security", func(t *testing.T) {
		body := `{"symbol": "ZWC.TO", "name": "Covered Call ETF", "price": 17.25, "dividend_yield": 0.066, "active": true}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/securities", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)

		got, err := repo.GetBySymbol("ZWC.TO")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 17.25, got.Price)
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		body := `{"symbol": "BAD.TO", "price": 0, "dividend_yield": 0.05}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/securities", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects negative yield", func(t *testing.T) {
		body := `{"symbol": "BAD.TO", "price": 10, "dividend_yield": -0.05}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/securities", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleUpdatePrice(t *testing.T) {
	router, repo := newTestRouter(t)

	t.Run("updates the stored price", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/securities/FIE.TO/price", strings.NewReader(`{"price": 6.50}`)))

		require.Equal(t, http.StatusOK, rec.Code)

		got, err := repo.GetBySymbol("FIE.TO")
		require.NoError(t, err)
		assert.Equal(t, 6.50, got.Price)
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/securities/FIE.TO/price", strings.NewReader(`{"price": -1}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
