package optimization

import (
	"database/sql"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/income-trader/internal/modules/universe"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE securities (
		symbol TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL,
		dividend_yield REAL NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE plan_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TEXT NOT NULL,
		budget REAL NOT NULL,
		max_concentration REAL NOT NULL,
		annual_income REAL NOT NULL,
		allocations TEXT NOT NULL
	)`)
	require.NoError(t, err)

	securityRepo := universe.NewSecurityRepository(db, zerolog.Nop())
	require.NoError(t, securityRepo.SeedDefaults())

	return NewHandler(
		NewService(zerolog.Nop()),
		securityRepo,
		universe.NewHistoryDB(t.TempDir(), zerolog.Nop()),
		NewSnapshotRepository(db, zerolog.Nop()),
		Defaults{Budget: 75000, MaxConcentration: 0.33, SmoothingWindow: 20},
		zerolog.Nop(),
	)
}

func TestHandleRun_DefaultsFromUniverse(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/optimizer/run", nil)
	rec := httptest.NewRecorder()
	h.HandleRun(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var plan Plan
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&plan))
	assert.Equal(t, 372.0, math.Round(plan.AnnualIncome))
	assert.Len(t, plan.Allocations, 4)
	assert.LessOrEqual(t, plan.TotalCost(), 75000+1e-6)

	// The run is persisted as a snapshot
	snapshots, err := h.snapshotRepo.ListRecent(5)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, plan.AnnualIncome, snapshots[0].AnnualIncome)
}

func TestHandleRun_ExplicitSecurities(t *testing.T) {
	h := newTestHandler(t)

	body := `{
		"budget": 10000,
		"max_concentration": 1.0,
		"securities": [{"symbol": "ONLY", "price": 10, "dividend_yield": 0.05}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/optimizer/run", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleRun(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var plan Plan
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&plan))
	require.Len(t, plan.Allocations, 1)
	assert.InDelta(t, 1000.0, plan.Allocations[0].Shares, 1e-6)
	assert.InDelta(t, 50.0, plan.AnnualIncome, 1e-6)
}

func TestHandleRun_InvalidInput(t *testing.T) {
	h := newTestHandler(t)

	body := `{"budget": -5}`
	req := httptest.NewRequest(http.MethodPost, "/api/optimizer/run", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleRun(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRun_MalformedBody(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/optimizer/run", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.HandleRun(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetStatus(t *testing.T) {
	h := newTestHandler(t)

	t.Run("before any run", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/optimizer", nil)
		rec := httptest.NewRecorder()
		h.HandleGetStatus(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var status map[string]interface{}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
		assert.Equal(t, "ready", status["status"])
		assert.Nil(t, status["last_run"])
	})

	t.Run("after a run", func(t *testing.T) {
		runReq := httptest.NewRequest(http.MethodPost, "/api/optimizer/run", nil)
		h.HandleRun(httptest.NewRecorder(), runReq)

		req := httptest.NewRequest(http.MethodGet, "/api/optimizer", nil)
		rec := httptest.NewRecorder()
		h.HandleGetStatus(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var status map[string]interface{}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
		assert.NotNil(t, status["last_run"])
		assert.NotEmpty(t, status["last_run_time"])
	})
}

func TestHandleListSnapshots(t *testing.T) {
	h := newTestHandler(t)

	t.Run("empty", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/optimizer/snapshots", nil)
		rec := httptest.NewRecorder()
		h.HandleListSnapshots(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("after runs", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			runReq := httptest.NewRequest(http.MethodPost, "/api/optimizer/run", nil)
			h.HandleRun(httptest.NewRecorder(), runReq)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/optimizer/snapshots?limit=1", nil)
		rec := httptest.NewRecorder()
		h.HandleListSnapshots(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var snapshots []Snapshot
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&snapshots))
		assert.Len(t, snapshots, 1)
	})
}
