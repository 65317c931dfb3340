package optimization

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/income-trader/internal/modules/universe"
	"github.com/aristath/income-trader/pkg/lp"
)

// planCache stores the last solved plan for the status endpoint.
type planCache struct {
	mu       sync.RWMutex
	lastPlan *Plan
}

// Defaults holds the optimizer parameters used when a request omits them.
type Defaults struct {
	Budget           float64
	MaxConcentration float64
	SmoothingWindow  int
}

// Handler handles HTTP requests for the optimization module.
type Handler struct {
	service      *Service
	securityRepo *universe.SecurityRepository
	historyDB    *universe.HistoryDB
	snapshotRepo *SnapshotRepository
	defaults     Defaults
	cache        *planCache
	log          zerolog.Logger
}

// NewHandler creates a new optimization handler.
func NewHandler(
	service *Service,
	securityRepo *universe.SecurityRepository,
	historyDB *universe.HistoryDB,
	snapshotRepo *SnapshotRepository,
	defaults Defaults,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:      service,
		securityRepo: securityRepo,
		historyDB:    historyDB,
		snapshotRepo: snapshotRepo,
		defaults:     defaults,
		cache:        &planCache{},
		log:          log.With().Str("component", "optimizer_handler").Logger(),
	}
}

// runRequest is the body of POST /api/optimizer/run. All fields are
// optional; securities defaults to the active universe.
type runRequest struct {
	Budget           *float64        `json:"budget,omitempty"`
	MaxConcentration *float64        `json:"max_concentration,omitempty"`
	UseSmoothed      bool            `json:"use_smoothed_prices,omitempty"`
	Securities       []SecurityInput `json:"securities,omitempty"`
}

// HandleGetStatus handles GET /api/optimizer - returns defaults and the last run.
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	h.cache.mu.RLock()
	defer h.cache.mu.RUnlock()

	response := map[string]interface{}{
		"settings": map[string]interface{}{
			"default_budget":    h.defaults.Budget,
			"max_concentration": h.defaults.MaxConcentration,
			"smoothing_window":  h.defaults.SmoothingWindow,
		},
		"last_run": nil,
		"status":   "ready",
	}

	if h.cache.lastPlan != nil {
		response["last_run"] = h.cache.lastPlan
		response["last_run_time"] = h.cache.lastPlan.SolvedAt.Format(time.RFC3339)
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleRun handles POST /api/optimizer/run - solves a plan and returns it.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	budget := h.defaults.Budget
	if req.Budget != nil {
		budget = *req.Budget
	}
	maxConcentration := h.defaults.MaxConcentration
	if req.MaxConcentration != nil {
		maxConcentration = *req.MaxConcentration
	}

	securities := req.Securities
	if len(securities) == 0 {
		var err error
		securities, err = h.universeInputs(req.UseSmoothed)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to load universe")
			h.writeError(w, http.StatusInternalServerError, "Failed to load universe")
			return
		}
		if len(securities) == 0 {
			h.writeError(w, http.StatusBadRequest, "No active securities in universe")
			return
		}
	}

	h.log.Info().
		Int("securities", len(securities)).
		Float64("budget", budget).
		Float64("max_concentration", maxConcentration).
		Msg("Running income optimization")

	plan, err := h.service.MaximizeIncome(securities, budget, maxConcentration)
	if err != nil {
		h.writeSolveError(w, err)
		return
	}

	h.cache.mu.Lock()
	h.cache.lastPlan = plan
	h.cache.mu.Unlock()

	if err := h.snapshotRepo.Save(plan); err != nil {
		// The plan is still good; persistence is best effort here.
		h.log.Warn().Err(err).Msg("Failed to save plan snapshot")
	}

	h.writeJSON(w, http.StatusOK, plan)
}

// HandleListSnapshots handles GET /api/optimizer/snapshots
func (h *Handler) HandleListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	snapshots, err := h.snapshotRepo.ListRecent(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list snapshots")
		h.writeError(w, http.StatusInternalServerError, "Failed to list snapshots")
		return
	}

	if snapshots == nil {
		snapshots = []Snapshot{}
	}

	h.writeJSON(w, http.StatusOK, snapshots)
}

// universeInputs builds solver inputs from the active universe,
// optionally preferring the smoothed history price over the stored one.
func (h *Handler) universeInputs(useSmoothed bool) ([]SecurityInput, error) {
	securities, err := h.securityRepo.GetAllActive()
	if err != nil {
		return nil, err
	}

	inputs := make([]SecurityInput, 0, len(securities))
	for _, sec := range securities {
		price := sec.Price

		if useSmoothed {
			smoothed, err := h.historyDB.SmoothedPrice(sec.Symbol, h.defaults.SmoothingWindow)
			if err != nil {
				h.log.Warn().Err(err).Str("symbol", sec.Symbol).Msg("Failed to read smoothed price")
			} else if smoothed != nil && *smoothed > 0 {
				price = *smoothed
			}
		}

		inputs = append(inputs, SecurityInput{
			Symbol:        sec.Symbol,
			Price:         price,
			DividendYield: sec.DividendYield,
		})
	}

	return inputs, nil
}

// writeSolveError maps the optimizer error taxonomy onto HTTP statuses
func (h *Handler) writeSolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, lp.ErrInfeasible), errors.Is(err, lp.ErrUnbounded):
		h.log.Warn().Err(err).Msg("Optimization has no optimal solution")
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, lp.ErrSolverFailure):
		h.log.Error().Err(err).Msg("Solver failure")
		h.writeError(w, http.StatusBadGateway, "Solver failure")
	default:
		h.log.Error().Err(err).Msg("Optimization failed")
		h.writeError(w, http.StatusInternalServerError, "Optimization failed")
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
