package universe

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Symbol validation pattern: ticker plus optional exchange suffix (XUT.TO)
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,10}(\.[A-Z]{1,4})?$`)

// isSymbol checks if an identifier is a valid ticker symbol
func isSymbol(identifier string) bool {
	identifier = strings.TrimSpace(strings.ToUpper(identifier))
	return symbolPattern.MatchString(identifier)
}

// Handlers contains HTTP handlers for the universe API
type Handlers struct {
	securityRepo    *SecurityRepository
	historyDB       *HistoryDB
	smoothingWindow int
	log             zerolog.Logger
}

// NewHandlers creates a new universe handlers instance
func NewHandlers(securityRepo *SecurityRepository, historyDB *HistoryDB, smoothingWindow int, log zerolog.Logger) *Handlers {
	return &Handlers{
		securityRepo:    securityRepo,
		historyDB:       historyDB,
		smoothingWindow: smoothingWindow,
		log:             log.With().Str("module", "universe_handlers").Logger(),
	}
}

// HandleGetSecurities returns all active securities with history stats
// GET /api/securities
func (h *Handlers) HandleGetSecurities(w http.ResponseWriter, r *http.Request) {
	securities, err := h.securityRepo.GetAllActive()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch securities")
		http.Error(w, "Failed to fetch securities", http.StatusInternalServerError)
		return
	}

	response := make([]SecurityWithStats, 0, len(securities))
	for _, sec := range securities {
		item := SecurityWithStats{Security: sec}

		if smoothed, err := h.historyDB.SmoothedPrice(sec.Symbol, h.smoothingWindow); err == nil {
			item.SmoothedPrice = smoothed
		} else {
			h.log.Warn().Err(err).Str("symbol", sec.Symbol).Msg("Failed to read price history")
		}
		if vol, err := h.historyDB.Volatility(sec.Symbol, 252); err == nil {
			item.Volatility = vol
		}

		response = append(response, item)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response) // Ignore encode error - already committed response
}

// HandleGetSecurity returns a single security by symbol
// GET /api/securities/{symbol}
func (h *Handlers) HandleGetSecurity(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(strings.ToUpper(chi.URLParam(r, "symbol")))

	if !isSymbol(symbol) {
		http.Error(w, "Invalid symbol format", http.StatusBadRequest)
		return
	}

	security, err := h.securityRepo.GetBySymbol(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to fetch security")
		http.Error(w, "Failed to fetch security", http.StatusInternalServerError)
		return
	}
	if security == nil {
		http.Error(w, "Security not found", http.StatusNotFound)
		return
	}

	item := SecurityWithStats{Security: *security}
	if smoothed, err := h.historyDB.SmoothedPrice(symbol, h.smoothingWindow); err == nil {
		item.SmoothedPrice = smoothed
	}
	if vol, err := h.historyDB.Volatility(symbol, 252); err == nil {
		item.Volatility = vol
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(item)
}

// HandleUpsertSecurity creates or updates a security
// POST /api/securities
func (h *Handlers) HandleUpsertSecurity(w http.ResponseWriter, r *http.Request) {
	var sec Security
	if err := json.NewDecoder(r.Body).Decode(&sec); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sec.Symbol = strings.TrimSpace(strings.ToUpper(sec.Symbol))
	if !isSymbol(sec.Symbol) {
		http.Error(w, "Invalid symbol format", http.StatusBadRequest)
		return
	}
	if sec.Price <= 0 {
		http.Error(w, "Price must be positive", http.StatusBadRequest)
		return
	}
	if sec.DividendYield < 0 {
		http.Error(w, "Dividend yield must not be negative", http.StatusBadRequest)
		return
	}

	if err := h.securityRepo.Save(sec); err != nil {
		h.log.Error().Err(err).Str("symbol", sec.Symbol).Msg("Failed to save security")
		http.Error(w, "Failed to save security", http.StatusInternalServerError)
		return
	}

	h.log.Info().Str("symbol", sec.Symbol).Msg("Security saved")

	response := map[string]string{
		"message": fmt.Sprintf("Security %s saved", sec.Symbol),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// HandleUpdatePrice updates a security's price and records it in history
// PUT /api/securities/{symbol}/price
func (h *Handlers) HandleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(strings.ToUpper(chi.URLParam(r, "symbol")))

	if !isSymbol(symbol) {
		http.Error(w, "Invalid symbol format", http.StatusBadRequest)
		return
	}

	var body struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Price <= 0 {
		http.Error(w, "Price must be positive", http.StatusBadRequest)
		return
	}

	if err := h.securityRepo.UpdatePrice(symbol, body.Price); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to update price")
		http.Error(w, "Failed to update price", http.StatusInternalServerError)
		return
	}

	// Record the new price as today's close so smoothing picks it up
	today := time.Now().UTC().Format("2006-01-02")
	if err := h.historyDB.RecordClose(symbol, today, body.Price); err != nil {
		h.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to record close in history")
	}

	response := map[string]interface{}{
		"symbol": symbol,
		"price":  body.Price,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}
