package universe

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"

	"github.com/aristath/income-trader/pkg/formulas"
)

// HistoryDB provides access to per-symbol price history databases.
// Each symbol gets its own SQLite file under the history directory.
type HistoryDB struct {
	historyDir string
	log        zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(historyDir string, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		historyDir: historyDir,
		log:        log.With().Str("component", "history_db").Logger(),
	}
}

// RecordClose stores a daily closing price for a symbol.
// Re-recording the same date overwrites the previous value.
func (h *HistoryDB) RecordClose(symbol, date string, close float64) error {
	db, err := h.openHistoryDB(symbol, true)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(
		`INSERT INTO daily_prices (date, close_price) VALUES (?, ?)
			ON CONFLICT(date) DO UPDATE SET close_price = excluded.close_price`,
		date, close,
	)
	if err != nil {
		return fmt.Errorf("failed to record close for %s: %w", symbol, err)
	}

	return nil
}

// GetCloses fetches up to `limit` daily closes for a symbol, oldest first
func (h *HistoryDB) GetCloses(symbol string, limit int) ([]float64, error) {
	db, err := h.openHistoryDB(symbol, false)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil // No history recorded yet
	}
	defer db.Close()

	query := `
		SELECT close_price FROM (
			SELECT date, close_price
			FROM daily_prices
			ORDER BY date DESC
			LIMIT ?
		) ORDER BY date ASC
	`

	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily closes: %w", err)
	}
	defer rows.Close()

	var closes []float64
	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan daily close: %w", err)
		}
		closes = append(closes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily closes: %w", err)
	}

	return closes, nil
}

// SmoothedPrice returns the SMA of the last `window` closes, or nil when
// there is not enough history for the window.
func (h *HistoryDB) SmoothedPrice(symbol string, window int) (*float64, error) {
	closes, err := h.GetCloses(symbol, window)
	if err != nil {
		return nil, err
	}

	return formulas.SmoothedPrice(closes, window), nil
}

// Volatility returns annualized volatility over the last `lookback`
// closes, or nil when there is not enough history.
func (h *HistoryDB) Volatility(symbol string, lookback int) (*float64, error) {
	closes, err := h.GetCloses(symbol, lookback)
	if err != nil {
		return nil, err
	}
	if len(closes) < 2 {
		return nil, nil
	}

	vol := formulas.AnnualizedVolatility(formulas.CalculateReturns(closes))
	return &vol, nil
}

// openHistoryDB opens the history database for a symbol. With create
// false, a missing file yields (nil, nil) instead of creating one.
func (h *HistoryDB) openHistoryDB(symbol string, create bool) (*sql.DB, error) {
	// Convert symbol format: XUT.TO -> XUT_TO
	dbSymbol := strings.ReplaceAll(strings.ToUpper(symbol), ".", "_")
	dbPath := filepath.Join(h.historyDir, dbSymbol+".db")

	if !create {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, nil
		}
	} else {
		if err := os.MkdirAll(h.historyDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database for %s: %w", symbol, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database for %s: %w", symbol, err)
	}

	if create {
		_, err = db.Exec(`CREATE TABLE IF NOT EXISTS daily_prices (
			date TEXT PRIMARY KEY,
			close_price REAL NOT NULL
		)`)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create history schema for %s: %w", symbol, err)
		}
	}

	return db, nil
}
