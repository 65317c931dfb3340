package universe

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SecurityRepository handles security database operations
type SecurityRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSecurityRepository creates a new security repository
func NewSecurityRepository(db *sql.DB, log zerolog.Logger) *SecurityRepository {
	return &SecurityRepository{
		db:  db,
		log: log.With().Str("repo", "security").Logger(),
	}
}

// GetBySymbol returns a security by symbol, or nil when not found
func (r *SecurityRepository) GetBySymbol(symbol string) (*Security, error) {
	query := `SELECT symbol, name, price, dividend_yield, active, updated_at
		FROM securities WHERE symbol = ?`

	rows, err := r.db.Query(query, strings.ToUpper(strings.TrimSpace(symbol)))
	if err != nil {
		return nil, fmt.Errorf("failed to query security by symbol: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil // Security not found
	}

	security, err := scanSecurity(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan security: %w", err)
	}

	return &security, nil
}

// GetAllActive returns all active securities ordered by symbol
func (r *SecurityRepository) GetAllActive() ([]Security, error) {
	query := `SELECT symbol, name, price, dividend_yield, active, updated_at
		FROM securities WHERE active = 1 ORDER BY symbol`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active securities: %w", err)
	}
	defer rows.Close()

	var securities []Security
	for rows.Next() {
		security, err := scanSecurity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}
		securities = append(securities, security)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating securities: %w", err)
	}

	return securities, nil
}

// Save inserts or replaces a security
func (r *SecurityRepository) Save(sec Security) error {
	query := `INSERT INTO securities (symbol, name, price, dividend_yield, active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			dividend_yield = excluded.dividend_yield,
			active = excluded.active,
			updated_at = excluded.updated_at`

	_, err := r.db.Exec(query,
		strings.ToUpper(strings.TrimSpace(sec.Symbol)),
		sec.Name,
		sec.Price,
		sec.DividendYield,
		boolToInt(sec.Active),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save security: %w", err)
	}

	return nil
}

// UpdatePrice updates the stored price for a symbol
func (r *SecurityRepository) UpdatePrice(symbol string, price float64) error {
	if price <= 0 {
		return fmt.Errorf("price must be positive, got %f", price)
	}

	result, err := r.db.Exec(
		`UPDATE securities SET price = ?, updated_at = ? WHERE symbol = ?`,
		price,
		time.Now().UTC().Format(time.RFC3339),
		strings.ToUpper(strings.TrimSpace(symbol)),
	)
	if err != nil {
		return fmt.Errorf("failed to update price: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("security %s not found", symbol)
	}

	return nil
}

// SeedDefaults inserts the default universe for symbols not present yet
func (r *SecurityRepository) SeedDefaults() error {
	for _, sec := range DefaultSecurities {
		existing, err := r.GetBySymbol(sec.Symbol)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		if err := r.Save(sec); err != nil {
			return err
		}
		r.log.Info().Str("symbol", sec.Symbol).Msg("Seeded security")
	}

	return nil
}

// scanSecurity scans a security from the current row
func scanSecurity(rows *sql.Rows) (Security, error) {
	var sec Security
	var active int
	var updatedAt string

	if err := rows.Scan(&sec.Symbol, &sec.Name, &sec.Price, &sec.DividendYield, &active, &updatedAt); err != nil {
		return Security{}, err
	}

	sec.Active = active != 0
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		sec.UpdatedAt = t
	}

	return sec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
