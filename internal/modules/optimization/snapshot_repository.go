package optimization

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// SnapshotRepository persists solved plans for later inspection
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "plan_snapshots").Logger(),
	}
}

// Save stores a solved plan
func (r *SnapshotRepository) Save(plan *Plan) error {
	allocations, err := json.Marshal(plan.Allocations)
	if err != nil {
		return fmt.Errorf("failed to marshal allocations: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO plan_snapshots (created_at, budget, max_concentration, annual_income, allocations)
			VALUES (?, ?, ?, ?, ?)`,
		plan.SolvedAt.UTC().Format(time.RFC3339),
		plan.Budget,
		plan.MaxConcentration,
		plan.AnnualIncome,
		string(allocations),
	)
	if err != nil {
		return fmt.Errorf("failed to save plan snapshot: %w", err)
	}

	return nil
}

// ListRecent returns the most recent snapshots, newest first
func (r *SnapshotRepository) ListRecent(limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(
		`SELECT id, created_at, budget, max_concentration, annual_income, allocations
			FROM plan_snapshots
			ORDER BY created_at DESC, id DESC
			LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var snap Snapshot
		var createdAt, allocations string

		if err := rows.Scan(&snap.ID, &createdAt, &snap.Budget, &snap.MaxConcentration, &snap.AnnualIncome, &allocations); err != nil {
			return nil, fmt.Errorf("failed to scan plan snapshot: %w", err)
		}

		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			snap.CreatedAt = t
		}
		if err := json.Unmarshal([]byte(allocations), &snap.Allocations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal allocations: %w", err)
		}

		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plan snapshots: %w", err)
	}

	return snapshots, nil
}
