package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/income-trader/internal/modules/optimization"
	"github.com/aristath/income-trader/internal/modules/universe"
)

// PlanSnapshotJob re-solves the income plan from the current universe
// and persists the result. Scheduled nightly so the snapshot history
// tracks price updates.
type PlanSnapshotJob struct {
	service          *optimization.Service
	securityRepo     *universe.SecurityRepository
	snapshotRepo     *optimization.SnapshotRepository
	budget           float64
	maxConcentration float64
	log              zerolog.Logger
}

// PlanSnapshotConfig holds configuration for the plan snapshot job
type PlanSnapshotConfig struct {
	Service          *optimization.Service
	SecurityRepo     *universe.SecurityRepository
	SnapshotRepo     *optimization.SnapshotRepository
	Budget           float64
	MaxConcentration float64
	Log              zerolog.Logger
}

// NewPlanSnapshotJob creates a new plan snapshot job
func NewPlanSnapshotJob(cfg PlanSnapshotConfig) *PlanSnapshotJob {
	return &PlanSnapshotJob{
		service:          cfg.Service,
		securityRepo:     cfg.SecurityRepo,
		snapshotRepo:     cfg.SnapshotRepo,
		budget:           cfg.Budget,
		maxConcentration: cfg.MaxConcentration,
		log:              cfg.Log.With().Str("job", "plan_snapshot").Logger(),
	}
}

// Name returns the job name
func (j *PlanSnapshotJob) Name() string {
	return "plan_snapshot"
}

// Run solves and persists a plan for the active universe
func (j *PlanSnapshotJob) Run() error {
	securities, err := j.securityRepo.GetAllActive()
	if err != nil {
		return fmt.Errorf("failed to load universe: %w", err)
	}
	if len(securities) == 0 {
		j.log.Warn().Msg("No active securities, skipping snapshot")
		return nil
	}

	inputs := make([]optimization.SecurityInput, len(securities))
	for i, sec := range securities {
		inputs[i] = optimization.SecurityInput{
			Symbol:        sec.Symbol,
			Price:         sec.Price,
			DividendYield: sec.DividendYield,
		}
	}

	plan, err := j.service.MaximizeIncome(inputs, j.budget, j.maxConcentration)
	if err != nil {
		return fmt.Errorf("failed to solve income plan: %w", err)
	}

	if err := j.snapshotRepo.Save(plan); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	j.log.Info().
		Float64("annual_income", plan.AnnualIncome).
		Float64("invested", plan.TotalCost()).
		Msg("Plan snapshot saved")

	return nil
}
