package optimization

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/income-trader/pkg/lp"
)

// ErrInvalidInput means the solve request was malformed and was rejected
// before the solver ran.
var ErrInvalidInput = errors.New("optimization: invalid input")

// Service maximizes annual dividend income over a security universe.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new optimization service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "optimization").Logger(),
	}
}

// MaximizeIncome chooses non-negative share quantities that maximize
// total annual dividend income, subject to the total budget and a
// per-security concentration cap:
//
//	maximize   sum_i yield_i * shares_i
//	s.t.       sum_i price_i * shares_i <= budget
//	           price_i * shares_i <= budget * maxConcentration  for each i
//	           shares_i >= 0
//
// Solver errors propagate unrecovered: lp.ErrInfeasible, lp.ErrUnbounded
// and lp.ErrSolverFailure are all inspectable with errors.Is.
func (s *Service) MaximizeIncome(securities []SecurityInput, budget, maxConcentration float64) (*Plan, error) {
	if err := validateInputs(securities, budget, maxConcentration); err != nil {
		return nil, err
	}

	// With no money the origin is the only feasible point; skip the solver.
	if budget == 0 {
		return s.buildPlan(securities, make([]float64, len(securities)), 0, budget, maxConcentration), nil
	}

	yields := make([]float64, len(securities))
	prices := make([]float64, len(securities))
	for i, sec := range securities {
		yields[i] = sec.DividendYield
		prices[i] = sec.Price
	}

	problem := lp.NewProblem(yields)
	problem.AddConstraint(prices, budget)

	// One concentration cap per security. The matching lower bound
	// (price_i * shares_i >= 0) is already implied by shares_i >= 0.
	limit := budget * maxConcentration
	for i, price := range prices {
		row := make([]float64, len(prices))
		row[i] = price
		problem.AddConstraint(row, limit)
	}

	start := time.Now()
	sol, err := problem.Solve()
	if err != nil {
		return nil, fmt.Errorf("income maximization failed: %w", err)
	}

	s.log.Debug().
		Int("securities", len(securities)).
		Float64("budget", budget).
		Float64("income", sol.Objective).
		Dur("elapsed", time.Since(start)).
		Msg("Solved income plan")

	return s.buildPlan(securities, sol.X, sol.Objective, budget, maxConcentration), nil
}

// validateInputs rejects malformed requests before the solver is invoked
func validateInputs(securities []SecurityInput, budget, maxConcentration float64) error {
	if len(securities) == 0 {
		return fmt.Errorf("%w: no securities", ErrInvalidInput)
	}
	if budget < 0 {
		return fmt.Errorf("%w: budget %f is negative", ErrInvalidInput, budget)
	}
	if maxConcentration <= 0 {
		return fmt.Errorf("%w: max concentration %f must be positive", ErrInvalidInput, maxConcentration)
	}
	for _, sec := range securities {
		if sec.Price <= 0 {
			return fmt.Errorf("%w: %s price %f must be positive", ErrInvalidInput, sec.Symbol, sec.Price)
		}
		if sec.DividendYield < 0 {
			return fmt.Errorf("%w: %s dividend yield %f is negative", ErrInvalidInput, sec.Symbol, sec.DividendYield)
		}
	}
	return nil
}

func (s *Service) buildPlan(securities []SecurityInput, shares []float64, income, budget, maxConcentration float64) *Plan {
	allocations := make([]Allocation, len(securities))
	for i, sec := range securities {
		cost := sec.Price * shares[i]

		weight := 0.0
		if budget > 0 {
			weight = cost / budget
		}

		allocations[i] = Allocation{
			Symbol:        sec.Symbol,
			Shares:        shares[i],
			WholeShares:   int64(math.Round(shares[i])),
			Cost:          cost,
			Weight:        weight,
			DividendYield: sec.DividendYield,
		}
	}

	return &Plan{
		AnnualIncome:     income,
		Budget:           budget,
		MaxConcentration: maxConcentration,
		Allocations:      allocations,
		SolvedAt:         time.Now().UTC(),
	}
}
