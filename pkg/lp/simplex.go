package lp

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	convexlp "gonum.org/v1/gonum/optimize/convex/lp"
)

// Solve converts the problem to gonum's standard form and runs the
// simplex method.
//
// gonum minimizes c·x subject to Ax = b, x >= 0, so each inequality row
// gets a slack variable (A = [G | I], b = rhs) and the objective is
// negated. Slack values are dropped from the returned solution.
func (p *Problem) Solve() (*Solution, error) {
	n := len(p.objective)
	m := len(p.rows)

	if n == 0 {
		return nil, fmt.Errorf("%w: no decision variables", ErrInvalidProblem)
	}
	for i, row := range p.rows {
		if len(row.coeffs) != n {
			return nil, fmt.Errorf("%w: constraint %d has %d coefficients, want %d",
				ErrInvalidProblem, i, len(row.coeffs), n)
		}
	}

	if m == 0 {
		// No rows at all: feasible at x = 0, and unbounded as soon as any
		// objective coefficient is positive.
		for _, v := range p.objective {
			if v > 0 {
				return nil, ErrUnbounded
			}
		}
		return &Solution{Objective: 0, X: make([]float64, n)}, nil
	}

	c := make([]float64, n+m)
	for j, v := range p.objective {
		c[j] = -v
	}

	a := mat.NewDense(m, n+m, nil)
	b := make([]float64, m)
	for i, row := range p.rows {
		for j, v := range row.coeffs {
			a.Set(i, j, v)
		}
		a.Set(i, n+i, 1) // slack
		b[i] = row.rhs
	}

	opt, x, err := convexlp.Simplex(c, a, b, 0, nil)
	if err != nil {
		switch {
		case errors.Is(err, convexlp.ErrInfeasible):
			return nil, ErrInfeasible
		case errors.Is(err, convexlp.ErrUnbounded):
			return nil, ErrUnbounded
		default:
			return nil, fmt.Errorf("%w: %v", ErrSolverFailure, err)
		}
	}

	sol := &Solution{
		Objective: -opt,
		X:         make([]float64, n),
	}
	copy(sol.X, x[:n])
	return sol, nil
}
