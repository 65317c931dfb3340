// Package lp builds and solves small dense linear programs.
//
// A Problem maximizes a linear objective over non-negative variables
// subject to "coefficients · x <= rhs" rows. The actual simplex work is
// delegated to gonum's optimize/convex/lp package.
package lp

import "errors"

// Sentinel errors returned by Solve. Callers branch with errors.Is and
// must not read a Solution unless the error is nil.
var (
	// ErrInvalidProblem means the problem is malformed (no objective, or a
	// constraint row whose width does not match the variable count).
	ErrInvalidProblem = errors.New("lp: invalid problem")

	// ErrInfeasible means no point satisfies all constraints.
	ErrInfeasible = errors.New("lp: problem is infeasible")

	// ErrUnbounded means the objective can grow without limit.
	ErrUnbounded = errors.New("lp: problem is unbounded")

	// ErrSolverFailure means the simplex routine terminated without
	// reaching a definitive status (e.g. a singular basis).
	ErrSolverFailure = errors.New("lp: solver failure")
)

// Problem is a linear program in the form
//
//	maximize  objective · x
//	s.t.      rows[i].coeffs · x <= rows[i].rhs   for each row
//	          x >= 0
//
// Variables are identified by position in the objective slice.
type Problem struct {
	objective []float64
	rows      []constraintRow
}

type constraintRow struct {
	coeffs []float64
	rhs    float64
}

// NewProblem creates a problem with one variable per objective coefficient.
func NewProblem(objective []float64) *Problem {
	obj := make([]float64, len(objective))
	copy(obj, objective)
	return &Problem{objective: obj}
}

// NumVariables returns the number of decision variables.
func (p *Problem) NumVariables() int {
	return len(p.objective)
}

// NumConstraints returns the number of inequality rows added so far.
func (p *Problem) NumConstraints() int {
	return len(p.rows)
}

// AddConstraint appends the row "coeffs · x <= rhs". The coefficient
// slice is copied, so callers may reuse their buffer.
func (p *Problem) AddConstraint(coeffs []float64, rhs float64) {
	c := make([]float64, len(coeffs))
	copy(c, coeffs)
	p.rows = append(p.rows, constraintRow{coeffs: c, rhs: rhs})
}

// Solution holds the optimal point of a solved problem.
type Solution struct {
	// Objective is the maximized objective value at X.
	Objective float64

	// X contains the optimal value of each decision variable, in the
	// order the objective coefficients were given.
	X []float64
}

// Value returns the solution value for a variable by index, or 0 when
// the index is out of range.
func (s *Solution) Value(index int) float64 {
	if index < 0 || index >= len(s.X) {
		return 0
	}
	return s.X[index]
}
