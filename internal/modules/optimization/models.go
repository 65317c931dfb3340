package optimization

import "time"

// SecurityInput is one security as seen by the optimizer: a share price
// and the annual dividend paid per share, as a fraction.
type SecurityInput struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	DividendYield float64 `json:"dividend_yield"`
}

// Allocation is one security's slice of a solved plan.
type Allocation struct {
	Symbol        string  `json:"symbol"`
	Shares        float64 `json:"shares"`
	WholeShares   int64   `json:"whole_shares"` // Display rounding only, not re-optimized
	Cost          float64 `json:"cost"`         // Price * Shares
	Weight        float64 `json:"weight"`       // Cost / Budget
	DividendYield float64 `json:"dividend_yield"`
}

// Plan is a solved income-maximizing allocation. Immutable once built.
type Plan struct {
	AnnualIncome     float64      `json:"annual_income"`
	Budget           float64      `json:"budget"`
	MaxConcentration float64      `json:"max_concentration"`
	Allocations      []Allocation `json:"allocations"`
	SolvedAt         time.Time    `json:"solved_at"`
}

// TotalCost returns the invested amount across all allocations.
func (p *Plan) TotalCost() float64 {
	var total float64
	for _, a := range p.Allocations {
		total += a.Cost
	}
	return total
}

// Shares returns the raw share quantities in allocation order.
func (p *Plan) Shares() []float64 {
	shares := make([]float64, len(p.Allocations))
	for i, a := range p.Allocations {
		shares[i] = a.Shares
	}
	return shares
}

// Snapshot is a persisted plan, as stored by SnapshotRepository.
type Snapshot struct {
	ID               int64        `json:"id"`
	CreatedAt        time.Time    `json:"created_at"`
	Budget           float64      `json:"budget"`
	MaxConcentration float64      `json:"max_concentration"`
	AnnualIncome     float64      `json:"annual_income"`
	Allocations      []Allocation `json:"allocations"`
}
