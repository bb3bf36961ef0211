// Package domain contains the pure data model for the rebalancing engine.
// No infrastructure dependencies belong here - every type is a value object
// created fresh per planning call and never mutated after construction.
package domain

import (
	"math"
	"sort"
)

// WeightTolerance is the tolerance used when checking that target weights
// sum to 1.0.
const WeightTolerance = 1e-6

// Action is the side of a trade.
type Action string

const (
	// ActionBuy increases a position.
	ActionBuy Action = "BUY"
	// ActionSell decreases a position.
	ActionSell Action = "SELL"
)

// Position is a single holding. AverageCost is informational only and plays
// no part in rebalancing math.
type Position struct {
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	AverageCost float64 `json:"average_cost,omitempty"`
}

// Portfolio is a set of positions, unique by symbol. Zero-quantity positions
// are legal - they mark a symbol as eligible for a category without holding it.
type Portfolio struct {
	BaseCurrency string     `json:"base_currency,omitempty"`
	Positions    []Position `json:"positions"`
}

// Validate checks the portfolio invariants: no duplicate symbols, no
// negative quantities.
func (p Portfolio) Validate() error {
	seen := make(map[string]bool, len(p.Positions))
	for _, pos := range p.Positions {
		if pos.Symbol == "" {
			return &InvalidPortfolioError{Reason: "position with empty symbol"}
		}
		if seen[pos.Symbol] {
			return &InvalidPortfolioError{Reason: "duplicate symbol: " + pos.Symbol}
		}
		seen[pos.Symbol] = true
		if pos.Quantity < 0 {
			return &InvalidPortfolioError{Reason: "negative quantity for " + pos.Symbol}
		}
	}
	return nil
}

// Symbols returns the portfolio's symbols in ascending order.
func (p Portfolio) Symbols() []string {
	symbols := make([]string, 0, len(p.Positions))
	for _, pos := range p.Positions {
		symbols = append(symbols, pos.Symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Quote is a point-in-time price for a symbol.
type Quote struct {
	Price    float64 `json:"price"`
	Currency string  `json:"currency,omitempty"`
}

// QuoteSet is an immutable price snapshot keyed by symbol, supplied once per
// planning call. The engine never reads a live feed.
type QuoteSet map[string]Quote

// TargetAllocation maps a symbol or category to its desired weight.
type TargetAllocation map[string]float64

// Validate checks that all weights are non-negative and that they sum to 1.0
// within WeightTolerance.
func (t TargetAllocation) Validate() error {
	if len(t) == 0 {
		return &InvalidTargetError{Reason: "no target weights supplied"}
	}
	sum := 0.0
	for key, weight := range t {
		if weight < 0 {
			return &InvalidTargetError{Reason: "negative weight for " + key}
		}
		if weight > 1 {
			return &InvalidTargetError{Reason: "weight above 1.0 for " + key}
		}
		sum += weight
	}
	if math.Abs(sum-1.0) > WeightTolerance {
		return &InvalidTargetError{Reason: "weights do not sum to 1.0"}
	}
	return nil
}

// Keys returns the target keys in ascending order.
func (t TargetAllocation) Keys() []string {
	keys := make([]string, 0, len(t))
	for key := range t {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// CategoryMap maps a symbol to its style category (many-to-one). When
// present, targets are interpreted at category granularity.
type CategoryMap map[string]string

// Constraints bound how much a plan may trade.
type Constraints struct {
	// MaxTurnover is the fraction of total portfolio value that may be
	// traded, in [0, 1].
	MaxTurnover float64 `json:"max_turnover"`
	// MinTradeValue is the absolute currency floor below which a trade is
	// discarded.
	MinTradeValue float64 `json:"min_trade_value"`
}

// Validate checks the constraint bounds.
func (c Constraints) Validate() error {
	if c.MaxTurnover < 0 || c.MaxTurnover > 1 {
		return &InvalidConstraintError{Reason: "max_turnover must be in [0, 1]"}
	}
	if c.MinTradeValue < 0 {
		return &InvalidConstraintError{Reason: "min_trade_value must be >= 0"}
	}
	return nil
}

// Trade is a single buy or sell order in the final plan. Never mutated once
// emitted.
type Trade struct {
	Symbol         string  `json:"symbol"`
	Action         Action  `json:"action"`
	Quantity       float64 `json:"quantity"`
	EstimatedPrice float64 `json:"estimated_price"`
	EstimatedValue float64 `json:"estimated_value"`
	Reason         string  `json:"reason,omitempty"`
}

// RebalancePlan is the immutable result of a planning call. Trades are
// ordered SELL before BUY, descending estimated value within each group.
type RebalancePlan struct {
	Trades                   []Trade            `json:"trades"`
	TotalValueBefore         float64            `json:"total_value_before"`
	ProjectedTurnover        float64            `json:"projected_turnover"`
	ProjectedAllocationAfter map[string]float64 `json:"projected_allocation_after"`
}
