// Package constraints filters and scales candidate trades so the final
// plan respects the minimum trade value and the turnover budget.
package constraints

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/atlasfin/rebalancer/internal/domain"
	"github.com/atlasfin/rebalancer/internal/modules/synthesis"
)

// deviationTie is the tolerance under which two candidates count as having
// the same absolute deviation. Equal-deviation candidates are admitted and
// scaled as one group so a sell/buy pair correcting the same misallocation
// stays balanced.
const deviationTie = 1e-9

// FilteredTrade records a candidate that did not survive enforcement,
// with the reason it was dropped.
type FilteredTrade struct {
	Candidate synthesis.Candidate
	Reason    string
}

// Enforcer applies trade-level constraints
type Enforcer struct {
	log zerolog.Logger
}

// NewEnforcer creates a new constraint enforcer
func NewEnforcer(log zerolog.Logger) *Enforcer {
	return &Enforcer{
		log: log.With().Str("component", "constraint_enforcer").Logger(),
	}
}

// Enforce filters candidates against the constraints and returns the final
// trades, the projected turnover of that final set, and the candidates that
// were dropped.
//
// Dropped trades are not redistributed - their gap stays unfilled and shows
// up as residual deviation in the plan's projected allocation.
//
// When the surviving trades exceed the turnover budget, candidates are
// ranked by absolute deviation descending (symbol ascending on ties) and
// admitted greedily, largest misallocation first. The first candidate group
// that would overflow the budget is scaled down proportionally to exactly
// fill it; members whose scaled value falls under the minimum trade value
// are dropped, as is everything ranked after the group.
func (e *Enforcer) Enforce(
	candidates []synthesis.Candidate,
	totalValue float64,
	c domain.Constraints,
) ([]domain.Trade, float64, []FilteredTrade) {
	var filtered []FilteredTrade

	// Step 1: minimum trade value floor
	surviving := make([]synthesis.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.EstimatedValue < c.MinTradeValue {
			filtered = append(filtered, FilteredTrade{
				Candidate: cand,
				Reason:    "below minimum trade value",
			})
			e.log.Debug().
				Str("symbol", cand.Symbol).
				Float64("value", cand.EstimatedValue).
				Float64("min_trade_value", c.MinTradeValue).
				Msg("Candidate filtered by minimum trade value")
			continue
		}
		surviving = append(surviving, cand)
	}

	// Step 2: turnover cap
	budget := c.MaxTurnover * totalValue
	grossValue := 0.0
	for _, cand := range surviving {
		grossValue += cand.EstimatedValue
	}

	if grossValue > budget {
		surviving, filtered = e.fitToBudget(surviving, filtered, budget, c.MinTradeValue)
	}

	// Step 3: SELLs before BUYs, descending value within each group
	sort.Slice(surviving, func(i, j int) bool {
		if surviving[i].Action != surviving[j].Action {
			return surviving[i].Action == domain.ActionSell
		}
		if surviving[i].EstimatedValue != surviving[j].EstimatedValue {
			return surviving[i].EstimatedValue > surviving[j].EstimatedValue
		}
		return surviving[i].Symbol < surviving[j].Symbol
	})

	trades := make([]domain.Trade, 0, len(surviving))
	finalValue := 0.0
	for _, cand := range surviving {
		trades = append(trades, domain.Trade{
			Symbol:         cand.Symbol,
			Action:         cand.Action,
			Quantity:       cand.Quantity,
			EstimatedPrice: cand.Price,
			EstimatedValue: cand.EstimatedValue,
			Reason:         cand.Reason,
		})
		finalValue += cand.EstimatedValue
	}

	projectedTurnover := 0.0
	if totalValue > 0 {
		projectedTurnover = finalValue / totalValue
	}

	e.log.Debug().
		Int("candidates", len(candidates)).
		Int("final_trades", len(trades)).
		Int("filtered", len(filtered)).
		Float64("projected_turnover", projectedTurnover).
		Msg("Enforced constraints")

	return trades, projectedTurnover, filtered
}

// fitToBudget admits candidates greedily by absolute deviation until the
// turnover budget is exhausted. Candidates whose deviations tie are treated
// as one group.
func (e *Enforcer) fitToBudget(
	candidates []synthesis.Candidate,
	filtered []FilteredTrade,
	budget float64,
	minTradeValue float64,
) ([]synthesis.Candidate, []FilteredTrade) {
	ranked := make([]synthesis.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.Slice(ranked, func(i, j int) bool {
		di, dj := math.Abs(ranked[i].Delta), math.Abs(ranked[j].Delta)
		if di != dj {
			return di > dj
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	var admitted []synthesis.Candidate
	used := 0.0
	budgetExhausted := false

	for start := 0; start < len(ranked); {
		end := start + 1
		for end < len(ranked) &&
			math.Abs(math.Abs(ranked[end].Delta)-math.Abs(ranked[start].Delta)) <= deviationTie {
			end++
		}
		group := ranked[start:end]
		start = end

		if budgetExhausted {
			for _, cand := range group {
				filtered = append(filtered, FilteredTrade{
					Candidate: cand,
					Reason:    "turnover budget exhausted",
				})
			}
			continue
		}

		groupValue := 0.0
		for _, cand := range group {
			groupValue += cand.EstimatedValue
		}

		if used+groupValue <= budget {
			admitted = append(admitted, group...)
			used += groupValue
			continue
		}

		// First overflowing group: scale every member by the same factor so
		// the group exactly fills the remaining budget.
		remaining := budget - used
		budgetExhausted = true

		if remaining <= 0 {
			for _, cand := range group {
				filtered = append(filtered, FilteredTrade{
					Candidate: cand,
					Reason:    "turnover budget exhausted",
				})
			}
			continue
		}

		factor := remaining / groupValue
		for _, cand := range group {
			scaled := cand
			scaled.Quantity = cand.Quantity * factor
			scaled.EstimatedValue = cand.EstimatedValue * factor

			if scaled.EstimatedValue <= 0 || scaled.EstimatedValue < minTradeValue {
				filtered = append(filtered, FilteredTrade{
					Candidate: cand,
					Reason:    "scaled value below minimum trade value",
				})
				continue
			}

			e.log.Debug().
				Str("symbol", cand.Symbol).
				Float64("original_value", cand.EstimatedValue).
				Float64("scaled_value", scaled.EstimatedValue).
				Msg("Scaled trade to fit turnover budget")

			admitted = append(admitted, scaled)
			used += scaled.EstimatedValue
		}
	}

	return admitted, filtered
}
