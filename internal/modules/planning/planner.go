// Package planning orchestrates the rebalancing pipeline: valuation,
// allocation analysis, trade synthesis and constraint enforcement.
package planning

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/atlasfin/rebalancer/internal/domain"
	"github.com/atlasfin/rebalancer/internal/modules/allocation"
	"github.com/atlasfin/rebalancer/internal/modules/constraints"
	"github.com/atlasfin/rebalancer/internal/modules/synthesis"
	"github.com/atlasfin/rebalancer/internal/modules/valuation"
)

// PlanRequest carries everything a single planning call needs. The engine
// reads nothing else - no globals, no caches, no clocks.
type PlanRequest struct {
	Portfolio   domain.Portfolio
	Quotes      domain.QuoteSet
	Targets     domain.TargetAllocation
	Constraints domain.Constraints
	// Categories is optional. When set, Targets are interpreted at
	// category granularity.
	Categories domain.CategoryMap
}

// PlanResult pairs the final plan with the candidates that constraints
// dropped, for transparent reporting.
type PlanResult struct {
	Plan     *domain.RebalancePlan
	Filtered []constraints.FilteredTrade
}

// Planner runs the rebalancing pipeline. Safe for concurrent use: every
// call operates only on its own inputs.
type Planner struct {
	valuator    *valuation.Valuator
	analyzer    *allocation.Analyzer
	synthesizer *synthesis.Synthesizer
	enforcer    *constraints.Enforcer
	log         zerolog.Logger
}

// NewPlanner creates a planner with the given lot policy.
func NewPlanner(lots synthesis.LotPolicy, log zerolog.Logger) *Planner {
	return &Planner{
		valuator:    valuation.NewValuator(log),
		analyzer:    allocation.NewAnalyzer(log),
		synthesizer: synthesis.NewSynthesizer(lots, log),
		enforcer:    constraints.NewEnforcer(log),
		log:         log.With().Str("service", "planner").Logger(),
	}
}

// Plan validates the request and runs the pipeline in strict sequence,
// short-circuiting on the first error. Identical inputs always yield an
// identical plan.
func (p *Planner) Plan(req PlanRequest) (*domain.RebalancePlan, error) {
	result, err := p.PlanWithRejections(req)
	if err != nil {
		return nil, err
	}
	return result.Plan, nil
}

// PlanWithRejections is Plan plus the list of filtered candidates.
func (p *Planner) PlanWithRejections(req PlanRequest) (*PlanResult, error) {
	if err := req.Portfolio.Validate(); err != nil {
		return nil, err
	}
	if err := req.Targets.Validate(); err != nil {
		return nil, err
	}
	if err := req.Constraints.Validate(); err != nil {
		return nil, err
	}

	perPositionValue, totalValue, err := p.valuator.Value(req.Portfolio, req.Quotes)
	if err != nil {
		return nil, err
	}

	gaps, err := p.analyzer.Analyze(perPositionValue, totalValue, req.Targets, req.Categories)
	if err != nil {
		return nil, err
	}

	candidates, err := p.synthesizer.Synthesize(gaps, totalValue, perPositionValue, req.Quotes, req.Categories)
	if err != nil {
		return nil, err
	}

	trades, projectedTurnover, filtered := p.enforcer.Enforce(candidates, totalValue, req.Constraints)

	plan := &domain.RebalancePlan{
		Trades:                   trades,
		TotalValueBefore:         totalValue,
		ProjectedTurnover:        projectedTurnover,
		ProjectedAllocationAfter: p.projectAllocation(perPositionValue, trades, req.Categories),
	}

	p.log.Info().
		Int("trades", len(trades)).
		Int("filtered", len(filtered)).
		Float64("total_value", totalValue).
		Float64("projected_turnover", projectedTurnover).
		Msg("Plan computed")

	return &PlanResult{Plan: plan, Filtered: filtered}, nil
}

// projectAllocation applies the final trades to the per-position values and
// renormalizes. Informational only - never fed back into the pipeline.
// Keys match the target granularity: categories when a category map was
// supplied, symbols otherwise.
func (p *Planner) projectAllocation(
	perPositionValue map[string]float64,
	trades []domain.Trade,
	categories domain.CategoryMap,
) map[string]float64 {
	after := make(map[string]float64, len(perPositionValue))
	for symbol, value := range perPositionValue {
		after[symbol] = value
	}

	for _, trade := range trades {
		if trade.Action == domain.ActionBuy {
			after[trade.Symbol] += trade.EstimatedValue
		} else {
			after[trade.Symbol] -= trade.EstimatedValue
			if after[trade.Symbol] < 0 {
				after[trade.Symbol] = 0
			}
		}
	}

	if categories != nil {
		rolled := make(map[string]float64)
		for symbol, value := range after {
			rolled[allocation.CategoryOf(symbol, categories)] += value
		}
		after = rolled
	}

	values := make([]float64, 0, len(after))
	for _, value := range after {
		values = append(values, value)
	}
	total := floats.Sum(values)

	weights := make(map[string]float64, len(after))
	if total > 0 {
		for key, value := range after {
			weights[key] = value / total
		}
	}
	return weights
}
