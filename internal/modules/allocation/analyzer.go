// Package allocation derives current portfolio weights and their signed
// gaps versus a target allocation, at symbol or category granularity.
package allocation

import (
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/atlasfin/rebalancer/internal/domain"
)

// OtherCategory collects symbols that a category map does not assign
// anywhere. Their target weight defaults to whatever the target allocation
// says for it - usually nothing, which marks them for selling.
const OtherCategory = "OTHER"

// Gap is the signed deviation of one allocation key from its target.
// Positive means underweight (buy), negative means overweight (sell).
type Gap struct {
	Key     string  `json:"key"`
	Current float64 `json:"current"`
	Target  float64 `json:"target"`
	Gap     float64 `json:"gap"`
}

// Analyzer computes allocation gaps
type Analyzer struct {
	log zerolog.Logger
}

// NewAnalyzer creates a new allocation analyzer
func NewAnalyzer(log zerolog.Logger) *Analyzer {
	return &Analyzer{
		log: log.With().Str("component", "allocation_analyzer").Logger(),
	}
}

// CategoryOf resolves a symbol's category, falling back to OtherCategory
// for symbols the map does not cover.
func CategoryOf(symbol string, categories domain.CategoryMap) string {
	if cat, ok := categories[symbol]; ok && cat != "" {
		return cat
	}
	return OtherCategory
}

// Analyze returns one Gap per allocation key, sorted by key for
// deterministic output. With a nil category map, targets are read per
// symbol and portfolio symbols absent from the target get weight 0. With a
// category map, current weights are rolled up to category granularity
// first; a positive-weight target category with no eligible portfolio
// symbol fails with UnallocatableCategoryError.
//
// Invariant: the gaps sum to ~0 whenever the target weights sum to 1,
// because current weights always sum to 1 over the emitted keys.
func (a *Analyzer) Analyze(
	perPositionValue map[string]float64,
	totalValue float64,
	target domain.TargetAllocation,
	categories domain.CategoryMap,
) ([]Gap, error) {
	currentValues := perPositionValue
	if categories != nil {
		currentValues = rollUpByCategory(perPositionValue, categories)

		// Every funded category needs at least one symbol to receive the
		// adjustment. Zero-quantity positions count as eligibility markers.
		memberCount := make(map[string]int)
		for symbol := range perPositionValue {
			memberCount[CategoryOf(symbol, categories)]++
		}
		for _, category := range target.Keys() {
			if target[category] > 0 && memberCount[category] == 0 {
				return nil, &domain.UnallocatableCategoryError{Category: category}
			}
		}
	}

	// Union of current keys and target keys
	keys := make(map[string]bool, len(currentValues)+len(target))
	for key := range currentValues {
		keys[key] = true
	}
	for key := range target {
		keys[key] = true
	}

	gaps := make([]Gap, 0, len(keys))
	for key := range keys {
		current := 0.0
		if totalValue > 0 {
			current = currentValues[key] / totalValue
		}
		gaps = append(gaps, Gap{
			Key:     key,
			Current: current,
			Target:  target[key],
			Gap:     target[key] - current,
		})
	}

	// Sort by key for consistent output
	sort.Slice(gaps, func(i, j int) bool {
		return gaps[i].Key < gaps[j].Key
	})

	a.log.Debug().
		Int("keys", len(gaps)).
		Bool("category_mode", categories != nil).
		Msg("Analyzed allocation gaps")

	return gaps, nil
}

// rollUpByCategory sums per-symbol values into their categories.
func rollUpByCategory(perPositionValue map[string]float64, categories domain.CategoryMap) map[string]float64 {
	byCategory := make(map[string]map[string]float64)
	for symbol, value := range perPositionValue {
		category := CategoryOf(symbol, categories)
		if byCategory[category] == nil {
			byCategory[category] = make(map[string]float64)
		}
		byCategory[category][symbol] = value
	}

	rolled := make(map[string]float64, len(byCategory))
	for category, members := range byCategory {
		values := make([]float64, 0, len(members))
		for _, value := range members {
			values = append(values, value)
		}
		rolled[category] = floats.Sum(values)
	}
	return rolled
}
