// Package synthesis turns allocation gaps into candidate buy/sell trades.
// Candidates represent the ideal move to exactly reach target; constraint
// filtering happens downstream.
package synthesis

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/atlasfin/rebalancer/internal/domain"
	"github.com/atlasfin/rebalancer/internal/modules/allocation"
)

// deltaEpsilon is the relative threshold below which a currency adjustment
// is treated as zero and produces no trade.
const deltaEpsilon = 1e-9

// LotPolicy controls how raw quantities are rounded to tradable lots.
type LotPolicy struct {
	// Precision is the number of decimal places kept when fractional
	// shares are allowed.
	Precision int
	// WholeLots maps a symbol to its lot size for instruments that only
	// trade in whole multiples. Overrides Precision for that symbol.
	WholeLots map[string]float64
}

// DefaultLotPolicy allows fractional shares at 4 decimal places.
func DefaultLotPolicy() LotPolicy {
	return LotPolicy{Precision: 4}
}

// Round rounds a quantity down to the symbol's tradable granularity.
func (p LotPolicy) Round(symbol string, quantity float64) float64 {
	if lot, ok := p.WholeLots[symbol]; ok && lot > 0 {
		return math.Floor(quantity/lot) * lot
	}
	multiplier := math.Pow(10, float64(p.Precision))
	return math.Floor(quantity*multiplier) / multiplier
}

// Candidate is an unfiltered trade proposal. Delta keeps the signed
// currency adjustment so the constraint enforcer can rank by deviation.
type Candidate struct {
	Symbol         string
	Action         domain.Action
	Quantity       float64
	Price          float64
	EstimatedValue float64
	Delta          float64
	Reason         string
}

// Synthesizer converts gaps into candidate trades
type Synthesizer struct {
	lots LotPolicy
	log  zerolog.Logger
}

// NewSynthesizer creates a new trade synthesizer
func NewSynthesizer(lots LotPolicy, log zerolog.Logger) *Synthesizer {
	return &Synthesizer{
		lots: lots,
		log:  log.With().Str("component", "trade_synthesizer").Logger(),
	}
}

// Synthesize converts gaps into candidate trades. Symbol-level gaps map
// directly to one candidate each. Category-level gaps fan out across the
// category's member symbols in proportion to each member's current value
// share; a category holding only zero-quantity eligibility markers splits
// its delta equally. Output is sorted by symbol.
func (s *Synthesizer) Synthesize(
	gaps []allocation.Gap,
	totalValue float64,
	perPositionValue map[string]float64,
	quotes domain.QuoteSet,
	categories domain.CategoryMap,
) ([]Candidate, error) {
	deltas := make(map[string]float64)

	for _, gap := range gaps {
		delta := gap.Gap * totalValue
		if math.Abs(delta) <= deltaEpsilon*totalValue {
			continue
		}

		if categories == nil {
			deltas[gap.Key] += delta
			continue
		}

		members, memberTotal := categoryMembers(gap.Key, perPositionValue, categories)
		if len(members) == 0 {
			// Negative or zero target on an unheld category - nothing to do.
			continue
		}

		if memberTotal > 0 {
			for _, symbol := range members {
				deltas[symbol] += delta * (perPositionValue[symbol] / memberTotal)
			}
		} else {
			// Only eligibility markers - split equally
			share := delta / float64(len(members))
			for _, symbol := range members {
				deltas[symbol] += share
			}
		}
	}

	symbols := make([]string, 0, len(deltas))
	for symbol := range deltas {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	candidates := make([]Candidate, 0, len(symbols))
	for _, symbol := range symbols {
		delta := deltas[symbol]
		if math.Abs(delta) <= deltaEpsilon*totalValue {
			continue
		}

		quote, ok := quotes[symbol]
		if !ok || quote.Price <= 0 {
			return nil, &domain.MissingPriceError{Symbol: symbol}
		}

		quantity := s.lots.Round(symbol, math.Abs(delta)/quote.Price)
		if quantity <= 0 {
			s.log.Debug().
				Str("symbol", symbol).
				Float64("delta", delta).
				Msg("Quantity rounded to zero, skipping")
			continue
		}

		action := domain.ActionBuy
		reason := "Increase underweight"
		if delta < 0 {
			action = domain.ActionSell
			reason = "Reduce overweight"
		}

		candidates = append(candidates, Candidate{
			Symbol:         symbol,
			Action:         action,
			Quantity:       quantity,
			Price:          quote.Price,
			EstimatedValue: quantity * quote.Price,
			Delta:          delta,
			Reason:         reason,
		})
	}

	s.log.Debug().
		Int("gaps", len(gaps)).
		Int("candidates", len(candidates)).
		Msg("Synthesized candidate trades")

	return candidates, nil
}

// categoryMembers returns the sorted member symbols of a category and their
// combined current value.
func categoryMembers(category string, perPositionValue map[string]float64, categories domain.CategoryMap) ([]string, float64) {
	var members []string
	total := 0.0
	for symbol, value := range perPositionValue {
		if allocation.CategoryOf(symbol, categories) == category {
			members = append(members, symbol)
			total += value
		}
	}
	sort.Strings(members)
	return members, total
}
