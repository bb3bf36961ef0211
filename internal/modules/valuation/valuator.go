// Package valuation converts positions and a price snapshot into currency
// values.
package valuation

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/atlasfin/rebalancer/internal/domain"
)

// Valuator computes per-position and total portfolio value. Pure - no side
// effects beyond debug logging.
type Valuator struct {
	log zerolog.Logger
}

// NewValuator creates a new valuator
func NewValuator(log zerolog.Logger) *Valuator {
	return &Valuator{
		log: log.With().Str("component", "valuator").Logger(),
	}
}

// Value returns the value of each position and the portfolio total.
// Every held symbol must have a positive quote or the call fails with
// MissingPriceError. A zero total fails with EmptyPortfolioError since
// percentage-based trades have no base to work from.
func (v *Valuator) Value(portfolio domain.Portfolio, quotes domain.QuoteSet) (map[string]float64, float64, error) {
	perPosition := make(map[string]float64, len(portfolio.Positions))
	values := make([]float64, 0, len(portfolio.Positions))

	for _, pos := range portfolio.Positions {
		quote, ok := quotes[pos.Symbol]
		if !ok || quote.Price <= 0 {
			return nil, 0, &domain.MissingPriceError{Symbol: pos.Symbol}
		}
		value := pos.Quantity * quote.Price
		perPosition[pos.Symbol] = value
		values = append(values, value)
	}

	total := floats.Sum(values)
	if total == 0 {
		return nil, 0, &domain.EmptyPortfolioError{}
	}

	v.log.Debug().
		Int("positions", len(perPosition)).
		Float64("total_value", total).
		Msg("Valued portfolio")

	return perPosition, total, nil
}
