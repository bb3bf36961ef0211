package valuation

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasfin/rebalancer/internal/domain"
)

func TestValuator_Value(t *testing.T) {
	v := NewValuator(zerolog.Nop())

	portfolio := domain.Portfolio{Positions: []domain.Position{
		{Symbol: "AAPL", Quantity: 10},
		{Symbol: "MSFT", Quantity: 10},
	}}
	quotes := domain.QuoteSet{
		"AAPL": {Price: 150, Currency: "USD"},
		"MSFT": {Price: 150, Currency: "USD"},
	}

	perPosition, total, err := v.Value(portfolio, quotes)
	require.NoError(t, err)
	assert.Equal(t, 3000.0, total)
	assert.Equal(t, 1500.0, perPosition["AAPL"])
	assert.Equal(t, 1500.0, perPosition["MSFT"])
}

func TestValuator_Value_ZeroQuantityEligibilityMarker(t *testing.T) {
	v := NewValuator(zerolog.Nop())

	portfolio := domain.Portfolio{Positions: []domain.Position{
		{Symbol: "AAPL", Quantity: 10},
		{Symbol: "BND", Quantity: 0},
	}}
	quotes := domain.QuoteSet{
		"AAPL": {Price: 150},
		"BND":  {Price: 80},
	}

	perPosition, total, err := v.Value(portfolio, quotes)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, total)
	assert.Equal(t, 0.0, perPosition["BND"])
}

func TestValuator_Value_MissingPrice(t *testing.T) {
	v := NewValuator(zerolog.Nop())

	portfolio := domain.Portfolio{Positions: []domain.Position{
		{Symbol: "AAPL", Quantity: 10},
		{Symbol: "MSFT", Quantity: 10},
	}}
	quotes := domain.QuoteSet{"AAPL": {Price: 150}}

	_, _, err := v.Value(portfolio, quotes)
	var missingPrice *domain.MissingPriceError
	require.Error(t, err)
	require.True(t, errors.As(err, &missingPrice))
	assert.Equal(t, "MSFT", missingPrice.Symbol)
}

func TestValuator_Value_NonPositivePriceTreatedAsMissing(t *testing.T) {
	v := NewValuator(zerolog.Nop())

	portfolio := domain.Portfolio{Positions: []domain.Position{
		{Symbol: "AAPL", Quantity: 10},
	}}
	quotes := domain.QuoteSet{"AAPL": {Price: 0}}

	_, _, err := v.Value(portfolio, quotes)
	var missingPrice *domain.MissingPriceError
	require.Error(t, err)
	assert.True(t, errors.As(err, &missingPrice))
}

func TestValuator_Value_EmptyPortfolio(t *testing.T) {
	v := NewValuator(zerolog.Nop())

	portfolio := domain.Portfolio{Positions: []domain.Position{
		{Symbol: "AAPL", Quantity: 0},
	}}
	quotes := domain.QuoteSet{"AAPL": {Price: 150}}

	_, _, err := v.Value(portfolio, quotes)
	var emptyPortfolio *domain.EmptyPortfolioError
	require.Error(t, err)
	assert.True(t, errors.As(err, &emptyPortfolio))
}
