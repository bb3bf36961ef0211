package classify

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasfin/rebalancer/internal/domain"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(zerolog.Nop())

	categories := c.Classify([]string{"AAPL", "KO", "WMT", "UNKNOWN1"})

	assert.Equal(t, CategoryGrowth, categories["AAPL"])
	assert.Equal(t, CategoryDividend, categories["KO"])
	assert.Equal(t, CategoryDefensive, categories["WMT"])

	// Unknown symbols stay unmapped so the analyzer buckets them as OTHER
	_, mapped := categories["UNKNOWN1"]
	assert.False(t, mapped)
}

func TestClassifier_CustomTable(t *testing.T) {
	table := map[string]string{"BND": "bonds", "AGG": "bonds"}
	c := NewClassifierWithTable(table, zerolog.Nop())

	categories := c.Classify([]string{"BND", "AAPL"})
	require.Len(t, categories, 1)
	assert.Equal(t, domain.CategoryMap{"BND": "bonds"}, categories)

	names := c.Categories()
	assert.Equal(t, map[string]bool{"bonds": true}, names)
}

func TestClassifier_Categories(t *testing.T) {
	c := NewClassifier(zerolog.Nop())

	names := c.Categories()
	assert.True(t, names[CategoryGrowth])
	assert.True(t, names[CategoryDividend])
	assert.True(t, names[CategoryDefensive])
	assert.False(t, names["AAPL"])
}
