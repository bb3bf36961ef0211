// Package classify maps symbols to style categories. It is the simple,
// typed seam between category-level targets and per-symbol planning - no
// free-text interpretation happens here.
package classify

import (
	"github.com/rs/zerolog"

	"github.com/atlasfin/rebalancer/internal/domain"
)

// Style category names used by the default table.
const (
	CategoryGrowth    = "growth"
	CategoryDividend  = "dividend"
	CategoryDefensive = "defensive"
)

// defaultTable is a small static classification of common US large caps.
// Callers with their own taxonomy pass a table to NewClassifierWithTable.
var defaultTable = map[string]string{
	"AAPL":  CategoryGrowth,
	"MSFT":  CategoryGrowth,
	"GOOGL": CategoryGrowth,
	"AMZN":  CategoryGrowth,
	"NVDA":  CategoryGrowth,
	"META":  CategoryGrowth,
	"TSLA":  CategoryGrowth,
	"JNJ":   CategoryDividend,
	"KO":    CategoryDividend,
	"PG":    CategoryDividend,
	"XOM":   CategoryDividend,
	"T":     CategoryDividend,
	"VZ":    CategoryDividend,
	"O":     CategoryDividend,
	"WMT":   CategoryDefensive,
	"COST":  CategoryDefensive,
	"PEP":   CategoryDefensive,
	"MCD":   CategoryDefensive,
	"DUK":   CategoryDefensive,
	"SO":    CategoryDefensive,
}

// Classifier resolves symbols to style categories from a lookup table.
type Classifier struct {
	table map[string]string
	log   zerolog.Logger
}

// NewClassifier creates a classifier with the built-in table.
func NewClassifier(log zerolog.Logger) *Classifier {
	return NewClassifierWithTable(defaultTable, log)
}

// NewClassifierWithTable creates a classifier with a caller-supplied table.
func NewClassifierWithTable(table map[string]string, log zerolog.Logger) *Classifier {
	return &Classifier{
		table: table,
		log:   log.With().Str("component", "classifier").Logger(),
	}
}

// Classify returns a category map covering the given symbols. Unknown
// symbols are left unmapped; downstream they fall into the OTHER bucket.
func (c *Classifier) Classify(symbols []string) domain.CategoryMap {
	categories := make(domain.CategoryMap)
	unknown := 0
	for _, symbol := range symbols {
		if category, ok := c.table[symbol]; ok {
			categories[symbol] = category
		} else {
			unknown++
		}
	}
	if unknown > 0 {
		c.log.Debug().Int("unknown", unknown).Msg("Symbols without a style category")
	}
	return categories
}

// Categories returns the set of category names the classifier can produce.
func (c *Classifier) Categories() map[string]bool {
	names := make(map[string]bool)
	for _, category := range c.table {
		names[category] = true
	}
	return names
}
