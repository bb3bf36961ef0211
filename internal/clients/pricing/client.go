// Package pricing provides the HTTP client for the external Price Source.
// The engine never calls this - the serving layer fetches a snapshot before
// planning, keeping the computation itself free of I/O.
package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/atlasfin/rebalancer/internal/domain"
)

// Source supplies a price snapshot for a list of symbols.
type Source interface {
	GetPrices(ctx context.Context, symbols []string) (domain.QuoteSet, error)
}

// Client talks to the pricing agent's POST /prices endpoint.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new pricing client
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "pricing").Logger(),
	}
}

// priceEntry accepts both wire formats the pricing agent emits:
// {"AAPL": 256.33} and {"AAPL": {"price": 256.33, "currency": "USD"}}.
type priceEntry struct {
	Price    float64
	Currency string
}

func (p *priceEntry) UnmarshalJSON(data []byte) error {
	var scalar float64
	if err := json.Unmarshal(data, &scalar); err == nil {
		p.Price = scalar
		return nil
	}
	var obj struct {
		Price    float64 `json:"price"`
		Currency string  `json:"currency"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.Price = obj.Price
	p.Currency = obj.Currency
	return nil
}

// GetPrices fetches a snapshot for the given symbols. Symbols the agent
// cannot price are simply absent from the result; the valuator turns that
// into a MissingPriceError if the symbol is held.
func (c *Client) GetPrices(ctx context.Context, symbols []string) (domain.QuoteSet, error) {
	body, err := json.Marshal(symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal symbols: %w", err)
	}

	url := c.baseURL + "/prices"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug().Str("url", url).Int("symbols", len(symbols)).Msg("Fetching prices")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price source request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price source returned status %d", resp.StatusCode)
	}

	var result struct {
		Prices map[string]priceEntry `json:"prices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode price response: %w", err)
	}

	quotes := make(domain.QuoteSet, len(result.Prices))
	for symbol, entry := range result.Prices {
		if entry.Price <= 0 {
			c.log.Warn().Str("symbol", symbol).Float64("price", entry.Price).Msg("Skipping non-positive price")
			continue
		}
		quotes[symbol] = domain.Quote{Price: entry.Price, Currency: entry.Currency}
	}

	c.log.Debug().Int("fetched", len(quotes)).Msg("Fetched price snapshot")
	return quotes, nil
}
