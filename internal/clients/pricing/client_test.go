package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_GetPrices_ScalarFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/prices", r.URL.Path)

		var symbols []string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&symbols))
		assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"prices": {"AAPL": 256.33, "MSFT": 512.5}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zerolog.Nop())

	quotes, err := client.GetPrices(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, 256.33, quotes["AAPL"].Price)
	assert.Equal(t, 512.5, quotes["MSFT"].Price)
}

func TestClient_GetPrices_ObjectFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"prices": {"AAPL": {"price": 256.33, "currency": "USD"}}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zerolog.Nop())

	quotes, err := client.GetPrices(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 256.33, quotes["AAPL"].Price)
	assert.Equal(t, "USD", quotes["AAPL"].Currency)
}

func TestClient_GetPrices_SkipsNonPositivePrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"prices": {"AAPL": 150.0, "HALTED": 0}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zerolog.Nop())

	quotes, err := client.GetPrices(context.Background(), []string{"AAPL", "HALTED"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	_, ok := quotes["HALTED"]
	assert.False(t, ok)
}

func TestClient_GetPrices_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zerolog.Nop())

	_, err := client.GetPrices(context.Background(), []string{"AAPL"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "503")
}

func TestClient_GetPrices_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.GetPrices(ctx, []string{"AAPL"})
	require.Error(t, err)
}
