package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasfin/rebalancer/internal/modules/planning"
	planninghandlers "github.com/atlasfin/rebalancer/internal/modules/planning/handlers"
	"github.com/atlasfin/rebalancer/internal/modules/synthesis"
)

func newTestServer() *Server {
	planner := planning.NewPlanner(synthesis.DefaultLotPolicy(), zerolog.Nop())
	handlers := planninghandlers.NewHandler(planner, nil, nil, nil, zerolog.Nop())
	return New(Config{
		Log:              zerolog.Nop(),
		Port:             0,
		DevMode:          true,
		PlanningHandlers: handlers,
	})
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "uptime_seconds")
}

func TestServer_SystemStatus(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/system/status", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, Version, status.Version)
	assert.Greater(t, status.Goroutines, 0)
}

func TestServer_PlanRouteMounted(t *testing.T) {
	srv := newTestServer()

	body := strings.NewReader(`{
		"portfolio": {"positions": [{"symbol": "AAPL", "quantity": 10}, {"symbol": "MSFT", "quantity": 10}]},
		"targets": {"AAPL": 0.25, "MSFT": 0.75},
		"constraints": {"max_turnover": 1.0, "min_trade_value": 0},
		"quotes": {"AAPL": {"price": 150}, "MSFT": {"price": 150}}
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/rebalance/plan", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// RequestID middleware populates the envelope metadata
	metadata := resp["metadata"].(map[string]interface{})
	assert.NotEmpty(t, metadata["request_id"])

	plan := resp["data"].(map[string]interface{})["plan"].(map[string]interface{})
	assert.Len(t, plan["trades"], 2)
}

func TestServer_UnknownRoute(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
