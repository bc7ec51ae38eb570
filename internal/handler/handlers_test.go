package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skyward/flighttrack/internal/auth"
	"github.com/skyward/flighttrack/internal/client"
	"github.com/skyward/flighttrack/internal/config"
	"github.com/skyward/flighttrack/internal/server"
	"github.com/skyward/flighttrack/internal/store"
)

// staticVerifier resolves fixed tokens without a network round trip.
type staticVerifier map[string]string

func (v staticVerifier) Verify(ctx context.Context, token string) (string, error) {
	userID, ok := v[token]
	if !ok {
		return "", auth.ErrUnauthenticated
	}
	return userID, nil
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Storage: config.StorageConfig{Backend: config.BackendMemory},
	}

	verifier := staticVerifier{
		"token-u1": "user-1",
		"token-u2": "user-2",
	}

	predictions := client.NewPredictionClient("http://localhost:0", time.Second, zap.NewNop())

	srv := server.NewServer(cfg, store.NewMemoryFlightStore(), verifier, predictions, nil, zap.NewNop())
	srv.SetupRoutes()
	return srv.GetHandler()
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestFlights_RequireAuthentication(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/flights"},
		{http.MethodGet, "/v1/flights"},
		{http.MethodGet, "/v1/flights/T1"},
		{http.MethodDelete, "/v1/flights/T1"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := doRequest(t, h, tt.method, tt.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "UNAUTHORIZED")

			w = doRequest(t, h, tt.method, tt.path, "unknown-token", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestFlights_SaveGetListDelete(t *testing.T) {
	h := newTestServer(t)
	payload := []byte(`{"trace_id":"T1","prediction":{"delay_probability":0.42}}`)

	// Save
	w := doRequest(t, h, http.MethodPost, "/v1/flights", "token-u1", payload)
	require.Equal(t, http.StatusOK, w.Code)

	var saveResp struct {
		Success bool   `json:"success"`
		TraceID string `json:"trace_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saveResp))
	assert.True(t, saveResp.Success)
	assert.Equal(t, "T1", saveResp.TraceID)

	// Get returns the same payload
	w = doRequest(t, h, http.MethodGet, "/v1/flights/T1", "token-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var getResp struct {
		Flight json.RawMessage `json:"flight"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &getResp))
	assert.JSONEq(t, string(payload), string(getResp.Flight))

	// List returns the sole entry
	w = doRequest(t, h, http.MethodGet, "/v1/flights", "token-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listResp struct {
		Flights []json.RawMessage `json:"flights"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	require.Len(t, listResp.Flights, 1)
	assert.JSONEq(t, string(payload), string(listResp.Flights[0]))

	// Another user sees nothing
	w = doRequest(t, h, http.MethodGet, "/v1/flights/T1", "token-u2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, h, http.MethodGet, "/v1/flights", "token-u2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listResp.Flights = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	assert.Empty(t, listResp.Flights)

	// Delete
	w = doRequest(t, h, http.MethodDelete, "/v1/flights/T1", "token-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, h, http.MethodGet, "/v1/flights/T1", "token-u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "FLIGHT_NOT_FOUND")

	// Second delete is still NotFound
	w = doRequest(t, h, http.MethodDelete, "/v1/flights/T1", "token-u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlights_SaveValidation(t *testing.T) {
	h := newTestServer(t)

	t.Run("missing trace_id", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/v1/flights", "token-u1", []byte(`{"prediction":{}}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
	})

	t.Run("invalid JSON", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/v1/flights", "token-u1", []byte(`{invalid}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFlights_ResaveMovesToFront(t *testing.T) {
	h := newTestServer(t)

	for _, id := range []string{"A", "B", "C", "A"} {
		payload := []byte(fmt.Sprintf(`{"trace_id":%q}`, id))
		w := doRequest(t, h, http.MethodPost, "/v1/flights", "token-u1", payload)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doRequest(t, h, http.MethodGet, "/v1/flights", "token-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listResp struct {
		Flights []struct {
			TraceID string `json:"trace_id"`
		} `json:"flights"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	require.Len(t, listResp.Flights, 3)
	assert.Equal(t, "A", listResp.Flights[0].TraceID)
	assert.Equal(t, "C", listResp.Flights[1].TraceID)
	assert.Equal(t, "B", listResp.Flights[2].TraceID)
}

func TestPredict_ProxiesPredictionService(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"trace_id":"T9","prediction":{"delay_probability":0.08}}`))
	}))
	defer upstream.Close()

	cfg := &config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Storage: config.StorageConfig{Backend: config.BackendMemory},
	}
	predictions := client.NewPredictionClient(upstream.URL, 5*time.Second, zap.NewNop())
	srv := server.NewServer(cfg, store.NewMemoryFlightStore(), staticVerifier{"token-u1": "user-1"}, predictions, nil, zap.NewNop())
	srv.SetupRoutes()
	h := srv.GetHandler()

	w := doRequest(t, h, http.MethodGet, "/v1/predict?flight_number=BA117&date=2026-09-01", "token-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"trace_id":"T9","prediction":{"delay_probability":0.08}}`, w.Body.String())

	t.Run("missing parameters", func(t *testing.T) {
		w := doRequest(t, h, http.MethodGet, "/v1/predict?date=2026-09-01", "token-u1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestServer(t)

	w := doRequest(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
