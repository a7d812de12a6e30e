package fitclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/fitclient"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/forecast"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Fit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/fit", r.URL.Path)

		var req struct {
			ModelID    string             `json:"model_id"`
			Parameters map[string]float64 `json:"parameters"`
			Train      []float64          `json:"train"`
			Validation []float64          `json:"validation"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "croston", req.ModelID)
		assert.Equal(t, 0.3, req.Parameters["alpha"])
		assert.Len(t, req.Train, 4)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"forecast": []float64{105, 105},
			"metrics":  map[string]float64{"mape": 0.05, "rmse": 5.2, "mae": 5.0},
		})
	}))
	defer server.Close()

	client := fitclient.NewClient(server.URL, testutil.NewTestLogger(t))

	result, err := client.Fit(
		forecast.Series{100, 101, 102, 103},
		forecast.Series{104, 106},
		"croston",
		map[string]float64{"alpha": 0.3},
	)
	require.NoError(t, err)
	assert.Equal(t, forecast.Series{105, 105}, result.Forecast)
	assert.InDelta(t, 0.05, result.Metrics.MAPE, 1e-9)
	assert.InDelta(t, 5.2, result.Metrics.RMSE, 1e-9)
}

func TestClient_FitServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown model", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := fitclient.NewClient(server.URL, testutil.NewTestLogger(t))

	_, err := client.Fit(forecast.Series{1, 2}, forecast.Series{3}, "bogus", nil)
	require.Error(t, err)

	var apiErr *fitclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
}

func TestClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := fitclient.NewClient(server.URL, testutil.NewTestLogger(t))
	assert.NoError(t, client.Ping(context.Background()))
}
