package fitclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/forecast"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
	"go.uber.org/zap"
)

// Client is a forecast.Fitter backed by an external model-fitting service.
// It lets the engine delegate fitting to a dedicated process (for models
// not covered by the built-in catalog) while keeping the same contract.
type Client struct {
	httpClient *http.Client
	logger     *utils.Logger
	baseURL    string
}

// NewClient creates a new fit-service client
func NewClient(baseURL string, logger *utils.Logger) *Client {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     30 * time.Second,
		},
	}

	return &Client{
		httpClient: httpClient,
		logger:     logger.Named("fit_client"),
		baseURL:    baseURL,
	}
}

// APIError represents an error response from the fit service
type APIError struct {
	StatusCode int
	Message    string
}

// Error returns the error message
func (e *APIError) Error() string {
	return fmt.Sprintf("fit service error (%d): %s", e.StatusCode, e.Message)
}

// fitRequest is the wire format of a fit call.
type fitRequest struct {
	ModelID    string             `json:"model_id"`
	Parameters map[string]float64 `json:"parameters"`
	Train      []float64          `json:"train"`
	Validation []float64          `json:"validation"`
}

// fitResponse mirrors forecast.FitResult over the wire.
type fitResponse struct {
	Forecast []float64 `json:"forecast"`
	Metrics  struct {
		MAPE float64 `json:"mape"`
		RMSE float64 `json:"rmse"`
		MAE  float64 `json:"mae"`
	} `json:"metrics"`
}

// Fit sends one fit call to the remote service.
func (c *Client) Fit(train, validation forecast.Series, modelID string, params map[string]float64) (*forecast.FitResult, error) {
	body, err := c.doRequest(context.Background(), http.MethodPost, "/fit", fitRequest{
		ModelID:    modelID,
		Parameters: params,
		Train:      train,
		Validation: validation,
	})
	if err != nil {
		return nil, err
	}

	var resp fitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode fit response: %w", err)
	}

	return &forecast.FitResult{
		Forecast: resp.Forecast,
		Metrics: &forecast.Metrics{
			MAPE: resp.Metrics.MAPE,
			RMSE: resp.Metrics.RMSE,
			MAE:  resp.Metrics.MAE,
		},
	}, nil
}

// Ping checks service availability.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	return err
}

// doRequest performs an HTTP request against the fit service
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		c.logger.Warn("Fit service returned error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil, apiErr
	}

	return respBody, nil
}
