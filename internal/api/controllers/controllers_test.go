package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/api/controllers"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/config"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/models"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/forecast"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/optimizer"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/registry"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/scoring"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/services"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiSetup struct {
	engine   *gin.Engine
	database *db.Database
	worker   *services.WorkerService
}

func newAPISetup(t *testing.T) *apiSetup {
	gin.SetMode(gin.TestMode)

	database, cleanup := testutil.NewTestDatabase(t)
	t.Cleanup(cleanup)

	logger := testutil.NewTestLogger(t)
	reg := registry.NewRegistry()
	weights := scoring.Weights{MAPE: 0.4, RMSE: 0.3, MAE: 0.2, Accuracy: 0.1}

	datasetService := services.NewDatasetService(database, logger)
	jobService, err := services.NewJobService(database, reg, 0.2, nil, nil, logger)
	require.NoError(t, err)
	resultsService := services.NewResultsService(database, reg, weights, logger)

	opt := optimizer.New(reg, forecast.NewBuiltinFitter(), &config.OptimizerConfig{ValidationRatio: 0.2}, logger)
	worker := services.NewWorkerService(database, opt, nil, nil, &config.WorkerConfig{PollIntervalSeconds: 5}, logger)

	engine := gin.New()
	apiV1 := engine.Group("/api/v1")

	datasetController := controllers.NewDatasetController(datasetService, logger)
	optimizationController := controllers.NewOptimizationController(jobService, reg, logger)
	resultsController := controllers.NewResultsController(resultsService, logger)

	modelRoutes := apiV1.Group("/models")
	optimizationController.RegisterModelRoutes(modelRoutes)

	datasetRoutes := apiV1.Group("/datasets")
	datasetController.RegisterRoutes(datasetRoutes)

	perDataset := datasetRoutes.Group("/:id")
	optimizationController.RegisterRoutes(perDataset)
	resultsController.RegisterRoutes(perDataset)

	return &apiSetup{engine: engine, database: database, worker: worker}
}

func (s *apiSetup) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, path, bytes.NewBuffer(reqBody))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp := httptest.NewRecorder()
	s.engine.ServeHTTP(resp, req)
	return resp
}

func (s *apiSetup) seedDataset(t *testing.T) uint {
	dataset := testutil.SeedDataset(t, s.database, "demand", map[string][]float64{
		"SKU-1": testutil.MonthlySeries(24),
	})
	return dataset.ID
}

func TestDatasetEndpoints(t *testing.T) {
	s := newAPISetup(t)

	t.Run("Create dataset with observations", func(t *testing.T) {
		resp := s.request(t, http.MethodPost, "/api/v1/datasets", gin.H{
			"name": "demand-2024",
			"observations": []gin.H{
				{"sku": "SKU-1", "time": "2024-01-01T00:00:00Z", "quantity": 100},
				{"sku": "SKU-1", "time": "2024-02-01T00:00:00Z", "quantity": 110},
			},
		})
		require.Equal(t, http.StatusCreated, resp.Code)

		var dataset models.Dataset
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &dataset))
		assert.NotZero(t, dataset.ID)

		resp = s.request(t, http.MethodGet, "/api/v1/datasets", nil)
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("Missing name is a validation error", func(t *testing.T) {
		resp := s.request(t, http.MethodPost, "/api/v1/datasets", gin.H{"description": "nameless"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("Unknown dataset is not found", func(t *testing.T) {
		resp := s.request(t, http.MethodGet, "/api/v1/datasets/999", nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestModelCatalogEndpoints(t *testing.T) {
	s := newAPISetup(t)

	resp := s.request(t, http.MethodGet, "/api/v1/models", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Models []json.RawMessage `json:"models"`
		Count  int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, len(registry.NewRegistry().List()), body.Count)

	resp = s.request(t, http.MethodGet, "/api/v1/models/moving_average", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = s.request(t, http.MethodGet, "/api/v1/models/arima", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestOptimizationFlow(t *testing.T) {
	s := newAPISetup(t)
	datasetID := s.seedDataset(t)

	base := "/api/v1/datasets/" + uintToString(datasetID)

	resp := s.request(t, http.MethodPost, base+"/optimize", gin.H{
		"method":    "grid",
		"model_ids": []string{"moving_average"},
	})
	require.Equal(t, http.StatusAccepted, resp.Code)

	var created services.CreateJobsResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, 1, created.Created)
	assert.NotEmpty(t, created.BatchID)

	resp = s.request(t, http.MethodGet, base+"/status", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var status services.StatusSummary
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &status))
	assert.True(t, status.IsOptimizing)
	assert.EqualValues(t, 1, status.Total)

	// Drain the queue, then read the results matrix.
	require.True(t, s.worker.Tick())

	resp = s.request(t, http.MethodGet, base+"/results?method=grid", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var matrix scoring.Matrix
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &matrix))
	assert.NotEmpty(t, matrix.Entries)

	resp = s.request(t, http.MethodGet, base+"/export?format=csv", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Body.String(), "job_id,batch_id,sku")

	resp = s.request(t, http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = s.request(t, http.MethodGet, base+"/status", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &status))
	assert.Zero(t, status.Total)
}

func TestOptimizeValidation(t *testing.T) {
	s := newAPISetup(t)
	datasetID := s.seedDataset(t)
	base := "/api/v1/datasets/" + uintToString(datasetID)

	t.Run("Invalid method", func(t *testing.T) {
		resp := s.request(t, http.MethodPost, base+"/optimize", gin.H{"method": "genetic"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("Unknown dataset", func(t *testing.T) {
		resp := s.request(t, http.MethodPost, "/api/v1/datasets/999/optimize", gin.H{"method": "grid"})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("Bad dataset ID parameter", func(t *testing.T) {
		resp := s.request(t, http.MethodPost, "/api/v1/datasets/abc/optimize", gin.H{"method": "grid"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func uintToString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
