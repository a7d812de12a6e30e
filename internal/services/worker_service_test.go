package services_test

import (
	"encoding/json"
	"testing"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/config"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/models"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/repository"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/forecast"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/optimizer"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/registry"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/services"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorker(t *testing.T) (*services.WorkerService, *db.Database) {
	database, cleanup := testutil.NewTestDatabase(t)
	t.Cleanup(cleanup)

	logger := testutil.NewTestLogger(t)
	opt := optimizer.New(
		registry.NewRegistry(),
		forecast.NewBuiltinFitter(),
		&config.OptimizerConfig{ValidationRatio: 0.2},
		logger,
	)

	worker := services.NewWorkerService(
		database,
		opt,
		nil,
		nil,
		&config.WorkerConfig{PollIntervalSeconds: 5},
		logger,
	)
	return worker, database
}

func enqueue(t *testing.T, database *db.Database, datasetID uint, sku, modelID string, method models.JobMethod) *models.OptimizationJob {
	job := &models.OptimizationJob{
		DatasetID: datasetID,
		SKU:       sku,
		ModelID:   modelID,
		Method:    method,
		BatchID:   "batch-1",
		Status:    models.JobStatusPending,
	}
	require.NoError(t, repository.NewJobRepository(database.DB).Create(job))
	return job
}

func TestWorkerService_Tick_EmptyQueue(t *testing.T) {
	worker, _ := newWorker(t)
	assert.False(t, worker.Tick())
}

func TestWorkerService_Tick_CompletesGridJob(t *testing.T) {
	worker, database := newWorker(t)
	dataset := testutil.SeedDataset(t, database, "demand", map[string][]float64{
		"SKU-1": testutil.MonthlySeries(24),
	})
	job := enqueue(t, database, dataset.ID, "SKU-1", "moving_average", models.JobMethodGrid)

	assert.True(t, worker.Tick())

	loaded, err := repository.NewJobRepository(database.DB).GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, loaded.Status)
	assert.Equal(t, 100, loaded.Progress)
	require.NotNil(t, loaded.CompletedAt)

	var run optimizer.RunResult
	require.NoError(t, json.Unmarshal([]byte(loaded.ResultJSON), &run))
	assert.Equal(t, optimizer.TypeGrid, run.Type)
	assert.NotEmpty(t, run.Results)
	require.NotNil(t, run.BestResult)
	assert.Equal(t, "moving_average", run.BestResult.ModelID)
}

func TestWorkerService_Tick_CompletesAIJob(t *testing.T) {
	worker, database := newWorker(t)
	dataset := testutil.SeedDataset(t, database, "demand", map[string][]float64{
		"SKU-1": testutil.MonthlySeries(24),
	})
	job := enqueue(t, database, dataset.ID, "SKU-1", "simple_exponential", models.JobMethodAI)

	assert.True(t, worker.Tick())

	loaded, err := repository.NewJobRepository(database.DB).GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, loaded.Status)

	var run optimizer.RunResult
	require.NoError(t, json.Unmarshal([]byte(loaded.ResultJSON), &run))
	assert.Equal(t, optimizer.TypeAI, run.Type)
	require.NotNil(t, run.AIInsights)
	assert.NotEmpty(t, run.AIInsights.PromisingRanges["simple_exponential"])
}

func TestWorkerService_Tick_FailsJobOnMissingSeries(t *testing.T) {
	worker, database := newWorker(t)
	dataset := testutil.SeedDataset(t, database, "demand", map[string][]float64{
		"SKU-1": testutil.MonthlySeries(24),
	})
	// Job references a SKU with no observations; the series is too short
	// to split and the job must fail, not crash the worker.
	job := enqueue(t, database, dataset.ID, "SKU-MISSING", "moving_average", models.JobMethodGrid)

	assert.True(t, worker.Tick())

	loaded, err := repository.NewJobRepository(database.DB).GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, loaded.Status)
	assert.NotEmpty(t, loaded.Error)
	assert.Empty(t, loaded.ResultJSON)
}

func TestWorkerService_Tick_ProcessesOneJobPerTick(t *testing.T) {
	worker, database := newWorker(t)
	dataset := testutil.SeedDataset(t, database, "demand", map[string][]float64{
		"SKU-1": testutil.MonthlySeries(24),
	})
	enqueue(t, database, dataset.ID, "SKU-1", "moving_average", models.JobMethodGrid)
	enqueue(t, database, dataset.ID, "SKU-1", "simple_exponential", models.JobMethodGrid)

	jobRepo := repository.NewJobRepository(database.DB)

	assert.True(t, worker.Tick())
	counts, err := jobRepo.CountByStatus(dataset.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[models.JobStatusCompleted])
	assert.EqualValues(t, 1, counts[models.JobStatusPending])

	assert.True(t, worker.Tick())
	counts, err = jobRepo.CountByStatus(dataset.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[models.JobStatusCompleted])
}
