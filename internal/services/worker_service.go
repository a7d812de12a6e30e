package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/config"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/models"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/repository"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/forecast"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/kafka"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/optimizer"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
	"go.uber.org/zap"
)

// ProgressUpdate is the websocket payload for a running job's progress
type ProgressUpdate struct {
	JobID    uint   `json:"job_id"`
	SKU      string `json:"sku"`
	ModelID  string `json:"model_id"`
	Phase    string `json:"phase"`
	Progress int    `json:"progress"`
}

// WorkerService is the single-concurrency polling worker. On each tick it
// claims the oldest eligible pending job, drives the optimizer and persists
// the terminal state. A tick that finds the worker busy is a no-op.
type WorkerService struct {
	logger        *utils.Logger
	jobRepo       repository.JobRepository
	datasetRepo   repository.DatasetRepository
	optimizer     *optimizer.Optimizer
	publisher     *kafka.Publisher
	notifications *NotificationService
	pollInterval  time.Duration
	busy          atomic.Bool
	cancel        context.CancelFunc
	done          chan struct{}
}

// NewWorkerService creates a new worker service
func NewWorkerService(
	database *db.Database,
	opt *optimizer.Optimizer,
	publisher *kafka.Publisher,
	notifications *NotificationService,
	cfg *config.WorkerConfig,
	logger *utils.Logger,
) *WorkerService {
	repoFactory := repository.NewRepositoryFactory(database.DB)
	return &WorkerService{
		logger:        logger.Named("worker"),
		jobRepo:       repoFactory.Jobs(),
		datasetRepo:   repoFactory.Datasets(),
		optimizer:     opt,
		publisher:     publisher,
		notifications: notifications,
		pollInterval:  time.Duration(cfg.PollIntervalSeconds) * time.Second,
	}
}

// Start launches the polling loop. The first tick fires immediately.
func (w *WorkerService) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)

		w.logger.Info("Worker started", zap.Duration("poll_interval", w.pollInterval))
		w.Tick()

		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				w.logger.Info("Worker stopped")
				return
			case <-ticker.C:
				w.Tick()
			}
		}
	}()
}

// Stop halts the polling loop and waits for it to exit. A job already
// running is not interrupted; claimed jobs always run to completion or
// failure.
func (w *WorkerService) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

// Tick claims and runs at most one pending job. It returns true when a job
// was executed. Re-entrant safe: a tick while a job is running does nothing.
func (w *WorkerService) Tick() bool {
	if !w.busy.CompareAndSwap(false, true) {
		return false
	}
	defer w.busy.Store(false)

	job, err := w.jobRepo.ClaimNextPending()
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			w.logger.Error("Failed to claim pending job", zap.Error(err))
		}
		return false
	}

	w.runJob(job)
	return true
}

// runJob executes one claimed job. Every failure mode, panics included, is
// captured on the job record; the worker loop itself never crashes on a
// job's failure.
func (w *WorkerService) runJob(job *models.OptimizationJob) {
	w.logger.Info("Job started",
		zap.Uint("job_id", job.ID),
		zap.String("sku", job.SKU),
		zap.String("model_id", job.ModelID),
		zap.String("method", string(job.Method)))

	defer func() {
		if r := recover(); r != nil {
			w.failJob(job, fmt.Sprintf("optimization panic: %v", r))
		}
	}()

	series, err := w.datasetRepo.GetSeries(job.DatasetID, job.SKU)
	if err != nil {
		w.failJob(job, fmt.Sprintf("failed to load series: %v", err))
		return
	}

	onProgress := func(phase string, percent int) {
		if err := w.jobRepo.UpdateProgress(job.ID, percent); err != nil {
			w.logger.Warn("Failed to persist progress",
				zap.Uint("job_id", job.ID),
				zap.Error(err))
		}

		if w.notifications != nil {
			w.notifications.NotifyDataset(job.DatasetID, NotificationTypeJobProgress, &ProgressUpdate{
				JobID:    job.ID,
				SKU:      job.SKU,
				ModelID:  job.ModelID,
				Phase:    phase,
				Progress: percent,
			})
		}
	}

	var run *optimizer.RunResult
	switch job.Method {
	case models.JobMethodAI:
		run, err = w.optimizer.RunAIOptimization(forecast.Series(series), []string{job.ModelID}, onProgress)
	default:
		run, err = w.optimizer.RunGridSearch(forecast.Series(series), []string{job.ModelID}, onProgress)
	}
	if err != nil {
		w.failJob(job, err.Error())
		return
	}

	resultJSON, err := json.Marshal(run)
	if err != nil {
		w.failJob(job, fmt.Sprintf("failed to encode result: %v", err))
		return
	}

	if err := w.jobRepo.Complete(job.ID, string(resultJSON)); err != nil {
		w.logger.Error("Failed to persist completed job",
			zap.Uint("job_id", job.ID),
			zap.Error(err))
		return
	}

	w.logger.Info("Job completed",
		zap.Uint("job_id", job.ID),
		zap.Int("results", len(run.Results)))

	if w.notifications != nil {
		w.notifications.NotifyDataset(job.DatasetID, NotificationTypeJobCompleted, &ProgressUpdate{
			JobID:    job.ID,
			SKU:      job.SKU,
			ModelID:  job.ModelID,
			Progress: 100,
		})
	}

	w.publishTerminal(job, kafka.JobEventCompleted, models.JobStatusCompleted, "")
}

// failJob records a job failure. Jobs are never retried automatically.
func (w *WorkerService) failJob(job *models.OptimizationJob, message string) {
	w.logger.Warn("Job failed",
		zap.Uint("job_id", job.ID),
		zap.String("sku", job.SKU),
		zap.String("model_id", job.ModelID),
		zap.String("error", message))

	if err := w.jobRepo.Fail(job.ID, message); err != nil {
		w.logger.Error("Failed to persist job failure",
			zap.Uint("job_id", job.ID),
			zap.Error(err))
	}

	if w.notifications != nil {
		w.notifications.NotifyDataset(job.DatasetID, NotificationTypeJobFailed, &ProgressUpdate{
			JobID:   job.ID,
			SKU:     job.SKU,
			ModelID: job.ModelID,
		})
	}

	w.publishTerminal(job, kafka.JobEventFailed, models.JobStatusFailed, message)
}

func (w *WorkerService) publishTerminal(job *models.OptimizationJob, eventType string, status models.JobStatus, errMessage string) {
	if err := w.publisher.PublishJobEvent(&kafka.JobEvent{
		Type:      eventType,
		JobID:     job.ID,
		DatasetID: job.DatasetID,
		BatchID:   job.BatchID,
		SKU:       job.SKU,
		ModelID:   job.ModelID,
		Method:    job.Method,
		Status:    status,
		Progress:  job.Progress,
		Error:     errMessage,
	}); err != nil {
		w.logger.Warn("Failed to publish job event",
			zap.Uint("job_id", job.ID),
			zap.Error(err))
	}
}
