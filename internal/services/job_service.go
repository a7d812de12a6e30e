package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/models"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/repository"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/kafka"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/registry"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateJobsRequest describes one optimization batch to enqueue
type CreateJobsRequest struct {
	DatasetID uint
	SKUs      []string
	ModelIDs  []string
	Method    models.JobMethod
	Reason    string
	Priority  int
	Payload   json.RawMessage
}

// CreateJobsResult reports what happened to every requested (model, SKU)
// pair: created jobs, models that opted out of grid search (skipped) and
// pairs that failed the eligibility filter (filtered).
type CreateJobsResult struct {
	BatchID  string `json:"batch_id"`
	Created  int    `json:"created"`
	Skipped  int    `json:"skipped"`
	Filtered int    `json:"filtered"`
}

// StatusSummary is the aggregate view of a dataset's job queue
type StatusSummary struct {
	Counts       map[models.JobStatus]int64 `json:"counts"`
	Total        int64                      `json:"total"`
	IsOptimizing bool                       `json:"is_optimizing"`
	Progress     int                        `json:"progress"`
}

// JobService creates and inspects optimization jobs. It owns the
// eligibility filter: ineligible (model, SKU) pairs are never enqueued.
type JobService struct {
	logger          *utils.Logger
	jobRepo         repository.JobRepository
	datasetRepo     repository.DatasetRepository
	registry        *registry.Registry
	validator       *utils.JSONSchemaValidator
	publisher       *kafka.Publisher
	notifications   *NotificationService
	validationRatio float64
}

// NewJobService creates a new job service
func NewJobService(
	database *db.Database,
	reg *registry.Registry,
	validationRatio float64,
	publisher *kafka.Publisher,
	notifications *NotificationService,
	logger *utils.Logger,
) (*JobService, error) {
	validator, err := utils.NewJSONSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create payload validator: %w", err)
	}

	repoFactory := repository.NewRepositoryFactory(database.DB)
	return &JobService{
		logger:          logger.Named("job_service"),
		jobRepo:         repoFactory.Jobs(),
		datasetRepo:     repoFactory.Datasets(),
		registry:        reg,
		validator:       validator,
		publisher:       publisher,
		notifications:   notifications,
		validationRatio: validationRatio,
	}, nil
}

// CreateJobs enqueues one pending job per eligible (model, SKU) pair of the
// request. Models that opt out of grid search are counted as skipped; pairs
// with insufficient history are counted as filtered. Neither is an error.
func (s *JobService) CreateJobs(req CreateJobsRequest) (*CreateJobsResult, error) {
	if req.DatasetID == 0 {
		return nil, fmt.Errorf("%w: dataset is required", utils.ErrValidation)
	}
	if req.Method != models.JobMethodGrid && req.Method != models.JobMethodAI {
		return nil, fmt.Errorf("%w: method must be grid or ai, got %q", utils.ErrValidation, req.Method)
	}

	if len(req.Payload) > 0 {
		if err := s.validator.ValidateJSON(utils.SchemaOptimizationPayload, req.Payload); err != nil {
			return nil, err
		}
	}

	if _, err := s.datasetRepo.GetByID(req.DatasetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("dataset %d: %w", req.DatasetID, utils.ErrNotFound)
		}
		return nil, err
	}

	skus := req.SKUs
	if len(skus) == 0 {
		var err error
		skus, err = s.datasetRepo.ListSKUs(req.DatasetID)
		if err != nil {
			return nil, err
		}
	}
	if len(skus) == 0 {
		return nil, fmt.Errorf("%w: dataset %d has no sales history", utils.ErrValidation, req.DatasetID)
	}

	defs, err := s.resolveModels(req.ModelIDs)
	if err != nil {
		return nil, err
	}

	result := &CreateJobsResult{BatchID: uuid.NewString()}
	var jobs []*models.OptimizationJob

	for _, sku := range skus {
		count, err := s.datasetRepo.ObservationCount(req.DatasetID, sku)
		if err != nil {
			return nil, err
		}

		for _, def := range defs {
			if !def.ParticipatesInGridSearch {
				result.Skipped++
				continue
			}

			if !registry.IsEligible(int(count), def.MinObservations, s.validationRatio) {
				s.logger.Debug("Filtered ineligible pair",
					zap.String("sku", sku),
					zap.String("model_id", def.ID),
					zap.Int64("observations", count),
					zap.Int("required", registry.RequiredObservations(def.MinObservations, s.validationRatio)))
				result.Filtered++
				continue
			}

			jobs = append(jobs, &models.OptimizationJob{
				DatasetID:   req.DatasetID,
				SKU:         sku,
				ModelID:     def.ID,
				Method:      req.Method,
				PayloadJSON: string(req.Payload),
				Reason:      req.Reason,
				BatchID:     result.BatchID,
				Priority:    req.Priority,
				Status:      models.JobStatusPending,
			})
		}
	}

	if err := s.jobRepo.CreateBatch(jobs); err != nil {
		return nil, err
	}
	result.Created = len(jobs)

	s.logger.Info("Optimization batch created",
		zap.String("batch_id", result.BatchID),
		zap.Uint("dataset_id", req.DatasetID),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("filtered", result.Filtered))

	if s.notifications != nil && result.Created > 0 {
		s.notifications.NotifyDataset(req.DatasetID, NotificationTypeBatchCreated, result)
	}

	for _, job := range jobs {
		if err := s.publisher.PublishJobEvent(&kafka.JobEvent{
			Type:      kafka.JobEventCreated,
			JobID:     job.ID,
			DatasetID: job.DatasetID,
			BatchID:   job.BatchID,
			SKU:       job.SKU,
			ModelID:   job.ModelID,
			Method:    job.Method,
			Status:    job.Status,
		}); err != nil {
			s.logger.Warn("Failed to publish job created event",
				zap.Uint("job_id", job.ID),
				zap.Error(err))
		}
	}

	return result, nil
}

// resolveModels maps requested model IDs onto registry definitions; an
// empty request means the full catalog.
func (s *JobService) resolveModels(modelIDs []string) ([]*registry.ModelDefinition, error) {
	if len(modelIDs) == 0 {
		return s.registry.List(), nil
	}

	defs := make([]*registry.ModelDefinition, 0, len(modelIDs))
	for _, id := range modelIDs {
		def, err := s.registry.Get(id)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Status returns per-status counts for a dataset plus the derived
// is-optimizing flag and overall progress percentage.
func (s *JobService) Status(datasetID uint) (*StatusSummary, error) {
	counts, err := s.jobRepo.CountByStatus(datasetID)
	if err != nil {
		return nil, err
	}

	summary := &StatusSummary{Counts: counts}
	for _, c := range counts {
		summary.Total += c
	}

	summary.IsOptimizing = counts[models.JobStatusPending] > 0 || counts[models.JobStatusRunning] > 0

	if summary.Total > 0 {
		// Terminal jobs count as fully done; a running job contributes its
		// own partial progress.
		done := (summary.Total - counts[models.JobStatusPending] - counts[models.JobStatusRunning]) * 100

		if counts[models.JobStatusRunning] > 0 {
			running, _, err := s.jobRepo.List(repository.JobFilter{
				DatasetID: datasetID,
				Statuses:  []models.JobStatus{models.JobStatusRunning},
			}, 0, 1)
			if err == nil && len(running) > 0 {
				done += int64(running[0].Progress)
			}
		}

		summary.Progress = int(done / summary.Total)
	}

	return summary, nil
}

// ListJobs returns a filtered, paginated job listing
func (s *JobService) ListJobs(filter repository.JobFilter, pagination utils.PaginationRequest) ([]models.OptimizationJob, int64, error) {
	return s.jobRepo.List(filter, pagination.Offset(), pagination.Limit)
}

// GetJob returns one job by ID
func (s *JobService) GetJob(id uint) (*models.OptimizationJob, error) {
	job, err := s.jobRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("job %d: %w", id, utils.ErrNotFound)
		}
		return nil, err
	}
	return job, nil
}

// Reset deletes every job for a dataset. Retrying a failed combination is
// an explicit external action: reset first, then create again.
func (s *JobService) Reset(datasetID uint) (int64, error) {
	if datasetID == 0 {
		return 0, fmt.Errorf("%w: dataset is required", utils.ErrValidation)
	}

	deleted, err := s.jobRepo.Reset(repository.JobFilter{DatasetID: datasetID})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Jobs reset",
		zap.Uint("dataset_id", datasetID),
		zap.Int64("deleted", deleted))

	return deleted, nil
}
