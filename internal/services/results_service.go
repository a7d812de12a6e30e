package services

import (
	"errors"
	"fmt"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/models"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/repository"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/registry"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/scoring"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
)

// ResultsService is the read path over the completed job history: it feeds
// the best-result aggregator and produces the flat export report.
type ResultsService struct {
	logger      *utils.Logger
	jobRepo     repository.JobRepository
	datasetRepo repository.DatasetRepository
	aggregator  *scoring.Aggregator
}

// NewResultsService creates a new results service
func NewResultsService(
	database *db.Database,
	reg *registry.Registry,
	weights scoring.Weights,
	logger *utils.Logger,
) *ResultsService {
	repoFactory := repository.NewRepositoryFactory(database.DB)
	return &ResultsService{
		logger:      logger.Named("results_service"),
		jobRepo:     repoFactory.Jobs(),
		datasetRepo: repoFactory.Datasets(),
		aggregator:  scoring.NewAggregator(reg, weights, logger),
	}
}

// Matrix returns the complete model x method x SKU recommendation matrix
// for a dataset, optionally restricted to a single method.
func (s *ResultsService) Matrix(datasetID uint, method models.JobMethod) (*scoring.Matrix, error) {
	jobs, err := s.completedJobs(datasetID, method)
	if err != nil {
		return nil, err
	}

	var methods []models.JobMethod
	if method != "" {
		methods = []models.JobMethod{method}
	}

	return s.aggregator.Aggregate(jobs, methods)
}

// Export returns the flat tabular report: one row per (job, model result)
func (s *ResultsService) Export(datasetID uint, method models.JobMethod) ([]scoring.ExportRow, error) {
	jobs, err := s.completedJobs(datasetID, method)
	if err != nil {
		return nil, err
	}

	return s.aggregator.ExportRows(jobs), nil
}

func (s *ResultsService) completedJobs(datasetID uint, method models.JobMethod) ([]models.OptimizationJob, error) {
	if datasetID == 0 {
		return nil, fmt.Errorf("%w: dataset is required", utils.ErrValidation)
	}

	if _, err := s.datasetRepo.GetByID(datasetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("dataset %d: %w", datasetID, utils.ErrNotFound)
		}
		return nil, err
	}

	return s.jobRepo.ListCompleted(repository.JobFilter{
		DatasetID: datasetID,
		Method:    method,
	})
}
