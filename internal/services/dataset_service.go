package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/models"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/repository"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
	"go.uber.org/zap"
)

// ObservationInput is a single sales data point in an upload request.
type ObservationInput struct {
	SKU      string    `json:"sku" binding:"required"`
	Time     time.Time `json:"time" binding:"required"`
	Quantity float64   `json:"quantity"`
}

// CreateDatasetRequest carries a new dataset and its initial observations.
type CreateDatasetRequest struct {
	Name         string             `json:"name" binding:"required"`
	Description  string             `json:"description"`
	Frequency    string             `json:"frequency" binding:"omitempty,oneof=daily weekly monthly"`
	Observations []ObservationInput `json:"observations"`
}

// DatasetService manages sales datasets and their observation series.
type DatasetService struct {
	logger      *utils.Logger
	datasetRepo repository.DatasetRepository
}

// NewDatasetService creates a new dataset service
func NewDatasetService(database *db.Database, logger *utils.Logger) *DatasetService {
	repoFactory := repository.NewRepositoryFactory(database.DB)
	return &DatasetService{
		logger:      logger.Named("dataset_service"),
		datasetRepo: repoFactory.Datasets(),
	}
}

// Create stores a dataset together with its observations.
func (s *DatasetService) Create(req CreateDatasetRequest) (*models.Dataset, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", utils.ErrValidation)
	}

	dataset := &models.Dataset{
		Name:        req.Name,
		Description: req.Description,
		Frequency:   req.Frequency,
	}
	if err := s.datasetRepo.Create(dataset); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("dataset %q: %w", req.Name, utils.ErrAlreadyExists)
		}
		return nil, err
	}

	if len(req.Observations) > 0 {
		if err := s.AddObservations(dataset.ID, req.Observations); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Dataset created",
		zap.Uint("dataset_id", dataset.ID),
		zap.Int("observations", len(req.Observations)))
	return dataset, nil
}

// AddObservations appends sales observations to an existing dataset.
func (s *DatasetService) AddObservations(datasetID uint, inputs []ObservationInput) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%w: at least one observation is required", utils.ErrValidation)
	}

	if _, err := s.datasetRepo.GetByID(datasetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("dataset %d: %w", datasetID, utils.ErrNotFound)
		}
		return err
	}

	observations := make([]models.SalesObservation, 0, len(inputs))
	for i, in := range inputs {
		if in.SKU == "" {
			return fmt.Errorf("%w: observation %d has no SKU", utils.ErrValidation, i)
		}
		if in.Time.IsZero() {
			return fmt.Errorf("%w: observation %d has no time", utils.ErrValidation, i)
		}
		observations = append(observations, models.SalesObservation{
			DatasetID: datasetID,
			SKU:       in.SKU,
			Time:      in.Time,
			Quantity:  in.Quantity,
		})
	}

	return s.datasetRepo.AddObservations(observations)
}

// Get returns a dataset by ID.
func (s *DatasetService) Get(id uint) (*models.Dataset, error) {
	dataset, err := s.datasetRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("dataset %d: %w", id, utils.ErrNotFound)
		}
		return nil, err
	}
	return dataset, nil
}

// List returns a page of datasets with the total count.
func (s *DatasetService) List(pagination utils.PaginationRequest) ([]models.Dataset, int64, error) {
	return s.datasetRepo.List(pagination.Offset(), pagination.Limit)
}

// SKUs returns the distinct SKUs present in a dataset.
func (s *DatasetService) SKUs(datasetID uint) ([]string, error) {
	if _, err := s.Get(datasetID); err != nil {
		return nil, err
	}
	return s.datasetRepo.ListSKUs(datasetID)
}

// Delete removes a dataset and its observations.
func (s *DatasetService) Delete(id uint) error {
	if err := s.datasetRepo.Delete(id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("dataset %d: %w", id, utils.ErrNotFound)
		}
		return err
	}
	return nil
}
