package repository

import (
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/models"
	"gorm.io/gorm"
)

// DatasetRepository defines operations for datasets and their sales history
type DatasetRepository interface {
	Repository
	Create(dataset *models.Dataset) error
	GetByID(id uint) (*models.Dataset, error)
	List(offset, limit int) ([]models.Dataset, int64, error)
	Delete(id uint) error

	AddObservations(observations []models.SalesObservation) error
	GetSeries(datasetID uint, sku string) ([]float64, error)
	ListSKUs(datasetID uint) ([]string, error)
	ObservationCount(datasetID uint, sku string) (int64, error)
}

// datasetRepository implements DatasetRepository
type datasetRepository struct {
	BaseRepository
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *gorm.DB) DatasetRepository {
	return &datasetRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create adds a new dataset
func (r *datasetRepository) Create(dataset *models.Dataset) error {
	err := r.GetDB().Create(dataset).Error
	return r.handleError(err)
}

// GetByID retrieves a dataset by ID
func (r *datasetRepository) GetByID(id uint) (*models.Dataset, error) {
	var dataset models.Dataset
	err := r.GetDB().Where("id = ?", id).First(&dataset).Error
	if err != nil {
		return nil, r.handleError(err)
	}
	return &dataset, nil
}

// List retrieves a paginated list of datasets
func (r *datasetRepository) List(offset, limit int) ([]models.Dataset, int64, error) {
	var datasets []models.Dataset
	var total int64

	if err := r.GetDB().Model(&models.Dataset{}).Count(&total).Error; err != nil {
		return nil, 0, r.handleError(err)
	}

	err := r.GetDB().Offset(offset).Limit(limit).Order("id asc").Find(&datasets).Error
	if err != nil {
		return nil, 0, r.handleError(err)
	}

	return datasets, total, nil
}

// Delete removes a dataset and its observations
func (r *datasetRepository) Delete(id uint) error {
	tx := r.GetDB().Begin()
	if tx.Error != nil {
		return r.handleError(tx.Error)
	}

	if err := tx.Where("dataset_id = ?", id).Delete(&models.SalesObservation{}).Error; err != nil {
		tx.Rollback()
		return r.handleError(err)
	}

	result := tx.Delete(&models.Dataset{}, id)
	if result.Error != nil {
		tx.Rollback()
		return r.handleError(result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return ErrNotFound
	}

	return r.handleError(tx.Commit().Error)
}

// AddObservations ingests sales history rows
func (r *datasetRepository) AddObservations(observations []models.SalesObservation) error {
	if len(observations) == 0 {
		return nil
	}
	err := r.GetDB().CreateInBatches(observations, 500).Error
	return r.handleError(err)
}

// GetSeries returns a SKU's demand history ordered by time, oldest first
func (r *datasetRepository) GetSeries(datasetID uint, sku string) ([]float64, error) {
	var quantities []float64
	err := r.GetDB().Model(&models.SalesObservation{}).
		Where("dataset_id = ? AND sku = ?", datasetID, sku).
		Order("time asc").
		Pluck("quantity", &quantities).Error
	if err != nil {
		return nil, r.handleError(err)
	}
	return quantities, nil
}

// ListSKUs returns the distinct SKUs present in a dataset
func (r *datasetRepository) ListSKUs(datasetID uint) ([]string, error) {
	var skus []string
	err := r.GetDB().Model(&models.SalesObservation{}).
		Where("dataset_id = ?", datasetID).
		Distinct("sku").
		Order("sku asc").
		Pluck("sku", &skus).Error
	if err != nil {
		return nil, r.handleError(err)
	}
	return skus, nil
}

// ObservationCount returns the number of observations for one SKU
func (r *datasetRepository) ObservationCount(datasetID uint, sku string) (int64, error) {
	var count int64
	err := r.GetDB().Model(&models.SalesObservation{}).
		Where("dataset_id = ? AND sku = ?", datasetID, sku).
		Count(&count).Error
	if err != nil {
		return 0, r.handleError(err)
	}
	return count, nil
}
