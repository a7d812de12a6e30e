package repository

import (
	"time"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/models"
	"gorm.io/gorm"
)

// JobFilter narrows job queries. Zero-valued fields are ignored.
type JobFilter struct {
	DatasetID uint
	SKU       string
	ModelID   string
	Method    models.JobMethod
	BatchID   string
	Statuses  []models.JobStatus
}

// JobRepository defines the persistence operations the optimization engine
// needs for jobs
type JobRepository interface {
	Repository
	Create(job *models.OptimizationJob) error
	CreateBatch(jobs []*models.OptimizationJob) error
	GetByID(id uint) (*models.OptimizationJob, error)
	ClaimNextPending() (*models.OptimizationJob, error)
	UpdateProgress(id uint, percent int) error
	Complete(id uint, resultJSON string) error
	Fail(id uint, message string) error
	List(filter JobFilter, offset, limit int) ([]models.OptimizationJob, int64, error)
	ListCompleted(filter JobFilter) ([]models.OptimizationJob, error)
	CountByStatus(datasetID uint) (map[models.JobStatus]int64, error)
	Reset(filter JobFilter) (int64, error)
}

// jobRepository implements JobRepository
type jobRepository struct {
	BaseRepository
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create enqueues a single pending job
func (r *jobRepository) Create(job *models.OptimizationJob) error {
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	err := r.GetDB().Create(job).Error
	return r.handleError(err)
}

// CreateBatch enqueues a group of jobs sharing one batch ID
func (r *jobRepository) CreateBatch(jobs []*models.OptimizationJob) error {
	if len(jobs) == 0 {
		return nil
	}
	for _, job := range jobs {
		if job.Status == "" {
			job.Status = models.JobStatusPending
		}
	}
	err := r.GetDB().Create(jobs).Error
	return r.handleError(err)
}

// GetByID retrieves a job by ID
func (r *jobRepository) GetByID(id uint) (*models.OptimizationJob, error) {
	var job models.OptimizationJob
	err := r.GetDB().Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, r.handleError(err)
	}
	return &job, nil
}

// ClaimNextPending atomically claims the oldest eligible pending job: lowest
// priority value first, then earliest creation. The status check inside the
// update keeps the claim conditional, so a competing claimer cannot take the
// same job. Returns ErrNotFound when the queue is empty.
func (r *jobRepository) ClaimNextPending() (*models.OptimizationJob, error) {
	var claimed *models.OptimizationJob

	err := r.GetDB().Transaction(func(tx *gorm.DB) error {
		var job models.OptimizationJob
		if err := tx.
			Where("status = ?", models.JobStatusPending).
			Order("priority asc").
			Order("created_at asc").
			Order("id asc").
			First(&job).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		result := tx.Model(&models.OptimizationJob{}).
			Where("id = ? AND status = ?", job.ID, models.JobStatusPending).
			Updates(map[string]interface{}{
				"status":     models.JobStatusRunning,
				"progress":   0,
				"started_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		job.Status = models.JobStatusRunning
		job.Progress = 0
		job.StartedAt = &now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, r.handleError(err)
	}

	return claimed, nil
}

// UpdateProgress persists a progress percentage for a running job. Progress
// never moves backwards.
func (r *jobRepository) UpdateProgress(id uint, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	err := r.GetDB().Model(&models.OptimizationJob{}).
		Where("id = ? AND status = ? AND progress <= ?", id, models.JobStatusRunning, percent).
		Update("progress", percent).Error
	return r.handleError(err)
}

// Complete transitions a running job to completed with its result payload
func (r *jobRepository) Complete(id uint, resultJSON string) error {
	result := r.GetDB().Model(&models.OptimizationJob{}).
		Where("id = ? AND status = ?", id, models.JobStatusRunning).
		Updates(map[string]interface{}{
			"status":       models.JobStatusCompleted,
			"progress":     100,
			"result_json":  resultJSON,
			"completed_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return r.handleError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Fail transitions a running job to failed with its error message
func (r *jobRepository) Fail(id uint, message string) error {
	result := r.GetDB().Model(&models.OptimizationJob{}).
		Where("id = ? AND status = ?", id, models.JobStatusRunning).
		Updates(map[string]interface{}{
			"status":       models.JobStatusFailed,
			"error":        message,
			"completed_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return r.handleError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List retrieves a filtered, paginated job listing, newest first
func (r *jobRepository) List(filter JobFilter, offset, limit int) ([]models.OptimizationJob, int64, error) {
	var jobs []models.OptimizationJob
	var total int64

	query := applyJobFilter(r.GetDB().Model(&models.OptimizationJob{}), filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, r.handleError(err)
	}

	err := query.Order("created_at desc").Order("id desc").
		Offset(offset).Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, 0, r.handleError(err)
	}

	return jobs, total, nil
}

// ListCompleted retrieves every completed job matching the filter, oldest
// first so aggregation tie-breaks on first-seen order.
func (r *jobRepository) ListCompleted(filter JobFilter) ([]models.OptimizationJob, error) {
	filter.Statuses = []models.JobStatus{models.JobStatusCompleted}

	var jobs []models.OptimizationJob
	err := applyJobFilter(r.GetDB().Model(&models.OptimizationJob{}), filter).
		Order("created_at asc").Order("id asc").
		Find(&jobs).Error
	if err != nil {
		return nil, r.handleError(err)
	}
	return jobs, nil
}

// CountByStatus returns job counts per status for a dataset
func (r *jobRepository) CountByStatus(datasetID uint) (map[models.JobStatus]int64, error) {
	type row struct {
		Status models.JobStatus
		Count  int64
	}

	var rows []row
	err := r.GetDB().Model(&models.OptimizationJob{}).
		Select("status, count(*) as count").
		Where("dataset_id = ?", datasetID).
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, r.handleError(err)
	}

	counts := make(map[models.JobStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// Reset deletes every job matching the filter. Deletion is the external
// reset operation; completed history is removed outright, not flag-updated.
func (r *jobRepository) Reset(filter JobFilter) (int64, error) {
	result := applyJobFilter(r.GetDB(), filter).Delete(&models.OptimizationJob{})
	if result.Error != nil {
		return 0, r.handleError(result.Error)
	}
	return result.RowsAffected, nil
}

func applyJobFilter(query *gorm.DB, filter JobFilter) *gorm.DB {
	if filter.DatasetID != 0 {
		query = query.Where("dataset_id = ?", filter.DatasetID)
	}
	if filter.SKU != "" {
		query = query.Where("sku = ?", filter.SKU)
	}
	if filter.ModelID != "" {
		query = query.Where("model_id = ?", filter.ModelID)
	}
	if filter.Method != "" {
		query = query.Where("method = ?", filter.Method)
	}
	if filter.BatchID != "" {
		query = query.Where("batch_id = ?", filter.BatchID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	return query
}
