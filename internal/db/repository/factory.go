package repository

import "gorm.io/gorm"

// Factory creates repositories sharing one database connection
type Factory struct {
	db          *gorm.DB
	jobRepo     JobRepository
	datasetRepo DatasetRepository
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// Jobs returns the job repository
func (f *Factory) Jobs() JobRepository {
	if f.jobRepo == nil {
		f.jobRepo = NewJobRepository(f.db)
	}
	return f.jobRepo
}

// Datasets returns the dataset repository
func (f *Factory) Datasets() DatasetRepository {
	if f.datasetRepo == nil {
		f.datasetRepo = NewDatasetRepository(f.db)
	}
	return f.datasetRepo
}
