package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/models"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbCounter atomic.Int64

// NewTestLogger creates a development logger writing to stdout
func NewTestLogger(t require.TestingT) *utils.Logger {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.OutputPaths = []string{"stdout"}
	zapLogger, err := zapConfig.Build()
	if err != nil {
		require.FailNow(t, "Failed to create zap logger", err)
	}
	return &utils.Logger{Logger: zapLogger}
}

// NewTestDatabase creates an isolated in-memory SQLite database with the
// engine schema migrated. Each call gets its own database.
func NewTestDatabase(t require.TestingT) (*db.Database, func()) {
	name := fmt.Sprintf("file:engine_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	gormDB, err := gorm.Open(sqlite.Open(name), &gorm.Config{})
	if err != nil {
		require.FailNow(t, "Failed to create in-memory database", err)
	}

	err = gormDB.AutoMigrate(
		&models.Dataset{},
		&models.SalesObservation{},
		&models.OptimizationJob{},
	)
	if err != nil {
		require.FailNow(t, "Failed to migrate test schema", err)
	}

	database := &db.Database{DB: gormDB}
	cleanup := func() {
		sqlDB, _ := gormDB.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	}
	return database, cleanup
}

// SeedDataset inserts a dataset with a monthly observation series per SKU.
// Series values cycle through quantities, starting at 2024-01-01.
func SeedDataset(t require.TestingT, database *db.Database, name string, series map[string][]float64) *models.Dataset {
	dataset := &models.Dataset{Name: name, Frequency: "monthly"}
	err := database.DB.Create(dataset).Error
	require.NoError(t, err)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for sku, values := range series {
		observations := make([]models.SalesObservation, 0, len(values))
		for i, v := range values {
			observations = append(observations, models.SalesObservation{
				DatasetID: dataset.ID,
				SKU:       sku,
				Time:      start.AddDate(0, i, 0),
				Quantity:  v,
			})
		}
		err = database.DB.Create(&observations).Error
		require.NoError(t, err)
	}

	return dataset
}

// MonthlySeries builds a deterministic series of the given length with a mild
// upward trend, useful where only eligibility counts matter.
func MonthlySeries(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 + float64(i)*2 + float64(i%3)
	}
	return values
}
