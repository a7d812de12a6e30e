package services

import (
	"context"
	"fmt"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/config"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/fitclient"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/forecast"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/kafka"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/optimizer"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/registry"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/scoring"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
	"go.uber.org/zap"
)

// ServiceProvider manages all services for the application
type ServiceProvider struct {
	logger              *utils.Logger
	config              *config.Config
	database            *db.Database
	registry            *registry.Registry
	publisher           *kafka.Publisher
	datasetService      *DatasetService
	jobService          *JobService
	workerService       *WorkerService
	resultsService      *ResultsService
	notificationService *NotificationService
}

// NewServiceProvider creates a new service provider
func NewServiceProvider(
	logger *utils.Logger,
	config *config.Config,
	database *db.Database,
) *ServiceProvider {
	return &ServiceProvider{
		logger:   logger.Named("services"),
		config:   config,
		database: database,
	}
}

// Initialize initializes all services
func (sp *ServiceProvider) Initialize(ctx context.Context) error {
	var err error

	sp.registry = registry.NewRegistry()
	sp.logger.Info("Model registry initialized", zap.Int("models", len(sp.registry.List())))

	sp.publisher, err = kafka.NewPublisher(&sp.config.Kafka, sp.logger)
	if err != nil {
		return fmt.Errorf("failed to create Kafka publisher: %w", err)
	}
	if sp.publisher != nil {
		sp.logger.Info("Kafka publisher initialized")
	}

	var fitter forecast.Fitter = forecast.NewBuiltinFitter()
	if url := sp.config.Optimizer.FitServiceURL; url != "" {
		fitter = fitclient.NewClient(url, sp.logger)
		sp.logger.Info("Using remote fit service", zap.String("url", url))
	}

	opt := optimizer.New(sp.registry, fitter, &sp.config.Optimizer, sp.logger)

	sp.notificationService = NewNotificationService(sp.logger)
	sp.logger.Info("Notification service initialized")

	sp.datasetService = NewDatasetService(sp.database, sp.logger)
	sp.logger.Info("Dataset service initialized")

	sp.jobService, err = NewJobService(
		sp.database,
		sp.registry,
		sp.config.Optimizer.ValidationRatio,
		sp.publisher,
		sp.notificationService,
		sp.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create job service: %w", err)
	}
	sp.logger.Info("Job service initialized")

	sp.resultsService = NewResultsService(
		sp.database,
		sp.registry,
		scoring.WeightsFromConfig(&sp.config.Optimizer),
		sp.logger,
	)
	sp.logger.Info("Results service initialized")

	sp.workerService = NewWorkerService(
		sp.database,
		opt,
		sp.publisher,
		sp.notificationService,
		&sp.config.Worker,
		sp.logger,
	)
	sp.workerService.Start(ctx)
	sp.logger.Info("Worker service started")

	sp.logger.Info("All services initialized successfully")
	return nil
}

// Shutdown performs a graceful shutdown of all services
func (sp *ServiceProvider) Shutdown() error {
	sp.logger.Info("Shutting down services")

	if sp.workerService != nil {
		sp.logger.Info("Stopping worker service")
		sp.workerService.Stop()
	}

	if sp.publisher != nil {
		sp.logger.Info("Closing Kafka publisher")
		sp.publisher.Close()
	}

	sp.logger.Info("Services shut down successfully")
	return nil
}

// GetRegistry returns the model registry
func (sp *ServiceProvider) GetRegistry() *registry.Registry {
	return sp.registry
}

// GetDatasetService returns the dataset service
func (sp *ServiceProvider) GetDatasetService() *DatasetService {
	return sp.datasetService
}

// GetJobService returns the job service
func (sp *ServiceProvider) GetJobService() *JobService {
	return sp.jobService
}

// GetWorkerService returns the worker service
func (sp *ServiceProvider) GetWorkerService() *WorkerService {
	return sp.workerService
}

// GetResultsService returns the results service
func (sp *ServiceProvider) GetResultsService() *ResultsService {
	return sp.resultsService
}

// GetNotificationService returns the notification service
func (sp *ServiceProvider) GetNotificationService() *NotificationService {
	return sp.notificationService
}
