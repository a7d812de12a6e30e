package api

import (
	"net/http"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/api/controllers"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/api/middleware"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/config"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/services"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Router manages the API routes and controllers
type Router struct {
	engine                 *gin.Engine
	logger                 *utils.Logger
	config                 *config.Config
	serviceProvider        *services.ServiceProvider
	db                     *db.Database
	apiV1                  *gin.RouterGroup
	datasetController      *controllers.DatasetController
	optimizationController *controllers.OptimizationController
	resultsController      *controllers.ResultsController
	wsController           *controllers.WebSocketController
}

// NewRouter creates a new Router instance
func NewRouter(
	config *config.Config,
	logger *utils.Logger,
	db *db.Database,
	serviceProvider *services.ServiceProvider,
) *Router {
	// Set Gin mode based on environment
	if config.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Use the logger and recovery middleware
	engine.Use(gin.Recovery())
	engine.Use(middleware.LoggingMiddleware(logger))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Authorization", "Content-Type", "Origin"}
	engine.Use(cors.New(corsConfig))

	return &Router{
		engine:          engine,
		logger:          logger.Named("router"),
		config:          config,
		serviceProvider: serviceProvider,
		db:              db,
	}
}

// SetupRoutes configures all API routes
func (r *Router) SetupRoutes() {
	// Health check endpoint
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// API version group - all main API routes are under /api/v1
	r.apiV1 = r.engine.Group("/api/v1")

	// Setup controllers over the shared services
	r.datasetController = controllers.NewDatasetController(
		r.serviceProvider.GetDatasetService(), r.logger)
	r.optimizationController = controllers.NewOptimizationController(
		r.serviceProvider.GetJobService(), r.serviceProvider.GetRegistry(), r.logger)
	r.resultsController = controllers.NewResultsController(
		r.serviceProvider.GetResultsService(), r.logger)
	r.wsController = controllers.NewWebSocketController(
		r.serviceProvider.GetNotificationService(), r.logger)

	// Model catalog
	modelRoutes := r.apiV1.Group("/models")
	r.optimizationController.RegisterModelRoutes(modelRoutes)

	// Datasets and everything scoped to one dataset
	datasetRoutes := r.apiV1.Group("/datasets")
	r.datasetController.RegisterRoutes(datasetRoutes)

	perDataset := datasetRoutes.Group("/:id")
	r.optimizationController.RegisterRoutes(perDataset)
	r.resultsController.RegisterRoutes(perDataset)

	// Live job progress
	r.wsController.RegisterRoutes(r.engine.Group(""))

	r.logger.Info("API routes setup completed")
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
