package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/models"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/repository"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/registry"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/services"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
	"github.com/gin-gonic/gin"
)

// OptimizeRequest is the request body for enqueueing an optimization batch
type OptimizeRequest struct {
	Method   string          `json:"method" binding:"required,oneof=grid ai"`
	SKUs     []string        `json:"skus"`
	ModelIDs []string        `json:"model_ids"`
	Reason   string          `json:"reason"`
	Priority int             `json:"priority"`
	Payload  json.RawMessage `json:"payload"`
}

// JobListRequest narrows the job listing
type JobListRequest struct {
	Method  string `form:"method" binding:"omitempty,oneof=grid ai"`
	Status  string `form:"status" binding:"omitempty,oneof=pending running completed failed cancelled skipped"`
	SKU     string `form:"sku"`
	BatchID string `form:"batch_id"`
}

// OptimizationController handles optimization queue requests
type OptimizationController struct {
	jobService *services.JobService
	registry   *registry.Registry
	logger     *utils.Logger
}

// NewOptimizationController creates a new optimization controller
func NewOptimizationController(jobService *services.JobService, reg *registry.Registry, logger *utils.Logger) *OptimizationController {
	return &OptimizationController{
		jobService: jobService,
		registry:   reg,
		logger:     logger.Named("optimization_controller"),
	}
}

// RegisterRoutes registers the optimization routes under /datasets/:id
func (c *OptimizationController) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/optimize", c.Optimize)
	router.GET("/status", c.Status)
	router.POST("/reset", c.Reset)
	router.GET("/jobs", c.ListJobs)
}

// RegisterModelRoutes registers the model catalog routes
func (c *OptimizationController) RegisterModelRoutes(router *gin.RouterGroup) {
	router.GET("", c.ListModels)
	router.GET("/:model_id", c.GetModel)
}

// Optimize enqueues one job per eligible (model, SKU) pair of the request.
// Models opted out of grid search and ineligible pairs are reported in the
// counters, not treated as errors.
func (c *OptimizationController) Optimize(ctx *gin.Context) {
	datasetID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req OptimizeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	result, err := c.jobService.CreateJobs(services.CreateJobsRequest{
		DatasetID: datasetID,
		SKUs:      req.SKUs,
		ModelIDs:  req.ModelIDs,
		Method:    models.JobMethod(req.Method),
		Reason:    req.Reason,
		Priority:  req.Priority,
		Payload:   req.Payload,
	})
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusAccepted, result)
}

// Status returns the aggregate queue state for a dataset
func (c *OptimizationController) Status(ctx *gin.Context) {
	datasetID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	summary, err := c.jobService.Status(datasetID)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, summary)
}

// Reset deletes every job of the dataset so optimization can start over
func (c *OptimizationController) Reset(ctx *gin.Context) {
	datasetID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	deleted, err := c.jobService.Reset(datasetID)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// ListJobs returns a filtered page of the dataset's jobs
func (c *OptimizationController) ListJobs(ctx *gin.Context) {
	datasetID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req JobListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	filter := repository.JobFilter{
		DatasetID: datasetID,
		SKU:       req.SKU,
		Method:    models.JobMethod(req.Method),
		BatchID:   req.BatchID,
	}
	if req.Status != "" {
		filter.Statuses = []models.JobStatus{models.JobStatus(req.Status)}
	}

	pagination := utils.GetPaginationFromContext(ctx)
	jobs, total, err := c.jobService.ListJobs(filter, pagination)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, utils.NewPaginatedResponse(jobs, pagination, int(total)))
}

// ListModels returns the model catalog with grid sizes
func (c *OptimizationController) ListModels(ctx *gin.Context) {
	defs := c.registry.List()

	type modelView struct {
		*registry.ModelDefinition
		GridSize int `json:"grid_size"`
	}

	views := make([]modelView, 0, len(defs))
	for _, def := range defs {
		views = append(views, modelView{ModelDefinition: def, GridSize: registry.GridSize(def.ParameterGrid)})
	}

	ctx.JSON(http.StatusOK, gin.H{"models": views, "count": len(views)})
}

// GetModel returns one model definition by ID
func (c *OptimizationController) GetModel(ctx *gin.Context) {
	def, err := c.registry.Get(ctx.Param("model_id"))
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, def)
}
