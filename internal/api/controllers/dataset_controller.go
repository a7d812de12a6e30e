package controllers

import (
	"net/http"
	"strconv"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/services"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
	"github.com/gin-gonic/gin"
)

// DatasetController handles dataset and sales-history requests
type DatasetController struct {
	datasetService *services.DatasetService
	logger         *utils.Logger
}

// NewDatasetController creates a new dataset controller
func NewDatasetController(datasetService *services.DatasetService, logger *utils.Logger) *DatasetController {
	return &DatasetController{
		datasetService: datasetService,
		logger:         logger.Named("dataset_controller"),
	}
}

// RegisterRoutes registers the dataset routes
func (c *DatasetController) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("", c.Create)
	router.GET("", c.List)
	router.GET("/:id", c.Get)
	router.DELETE("/:id", c.Delete)
	router.POST("/:id/observations", c.AddObservations)
	router.GET("/:id/skus", c.ListSKUs)
}

// Create stores a new dataset, optionally with its initial observations
func (c *DatasetController) Create(ctx *gin.Context) {
	var req services.CreateDatasetRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	dataset, err := c.datasetService.Create(req)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusCreated, dataset)
}

// List returns a page of datasets
func (c *DatasetController) List(ctx *gin.Context) {
	pagination := utils.GetPaginationFromContext(ctx)

	datasets, total, err := c.datasetService.List(pagination)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, utils.NewPaginatedResponse(datasets, pagination, int(total)))
}

// Get returns one dataset by ID
func (c *DatasetController) Get(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	dataset, err := c.datasetService.Get(id)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, dataset)
}

// Delete removes a dataset and its observations
func (c *DatasetController) Delete(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.datasetService.Delete(id); err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// AddObservations appends sales observations to a dataset
func (c *DatasetController) AddObservations(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req struct {
		Observations []services.ObservationInput `json:"observations" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	if err := c.datasetService.AddObservations(id, req.Observations); err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"added": len(req.Observations)})
}

// ListSKUs returns the distinct SKUs present in a dataset
func (c *DatasetController) ListSKUs(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	skus, err := c.datasetService.SKUs(id)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"skus": skus, "count": len(skus)})
}

// parseIDParam reads a numeric path parameter, answering 400 itself on failure.
func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || id == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " parameter"})
		return 0, false
	}
	return uint(id), true
}
