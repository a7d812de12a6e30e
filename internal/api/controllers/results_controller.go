package controllers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/db/models"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/scoring"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/services"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ResultsRequest narrows results queries to a single method
type ResultsRequest struct {
	Method string `form:"method" binding:"omitempty,oneof=grid ai"`
	Format string `form:"format" binding:"omitempty,oneof=json csv"`
}

// ResultsController handles best-result and export requests
type ResultsController struct {
	resultsService *services.ResultsService
	logger         *utils.Logger
}

// NewResultsController creates a new results controller
func NewResultsController(resultsService *services.ResultsService, logger *utils.Logger) *ResultsController {
	return &ResultsController{
		resultsService: resultsService,
		logger:         logger.Named("results_controller"),
	}
}

// RegisterRoutes registers the results routes under /datasets/:id
func (c *ResultsController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/results", c.Matrix)
	router.GET("/export", c.Export)
}

// Matrix returns the complete model x method x SKU recommendation matrix
func (c *ResultsController) Matrix(ctx *gin.Context) {
	datasetID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req ResultsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	matrix, err := c.resultsService.Matrix(datasetID, models.JobMethod(req.Method))
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, matrix)
}

// Export returns the flat per-result report, as JSON or CSV
func (c *ResultsController) Export(ctx *gin.Context) {
	datasetID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req ResultsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	rows, err := c.resultsService.Export(datasetID, models.JobMethod(req.Method))
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	if req.Format == "csv" {
		c.writeCSV(ctx, datasetID, rows)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"rows": rows, "count": len(rows)})
}

func (c *ResultsController) writeCSV(ctx *gin.Context, datasetID uint, rows []scoring.ExportRow) {
	ctx.Header("Content-Type", "text/csv")
	ctx.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=optimization-results-%d.csv", datasetID))

	w := csv.NewWriter(ctx.Writer)
	header := []string{
		"job_id", "batch_id", "sku", "model_id", "method", "success", "error",
		"parameters", "mape", "rmse", "mae", "accuracy",
		"normalized_mape", "normalized_rmse", "normalized_mae", "score",
	}
	if err := w.Write(header); err != nil {
		c.logger.Error("Failed to write CSV header", zap.Error(err))
		return
	}

	for _, row := range rows {
		params, err := json.Marshal(row.Parameters)
		if err != nil {
			params = []byte("{}")
		}
		record := []string{
			strconv.FormatUint(uint64(row.JobID), 10),
			row.BatchID,
			row.SKU,
			row.ModelID,
			string(row.Method),
			strconv.FormatBool(row.Success),
			row.Error,
			string(params),
			formatMetric(row.MAPE),
			formatMetric(row.RMSE),
			formatMetric(row.MAE),
			formatMetric(row.Accuracy),
			formatMetric(row.NormalizedMAPE),
			formatMetric(row.NormalizedRMSE),
			formatMetric(row.NormalizedMAE),
			formatMetric(row.Score),
		}
		if err := w.Write(record); err != nil {
			c.logger.Error("Failed to write CSV row", zap.Error(err))
			return
		}
	}
	w.Flush()
}

func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
