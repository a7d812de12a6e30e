package controllers

import (
	"net/http"
	"strconv"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/services"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketController upgrades HTTP connections for live job progress
type WebSocketController struct {
	notificationService *services.NotificationService
	logger              *utils.Logger
	upgrader            websocket.Upgrader
}

// NewWebSocketController creates a new websocket controller
func NewWebSocketController(notificationService *services.NotificationService, logger *utils.Logger) *WebSocketController {
	return &WebSocketController{
		notificationService: notificationService,
		logger:              logger.Named("ws_controller"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers the websocket route
func (c *WebSocketController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", c.Connect)
}

// Connect upgrades the connection and subscribes it to job notifications.
// An optional dataset_id query parameter narrows the stream to one dataset.
func (c *WebSocketController) Connect(ctx *gin.Context) {
	var datasetID uint
	if raw := ctx.Query("dataset_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset_id parameter"})
			return
		}
		datasetID = uint(id)
	}

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Error("Failed to upgrade websocket connection", zap.Error(err))
		return
	}

	c.notificationService.RegisterClient(conn, datasetID)
	c.logger.Debug("Websocket client connected", zap.Uint("dataset_id", datasetID))
}
