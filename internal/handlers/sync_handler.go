package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"channel-inventory-service/internal/models"
	"channel-inventory-service/internal/repository"
	"channel-inventory-service/internal/services"
	"github.com/gin-gonic/gin"
)

// SyncHandler handles sync trigger and sync log endpoints. Trigger responses
// are always HTTP 200: either {success, synced, failed, total, message} or
// {error}, so the operator UI has a single decode path.
type SyncHandler struct {
	service  *services.SyncService
	syncLogs *repository.SyncLogRepository
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(service *services.SyncService, syncLogs *repository.SyncLogRepository) *SyncHandler {
	return &SyncHandler{service: service, syncLogs: syncLogs}
}

type syncRequest struct {
	VendorID  string `json:"vendorId" binding:"required"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Status    string `json:"status"`
}

// SyncOrders triggers an order sync for one channel
func (h *SyncHandler) SyncOrders(c *gin.Context) {
	h.runSync(c, h.service.SyncOrders)
}

// SyncProducts triggers a product sync for one channel
func (h *SyncHandler) SyncProducts(c *gin.Context) {
	h.runSync(c, h.service.SyncProducts)
}

// SyncInventory triggers an inventory sync for one channel
func (h *SyncHandler) SyncInventory(c *gin.Context) {
	h.runSync(c, h.service.SyncInventory)
}

func (h *SyncHandler) runSync(c *gin.Context, sync func(context.Context, models.ChannelType, string, services.SyncOptions) (*services.SyncResult, error)) {
	channel, err := models.ParseChannel(c.Param("channel"))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	opts := services.SyncOptions{Status: req.Status}
	if opts.StartDate, err = parseDate(req.StartDate); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}
	if opts.EndDate, err = parseDate(req.EndDate); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	result, err := sync(c.Request.Context(), channel, req.VendorID, opts)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	message := result.Message
	if message == "" {
		message = fmt.Sprintf("%s %s sync %s", result.Channel, result.SyncType, result.Status)
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"synced":  result.Synced,
		"failed":  result.Failed,
		"total":   result.Total,
		"message": message,
	})
}

// ListLogs returns sync audit rows, newest first
func (h *SyncHandler) ListLogs(c *gin.Context) {
	filter := repository.SyncLogFilter{
		SyncType: models.SyncType(c.Query("syncType")),
		Status:   models.SyncStatus(c.Query("status")),
	}
	if channelParam := c.Query("channel"); channelParam != "" {
		channel, err := models.ParseChannel(channelParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Channel = channel
	}
	if limit := c.Query("limit"); limit != "" {
		filter.Limit, _ = strconv.Atoi(limit)
	}
	if offset := c.Query("offset"); offset != "" {
		filter.Offset, _ = strconv.Atoi(offset)
	}

	logs, total, err := h.syncLogs.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  logs,
		"total": total,
	})
}

// parseDate accepts RFC3339 or plain YYYY-MM-DD values.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected RFC3339 or YYYY-MM-DD", s)
	}
	return t, nil
}
