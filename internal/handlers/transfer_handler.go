package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"channel-inventory-service/internal/models"
	"channel-inventory-service/internal/repository"
	"channel-inventory-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransferHandler handles stock transfer endpoints. Creation responds with
// HTTP 200 {success,message} or {error}; a shortage puts the SKU detail in
// the error string.
type TransferHandler struct {
	service *services.TransferService
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(service *services.TransferService) *TransferHandler {
	return &TransferHandler{service: service}
}

// Create executes one atomic stock transfer
func (h *TransferHandler) Create(c *gin.Context) {
	var req services.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	transfer, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		var shortage *repository.InsufficientStockError
		if errors.As(err, &shortage) {
			c.JSON(http.StatusOK, gin.H{"error": shortage.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "transfer " + transfer.TransferNumber + " completed",
		"data":    transfer,
	})
}

// List returns transfers newest first
func (h *TransferHandler) List(c *gin.Context) {
	filter := repository.TransferFilter{
		Status: models.StockTransferStatus(c.Query("status")),
	}
	if warehouse := c.Query("warehouseId"); warehouse != "" {
		id, err := uuid.Parse(warehouse)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid warehouseId"})
			return
		}
		filter.WarehouseID = id
	}
	if limit := c.Query("limit"); limit != "" {
		filter.Limit, _ = strconv.Atoi(limit)
	}
	if offset := c.Query("offset"); offset != "" {
		filter.Offset, _ = strconv.Atoi(offset)
	}

	transfers, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  transfers,
		"total": total,
	})
}

// Get returns one transfer with lines and warehouses
func (h *TransferHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	transfer, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "transfer not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": transfer})
}

// Cancel reverses a non-terminal transfer
func (h *TransferHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	transfer, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "transfer not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "transfer " + transfer.TransferNumber + " cancelled",
	})
}

type updateTransferStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus applies a manual lifecycle transition
func (h *TransferHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req updateTransferStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "transfer not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Delete soft-deletes a transfer (audit hide)
func (h *TransferHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "transfer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
