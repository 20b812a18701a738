package handlers

import (
	"net/http"

	"channel-inventory-service/internal/models"
	"channel-inventory-service/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WarehouseHandler handles warehouse CRUD endpoints
type WarehouseHandler struct {
	inventory *repository.InventoryRepository
}

// NewWarehouseHandler creates a new warehouse handler
func NewWarehouseHandler(inventory *repository.InventoryRepository) *WarehouseHandler {
	return &WarehouseHandler{inventory: inventory}
}

type createWarehouseRequest struct {
	Code      string `json:"code" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Type      string `json:"type"`
	IsDefault bool   `json:"isDefault"`
}

// Create registers a warehouse
func (h *WarehouseHandler) Create(c *gin.Context) {
	var req createWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	warehouse := &models.Warehouse{
		Code:      req.Code,
		Name:      req.Name,
		Type:      req.Type,
		IsActive:  true,
		IsDefault: req.IsDefault,
	}
	if err := h.inventory.CreateWarehouse(c.Request.Context(), warehouse); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": warehouse})
}

// List returns warehouses; ?active=true filters to active ones
func (h *WarehouseHandler) List(c *gin.Context) {
	warehouses, err := h.inventory.ListWarehouses(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  warehouses,
		"total": len(warehouses),
	})
}

// Get returns one warehouse with its stock rows
func (h *WarehouseHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	warehouse, err := h.inventory.GetWarehouse(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "warehouse not found"})
		return
	}
	stocks, err := h.inventory.StocksByWarehouse(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":   warehouse,
		"stocks": stocks,
	})
}

type updateWarehouseRequest struct {
	Name      *string `json:"name"`
	Type      *string `json:"type"`
	IsActive  *bool   `json:"isActive"`
	IsDefault *bool   `json:"isDefault"`
}

// Update applies partial field updates
func (h *WarehouseHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req updateWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsDefault != nil {
		updates["is_default"] = *req.IsDefault
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	if err := h.inventory.UpdateWarehouse(c.Request.Context(), id, updates); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "warehouse not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Delete soft-deletes a warehouse
func (h *WarehouseHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.inventory.DeleteWarehouse(c.Request.Context(), id); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "warehouse not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
