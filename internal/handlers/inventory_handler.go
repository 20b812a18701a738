package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"channel-inventory-service/internal/repository"
	"channel-inventory-service/internal/services"
	"github.com/gin-gonic/gin"
)

// InventoryHandler handles the aggregated inventory read endpoints
type InventoryHandler struct {
	aggregation *services.AggregationService
	inventory   *repository.InventoryRepository
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(aggregation *services.AggregationService, inventory *repository.InventoryRepository) *InventoryHandler {
	return &InventoryHandler{aggregation: aggregation, inventory: inventory}
}

// List returns one aggregated item per matching SKU
func (h *InventoryHandler) List(c *gin.Context) {
	filter := services.AggregationFilter{
		Search:    c.Query("search"),
		ParentSKU: c.Query("parentSku"),
		Color:     c.Query("color"),
		Size:      c.Query("size"),
		Bucket:    services.StockBucket(c.Query("bucket")),
	}
	if skus := c.Query("skus"); skus != "" {
		filter.SKUs = strings.Split(skus, ",")
	}

	items, err := h.aggregation.Aggregate(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  items,
		"total": len(items),
	})
}

// Stats returns the inventory dashboard roll-up
func (h *InventoryHandler) Stats(c *gin.Context) {
	stats, err := h.aggregation.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// History returns the authoritative snapshot series for one SKU
func (h *InventoryHandler) History(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	items, err := h.inventory.ItemHistory(c.Request.Context(), c.Param("sku"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  items,
		"total": len(items),
	})
}
