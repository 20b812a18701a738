package repository

import (
	"context"
	"encoding/json"
	"time"

	"channel-inventory-service/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const warehouseCacheKey = "warehouses:all"
const warehouseCacheTTL = 5 * time.Minute

// ProductFilter narrows the catalog slice the aggregation engine works on.
// SKUs takes precedence when set; the remaining fields combine with AND.
type ProductFilter struct {
	SKUs      []string
	Search    string
	ParentSKU string
	Color     string
	Size      string
}

// InventoryRepository handles the internal catalog, authoritative inventory
// snapshots, warehouses and warehouse stock. Reads used by every aggregation
// are single queries so the engine always sees one consistent snapshot.
type InventoryRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewInventoryRepository creates a new inventory repository. The redis client
// is optional; when nil, warehouse list caching is skipped.
func NewInventoryRepository(db *gorm.DB, redisClient *redis.Client) *InventoryRepository {
	return &InventoryRepository{db: db, redis: redisClient}
}

// UpsertProducts writes catalog rows keyed by SKU.
func (r *InventoryRepository) UpsertProducts(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"product_name", "parent_sku", "color", "size", "updated_at",
			}),
		}).
		Create(&products).Error
}

// ListProducts returns catalog rows matching the filter.
func (r *InventoryRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if len(filter.SKUs) > 0 {
		query = query.Where("sku IN ?", filter.SKUs)
	} else {
		if filter.Search != "" {
			like := "%" + filter.Search + "%"
			query = query.Where("sku LIKE ? OR product_name LIKE ?", like, like)
		}
		if filter.ParentSKU != "" {
			query = query.Where("parent_sku = ?", filter.ParentSKU)
		}
		if filter.Color != "" {
			query = query.Where("color = ?", filter.Color)
		}
		if filter.Size != "" {
			query = query.Where("size = ?", filter.Size)
		}
	}

	var products []models.Product
	err := query.Order("sku ASC").Find(&products).Error
	return products, err
}

// GetProduct loads one catalog row by SKU.
func (r *InventoryRepository) GetProduct(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "sku = ?", sku).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateInventoryItems appends a batch of authoritative stock observations.
// Rows are never updated in place; the snapshot history is the audit trail.
func (r *InventoryRepository) CreateInventoryItems(ctx context.Context, items []models.InventoryItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// CurrentItems returns the most recently synced inventory row per SKU in one
// query. Pass nil to read the current row for every SKU.
func (r *InventoryRepository) CurrentItems(ctx context.Context, skus []string) ([]models.InventoryItem, error) {
	latest := r.db.Model(&models.InventoryItem{}).
		Select("sku, MAX(synced_at) AS max_synced_at").
		Group("sku")
	if len(skus) > 0 {
		latest = latest.Where("sku IN ?", skus)
	}

	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Joins("JOIN (?) latest ON inventory_items.sku = latest.sku AND inventory_items.synced_at = latest.max_synced_at", latest).
		Order("inventory_items.sku ASC").
		Find(&items).Error
	return items, err
}

// ItemHistory returns the snapshot series for one SKU, newest first.
func (r *InventoryRepository) ItemHistory(ctx context.Context, sku string, limit int) ([]models.InventoryItem, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("sku = ?", sku).
		Order("synced_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// CreateWarehouse stores a warehouse; when it is flagged default, every other
// warehouse loses the flag in the same transaction.
func (r *InventoryRepository) CreateWarehouse(ctx context.Context, warehouse *models.Warehouse) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if warehouse.IsDefault {
			if err := tx.Model(&models.Warehouse{}).
				Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(warehouse).Error
	})
	if err == nil {
		r.invalidateWarehouseCache(ctx)
	}
	return err
}

// ListWarehouses returns non-deleted warehouses, served from redis when the
// cache is warm.
func (r *InventoryRepository) ListWarehouses(ctx context.Context, activeOnly bool) ([]models.Warehouse, error) {
	if r.redis != nil && !activeOnly {
		cached, err := r.redis.Get(ctx, warehouseCacheKey).Result()
		if err == nil {
			var warehouses []models.Warehouse
			if err := json.Unmarshal([]byte(cached), &warehouses); err == nil {
				return warehouses, nil
			}
		}
	}

	query := r.db.WithContext(ctx).Model(&models.Warehouse{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var warehouses []models.Warehouse
	if err := query.Order("created_at ASC").Find(&warehouses).Error; err != nil {
		return nil, err
	}

	if r.redis != nil && !activeOnly {
		if payload, err := json.Marshal(warehouses); err == nil {
			if err := r.redis.Set(ctx, warehouseCacheKey, payload, warehouseCacheTTL).Err(); err != nil {
				logrus.WithError(err).Warn("Failed to cache warehouse list")
			}
		}
	}
	return warehouses, nil
}

// GetWarehouse loads one non-deleted warehouse.
func (r *InventoryRepository) GetWarehouse(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	var warehouse models.Warehouse
	if err := r.db.WithContext(ctx).First(&warehouse, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &warehouse, nil
}

// UpdateWarehouse applies field updates; promoting to default demotes the
// previous default in the same transaction.
func (r *InventoryRepository) UpdateWarehouse(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if isDefault, ok := updates["is_default"].(bool); ok && isDefault {
			if err := tx.Model(&models.Warehouse{}).
				Where("is_default = ? AND id != ?", true, id).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		result := tx.Model(&models.Warehouse{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err == nil {
		r.invalidateWarehouseCache(ctx)
	}
	return err
}

// DeleteWarehouse soft-deletes a warehouse.
func (r *InventoryRepository) DeleteWarehouse(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Warehouse{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.invalidateWarehouseCache(ctx)
	return nil
}

// StocksForSKUs returns every warehouse stock row for the SKU set in one
// query; the aggregation engine builds its per-warehouse map from this.
func (r *InventoryRepository) StocksForSKUs(ctx context.Context, skus []string) ([]models.WarehouseStock, error) {
	if len(skus) == 0 {
		return nil, nil
	}
	var stocks []models.WarehouseStock
	err := r.db.WithContext(ctx).
		Where("sku IN ?", skus).
		Find(&stocks).Error
	return stocks, err
}

// StocksByWarehouse returns all stock rows at one warehouse.
func (r *InventoryRepository) StocksByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]models.WarehouseStock, error) {
	var stocks []models.WarehouseStock
	err := r.db.WithContext(ctx).
		Where("warehouse_id = ?", warehouseID).
		Order("sku ASC").
		Find(&stocks).Error
	return stocks, err
}

// UpsertWarehouseStock sets the absolute quantity of one SKU at one warehouse.
func (r *InventoryRepository) UpsertWarehouseStock(ctx context.Context, stock *models.WarehouseStock) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "warehouse_id"}, {Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).
		Create(stock).Error
}

func (r *InventoryRepository) invalidateWarehouseCache(ctx context.Context) {
	if r.redis == nil {
		return
	}
	if err := r.redis.Del(ctx, warehouseCacheKey).Err(); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate warehouse cache")
	}
}
