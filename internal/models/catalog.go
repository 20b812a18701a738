package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the internal catalog entry a SKU belongs to.
type Product struct {
	SKU                 string     `gorm:"type:varchar(100);primaryKey" json:"sku"`
	ProductName         string     `gorm:"type:varchar(255);not null" json:"productName"`
	ParentSKU           string     `gorm:"type:varchar(100);index" json:"parentSku,omitempty"`
	Color               string     `gorm:"type:varchar(50)" json:"color,omitempty"`
	Size                string     `gorm:"type:varchar(50)" json:"size,omitempty"`
	PriorityWarehouseID *uuid.UUID `gorm:"type:uuid" json:"priorityWarehouseId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Product) TableName() string {
	return "products"
}

// InventoryItem is one authoritative stock observation for a SKU. Rows form a
// time series; only the most recently synced row per SKU is current.
type InventoryItem struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SKU            string    `gorm:"type:varchar(100);not null;index:idx_inventory_items_sku" json:"sku"`
	CurrentStock   int       `gorm:"not null;default:0" json:"currentStock"`
	PreviousStock  int       `gorm:"not null;default:0" json:"previousStock"`
	StockChange    int       `gorm:"not null;default:0" json:"stockChange"`
	AlertThreshold int       `gorm:"not null;default:0" json:"alertThreshold"`
	SyncedAt       time.Time `gorm:"not null;index:idx_inventory_items_synced" json:"syncedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (InventoryItem) TableName() string {
	return "inventory_items"
}

func (i *InventoryItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
