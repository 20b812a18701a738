package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Warehouse represents a storage location. At most one non-deleted warehouse
// is the default; soft-deleted warehouses are excluded from all operations.
type Warehouse struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code      string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Type      string    `gorm:"type:varchar(50)" json:"type,omitempty"`
	IsActive  bool      `gorm:"default:true" json:"isActive"`
	IsDefault bool      `gorm:"default:false" json:"isDefault"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"`
}

func (Warehouse) TableName() string {
	return "warehouses"
}

func (w *Warehouse) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// WarehouseStock is the quantity of one SKU at one warehouse. Quantity must
// never go negative; the transfer engine enforces this with a conditional
// debit inside one transaction.
type WarehouseStock struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_warehouse_stocks_loc" json:"warehouseId"`
	SKU         string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_warehouse_stocks_loc;index:idx_warehouse_stocks_sku" json:"sku"`
	Quantity    int       `gorm:"not null;default:0" json:"quantity"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (WarehouseStock) TableName() string {
	return "warehouse_stocks"
}

func (s *WarehouseStock) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// StockTransferStatus represents the lifecycle state of a stock transfer.
type StockTransferStatus string

const (
	TransferStatusPending   StockTransferStatus = "pending"
	TransferStatusInTransit StockTransferStatus = "in_transit"
	TransferStatusCompleted StockTransferStatus = "completed"
	TransferStatusCancelled StockTransferStatus = "cancelled"
)

// StockTransfer is a warehouse-to-warehouse movement recorded as one header
// plus ordered line items. Creation is atomic with both-sided stock mutation.
// Soft delete is orthogonal to status (audit hide).
type StockTransfer struct {
	ID              uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	TransferNumber  string              `gorm:"type:varchar(50);not null;uniqueIndex" json:"transferNumber"`
	FromWarehouseID uuid.UUID           `gorm:"type:uuid;not null;index" json:"fromWarehouseId"`
	ToWarehouseID   uuid.UUID           `gorm:"type:uuid;not null;index" json:"toWarehouseId"`
	TransferDate    time.Time           `gorm:"not null" json:"transferDate"`
	Status          StockTransferStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	TotalQuantity   int                 `gorm:"not null;default:0" json:"totalQuantity"`
	Notes           string              `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"`

	FromWarehouse *Warehouse          `gorm:"foreignKey:FromWarehouseID" json:"fromWarehouse,omitempty"`
	ToWarehouse   *Warehouse          `gorm:"foreignKey:ToWarehouseID" json:"toWarehouse,omitempty"`
	Items         []StockTransferItem `gorm:"foreignKey:TransferID" json:"items,omitempty"`
}

func (StockTransfer) TableName() string {
	return "stock_transfers"
}

func (t *StockTransfer) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// StockTransferItem is one (sku, quantity) line of a transfer.
type StockTransferItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TransferID  uuid.UUID `gorm:"type:uuid;not null;index" json:"transferId"`
	SKU         string    `gorm:"type:varchar(100);not null" json:"sku"`
	ProductName string    `gorm:"type:varchar(255)" json:"productName,omitempty"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	Position    int       `gorm:"not null;default:0" json:"position"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (StockTransferItem) TableName() string {
	return "stock_transfer_items"
}

func (i *StockTransferItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
