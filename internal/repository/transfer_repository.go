package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"channel-inventory-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InsufficientStockError reports a transfer line whose source warehouse does
// not hold the requested quantity. It carries enough detail for the caller to
// correct the request.
type InsufficientStockError struct {
	SKU       string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d",
		e.SKU, e.Available, e.Requested)
}

// TransferFilter narrows the transfer listing.
type TransferFilter struct {
	Status      models.StockTransferStatus
	WarehouseID uuid.UUID
	Limit       int
	Offset      int
}

// TransferRepository handles stock transfers. Creation and cancellation run
// inside one transaction each, so warehouse stock is never partially mutated.
type TransferRepository struct {
	db *gorm.DB
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *gorm.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// Create persists the transfer header plus line items and applies both-sided
// stock mutations atomically. Validation happens before any write: every line
// is checked against source availability, and the debit itself is conditional
// on quantity so a concurrent writer cannot push stock negative. Any failure
// rolls back the whole transfer.
func (r *TransferRepository) Create(ctx context.Context, transfer *models.StockTransfer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range transfer.Items {
			var stock models.WarehouseStock
			err := tx.Where("warehouse_id = ? AND sku = ?", transfer.FromWarehouseID, item.SKU).
				First(&stock).Error
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return &InsufficientStockError{SKU: item.SKU, Available: 0, Requested: item.Quantity}
				}
				return err
			}
			if stock.Quantity < item.Quantity {
				return &InsufficientStockError{SKU: item.SKU, Available: stock.Quantity, Requested: item.Quantity}
			}
		}

		number, err := nextTransferNumber(tx, transfer)
		if err != nil {
			return err
		}
		transfer.TransferNumber = number
		transfer.Status = models.TransferStatusCompleted

		total := 0
		for i := range transfer.Items {
			transfer.Items[i].Position = i
			total += transfer.Items[i].Quantity
		}
		transfer.TotalQuantity = total

		if err := tx.Create(transfer).Error; err != nil {
			return err
		}

		for _, item := range transfer.Items {
			result := tx.Model(&models.WarehouseStock{}).
				Where("warehouse_id = ? AND sku = ? AND quantity >= ?",
					transfer.FromWarehouseID, item.SKU, item.Quantity).
				Update("quantity", gorm.Expr("quantity - ?", item.Quantity))
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				// Raced against a concurrent debit since validation.
				available := 0
				var stock models.WarehouseStock
				if err := tx.Where("warehouse_id = ? AND sku = ?", transfer.FromWarehouseID, item.SKU).
					First(&stock).Error; err == nil {
					available = stock.Quantity
				}
				return &InsufficientStockError{SKU: item.SKU, Available: available, Requested: item.Quantity}
			}
		}

		for _, item := range transfer.Items {
			if err := creditStock(tx, transfer.ToWarehouseID, item.SKU, item.Quantity); err != nil {
				return err
			}
		}

		return nil
	})
}

// Cancel reverses a non-terminal transfer: destination stock is conditionally
// debited back and the source re-credited in one transaction, then the status
// becomes cancelled.
func (r *TransferRepository) Cancel(ctx context.Context, id uuid.UUID) (*models.StockTransfer, error) {
	var transfer models.StockTransfer
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&transfer, "id = ?", id).Error; err != nil {
			return err
		}
		if transfer.Status == models.TransferStatusCompleted || transfer.Status == models.TransferStatusCancelled {
			return fmt.Errorf("transfer %s cannot be cancelled from status %s", transfer.TransferNumber, transfer.Status)
		}

		for _, item := range transfer.Items {
			result := tx.Model(&models.WarehouseStock{}).
				Where("warehouse_id = ? AND sku = ? AND quantity >= ?",
					transfer.ToWarehouseID, item.SKU, item.Quantity).
				Update("quantity", gorm.Expr("quantity - ?", item.Quantity))
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("cannot cancel %s: destination stock for %s already consumed",
					transfer.TransferNumber, item.SKU)
			}
			if err := creditStock(tx, transfer.FromWarehouseID, item.SKU, item.Quantity); err != nil {
				return err
			}
		}

		transfer.Status = models.TransferStatusCancelled
		return tx.Model(&models.StockTransfer{}).
			Where("id = ?", id).
			Update("status", models.TransferStatusCancelled).Error
	})
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// transferStatusRank orders the forward lifecycle. Cancelled sits outside it
// and is reachable only through Cancel.
var transferStatusRank = map[models.StockTransferStatus]int{
	models.TransferStatusPending:   0,
	models.TransferStatusInTransit: 1,
	models.TransferStatusCompleted: 2,
}

// UpdateStatus applies a manual lifecycle transition without touching stock.
// Only forward moves are allowed; completed and cancelled are terminal.
func (r *TransferRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.StockTransferStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var transfer models.StockTransfer
		if err := tx.First(&transfer, "id = ?", id).Error; err != nil {
			return err
		}
		if transfer.Status == models.TransferStatusCancelled {
			return fmt.Errorf("transfer %s is cancelled", transfer.TransferNumber)
		}
		from, ok := transferStatusRank[transfer.Status]
		to, okTarget := transferStatusRank[status]
		if !ok || !okTarget || to <= from {
			return fmt.Errorf("transfer %s cannot move from %s to %s",
				transfer.TransferNumber, transfer.Status, status)
		}
		return tx.Model(&models.StockTransfer{}).
			Where("id = ?", id).
			Update("status", status).Error
	})
}

// Get loads one transfer with its line items and warehouse endpoints.
func (r *TransferRepository) Get(ctx context.Context, id uuid.UUID) (*models.StockTransfer, error) {
	var transfer models.StockTransfer
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("FromWarehouse").
		Preload("ToWarehouse").
		First(&transfer, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// List returns transfers newest first with the total match count.
func (r *TransferRepository) List(ctx context.Context, filter TransferFilter) ([]models.StockTransfer, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StockTransfer{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.WarehouseID != uuid.Nil {
		query = query.Where("from_warehouse_id = ? OR to_warehouse_id = ?",
			filter.WarehouseID, filter.WarehouseID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var transfers []models.StockTransfer
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("FromWarehouse").
		Preload("ToWarehouse").
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&transfers).Error
	return transfers, total, err
}

// Delete soft-deletes a transfer for audit-hide purposes. Status and applied
// stock mutations are untouched.
func (r *TransferRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.StockTransfer{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// nextTransferNumber produces ST-YYYYMMDD-NNNN where NNNN continues today's
// sequence. Generated inside the creation transaction; the unique index on
// transfer_number is the backstop against a concurrent duplicate.
func nextTransferNumber(tx *gorm.DB, transfer *models.StockTransfer) (string, error) {
	prefix := "ST-" + transfer.TransferDate.Format("20060102") + "-"

	var last string
	err := tx.Model(&models.StockTransfer{}).
		Unscoped().
		Where("transfer_number LIKE ?", prefix+"%").
		Order("transfer_number DESC").
		Limit(1).
		Pluck("transfer_number", &last).Error
	if err != nil {
		return "", err
	}

	sequence := 1
	if last != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(last, prefix))
		if err != nil {
			return "", fmt.Errorf("malformed transfer number %q: %w", last, err)
		}
		sequence = n + 1
	}
	return fmt.Sprintf("%s%04d", prefix, sequence), nil
}

// creditStock increments destination stock, creating the row when the SKU has
// never been stocked at that warehouse.
func creditStock(tx *gorm.DB, warehouseID uuid.UUID, sku string, quantity int) error {
	result := tx.Model(&models.WarehouseStock{}).
		Where("warehouse_id = ? AND sku = ?", warehouseID, sku).
		Update("quantity", gorm.Expr("quantity + ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return tx.Create(&models.WarehouseStock{
			WarehouseID: warehouseID,
			SKU:         sku,
			Quantity:    quantity,
		}).Error
	}
	return nil
}
