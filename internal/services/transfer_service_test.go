package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"channel-inventory-service/internal/models"
	"channel-inventory-service/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type transferFixture struct {
	db        *gorm.DB
	service   *TransferService
	inventory *repository.InventoryRepository
	source    *models.Warehouse
	dest      *models.Warehouse
}

func newTransferFixture(t *testing.T) *transferFixture {
	db := newTestDB(t)
	inventoryRepo := repository.NewInventoryRepository(db, nil)
	transferRepo := repository.NewTransferRepository(db)
	service := NewTransferService(transferRepo, inventoryRepo, nil)

	ctx := context.Background()
	source := &models.Warehouse{Code: "WH-SRC", Name: "Source", IsActive: true}
	dest := &models.Warehouse{Code: "WH-DST", Name: "Destination", IsActive: true}
	require.NoError(t, inventoryRepo.CreateWarehouse(ctx, source))
	require.NoError(t, inventoryRepo.CreateWarehouse(ctx, dest))

	return &transferFixture{
		db:        db,
		service:   service,
		inventory: inventoryRepo,
		source:    source,
		dest:      dest,
	}
}

func (f *transferFixture) seedStock(t *testing.T, warehouseID uuid.UUID, sku string, quantity int) {
	t.Helper()
	require.NoError(t, f.inventory.UpsertWarehouseStock(context.Background(), &models.WarehouseStock{
		WarehouseID: warehouseID,
		SKU:         sku,
		Quantity:    quantity,
	}))
}

func (f *transferFixture) stockAt(t *testing.T, warehouseID uuid.UUID, sku string) int {
	t.Helper()
	var stock models.WarehouseStock
	err := f.db.Where("warehouse_id = ? AND sku = ?", warehouseID, sku).First(&stock).Error
	if err == gorm.ErrRecordNotFound {
		return -1
	}
	require.NoError(t, err)
	return stock.Quantity
}

func TestTransferConservation(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()
	f.seedStock(t, f.source.ID, "SKU-A", 100)
	f.seedStock(t, f.source.ID, "SKU-B", 50)
	f.seedStock(t, f.dest.ID, "SKU-A", 5)

	date := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	transfer, err := f.service.Create(ctx, CreateTransferRequest{
		FromWarehouseID: f.source.ID,
		ToWarehouseID:   f.dest.ID,
		TransferDate:    date,
		Items: []TransferLine{
			{SKU: "SKU-A", Quantity: 30},
			{SKU: "SKU-B", Quantity: 20},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "ST-20260830-0001", transfer.TransferNumber)
	assert.Equal(t, models.TransferStatusCompleted, transfer.Status)
	assert.Equal(t, 50, transfer.TotalQuantity)

	assert.Equal(t, 70, f.stockAt(t, f.source.ID, "SKU-A"))
	assert.Equal(t, 30, f.stockAt(t, f.source.ID, "SKU-B"))
	assert.Equal(t, 35, f.stockAt(t, f.dest.ID, "SKU-A"))
	// SKU-B had no destination row; it must be created, not fail.
	assert.Equal(t, 20, f.stockAt(t, f.dest.ID, "SKU-B"))
}

func TestTransferInsufficientStockRejectsWhole(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()
	f.seedStock(t, f.source.ID, "SKU-A", 100)
	f.seedStock(t, f.source.ID, "SKU-B", 5)

	_, err := f.service.Create(ctx, CreateTransferRequest{
		FromWarehouseID: f.source.ID,
		ToWarehouseID:   f.dest.ID,
		Items: []TransferLine{
			{SKU: "SKU-A", Quantity: 10},
			{SKU: "SKU-B", Quantity: 20},
		},
	})
	require.Error(t, err)

	var shortage *repository.InsufficientStockError
	require.True(t, errors.As(err, &shortage))
	assert.Equal(t, "SKU-B", shortage.SKU)
	assert.Equal(t, 5, shortage.Available)
	assert.Equal(t, 20, shortage.Requested)

	// Nothing moved and no transfer row survived the rollback.
	assert.Equal(t, 100, f.stockAt(t, f.source.ID, "SKU-A"))
	assert.Equal(t, 5, f.stockAt(t, f.source.ID, "SKU-B"))
	assert.Equal(t, -1, f.stockAt(t, f.dest.ID, "SKU-A"))

	var count int64
	require.NoError(t, f.db.Model(&models.StockTransfer{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestTransferMissingSourceRowRejects(t *testing.T) {
	f := newTransferFixture(t)

	_, err := f.service.Create(context.Background(), CreateTransferRequest{
		FromWarehouseID: f.source.ID,
		ToWarehouseID:   f.dest.ID,
		Items:           []TransferLine{{SKU: "SKU-GHOST", Quantity: 1}},
	})
	var shortage *repository.InsufficientStockError
	require.True(t, errors.As(err, &shortage))
	assert.Equal(t, 0, shortage.Available)
}

func TestTransferNumberSequenceAndDayReset(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()
	f.seedStock(t, f.source.ID, "SKU-A", 100)

	day1 := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	var numbers []string
	for i := 0; i < 3; i++ {
		transfer, err := f.service.Create(ctx, CreateTransferRequest{
			FromWarehouseID: f.source.ID,
			ToWarehouseID:   f.dest.ID,
			TransferDate:    day1,
			Items:           []TransferLine{{SKU: "SKU-A", Quantity: 1}},
		})
		require.NoError(t, err)
		numbers = append(numbers, transfer.TransferNumber)
	}
	assert.Equal(t, []string{"ST-20260829-0001", "ST-20260829-0002", "ST-20260829-0003"}, numbers)

	transfer, err := f.service.Create(ctx, CreateTransferRequest{
		FromWarehouseID: f.source.ID,
		ToWarehouseID:   f.dest.ID,
		TransferDate:    day2,
		Items:           []TransferLine{{SKU: "SKU-A", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ST-20260830-0001", transfer.TransferNumber, "sequence resets per transfer date")
}

func TestTransferValidation(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()
	f.seedStock(t, f.source.ID, "SKU-A", 10)

	_, err := f.service.Create(ctx, CreateTransferRequest{
		FromWarehouseID: f.source.ID,
		ToWarehouseID:   f.source.ID,
		Items:           []TransferLine{{SKU: "SKU-A", Quantity: 1}},
	})
	assert.ErrorContains(t, err, "must differ")

	_, err = f.service.Create(ctx, CreateTransferRequest{
		FromWarehouseID: f.source.ID,
		ToWarehouseID:   f.dest.ID,
	})
	assert.ErrorContains(t, err, "at least one line item")

	_, err = f.service.Create(ctx, CreateTransferRequest{
		FromWarehouseID: f.source.ID,
		ToWarehouseID:   f.dest.ID,
		Items:           []TransferLine{{SKU: "SKU-A", Quantity: 0}},
	})
	assert.ErrorContains(t, err, "must be positive")

	_, err = f.service.Create(ctx, CreateTransferRequest{
		FromWarehouseID: uuid.New(),
		ToWarehouseID:   f.dest.ID,
		Items:           []TransferLine{{SKU: "SKU-A", Quantity: 1}},
	})
	assert.ErrorContains(t, err, "source warehouse not found")
}

func TestTransferInactiveWarehouseRejected(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()
	f.seedStock(t, f.source.ID, "SKU-A", 10)

	require.NoError(t, f.inventory.UpdateWarehouse(ctx, f.dest.ID, map[string]interface{}{"is_active": false}))

	_, err := f.service.Create(ctx, CreateTransferRequest{
		FromWarehouseID: f.source.ID,
		ToWarehouseID:   f.dest.ID,
		Items:           []TransferLine{{SKU: "SKU-A", Quantity: 1}},
	})
	assert.ErrorContains(t, err, "inactive")
}

func TestTransferCancelReversesStock(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()
	f.seedStock(t, f.source.ID, "SKU-A", 100)

	transfer, err := f.service.Create(ctx, CreateTransferRequest{
		FromWarehouseID: f.source.ID,
		ToWarehouseID:   f.dest.ID,
		Items:           []TransferLine{{SKU: "SKU-A", Quantity: 40}},
	})
	require.NoError(t, err)

	// Terminal states cannot be cancelled.
	_, err = f.service.Cancel(ctx, transfer.ID)
	assert.ErrorContains(t, err, "cannot be cancelled")

	// Downgrade to a manual in-transit state, then cancel.
	require.NoError(t, f.db.Model(&models.StockTransfer{}).
		Where("id = ?", transfer.ID).
		Update("status", models.TransferStatusInTransit).Error)

	cancelled, err := f.service.Cancel(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusCancelled, cancelled.Status)

	assert.Equal(t, 100, f.stockAt(t, f.source.ID, "SKU-A"))
	assert.Equal(t, 0, f.stockAt(t, f.dest.ID, "SKU-A"))
}

func TestTransferStatusForwardOnly(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()
	f.seedStock(t, f.source.ID, "SKU-A", 50)

	transfer, err := f.service.Create(ctx, CreateTransferRequest{
		FromWarehouseID: f.source.ID,
		ToWarehouseID:   f.dest.ID,
		Items:           []TransferLine{{SKU: "SKU-A", Quantity: 10}},
	})
	require.NoError(t, err)

	// Completed is terminal: no downgrades.
	err = f.service.UpdateStatus(ctx, transfer.ID, string(models.TransferStatusInTransit))
	assert.ErrorContains(t, err, "cannot move from completed")
	err = f.service.UpdateStatus(ctx, transfer.ID, string(models.TransferStatusPending))
	assert.ErrorContains(t, err, "cannot move from completed")

	// Walk the forward lifecycle from a manually reset row.
	require.NoError(t, f.db.Model(&models.StockTransfer{}).
		Where("id = ?", transfer.ID).
		Update("status", models.TransferStatusPending).Error)

	require.NoError(t, f.service.UpdateStatus(ctx, transfer.ID, string(models.TransferStatusInTransit)))
	err = f.service.UpdateStatus(ctx, transfer.ID, string(models.TransferStatusPending))
	assert.ErrorContains(t, err, "cannot move from in_transit")
	require.NoError(t, f.service.UpdateStatus(ctx, transfer.ID, string(models.TransferStatusCompleted)))

	// Cancelled is reached through the cancel operation only.
	err = f.service.UpdateStatus(ctx, transfer.ID, string(models.TransferStatusCancelled))
	assert.ErrorContains(t, err, "use the cancel operation")
	err = f.service.UpdateStatus(ctx, transfer.ID, "shipped")
	assert.ErrorContains(t, err, "unknown transfer status")

	var reloaded models.StockTransfer
	require.NoError(t, f.db.First(&reloaded, "id = ?", transfer.ID).Error)
	assert.Equal(t, models.TransferStatusCompleted, reloaded.Status)
}

func TestTransferSoftDelete(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()
	f.seedStock(t, f.source.ID, "SKU-A", 10)

	transfer, err := f.service.Create(ctx, CreateTransferRequest{
		FromWarehouseID: f.source.ID,
		ToWarehouseID:   f.dest.ID,
		Items:           []TransferLine{{SKU: "SKU-A", Quantity: 2}},
	})
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, transfer.ID))

	_, err = f.service.Get(ctx, transfer.ID)
	assert.Error(t, err, "soft-deleted transfers are hidden")

	// The row survives for audit and the stock mutation stays applied.
	var count int64
	require.NoError(t, f.db.Unscoped().Model(&models.StockTransfer{}).
		Where("id = ?", transfer.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 8, f.stockAt(t, f.source.ID, "SKU-A"))
	assert.Equal(t, 2, f.stockAt(t, f.dest.ID, "SKU-A"))
}

func TestTransferListFilters(t *testing.T) {
	f := newTransferFixture(t)
	ctx := context.Background()
	f.seedStock(t, f.source.ID, "SKU-A", 100)

	for i := 0; i < 3; i++ {
		_, err := f.service.Create(ctx, CreateTransferRequest{
			FromWarehouseID: f.source.ID,
			ToWarehouseID:   f.dest.ID,
			Notes:           fmt.Sprintf("batch %d", i),
			Items:           []TransferLine{{SKU: "SKU-A", Quantity: 1}},
		})
		require.NoError(t, err)
	}

	transfers, total, err := f.service.List(ctx, repository.TransferFilter{
		Status:      models.TransferStatusCompleted,
		WarehouseID: f.source.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, transfers, 3)
	assert.Len(t, transfers[0].Items, 1)
	require.NotNil(t, transfers[0].FromWarehouse)
	assert.Equal(t, "WH-SRC", transfers[0].FromWarehouse.Code)
}
