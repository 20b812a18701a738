package services

import (
	"context"
	"fmt"
	"time"

	"channel-inventory-service/internal/events"
	"channel-inventory-service/internal/models"
	"channel-inventory-service/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TransferLine is one requested (sku, quantity) movement.
type TransferLine struct {
	SKU         string `json:"sku" binding:"required"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity" binding:"required"`
}

// CreateTransferRequest is the input for one atomic stock transfer.
type CreateTransferRequest struct {
	FromWarehouseID uuid.UUID      `json:"from_warehouse_id" binding:"required"`
	ToWarehouseID   uuid.UUID      `json:"to_warehouse_id" binding:"required"`
	TransferDate    time.Time      `json:"transfer_date"`
	Notes           string         `json:"notes"`
	Items           []TransferLine `json:"items" binding:"required"`
}

// TransferService moves stock between warehouses as a single logical unit:
// validate every line first, then commit header, items and both-sided stock
// mutations in one transaction. Insufficient stock rejects the whole transfer
// before any write sticks.
type TransferService struct {
	transfers *repository.TransferRepository
	inventory *repository.InventoryRepository
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewTransferService creates a new transfer service. The publisher may be nil.
func NewTransferService(transfers *repository.TransferRepository, inventory *repository.InventoryRepository, publisher *events.Publisher) *TransferService {
	return &TransferService{
		transfers: transfers,
		inventory: inventory,
		publisher: publisher,
		logger:    logrus.WithField("component", "transfer"),
	}
}

// Create validates and executes one transfer in the direct-completion model:
// stock moves immediately and the transfer lands in status completed.
func (s *TransferService) Create(ctx context.Context, req CreateTransferRequest) (*models.StockTransfer, error) {
	if req.FromWarehouseID == req.ToWarehouseID {
		return nil, fmt.Errorf("source and destination warehouse must differ")
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("a transfer requires at least one line item")
	}
	for _, line := range req.Items {
		if line.SKU == "" {
			return nil, fmt.Errorf("every transfer line requires a SKU")
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("quantity for %s must be positive", line.SKU)
		}
	}

	if err := s.checkWarehouse(ctx, req.FromWarehouseID, "source"); err != nil {
		return nil, err
	}
	if err := s.checkWarehouse(ctx, req.ToWarehouseID, "destination"); err != nil {
		return nil, err
	}

	transferDate := req.TransferDate
	if transferDate.IsZero() {
		transferDate = time.Now().UTC()
	}

	transfer := &models.StockTransfer{
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		TransferDate:    transferDate,
		Notes:           req.Notes,
	}
	for _, line := range req.Items {
		transfer.Items = append(transfer.Items, models.StockTransferItem{
			SKU:         line.SKU,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
		})
	}

	if err := s.transfers.Create(ctx, transfer); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"transferNumber": transfer.TransferNumber,
		"totalQuantity":  transfer.TotalQuantity,
	}).Info("Stock transfer completed")

	s.publisher.PublishTransferCompleted(&events.TransferCompletedEvent{
		TransferID:      transfer.ID.String(),
		TransferNumber:  transfer.TransferNumber,
		FromWarehouseID: transfer.FromWarehouseID.String(),
		ToWarehouseID:   transfer.ToWarehouseID.String(),
		TotalQuantity:   transfer.TotalQuantity,
		OccurredAt:      time.Now().UTC(),
	})
	return transfer, nil
}

func (s *TransferService) checkWarehouse(ctx context.Context, id uuid.UUID, role string) error {
	warehouse, err := s.inventory.GetWarehouse(ctx, id)
	if err != nil {
		return fmt.Errorf("%s warehouse not found", role)
	}
	if !warehouse.IsActive {
		return fmt.Errorf("%s warehouse %s is inactive", role, warehouse.Code)
	}
	return nil
}

// Get loads one transfer with lines and warehouse endpoints.
func (s *TransferService) Get(ctx context.Context, id uuid.UUID) (*models.StockTransfer, error) {
	return s.transfers.Get(ctx, id)
}

// List returns transfers matching the filter, newest first.
func (s *TransferService) List(ctx context.Context, filter repository.TransferFilter) ([]models.StockTransfer, int64, error) {
	return s.transfers.List(ctx, filter)
}

// Cancel reverses a non-terminal transfer's stock movement.
func (s *TransferService) Cancel(ctx context.Context, id uuid.UUID) (*models.StockTransfer, error) {
	transfer, err := s.transfers.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("transferNumber", transfer.TransferNumber).Info("Stock transfer cancelled")
	return transfer, nil
}

// UpdateStatus applies a manual lifecycle transition.
func (s *TransferService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	switch models.StockTransferStatus(status) {
	case models.TransferStatusPending, models.TransferStatusInTransit, models.TransferStatusCompleted:
		return s.transfers.UpdateStatus(ctx, id, models.StockTransferStatus(status))
	case models.TransferStatusCancelled:
		return fmt.Errorf("use the cancel operation to cancel a transfer")
	default:
		return fmt.Errorf("unknown transfer status: %s", status)
	}
}

// Delete soft-deletes a transfer for audit-hide purposes.
func (s *TransferService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.transfers.Delete(ctx, id)
}
