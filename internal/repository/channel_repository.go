package repository

import (
	"context"

	"channel-inventory-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChannelRepository handles locally-synced channel data: orders, products,
// product options and raw channel stock records. All writes are idempotent
// upserts on the record's natural key.
type ChannelRepository struct {
	db *gorm.DB
}

// NewChannelRepository creates a new channel data repository
func NewChannelRepository(db *gorm.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// UpsertOrders writes one batch of order rows, updating on idempotency key
// conflicts so re-ingesting an overlapping window never duplicates.
func (r *ChannelRepository) UpsertOrders(ctx context.Context, orders []models.ChannelOrder) error {
	if len(orders) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "idempotency_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"sku", "product_name", "option_name", "quantity", "unit_price",
				"order_status", "orderer_name", "ordered_at", "paid_at", "synced_at", "updated_at",
			}),
		}).
		Create(&orders).Error
}

// UpsertProducts writes one batch of parent product rows on the
// (channel, external_product_id) key.
func (r *ChannelRepository) UpsertProducts(ctx context.Context, products []models.ChannelProduct) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "channel"}, {Name: "external_product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "status", "sku", "synced_at", "updated_at",
			}),
		}).
		Create(&products).Error
}

// GetProductByExternal loads the local row for an external product.
func (r *ChannelRepository) GetProductByExternal(ctx context.Context, channel models.ChannelType, externalProductID string) (*models.ChannelProduct, error) {
	var product models.ChannelProduct
	err := r.db.WithContext(ctx).
		Where("channel = ? AND external_product_id = ?", channel, externalProductID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// UpsertProductOptions writes variant sub-rows from the product detail pass
// on the (channel_product_id, external_option_id) key.
func (r *ChannelRepository) UpsertProductOptions(ctx context.Context, options []models.ChannelProductOption) error {
	if len(options) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "channel_product_id"}, {Name: "external_option_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"option_name", "sku", "stock_quantity", "price", "updated_at",
			}),
		}).
		Create(&options).Error
}

// UpsertStocks writes one batch of raw channel stock rows on the composite
// (channel, channel_sku, external_product_id, option_signature) key.
func (r *ChannelRepository) UpsertStocks(ctx context.Context, stocks []models.ChannelStock) error {
	if len(stocks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "channel"}, {Name: "channel_sku"},
				{Name: "external_product_id"}, {Name: "option_signature"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"external_product_name", "stock_quantity", "is_displayed", "is_selling",
				"synced_at", "updated_at",
			}),
		}).
		Create(&stocks).Error
}

// StocksBySKUs returns every raw channel stock row for the SKU set in one
// consistent read; the aggregation engine de-duplicates from this snapshot.
func (r *ChannelRepository) StocksBySKUs(ctx context.Context, skus []string) ([]models.ChannelStock, error) {
	if len(skus) == 0 {
		return nil, nil
	}
	var stocks []models.ChannelStock
	err := r.db.WithContext(ctx).
		Where("channel_sku IN ?", skus).
		Find(&stocks).Error
	return stocks, err
}

// CountOrders returns the number of stored order rows for a channel.
func (r *ChannelRepository) CountOrders(ctx context.Context, channel models.ChannelType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChannelOrder{}).
		Where("channel = ?", channel).
		Count(&count).Error
	return count, err
}
