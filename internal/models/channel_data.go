package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChannelOrder is one synced order line item from a sales channel. The
// idempotency key is {CHANNEL}-{externalOrderID}-{externalLineItemID}, so
// re-running a sync over an overlapping window updates rather than duplicates.
type ChannelOrder struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	IdempotencyKey string      `gorm:"type:varchar(255);not null;uniqueIndex:idx_channel_orders_idem" json:"idempotencyKey"`
	Channel        ChannelType `gorm:"type:varchar(20);not null;index:idx_channel_orders_channel" json:"channel"`

	ExternalOrderID    string `gorm:"type:varchar(100);not null" json:"externalOrderId"`
	ExternalLineItemID string `gorm:"type:varchar(100);not null" json:"externalLineItemId"`

	SKU         string     `gorm:"type:varchar(100);index:idx_channel_orders_sku" json:"sku"`
	ProductName string     `gorm:"type:varchar(255)" json:"productName"`
	OptionName  string     `gorm:"type:varchar(255)" json:"optionName,omitempty"`
	Quantity    int        `gorm:"not null;default:0" json:"quantity"`
	UnitPrice   float64    `gorm:"type:decimal(12,2);not null;default:0" json:"unitPrice"`
	OrderStatus string     `gorm:"type:varchar(50)" json:"orderStatus"`
	OrdererName string     `gorm:"type:varchar(100)" json:"ordererName,omitempty"`
	OrderedAt   time.Time  `json:"orderedAt"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	SyncedAt    time.Time  `gorm:"not null" json:"syncedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ChannelOrder) TableName() string {
	return "channel_orders"
}

func (o *ChannelOrder) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// ChannelProduct is a synced parent product listing from a sales channel.
type ChannelProduct struct {
	ID                uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Channel           ChannelType `gorm:"type:varchar(20);not null;uniqueIndex:idx_channel_products_ext" json:"channel"`
	ExternalProductID string      `gorm:"type:varchar(100);not null;uniqueIndex:idx_channel_products_ext" json:"externalProductId"`
	Name              string      `gorm:"type:varchar(255)" json:"name"`
	Status            string      `gorm:"type:varchar(50)" json:"status"`
	SKU               string      `gorm:"type:varchar(100);index" json:"sku,omitempty"`
	SyncedAt          time.Time   `gorm:"not null" json:"syncedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Options []ChannelProductOption `gorm:"foreignKey:ChannelProductID" json:"options,omitempty"`
}

func (ChannelProduct) TableName() string {
	return "channel_products"
}

func (p *ChannelProduct) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ChannelProductOption is a variant/option sub-row filled in by the product
// sync's second detail pass.
type ChannelProductOption struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChannelProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_channel_product_options_ext" json:"channelProductId"`
	ExternalOptionID string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_channel_product_options_ext" json:"externalOptionId"`
	OptionName       string    `gorm:"type:varchar(255)" json:"optionName"`
	SKU              string    `gorm:"type:varchar(100);index" json:"sku,omitempty"`
	StockQuantity    int       `gorm:"not null;default:0" json:"stockQuantity"`
	Price            float64   `gorm:"type:decimal(12,2);not null;default:0" json:"price"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ChannelProductOption) TableName() string {
	return "channel_product_options"
}

func (o *ChannelProductOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// ChannelStock is one raw channel-side stock record. The logical identity is
// (channel, channel_sku, external_product_id, option_signature); repeated syncs
// upsert on that key, and the aggregation engine additionally keeps only the
// most recently synced row per key when historical duplicates exist.
type ChannelStock struct {
	ID                  uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Channel             ChannelType `gorm:"type:varchar(20);not null;uniqueIndex:idx_channel_stocks_key" json:"channel"`
	ChannelSKU          string      `gorm:"type:varchar(100);not null;uniqueIndex:idx_channel_stocks_key;index:idx_channel_stocks_sku" json:"channelSku"`
	ExternalProductID   string      `gorm:"type:varchar(100);not null;uniqueIndex:idx_channel_stocks_key" json:"externalProductId"`
	OptionSignature     string      `gorm:"type:varchar(255);not null;uniqueIndex:idx_channel_stocks_key" json:"optionSignature"`
	ExternalProductName string      `gorm:"type:varchar(255)" json:"externalProductName,omitempty"`
	StockQuantity       int         `gorm:"not null;default:0" json:"stockQuantity"`
	IsDisplayed         bool        `gorm:"default:true" json:"isDisplayed"`
	IsSelling           bool        `gorm:"default:true" json:"isSelling"`
	SyncedAt            time.Time   `gorm:"not null;index:idx_channel_stocks_synced" json:"syncedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ChannelStock) TableName() string {
	return "channel_stocks"
}

func (s *ChannelStock) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
