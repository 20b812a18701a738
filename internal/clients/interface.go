package clients

import (
	"context"
	"fmt"
	"time"

	"channel-inventory-service/internal/models"
)

// ChannelClient defines the interface that all sales-channel clients must
// implement. Raw channel response envelopes never leak past this layer; every
// method returns normalized external records.
type ChannelClient interface {
	// GetType returns the channel type
	GetType() models.ChannelType

	// Initialize sets up the client with credentials
	Initialize(ctx context.Context, credentials Credentials) error

	// TestConnection verifies the credentials are usable
	TestConnection(ctx context.Context) error

	// Orders
	GetOrders(ctx context.Context, query *OrderQuery) (*OrdersPage, error)

	// Products
	GetProducts(ctx context.Context, query *PageQuery) (*ProductsPage, error)
	GetProductDetail(ctx context.Context, externalProductID string) (*ExternalProductDetail, error)

	// Inventory
	GetInventory(ctx context.Context, query *PageQuery) (*InventoryPage, error)
}

// Credentials are the opaque per-channel secrets. Coupang uses the
// vendor/access/secret triple; Naver uses the OAuth client pair. Endpoint
// overrides the production base URL (sandbox and tests).
type Credentials struct {
	VendorID     string
	AccessKey    string
	SecretKey    string
	ClientID     string
	ClientSecret string
	Endpoint     string
}

// PageQuery contains common pagination options.
type PageQuery struct {
	Limit  int
	Cursor string
}

// OrderQuery extends PageQuery with the order date window and status filter.
type OrderQuery struct {
	PageQuery
	StartDate time.Time
	EndDate   time.Time
	Status    string
}

// ExternalOrder is one normalized order line item from a channel.
type ExternalOrder struct {
	OrderID     string
	LineItemID  string
	SKU         string
	ProductName string
	OptionName  string
	Quantity    int
	UnitPrice   float64
	Status      string
	OrdererName string
	OrderedAt   time.Time
	PaidAt      *time.Time
}

// ExternalProduct is one normalized parent product listing from a channel.
type ExternalProduct struct {
	ID     string
	Name   string
	Status string
	SKU    string
}

// ExternalProductOption is one variant/option of an external product.
type ExternalProductOption struct {
	OptionID      string
	Name          string
	SKU           string
	StockQuantity int
	Price         float64
}

// ExternalProductDetail is the per-product detail fetched in the product
// sync's second pass.
type ExternalProductDetail struct {
	ExternalProduct
	Options []ExternalProductOption
}

// ExternalInventory is one normalized channel-side stock record.
type ExternalInventory struct {
	ChannelSKU        string
	ExternalProductID string
	OptionSignature   string
	ProductName       string
	StockQuantity     int
	IsDisplayed       bool
	IsSelling         bool
}

// OrdersPage is one page of order results plus the continuation indicator.
type OrdersPage struct {
	Orders     []ExternalOrder
	NextCursor string
	HasMore    bool
}

// ProductsPage is one page of product results.
type ProductsPage struct {
	Products   []ExternalProduct
	NextCursor string
	HasMore    bool
}

// InventoryPage is one page of inventory results.
type InventoryPage struct {
	Records    []ExternalInventory
	NextCursor string
	HasMore    bool
}

// maxPages bounds any fetch-all loop against a channel that keeps returning
// a continuation cursor.
const maxPages = 1000

// FetchAllOrders drains every page of an order query sequentially. An empty
// first page is a valid "no data" terminal state, not an error.
func FetchAllOrders(ctx context.Context, c ChannelClient, query *OrderQuery) ([]ExternalOrder, error) {
	var all []ExternalOrder
	q := *query
	for page := 0; page < maxPages; page++ {
		result, err := c.GetOrders(ctx, &q)
		if err != nil {
			return nil, err
		}
		all = append(all, result.Orders...)
		if !result.HasMore || len(result.Orders) == 0 {
			return all, nil
		}
		q.Cursor = result.NextCursor
	}
	return nil, fmt.Errorf("%s: order pagination did not terminate after %d pages", c.GetType(), maxPages)
}

// FetchAllProducts drains every page of a product query sequentially.
func FetchAllProducts(ctx context.Context, c ChannelClient, query *PageQuery) ([]ExternalProduct, error) {
	var all []ExternalProduct
	q := *query
	for page := 0; page < maxPages; page++ {
		result, err := c.GetProducts(ctx, &q)
		if err != nil {
			return nil, err
		}
		all = append(all, result.Products...)
		if !result.HasMore || len(result.Products) == 0 {
			return all, nil
		}
		q.Cursor = result.NextCursor
	}
	return nil, fmt.Errorf("%s: product pagination did not terminate after %d pages", c.GetType(), maxPages)
}

// FetchAllInventory drains every page of an inventory query sequentially.
func FetchAllInventory(ctx context.Context, c ChannelClient, query *PageQuery) ([]ExternalInventory, error) {
	var all []ExternalInventory
	q := *query
	for page := 0; page < maxPages; page++ {
		result, err := c.GetInventory(ctx, &q)
		if err != nil {
			return nil, err
		}
		all = append(all, result.Records...)
		if !result.HasMore || len(result.Records) == 0 {
			return all, nil
		}
		q.Cursor = result.NextCursor
	}
	return nil, fmt.Errorf("%s: inventory pagination did not terminate after %d pages", c.GetType(), maxPages)
}

// ChannelAPIError is a typed failure from a channel API: a non-2xx response
// or a channel-level error code in the envelope. It aborts paging for the
// current invocation.
type ChannelAPIError struct {
	Channel    models.ChannelType
	StatusCode int
	Code       string
	Message    string
}

func (e *ChannelAPIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s API error (status %d, code %s): %s", e.Channel, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Channel, e.StatusCode, e.Message)
}

// UnsupportedChannelError is returned when a channel type is not supported.
type UnsupportedChannelError struct {
	Channel string
}

func (e *UnsupportedChannelError) Error() string {
	return "unsupported channel: " + e.Channel
}
