package coupang

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"channel-inventory-service/internal/clients"
	"channel-inventory-service/internal/models"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api-gateway.coupang.com"

	ordersPath      = "/v2/providers/openapi/apis/api/v4/vendors/%s/ordersheets"
	productsPath    = "/v2/providers/seller_api/apis/api/v1/marketplace/seller-products"
	productPath     = "/v2/providers/seller_api/apis/api/v1/marketplace/seller-products/%s"
	inventoriesPath = "/v2/providers/seller_api/apis/api/v1/marketplace/inventories"

	defaultPageSize = 50

	// MaxOrderWindow is the hard cap the gateway enforces on order queries.
	MaxOrderWindow = 30 * 24 * time.Hour

	// requestsPerMinute is the gateway's published rate budget.
	requestsPerMinute = 50
)

// ValidateOrderWindow rejects date ranges the gateway would refuse, so callers
// fail fast with a descriptive error instead of burning a request.
func ValidateOrderWindow(start, end time.Time) error {
	if end.Before(start) {
		return fmt.Errorf("invalid date range: end %s is before start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	if end.Sub(start) > MaxOrderWindow {
		return fmt.Errorf("date range %s ~ %s exceeds the 30-day maximum order query window",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return nil
}

// Client implements clients.ChannelClient for the Coupang Wing open API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	vendorID    string
	signer      *signer
	rateLimiter *rate.Limiter
}

// NewClient creates a new Coupang open API client.
func NewClient() *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     defaultBaseURL,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/requestsPerMinute), 1),
	}
}

// GetType returns the channel type
func (c *Client) GetType() models.ChannelType {
	return models.ChannelCoupang
}

// Initialize sets up the client with credentials
func (c *Client) Initialize(ctx context.Context, credentials clients.Credentials) error {
	if credentials.VendorID == "" {
		return fmt.Errorf("missing vendor id")
	}
	if credentials.AccessKey == "" {
		return fmt.Errorf("missing access key")
	}
	if credentials.SecretKey == "" {
		return fmt.Errorf("missing secret key")
	}
	c.vendorID = credentials.VendorID
	c.signer = newSigner(credentials.AccessKey, credentials.SecretKey)
	if credentials.Endpoint != "" {
		c.baseURL = credentials.Endpoint
	}
	return nil
}

// TestConnection verifies the credentials are usable
func (c *Client) TestConnection(ctx context.Context) error {
	params := url.Values{}
	params.Set("vendorId", c.vendorID)
	params.Set("maxPerPage", "1")
	_, err := c.doRequest(ctx, http.MethodGet, productsPath, params)
	return err
}

// envelope is the common Coupang response wrapper.
type envelope struct {
	Code      json.Number     `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	NextToken string          `json:"nextToken"`
}

// GetOrders fetches one page of order sheets for the configured vendor.
func (c *Client) GetOrders(ctx context.Context, query *clients.OrderQuery) (*clients.OrdersPage, error) {
	if err := ValidateOrderWindow(query.StartDate, query.EndDate); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("createdAtFrom", query.StartDate.Format("2006-01-02"))
	params.Set("createdAtTo", query.EndDate.Format("2006-01-02"))
	params.Set("maxPerPage", strconv.Itoa(pageSize(query.Limit)))
	if query.Status != "" {
		params.Set("status", query.Status)
	}
	if query.Cursor != "" {
		params.Set("nextToken", query.Cursor)
	}

	env, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf(ordersPath, c.vendorID), params)
	if err != nil {
		return nil, err
	}

	var sheets []orderSheet
	if err := json.Unmarshal(env.Data, &sheets); err != nil {
		return nil, fmt.Errorf("failed to parse coupang order sheets: %w", err)
	}

	var orders []clients.ExternalOrder
	for _, sheet := range sheets {
		orders = append(orders, convertOrderSheet(sheet)...)
	}

	return &clients.OrdersPage{
		Orders:     orders,
		NextCursor: env.NextToken,
		HasMore:    env.NextToken != "",
	}, nil
}

// GetProducts fetches one page of seller product listings.
func (c *Client) GetProducts(ctx context.Context, query *clients.PageQuery) (*clients.ProductsPage, error) {
	params := url.Values{}
	params.Set("vendorId", c.vendorID)
	params.Set("maxPerPage", strconv.Itoa(pageSize(query.Limit)))
	if query.Cursor != "" {
		params.Set("nextToken", query.Cursor)
	}

	env, err := c.doRequest(ctx, http.MethodGet, productsPath, params)
	if err != nil {
		return nil, err
	}

	var listings []sellerProduct
	if err := json.Unmarshal(env.Data, &listings); err != nil {
		return nil, fmt.Errorf("failed to parse coupang seller products: %w", err)
	}

	products := make([]clients.ExternalProduct, 0, len(listings))
	for _, p := range listings {
		products = append(products, clients.ExternalProduct{
			ID:     strconv.FormatInt(p.SellerProductID, 10),
			Name:   p.SellerProductName,
			Status: p.StatusName,
		})
	}

	return &clients.ProductsPage{
		Products:   products,
		NextCursor: env.NextToken,
		HasMore:    env.NextToken != "",
	}, nil
}

// GetProductDetail fetches one seller product including its item options.
func (c *Client) GetProductDetail(ctx context.Context, externalProductID string) (*clients.ExternalProductDetail, error) {
	env, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf(productPath, externalProductID), nil)
	if err != nil {
		return nil, err
	}

	var detail sellerProductDetail
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		return nil, fmt.Errorf("failed to parse coupang product detail: %w", err)
	}

	result := &clients.ExternalProductDetail{
		ExternalProduct: clients.ExternalProduct{
			ID:     strconv.FormatInt(detail.SellerProductID, 10),
			Name:   detail.SellerProductName,
			Status: detail.StatusName,
		},
	}
	for _, item := range detail.Items {
		result.Options = append(result.Options, clients.ExternalProductOption{
			OptionID:      strconv.FormatInt(item.VendorItemID, 10),
			Name:          item.ItemName,
			SKU:           item.ExternalVendorSKU,
			StockQuantity: item.MaximumBuyCount,
			Price:         item.SalePrice,
		})
	}
	return result, nil
}

// GetInventory fetches one page of vendor item stock records.
func (c *Client) GetInventory(ctx context.Context, query *clients.PageQuery) (*clients.InventoryPage, error) {
	params := url.Values{}
	params.Set("vendorId", c.vendorID)
	params.Set("maxPerPage", strconv.Itoa(pageSize(query.Limit)))
	if query.Cursor != "" {
		params.Set("nextToken", query.Cursor)
	}

	env, err := c.doRequest(ctx, http.MethodGet, inventoriesPath, params)
	if err != nil {
		return nil, err
	}

	var rows []inventoryRow
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse coupang inventories: %w", err)
	}

	records := make([]clients.ExternalInventory, 0, len(rows))
	for _, row := range rows {
		records = append(records, clients.ExternalInventory{
			ChannelSKU:        row.ExternalVendorSKU,
			ExternalProductID: strconv.FormatInt(row.SellerProductID, 10),
			OptionSignature:   strconv.FormatInt(row.VendorItemID, 10),
			ProductName:       row.SellerProductName,
			StockQuantity:     row.Quantity,
			IsDisplayed:       row.DisplayStatus == "DISPLAY",
			IsSelling:         row.SalesStatus == "ONSALE",
		})
	}

	return &clients.InventoryPage{
		Records:    records,
		NextCursor: env.NextToken,
		HasMore:    env.NextToken != "",
	}, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values) (*envelope, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := ""
	if params != nil {
		query = params.Encode()
	}

	requestURL := c.baseURL + path
	if query != "" {
		requestURL += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.signer.Authorization(method, path, query))
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coupang request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read coupang response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &clients.ChannelAPIError{
			Channel:    models.ChannelCoupang,
			StatusCode: resp.StatusCode,
			Message:    truncate(string(body), 500),
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse coupang response envelope: %w", err)
	}
	if code := env.Code.String(); code != "" && code != "200" && code != "SUCCESS" {
		return nil, &clients.ChannelAPIError{
			Channel:    models.ChannelCoupang,
			StatusCode: resp.StatusCode,
			Code:       code,
			Message:    env.Message,
		}
	}

	return &env, nil
}

func pageSize(limit int) int {
	if limit > 0 && limit <= defaultPageSize {
		return limit
	}
	return defaultPageSize
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// wire types

type orderSheet struct {
	OrderID    int64       `json:"orderId"`
	Status     string      `json:"status"`
	OrderedAt  string      `json:"orderedAt"`
	PaidAt     string      `json:"paidAt"`
	Orderer    orderer     `json:"orderer"`
	OrderItems []orderItem `json:"orderItems"`
}

type orderer struct {
	Name string `json:"name"`
}

type orderItem struct {
	VendorItemID          int64   `json:"vendorItemId"`
	SellerProductName     string  `json:"sellerProductName"`
	SellerProductItemName string  `json:"sellerProductItemName"`
	ExternalVendorSKUCode string  `json:"externalVendorSkuCode"`
	ShippingCount         int     `json:"shippingCount"`
	OrderPrice            float64 `json:"orderPrice"`
}

type sellerProduct struct {
	SellerProductID   int64  `json:"sellerProductId"`
	SellerProductName string `json:"sellerProductName"`
	StatusName        string `json:"statusName"`
}

type sellerProductDetail struct {
	SellerProductID   int64               `json:"sellerProductId"`
	SellerProductName string              `json:"sellerProductName"`
	StatusName        string              `json:"statusName"`
	Items             []sellerProductItem `json:"items"`
}

type sellerProductItem struct {
	VendorItemID      int64   `json:"vendorItemId"`
	ItemName          string  `json:"itemName"`
	ExternalVendorSKU string  `json:"externalVendorSku"`
	MaximumBuyCount   int     `json:"maximumBuyCount"`
	SalePrice         float64 `json:"salePrice"`
}

type inventoryRow struct {
	SellerProductID   int64  `json:"sellerProductId"`
	VendorItemID      int64  `json:"vendorItemId"`
	SellerProductName string `json:"sellerProductName"`
	ExternalVendorSKU string `json:"externalVendorSku"`
	Quantity          int    `json:"quantity"`
	SalesStatus       string `json:"salesStatus"`
	DisplayStatus     string `json:"displayStatus"`
}

func convertOrderSheet(sheet orderSheet) []clients.ExternalOrder {
	orderID := strconv.FormatInt(sheet.OrderID, 10)
	orderedAt := parseCoupangTime(sheet.OrderedAt)
	var paidAt *time.Time
	if t := parseCoupangTime(sheet.PaidAt); !t.IsZero() {
		paidAt = &t
	}

	orders := make([]clients.ExternalOrder, 0, len(sheet.OrderItems))
	for _, item := range sheet.OrderItems {
		orders = append(orders, clients.ExternalOrder{
			OrderID:     orderID,
			LineItemID:  strconv.FormatInt(item.VendorItemID, 10),
			SKU:         item.ExternalVendorSKUCode,
			ProductName: item.SellerProductName,
			OptionName:  item.SellerProductItemName,
			Quantity:    item.ShippingCount,
			UnitPrice:   item.OrderPrice,
			Status:      sheet.Status,
			OrdererName: sheet.Orderer.Name,
			OrderedAt:   orderedAt,
			PaidAt:      paidAt,
		})
	}
	return orders
}

// parseCoupangTime handles the gateway's local-time format with an RFC3339
// fallback. A zero time means the field was absent.
func parseCoupangTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
