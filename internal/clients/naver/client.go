package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"channel-inventory-service/internal/clients"
	"channel-inventory-service/internal/models"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.commerce.naver.com"

	tokenPath    = "/external/v1/oauth2/token"
	ordersPath   = "/external/v1/pay-order/seller/product-orders"
	productsPath = "/external/v1/products/search"
	stocksPath   = "/external/v1/products/stocks"

	defaultPageSize = 100

	// tokenExpirySkew refreshes the token slightly before the server-side
	// expiry to avoid racing the deadline.
	tokenExpirySkew = 60 * time.Second
)

// Client implements clients.ChannelClient for the Naver Commerce API.
// Authentication is an OAuth2 client-credentials bearer token, cached and
// refreshed lazily when absent or expiring; there is no background timer.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	accessToken  string
	tokenExpiry  time.Time
	rateLimiter  *rate.Limiter
}

// NewClient creates a new Naver Commerce API client.
func NewClient() *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     defaultBaseURL,
		rateLimiter: rate.NewLimiter(rate.Limit(2), 1),
	}
}

// GetType returns the channel type
func (c *Client) GetType() models.ChannelType {
	return models.ChannelNaver
}

// Initialize sets up the client with credentials
func (c *Client) Initialize(ctx context.Context, credentials clients.Credentials) error {
	if credentials.ClientID == "" {
		return fmt.Errorf("missing client id")
	}
	if credentials.ClientSecret == "" {
		return fmt.Errorf("missing client secret")
	}
	c.clientID = credentials.ClientID
	c.clientSecret = credentials.ClientSecret
	if credentials.Endpoint != "" {
		c.baseURL = credentials.Endpoint
	}
	return nil
}

// TestConnection verifies the credentials by obtaining a token.
func (c *Client) TestConnection(ctx context.Context) error {
	return c.refreshToken(ctx)
}

// ensureToken refreshes the bearer token when absent or within the expiry
// skew. Called lazily before every request.
func (c *Client) ensureToken(ctx context.Context) error {
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySkew)) {
		return nil
	}
	return c.refreshToken(ctx)
}

func (c *Client) refreshToken(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("type", "SELF")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("naver token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read naver token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &clients.ChannelAPIError{
			Channel:    models.ChannelNaver,
			StatusCode: resp.StatusCode,
			Message:    "token refresh rejected: " + truncate(string(body), 300),
		}
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return fmt.Errorf("failed to parse naver token response: %w", err)
	}
	if token.AccessToken == "" {
		return &clients.ChannelAPIError{
			Channel:    models.ChannelNaver,
			StatusCode: resp.StatusCode,
			Message:    "token response contained no access_token",
		}
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return nil
}

// GetOrders fetches one page of product orders.
func (c *Client) GetOrders(ctx context.Context, query *clients.OrderQuery) (*clients.OrdersPage, error) {
	page := parsePage(query.Cursor)

	params := url.Values{}
	params.Set("from", query.StartDate.Format(time.RFC3339))
	params.Set("to", query.EndDate.Format(time.RFC3339))
	params.Set("rangeType", "PAYED_DATETIME")
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(pageSize(query.Limit)))
	if query.Status != "" {
		params.Set("productOrderStatuses", query.Status)
	}

	body, err := c.doRequest(ctx, http.MethodGet, ordersPath, params)
	if err != nil {
		return nil, err
	}

	var response struct {
		Data struct {
			Contents   []productOrder `json:"contents"`
			Page       int            `json:"page"`
			TotalPages int            `json:"totalPages"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse naver orders response: %w", err)
	}

	orders := make([]clients.ExternalOrder, 0, len(response.Data.Contents))
	for _, po := range response.Data.Contents {
		orders = append(orders, convertProductOrder(po))
	}

	hasMore := page < response.Data.TotalPages
	return &clients.OrdersPage{
		Orders:     orders,
		NextCursor: nextCursor(page, hasMore),
		HasMore:    hasMore,
	}, nil
}

// GetProducts fetches one page of channel product listings.
func (c *Client) GetProducts(ctx context.Context, query *clients.PageQuery) (*clients.ProductsPage, error) {
	page := parsePage(query.Cursor)

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(pageSize(query.Limit)))

	body, err := c.doRequest(ctx, http.MethodGet, productsPath, params)
	if err != nil {
		return nil, err
	}

	var response struct {
		Contents   []channelProduct `json:"contents"`
		Page       int              `json:"page"`
		TotalPages int              `json:"totalPages"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse naver products response: %w", err)
	}

	products := make([]clients.ExternalProduct, 0, len(response.Contents))
	for _, p := range response.Contents {
		products = append(products, clients.ExternalProduct{
			ID:     strconv.FormatInt(p.ChannelProductNo, 10),
			Name:   p.Name,
			Status: p.StatusType,
			SKU:    p.SellerManagementCode,
		})
	}

	hasMore := page < response.TotalPages
	return &clients.ProductsPage{
		Products:   products,
		NextCursor: nextCursor(page, hasMore),
		HasMore:    hasMore,
	}, nil
}

// GetProductDetail fetches one channel product including its options.
func (c *Client) GetProductDetail(ctx context.Context, externalProductID string) (*clients.ExternalProductDetail, error) {
	body, err := c.doRequest(ctx, http.MethodGet, productsPath+"/"+externalProductID, nil)
	if err != nil {
		return nil, err
	}

	var detail struct {
		ChannelProductNo     int64  `json:"channelProductNo"`
		Name                 string `json:"name"`
		StatusType           string `json:"statusType"`
		SellerManagementCode string `json:"sellerManagementCode"`
		Options              []struct {
			ID                   int64   `json:"id"`
			OptionName           string  `json:"optionName"`
			SellerManagementCode string  `json:"sellerManagementCode"`
			StockQuantity        int     `json:"stockQuantity"`
			Price                float64 `json:"price"`
		} `json:"options"`
	}
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("failed to parse naver product detail: %w", err)
	}

	result := &clients.ExternalProductDetail{
		ExternalProduct: clients.ExternalProduct{
			ID:     strconv.FormatInt(detail.ChannelProductNo, 10),
			Name:   detail.Name,
			Status: detail.StatusType,
			SKU:    detail.SellerManagementCode,
		},
	}
	for _, opt := range detail.Options {
		result.Options = append(result.Options, clients.ExternalProductOption{
			OptionID:      strconv.FormatInt(opt.ID, 10),
			Name:          opt.OptionName,
			SKU:           opt.SellerManagementCode,
			StockQuantity: opt.StockQuantity,
			Price:         opt.Price,
		})
	}
	return result, nil
}

// GetInventory fetches one page of channel stock records.
func (c *Client) GetInventory(ctx context.Context, query *clients.PageQuery) (*clients.InventoryPage, error) {
	page := parsePage(query.Cursor)

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(pageSize(query.Limit)))

	body, err := c.doRequest(ctx, http.MethodGet, stocksPath, params)
	if err != nil {
		return nil, err
	}

	var response struct {
		Contents   []stockRow `json:"contents"`
		Page       int        `json:"page"`
		TotalPages int        `json:"totalPages"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse naver stocks response: %w", err)
	}

	records := make([]clients.ExternalInventory, 0, len(response.Contents))
	for _, row := range response.Contents {
		records = append(records, clients.ExternalInventory{
			ChannelSKU:        row.SellerManagementCode,
			ExternalProductID: strconv.FormatInt(row.ChannelProductNo, 10),
			OptionSignature:   strconv.FormatInt(row.OptionID, 10),
			ProductName:       row.Name,
			StockQuantity:     row.StockQuantity,
			IsDisplayed:       row.StatusType != "SUSPENSION",
			IsSelling:         row.StatusType == "SALE",
		})
	}

	hasMore := page < response.TotalPages
	return &clients.InventoryPage{
		Records:    records,
		NextCursor: nextCursor(page, hasMore),
		HasMore:    hasMore,
	}, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	requestURL := c.baseURL + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("naver request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read naver response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &clients.ChannelAPIError{
			Channel:    models.ChannelNaver,
			StatusCode: resp.StatusCode,
			Message:    truncate(string(body), 500),
		}
		var failure struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &failure) == nil && failure.Code != "" {
			apiErr.Code = failure.Code
			apiErr.Message = failure.Message
		}
		return nil, apiErr
	}

	return body, nil
}

// parsePage maps an opaque cursor to a 1-based page number.
func parsePage(cursor string) int {
	if cursor == "" {
		return 1
	}
	page, err := strconv.Atoi(cursor)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func nextCursor(page int, hasMore bool) string {
	if !hasMore {
		return ""
	}
	return strconv.Itoa(page + 1)
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

type productOrder struct {
	ProductOrderID       string  `json:"productOrderId"`
	OrderID              string  `json:"orderId"`
	SellerManagementCode string  `json:"sellerManagementCode"`
	ProductName          string  `json:"productName"`
	ProductOption        string  `json:"productOption"`
	Quantity             int     `json:"quantity"`
	UnitPrice            float64 `json:"unitPrice"`
	ProductOrderStatus   string  `json:"productOrderStatus"`
	OrdererName          string  `json:"ordererName"`
	OrderDate            string  `json:"orderDate"`
	PaymentDate          string  `json:"paymentDate"`
}

type channelProduct struct {
	ChannelProductNo     int64  `json:"channelProductNo"`
	Name                 string `json:"name"`
	StatusType           string `json:"statusType"`
	SellerManagementCode string `json:"sellerManagementCode"`
}

type stockRow struct {
	ChannelProductNo     int64  `json:"channelProductNo"`
	OptionID             int64  `json:"optionId"`
	Name                 string `json:"name"`
	SellerManagementCode string `json:"sellerManagementCode"`
	StockQuantity        int    `json:"stockQuantity"`
	StatusType           string `json:"statusType"`
}

func convertProductOrder(po productOrder) clients.ExternalOrder {
	orderedAt := parseNaverTime(po.OrderDate)
	var paidAt *time.Time
	if t := parseNaverTime(po.PaymentDate); !t.IsZero() {
		paidAt = &t
	}
	return clients.ExternalOrder{
		OrderID:     po.OrderID,
		LineItemID:  po.ProductOrderID,
		SKU:         po.SellerManagementCode,
		ProductName: po.ProductName,
		OptionName:  po.ProductOption,
		Quantity:    po.Quantity,
		UnitPrice:   po.UnitPrice,
		Status:      po.ProductOrderStatus,
		OrdererName: po.OrdererName,
		OrderedAt:   orderedAt,
		PaidAt:      paidAt,
	}
}

func parseNaverTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05.000-07:00", s); err == nil {
		return t
	}
	return time.Time{}
}
