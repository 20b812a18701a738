package naver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"channel-inventory-service/internal/clients"
	"channel-inventory-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServer serves the token endpoint plus a data handler, counting token
// grants so the lazy-refresh behavior is observable.
type testServer struct {
	server        *httptest.Server
	tokenRequests int
	expiresIn     int
}

func newTestServer(t *testing.T, data http.HandlerFunc) *testServer {
	t.Helper()
	ts := &testServer{expiresIn: 3600}
	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == tokenPath {
			ts.tokenRequests++
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			assert.Equal(t, "SELF", r.PostForm.Get("type"))
			fmt.Fprintf(w, `{"access_token": "token-%d", "expires_in": %d, "token_type": "Bearer"}`,
				ts.tokenRequests, ts.expiresIn)
			return
		}
		data(w, r)
	}))
	t.Cleanup(ts.server.Close)
	return ts
}

func newTestClient(t *testing.T, ts *testServer) *Client {
	t.Helper()
	client := NewClient()
	require.NoError(t, client.Initialize(context.Background(), clients.Credentials{
		ClientID:     "ci",
		ClientSecret: "cs",
		Endpoint:     ts.server.URL,
	}))
	return client
}

func TestTokenFetchedLazilyAndCached(t *testing.T) {
	var bearers []string
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		bearers = append(bearers, r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"contents": [], "page": 1, "totalPages": 1}`)
	})
	client := newTestClient(t, ts)

	assert.Equal(t, 0, ts.tokenRequests, "no token request until the first call")

	_, err := client.GetProducts(context.Background(), &clients.PageQuery{})
	require.NoError(t, err)
	_, err = client.GetProducts(context.Background(), &clients.PageQuery{})
	require.NoError(t, err)

	assert.Equal(t, 1, ts.tokenRequests, "a live token is reused")
	require.Len(t, bearers, 2)
	assert.Equal(t, "Bearer token-1", bearers[0])
	assert.Equal(t, "Bearer token-1", bearers[1])
}

func TestTokenRefreshedWhenExpiring(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"contents": [], "page": 1, "totalPages": 1}`)
	})
	// Lifetime shorter than the refresh skew: every call refreshes.
	ts.expiresIn = 10
	client := newTestClient(t, ts)

	_, err := client.GetProducts(context.Background(), &clients.PageQuery{})
	require.NoError(t, err)
	_, err = client.GetProducts(context.Background(), &clients.PageQuery{})
	require.NoError(t, err)

	assert.Equal(t, 2, ts.tokenRequests, "an expiring token is refreshed before use")
}

func TestTokenRejectionSurfacesAsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code": "AUTH", "message": "bad client"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	client := NewClient()
	require.NoError(t, client.Initialize(context.Background(), clients.Credentials{
		ClientID: "ci", ClientSecret: "cs", Endpoint: server.URL,
	}))

	_, err := client.GetProducts(context.Background(), &clients.PageQuery{})
	var apiErr *clients.ChannelAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, models.ChannelNaver, apiErr.Channel)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestFetchAllProductsPagination(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `{
				"contents": [
					{"channelProductNo": 101, "name": "Shirt", "statusType": "SALE", "sellerManagementCode": "SKU-A"},
					{"channelProductNo": 102, "name": "Pants", "statusType": "SALE", "sellerManagementCode": "SKU-B"}
				],
				"page": 1, "totalPages": 2
			}`)
		default:
			fmt.Fprint(w, `{
				"contents": [
					{"channelProductNo": 103, "name": "Hat", "statusType": "SUSPENSION", "sellerManagementCode": "SKU-C"}
				],
				"page": 2, "totalPages": 2
			}`)
		}
	})
	client := newTestClient(t, ts)

	products, err := clients.FetchAllProducts(context.Background(), client, &clients.PageQuery{})
	require.NoError(t, err)

	require.Len(t, products, 3)
	assert.Equal(t, "101", products[0].ID)
	assert.Equal(t, "SKU-A", products[0].SKU)
	assert.Equal(t, "103", products[2].ID)
	assert.Equal(t, 1, ts.tokenRequests, "both pages ride one token")
}

func TestGetOrdersWindowAndConversion(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PAYED_DATETIME", r.URL.Query().Get("rangeType"))
		fmt.Fprint(w, `{
			"data": {
				"contents": [{
					"productOrderId": "PO-1",
					"orderId": "O-1",
					"sellerManagementCode": "SKU-A",
					"productName": "Shirt",
					"productOption": "Black/L",
					"quantity": 2,
					"unitPrice": 19900,
					"productOrderStatus": "DELIVERED",
					"ordererName": "Park",
					"orderDate": "2026-08-20T10:00:00+09:00",
					"paymentDate": "2026-08-20T10:05:00+09:00"
				}],
				"page": 1, "totalPages": 1
			}
		}`)
	})
	client := newTestClient(t, ts)

	end := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	page, err := client.GetOrders(context.Background(), &clients.OrderQuery{
		StartDate: end.AddDate(0, 0, -7),
		EndDate:   end,
	})
	require.NoError(t, err)
	assert.False(t, page.HasMore)

	require.Len(t, page.Orders, 1)
	order := page.Orders[0]
	assert.Equal(t, "O-1", order.OrderID)
	assert.Equal(t, "PO-1", order.LineItemID)
	assert.Equal(t, "SKU-A", order.SKU)
	assert.Equal(t, 2, order.Quantity)
	require.NotNil(t, order.PaidAt)
	assert.False(t, order.OrderedAt.IsZero())
}

func TestGetInventoryStatusMapping(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"contents": [
				{"channelProductNo": 101, "optionId": 1, "name": "Shirt", "sellerManagementCode": "SKU-A", "stockQuantity": 12, "statusType": "SALE"},
				{"channelProductNo": 102, "optionId": 0, "name": "Pants", "sellerManagementCode": "SKU-B", "stockQuantity": 0, "statusType": "SUSPENSION"}
			],
			"page": 1, "totalPages": 1
		}`)
	})
	client := newTestClient(t, ts)

	page, err := client.GetInventory(context.Background(), &clients.PageQuery{})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)

	assert.True(t, page.Records[0].IsSelling)
	assert.True(t, page.Records[0].IsDisplayed)
	assert.False(t, page.Records[1].IsSelling)
	assert.False(t, page.Records[1].IsDisplayed)
	assert.Equal(t, 0, page.Records[1].StockQuantity)
}
