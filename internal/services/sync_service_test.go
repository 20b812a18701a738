package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"channel-inventory-service/internal/clients"
	"channel-inventory-service/internal/models"
	"channel-inventory-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeChannelClient serves canned pages.
type fakeChannelClient struct {
	channel   models.ChannelType
	orders    []clients.ExternalOrder
	products  []clients.ExternalProduct
	details   map[string]*clients.ExternalProductDetail
	inventory []clients.ExternalInventory
	ordersErr error
}

func (f *fakeChannelClient) GetType() models.ChannelType { return f.channel }
func (f *fakeChannelClient) Initialize(ctx context.Context, credentials clients.Credentials) error {
	return nil
}
func (f *fakeChannelClient) TestConnection(ctx context.Context) error { return nil }

func (f *fakeChannelClient) GetOrders(ctx context.Context, query *clients.OrderQuery) (*clients.OrdersPage, error) {
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	// Two pages so the fetch-all loop is exercised.
	half := len(f.orders) / 2
	if query.Cursor == "" {
		return &clients.OrdersPage{Orders: f.orders[:half], NextCursor: "2", HasMore: len(f.orders) > half}, nil
	}
	return &clients.OrdersPage{Orders: f.orders[half:]}, nil
}

func (f *fakeChannelClient) GetProducts(ctx context.Context, query *clients.PageQuery) (*clients.ProductsPage, error) {
	return &clients.ProductsPage{Products: f.products}, nil
}

func (f *fakeChannelClient) GetProductDetail(ctx context.Context, externalProductID string) (*clients.ExternalProductDetail, error) {
	detail, ok := f.details[externalProductID]
	if !ok {
		return nil, fmt.Errorf("no detail for %s", externalProductID)
	}
	return detail, nil
}

func (f *fakeChannelClient) GetInventory(ctx context.Context, query *clients.PageQuery) (*clients.InventoryPage, error) {
	return &clients.InventoryPage{Records: f.inventory}, nil
}

type syncFixture struct {
	db          *gorm.DB
	service     *SyncService
	credentials *repository.CredentialRepository
	client      *fakeChannelClient
}

func newSyncFixture(t *testing.T, channel models.ChannelType, batchSize int) *syncFixture {
	db := newTestDB(t)
	credentialRepo := repository.NewCredentialRepository(db, nil)
	channelRepo := repository.NewChannelRepository(db)
	syncLogRepo := repository.NewSyncLogRepository(db)

	require.NoError(t, credentialRepo.Create(context.Background(), &models.ChannelCredential{
		Channel:   channel,
		VendorID:  "V-1",
		AccessKey: "ak", SecretKey: "sk",
		ClientID: "ci", ClientSecret: "cs",
		IsActive: true,
	}))

	client := &fakeChannelClient{channel: channel}
	service := NewSyncService(credentialRepo, channelRepo, syncLogRepo, nil, batchSize, 50)
	service.SetClientFactory(func(models.ChannelType) (clients.ChannelClient, error) {
		return client, nil
	})

	return &syncFixture{db: db, service: service, credentials: credentialRepo, client: client}
}

func (f *syncFixture) lastLog(t *testing.T) *models.SyncLog {
	t.Helper()
	var log models.SyncLog
	require.NoError(t, f.db.Order("created_at DESC").First(&log).Error)
	return &log
}

func externalOrders(n int) []clients.ExternalOrder {
	orders := make([]clients.ExternalOrder, 0, n)
	for i := 0; i < n; i++ {
		orders = append(orders, clients.ExternalOrder{
			OrderID:     fmt.Sprintf("O-%d", i/2),
			LineItemID:  fmt.Sprintf("L-%d", i),
			SKU:         fmt.Sprintf("SKU-%d", i),
			ProductName: "Thing",
			Quantity:    1,
			UnitPrice:   1000,
			Status:      "DELIVERED",
			OrderedAt:   time.Now().UTC().Add(-24 * time.Hour),
		})
	}
	return orders
}

func TestSyncOrdersIdempotentRerun(t *testing.T) {
	f := newSyncFixture(t, models.ChannelNaver, 500)
	ctx := context.Background()
	f.client.orders = externalOrders(6)

	result, err := f.service.SyncOrders(ctx, models.ChannelNaver, "V-1", SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSuccess, result.Status)
	assert.Equal(t, 6, result.Synced)

	var count int64
	require.NoError(t, f.db.Model(&models.ChannelOrder{}).Count(&count).Error)
	assert.Equal(t, int64(6), count)

	// Re-run over the same window with one changed record: row count stays
	// stable and the changed field lands on the existing row.
	f.client.orders[0].Quantity = 5
	_, err = f.service.SyncOrders(ctx, models.ChannelNaver, "V-1", SyncOptions{})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.ChannelOrder{}).Count(&count).Error)
	assert.Equal(t, int64(6), count)

	var updated models.ChannelOrder
	require.NoError(t, f.db.Where("idempotency_key = ?", "NAVER-O-0-L-0").First(&updated).Error)
	assert.Equal(t, 5, updated.Quantity)

	// One log per invocation.
	var logCount int64
	require.NoError(t, f.db.Model(&models.SyncLog{}).Count(&logCount).Error)
	assert.Equal(t, int64(2), logCount)

	credential, err := f.credentials.GetActive(ctx, models.ChannelNaver, "V-1")
	require.NoError(t, err)
	assert.NotNil(t, credential.LastSyncedAt)
}

func TestSyncOrdersZeroRecords(t *testing.T) {
	f := newSyncFixture(t, models.ChannelNaver, 500)

	result, err := f.service.SyncOrders(context.Background(), models.ChannelNaver, "V-1", SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSuccess, result.Status)
	assert.Equal(t, 0, result.Total)
	assert.Contains(t, result.Message, "no order records")

	log := f.lastLog(t)
	assert.Equal(t, models.SyncStatusSuccess, log.Status)
	assert.Equal(t, 0, log.ItemsSynced)
	assert.Equal(t, 0, log.ItemsFailed)
}

func TestSyncOrdersUpstreamErrorStillLogged(t *testing.T) {
	f := newSyncFixture(t, models.ChannelNaver, 500)
	f.client.ordersErr = &clients.ChannelAPIError{
		Channel: models.ChannelNaver, StatusCode: 401, Code: "UNAUTHORIZED", Message: "bad token",
	}

	_, err := f.service.SyncOrders(context.Background(), models.ChannelNaver, "V-1", SyncOptions{})
	require.Error(t, err)

	log := f.lastLog(t)
	assert.Equal(t, models.SyncStatusError, log.Status)
	assert.Contains(t, log.ErrorMessage, "UNAUTHORIZED")
	assert.GreaterOrEqual(t, log.DurationMS, int64(0))

	credential, err := f.credentials.GetActive(context.Background(), models.ChannelNaver, "V-1")
	require.NoError(t, err)
	assert.Nil(t, credential.LastSyncedAt, "failed syncs never advance last synced")
}

func TestSyncOrdersMissingCredentialNoLog(t *testing.T) {
	f := newSyncFixture(t, models.ChannelNaver, 500)

	_, err := f.service.SyncOrders(context.Background(), models.ChannelNaver, "V-UNKNOWN", SyncOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials registered")

	var logCount int64
	require.NoError(t, f.db.Model(&models.SyncLog{}).Count(&logCount).Error)
	assert.Equal(t, int64(0), logCount, "configuration errors produce no log row")
}

func TestSyncOrdersCoupangWindowTooWide(t *testing.T) {
	f := newSyncFixture(t, models.ChannelCoupang, 500)

	end := time.Now().UTC()
	_, err := f.service.SyncOrders(context.Background(), models.ChannelCoupang, "V-1", SyncOptions{
		StartDate: end.AddDate(0, 0, -40),
		EndDate:   end,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "30-day")

	var logCount int64
	require.NoError(t, f.db.Model(&models.SyncLog{}).Count(&logCount).Error)
	assert.Equal(t, int64(0), logCount)
}

// failingDataStore fails the first upsert call and then recovers, so a run
// lands with both synced and failed batches.
type failingDataStore struct {
	ChannelDataStore
	calls int
}

func (f *failingDataStore) UpsertOrders(ctx context.Context, orders []models.ChannelOrder) error {
	f.calls++
	if f.calls == 1 {
		return fmt.Errorf("connection reset during batch write")
	}
	return f.ChannelDataStore.UpsertOrders(ctx, orders)
}

func TestSyncOrdersPartialBatchFailure(t *testing.T) {
	db := newTestDB(t)
	credentialRepo := repository.NewCredentialRepository(db, nil)
	store := &failingDataStore{ChannelDataStore: repository.NewChannelRepository(db)}
	syncLogRepo := repository.NewSyncLogRepository(db)

	require.NoError(t, credentialRepo.Create(context.Background(), &models.ChannelCredential{
		Channel: models.ChannelNaver, VendorID: "V-1",
		ClientID: "ci", ClientSecret: "cs", IsActive: true,
	}))

	client := &fakeChannelClient{channel: models.ChannelNaver, orders: externalOrders(5)}
	service := NewSyncService(credentialRepo, store, syncLogRepo, nil, 2, 50)
	service.SetClientFactory(func(models.ChannelType) (clients.ChannelClient, error) {
		return client, nil
	})

	result, err := service.SyncOrders(context.Background(), models.ChannelNaver, "V-1", SyncOptions{})
	require.NoError(t, err, "partial failure is not escalated")

	assert.Equal(t, models.SyncStatusPartial, result.Status)
	assert.Equal(t, 3, result.Synced)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 5, result.Total)

	var log models.SyncLog
	require.NoError(t, db.Order("created_at DESC").First(&log).Error)
	assert.Equal(t, models.SyncStatusPartial, log.Status)
	assert.Equal(t, 3, log.ItemsSynced)
	assert.Equal(t, 2, log.ItemsFailed)
	assert.Contains(t, log.ErrorMessage, "connection reset")

	credential, err := credentialRepo.GetActive(context.Background(), models.ChannelNaver, "V-1")
	require.NoError(t, err)
	assert.Nil(t, credential.LastSyncedAt, "partial syncs never advance last synced")
}

func TestSyncProductsWithDetailPass(t *testing.T) {
	f := newSyncFixture(t, models.ChannelNaver, 500)
	ctx := context.Background()

	f.client.products = []clients.ExternalProduct{
		{ID: "P-1", Name: "Shirt", Status: "SALE"},
		{ID: "P-2", Name: "Pants", Status: "SALE"},
	}
	f.client.details = map[string]*clients.ExternalProductDetail{
		// P-2 has no detail entry: its fetch fails and must be skipped.
		"P-1": {
			ExternalProduct: clients.ExternalProduct{ID: "P-1", Name: "Shirt"},
			Options: []clients.ExternalProductOption{
				{OptionID: "OPT-1", Name: "Black/L", SKU: "SKU-BL", StockQuantity: 7, Price: 19900},
				{OptionID: "OPT-2", Name: "Black/XL", SKU: "SKU-BX", StockQuantity: 3, Price: 19900},
			},
		},
	}

	result, err := f.service.SyncProducts(ctx, models.ChannelNaver, "V-1", SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSuccess, result.Status)
	assert.Equal(t, 2, result.Synced)

	var parent models.ChannelProduct
	require.NoError(t, f.db.Where("external_product_id = ?", "P-1").First(&parent).Error)

	var options []models.ChannelProductOption
	require.NoError(t, f.db.Where("channel_product_id = ?", parent.ID).Order("external_option_id").Find(&options).Error)
	require.Len(t, options, 2)
	assert.Equal(t, "SKU-BL", options[0].SKU)
	assert.Equal(t, 7, options[0].StockQuantity)
}

func TestSyncInventoryIdempotent(t *testing.T) {
	f := newSyncFixture(t, models.ChannelCoupang, 500)
	ctx := context.Background()

	f.client.inventory = []clients.ExternalInventory{
		{ChannelSKU: "SKU-A", ExternalProductID: "1001", OptionSignature: "opt-1", StockQuantity: 12, IsDisplayed: true, IsSelling: true},
		{ChannelSKU: "SKU-B", ExternalProductID: "1002", OptionSignature: "opt-1", StockQuantity: 0, IsDisplayed: true, IsSelling: false},
	}

	_, err := f.service.SyncInventory(ctx, models.ChannelCoupang, "V-1", SyncOptions{})
	require.NoError(t, err)

	f.client.inventory[0].StockQuantity = 4
	_, err = f.service.SyncInventory(ctx, models.ChannelCoupang, "V-1", SyncOptions{})
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.db.Model(&models.ChannelStock{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var stock models.ChannelStock
	require.NoError(t, f.db.Where("channel_sku = ?", "SKU-A").First(&stock).Error)
	assert.Equal(t, 4, stock.StockQuantity)
}

func TestSyncGuardRejectsConcurrentRun(t *testing.T) {
	f := newSyncFixture(t, models.ChannelNaver, 500)

	release, err := f.service.acquire(models.ChannelNaver, "V-1", models.SyncTypeOrders)
	require.NoError(t, err)

	_, err = f.service.acquire(models.ChannelNaver, "V-1", models.SyncTypeOrders)
	assert.ErrorContains(t, err, "already running")

	// A different entity type for the same credential may interleave.
	releaseProducts, err := f.service.acquire(models.ChannelNaver, "V-1", models.SyncTypeProducts)
	require.NoError(t, err)
	releaseProducts()

	release()
	release2, err := f.service.acquire(models.ChannelNaver, "V-1", models.SyncTypeOrders)
	require.NoError(t, err)
	release2()
}
