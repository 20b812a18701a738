package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"channel-inventory-service/internal/clients"
	"channel-inventory-service/internal/clients/coupang"
	"channel-inventory-service/internal/clients/naver"
	"channel-inventory-service/internal/events"
	"channel-inventory-service/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CredentialStore is the credential access the sync orchestrator needs.
type CredentialStore interface {
	GetActive(ctx context.Context, channel models.ChannelType, vendorID string) (*models.ChannelCredential, error)
	UpdateLastSyncedAt(ctx context.Context, id uuid.UUID, syncedAt time.Time) error
}

// ChannelDataStore is the channel-data write surface the sync orchestrator
// needs. All writes are idempotent upserts.
type ChannelDataStore interface {
	UpsertOrders(ctx context.Context, orders []models.ChannelOrder) error
	UpsertProducts(ctx context.Context, products []models.ChannelProduct) error
	GetProductByExternal(ctx context.Context, channel models.ChannelType, externalProductID string) (*models.ChannelProduct, error)
	UpsertProductOptions(ctx context.Context, options []models.ChannelProductOption) error
	UpsertStocks(ctx context.Context, stocks []models.ChannelStock) error
}

// SyncLogStore records sync audit rows.
type SyncLogStore interface {
	Create(ctx context.Context, log *models.SyncLog) error
}

// SyncOptions narrows what a sync run fetches. A zero date window defaults to
// the last 7 days for order syncs and is ignored for the other types.
type SyncOptions struct {
	StartDate time.Time
	EndDate   time.Time
	Status    string
}

// SyncResult summarizes one sync invocation for the caller. The audit trail
// is the SyncLog row, written exactly once per invocation.
type SyncResult struct {
	Channel  models.ChannelType `json:"channel"`
	VendorID string             `json:"vendorId"`
	SyncType models.SyncType    `json:"syncType"`
	Status   models.SyncStatus  `json:"status"`
	Synced   int                `json:"synced"`
	Failed   int                `json:"failed"`
	Total    int                `json:"total"`
	Message  string             `json:"message,omitempty"`
	Duration time.Duration      `json:"-"`
}

// SyncService orchestrates full fetch-all syncs from sales channels into the
// local store: serial paging, deterministic idempotency keys, fixed-size
// upsert batches with per-batch failure isolation, and exactly one sync log
// per invocation.
type SyncService struct {
	credentials CredentialStore
	store       ChannelDataStore
	syncLogs    SyncLogStore
	publisher   *events.Publisher
	logger      *logrus.Entry

	batchSize int
	pageSize  int

	newClient func(models.ChannelType) (clients.ChannelClient, error)

	mu      sync.Mutex
	running map[string]bool
}

// NewSyncService creates a new sync service. The publisher may be nil.
func NewSyncService(credentials CredentialStore, store ChannelDataStore, syncLogs SyncLogStore, publisher *events.Publisher, batchSize, pageSize int) *SyncService {
	if batchSize <= 0 {
		batchSize = 500
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &SyncService{
		credentials: credentials,
		store:       store,
		syncLogs:    syncLogs,
		publisher:   publisher,
		logger:      logrus.WithField("component", "sync"),
		batchSize:   batchSize,
		pageSize:    pageSize,
		newClient:   defaultClientFactory,
		running:     make(map[string]bool),
	}
}

// SetClientFactory overrides channel client construction. Used by tests to
// substitute fake channels.
func (s *SyncService) SetClientFactory(factory func(models.ChannelType) (clients.ChannelClient, error)) {
	s.newClient = factory
}

func defaultClientFactory(channel models.ChannelType) (clients.ChannelClient, error) {
	switch channel {
	case models.ChannelCoupang:
		return coupang.NewClient(), nil
	case models.ChannelNaver:
		return naver.NewClient(), nil
	default:
		return nil, &clients.UnsupportedChannelError{Channel: string(channel)}
	}
}

// SyncOrders pulls every order in the requested window and upserts order line
// rows keyed {CHANNEL}-{orderID}-{lineItemID}.
func (s *SyncService) SyncOrders(ctx context.Context, channel models.ChannelType, vendorID string, opts SyncOptions) (*SyncResult, error) {
	release, err := s.acquire(channel, vendorID, models.SyncTypeOrders)
	if err != nil {
		return nil, err
	}
	defer release()

	start, end := orderWindow(opts)
	if channel == models.ChannelCoupang {
		if err := coupang.ValidateOrderWindow(start, end); err != nil {
			return nil, err
		}
	}

	client, credential, err := s.prepareClient(ctx, channel, vendorID)
	if err != nil {
		return nil, err
	}

	run := s.beginRun(channel, vendorID, models.SyncTypeOrders)
	run.log.StartDate = &start
	run.log.EndDate = &end
	defer run.finish(ctx, s)

	query := &clients.OrderQuery{
		PageQuery: clients.PageQuery{Limit: s.pageSize},
		StartDate: start,
		EndDate:   end,
		Status:    opts.Status,
	}
	orders, err := clients.FetchAllOrders(ctx, client, query)
	if err != nil {
		return nil, run.fail(err)
	}
	if len(orders) == 0 {
		return run.empty("no order records returned for the window"), nil
	}

	now := time.Now().UTC()
	rows := make([]models.ChannelOrder, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, models.ChannelOrder{
			IdempotencyKey:     orderIdempotencyKey(channel, o.OrderID, o.LineItemID),
			Channel:            channel,
			ExternalOrderID:    o.OrderID,
			ExternalLineItemID: o.LineItemID,
			SKU:                o.SKU,
			ProductName:        o.ProductName,
			OptionName:         o.OptionName,
			Quantity:           o.Quantity,
			UnitPrice:          o.UnitPrice,
			OrderStatus:        o.Status,
			OrdererName:        o.OrdererName,
			OrderedAt:          o.OrderedAt,
			PaidAt:             o.PaidAt,
			SyncedAt:           now,
		})
	}

	run.upsertInBatches(ctx, s.batchSize, len(rows), func(lo, hi int) error {
		return s.store.UpsertOrders(ctx, rows[lo:hi])
	})
	return run.complete(ctx, s, credential)
}

// SyncProducts pulls every product listing, upserts parent rows, then runs a
// second per-product detail pass to fill in option sub-rows. A failing detail
// fetch skips only that product.
func (s *SyncService) SyncProducts(ctx context.Context, channel models.ChannelType, vendorID string, opts SyncOptions) (*SyncResult, error) {
	release, err := s.acquire(channel, vendorID, models.SyncTypeProducts)
	if err != nil {
		return nil, err
	}
	defer release()

	client, credential, err := s.prepareClient(ctx, channel, vendorID)
	if err != nil {
		return nil, err
	}

	run := s.beginRun(channel, vendorID, models.SyncTypeProducts)
	defer run.finish(ctx, s)

	products, err := clients.FetchAllProducts(ctx, client, &clients.PageQuery{Limit: s.pageSize})
	if err != nil {
		return nil, run.fail(err)
	}
	if len(products) == 0 {
		return run.empty("no product records returned"), nil
	}

	now := time.Now().UTC()
	rows := make([]models.ChannelProduct, 0, len(products))
	for _, p := range products {
		rows = append(rows, models.ChannelProduct{
			Channel:           channel,
			ExternalProductID: p.ID,
			Name:              p.Name,
			Status:            p.Status,
			SKU:               p.SKU,
			SyncedAt:          now,
		})
	}

	run.upsertInBatches(ctx, s.batchSize, len(rows), func(lo, hi int) error {
		return s.store.UpsertProducts(ctx, rows[lo:hi])
	})

	s.syncProductDetails(ctx, client, channel, products)
	return run.complete(ctx, s, credential)
}

// syncProductDetails is the product sync's second pass. Each product's detail
// is fetched and its option rows upserted; individual failures are logged and
// skipped so one bad product never aborts the rest.
func (s *SyncService) syncProductDetails(ctx context.Context, client clients.ChannelClient, channel models.ChannelType, products []clients.ExternalProduct) {
	for _, p := range products {
		detail, err := client.GetProductDetail(ctx, p.ID)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"channel":   channel,
				"productId": p.ID,
			}).Warn("Skipping product detail")
			continue
		}
		if len(detail.Options) == 0 {
			continue
		}

		local, err := s.store.GetProductByExternal(ctx, channel, p.ID)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"channel":   channel,
				"productId": p.ID,
			}).Warn("Missing local row for product detail")
			continue
		}

		options := make([]models.ChannelProductOption, 0, len(detail.Options))
		for _, opt := range detail.Options {
			options = append(options, models.ChannelProductOption{
				ChannelProductID: local.ID,
				ExternalOptionID: opt.OptionID,
				OptionName:       opt.Name,
				SKU:              opt.SKU,
				StockQuantity:    opt.StockQuantity,
				Price:            opt.Price,
			})
		}
		if err := s.store.UpsertProductOptions(ctx, options); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"channel":   channel,
				"productId": p.ID,
			}).Warn("Failed to upsert product options")
		}
	}
}

// SyncInventory pulls every channel-side stock record and upserts raw stock
// rows on their composite natural key.
func (s *SyncService) SyncInventory(ctx context.Context, channel models.ChannelType, vendorID string, opts SyncOptions) (*SyncResult, error) {
	release, err := s.acquire(channel, vendorID, models.SyncTypeInventory)
	if err != nil {
		return nil, err
	}
	defer release()

	client, credential, err := s.prepareClient(ctx, channel, vendorID)
	if err != nil {
		return nil, err
	}

	run := s.beginRun(channel, vendorID, models.SyncTypeInventory)
	defer run.finish(ctx, s)

	records, err := clients.FetchAllInventory(ctx, client, &clients.PageQuery{Limit: s.pageSize})
	if err != nil {
		return nil, run.fail(err)
	}
	if len(records) == 0 {
		return run.empty("no inventory records returned"), nil
	}

	now := time.Now().UTC()
	rows := make([]models.ChannelStock, 0, len(records))
	for _, rec := range records {
		rows = append(rows, models.ChannelStock{
			Channel:             channel,
			ChannelSKU:          rec.ChannelSKU,
			ExternalProductID:   rec.ExternalProductID,
			OptionSignature:     rec.OptionSignature,
			ExternalProductName: rec.ProductName,
			StockQuantity:       rec.StockQuantity,
			IsDisplayed:         rec.IsDisplayed,
			IsSelling:           rec.IsSelling,
			SyncedAt:            now,
		})
	}

	run.upsertInBatches(ctx, s.batchSize, len(rows), func(lo, hi int) error {
		return s.store.UpsertStocks(ctx, rows[lo:hi])
	})
	return run.complete(ctx, s, credential)
}

// acquire claims the in-process guard for one (channel, vendor, type) sync.
// Different entity types for the same credential may interleave; two runs of
// the same type may not.
func (s *SyncService) acquire(channel models.ChannelType, vendorID string, syncType models.SyncType) (func(), error) {
	key := fmt.Sprintf("%s:%s:%s", channel, vendorID, syncType)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[key] {
		return nil, fmt.Errorf("a %s sync is already running for %s vendor %s", syncType, channel, vendorID)
	}
	s.running[key] = true
	return func() {
		s.mu.Lock()
		delete(s.running, key)
		s.mu.Unlock()
	}, nil
}

// prepareClient resolves active credentials and returns an initialized
// channel client. Failures here are configuration errors: they surface
// immediately and produce no sync log.
func (s *SyncService) prepareClient(ctx context.Context, channel models.ChannelType, vendorID string) (clients.ChannelClient, *models.ChannelCredential, error) {
	credential, err := s.credentials.GetActive(ctx, channel, vendorID)
	if err != nil {
		return nil, nil, err
	}
	client, err := s.newClient(channel)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Initialize(ctx, clients.Credentials{
		VendorID:     credential.VendorID,
		AccessKey:    credential.AccessKey,
		SecretKey:    credential.SecretKey,
		ClientID:     credential.ClientID,
		ClientSecret: credential.ClientSecret,
	}); err != nil {
		return nil, nil, err
	}
	return client, credential, nil
}

// syncRun tracks one logged invocation. finish writes the single audit row in
// a deferred path, so it happens on every exit after fetching begins.
type syncRun struct {
	started time.Time
	log     *models.SyncLog
	result  *SyncResult
	logged  bool
	done    bool
}

func (s *SyncService) beginRun(channel models.ChannelType, vendorID string, syncType models.SyncType) *syncRun {
	return &syncRun{
		started: time.Now(),
		log: &models.SyncLog{
			Channel:  channel,
			VendorID: vendorID,
			SyncType: syncType,
			Status:   models.SyncStatusError,
		},
		result: &SyncResult{
			Channel:  channel,
			VendorID: vendorID,
			SyncType: syncType,
		},
	}
}

// fail marks the run as an upstream error. The deferred finish still writes
// the audit row with status error and the caught message.
func (r *syncRun) fail(err error) error {
	r.log.Status = models.SyncStatusError
	r.log.ErrorMessage = err.Error()
	r.done = true
	return err
}

// empty terminates a run that fetched zero records: a valid success with zero
// counts, not an error.
func (r *syncRun) empty(message string) *SyncResult {
	r.log.Status = models.SyncStatusSuccess
	r.result.Status = models.SyncStatusSuccess
	r.result.Message = fmt.Sprintf("%s: %s", r.result.Channel, message)
	r.done = true
	return r.result
}

// upsertInBatches applies fixed-size batches, isolating failures so one bad
// batch never aborts the rest.
func (r *syncRun) upsertInBatches(ctx context.Context, batchSize, total int, upsert func(lo, hi int) error) {
	for lo := 0; lo < total; lo += batchSize {
		hi := lo + batchSize
		if hi > total {
			hi = total
		}
		if err := upsert(lo, hi); err != nil {
			r.result.Failed += hi - lo
			errs := r.log.ErrorMessage
			if errs != "" {
				errs += "; "
			}
			r.log.ErrorMessage = errs + fmt.Sprintf("batch %d-%d: %s", lo, hi, truncateError(err))
			continue
		}
		r.result.Synced += hi - lo
	}
	r.result.Total = total
}

// complete settles the run's terminal status and, on full success, advances
// the credential's last-synced timestamp.
func (r *syncRun) complete(ctx context.Context, s *SyncService, credential *models.ChannelCredential) (*SyncResult, error) {
	if r.result.Failed == 0 {
		r.result.Status = models.SyncStatusSuccess
	} else {
		r.result.Status = models.SyncStatusPartial
	}
	r.log.Status = r.result.Status
	r.done = true

	if r.result.Status == models.SyncStatusSuccess {
		if err := s.credentials.UpdateLastSyncedAt(ctx, credential.ID, time.Now().UTC()); err != nil {
			s.logger.WithError(err).Warn("Failed to update last synced timestamp")
		}
	}
	return r.result, nil
}

// finish writes the single sync log row. Runs deferred so the audit trail is
// complete even when the orchestrator returns an error mid-way.
func (r *syncRun) finish(ctx context.Context, s *SyncService) {
	if r.logged {
		return
	}
	r.logged = true

	if !r.done {
		// Reached only when an unexpected return path skipped settlement.
		r.log.Status = models.SyncStatusError
		if r.log.ErrorMessage == "" {
			r.log.ErrorMessage = "sync aborted before completion"
		}
	}
	r.log.ItemsSynced = r.result.Synced
	r.log.ItemsFailed = r.result.Failed
	r.log.DurationMS = time.Since(r.started).Milliseconds()
	r.result.Duration = time.Since(r.started)

	if err := s.syncLogs.Create(ctx, r.log); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"channel":  r.log.Channel,
			"syncType": r.log.SyncType,
		}).Error("Failed to write sync log")
	}

	s.publisher.PublishSyncCompleted(&events.SyncCompletedEvent{
		Channel:     string(r.log.Channel),
		VendorID:    r.log.VendorID,
		SyncType:    string(r.log.SyncType),
		Status:      string(r.log.Status),
		ItemsSynced: r.log.ItemsSynced,
		ItemsFailed: r.log.ItemsFailed,
		DurationMS:  r.log.DurationMS,
		OccurredAt:  time.Now().UTC(),
	})
}

func orderIdempotencyKey(channel models.ChannelType, orderID, lineItemID string) string {
	return fmt.Sprintf("%s-%s-%s", channel, orderID, lineItemID)
}

func orderWindow(opts SyncOptions) (time.Time, time.Time) {
	end := opts.EndDate
	if end.IsZero() {
		end = time.Now().UTC()
	}
	start := opts.StartDate
	if start.IsZero() {
		start = end.AddDate(0, 0, -7)
	}
	return start, end
}

func truncateError(err error) string {
	msg := err.Error()
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}
