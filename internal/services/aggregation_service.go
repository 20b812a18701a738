package services

import (
	"context"
	"time"

	"channel-inventory-service/internal/models"
	"channel-inventory-service/internal/repository"
)

// StockBucket classifies a SKU by its authoritative stock level.
type StockBucket string

const (
	BucketZero   StockBucket = "zero"   // exactly 0
	BucketLow    StockBucket = "low"    // 1..10
	BucketNormal StockBucket = "normal" // above 10
)

func bucketFor(stock int) StockBucket {
	switch {
	case stock <= 0:
		return BucketZero
	case stock <= 10:
		return BucketLow
	default:
		return BucketNormal
	}
}

// ChannelStockSummary is one channel's view of a SKU. A nil summary means the
// channel has no record for the SKU at all, which is different from a summary
// with Total == 0 (the channel reported zero stock).
type ChannelStockSummary struct {
	Total      int                   `json:"total"`
	LastSynced time.Time             `json:"lastSynced"`
	Records    []models.ChannelStock `json:"records"`
}

// AggregatedItem is the merged inventory view of one SKU: authoritative
// stock, per-channel summaries and the per-warehouse breakdown.
type AggregatedItem struct {
	SKU         string `json:"sku"`
	ProductName string `json:"productName"`
	ParentSKU   string `json:"parentSku,omitempty"`
	Color       string `json:"color,omitempty"`
	Size        string `json:"size,omitempty"`

	CurrentStock   int         `json:"currentStock"`
	StockChange    int         `json:"stockChange"`
	AlertThreshold int         `json:"alertThreshold"`
	Bucket         StockBucket `json:"bucket"`
	SyncedAt       *time.Time  `json:"syncedAt,omitempty"`

	Channels   map[models.ChannelType]*ChannelStockSummary `json:"channels"`
	Warehouses map[string]int                              `json:"warehouses"`
}

// AggregationFilter selects which SKUs to aggregate. SKUs takes precedence;
// Bucket filters on the computed stock level after merging.
type AggregationFilter struct {
	SKUs      []string
	Search    string
	ParentSKU string
	Color     string
	Size      string
	Bucket    StockBucket
}

// InventoryStats is the dashboard roll-up over current inventory.
type InventoryStats struct {
	TotalSKUs   int `json:"totalSkus"`
	TotalStock  int `json:"totalStock"`
	ZeroStock   int `json:"zeroStock"`
	LowStock    int `json:"lowStock"`
	NormalStock int `json:"normalStock"`
	BelowAlert  int `json:"belowAlert"`
}

// AggregationService is the read-side merge engine. It is side-effect free:
// one query per table, then in-memory de-duplication and assembly, so a
// concurrent sync's partial write is never observed across queries.
type AggregationService struct {
	inventory *repository.InventoryRepository
	channels  *repository.ChannelRepository
}

// NewAggregationService creates a new aggregation service
func NewAggregationService(inventory *repository.InventoryRepository, channels *repository.ChannelRepository) *AggregationService {
	return &AggregationService{inventory: inventory, channels: channels}
}

// Aggregate produces exactly one item per catalog SKU matching the filter.
func (s *AggregationService) Aggregate(ctx context.Context, filter AggregationFilter) ([]AggregatedItem, error) {
	products, err := s.inventory.ListProducts(ctx, repository.ProductFilter{
		SKUs:      filter.SKUs,
		Search:    filter.Search,
		ParentSKU: filter.ParentSKU,
		Color:     filter.Color,
		Size:      filter.Size,
	})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return []AggregatedItem{}, nil
	}

	skus := make([]string, 0, len(products))
	for _, p := range products {
		skus = append(skus, p.SKU)
	}

	current, err := s.inventory.CurrentItems(ctx, skus)
	if err != nil {
		return nil, err
	}
	currentBySKU := make(map[string]models.InventoryItem, len(current))
	for _, item := range current {
		currentBySKU[item.SKU] = item
	}

	channelStocks, err := s.channels.StocksBySKUs(ctx, skus)
	if err != nil {
		return nil, err
	}
	summaries := summarizeChannelStocks(channelStocks)

	warehouseStocks, err := s.inventory.StocksForSKUs(ctx, skus)
	if err != nil {
		return nil, err
	}
	warehousesBySKU := make(map[string]map[string]int)
	for _, ws := range warehouseStocks {
		m := warehousesBySKU[ws.SKU]
		if m == nil {
			m = make(map[string]int)
			warehousesBySKU[ws.SKU] = m
		}
		m[ws.WarehouseID.String()] = ws.Quantity
	}

	items := make([]AggregatedItem, 0, len(products))
	for _, p := range products {
		item := AggregatedItem{
			SKU:         p.SKU,
			ProductName: p.ProductName,
			ParentSKU:   p.ParentSKU,
			Color:       p.Color,
			Size:        p.Size,
			Channels:    summaries[p.SKU],
			Warehouses:  warehousesBySKU[p.SKU],
		}
		if item.Channels == nil {
			item.Channels = map[models.ChannelType]*ChannelStockSummary{}
		}
		if item.Warehouses == nil {
			item.Warehouses = map[string]int{}
		}
		if inv, ok := currentBySKU[p.SKU]; ok {
			item.CurrentStock = inv.CurrentStock
			item.StockChange = inv.StockChange
			item.AlertThreshold = inv.AlertThreshold
			syncedAt := inv.SyncedAt
			item.SyncedAt = &syncedAt
		}
		item.Bucket = bucketFor(item.CurrentStock)

		if filter.Bucket != "" && item.Bucket != filter.Bucket {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// summarizeChannelStocks de-duplicates raw rows per logical key keeping the
// most recently synced one, then sums the distinct variants per channel.
func summarizeChannelStocks(stocks []models.ChannelStock) map[string]map[models.ChannelType]*ChannelStockSummary {
	type key struct {
		channel   models.ChannelType
		sku       string
		productID string
		signature string
	}
	latest := make(map[key]models.ChannelStock, len(stocks))
	for _, stock := range stocks {
		k := key{stock.Channel, stock.ChannelSKU, stock.ExternalProductID, stock.OptionSignature}
		if prev, ok := latest[k]; ok && !stock.SyncedAt.After(prev.SyncedAt) {
			continue
		}
		latest[k] = stock
	}

	result := make(map[string]map[models.ChannelType]*ChannelStockSummary)
	for _, stock := range latest {
		perChannel := result[stock.ChannelSKU]
		if perChannel == nil {
			perChannel = make(map[models.ChannelType]*ChannelStockSummary)
			result[stock.ChannelSKU] = perChannel
		}
		summary := perChannel[stock.Channel]
		if summary == nil {
			summary = &ChannelStockSummary{}
			perChannel[stock.Channel] = summary
		}
		summary.Total += stock.StockQuantity
		if stock.SyncedAt.After(summary.LastSynced) {
			summary.LastSynced = stock.SyncedAt
		}
		summary.Records = append(summary.Records, stock)
	}
	return result
}

// Stats rolls up bucket counts and the alert-threshold breach count over the
// whole catalog. The alert threshold is a per-SKU statistic independent of
// the fixed bucket boundaries.
func (s *AggregationService) Stats(ctx context.Context) (*InventoryStats, error) {
	items, err := s.Aggregate(ctx, AggregationFilter{})
	if err != nil {
		return nil, err
	}

	stats := &InventoryStats{TotalSKUs: len(items)}
	for _, item := range items {
		stats.TotalStock += item.CurrentStock
		switch item.Bucket {
		case BucketZero:
			stats.ZeroStock++
		case BucketLow:
			stats.LowStock++
		default:
			stats.NormalStock++
		}
		if item.AlertThreshold > 0 && item.CurrentStock <= item.AlertThreshold {
			stats.BelowAlert++
		}
	}
	return stats, nil
}
