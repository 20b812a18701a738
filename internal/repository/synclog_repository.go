package repository

import (
	"context"

	"channel-inventory-service/internal/models"
	"gorm.io/gorm"
)

// SyncLogFilter narrows the sync log listing.
type SyncLogFilter struct {
	Channel  models.ChannelType
	SyncType models.SyncType
	Status   models.SyncStatus
	Limit    int
	Offset   int
}

// SyncLogRepository handles sync audit records.
type SyncLogRepository struct {
	db *gorm.DB
}

// NewSyncLogRepository creates a new sync log repository
func NewSyncLogRepository(db *gorm.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Create writes one audit row. Called exactly once per sync invocation.
func (r *SyncLogRepository) Create(ctx context.Context, log *models.SyncLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// List returns audit rows newest first with the total match count.
func (r *SyncLogRepository) List(ctx context.Context, filter SyncLogFilter) ([]models.SyncLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SyncLog{})
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}
	if filter.SyncType != "" {
		query = query.Where("sync_type = ?", filter.SyncType)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var logs []models.SyncLog
	err := query.Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&logs).Error
	return logs, total, err
}
