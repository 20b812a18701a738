package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncType identifies which entity a sync run covered.
type SyncType string

const (
	SyncTypeOrders    SyncType = "orders"
	SyncTypeProducts  SyncType = "products"
	SyncTypeInventory SyncType = "inventory"
)

// SyncStatus is the terminal outcome of one sync invocation.
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusPartial SyncStatus = "partial"
	SyncStatusError   SyncStatus = "error"
)

// SyncLog is the audit record of one sync invocation. Exactly one row is
// written per invocation regardless of outcome; operators use it to decide
// whether to retry.
type SyncLog struct {
	ID       uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Channel  ChannelType `gorm:"type:varchar(20);not null;index:idx_sync_logs_channel" json:"channel"`
	VendorID string      `gorm:"type:varchar(100);index" json:"vendorId"`
	SyncType SyncType    `gorm:"type:varchar(20);not null;index:idx_sync_logs_type" json:"syncType"`
	Status   SyncStatus  `gorm:"type:varchar(20);not null;index:idx_sync_logs_status" json:"status"`

	ItemsSynced int `gorm:"not null;default:0" json:"itemsSynced"`
	ItemsFailed int `gorm:"not null;default:0" json:"itemsFailed"`

	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`

	DurationMS   int64  `gorm:"not null" json:"durationMs"`
	ErrorMessage string `gorm:"type:text" json:"errorMessage,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_sync_logs_created" json:"createdAt"`
}

func (SyncLog) TableName() string {
	return "sync_logs"
}

func (l *SyncLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
