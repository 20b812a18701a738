package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChannelType represents the supported sales channels
type ChannelType string

const (
	ChannelCoupang ChannelType = "COUPANG"
	ChannelNaver   ChannelType = "NAVER"
)

// ParseChannel converts a case-insensitive channel name into a ChannelType.
func ParseChannel(s string) (ChannelType, error) {
	switch ChannelType(strings.ToUpper(s)) {
	case ChannelCoupang:
		return ChannelCoupang, nil
	case ChannelNaver:
		return ChannelNaver, nil
	default:
		return "", fmt.Errorf("unknown channel: %s", s)
	}
}

// ChannelCredential holds the API credentials for one (channel, vendor) pair.
// Secret fields are AES-GCM encrypted at rest by the repository layer.
// LastSyncedAt is the only mutable operational field and is updated solely
// after a fully-logged successful sync run.
type ChannelCredential struct {
	ID       uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Channel  ChannelType `gorm:"type:varchar(20);not null;uniqueIndex:idx_channel_credentials_vendor" json:"channel"`
	VendorID string      `gorm:"type:varchar(100);not null;uniqueIndex:idx_channel_credentials_vendor" json:"vendorId"`

	// Coupang: HMAC key pair
	AccessKey string `gorm:"type:varchar(255)" json:"accessKey,omitempty"`
	SecretKey string `gorm:"type:text" json:"-"`

	// Naver: OAuth client-credentials pair
	ClientID     string `gorm:"type:varchar(255)" json:"clientId,omitempty"`
	ClientSecret string `gorm:"type:text" json:"-"`

	IsActive     bool       `gorm:"default:true" json:"isActive"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ChannelCredential) TableName() string {
	return "channel_credentials"
}

func (c *ChannelCredential) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
