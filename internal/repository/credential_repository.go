package repository

import (
	"context"
	"fmt"
	"time"

	"channel-inventory-service/internal/crypto"
	"channel-inventory-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CredentialRepository handles channel credential rows. Secret fields are
// encrypted at rest when a cipher is configured; a nil cipher stores them
// as-is (development only).
type CredentialRepository struct {
	db     *gorm.DB
	cipher *crypto.SecretCipher
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *gorm.DB, cipher *crypto.SecretCipher) *CredentialRepository {
	return &CredentialRepository{db: db, cipher: cipher}
}

// Create stores a new credential with encrypted secrets.
func (r *CredentialRepository) Create(ctx context.Context, credential *models.ChannelCredential) error {
	if err := r.seal(credential); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(credential).Error
}

// GetActive returns the active credential for a (channel, vendor) pair and
// decrypts its secrets. Missing or inactive credentials are a configuration
// error the caller surfaces verbatim.
func (r *CredentialRepository) GetActive(ctx context.Context, channel models.ChannelType, vendorID string) (*models.ChannelCredential, error) {
	var credential models.ChannelCredential
	err := r.db.WithContext(ctx).
		Where("channel = ? AND vendor_id = ?", channel, vendorID).
		First(&credential).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("no credentials registered for %s vendor %s", channel, vendorID)
		}
		return nil, err
	}
	if !credential.IsActive {
		return nil, fmt.Errorf("credentials for %s vendor %s are disabled", channel, vendorID)
	}
	if err := r.open(&credential); err != nil {
		return nil, err
	}
	return &credential, nil
}

// List returns all credentials, secrets redacted by the model's JSON tags.
func (r *CredentialRepository) List(ctx context.Context) ([]models.ChannelCredential, error) {
	var credentials []models.ChannelCredential
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&credentials).Error
	return credentials, err
}

// SetActive toggles a credential on or off.
func (r *CredentialRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.ChannelCredential{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateLastSyncedAt records the completion time of a fully-logged
// successful sync. This is the credential row's only operational mutation.
func (r *CredentialRepository) UpdateLastSyncedAt(ctx context.Context, id uuid.UUID, syncedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ChannelCredential{}).
		Where("id = ?", id).
		Update("last_synced_at", syncedAt).Error
}

func (r *CredentialRepository) seal(credential *models.ChannelCredential) error {
	if r.cipher == nil {
		return nil
	}
	sealed, err := r.cipher.Encrypt(credential.SecretKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt secret key: %w", err)
	}
	credential.SecretKey = sealed

	sealed, err = r.cipher.Encrypt(credential.ClientSecret)
	if err != nil {
		return fmt.Errorf("failed to encrypt client secret: %w", err)
	}
	credential.ClientSecret = sealed
	return nil
}

func (r *CredentialRepository) open(credential *models.ChannelCredential) error {
	if r.cipher == nil {
		return nil
	}
	plain, err := r.cipher.Decrypt(credential.SecretKey)
	if err != nil {
		return fmt.Errorf("failed to decrypt secret key: %w", err)
	}
	credential.SecretKey = plain

	plain, err = r.cipher.Decrypt(credential.ClientSecret)
	if err != nil {
		return fmt.Errorf("failed to decrypt client secret: %w", err)
	}
	credential.ClientSecret = plain
	return nil
}
