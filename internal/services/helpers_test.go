package services

import (
	"fmt"
	"strings"
	"testing"

	"channel-inventory-service/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database migrated with every model.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.ChannelCredential{},
		&models.Product{},
		&models.InventoryItem{},
		&models.ChannelOrder{},
		&models.ChannelProduct{},
		&models.ChannelProductOption{},
		&models.ChannelStock{},
		&models.Warehouse{},
		&models.WarehouseStock{},
		&models.StockTransfer{},
		&models.StockTransferItem{},
		&models.SyncLog{},
	))
	return db
}
