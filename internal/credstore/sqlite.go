package credstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore persists records in a single-file SQLite database via GORM.
// This is the durable default backend.
type SQLiteStore struct {
	db *gorm.DB
}

// Compile-time check to ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if necessary) the database under dataDir
// and migrates the record table.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data_dir is required for sqlite storage")
	}

	dbPath := filepath.Join(dataDir, "tokenrelay.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the record for the device. Returns ErrNotFound if absent.
func (s *SQLiteStore) Get(ctx context.Context, deviceID string) (*Record, error) {
	var record Record
	result := s.db.WithContext(ctx).First(&record, "device_id = ?", deviceID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &record, nil
}

// Put creates or fully overwrites the record for record.DeviceID.
func (s *SQLiteStore) Put(ctx context.Context, record *Record) error {
	return s.db.WithContext(ctx).Save(record).Error
}

// Update overwrites an existing record. Returns ErrNotFound if absent.
func (s *SQLiteStore) Update(ctx context.Context, record *Record) error {
	result := s.db.WithContext(ctx).Model(&Record{DeviceID: record.DeviceID}).Updates(map[string]any{
		"access_token":  record.AccessToken,
		"refresh_token": record.RefreshToken,
		"expires_in":    record.ExpiresIn,
		"timestamp":     record.Timestamp,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the record for the device. Returns ErrNotFound if absent.
func (s *SQLiteStore) Delete(ctx context.Context, deviceID string) error {
	result := s.db.WithContext(ctx).Delete(&Record{}, "device_id = ?", deviceID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
