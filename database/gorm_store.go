package database

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rpupo63/inkwell/models"
)

// GormStore keeps records in the kv_records table of a relational database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db}
}

// GetDB returns the underlying database connection for debugging purposes
func (s *GormStore) GetDB() *gorm.DB {
	return s.db
}

// Migrate creates or updates the kv_records table
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&models.KVRecord{})
}

func (s *GormStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var record models.KVRecord
	err := s.db.WithContext(ctx).First(&record, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(record.Value), true, nil
}

func (s *GormStore) Set(ctx context.Context, key string, value []byte) error {
	record := models.KVRecord{Key: key, Value: datatypes.JSON(value)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
}
