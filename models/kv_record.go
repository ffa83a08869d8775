package models

import (
	"time"

	"gorm.io/datatypes"
)

// KVRecord is one named JSON document in the relational persistence store
type KVRecord struct {
	Key       string         `json:"key" db:"key" gorm:"column:key;type:text;primaryKey;not null"`
	Value     datatypes.JSON `json:"value" db:"value" gorm:"column:value;type:jsonb;not null"`
	UpdatedAt time.Time      `json:"updatedAt" db:"updated_at" gorm:"column:updated_at;type:timestamptz;not null;autoUpdateTime"`
}

func (KVRecord) TableName() string {
	return "kv_records"
}
