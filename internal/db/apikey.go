package db

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// APIKey authorizes a reporting service to ingest metric events. Keys
// identify the caller service, not end users — user identity arrives in
// the metric payload itself.
type APIKey struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// Name is a friendly identifier for the calling service
	// (e.g. "web-client").
	Name string `gorm:"size:128;not null"`

	// Key is the actual bearer token value.
	Key string `gorm:"uniqueIndex;size:255;not null"`

	// Active indicates whether this key is currently enabled.
	Active bool `gorm:"default:true"`
}

// APIKeyStore resolves bearer tokens against the api_keys table.
type APIKeyStore struct {
	db *gorm.DB
}

func NewAPIKeyStore(db *gorm.DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

// FindActive returns (nil, nil) for unknown or disabled keys.
func (s *APIKeyStore) FindActive(key string) (*APIKey, error) {
	var apiKey APIKey
	err := s.db.Where("key = ? AND active = ?", key, true).First(&apiKey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &apiKey, nil
}
