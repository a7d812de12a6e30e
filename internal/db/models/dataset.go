package models

import (
	"time"

	"gorm.io/gorm"
)

// Dataset is one uploaded sales history, the scope within which jobs run
type Dataset struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	Frequency   string         `gorm:"not null;default:'monthly'" json:"frequency"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// SalesObservation is one demand data point for one SKU in a dataset.
// Rows are immutable after ingestion.
type SalesObservation struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	DatasetID uint      `gorm:"not null;index:idx_obs_series,priority:1" json:"dataset_id"`
	SKU       string    `gorm:"not null;index:idx_obs_series,priority:2" json:"sku"`
	Time      time.Time `gorm:"not null;index:idx_obs_series,priority:3" json:"time"`
	Quantity  float64   `gorm:"not null" json:"quantity"`
}
