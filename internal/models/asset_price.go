package models

import "time"

// AssetPrice represents a historical price entry for an asset, pushed by the
// external price pipeline. Rows are immutable time-series data, so there is
// no Base embed and no soft delete.
type AssetPrice struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AssetID    uint      `gorm:"not null;index" json:"asset_id"`
	Price      int64     `gorm:"type:bigint;not null" json:"price"`
	RecordedAt time.Time `gorm:"not null" json:"recorded_at"`
	Asset      Asset     `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
}
