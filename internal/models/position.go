package models

// Position is a user's aggregate holding in one asset: units plus weighted
// average cost. One live row per (user, asset); the row is deleted when a sell
// reduces units to zero, so a position never exists with zero units.
//
// InvestmentAmount tracks the cost basis of the remaining units independently
// of AvgCostPerUnit: buys add the full purchase amount and recompute the
// average, partial sells shrink it proportionally and leave the average
// untouched.
type Position struct {
	Base
	UserID           uint    `gorm:"not null;uniqueIndex:idx_positions_user_asset,where:deleted_at IS NULL" json:"user_id"`
	AssetID          uint    `gorm:"not null;uniqueIndex:idx_positions_user_asset,where:deleted_at IS NULL" json:"asset_id"`
	Units            float64 `gorm:"not null" json:"units"`
	AvgCostPerUnit   int64   `gorm:"type:bigint;not null" json:"avg_cost_per_unit"`
	InvestmentAmount int64   `gorm:"type:bigint;not null" json:"investment_amount"`

	// Relationships
	Asset Asset `gorm:"foreignKey:AssetID" json:"asset"`
}
