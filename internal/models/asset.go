package models

// AssetClass represents the class of a tradable asset.
type AssetClass string

const (
	AssetClassStock  AssetClass = "stock"
	AssetClassETF    AssetClass = "etf"
	AssetClassBond   AssetClass = "bond"
	AssetClassCrypto AssetClass = "crypto"
	AssetClassREIT   AssetClass = "reit"
)

// Asset represents a tradable instrument from the shared reference catalog.
// Catalog rows are read-only to the order engine; orders and positions
// reference them by ID.
type Asset struct {
	Base
	Symbol     string     `gorm:"not null;uniqueIndex:uq_assets_symbol_exchange" json:"symbol"`
	Name       string     `gorm:"not null" json:"name"`
	AssetClass AssetClass `gorm:"not null" json:"asset_class"`
	Currency   string     `gorm:"not null;default:'USD'" json:"currency"`
	Exchange   string     `gorm:"uniqueIndex:uq_assets_symbol_exchange" json:"exchange,omitempty"`
}
