package models

import "time"

// TransactionType represents the type of ledger transaction
type TransactionType string

const (
	TransactionTypeBuy        TransactionType = "buy"
	TransactionTypeSell       TransactionType = "sell"
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

// Transaction is an append-only record of an executed ledger effect: one row
// per confirmed buy/sell settlement plus one per cash deposit/withdrawal.
// Rows are never updated after creation.
type Transaction struct {
	Base
	UserID       uint            `gorm:"not null;index" json:"user_id"`
	AccountID    uint            `gorm:"not null" json:"account_id"`
	AssetID      *uint           `json:"asset_id,omitempty"`
	Type         TransactionType `gorm:"not null" json:"type"`
	Date         time.Time       `gorm:"not null" json:"date"`
	Units        float64         `json:"units"`
	PricePerUnit int64           `gorm:"type:bigint" json:"price_per_unit"`
	Amount       int64           `gorm:"type:bigint;not null" json:"amount"`
	Description  string          `json:"description"`

	// Relationships
	Account Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Asset   *Asset  `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
}
