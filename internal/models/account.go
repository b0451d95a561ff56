package models

// Account holds a user's cash ledger. CashBalance is stored in cents and is
// mutated only by confirmed buy/sell orders and by deposits/withdrawals.
// It must never go negative after a confirmed operation.
type Account struct {
	Base
	UserID      uint   `gorm:"not null;index" json:"user_id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	CashBalance int64  `gorm:"type:bigint;not null;default:0" json:"cash_balance"`
	Currency    string `gorm:"not null;default:'USD'" json:"currency"`
	IsDefault   bool   `gorm:"default:false" json:"is_default"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	// Relationships
	Orders       []Order       `gorm:"foreignKey:AccountID" json:"orders,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:AccountID" json:"transactions,omitempty"`
}
