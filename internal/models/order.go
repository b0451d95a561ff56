package models

import "time"

// OrderSide represents the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType represents how an order is priced.
type OrderType string

const (
	OrderTypeMarketOpen OrderType = "market_open"
	OrderTypeLimit      OrderType = "limit"
)

// OrderStatus tracks the execution lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPlaced      OrderStatus = "placed"
	OrderStatusUnderReview OrderStatus = "under_review"
	OrderStatusCancelled   OrderStatus = "cancelled"
	OrderStatusExecuted    OrderStatus = "executed"
)

// ConfirmationStatus tracks whether a placed order has been reviewed and
// accepted or rejected, independently of execution status. Cancellation and
// confirmation are mutually exclusive terminal paths.
type ConfirmationStatus string

const (
	ConfirmationPending   ConfirmationStatus = "pending_confirmation"
	ConfirmationConfirmed ConfirmationStatus = "confirmed"
	ConfirmationRejected  ConfirmationStatus = "rejected"
)

// Order represents a trade request moving through the dual-status lifecycle.
// Amount is always Quantity × UnitPrice in cents, recomputed whenever the
// quantity or limit price changes.
type Order struct {
	Base
	UserID             uint               `gorm:"not null;index" json:"user_id"`
	AccountID          uint               `gorm:"not null" json:"account_id"`
	AssetID            uint               `gorm:"not null" json:"asset_id"`
	Side               OrderSide          `gorm:"not null" json:"side"`
	Type               OrderType          `gorm:"not null" json:"type"`
	Quantity           float64            `gorm:"not null" json:"quantity"`
	UnitPrice          int64              `gorm:"type:bigint;not null" json:"unit_price"`
	LimitPrice         *int64             `gorm:"type:bigint" json:"limit_price,omitempty"`
	Amount             int64              `gorm:"type:bigint;not null" json:"amount"`
	OrderStatus        OrderStatus        `gorm:"not null;default:'placed'" json:"order_status"`
	ConfirmationStatus ConfirmationStatus `gorm:"not null;default:'pending_confirmation'" json:"confirmation_status"`
	OrderDate          time.Time          `gorm:"not null" json:"order_date"`
	SettlementDate     time.Time          `gorm:"not null" json:"settlement_date"`

	// Relationships
	Account Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Asset   Asset   `gorm:"foreignKey:AssetID" json:"asset"`
}

// CanModify reports whether the order may still be updated or cancelled.
// Only the execution status gates these operations; confirmation status is
// reset by updates and left untouched by cancellation.
func (o *Order) CanModify() bool {
	return o.OrderStatus == OrderStatusPlaced || o.OrderStatus == OrderStatusUnderReview
}

// CanConfirm reports whether the order is eligible for confirmation and
// settlement: still pending review and not on a terminal execution path.
func (o *Order) CanConfirm() bool {
	return o.ConfirmationStatus == ConfirmationPending && o.CanModify()
}
