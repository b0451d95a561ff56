package services

import (
	"context"
	"time"

	"folio/internal/models"
	"folio/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID uint, tokenHash string) error
	GetRefreshTokenHash(userID uint) (string, error)
}

// AccountUpdateFields holds optional fields for updating an account.
// Nil pointers leave the stored value unchanged.
type AccountUpdateFields struct {
	Name        *string
	Description *string
	IsDefault   *bool
	IsActive    *bool
}

// AccountServicer defines the contract for account-ledger business logic.
type AccountServicer interface {
	CreateAccount(userID uint, name, description, currency string, initialBalance int64) (*models.Account, error)
	GetUserAccounts(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(userID, accountID uint) (*models.Account, error)
	UpdateAccount(userID, accountID uint, fields AccountUpdateFields) (*models.Account, error)
	Deposit(userID, accountID uint, amount int64, description string) (*models.Transaction, error)
	Withdraw(userID, accountID uint, amount int64, description string) (*models.Transaction, error)
}

// AssetPriceInput is a single price entry pushed by the external price pipeline.
type AssetPriceInput struct {
	AssetID    uint      `json:"asset_id" binding:"required"`
	Price      int64     `json:"price" binding:"required,gt=0"`
	RecordedAt time.Time `json:"recorded_at" binding:"required"`
}

// AssetServicer defines the contract for the asset reference catalog.
type AssetServicer interface {
	CreateAsset(symbol, name string, assetClass models.AssetClass, currency, exchange string) (*models.Asset, error)
	GetAssetByID(id uint) (*models.Asset, error)
	LookupBySymbol(symbol string) (*models.Asset, error)
	ListAssets(page pagination.PageRequest) (*pagination.PageResponse[models.Asset], error)
	RecordPrices(prices []AssetPriceInput) (int, error)
	GetPriceHistory(assetID uint, from, to *time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.AssetPrice], error)
}

// OrderUpdateFields holds the mutable order fields for pre-confirmation
// updates. Nil pointers leave the stored value unchanged; at least one field
// must be supplied.
type OrderUpdateFields struct {
	Quantity   *float64
	Type       *models.OrderType
	LimitPrice *int64
}

// OrderFilter holds optional filter parameters for listing orders.
type OrderFilter struct {
	Status       *models.OrderStatus
	Confirmation *models.ConfirmationStatus
	Side         *models.OrderSide
	AccountID    *uint
}

// ConfirmResult carries the settled order together with the account's cash
// balance after settlement.
type ConfirmResult struct {
	Order      *models.Order `json:"order"`
	NewBalance int64         `json:"new_balance"`
}

// OrderServicer defines the contract for the order lifecycle engine.
type OrderServicer interface {
	PlaceOrder(ctx context.Context, userID, accountID uint, symbol string, side models.OrderSide, orderType models.OrderType, quantity float64, limitPrice *int64) (*models.Order, error)
	UpdateOrder(userID, orderID uint, fields OrderUpdateFields) (*models.Order, error)
	CancelOrder(userID, orderID uint) error
	ConfirmOrder(userID, orderID uint) (*ConfirmResult, error)
	RejectOrder(userID, orderID uint) (*models.Order, error)
	GetOrderByID(userID, orderID uint) (*models.Order, error)
	GetUserOrders(userID uint, page pagination.PageRequest, filter OrderFilter) (*pagination.PageResponse[models.Order], error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate  *time.Time
	ToDate    *time.Time
	Type      *models.TransactionType
	AccountID *uint
	AssetID   *uint
}

// ClassSummary contains summary data for a single asset class.
type ClassSummary struct {
	Value int64 `json:"value"`
	Count int   `json:"count"`
}

// PortfolioSummary contains aggregated portfolio data across all of a user's
// positions, valued at the latest recorded prices.
type PortfolioSummary struct {
	TotalValue      int64                              `json:"total_value"`
	TotalCostBasis  int64                              `json:"total_cost_basis"`
	TotalGainLoss   int64                              `json:"total_gain_loss"`
	GainLossPct     float64                            `json:"gain_loss_pct"`
	HoldingsByClass map[models.AssetClass]ClassSummary `json:"holdings_by_class"`
}

// PortfolioServicer defines the read side over the position book and the
// transaction log, consumed by aggregation and reporting. It never mutates
// either store.
type PortfolioServicer interface {
	GetUserPositions(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Position], error)
	GetPositionByID(userID, positionID uint) (*models.Position, error)
	GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetPortfolioSummary(userID uint) (*PortfolioSummary, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
