package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"folio/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAccount creates an account with the given cash balance (in cents).
func CreateTestAccount(t *testing.T, db *gorm.DB, userID uint, balance int64) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:      userID,
		Name:        fmt.Sprintf("Test Account %d", nextID()),
		CashBalance: balance,
		Currency:    "USD",
		IsActive:    true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestAsset creates a stock asset with a unique symbol.
func CreateTestAsset(t *testing.T, db *gorm.DB) *models.Asset {
	t.Helper()
	symbol := fmt.Sprintf("TST%d", nextID())
	return CreateTestAssetWithSymbol(t, db, symbol)
}

// CreateTestAssetWithSymbol creates a stock asset with the given symbol.
func CreateTestAssetWithSymbol(t *testing.T, db *gorm.DB, symbol string) *models.Asset {
	t.Helper()

	asset := &models.Asset{
		Symbol:     symbol,
		Name:       fmt.Sprintf("Test Asset %s", symbol),
		AssetClass: models.AssetClassStock,
		Currency:   "USD",
		Exchange:   "NASDAQ",
	}
	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("failed to create test asset: %v", err)
	}
	return asset
}

// CreateTestPosition creates a position with the given units and average cost
// (in cents per unit). The investment amount is derived from the two.
func CreateTestPosition(t *testing.T, db *gorm.DB, userID, assetID uint, units float64, avgCost int64) *models.Position {
	t.Helper()

	position := &models.Position{
		UserID:           userID,
		AssetID:          assetID,
		Units:            units,
		AvgCostPerUnit:   avgCost,
		InvestmentAmount: int64(units * float64(avgCost)),
	}
	if err := db.Create(position).Error; err != nil {
		t.Fatalf("failed to create test position: %v", err)
	}
	return position
}

// CreateTestOrder creates a limit order in (placed, pending_confirmation).
func CreateTestOrder(t *testing.T, db *gorm.DB, userID, accountID, assetID uint, side models.OrderSide, quantity float64, unitPrice int64) *models.Order {
	t.Helper()

	now := time.Now()
	limitPrice := unitPrice
	order := &models.Order{
		UserID:             userID,
		AccountID:          accountID,
		AssetID:            assetID,
		Side:               side,
		Type:               models.OrderTypeLimit,
		Quantity:           quantity,
		UnitPrice:          unitPrice,
		LimitPrice:         &limitPrice,
		Amount:             int64(quantity * float64(unitPrice)),
		OrderStatus:        models.OrderStatusPlaced,
		ConfirmationStatus: models.ConfirmationPending,
		OrderDate:          now,
		SettlementDate:     now.Add(48 * time.Hour),
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("failed to create test order: %v", err)
	}
	return order
}

// CreateTestPrice records a price for an asset at the given time.
func CreateTestPrice(t *testing.T, db *gorm.DB, assetID uint, price int64, recordedAt time.Time) *models.AssetPrice {
	t.Helper()

	entry := &models.AssetPrice{
		AssetID:    assetID,
		Price:      price,
		RecordedAt: recordedAt,
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed to create test price: %v", err)
	}
	return entry
}
