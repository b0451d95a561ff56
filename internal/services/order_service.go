package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "folio/internal/errors"
	"folio/internal/models"
	"folio/internal/pagination"
	"folio/internal/pricing"
)

// settlementLag is the delay between order date and settlement date (T+2).
const settlementLag = 48 * time.Hour

// unitEpsilon guards float comparisons when deciding whether a sell emptied
// a position.
const unitEpsilon = 1e-9

// orderService implements the order lifecycle engine: placement, update,
// cancellation, and the atomic confirm/reject settlement paths that mutate
// the cash ledger, the position book, and the transaction log together.
type orderService struct {
	db             *gorm.DB
	accountService AccountServicer
	assetService   AssetServicer
	oracle         pricing.Oracle
}

// NewOrderService creates a new OrderServicer.
func NewOrderService(db *gorm.DB, accountService AccountServicer, assetService AssetServicer, oracle pricing.Oracle) OrderServicer {
	return &orderService{
		db:             db,
		accountService: accountService,
		assetService:   assetService,
		oracle:         oracle,
	}
}

// orderAmount computes the order notional in cents from a unit quantity and
// a per-unit price in cents.
func orderAmount(quantity float64, unitPrice int64) int64 {
	return int64(math.Round(quantity * float64(unitPrice)))
}

// PlaceOrder validates a trade request and creates it in
// (placed, pending_confirmation). Market-open orders are priced by the
// reference price oracle; an oracle failure blocks placement rather than
// falling back to a stand-in price. Buys require sufficient cash at
// placement time.
func (s *orderService) PlaceOrder(
	ctx context.Context,
	userID, accountID uint,
	symbol string,
	side models.OrderSide,
	orderType models.OrderType,
	quantity float64,
	limitPrice *int64,
) (*models.Order, error) {
	if quantity <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "quantity must be greater than zero")
	}
	if side != models.OrderSideBuy && side != models.OrderSideSell {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "side must be buy or sell")
	}

	account, err := s.accountService.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}

	asset, err := s.assetService.LookupBySymbol(symbol)
	if err != nil {
		return nil, err
	}

	var unitPrice int64
	switch orderType {
	case models.OrderTypeLimit:
		if limitPrice == nil || *limitPrice <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit orders require a positive limit price")
		}
		unitPrice = *limitPrice
	case models.OrderTypeMarketOpen:
		if limitPrice != nil {
			return nil, apperrors.ErrInvalidOrderType
		}
		unitPrice, err = s.oracle.GetReferencePrice(ctx, asset.Symbol)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrPriceUnavailable, err)
		}
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "order type must be market_open or limit")
	}

	amount := orderAmount(quantity, unitPrice)

	if side == models.OrderSideBuy && account.CashBalance < amount {
		return nil, apperrors.ErrInsufficientFunds
	}

	now := time.Now()
	order := &models.Order{
		UserID:             userID,
		AccountID:          account.ID,
		AssetID:            asset.ID,
		Side:               side,
		Type:               orderType,
		Quantity:           quantity,
		UnitPrice:          unitPrice,
		Amount:             amount,
		OrderStatus:        models.OrderStatusPlaced,
		ConfirmationStatus: models.ConfirmationPending,
		OrderDate:          now,
		SettlementDate:     now.Add(settlementLag),
	}
	if orderType == models.OrderTypeLimit {
		order.LimitPrice = limitPrice
	}

	if err := s.db.Create(order).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	order.Asset = *asset
	return order, nil
}

// UpdateOrder mutates the supplied fields of a pre-confirmation order,
// recomputes the notional amount, and resets the confirmation status to
// pending: a modified order always needs re-review.
func (s *orderService) UpdateOrder(userID, orderID uint, fields OrderUpdateFields) (*models.Order, error) {
	order, err := s.getOwnedOrder(userID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanModify() {
		return nil, apperrors.ErrInvalidOrderState
	}

	if fields.Quantity == nil && fields.Type == nil && fields.LimitPrice == nil {
		return nil, apperrors.ErrNoChanges
	}

	effectiveType := order.Type
	if fields.Type != nil {
		if *fields.Type != models.OrderTypeMarketOpen && *fields.Type != models.OrderTypeLimit {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "order type must be market_open or limit")
		}
		effectiveType = *fields.Type
	}
	if fields.LimitPrice != nil && effectiveType != models.OrderTypeLimit {
		return nil, apperrors.ErrInvalidOrderType
	}
	if effectiveType == models.OrderTypeLimit && fields.LimitPrice == nil && order.LimitPrice == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "switching to a limit order requires a limit price")
	}
	if fields.Quantity != nil && *fields.Quantity <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "quantity must be greater than zero")
	}
	if fields.LimitPrice != nil && *fields.LimitPrice <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit price must be greater than zero")
	}

	newQuantity := order.Quantity
	if fields.Quantity != nil {
		newQuantity = *fields.Quantity
	}
	newUnitPrice := order.UnitPrice
	if fields.LimitPrice != nil {
		// limit orders execute at the user-supplied price
		newUnitPrice = *fields.LimitPrice
	}

	updates := map[string]interface{}{
		"quantity":            newQuantity,
		"unit_price":          newUnitPrice,
		"amount":              orderAmount(newQuantity, newUnitPrice),
		"confirmation_status": models.ConfirmationPending,
	}
	if fields.Type != nil {
		updates["type"] = *fields.Type
		if *fields.Type == models.OrderTypeMarketOpen {
			updates["limit_price"] = nil
		}
	}
	if fields.LimitPrice != nil {
		updates["limit_price"] = *fields.LimitPrice
	}

	if err := s.db.Model(order).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Reload to get fresh data
	return s.getOwnedOrder(userID, orderID)
}

// CancelOrder marks a pre-execution order cancelled. The confirmation status
// is left as-is and no settlement effects occur.
func (s *orderService) CancelOrder(userID, orderID uint) error {
	order, err := s.getOwnedOrder(userID, orderID)
	if err != nil {
		return err
	}

	res := s.db.Model(&models.Order{}).
		Where("id = ? AND order_status IN ?", order.ID,
			[]models.OrderStatus{models.OrderStatusPlaced, models.OrderStatusUnderReview}).
		Update("order_status", models.OrderStatusCancelled)
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrInvalidOrderState
	}
	return nil
}

// ConfirmOrder executes settlement for a pending order. The order claim, the
// cash movement, the position mutation, and the transaction log append run in
// one database transaction: either all four land or none do. The guarded
// claim update re-checks the state inside the transaction, so a second
// confirmation of the same order fails with INVALID_ORDER_STATE instead of
// settling twice.
func (s *orderService) ConfirmOrder(userID, orderID uint) (*ConfirmResult, error) {
	var result ConfirmResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrOrderNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND confirmation_status = ? AND order_status IN ?",
				order.ID, models.ConfirmationPending,
				[]models.OrderStatus{models.OrderStatusPlaced, models.OrderStatusUnderReview}).
			Updates(map[string]interface{}{
				"order_status":        models.OrderStatusExecuted,
				"confirmation_status": models.ConfirmationConfirmed,
			})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrInvalidOrderState
		}

		var newBalance int64
		var err error
		switch order.Side {
		case models.OrderSideBuy:
			newBalance, err = s.settleBuy(tx, &order)
		case models.OrderSideSell:
			newBalance, err = s.settleSell(tx, &order)
		default:
			err = apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown order side")
		}
		if err != nil {
			return err
		}

		order.OrderStatus = models.OrderStatusExecuted
		order.ConfirmationStatus = models.ConfirmationConfirmed
		result = ConfirmResult{Order: &order, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// settleBuy debits the account and folds the purchase into the position book.
// The debit is guarded on the current balance because it may have changed
// since placement.
func (s *orderService) settleBuy(tx *gorm.DB, order *models.Order) (int64, error) {
	res := tx.Model(&models.Account{}).
		Where("id = ? AND cash_balance >= ?", order.AccountID, order.Amount).
		Update("cash_balance", gorm.Expr("cash_balance - ?", order.Amount))
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.Account{}).Where("id = ?", order.AccountID).Count(&count).Error; err != nil {
			return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return 0, apperrors.ErrAccountNotFound
		}
		return 0, apperrors.ErrInsufficientFunds
	}

	// One upsert folds the purchase into the position book. The unique
	// (user_id, asset_id) index on live rows serializes concurrent first
	// buys: the loser of the insert race lands in the DO UPDATE branch
	// instead of opening a second row for the pair.
	position := models.Position{
		UserID:           order.UserID,
		AssetID:          order.AssetID,
		Units:            order.Quantity,
		AvgCostPerUnit:   order.UnitPrice,
		InvestmentAmount: order.Amount,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "user_id"}, {Name: "asset_id"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{gorm.Expr("deleted_at IS NULL")}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"units":             gorm.Expr("positions.units + excluded.units"),
			"investment_amount": gorm.Expr("positions.investment_amount + excluded.investment_amount"),
		}),
	}).Create(&position).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// The average is recomputed from the full running totals, so it is
	// independent of how the purchases were split across orders.
	if err := tx.Where("user_id = ? AND asset_id = ?", order.UserID, order.AssetID).
		First(&position).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	avg := int64(math.Round(float64(position.InvestmentAmount) / position.Units))
	if err := tx.Model(&position).Update("avg_cost_per_unit", avg).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.appendTransaction(tx, order, models.TransactionTypeBuy); err != nil {
		return 0, err
	}

	return s.accountBalance(tx, order.AccountID)
}

// settleSell credits the sale proceeds and shrinks or deletes the position.
// The units decrement is guarded so two concurrent sells cannot both pass the
// check against a stale read and oversell the position.
func (s *orderService) settleSell(tx *gorm.DB, order *models.Order) (int64, error) {
	var position models.Position
	err := tx.Where("user_id = ? AND asset_id = ?", order.UserID, order.AssetID).First(&position).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperrors.ErrNoHoldings
	}
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	res := tx.Model(&models.Position{}).
		Where("id = ? AND units >= ?", position.ID, order.Quantity).
		Update("units", gorm.Expr("units - ?", order.Quantity))
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, apperrors.ErrInsufficientShares
	}

	if err := tx.First(&position, position.ID).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if position.Units <= unitEpsilon {
		// no zero-unit rows are retained
		if err := tx.Delete(&position).Error; err != nil {
			return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	} else {
		// A partial sell removes cost basis proportionally to the units sold
		// and leaves the average cost per remaining unit unchanged.
		unitsBefore := position.Units + order.Quantity
		proportionSold := order.Quantity / unitsBefore
		reduction := int64(math.Round(float64(position.InvestmentAmount) * proportionSold))
		if err := tx.Model(&position).
			Update("investment_amount", position.InvestmentAmount-reduction).Error; err != nil {
			return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	// Proceeds are quantity × execution price, not average cost.
	if err := tx.Model(&models.Account{}).Where("id = ?", order.AccountID).
		Update("cash_balance", gorm.Expr("cash_balance + ?", order.Amount)).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.appendTransaction(tx, order, models.TransactionTypeSell); err != nil {
		return 0, err
	}

	return s.accountBalance(tx, order.AccountID)
}

// RejectOrder declines a pending order. No ledger or position effects occur.
func (s *orderService) RejectOrder(userID, orderID uint) (*models.Order, error) {
	order, err := s.getOwnedOrder(userID, orderID)
	if err != nil {
		return nil, err
	}

	res := s.db.Model(&models.Order{}).
		Where("id = ? AND confirmation_status = ?", order.ID, models.ConfirmationPending).
		Update("confirmation_status", models.ConfirmationRejected)
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrInvalidOrderState
	}

	order.ConfirmationStatus = models.ConfirmationRejected
	return order, nil
}

// GetOrderByID returns an order owned by the user.
func (s *orderService) GetOrderByID(userID, orderID uint) (*models.Order, error) {
	return s.getOwnedOrder(userID, orderID)
}

// GetUserOrders returns a paginated, filtered list of the user's orders,
// newest first.
func (s *orderService) GetUserOrders(userID uint, page pagination.PageRequest, filter OrderFilter) (*pagination.PageResponse[models.Order], error) {
	page.Defaults()

	base := s.db.Model(&models.Order{}).Where("user_id = ?", userID)
	if filter.Status != nil {
		base = base.Where("order_status = ?", *filter.Status)
	}
	if filter.Confirmation != nil {
		base = base.Where("confirmation_status = ?", *filter.Confirmation)
	}
	if filter.Side != nil {
		base = base.Where("side = ?", *filter.Side)
	}
	if filter.AccountID != nil {
		base = base.Where("account_id = ?", *filter.AccountID)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var orders []models.Order
	if err := base.Preload("Asset").Order("order_date DESC").
		Scopes(pagination.Paginate(page)).Find(&orders).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(orders, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// getOwnedOrder fetches an order scoped to its owner.
func (s *orderService) getOwnedOrder(userID, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Asset").Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &order, nil
}

// appendTransaction writes the immutable settlement record for an executed order.
func (s *orderService) appendTransaction(tx *gorm.DB, order *models.Order, txType models.TransactionType) error {
	assetID := order.AssetID
	record := &models.Transaction{
		UserID:       order.UserID,
		AccountID:    order.AccountID,
		AssetID:      &assetID,
		Type:         txType,
		Date:         time.Now(),
		Units:        order.Quantity,
		PricePerUnit: order.UnitPrice,
		Amount:       order.Amount,
		Description:  fmt.Sprintf("Executed %s order #%d", order.Side, order.ID),
	}
	if err := tx.Create(record).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// accountBalance reads the current cash balance within the transaction.
func (s *orderService) accountBalance(tx *gorm.DB, accountID uint) (int64, error) {
	var account models.Account
	if err := tx.First(&account, accountID).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account.CashBalance, nil
}
