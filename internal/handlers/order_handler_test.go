package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "folio/internal/errors"
	"folio/internal/models"
	"folio/internal/pagination"
	"folio/internal/services"
)

// --- mock order service ---

type mockOrderService struct {
	placeOrderFn    func(ctx context.Context, userID, accountID uint, symbol string, side models.OrderSide, orderType models.OrderType, quantity float64, limitPrice *int64) (*models.Order, error)
	updateOrderFn   func(userID, orderID uint, fields services.OrderUpdateFields) (*models.Order, error)
	cancelOrderFn   func(userID, orderID uint) error
	confirmOrderFn  func(userID, orderID uint) (*services.ConfirmResult, error)
	rejectOrderFn   func(userID, orderID uint) (*models.Order, error)
	getOrderByIDFn  func(userID, orderID uint) (*models.Order, error)
	getUserOrdersFn func(userID uint, page pagination.PageRequest, filter services.OrderFilter) (*pagination.PageResponse[models.Order], error)
}

func (m *mockOrderService) PlaceOrder(ctx context.Context, userID, accountID uint, symbol string, side models.OrderSide, orderType models.OrderType, quantity float64, limitPrice *int64) (*models.Order, error) {
	if m.placeOrderFn != nil {
		return m.placeOrderFn(ctx, userID, accountID, symbol, side, orderType, quantity, limitPrice)
	}
	return &models.Order{}, nil
}

func (m *mockOrderService) UpdateOrder(userID, orderID uint, fields services.OrderUpdateFields) (*models.Order, error) {
	if m.updateOrderFn != nil {
		return m.updateOrderFn(userID, orderID, fields)
	}
	return &models.Order{}, nil
}

func (m *mockOrderService) CancelOrder(userID, orderID uint) error {
	if m.cancelOrderFn != nil {
		return m.cancelOrderFn(userID, orderID)
	}
	return nil
}

func (m *mockOrderService) ConfirmOrder(userID, orderID uint) (*services.ConfirmResult, error) {
	if m.confirmOrderFn != nil {
		return m.confirmOrderFn(userID, orderID)
	}
	return &services.ConfirmResult{Order: &models.Order{}}, nil
}

func (m *mockOrderService) RejectOrder(userID, orderID uint) (*models.Order, error) {
	if m.rejectOrderFn != nil {
		return m.rejectOrderFn(userID, orderID)
	}
	return &models.Order{}, nil
}

func (m *mockOrderService) GetOrderByID(userID, orderID uint) (*models.Order, error) {
	if m.getOrderByIDFn != nil {
		return m.getOrderByIDFn(userID, orderID)
	}
	return &models.Order{}, nil
}

func (m *mockOrderService) GetUserOrders(userID uint, page pagination.PageRequest, filter services.OrderFilter) (*pagination.PageResponse[models.Order], error) {
	if m.getUserOrdersFn != nil {
		return m.getUserOrdersFn(userID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Order{}, 1, 20, 0)
	return &resp, nil
}

var _ services.OrderServicer = (*mockOrderService)(nil)

func setupOrderRouter(handler *OrderHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(1))
	auth.POST("/orders", handler.PlaceOrder)
	auth.GET("/orders", handler.ListOrders)
	auth.GET("/orders/:id", handler.GetOrder)
	auth.PATCH("/orders/:id", handler.UpdateOrder)
	auth.DELETE("/orders/:id", handler.CancelOrder)
	auth.POST("/orders/:id/confirm", handler.ConfirmOrder)
	auth.POST("/orders/:id/reject", handler.RejectOrder)
	return r
}

func TestOrderHandler_PlaceOrder(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		orderSvc := &mockOrderService{
			placeOrderFn: func(_ context.Context, userID, accountID uint, symbol string, side models.OrderSide, orderType models.OrderType, quantity float64, _ *int64) (*models.Order, error) {
				return &models.Order{
					Base:               models.Base{ID: 42},
					UserID:             userID,
					AccountID:          accountID,
					Side:               side,
					Type:               orderType,
					Quantity:           quantity,
					UnitPrice:          100_00,
					Amount:             500_00,
					OrderStatus:        models.OrderStatusPlaced,
					ConfirmationStatus: models.ConfirmationPending,
				}, nil
			},
		}
		handler := NewOrderHandler(orderSvc, &mockAuditService{})
		r := setupOrderRouter(handler)

		rec := doRequest(r, "POST", "/orders",
			`{"account_id":1,"symbol":"VTI","side":"buy","type":"limit","quantity":5,"limit_price":10000}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		order := result["order"].(map[string]interface{})
		if order["order_status"] != "placed" {
			t.Errorf("expected status placed, got %v", order["order_status"])
		}
		if order["confirmation_status"] != "pending_confirmation" {
			t.Errorf("expected pending_confirmation, got %v", order["confirmation_status"])
		}
	})

	t.Run("returns 400 on invalid side", func(t *testing.T) {
		handler := NewOrderHandler(&mockOrderService{}, &mockAuditService{})
		r := setupOrderRouter(handler)

		rec := doRequest(r, "POST", "/orders",
			`{"account_id":1,"symbol":"VTI","side":"short","type":"limit","quantity":5,"limit_price":10000}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on zero quantity", func(t *testing.T) {
		handler := NewOrderHandler(&mockOrderService{}, &mockAuditService{})
		r := setupOrderRouter(handler)

		rec := doRequest(r, "POST", "/orders",
			`{"account_id":1,"symbol":"VTI","side":"buy","type":"limit","quantity":0,"limit_price":10000}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 502 when price unavailable", func(t *testing.T) {
		orderSvc := &mockOrderService{
			placeOrderFn: func(_ context.Context, _, _ uint, _ string, _ models.OrderSide, _ models.OrderType, _ float64, _ *int64) (*models.Order, error) {
				return nil, apperrors.ErrPriceUnavailable
			},
		}
		handler := NewOrderHandler(orderSvc, &mockAuditService{})
		r := setupOrderRouter(handler)

		rec := doRequest(r, "POST", "/orders",
			`{"account_id":1,"symbol":"VTI","side":"buy","type":"market_open","quantity":5}`)

		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "PRICE_UNAVAILABLE")
	})

	t.Run("propagates insufficient funds", func(t *testing.T) {
		orderSvc := &mockOrderService{
			placeOrderFn: func(_ context.Context, _, _ uint, _ string, _ models.OrderSide, _ models.OrderType, _ float64, _ *int64) (*models.Order, error) {
				return nil, apperrors.ErrInsufficientFunds
			},
		}
		handler := NewOrderHandler(orderSvc, &mockAuditService{})
		r := setupOrderRouter(handler)

		rec := doRequest(r, "POST", "/orders",
			`{"account_id":1,"symbol":"VTI","side":"buy","type":"limit","quantity":5,"limit_price":10000}`)

		if rec.Code != apperrors.ErrInsufficientFunds.StatusCode {
			t.Fatalf("expected %d, got %d", apperrors.ErrInsufficientFunds.StatusCode, rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INSUFFICIENT_FUNDS")
	})
}

func TestOrderHandler_UpdateOrder(t *testing.T) {
	t.Run("passes fields through", func(t *testing.T) {
		var got services.OrderUpdateFields
		orderSvc := &mockOrderService{
			updateOrderFn: func(_, _ uint, fields services.OrderUpdateFields) (*models.Order, error) {
				got = fields
				return &models.Order{Base: models.Base{ID: 9}}, nil
			},
		}
		handler := NewOrderHandler(orderSvc, &mockAuditService{})
		r := setupOrderRouter(handler)

		rec := doRequest(r, "PATCH", "/orders/9", `{"quantity":8,"limit_price":9500}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Quantity == nil || *got.Quantity != 8 {
			t.Error("expected quantity 8 passed through")
		}
		if got.LimitPrice == nil || *got.LimitPrice != 9500 {
			t.Error("expected limit price 9500 passed through")
		}
		if got.Type != nil {
			t.Error("expected type omitted")
		}
	})

	t.Run("returns 409 when no longer modifiable", func(t *testing.T) {
		orderSvc := &mockOrderService{
			updateOrderFn: func(_, _ uint, _ services.OrderUpdateFields) (*models.Order, error) {
				return nil, apperrors.ErrInvalidOrderState
			},
		}
		handler := NewOrderHandler(orderSvc, &mockAuditService{})
		r := setupOrderRouter(handler)

		rec := doRequest(r, "PATCH", "/orders/9", `{"quantity":8}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_ORDER_STATE")
	})

	t.Run("returns 400 on bad path id", func(t *testing.T) {
		handler := NewOrderHandler(&mockOrderService{}, &mockAuditService{})
		r := setupOrderRouter(handler)

		rec := doRequest(r, "PATCH", "/orders/abc", `{"quantity":8}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestOrderHandler_ConfirmOrder(t *testing.T) {
	t.Run("returns settlement result", func(t *testing.T) {
		orderSvc := &mockOrderService{
			confirmOrderFn: func(userID, orderID uint) (*services.ConfirmResult, error) {
				return &services.ConfirmResult{
					Order: &models.Order{
						Base:               models.Base{ID: orderID},
						UserID:             userID,
						OrderStatus:        models.OrderStatusExecuted,
						ConfirmationStatus: models.ConfirmationConfirmed,
						Amount:             500_00,
					},
					NewBalance: 1_500_00,
				}, nil
			},
		}
		handler := NewOrderHandler(orderSvc, &mockAuditService{})
		r := setupOrderRouter(handler)

		rec := doRequest(r, "POST", "/orders/42/confirm", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["new_balance"].(float64) != 150000 {
			t.Errorf("expected new_balance 150000, got %v", result["new_balance"])
		}
		order := result["order"].(map[string]interface{})
		if order["order_status"] != "executed" {
			t.Errorf("expected executed, got %v", order["order_status"])
		}
	})

	t.Run("returns 409 on already settled order", func(t *testing.T) {
		orderSvc := &mockOrderService{
			confirmOrderFn: func(_, _ uint) (*services.ConfirmResult, error) {
				return nil, apperrors.ErrInvalidOrderState
			},
		}
		handler := NewOrderHandler(orderSvc, &mockAuditService{})
		r := setupOrderRouter(handler)

		rec := doRequest(r, "POST", "/orders/42/confirm", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("returns 404 on unknown order", func(t *testing.T) {
		orderSvc := &mockOrderService{
			confirmOrderFn: func(_, _ uint) (*services.ConfirmResult, error) {
				return nil, apperrors.ErrOrderNotFound
			},
		}
		handler := NewOrderHandler(orderSvc, &mockAuditService{})
		r := setupOrderRouter(handler)

		rec := doRequest(r, "POST", "/orders/42/confirm", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestOrderHandler_CancelOrder(t *testing.T) {
	t.Run("returns 204", func(t *testing.T) {
		handler := NewOrderHandler(&mockOrderService{}, &mockAuditService{})
		r := setupOrderRouter(handler)

		rec := doRequest(r, "DELETE", "/orders/42", "")

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})
}

func TestOrderHandler_ListOrders(t *testing.T) {
	t.Run("parses filters", func(t *testing.T) {
		var got services.OrderFilter
		orderSvc := &mockOrderService{
			getUserOrdersFn: func(_ uint, _ pagination.PageRequest, filter services.OrderFilter) (*pagination.PageResponse[models.Order], error) {
				got = filter
				resp := pagination.NewPageResponse([]models.Order{}, 1, 20, 0)
				return &resp, nil
			},
		}
		handler := NewOrderHandler(orderSvc, &mockAuditService{})
		r := setupOrderRouter(handler)

		rec := doRequest(r, "GET", "/orders?side=sell&status=placed&account_id=3", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got.Side == nil || *got.Side != models.OrderSideSell {
			t.Error("expected side filter sell")
		}
		if got.Status == nil || *got.Status != models.OrderStatusPlaced {
			t.Error("expected status filter placed")
		}
		if got.AccountID == nil || *got.AccountID != 3 {
			t.Error("expected account filter 3")
		}
	})
}
