package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "folio/internal/errors"
	"folio/internal/models"
	"folio/internal/pagination"
	"folio/internal/services"
)

// OrderHandler handles order lifecycle requests.
type OrderHandler struct {
	orderService services.OrderServicer
	auditService services.AuditServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService services.OrderServicer, auditService services.AuditServicer) *OrderHandler {
	return &OrderHandler{orderService: orderService, auditService: auditService}
}

// PlaceOrderRequest represents the request payload for placing an order
type PlaceOrderRequest struct {
	AccountID  uint             `json:"account_id" binding:"required"`
	Symbol     string           `json:"symbol" binding:"required,max=12"`
	Side       models.OrderSide `json:"side" binding:"required,order_side"`
	Type       models.OrderType `json:"type" binding:"required,order_type"`
	Quantity   float64          `json:"quantity" binding:"required,gt=0"`
	LimitPrice *int64           `json:"limit_price" binding:"omitempty,gt=0"`
}

// UpdateOrderRequest represents the request payload for updating an order
type UpdateOrderRequest struct {
	Quantity   *float64          `json:"quantity" binding:"omitempty,gt=0"`
	Type       *models.OrderType `json:"type" binding:"omitempty,order_type"`
	LimitPrice *int64            `json:"limit_price" binding:"omitempty,gt=0"`
}

// PlaceOrder places a new trade order
// @Summary     Place an order
// @Description Place a buy or sell order. Market-open orders are priced by the reference price oracle; limit orders execute at the supplied price.
// @Tags        orders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body PlaceOrderRequest true "Order details"
// @Success     201 {object} models.Order "Order placed awaiting confirmation"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient funds"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account or asset not found"
// @Failure     502 {object} ErrorResponse "Reference price unavailable"
// @Router      /orders [post]
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	order, err := h.orderService.PlaceOrder(
		c.Request.Context(),
		userID,
		req.AccountID,
		req.Symbol,
		req.Side,
		req.Type,
		req.Quantity,
		req.LimitPrice,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "PLACE_ORDER", "order", order.ID, c.ClientIP(),
		map[string]interface{}{"side": req.Side, "symbol": req.Symbol, "quantity": req.Quantity})

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// ListOrders returns the user's orders
// @Summary     List orders
// @Description List the authenticated user's orders, newest first, with optional filters
// @Tags        orders
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Param       status query string false "Filter by order status"
// @Param       confirmation_status query string false "Filter by confirmation status"
// @Param       side query string false "Filter by side"
// @Param       account_id query int false "Filter by account"
// @Success     200 {object} pagination.PageResponse[models.Order] "Orders"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var filter services.OrderFilter
	if raw := c.Query("status"); raw != "" {
		status := models.OrderStatus(raw)
		filter.Status = &status
	}
	if raw := c.Query("confirmation_status"); raw != "" {
		confirmation := models.ConfirmationStatus(raw)
		filter.Confirmation = &confirmation
	}
	if raw := c.Query("side"); raw != "" {
		side := models.OrderSide(raw)
		filter.Side = &side
	}
	if raw := c.Query("account_id"); raw != "" {
		accountID, parseErr := parseQueryID(raw)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid account_id"))
			return
		}
		filter.AccountID = &accountID
	}

	orders, err := h.orderService.GetUserOrders(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

// GetOrder returns a single order
// @Summary     Get an order
// @Description Get one of the authenticated user's orders by ID
// @Tags        orders
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Order ID"
// @Success     200 {object} models.Order "Order"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Router      /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	orderID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	order, err := h.orderService.GetOrderByID(userID, orderID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdateOrder modifies a pre-confirmation order
// @Summary     Update an order
// @Description Modify the quantity, type, or limit price of an order that has not been executed or cancelled. Any change resets the confirmation status to pending.
// @Tags        orders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Order ID"
// @Param       request body UpdateOrderRequest true "Fields to update"
// @Success     200 {object} models.Order "Order updated"
// @Failure     400 {object} ErrorResponse "Invalid input or no changes"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Failure     409 {object} ErrorResponse "Order is no longer modifiable"
// @Router      /orders/{id} [patch]
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	orderID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	order, err := h.orderService.UpdateOrder(userID, orderID, services.OrderUpdateFields{
		Quantity:   req.Quantity,
		Type:       req.Type,
		LimitPrice: req.LimitPrice,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_ORDER", "order", order.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// CancelOrder cancels a pre-execution order
// @Summary     Cancel an order
// @Description Cancel an order that has not been executed. No cash or position effects occur.
// @Tags        orders
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Order ID"
// @Success     204 "Order cancelled"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Failure     409 {object} ErrorResponse "Order is no longer cancellable"
// @Router      /orders/{id} [delete]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	orderID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.orderService.CancelOrder(userID, orderID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CANCEL_ORDER", "order", orderID, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}

// ConfirmOrder confirms and settles a pending order
// @Summary     Confirm an order
// @Description Confirm a pending order, executing settlement: cash moves, the position book updates, and a transaction is recorded, all atomically.
// @Tags        orders
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Order ID"
// @Success     200 {object} services.ConfirmResult "Order settled"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Failure     409 {object} ErrorResponse "Order is not awaiting confirmation"
// @Failure     400 {object} ErrorResponse "Insufficient funds or shares"
// @Router      /orders/{id}/confirm [post]
func (h *OrderHandler) ConfirmOrder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	orderID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.orderService.ConfirmOrder(userID, orderID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CONFIRM_ORDER", "order", orderID, c.ClientIP(),
		map[string]interface{}{"amount": result.Order.Amount, "side": result.Order.Side})

	c.JSON(http.StatusOK, result)
}

// RejectOrder declines a pending order
// @Summary     Reject an order
// @Description Decline a pending order. The order remains modifiable; no settlement occurs.
// @Tags        orders
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Order ID"
// @Success     200 {object} models.Order "Order rejected"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Failure     409 {object} ErrorResponse "Order is not awaiting confirmation"
// @Router      /orders/{id}/reject [post]
func (h *OrderHandler) RejectOrder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	orderID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	order, err := h.orderService.RejectOrder(userID, orderID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "REJECT_ORDER", "order", orderID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"order": order})
}
