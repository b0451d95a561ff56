package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "folio/internal/errors"
	"folio/internal/models"
	"folio/internal/pagination"
	"folio/internal/services"
)

// PortfolioHandler handles position and transaction read requests.
type PortfolioHandler struct {
	portfolioService services.PortfolioServicer
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioService services.PortfolioServicer) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService}
}

// ListPositions returns the user's open positions
// @Summary     List positions
// @Description List the authenticated user's open positions
// @Tags        portfolio
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.Position] "Positions"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /positions [get]
func (h *PortfolioHandler) ListPositions(c *gin.Context) {
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

	positions, err := h.portfolioService.GetUserPositions(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, positions)
}

// GetPosition returns a single position
// @Summary     Get a position
// @Description Get one of the authenticated user's positions by ID
// @Tags        portfolio
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Position ID"
// @Success     200 {object} models.Position "Position"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Position not found"
// @Router      /positions/{id} [get]
func (h *PortfolioHandler) GetPosition(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	positionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	position, err := h.portfolioService.GetPositionByID(userID, positionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"position": position})
}

// ListTransactions returns the user's transaction log
// @Summary     List transactions
// @Description List the authenticated user's transactions, newest first, with optional filters
// @Tags        portfolio
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Param       from query string false "Start of range (RFC3339 or YYYY-MM-DD)"
// @Param       to query string false "End of range (RFC3339 or YYYY-MM-DD)"
// @Param       type query string false "Filter by transaction type"
// @Param       account_id query int false "Filter by account"
// @Param       asset_id query int false "Filter by asset"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Transactions"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions [get]
func (h *PortfolioHandler) ListTransactions(c *gin.Context) {
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

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactions, err := h.portfolioService.GetUserTransactions(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// GetSummary returns the aggregated portfolio summary
// @Summary     Get portfolio summary
// @Description Get the user's positions valued at the latest recorded prices, aggregated by asset class
// @Tags        portfolio
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.PortfolioSummary "Summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /portfolio/summary [get]
func (h *PortfolioHandler) GetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.portfolioService.GetPortfolioSummary(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	parseDate := func(raw string) (*time.Time, error) {
		if raw == "" {
			return nil, nil
		}
		parsed, err := parseFlexibleTime(raw)
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
		}
		return &parsed, nil
	}

	from, err := parseDate(c.Query("from"))
	if err != nil {
		return filter, err
	}
	filter.FromDate = from

	to, err := parseDate(c.Query("to"))
	if err != nil {
		return filter, err
	}
	filter.ToDate = to

	if raw := c.Query("type"); raw != "" {
		txType := models.TransactionType(raw)
		filter.Type = &txType
	}
	if raw := c.Query("account_id"); raw != "" {
		accountID, parseErr := parseQueryID(raw)
		if parseErr != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid account_id")
		}
		filter.AccountID = &accountID
	}
	if raw := c.Query("asset_id"); raw != "" {
		assetID, parseErr := parseQueryID(raw)
		if parseErr != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid asset_id")
		}
		filter.AssetID = &assetID
	}

	return filter, nil
}
