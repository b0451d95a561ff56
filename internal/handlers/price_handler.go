package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "folio/internal/errors"
	"folio/internal/services"
)

// PriceHandler receives price batches pushed by the external price pipeline.
type PriceHandler struct {
	assetService services.AssetServicer
}

// NewPriceHandler creates a new PriceHandler.
func NewPriceHandler(assetService services.AssetServicer) *PriceHandler {
	return &PriceHandler{assetService: assetService}
}

// RecordPricesRequest represents a batch of prices from the pipeline
type RecordPricesRequest struct {
	Prices []services.AssetPriceInput `json:"prices" binding:"required,min=1,max=500,dive"`
}

// RecordPrices ingests a batch of asset prices
// @Summary     Record asset prices
// @Description Ingest a batch of prices pushed by the price pipeline. Re-sent entries are deduplicated.
// @Tags        prices
// @Accept      json
// @Produce     json
// @Param       X-API-Key header string true "Pipeline API key"
// @Param       request body RecordPricesRequest true "Price batch"
// @Success     200 {object} map[string]int "Count of newly recorded prices"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Router      /internal/prices [post]
func (h *PriceHandler) RecordPrices(c *gin.Context) {
	var req RecordPricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	recorded, err := h.assetService.RecordPrices(req.Prices)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recorded": recorded, "received": len(req.Prices)})
}
