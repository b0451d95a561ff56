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

// AssetHandler handles asset catalog requests.
type AssetHandler struct {
	assetService services.AssetServicer
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(assetService services.AssetServicer) *AssetHandler {
	return &AssetHandler{assetService: assetService}
}

// CreateAssetRequest represents the request payload for registering an asset
type CreateAssetRequest struct {
	Symbol     string            `json:"symbol" binding:"required,max=12"`
	Name       string            `json:"name" binding:"required,max=255"`
	AssetClass models.AssetClass `json:"asset_class" binding:"required,asset_class"`
	Currency   string            `json:"currency" binding:"required,iso4217"`
	Exchange   string            `json:"exchange" binding:"required,max=32"`
}

// CreateAsset registers a tradeable asset
// @Summary     Register an asset
// @Description Add an asset to the reference catalog
// @Tags        assets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateAssetRequest true "Asset details"
// @Success     201 {object} models.Asset "Asset created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Asset already registered"
// @Router      /assets [post]
func (h *AssetHandler) CreateAsset(c *gin.Context) {
	var req CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	asset, err := h.assetService.CreateAsset(req.Symbol, req.Name, req.AssetClass, req.Currency, req.Exchange)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"asset": asset})
}

// ListAssets returns the asset catalog
// @Summary     List assets
// @Description List tradeable assets
// @Tags        assets
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.Asset] "Assets"
// @Router      /assets [get]
func (h *AssetHandler) ListAssets(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	assets, err := h.assetService.ListAssets(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, assets)
}

// GetAsset returns one asset
// @Summary     Get an asset
// @Description Get a catalog asset by ID
// @Tags        assets
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Asset ID"
// @Success     200 {object} models.Asset "Asset"
// @Failure     404 {object} ErrorResponse "Asset not found"
// @Router      /assets/{id} [get]
func (h *AssetHandler) GetAsset(c *gin.Context) {
	assetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	asset, err := h.assetService.GetAssetByID(assetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"asset": asset})
}

// GetPriceHistory returns recorded prices for an asset
// @Summary     Get price history
// @Description Get recorded prices for an asset, optionally bounded by date
// @Tags        assets
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Asset ID"
// @Param       from query string false "Start of range (RFC3339 or YYYY-MM-DD)"
// @Param       to query string false "End of range (RFC3339 or YYYY-MM-DD)"
// @Success     200 {object} pagination.PageResponse[models.AssetPrice] "Prices"
// @Failure     404 {object} ErrorResponse "Asset not found"
// @Router      /assets/{id}/prices [get]
func (h *AssetHandler) GetPriceHistory(c *gin.Context) {
	assetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		parsed, parseErr := parseFlexibleTime(raw)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		from = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, parseErr := parseFlexibleTime(raw)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		to = &parsed
	}

	prices, err := h.assetService.GetPriceHistory(assetID, from, to, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, prices)
}
