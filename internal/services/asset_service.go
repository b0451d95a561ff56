package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "folio/internal/errors"
	"folio/internal/models"
	"folio/internal/pagination"
)

// assetService handles the read-mostly asset reference catalog.
type assetService struct {
	db *gorm.DB
}

// NewAssetService creates a new AssetServicer.
func NewAssetService(db *gorm.DB) AssetServicer {
	return &assetService{db: db}
}

// CreateAsset adds a new instrument to the catalog.
func (s *assetService) CreateAsset(symbol, name string, assetClass models.AssetClass, currency, exchange string) (*models.Asset, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Symbol is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Name is required")
	}
	if currency == "" {
		currency = "USD"
	}

	asset := &models.Asset{
		Symbol:     strings.ToUpper(symbol),
		Name:       name,
		AssetClass: assetClass,
		Currency:   currency,
		Exchange:   exchange,
	}

	if err := s.db.Create(asset).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrDuplicateAsset
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return asset, nil
}

// GetAssetByID returns an asset by its ID.
func (s *assetService) GetAssetByID(id uint) (*models.Asset, error) {
	var asset models.Asset
	if err := s.db.First(&asset, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAssetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &asset, nil
}

// LookupBySymbol resolves a ticker symbol to its catalog entry.
func (s *assetService) LookupBySymbol(symbol string) (*models.Asset, error) {
	var asset models.Asset
	if err := s.db.Where("symbol = ?", strings.ToUpper(symbol)).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAssetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &asset, nil
}

// ListAssets returns a paginated list of assets ordered by symbol.
func (s *assetService) ListAssets(page pagination.PageRequest) (*pagination.PageResponse[models.Asset], error) {
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.Asset{})
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var assets []models.Asset
	if err := base.Order("symbol ASC").Scopes(pagination.Paginate(page)).Find(&assets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(assets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// RecordPrices bulk-inserts price entries, skipping duplicates.
func (s *assetService) RecordPrices(prices []AssetPriceInput) (int, error) {
	if len(prices) == 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "Prices array is empty")
	}

	count := 0
	for _, p := range prices {
		ap := models.AssetPrice{
			AssetID:    p.AssetID,
			Price:      p.Price,
			RecordedAt: p.RecordedAt,
		}
		result := s.db.Where("asset_id = ? AND recorded_at = ?", ap.AssetID, ap.RecordedAt).
			FirstOrCreate(&ap)
		if result.Error != nil {
			return count, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected > 0 {
			count++
		}
	}

	return count, nil
}

// GetPriceHistory returns paginated price history for an asset within a date range.
func (s *assetService) GetPriceHistory(assetID uint, from, to *time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.AssetPrice], error) {
	if _, err := s.GetAssetByID(assetID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.AssetPrice{}).Where("asset_id = ?", assetID)
	if from != nil {
		base = base.Where("recorded_at >= ?", *from)
	}
	if to != nil {
		base = base.Where("recorded_at <= ?", *to)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var history []models.AssetPrice
	if err := base.Order("recorded_at DESC").Scopes(pagination.Paginate(page)).Find(&history).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(history, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// isUniqueConstraintError reports whether err represents a unique constraint
// violation on either PostgreSQL or SQLite.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
