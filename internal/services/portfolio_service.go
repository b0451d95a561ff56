package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "folio/internal/errors"
	"folio/internal/models"
	"folio/internal/pagination"
)

// portfolioService implements the read side over positions and transactions.
type portfolioService struct {
	db *gorm.DB
}

// NewPortfolioService creates a new PortfolioServicer.
func NewPortfolioService(db *gorm.DB) PortfolioServicer {
	return &portfolioService{db: db}
}

// GetUserPositions returns the user's open positions with their assets,
// paginated.
func (s *portfolioService) GetUserPositions(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Position], error) {
	page.Defaults()

	base := s.db.Model(&models.Position{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var positions []models.Position
	if err := base.Preload("Asset").Order("investment_amount DESC").
		Scopes(pagination.Paginate(page)).Find(&positions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(positions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetPositionByID returns a single position owned by the user.
func (s *portfolioService) GetPositionByID(userID, positionID uint) (*models.Position, error) {
	var position models.Position
	if err := s.db.Preload("Asset").Where("id = ? AND user_id = ?", positionID, userID).First(&position).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPositionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &position, nil
}

// GetUserTransactions returns the user's transaction log, newest first, with
// optional date, type, account, and asset filters.
func (s *portfolioService) GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	if filter.FromDate != nil {
		base = base.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		base = base.Where("date <= ?", *filter.ToDate)
	}
	if filter.Type != nil {
		base = base.Where("type = ?", *filter.Type)
	}
	if filter.AccountID != nil {
		base = base.Where("account_id = ?", *filter.AccountID)
	}
	if filter.AssetID != nil {
		base = base.Where("asset_id = ?", *filter.AssetID)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Preload("Asset").Order("date DESC, id DESC").
		Scopes(pagination.Paginate(page)).Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetPortfolioSummary values every position at its asset's latest recorded
// price and aggregates by asset class. Positions whose asset has no recorded
// price yet are valued at cost.
func (s *portfolioService) GetPortfolioSummary(userID uint) (*PortfolioSummary, error) {
	var positions []models.Position
	if err := s.db.Preload("Asset").Where("user_id = ?", userID).Find(&positions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	latest, err := s.latestPrices(positions)
	if err != nil {
		return nil, err
	}

	summary := &PortfolioSummary{
		HoldingsByClass: make(map[models.AssetClass]ClassSummary),
	}
	for _, p := range positions {
		value := p.InvestmentAmount
		if price, ok := latest[p.AssetID]; ok {
			value = int64(float64(price) * p.Units)
		}

		summary.TotalValue += value
		summary.TotalCostBasis += p.InvestmentAmount

		class := summary.HoldingsByClass[p.Asset.AssetClass]
		class.Value += value
		class.Count++
		summary.HoldingsByClass[p.Asset.AssetClass] = class
	}

	summary.TotalGainLoss = summary.TotalValue - summary.TotalCostBasis
	if summary.TotalCostBasis > 0 {
		summary.GainLossPct = float64(summary.TotalGainLoss) / float64(summary.TotalCostBasis) * 100
	}

	return summary, nil
}

// latestPrices fetches the most recent recorded price per held asset.
func (s *portfolioService) latestPrices(positions []models.Position) (map[uint]int64, error) {
	if len(positions) == 0 {
		return map[uint]int64{}, nil
	}

	assetIDs := make([]uint, 0, len(positions))
	for _, p := range positions {
		assetIDs = append(assetIDs, p.AssetID)
	}

	var rows []models.AssetPrice
	sub := s.db.Model(&models.AssetPrice{}).
		Select("asset_id, MAX(recorded_at) AS recorded_at").
		Where("asset_id IN ?", assetIDs).
		Group("asset_id")
	if err := s.db.Model(&models.AssetPrice{}).
		Joins("JOIN (?) latest ON asset_prices.asset_id = latest.asset_id AND asset_prices.recorded_at = latest.recorded_at", sub).
		Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	prices := make(map[uint]int64, len(rows))
	for _, r := range rows {
		prices[r.AssetID] = r.Price
	}
	return prices, nil
}
