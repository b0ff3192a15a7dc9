package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sellerboard/backend/internal/domain/leaderboard"
	"github.com/shopspring/decimal"
)

// LeaderboardModel maps one row of the leaderboard table.
// Metric columns are nullable because the ranking job may publish a seller
// before every metric has been computed.
type LeaderboardModel struct {
	ID                      uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Rank                    int                 `gorm:"column:rank;not null;index"`
	ProfileID               uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex"`
	SellerName              *string             `gorm:"type:text"`
	SKUCount                *int64              `gorm:"column:sku_count"`
	CompetitivePricingScore decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	SalesVolume             decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	OrderFulfillmentRate    decimal.NullDecimal `gorm:"type:decimal(5,2)"`
	UpdatedAt               time.Time           `gorm:"not null"`
}

// TableName returns the default table name
func (LeaderboardModel) TableName() string {
	return "leaderboard"
}

// ToDomain converts the model to a domain Entry. NULL metrics become zero.
func (m *LeaderboardModel) ToDomain() leaderboard.Entry {
	e := leaderboard.Entry{
		ID:                      m.ID,
		Rank:                    m.Rank,
		ProfileID:               m.ProfileID,
		CompetitivePricingScore: nullToZero(m.CompetitivePricingScore),
		SalesVolume:             nullToZero(m.SalesVolume),
		OrderFulfillmentRate:    nullToZero(m.OrderFulfillmentRate),
		UpdatedAt:               m.UpdatedAt,
	}
	if m.SellerName != nil {
		e.SellerName = *m.SellerName
	}
	if m.SKUCount != nil {
		e.SKUCount = *m.SKUCount
	}
	return e
}

// LeaderboardModelFromDomain builds a model from an Entry, used by seeding and tests
func LeaderboardModelFromDomain(e leaderboard.Entry) *LeaderboardModel {
	name := e.SellerName
	skus := e.SKUCount
	return &LeaderboardModel{
		ID:                      e.ID,
		Rank:                    e.Rank,
		ProfileID:               e.ProfileID,
		SellerName:              &name,
		SKUCount:                &skus,
		CompetitivePricingScore: decimal.NewNullDecimal(e.CompetitivePricingScore),
		SalesVolume:             decimal.NewNullDecimal(e.SalesVolume),
		OrderFulfillmentRate:    decimal.NewNullDecimal(e.OrderFulfillmentRate),
		UpdatedAt:               e.UpdatedAt,
	}
}

func nullToZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
