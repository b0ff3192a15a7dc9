// Package leaderboard holds the seller leaderboard read model.
//
// Rows are computed and ranked by the backend that owns the leaderboard
// table. This package never creates, mutates or deletes them; it only
// describes how they are read and presented.
package leaderboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is one ranked seller as stored in the leaderboard table
type Entry struct {
	ID                      uuid.UUID       `json:"id"`
	Rank                    int             `json:"rank"`
	ProfileID               uuid.UUID       `json:"profile_id"`
	SellerName              string          `json:"seller_name"`
	SKUCount                int64           `json:"sku_count"`
	CompetitivePricingScore decimal.Decimal `json:"competitive_pricing_score"`
	SalesVolume             decimal.Decimal `json:"sales_volume"`
	OrderFulfillmentRate    decimal.Decimal `json:"order_fulfillment_rate"` // Percentage
	UpdatedAt               time.Time       `json:"updated_at"`
}

// BelongsTo reports whether the entry is the given seller's own row
func (e Entry) BelongsTo(profileID uuid.UUID) bool {
	return profileID != uuid.Nil && e.ProfileID == profileID
}

// Repository defines read access to the leaderboard table
type Repository interface {
	// FindAllOrderedByRank returns every row ordered by rank ascending
	FindAllOrderedByRank(ctx context.Context) ([]Entry, error)

	// FindByProfileID returns the row of a single seller
	FindByProfileID(ctx context.Context, profileID uuid.UUID) (*Entry, error)
}

// SnapshotCache stores the full ordered result of FindAllOrderedByRank.
// A nil slice with a nil error from Get means a cache miss.
type SnapshotCache interface {
	Get(ctx context.Context) ([]Entry, error)
	Set(ctx context.Context, entries []Entry, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}
