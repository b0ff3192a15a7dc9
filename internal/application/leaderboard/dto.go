package leaderboard

import (
	"time"

	"github.com/google/uuid"
	"github.com/sellerboard/backend/internal/domain/leaderboard"
	"github.com/shopspring/decimal"
)

// EntryResponse is one leaderboard row as returned to a viewer
type EntryResponse struct {
	ID                      uuid.UUID       `json:"id"`
	Rank                    int             `json:"rank"`
	Position                int             `json:"position,omitempty"`
	ProfileID               uuid.UUID       `json:"profile_id"`
	SellerName              string          `json:"seller_name"`
	SKUCount                int64           `json:"sku_count"`
	CompetitivePricingScore decimal.Decimal `json:"competitive_pricing_score"`
	SalesVolume             decimal.Decimal `json:"sales_volume"`
	OrderFulfillmentRate    decimal.Decimal `json:"order_fulfillment_rate"`
	Podium                  string          `json:"podium,omitempty"`
	IsViewer                bool            `json:"is_viewer"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// BoardResponse is the full leaderboard for one viewer
type BoardResponse struct {
	ViewerID    uuid.UUID       `json:"viewer_id"`
	Entries     []EntryResponse `json:"entries"`
	Viewer      *EntryResponse  `json:"viewer,omitempty"`
	Total       int             `json:"total"`
	Source      string          `json:"source"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// ToEntryResponse converts a board row
func ToEntryResponse(row leaderboard.Row) EntryResponse {
	return EntryResponse{
		ID:                      row.ID,
		Rank:                    row.Rank,
		Position:                row.Position,
		ProfileID:               row.ProfileID,
		SellerName:              row.SellerName,
		SKUCount:                row.SKUCount,
		CompetitivePricingScore: row.CompetitivePricingScore,
		SalesVolume:             row.SalesVolume,
		OrderFulfillmentRate:    row.OrderFulfillmentRate,
		Podium:                  string(row.Podium),
		IsViewer:                row.IsViewer,
		UpdatedAt:               row.UpdatedAt,
	}
}

// ToBoardResponse converts a board. source records where the rows came from.
func ToBoardResponse(board *leaderboard.Board, source string) *BoardResponse {
	resp := &BoardResponse{
		ViewerID:    board.ViewerID,
		Entries:     make([]EntryResponse, len(board.Rows)),
		Total:       board.Len(),
		Source:      source,
		GeneratedAt: board.GeneratedAt,
	}
	for i, row := range board.Rows {
		resp.Entries[i] = ToEntryResponse(row)
	}
	if board.Viewer != nil {
		viewer := resp.Entries[board.Viewer.Position-1]
		resp.Viewer = &viewer
	}
	return resp
}

// toStandingResponse converts a single row read outside a board. It has no
// display position, so the podium follows the stored rank.
func toStandingResponse(entry *leaderboard.Entry) *EntryResponse {
	return &EntryResponse{
		ID:                      entry.ID,
		Rank:                    entry.Rank,
		ProfileID:               entry.ProfileID,
		SellerName:              entry.SellerName,
		SKUCount:                entry.SKUCount,
		CompetitivePricingScore: entry.CompetitivePricingScore,
		SalesVolume:             entry.SalesVolume,
		OrderFulfillmentRate:    entry.OrderFulfillmentRate,
		Podium:                  string(leaderboard.PodiumForPosition(entry.Rank)),
		IsViewer:                true,
		UpdatedAt:               entry.UpdatedAt,
	}
}
