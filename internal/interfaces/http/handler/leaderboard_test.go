package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	leaderboardapp "github.com/sellerboard/backend/internal/application/leaderboard"
	"github.com/sellerboard/backend/internal/domain/leaderboard"
	"github.com/sellerboard/backend/internal/interfaces/http/dto"
	"github.com/sellerboard/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLeaderboardService struct {
	mock.Mock
}

func (m *MockLeaderboardService) GetLeaderboard(ctx context.Context, viewerID uuid.UUID) (*leaderboardapp.BoardResponse, error) {
	args := m.Called(ctx, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leaderboardapp.BoardResponse), args.Error(1)
}

func (m *MockLeaderboardService) GetStanding(ctx context.Context, viewerID uuid.UUID) (*leaderboardapp.EntryResponse, error) {
	args := m.Called(ctx, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leaderboardapp.EntryResponse), args.Error(1)
}

func (m *MockLeaderboardService) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func sampleBoard(viewerID uuid.UUID) *leaderboardapp.BoardResponse {
	entries := []leaderboardapp.EntryResponse{
		{ID: uuid.New(), Rank: 1, Position: 1, ProfileID: uuid.New(), SellerName: "Asha Traders", SKUCount: 120, CompetitivePricingScore: decimal.RequireFromString("92.5"), SalesVolume: decimal.RequireFromString("1250000"), OrderFulfillmentRate: decimal.RequireFromString("98.2"), Podium: "gold"},
		{ID: uuid.New(), Rank: 2, Position: 2, ProfileID: viewerID, SellerName: "Bala Stores", SKUCount: 80, CompetitivePricingScore: decimal.RequireFromString("88"), SalesVolume: decimal.RequireFromString("904500.5"), OrderFulfillmentRate: decimal.RequireFromString("95"), Podium: "silver", IsViewer: true},
	}
	viewer := entries[1]
	return &leaderboardapp.BoardResponse{
		ViewerID:    viewerID,
		Entries:     entries,
		Viewer:      &viewer,
		Total:       len(entries),
		Source:      "database",
		GeneratedAt: time.Now(),
	}
}

func newLeaderboardRouter(h *LeaderboardHandler, viewerID uuid.UUID) *gin.Engine {
	middleware.SetupValidator()
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if viewerID != uuid.Nil {
			setViewer(c, viewerID)
		}
		c.Next()
	})
	router.GET("/api/v1/leaderboard", h.GetLeaderboard)
	router.GET("/api/v1/leaderboard/me", h.GetMyStanding)
	router.GET("/api/v1/leaderboard/sellers/:profile_id", h.GetSellerStanding)
	router.POST("/api/v1/leaderboard/refresh", h.Refresh)
	return router
}

func TestLeaderboardHandler_GetLeaderboard(t *testing.T) {
	viewerID := uuid.New()

	t.Run("returns board with total", func(t *testing.T) {
		svc := new(MockLeaderboardService)
		svc.On("GetLeaderboard", mock.Anything, viewerID).Return(sampleBoard(viewerID), nil)

		w := httptest.NewRecorder()
		newLeaderboardRouter(NewLeaderboardHandler(svc), viewerID).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, 2, resp.Meta.Total)

		data := resp.Data.(map[string]any)
		entries := data["entries"].([]any)
		require.Len(t, entries, 2)
		first := entries[0].(map[string]any)
		assert.Equal(t, "Asha Traders", first["seller_name"])
		assert.Equal(t, "1250000", first["sales_volume"])
		assert.Equal(t, viewerID.String(), data["viewer"].(map[string]any)["profile_id"])
		svc.AssertExpectations(t)
	})

	t.Run("anonymous viewer", func(t *testing.T) {
		svc := new(MockLeaderboardService)
		svc.On("GetLeaderboard", mock.Anything, uuid.Nil).Return(nil, leaderboard.ErrViewerRequired)

		w := httptest.NewRecorder()
		newLeaderboardRouter(NewLeaderboardHandler(svc), uuid.Nil).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeViewerRequired, resp.Error.Code)
		assert.Equal(t, "User ID not found.", resp.Error.Message)
	})

	t.Run("fetch failure", func(t *testing.T) {
		svc := new(MockLeaderboardService)
		svc.On("GetLeaderboard", mock.Anything, viewerID).
			Return(nil, leaderboard.NewFetchError(errors.New("connection refused")))

		w := httptest.NewRecorder()
		newLeaderboardRouter(NewLeaderboardHandler(svc), viewerID).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeLeaderboardFetchFailed, resp.Error.Code)
		assert.Equal(t, "connection refused", resp.Error.Message)
	})
}

func TestLeaderboardHandler_GetMyStanding(t *testing.T) {
	viewerID := uuid.New()

	t.Run("found", func(t *testing.T) {
		svc := new(MockLeaderboardService)
		svc.On("GetStanding", mock.Anything, viewerID).Return(&leaderboardapp.EntryResponse{
			Rank: 4, ProfileID: viewerID, SellerName: "Bala Stores", IsViewer: true,
		}, nil)

		w := httptest.NewRecorder()
		newLeaderboardRouter(NewLeaderboardHandler(svc), viewerID).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard/me", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, float64(4), data["rank"])
		assert.Equal(t, true, data["is_viewer"])
	})

	t.Run("not ranked", func(t *testing.T) {
		svc := new(MockLeaderboardService)
		svc.On("GetStanding", mock.Anything, viewerID).Return(nil, leaderboard.ErrEntryNotFound)

		w := httptest.NewRecorder()
		newLeaderboardRouter(NewLeaderboardHandler(svc), viewerID).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard/me", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decodeResponse(t, w).Error.Code)
	})
}

func TestLeaderboardHandler_GetSellerStanding(t *testing.T) {
	viewerID := uuid.New()
	otherID := uuid.New()

	t.Run("other seller is not flagged as viewer", func(t *testing.T) {
		svc := new(MockLeaderboardService)
		svc.On("GetStanding", mock.Anything, otherID).Return(&leaderboardapp.EntryResponse{
			Rank: 1, ProfileID: otherID, IsViewer: true,
		}, nil)

		w := httptest.NewRecorder()
		newLeaderboardRouter(NewLeaderboardHandler(svc), viewerID).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard/sellers/"+otherID.String(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, false, data["is_viewer"])
	})

	t.Run("invalid profile id", func(t *testing.T) {
		svc := new(MockLeaderboardService)

		w := httptest.NewRecorder()
		newLeaderboardRouter(NewLeaderboardHandler(svc), viewerID).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard/sellers/not-a-uuid", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.NotEmpty(t, resp.Error.Details)
		assert.Equal(t, "profile_id", resp.Error.Details[0].Field)
		svc.AssertNotCalled(t, "GetStanding", mock.Anything, mock.Anything)
	})
}

func TestLeaderboardHandler_Refresh(t *testing.T) {
	viewerID := uuid.New()

	t.Run("success", func(t *testing.T) {
		svc := new(MockLeaderboardService)
		svc.On("Refresh", mock.Anything).Return(nil)

		w := httptest.NewRecorder()
		newLeaderboardRouter(NewLeaderboardHandler(svc), viewerID).
			ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/leaderboard/refresh", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("cache unavailable", func(t *testing.T) {
		svc := new(MockLeaderboardService)
		svc.On("Refresh", mock.Anything).Return(errors.New("redis: connection refused"))

		w := httptest.NewRecorder()
		newLeaderboardRouter(NewLeaderboardHandler(svc), viewerID).
			ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/leaderboard/refresh", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
