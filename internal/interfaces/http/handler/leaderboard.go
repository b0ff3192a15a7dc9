package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	leaderboardapp "github.com/sellerboard/backend/internal/application/leaderboard"
	"github.com/sellerboard/backend/internal/interfaces/http/middleware"
)

// LeaderboardService is the application surface the JSON handlers need.
// *leaderboardapp.Service implements it.
type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, viewerID uuid.UUID) (*leaderboardapp.BoardResponse, error)
	GetStanding(ctx context.Context, viewerID uuid.UUID) (*leaderboardapp.EntryResponse, error)
	Refresh(ctx context.Context) error
}

// LeaderboardHandler serves the leaderboard JSON API
type LeaderboardHandler struct {
	BaseHandler
	service LeaderboardService
}

// NewLeaderboardHandler creates a new LeaderboardHandler
func NewLeaderboardHandler(service LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

// SellerStandingRequest is the path of the per-seller standing lookup
type SellerStandingRequest struct {
	ProfileID string `uri:"profile_id" binding:"required,uuid"`
}

// GetLeaderboard godoc
// @ID           getLeaderboard
// @Summary      Get the seller leaderboard
// @Description  Returns every leaderboard row ordered by rank, with the caller's own row flagged
// @Tags         leaderboard
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} APIResponse[leaderboardapp.BoardResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /leaderboard [get]
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	board, err := h.service.GetLeaderboard(c.Request.Context(), getViewerID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithTotal(c, board, board.Total)
}

// GetMyStanding godoc
// @ID           getLeaderboardMe
// @Summary      Get the caller's leaderboard row
// @Description  Returns the authenticated seller's own leaderboard row
// @Tags         leaderboard
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} APIResponse[leaderboardapp.EntryResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /leaderboard/me [get]
func (h *LeaderboardHandler) GetMyStanding(c *gin.Context) {
	h.standing(c, getViewerID(c))
}

// GetSellerStanding godoc
// @ID           getLeaderboardSeller
// @Summary      Get one seller's leaderboard row
// @Description  Returns the leaderboard row of the given seller profile
// @Tags         leaderboard
// @Produce      json
// @Security     BearerAuth
// @Param        profile_id path string true "Seller profile ID" format(uuid)
// @Success      200 {object} APIResponse[leaderboardapp.EntryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /leaderboard/sellers/{profile_id} [get]
func (h *LeaderboardHandler) GetSellerStanding(c *gin.Context) {
	var req SellerStandingRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	h.standing(c, uuid.MustParse(req.ProfileID))
}

func (h *LeaderboardHandler) standing(c *gin.Context, profileID uuid.UUID) {
	entry, err := h.service.GetStanding(c.Request.Context(), profileID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	entry.IsViewer = profileID == getViewerID(c)
	h.Success(c, entry)
}

// Refresh godoc
// @ID           refreshLeaderboard
// @Summary      Refresh the leaderboard
// @Description  Drops the cached snapshot so the next read goes to the database
// @Tags         leaderboard
// @Security     BearerAuth
// @Success      204
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /leaderboard/refresh [post]
func (h *LeaderboardHandler) Refresh(c *gin.Context) {
	if err := h.service.Refresh(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
