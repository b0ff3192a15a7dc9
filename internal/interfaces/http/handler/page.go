package handler

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	leaderboardapp "github.com/sellerboard/backend/internal/application/leaderboard"
	"github.com/sellerboard/backend/internal/domain/leaderboard"
	"github.com/sellerboard/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/leaderboard.html"))

// generationParam carries the pending load across a loading-view refresh
const generationParam = "gen"

const (
	defaultRenderWait    = 750 * time.Millisecond
	defaultRefreshPeriod = 1
)

// BoardLoader runs background leaderboard loads.
// *leaderboardapp.Loader implements it.
type BoardLoader interface {
	Load(viewerID uuid.UUID) uint64
	Resume(viewerID uuid.UUID, gen uint64) bool
	Await(ctx context.Context, viewerID uuid.UUID) (leaderboardapp.LoadState, error)
}

// PageHandler renders the seller leaderboard page
type PageHandler struct {
	BaseHandler
	loader        BoardLoader
	format        *Formatter
	wait          time.Duration
	refreshPeriod int
}

// PageOption configures the page handler
type PageOption func(*PageHandler)

// WithRenderWait bounds how long a request waits for the load before it
// renders the loading view
func WithRenderWait(d time.Duration) PageOption {
	return func(h *PageHandler) {
		if d > 0 {
			h.wait = d
		}
	}
}

// WithFormatter sets the number formatter
func WithFormatter(f *Formatter) PageOption {
	return func(h *PageHandler) {
		if f != nil {
			h.format = f
		}
	}
}

// NewPageHandler creates a new PageHandler
func NewPageHandler(loader BoardLoader, opts ...PageOption) *PageHandler {
	h := &PageHandler{
		loader:        loader,
		format:        NewFormatter("₹", defaultLocale),
		wait:          defaultRenderWait,
		refreshPeriod: defaultRefreshPeriod,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type pageState string

const (
	pageLoading pageState = "loading"
	pageError   pageState = "error"
	pageReady   pageState = "ready"
)

type pageRefresh struct {
	Seconds int
	URL     string
}

type pageRow struct {
	Position        int
	ProfileID       string
	SellerName      string
	SKUCount        string
	PricingScore    string
	SalesVolume     string
	FulfillmentRate string
	Podium          string
	IsViewer        bool
}

type pageView struct {
	Title   string
	State   pageState
	Message string
	Refresh *pageRefresh
	Rows    []pageRow
}

// Show godoc
// @ID           showLeaderboardPage
// @Summary      Seller leaderboard page
// @Description  Server-rendered leaderboard table. Shows a self-refreshing loading view while the fetch is still running.
// @Tags         leaderboard
// @Produce      html
// @Success      200 {string} string "HTML page"
// @Failure      401 {string} string "HTML error view"
// @Failure      503 {string} string "HTML error view"
// @Router       /leaderboard [get]
func (h *PageHandler) Show(c *gin.Context) {
	viewerID := getViewerID(c)
	if viewerID == uuid.Nil {
		h.render(c, http.StatusUnauthorized, h.errorView(leaderboard.ErrViewerRequired.Message))
		return
	}

	gen, resumed := h.pendingGeneration(c, viewerID)
	if !resumed {
		gen = h.loader.Load(viewerID)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.wait)
	defer cancel()

	state, err := h.loader.Await(ctx, viewerID)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		// still loading; the view refreshes itself
	default:
		logger.GetGinLogger(c).Error("Leaderboard page load failed", zap.Error(err))
		h.render(c, http.StatusInternalServerError, h.errorView("Failed to load leaderboard"))
		return
	}

	switch state.Status {
	case leaderboardapp.StatusReady:
		h.render(c, http.StatusOK, h.boardView(state.Board))
	case leaderboardapp.StatusFailed:
		h.render(c, http.StatusServiceUnavailable, h.errorView(state.Message))
	default:
		if state.Generation != 0 {
			gen = state.Generation
		}
		h.render(c, http.StatusOK, h.loadingView(c, gen))
	}
}

// pendingGeneration resumes the load a loading view refreshed into while it
// is the viewer's latest one and its result has not been shown yet. A fresh
// visit, or a reload of a page that already showed the result, starts a new
// load.
func (h *PageHandler) pendingGeneration(c *gin.Context, viewerID uuid.UUID) (uint64, bool) {
	raw := c.Query(generationParam)
	if raw == "" {
		return 0, false
	}
	gen, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	if !h.loader.Resume(viewerID, gen) {
		return 0, false
	}
	return gen, true
}

func (h *PageHandler) loadingView(c *gin.Context, gen uint64) pageView {
	return pageView{
		Title: "Seller Leaderboard",
		State: pageLoading,
		Refresh: &pageRefresh{
			Seconds: h.refreshPeriod,
			URL:     c.Request.URL.Path + "?" + generationParam + "=" + strconv.FormatUint(gen, 10),
		},
	}
}

func (h *PageHandler) errorView(message string) pageView {
	return pageView{Title: "Seller Leaderboard", State: pageError, Message: message}
}

func (h *PageHandler) boardView(board *leaderboardapp.BoardResponse) pageView {
	view := pageView{Title: "Seller Leaderboard", State: pageReady}
	if board == nil {
		return view
	}
	view.Rows = make([]pageRow, len(board.Entries))
	for i, e := range board.Entries {
		view.Rows[i] = pageRow{
			Position:        e.Position,
			ProfileID:       e.ProfileID.String(),
			SellerName:      e.SellerName,
			SKUCount:        h.format.Count(e.SKUCount),
			PricingScore:    h.format.Decimal(e.CompetitivePricingScore),
			SalesVolume:     h.format.Money(e.SalesVolume),
			FulfillmentRate: h.format.Percent(e.OrderFulfillmentRate),
			Podium:          e.Podium,
			IsViewer:        e.IsViewer,
		}
	}
	return view
}

func (h *PageHandler) render(c *gin.Context, status int, view pageView) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		logger.GetGinLogger(c).Error("Failed to render leaderboard page", zap.Error(err))
		c.String(http.StatusInternalServerError, "Error: failed to render leaderboard")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
