package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sellerboard/backend/internal/infrastructure/logger"
	"github.com/sellerboard/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	name       string
	db         Pinger
	cache      Pinger
	cacheStats func() any
	startTime  time.Time
}

// SystemHandlerOption configures the system handler
type SystemHandlerOption func(*SystemHandler)

// WithCacheCheck adds the shared snapshot cache to the health check.
// Reads fall back to the database, so an unreachable cache only degrades.
func WithCacheCheck(cache Pinger) SystemHandlerOption {
	return func(h *SystemHandler) {
		h.cache = cache
	}
}

// WithCacheStats reports cache hit counters in the system info
func WithCacheStats(stats func() any) SystemHandlerOption {
	return func(h *SystemHandler) {
		h.cacheStats = stats
	}
}

// NewSystemHandler creates a new SystemHandler. db may be nil, in which
// case the health check only reports the process as alive.
func NewSystemHandler(name string, db Pinger, opts ...SystemHandlerOption) *SystemHandler {
	if name == "" {
		name = "Sellerboard API"
	}
	h := &SystemHandler{
		name:      name,
		db:        db,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SystemInfoResponse represents the system information response
// @name HandlerSystemInfoResponse
type SystemInfoResponse struct {
	Name      string `json:"name" example:"Sellerboard API"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
	Cache     any    `json:"cache,omitempty"`
}

// GetSystemInfo godoc
// @ID           getSystemSystemInfo
// @Summary      Get system information
// @Description  Returns basic system information including version and uptime
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Failure      500 {object} ErrorResponse
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   telemetry.ServiceVersion,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.cacheStats != nil {
		info.Cache = h.cacheStats()
	}
	h.Success(c, info)
}

// PingResponse represents the ping response
// @name HandlerPingResponse
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Description  Simple ping endpoint to check if the API is responsive
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[PingResponse]
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// HealthResponse is the body of the health probe
type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	Time     string `json:"time" example:"2026-01-23T12:00:00Z"`
	Database string `json:"database,omitempty" example:"ok"`
	Cache    string `json:"cache,omitempty" example:"ok"`
}

// Health godoc
// @ID           getHealth
// @Summary      Health check
// @Description  Reports whether the service, its database and its cache are reachable. An unreachable cache reports "degraded" with 200.
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "healthy", Time: time.Now().Format(time.RFC3339)}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	log := logger.GetGinLogger(c)

	if h.cache != nil {
		resp.Cache = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			log.Warn("Cache health check failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Cache = "error"
		}
	}

	if h.db != nil {
		resp.Database = "ok"
		if err := h.db.Ping(ctx); err != nil {
			log.Warn("Health check failed", zap.Error(err))
			resp.Status = "unhealthy"
			resp.Database = "error"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}
