// Package router assembles the HTTP route table of the leaderboard service.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sellerboard/backend/internal/infrastructure/auth"
	"github.com/sellerboard/backend/internal/interfaces/http/handler"
	"github.com/sellerboard/backend/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// DomainGroup creates a route group for a specific domain
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to this group. Nil middleware is skipped so optional
// guards can be passed through unconditionally.
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, compact(middleware)...)
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: "GET", path: path, handlers: compact(handlers)})
	return dg
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: "POST", path: path, handlers: compact(handlers)})
	return dg
}

// Group creates a sub-group within this domain
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	subgroup := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, subgroup)
	return subgroup
}

// RegisterRoutes implements RouteRegistrar interface
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}

	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}

	for _, subgroup := range dg.subgroups {
		subgroup.RegisterRoutes(group)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}

func compact(handlers []gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// Guards are the per-route middleware of the service. RateLimit and
// Swagger may be nil; a nil Swagger guard leaves the docs unmounted.
type Guards struct {
	Auth         gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
	RateLimit    gin.HandlerFunc
	Swagger      gin.HandlerFunc
}

// LeaderboardRoutes is the /leaderboard JSON API
func LeaderboardRoutes(h *handler.LeaderboardHandler, g Guards) *DomainGroup {
	group := NewDomainGroup("leaderboard", "/leaderboard").Use(g.Auth, g.RateLimit)
	group.GET("", h.GetLeaderboard).
		GET("/me", h.GetMyStanding).
		GET("/sellers/:profile_id", h.GetSellerStanding).
		POST("/refresh", middleware.RequirePermission(auth.PermissionRefreshLeaderboard), h.Refresh)
	return group
}

// SystemRoutes is the /system API
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/info", h.GetSystemInfo).
		GET("/ping", h.Ping)
}

// RegisterRootRoutes mounts the routes that live outside the versioned API:
// probes, the leaderboard page and the API docs.
func RegisterRootRoutes(engine *gin.Engine, page *handler.PageHandler, system *handler.SystemHandler, g Guards) {
	engine.GET("/health", system.Health)
	engine.GET("/api/v1/health", system.Health)

	// The page renders its own "User ID not found." view, so a missing or
	// bad token must not be rejected with a JSON envelope.
	engine.GET("/leaderboard", compact([]gin.HandlerFunc{g.OptionalAuth, g.RateLimit, page.Show})...)

	if g.Swagger != nil {
		engine.GET("/swagger/*any", g.Swagger, ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}
