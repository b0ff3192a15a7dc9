package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	leaderboardapp "github.com/sellerboard/backend/internal/application/leaderboard"
	"github.com/sellerboard/backend/internal/infrastructure/auth"
	"github.com/sellerboard/backend/internal/infrastructure/config"
	"github.com/sellerboard/backend/internal/interfaces/http/handler"
	"github.com/sellerboard/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestDomainGroup(t *testing.T) {
	t.Run("creates group with name and prefix", func(t *testing.T) {
		g := NewDomainGroup("leaderboard", "/leaderboard")
		assert.Equal(t, "leaderboard", g.Name())
		assert.Equal(t, "/leaderboard", g.Prefix())
	})

	t.Run("registers GET and POST routes", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/test")
		g.GET("/items", func(c *gin.Context) { c.String(http.StatusOK, "items") }).
			POST("/items", func(c *gin.Context) { c.String(http.StatusCreated, "created") })
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/items", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/test/items", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("applies middleware and skips nil", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/test")
		g.Use(nil, func(c *gin.Context) {
			c.Header("X-Test-Middleware", "applied")
			c.Next()
		}, nil)
		g.GET("/items", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/items", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "applied", w.Header().Get("X-Test-Middleware"))
	})

	t.Run("creates subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("leaderboard", "/leaderboard")
		g.Group("sellers", "/sellers").GET("", func(c *gin.Context) {
			c.String(http.StatusOK, "sellers")
		})
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard/sellers", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "sellers", w.Body.String())
	})
}

type fakeService struct {
	refreshed bool
}

func (f *fakeService) GetLeaderboard(_ context.Context, viewerID uuid.UUID) (*leaderboardapp.BoardResponse, error) {
	return &leaderboardapp.BoardResponse{ViewerID: viewerID, Source: "database"}, nil
}

func (f *fakeService) GetStanding(_ context.Context, viewerID uuid.UUID) (*leaderboardapp.EntryResponse, error) {
	return &leaderboardapp.EntryResponse{ProfileID: viewerID, Rank: 1}, nil
}

func (f *fakeService) Refresh(context.Context) error {
	f.refreshed = true
	return nil
}

type serviceTable struct {
	engine *gin.Engine
	jwt    *auth.JWTService
	svc    *fakeService
}

func newServiceTable(t *testing.T) *serviceTable {
	t.Helper()
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "router-test-secret-at-least-32-chars",
		Issuer:                "router-test",
		AccessTokenExpiration: time.Minute,
	})
	svc := &fakeService{}
	loader := leaderboardapp.NewLoader(svc)
	t.Cleanup(loader.Close)

	guards := Guards{
		Auth:         middleware.JWTAuthMiddleware(jwtService),
		OptionalAuth: middleware.OptionalJWTAuthMiddleware(jwtService),
		Swagger:      middleware.SwaggerProtection(middleware.SwaggerConfig{Enabled: true}, nil),
	}
	system := handler.NewSystemHandler("", nil)

	engine := gin.New()
	NewRouter(engine).
		Register(LeaderboardRoutes(handler.NewLeaderboardHandler(svc), guards)).
		Register(SystemRoutes(system)).
		Setup()
	RegisterRootRoutes(engine, handler.NewPageHandler(loader), system, guards)

	return &serviceTable{engine: engine, jwt: jwtService, svc: svc}
}

func (s *serviceTable) do(t *testing.T, method, path string, perms ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if perms != nil {
		token, _, err := s.jwt.IssueToken(auth.IssueTokenInput{SellerID: uuid.New(), Permissions: perms})
		require.NoError(t, err)
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestServiceRoutes(t *testing.T) {
	s := newServiceTable(t)
	none := []string{}

	tests := []struct {
		name       string
		method     string
		path       string
		perms      []string
		wantStatus int
	}{
		{"board requires token", http.MethodGet, "/api/v1/leaderboard", nil, http.StatusUnauthorized},
		{"board", http.MethodGet, "/api/v1/leaderboard", none, http.StatusOK},
		{"own standing", http.MethodGet, "/api/v1/leaderboard/me", none, http.StatusOK},
		{"seller standing", http.MethodGet, "/api/v1/leaderboard/sellers/" + uuid.NewString(), none, http.StatusOK},
		{"refresh needs permission", http.MethodPost, "/api/v1/leaderboard/refresh", none, http.StatusForbidden},
		{"refresh", http.MethodPost, "/api/v1/leaderboard/refresh", []string{auth.PermissionRefreshLeaderboard}, http.StatusNoContent},
		{"system info", http.MethodGet, "/api/v1/system/info", nil, http.StatusOK},
		{"system ping", http.MethodGet, "/api/v1/system/ping", nil, http.StatusOK},
		{"health", http.MethodGet, "/health", nil, http.StatusOK},
		{"versioned health", http.MethodGet, "/api/v1/health", nil, http.StatusOK},
		{"anonymous page renders error view", http.MethodGet, "/leaderboard", nil, http.StatusUnauthorized},
		{"page", http.MethodGet, "/leaderboard", none, http.StatusOK},
		{"swagger ui", http.MethodGet, "/swagger/index.html", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.perms...)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}

	assert.True(t, s.svc.refreshed)
}

func TestServiceRoutes_CookieOnlyOnPage(t *testing.T) {
	s := newServiceTable(t)
	token, _, err := s.jwt.IssueToken(auth.IssueTokenInput{
		SellerID:    uuid.New(),
		Permissions: []string{auth.PermissionRefreshLeaderboard},
	})
	require.NoError(t, err)
	cookie := &http.Cookie{Name: middleware.DefaultCookieName, Value: token}

	refresh := httptest.NewRequest(http.MethodPost, "/api/v1/leaderboard/refresh", nil)
	refresh.AddCookie(cookie)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, refresh)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, s.svc.refreshed)

	page := httptest.NewRequest(http.MethodGet, "/leaderboard", nil)
	page.AddCookie(cookie)
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, page)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterRootRoutes_SwaggerUnmounted(t *testing.T) {
	loader := leaderboardapp.NewLoader(&fakeService{})
	defer loader.Close()

	engine := gin.New()
	RegisterRootRoutes(engine, handler.NewPageHandler(loader), handler.NewSystemHandler("", nil), Guards{})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
