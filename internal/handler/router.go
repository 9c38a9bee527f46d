package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/pkg/audit"
	"github.com/prohmpiriya/event-registration/pkg/middleware"
	"github.com/prohmpiriya/event-registration/pkg/response"
)

// Handlers groups every HTTP handler served by the API
type Handlers struct {
	Auth         *AuthHandler
	Event        *EventHandler
	Registration *RegistrationHandler
	Bookmark     *BookmarkHandler
	Account      *AccountHandler
	Health       *HealthHandler
}

// RouterConfig holds the cross-cutting pieces of the middleware chain
type RouterConfig struct {
	Tokens         middleware.TokenValidator
	AllowedOrigins []string
	// Audit is optional; mutating requests are not recorded when nil
	Audit middleware.AuditRecorder
	// LoginLimiter is optional; login is not rate limited when nil
	LoginLimiter middleware.Limiter
	RateLimit    middleware.RateLimitConfig
}

// auditRoutes lists the mutating routes that leave an audit trail. Logins
// are recorded by the auth service, which knows the outcome and the account.
var auditRoutes = middleware.AuditRoutes{
	"POST /api/v1/auth/register":             {Action: audit.ActionRegister, Resource: "account"},
	"POST /api/v1/events":                    {Action: audit.ActionCreate, Resource: "event"},
	"PATCH /api/v1/events/:id":               {Action: audit.ActionUpdate, Resource: "event", IDParam: "id"},
	"DELETE /api/v1/events/:id":              {Action: audit.ActionDelete, Resource: "event", IDParam: "id"},
	"POST /api/v1/events/:id/registration":   {Action: audit.ActionJoin, Resource: "registration", IDParam: "id"},
	"DELETE /api/v1/events/:id/registration": {Action: audit.ActionLeave, Resource: "registration", IDParam: "id"},
	"PUT /api/v1/bookmarks/:event_id":        {Action: audit.ActionBookmark, Resource: "bookmark", IDParam: "event_id"},
	"DELETE /api/v1/bookmarks/:event_id":     {Action: audit.ActionUnbookmark, Resource: "bookmark", IDParam: "event_id"},
	"PATCH /api/v1/accounts/:id":             {Action: audit.ActionUpdate, Resource: "account", IDParam: "id"},
	"PATCH /api/v1/accounts/:id/role":        {Action: audit.ActionRoleChange, Resource: "account", IDParam: "id"},
	"POST /api/v1/accounts/:id/deactivate":   {Action: audit.ActionDeactivate, Resource: "account", IDParam: "id"},
}

// NewRouter builds the gin engine with all routes registered
func NewRouter(h *Handlers, cfg *RouterConfig) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.CORS(cfg.AllowedOrigins))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, response.NotFound("Route not found"))
	})

	engine.GET("/health", h.Health.Health)
	engine.GET("/ready", h.Health.Ready)

	api := engine.Group("/api/v1")
	if cfg.Audit != nil {
		api.Use(middleware.AuditMiddleware(cfg.Audit, auditRoutes))
	}

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		if cfg.LoginLimiter != nil {
			auth.POST("/login", middleware.RateLimiter(cfg.LoginLimiter, cfg.RateLimit), h.Auth.Login)
		} else {
			auth.POST("/login", h.Auth.Login)
		}
	}

	protected := api.Group("")
	protected.Use(middleware.JWTMiddleware(&middleware.JWTConfig{Tokens: cfg.Tokens}))
	{
		protected.GET("/auth/me", h.Auth.Me)

		events := protected.Group("/events")
		events.GET("", h.Event.List)
		events.GET("/:id", h.Event.Get)
		events.POST("", middleware.RequireCapability(domain.CapCreateEvent), h.Event.Create)
		events.PATCH("/:id", h.Event.Update)
		events.DELETE("/:id", h.Event.Delete)

		events.POST("/:id/registration", h.Registration.Join)
		events.DELETE("/:id/registration", h.Registration.Leave)
		events.GET("/:id/registration", h.Registration.Status)

		bookmarks := protected.Group("/bookmarks")
		bookmarks.GET("", h.Bookmark.List)
		bookmarks.PUT("/:event_id", h.Bookmark.Bookmark)
		bookmarks.DELETE("/:event_id", h.Bookmark.Unbookmark)

		accounts := protected.Group("/accounts")
		accounts.PATCH("/:id", h.Account.UpdateProfile)
		accounts.PATCH("/:id/role", middleware.RequireCapability(domain.CapManageRoles), h.Account.ChangeRole)
		accounts.POST("/:id/deactivate", middleware.RequireCapability(domain.CapManageAccounts), h.Account.Deactivate)
	}

	return engine
}
