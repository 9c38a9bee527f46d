package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/event-registration/internal/dto"
	"github.com/prohmpiriya/event-registration/internal/service"
	"github.com/prohmpiriya/event-registration/pkg/logger"
	"github.com/prohmpiriya/event-registration/pkg/middleware"
	"github.com/prohmpiriya/event-registration/pkg/response"
)

// AuthHandler handles sign-up, login and identity requests
type AuthHandler struct {
	authService service.AuthService
	log         *logger.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService, log *logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &AuthHandler{
		authService: authService,
		log:         log.Named("http.auth"),
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	span := startSpan(c, "handler.auth.register")
	defer span.End()

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	middleware.SetAuditResourceID(c, resp.Account.ID)
	c.JSON(http.StatusCreated, response.Success(resp))
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	span := startSpan(c, "handler.auth.login")
	defer span.End()

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	client := dto.ClientInfo{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: middleware.GetRequestID(c),
	}

	resp, err := h.authService.Login(c.Request.Context(), &req, client)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(resp))
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	span := startSpan(c, "handler.auth.me")
	defer span.End()

	resp, err := h.authService.Me(c.Request.Context(), assertion(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(resp))
}
