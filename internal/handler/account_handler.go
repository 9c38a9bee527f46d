package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/event-registration/internal/dto"
	"github.com/prohmpiriya/event-registration/internal/service"
	"github.com/prohmpiriya/event-registration/pkg/logger"
	"github.com/prohmpiriya/event-registration/pkg/middleware"
	"github.com/prohmpiriya/event-registration/pkg/response"
	"github.com/prohmpiriya/event-registration/pkg/telemetry"
)

// AccountHandler handles account administration and profile updates
type AccountHandler struct {
	accountService service.AccountService
	log            *logger.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService service.AccountService, log *logger.Logger) *AccountHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &AccountHandler{
		accountService: accountService,
		log:            log.Named("http.accounts"),
	}
}

// ChangeRole handles PATCH /accounts/:id/role (administrators only)
func (h *AccountHandler) ChangeRole(c *gin.Context) {
	span := startSpan(c, "handler.accounts.change_role")
	defer span.End()

	targetID := c.Param("id")
	telemetry.SetSpanAttributes(c.Request.Context(), telemetry.AccountIDAttr(targetID))

	var req dto.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.accountService.ChangeRole(c.Request.Context(), assertion(c), targetID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	middleware.SetAuditMetadata(c, map[string]interface{}{"role": resp.Role})
	c.JSON(http.StatusOK, response.Success(resp))
}

// UpdateProfile handles PATCH /accounts/:id
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	span := startSpan(c, "handler.accounts.update_profile")
	defer span.End()

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.accountService.UpdateProfile(c.Request.Context(), assertion(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(resp))
}

// Deactivate handles POST /accounts/:id/deactivate (administrators only)
func (h *AccountHandler) Deactivate(c *gin.Context) {
	span := startSpan(c, "handler.accounts.deactivate")
	defer span.End()

	if err := h.accountService.Deactivate(c.Request.Context(), assertion(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(gin.H{"message": "Account deactivated"}))
}
