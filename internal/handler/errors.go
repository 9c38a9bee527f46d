package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/pkg/logger"
	"github.com/prohmpiriya/event-registration/pkg/middleware"
	"github.com/prohmpiriya/event-registration/pkg/response"
	"github.com/prohmpiriya/event-registration/pkg/telemetry"
)

type errorReply struct {
	target  error
	code    string
	message string
}

// clientErrors are replied to verbatim; order matters where kinds overlap
var clientErrors = []errorReply{
	{domain.ErrInvalidCredentials, response.ErrCodeInvalidCredentials, "Invalid email or password"},
	{domain.ErrTokenExpired, response.ErrCodeTokenExpired, "Access token has expired"},
	{domain.ErrEventNotFound, response.ErrCodeEventNotFound, "Event not found"},
	{domain.ErrAccountNotFound, response.ErrCodeAccountNotFound, "Account not found"},
	{domain.ErrInvalidRole, response.ErrCodeInvalidRole, "Invalid role"},
	{domain.ErrIdentifierTaken, response.ErrCodeIdentifierTaken, "Email already registered"},
	{domain.ErrCapacityBelowAttendees, response.ErrCodeCapacityBelowAttendees, "Capacity cannot be lower than the current attendee count"},
}

// respondError translates a service error into the JSON envelope.
// Infrastructure errors are logged; their cause is never sent to clients.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	ctx := c.Request.Context()

	for _, r := range clientErrors {
		if errors.Is(err, r.target) {
			c.JSON(response.Status(r.code), response.Error(r.code, r.message))
			return
		}
	}

	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, response.ValidationFailed(map[string]string{validation.Field: validation.Message}))
	case domain.Kind(err) == domain.KindAuthentication:
		c.JSON(http.StatusUnauthorized, response.Unauthorized(""))
	case domain.Kind(err) == domain.KindAuthorization:
		c.JSON(http.StatusForbidden, response.Forbidden(""))
	case errors.Is(err, domain.ErrRegistrationTimeout):
		telemetry.SetSpanError(ctx, err)
		log.WarnContext(ctx, "registration outcome unknown", zap.Error(err))
		c.JSON(response.Status(response.ErrCodeRegistrationTimeout), response.Error(response.ErrCodeRegistrationTimeout,
			"Registration outcome unknown, check registration status before retrying"))
	case domain.Kind(err) == domain.KindInfrastructure:
		telemetry.SetSpanError(ctx, err)
		log.ErrorContext(ctx, "storage unavailable", zap.Error(err))
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, response.ServiceUnavailable(""))
	default:
		telemetry.SetSpanError(ctx, err)
		log.ErrorContext(ctx, "unhandled error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, response.InternalError(""))
	}
}

// bindError reports a malformed request body or query. Such requests never
// reach a service and are not audited.
func bindError(c *gin.Context, err error) {
	middleware.SkipAudit(c)
	c.JSON(http.StatusBadRequest, response.ValidationFailed(map[string]string{"request": err.Error()}))
}
