package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/event-registration/internal/domain"
	"github.com/prohmpiriya/event-registration/internal/dto"
	"github.com/prohmpiriya/event-registration/internal/service"
	"github.com/prohmpiriya/event-registration/pkg/logger"
	"github.com/prohmpiriya/event-registration/pkg/middleware"
	"github.com/prohmpiriya/event-registration/pkg/response"
	"github.com/prohmpiriya/event-registration/pkg/telemetry"
)

// RegistrationHandler handles joining and leaving events
type RegistrationHandler struct {
	registrationService service.RegistrationService
	log                 *logger.Logger
}

// NewRegistrationHandler creates a new RegistrationHandler
func NewRegistrationHandler(registrationService service.RegistrationService, log *logger.Logger) *RegistrationHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &RegistrationHandler{
		registrationService: registrationService,
		log:                 log.Named("http.registration"),
	}
}

// Join handles POST /events/:id/registration
func (h *RegistrationHandler) Join(c *gin.Context) {
	span := startSpan(c, "handler.registration.join")
	defer span.End()

	eventID := c.Param("id")
	telemetry.SetSpanAttributes(c.Request.Context(), telemetry.EventIDAttr(eventID))

	resp, err := h.registrationService.Join(c.Request.Context(), assertion(c), eventID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.annotate(c, resp)
	if resp.Outcome == string(domain.CapacityExceeded) {
		c.JSON(http.StatusConflict, response.ErrorWithDetails(response.ErrCodeCapacityExceeded,
			"Event has no remaining capacity", map[string]string{
				"capacity":       strconv.Itoa(resp.Capacity),
				"attendee_count": strconv.Itoa(resp.AttendeeCount),
			}))
		return
	}

	c.JSON(http.StatusOK, response.Success(resp))
}

// Leave handles DELETE /events/:id/registration
func (h *RegistrationHandler) Leave(c *gin.Context) {
	span := startSpan(c, "handler.registration.leave")
	defer span.End()

	eventID := c.Param("id")
	telemetry.SetSpanAttributes(c.Request.Context(), telemetry.EventIDAttr(eventID))

	resp, err := h.registrationService.Leave(c.Request.Context(), assertion(c), eventID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.annotate(c, resp)
	c.JSON(http.StatusOK, response.Success(resp))
}

// Status handles GET /events/:id/registration
func (h *RegistrationHandler) Status(c *gin.Context) {
	span := startSpan(c, "handler.registration.status")
	defer span.End()

	eventID := c.Param("id")
	resp, err := h.registrationService.Status(c.Request.Context(), assertion(c), eventID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(resp))
}

func (h *RegistrationHandler) annotate(c *gin.Context, resp *dto.RegistrationResponse) {
	telemetry.SetSpanAttributes(c.Request.Context(), telemetry.OutcomeAttr(resp.Outcome))
	middleware.SetAuditMetadata(c, map[string]interface{}{
		"outcome":        resp.Outcome,
		"changed":        resp.Changed,
		"attendee_count": resp.AttendeeCount,
	})
}
