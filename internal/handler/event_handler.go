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

// EventHandler handles event-related HTTP requests
type EventHandler struct {
	eventService service.EventService
	log          *logger.Logger
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(eventService service.EventService, log *logger.Logger) *EventHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &EventHandler{
		eventService: eventService,
		log:          log.Named("http.events"),
	}
}

// List handles GET /events
func (h *EventHandler) List(c *gin.Context) {
	span := startSpan(c, "handler.events.list")
	defer span.End()

	var query dto.ListEventsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.eventService.List(c.Request.Context(), assertion(c), &query)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.List(resp.Events, resp.Limit, resp.Offset, int64(resp.Total)))
}

// Get handles GET /events/:id
func (h *EventHandler) Get(c *gin.Context) {
	span := startSpan(c, "handler.events.get")
	defer span.End()

	id := c.Param("id")
	telemetry.SetSpanAttributes(c.Request.Context(), telemetry.EventIDAttr(id))

	resp, err := h.eventService.Get(c.Request.Context(), assertion(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(resp))
}

// Create handles POST /events (organizers and administrators)
func (h *EventHandler) Create(c *gin.Context) {
	span := startSpan(c, "handler.events.create")
	defer span.End()

	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.eventService.Create(c.Request.Context(), assertion(c), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	middleware.SetAuditResourceID(c, resp.ID)
	c.JSON(http.StatusCreated, response.Success(resp))
}

// Update handles PATCH /events/:id
func (h *EventHandler) Update(c *gin.Context) {
	span := startSpan(c, "handler.events.update")
	defer span.End()

	id := c.Param("id")
	telemetry.SetSpanAttributes(c.Request.Context(), telemetry.EventIDAttr(id))

	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.eventService.Update(c.Request.Context(), assertion(c), id, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(resp))
}

// Delete handles DELETE /events/:id
func (h *EventHandler) Delete(c *gin.Context) {
	span := startSpan(c, "handler.events.delete")
	defer span.End()

	id := c.Param("id")
	telemetry.SetSpanAttributes(c.Request.Context(), telemetry.EventIDAttr(id))

	if err := h.eventService.Delete(c.Request.Context(), assertion(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(gin.H{"message": "Event deleted"}))
}
