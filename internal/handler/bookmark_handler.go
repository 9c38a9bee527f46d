package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/event-registration/internal/service"
	"github.com/prohmpiriya/event-registration/pkg/logger"
	"github.com/prohmpiriya/event-registration/pkg/middleware"
	"github.com/prohmpiriya/event-registration/pkg/response"
	"github.com/prohmpiriya/event-registration/pkg/telemetry"
)

// BookmarkHandler handles the caller's bookmarked events
type BookmarkHandler struct {
	favoritesService service.FavoritesService
	log              *logger.Logger
}

// NewBookmarkHandler creates a new BookmarkHandler
func NewBookmarkHandler(favoritesService service.FavoritesService, log *logger.Logger) *BookmarkHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &BookmarkHandler{
		favoritesService: favoritesService,
		log:              log.Named("http.bookmarks"),
	}
}

// List handles GET /bookmarks
func (h *BookmarkHandler) List(c *gin.Context) {
	span := startSpan(c, "handler.bookmarks.list")
	defer span.End()

	resp, err := h.favoritesService.List(c.Request.Context(), assertion(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(resp))
}

// Bookmark handles PUT /bookmarks/:event_id
func (h *BookmarkHandler) Bookmark(c *gin.Context) {
	span := startSpan(c, "handler.bookmarks.add")
	defer span.End()

	eventID := c.Param("event_id")
	telemetry.SetSpanAttributes(c.Request.Context(), telemetry.EventIDAttr(eventID))

	resp, err := h.favoritesService.Bookmark(c.Request.Context(), assertion(c), eventID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	middleware.SetAuditMetadata(c, map[string]interface{}{"outcome": resp.Outcome})
	c.JSON(http.StatusOK, response.Success(resp))
}

// Unbookmark handles DELETE /bookmarks/:event_id
func (h *BookmarkHandler) Unbookmark(c *gin.Context) {
	span := startSpan(c, "handler.bookmarks.remove")
	defer span.End()

	eventID := c.Param("event_id")
	telemetry.SetSpanAttributes(c.Request.Context(), telemetry.EventIDAttr(eventID))

	resp, err := h.favoritesService.Unbookmark(c.Request.Context(), assertion(c), eventID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	middleware.SetAuditMetadata(c, map[string]interface{}{"outcome": resp.Outcome})
	c.JSON(http.StatusOK, response.Success(resp))
}
