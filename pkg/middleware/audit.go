package middleware

import (
	"net"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prohmpiriya/event-registration/pkg/audit"
	"github.com/prohmpiriya/event-registration/pkg/telemetry"
)

const (
	contextKeyAuditResourceID = "audit_resource_id"
	contextKeyAuditMetadata   = "audit_metadata"
	contextKeyAuditSkip       = "audit_skip"
)

// AuditRecorder accepts audit entries without blocking
type AuditRecorder interface {
	Log(entry *audit.Entry)
}

// AuditRoute describes how requests on one route are audited
type AuditRoute struct {
	Action   audit.Action
	Resource string
	// IDParam names the path parameter holding the resource id
	IDParam string
}

// AuditRoutes is keyed by method and gin route template, e.g.
// "POST /api/v1/events/:id/registration".
type AuditRoutes map[string]AuditRoute

// AuditMiddleware records one entry per request on a route listed in routes,
// once the handler has run. Other routes, including unmatched paths, are not audited.
func AuditMiddleware(recorder AuditRecorder, routes AuditRoutes) gin.HandlerFunc {
	return func(c *gin.Context) {
		route, ok := routes[c.Request.Method+" "+c.FullPath()]
		if !ok {
			c.Next()
			return
		}

		startTime := time.Now()
		c.Next()

		if c.GetBool(contextKeyAuditSkip) {
			return
		}

		entry := &audit.Entry{
			ID:           uuid.New().String(),
			Action:       route.Action,
			ResourceType: route.Resource,
			StatusCode:   c.Writer.Status(),
			IPAddress:    clientIP(c),
			UserAgent:    c.GetHeader("User-Agent"),
			RequestID:    GetRequestID(c),
			TraceID:      telemetry.GetTraceID(c.Request.Context()),
			CreatedAt:    startTime,
		}

		if accountID, ok := GetAccountID(c); ok && accountID != "" {
			entry.AccountID = &accountID
		}
		if role, ok := GetRole(c); ok {
			entry.AccountRole = role
		}

		// an id set by the handler wins over the path, e.g. a newly created event
		resourceID := c.GetString(contextKeyAuditResourceID)
		if resourceID == "" && route.IDParam != "" {
			resourceID = c.Param(route.IDParam)
		}
		if resourceID != "" {
			entry.ResourceID = &resourceID
		}
		if meta, ok := c.Get(contextKeyAuditMetadata); ok {
			entry.Metadata, _ = meta.(map[string]interface{})
		}

		recorder.Log(entry)
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address
func clientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := c.GetHeader("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}

// SetAuditResourceID overrides the resource id taken from the path
func SetAuditResourceID(c *gin.Context, resourceID string) {
	c.Set(contextKeyAuditResourceID, resourceID)
}

// SetAuditMetadata attaches handler specific details to the audit entry
func SetAuditMetadata(c *gin.Context, metadata map[string]interface{}) {
	c.Set(contextKeyAuditMetadata, metadata)
}

// SkipAudit marks the current request to skip audit logging
func SkipAudit(c *gin.Context) {
	c.Set(contextKeyAuditSkip, true)
}
