package handler

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/prohmpiriya/event-registration/internal/token"
	"github.com/prohmpiriya/event-registration/pkg/middleware"
	"github.com/prohmpiriya/event-registration/pkg/telemetry"
)

// startSpan opens a span for the handler and threads it through the request context
func startSpan(c *gin.Context, name string) trace.Span {
	ctx, span := telemetry.StartSpan(c.Request.Context(), name)
	c.Request = c.Request.WithContext(ctx)
	return span
}

// assertion returns the caller's validated token claims, or nil for anonymous requests.
// Services reject a nil assertion with domain.ErrUnauthenticated.
func assertion(c *gin.Context) *token.Assertion {
	a, _ := middleware.GetAssertion(c)
	return a
}
