package tracing

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	obscontext "github.com/edukita/kertas/internal/observability/context"
	"github.com/edukita/kertas/internal/principal"
)

// GinMiddleware starts a server span per request, continuing any
// propagated upstream context.
func GinMiddleware(serviceName string) gin.HandlerFunc {
	tracer := otel.Tracer("kertas/http")

	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		spanName := fmt.Sprintf("HTTP %s %s", c.Request.Method, route)

		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
		}
		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			attrs = append(attrs, attribute.String("request_id", requestID))
		}
		if schoolID, ok := principal.SchoolIDFromContext(ctx); ok {
			attrs = append(attrs, Int64Attr("school_id", int64(schoolID)))
		}

		ctx, span := tracer.Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(SafeAttributes(attrs...)...),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
			if len(c.Errors) > 0 {
				span.AddEvent("request error", trace.WithAttributes(
					attribute.String("error", SafeError(c.Errors.Last())),
				))
			}
		}
	}
}
