package tracing

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/masstrack/internal/observability/context"
	"github.com/smallbiznis/masstrack/internal/priestcontext"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "masstrack/http"

// GinMiddleware opens a server span per request. The span is renamed to the
// matched route once the handler chain has run.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	return func(c *gin.Context) {
		method := c.Request.Method
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if id := obscontext.RequestIDFromContext(ctx); id != "" {
			ctx = withRequestIDBaggage(ctx, id)
			span.SetAttributes(attribute.String("request_id", id))
		}
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)

		attrs := []attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}
		// Authentication runs later in the chain and replaces the request context.
		if role := priestcontext.RoleFromContext(c.Request.Context()); role != "" {
			attrs = append(attrs, attribute.String("user.role", role))
		}
		if status >= http.StatusBadRequest {
			attrs = append(attrs, attribute.String("error.type", errorTypeFor(status)))
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		if status < http.StatusInternalServerError {
			return
		}
		if last := c.Errors.Last(); last != nil {
			if safe := SafeError(last.Err); safe != nil {
				span.RecordError(safe)
			}
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

func withRequestIDBaggage(ctx context.Context, id string) context.Context {
	member, err := baggage.NewMember("request_id", id)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}

func errorTypeFor(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return "auth"
	case status >= http.StatusInternalServerError:
		return "server"
	default:
		return "client"
	}
}
