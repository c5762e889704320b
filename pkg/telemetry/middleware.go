package telemetry

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	TraceIDHeader = "X-Trace-ID"

	// CallerContextKey is read after the handler chain to tag the span
	CallerContextKey = "caller_address"

	requestIDKey = "request_id"
)

// TracingMiddleware starts a server span per request, continuing any
// W3C trace context in the headers. Requests to untraced paths pass
// straight through.
func TracingMiddleware(serviceName string, untraced ...string) gin.HandlerFunc {
	tracer := otel.Tracer(serviceName + "/http")
	skip := make(map[string]bool, len(untraced))
	for _, p := range untraced {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := routeOf(c)
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethod(c.Request.Method),
				semconv.HTTPRoute(route),
				attribute.String("http.client_ip", c.ClientIP()),
			),
		)
		defer span.End()

		if sc := span.SpanContext(); sc.HasTraceID() {
			c.Header(TraceIDHeader, sc.TraceID().String())
			c.Set("trace_id", sc.TraceID().String())
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		finishSpan(c, span)
	}
}

func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}

func finishSpan(c *gin.Context, span trace.Span) {
	status := c.Writer.Status()
	span.SetAttributes(semconv.HTTPStatusCode(status))
	if id := c.GetString(requestIDKey); id != "" {
		span.SetAttributes(attribute.String("http.request_id", id))
	}
	if caller := c.GetString(CallerContextKey); caller != "" {
		span.SetAttributes(attribute.String("ledger.caller", caller))
	}
	for _, e := range c.Errors {
		span.RecordError(e.Err)
	}
	if status >= 500 {
		span.SetStatus(codes.Error, "http "+strconv.Itoa(status))
	}
}
