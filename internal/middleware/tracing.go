package middleware

import (
	"culturetech/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TraceHeader echoes the trace id of the request span to the client.
const TraceHeader = "X-Trace-ID"

// headerCarrier exposes fasthttp request headers to OpenTelemetry propagators.
type headerCarrier struct{ c *fiber.Ctx }

func (h headerCarrier) Get(key string) string { return h.c.Get(key) }
func (h headerCarrier) Set(key, value string) { h.c.Request().Header.Set(key, value) }

func (h headerCarrier) Keys() []string {
	keys := make([]string, 0, 8)
	h.c.Request().Header.VisitAll(func(k, _ []byte) {
		keys = append(keys, string(k))
	})
	return keys
}

// TracingMiddleware starts a server span per request, continuing any trace
// propagated by the caller. The span is renamed to the matched route once the
// handler has run so span names stay low-cardinality.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), headerCarrier{c})
		ctx, span := observability.Tracer.Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(c.Method()),
				semconv.URLPath(c.Path()),
				semconv.ClientAddress(c.IP()),
				semconv.UserAgentOriginal(c.Get(fiber.HeaderUserAgent)),
			),
		)
		defer span.End()

		sc := span.SpanContext()
		c.Locals("traceID", sc.TraceID().String())
		c.Locals("spanID", sc.SpanID().String())
		if rid, ok := c.Locals("requestid").(string); ok {
			span.SetAttributes(attribute.String("request.id", rid))
		}
		c.Set(TraceHeader, sc.TraceID().String())
		c.SetUserContext(ctx)

		err := c.Next()

		status := c.Response().StatusCode()
		span.SetName(c.Method() + " " + c.Route().Path)
		span.SetAttributes(
			semconv.HTTPRoute(c.Route().Path),
			semconv.HTTPResponseStatusCode(status),
		)
		if uid, ok := c.Locals("userID").(uint); ok {
			span.SetAttributes(attribute.Int64("enduser.id", int64(uid)))
		}
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case status >= fiber.StatusInternalServerError:
			span.SetStatus(codes.Error, "server error")
		}
		return err
	}
}
