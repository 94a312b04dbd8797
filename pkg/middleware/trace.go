// Package middleware provides HTTP transport middleware for the responses
// client.
package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/cexll/diagramchat-go/pkg/middleware"

// TracingTransport wraps an http.RoundTripper with a client span per request.
// Install it on the http.Client handed to the responses client to get one
// span per service round trip, tool continuations included.
type TracingTransport struct {
	base   http.RoundTripper
	tracer trace.Tracer
}

// NewTracingTransport builds a tracing transport. A nil base falls back to
// http.DefaultTransport; a nil provider falls back to the global one.
func NewTracingTransport(base http.RoundTripper, tp trace.TracerProvider) *TracingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &TracingTransport{
		base:   base,
		tracer: tp.Tracer(tracerName),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *TracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := t.tracer.Start(req.Context(), "responses.create",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.URL.Path),
			attribute.String("server.address", req.URL.Host),
		),
	)
	defer span.End()

	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, resp.Status)
	}
	return resp, nil
}

var _ http.RoundTripper = (*TracingTransport)(nil)
