package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/milan604/reqfacade/pkg/observability"

// OTelMetrics records outbound requests as OpenTelemetry instruments. It
// satisfies http.MetricsRecorder.
type OTelMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewOTelMetrics creates the instruments on mp (the global provider when nil).
func NewOTelMetrics(mp metric.MeterProvider) (*OTelMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	requests, err := meter.Int64Counter(
		"reqfacade.client.requests",
		metric.WithDescription("Total number of outbound HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}
	duration, err := meter.Float64Histogram(
		"reqfacade.client.duration",
		metric.WithDescription("Outbound request duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	return &OTelMetrics{requests: requests, duration: duration}, nil
}

// ObserveRequest records one attempt. status 0 is reported as "error".
func (m *OTelMetrics) ObserveRequest(method, host string, status int, elapsed time.Duration) {
	code := "error"
	if status != 0 {
		code = strconv.Itoa(status)
	}
	ctx := context.Background()
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("server.address", host),
		attribute.String("http.response.status_code", code),
	))
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("server.address", host),
	))
}
