package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics collects outbound request metrics. It satisfies
// http.MetricsRecorder.
type ClientMetrics struct {
	reqCount   *prometheus.CounterVec
	reqDurHist *prometheus.HistogramVec
}

// NewClientMetrics creates the collectors and registers them on reg
// (prometheus.DefaultRegisterer when nil).
func NewClientMetrics(reg prometheus.Registerer) (*ClientMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &ClientMetrics{
		reqCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reqfacade",
				Name:      "client_requests_total",
				Help:      "Total number of outbound HTTP requests",
			},
			[]string{"method", "host", "status"},
		),
		reqDurHist: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "reqfacade",
				Name:      "client_request_duration_seconds",
				Help:      "Histogram of outbound request durations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "host"},
		),
	}

	for _, c := range []prometheus.Collector{m.reqCount, m.reqDurHist} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveRequest records one attempt. status 0 is reported as "error".
func (m *ClientMetrics) ObserveRequest(method, host string, status int, elapsed time.Duration) {
	code := "error"
	if status != 0 {
		code = strconv.Itoa(status)
	}
	m.reqCount.WithLabelValues(method, host, code).Inc()
	m.reqDurHist.WithLabelValues(method, host).Observe(elapsed.Seconds())
}
