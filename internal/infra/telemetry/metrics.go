package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service-level Prometheus collectors. HTTP-level
// collectors live in the transport middleware.
type Metrics struct {
	ForecastCacheHits   prometheus.Counter
	ForecastCacheMisses prometheus.Counter
	LoginsBlocked       prometheus.Counter
	LoginsFailed        prometheus.Counter
	LoginsSucceeded     prometheus.Counter
}

// NewMetrics constructs and registers the service collectors with the
// provided registerer (nil falls back to the default registerer).
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		ForecastCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finance",
			Subsystem: "forecast_cache",
			Name:      "hits_total",
			Help:      "Total number of forecast cache hits.",
		}),
		ForecastCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finance",
			Subsystem: "forecast_cache",
			Name:      "misses_total",
			Help:      "Total number of forecast cache misses.",
		}),
		LoginsBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finance",
			Subsystem: "auth",
			Name:      "logins_blocked_total",
			Help:      "Total number of logins rejected by the attempt tracker.",
		}),
		LoginsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finance",
			Subsystem: "auth",
			Name:      "logins_failed_total",
			Help:      "Total number of logins that failed credential checks.",
		}),
		LoginsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finance",
			Subsystem: "auth",
			Name:      "logins_succeeded_total",
			Help:      "Total number of successful logins.",
		}),
	}

	collectors := []prometheus.Collector{
		m.ForecastCacheHits,
		m.ForecastCacheMisses,
		m.LoginsBlocked,
		m.LoginsFailed,
		m.LoginsSucceeded,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, fmt.Errorf("register collector: %w", err)
			}
		}
	}

	return m, nil
}
