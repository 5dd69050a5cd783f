// Package metrics exposes live monitor state as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the metric set for one monitored host. Each collector
// carries its own registry so tests can create them freely.
type Collector struct {
	registry *prometheus.Registry

	connectionUp     prometheus.Gauge
	probesTotal      *prometheus.CounterVec
	probeRTTSeconds  prometheus.Histogram
	transitionsTotal *prometheus.CounterVec
}

// NewCollector registers the metric set labelled with the target host.
func NewCollector(host string) *Collector {
	labels := prometheus.Labels{"host": host}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		connectionUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "cmon_connection_up",
			Help:        "Debounced connection state: 1 when UP, 0 otherwise.",
			ConstLabels: labels,
		}),
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "cmon_probes_total",
			Help:        "Total probes by classified result.",
			ConstLabels: labels,
		}, []string{"result"}),
		probeRTTSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "cmon_probe_rtt_seconds",
			Help:        "Round-trip time of successful probes in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "cmon_transitions_total",
			Help:        "State transitions by direction.",
			ConstLabels: labels,
		}, []string{"direction"}),
	}
	c.registry.MustRegister(c.connectionUp, c.probesTotal, c.probeRTTSeconds, c.transitionsTotal)
	return c
}

// ObserveProbe records one classified probe.
func (c *Collector) ObserveProbe(reachable bool, rtt time.Duration) {
	result := "down"
	if reachable {
		result = "up"
	}
	c.probesTotal.WithLabelValues(result).Inc()
	if reachable && rtt > 0 {
		c.probeRTTSeconds.Observe(rtt.Seconds())
	}
}

// ObserveState records the debounced state after a probe.
func (c *Collector) ObserveState(up bool) {
	if up {
		c.connectionUp.Set(1)
		return
	}
	c.connectionUp.Set(0)
}

// ObserveTransition records a confirmed UP or DOWN transition.
func (c *Collector) ObserveTransition(up bool) {
	direction := "down"
	if up {
		direction = "up"
	}
	c.transitionsTotal.WithLabelValues(direction).Inc()
}

// Handler serves this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server for /metrics and blocks until context
// cancellation.
func Serve(ctx context.Context, addr string, c *Collector) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = server.Shutdown(context.Background())
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return context.Canceled
		}
		return err
	}
}
