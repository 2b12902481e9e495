// Package metrics exposes live run counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"chaosq/internal/stats"
)

const namespace = "chaosq"

// Collector reads the aggregator on every scrape, so values are never stale
// and nothing is double-counted.
type Collector struct {
	agg *stats.Aggregator

	requestsIssued     *prometheus.Desc
	requestsFailed     *prometheus.Desc
	connectionAttempts *prometheus.Desc
	connectionOpens    *prometheus.Desc
	connectionCloses   *prometheus.Desc
	connectionErrors   *prometheus.Desc
	inflight           *prometheus.Desc
	latency            *prometheus.Desc
}

func NewCollector(agg *stats.Aggregator) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		agg:                agg,
		requestsIssued:     desc("requests_issued_total", "Requests issued by virtual users."),
		requestsFailed:     desc("requests_failed_total", "Requests that failed, timed out or were aborted."),
		connectionAttempts: desc("connection_attempts_total", "Streaming connection attempts."),
		connectionOpens:    desc("connection_opens_total", "Streaming connections opened."),
		connectionCloses:   desc("connection_closes_total", "Streaming connections closed."),
		connectionErrors:   desc("connection_errors_total", "Streaming connection attempts that failed."),
		inflight:           desc("requests_inflight", "Requests currently in flight."),
		latency:            desc("request_latency_ms", "Request latency quantiles in milliseconds.", "quantile"),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requestsIssued
	ch <- c.requestsFailed
	ch <- c.connectionAttempts
	ch <- c.connectionOpens
	ch <- c.connectionCloses
	ch <- c.connectionErrors
	ch <- c.inflight
	ch <- c.latency
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.agg.Snapshot()

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	counter(c.requestsIssued, s.RequestsIssued)
	counter(c.requestsFailed, s.RequestsFailed)
	counter(c.connectionAttempts, s.ConnectionAttempts)
	counter(c.connectionOpens, s.ConnectionOpens)
	counter(c.connectionCloses, s.ConnectionCloses)
	counter(c.connectionErrors, s.ConnectionErrors)

	ch <- prometheus.MustNewConstMetric(c.inflight, prometheus.GaugeValue, float64(s.Inflight))
	ch <- prometheus.MustNewConstMetric(c.latency, prometheus.GaugeValue, s.Latency.P50Ms, "0.5")
	ch <- prometheus.MustNewConstMetric(c.latency, prometheus.GaugeValue, s.Latency.P90Ms, "0.9")
	ch <- prometheus.MustNewConstMetric(c.latency, prometheus.GaugeValue, s.Latency.P99Ms, "0.99")
}

// Server serves /metrics for the lifetime of a run.
type Server struct {
	srv *http.Server
	ln  net.Listener
	log *zap.Logger
}

// Serve registers a collector for agg on a fresh registry and listens on addr.
func Serve(addr string, agg *stats.Aggregator, log *zap.Logger) (*Server, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(agg)); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
		log: log,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return s, nil
}

func (s *Server) Addr() string { return s.ln.Addr().String() }

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
