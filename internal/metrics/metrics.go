// Package metrics exports run results to a Prometheus Pushgateway.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/AndreyAkinshin/nightowl/internal/report"
)

// JobName is the Pushgateway job the gauges are grouped under.
const JobName = "nightowl"

// Collector holds the gauges for one run in a private registry.
type Collector struct {
	registry *prometheus.Registry

	tests    *prometheus.GaugeVec
	failures *prometheus.GaugeVec
	errors   *prometheus.GaugeVec
	success  *prometheus.GaugeVec
	lastRun  prometheus.Gauge
}

// NewCollector creates and registers the nightowl gauges.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		tests: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nightowl",
			Subsystem: "buildout",
			Name:      "tests",
			Help:      "Number of tests reported by the last run of a buildout.",
		}, []string{"buildout"}),
		failures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nightowl",
			Subsystem: "buildout",
			Name:      "failures",
			Help:      "Number of failing tests in the last run of a buildout.",
		}, []string{"buildout"}),
		errors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nightowl",
			Subsystem: "buildout",
			Name:      "errors",
			Help:      "Number of erroring tests in the last run of a buildout.",
		}, []string{"buildout"}),
		success: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nightowl",
			Subsystem: "buildout",
			Name:      "success",
			Help:      "1 if the last run of a buildout passed, 0 otherwise.",
		}, []string{"buildout"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nightowl",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	c.registry.MustRegister(c.tests, c.failures, c.errors, c.success, c.lastRun)
	return c
}

// Gatherer exposes the private registry.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// Observe sets the gauges from a run summary.
func (c *Collector) Observe(s *report.Summary) {
	for _, b := range s.Buildouts {
		c.tests.WithLabelValues(b.Name).Set(float64(b.Tests))
		c.failures.WithLabelValues(b.Name).Set(float64(b.Failures))
		c.errors.WithLabelValues(b.Name).Set(float64(b.Errors))
		success := 0.0
		if !b.Failed() {
			success = 1
		}
		c.success.WithLabelValues(b.Name).Set(success)
	}
	c.lastRun.Set(float64(s.Finished.Unix()))
}

// Push observes s and pushes the gauges to the gateway, replacing the
// previous run's values for the job.
func Push(ctx context.Context, gateway string, s *report.Summary) error {
	c := NewCollector()
	c.Observe(s)

	if err := push.New(gateway, JobName).Gatherer(c.Gatherer()).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gateway, err)
	}
	return nil
}
