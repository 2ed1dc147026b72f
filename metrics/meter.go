// Package metrics is the hub's counters-and-histograms surface: a small
// facade over Prometheus that every other package talks to by metric
// name, with a no-op implementation so binaries that never call
// InitializePrometheusMetrics still run (and test suites that do call it
// don't leak state between runs).
package metrics

import "sync"

// CounterMeter accumulates a monotonically increasing value.
type CounterMeter interface {
	Add(v int64)
}

// CounterVecMeter is a CounterMeter split across a fixed label set.
type CounterVecMeter interface {
	AddWithLabel(v int64, labels map[string]string)
}

// GaugeMeter holds a value that can go up or down.
type GaugeMeter interface {
	Add(v int64)
}

// GaugeVecMeter is a GaugeMeter split across a fixed label set.
type GaugeVecMeter interface {
	AddWithLabel(v int64, labels map[string]string)
}

// HistogramMeter records observations into buckets.
type HistogramMeter interface {
	Observe(v int64)
}

// HistogramVecMeter is a HistogramMeter split across a fixed label set.
type HistogramVecMeter interface {
	ObserveWithLabels(v int64, labels map[string]string)
}

// provider is what the package-level Counter/Gauge/Histogram funcs defer
// to; it's swapped out wholesale by InitializePrometheusMetrics.
type provider interface {
	Counter(name string) CounterMeter
	CounterVec(name string, labels []string) CounterVecMeter
	Gauge(name string) GaugeMeter
	GaugeVec(name string, labels []string) GaugeVecMeter
	Histogram(name string, buckets []float64) HistogramMeter
	HistogramVec(name string, labels []string, buckets []float64) HistogramVecMeter
}

var (
	metricsMu sync.RWMutex
	metrics   provider = defaultNoopMetrics()
)

func currentProvider() provider {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return metrics
}

// Counter returns (creating on first use) the named monotonic counter.
func Counter(name string) CounterMeter { return currentProvider().Counter(name) }

// CounterVec returns the named counter split by labels.
func CounterVec(name string, labels []string) CounterVecMeter {
	return currentProvider().CounterVec(name, labels)
}

// Gauge returns the named gauge.
func Gauge(name string) GaugeMeter { return currentProvider().Gauge(name) }

// GaugeVec returns the named gauge split by labels.
func GaugeVec(name string, labels []string) GaugeVecMeter {
	return currentProvider().GaugeVec(name, labels)
}

// Histogram returns the named histogram. A nil buckets slice uses
// Prometheus's default bucket boundaries.
func Histogram(name string, buckets []float64) HistogramMeter {
	return currentProvider().Histogram(name, buckets)
}

// HistogramVec returns the named histogram split by labels.
func HistogramVec(name string, labels []string, buckets []float64) HistogramVecMeter {
	return currentProvider().HistogramVec(name, labels, buckets)
}

// LazyLoadCounter returns a func resolving Counter(name) at call time
// instead of at registration time, so a package-level var can reference
// a metric before InitializePrometheusMetrics has run.
func LazyLoadCounter(name string) func() CounterMeter {
	return func() CounterMeter { return Counter(name) }
}

// LazyLoadCounterVec is LazyLoadCounter for CounterVec.
func LazyLoadCounterVec(name string, labels []string) func() CounterVecMeter {
	return func() CounterVecMeter { return CounterVec(name, labels) }
}

// LazyLoadGauge is LazyLoadCounter for Gauge.
func LazyLoadGauge(name string) func() GaugeMeter {
	return func() GaugeMeter { return Gauge(name) }
}

// LazyLoadGaugeVec is LazyLoadCounter for GaugeVec.
func LazyLoadGaugeVec(name string, labels []string) func() GaugeVecMeter {
	return func() GaugeVecMeter { return GaugeVec(name, labels) }
}

// LazyLoadHistogram is LazyLoadCounter for Histogram.
func LazyLoadHistogram(name string, buckets []float64) func() HistogramMeter {
	return func() HistogramMeter { return Histogram(name, buckets) }
}

// LazyLoadHistogramVec is LazyLoadCounter for HistogramVec.
func LazyLoadHistogramVec(name string, labels []string, buckets []float64) func() HistogramVecMeter {
	return func() HistogramVecMeter { return HistogramVec(name, labels, buckets) }
}
