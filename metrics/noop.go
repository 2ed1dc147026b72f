package metrics

import "net/http"

// noopMeters satisfies every meter interface with a method that does
// nothing, so the default (uninitialized) provider can hand out one
// value regardless of which constructor was called.
type noopMeters struct{}

func (*noopMeters) Add(int64)                                {}
func (*noopMeters) AddWithLabel(int64, map[string]string)    {}
func (*noopMeters) Observe(int64)                            {}
func (*noopMeters) ObserveWithLabels(int64, map[string]string) {}

type noopProvider struct{}

func defaultNoopMetrics() provider { return noopProvider{} }

func (noopProvider) Counter(string) CounterMeter             { return &noopMeters{} }
func (noopProvider) CounterVec(string, []string) CounterVecMeter { return &noopMeters{} }
func (noopProvider) Gauge(string) GaugeMeter                 { return &noopMeters{} }
func (noopProvider) GaugeVec(string, []string) GaugeVecMeter { return &noopMeters{} }
func (noopProvider) Histogram(string, []float64) HistogramMeter { return &noopMeters{} }
func (noopProvider) HistogramVec(string, []string, []float64) HistogramVecMeter {
	return &noopMeters{}
}

// HTTPHandler returns the handler the hub's admin server mounts at
// /metrics. Before InitializePrometheusMetrics runs there's nothing to
// scrape, so it 404s rather than serving an empty page.
func HTTPHandler() http.Handler {
	metricsMu.RLock()
	h := promHTTPHandler
	metricsMu.RUnlock()
	if h == nil {
		return http.NotFoundHandler()
	}
	return h
}
