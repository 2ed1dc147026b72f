package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// namespace prefixes every metric this package creates, so hub metrics
// never collide with whatever else shares a process's default
// registry.
const namespace = "thor_metrics"

var promHTTPHandler http.Handler

// InitializePrometheusMetrics switches the package over from the no-op
// provider to one backed by the default Prometheus registry, and wires
// HTTPHandler to serve it. It's idempotent: calling it again starts a
// fresh provider (and so a fresh set of lazily created metrics), which
// is mainly useful for tests that need a clean slate.
func InitializePrometheusMetrics() {
	p := &promProvider{
		counters:      make(map[string]*promCountMeter),
		counterVecs:   make(map[string]*promCountVecMeter),
		gauges:        make(map[string]*promGaugeMeter),
		gaugeVecs:     make(map[string]*promGaugeVecMeter),
		histograms:    make(map[string]*promHistogramMeter),
		histogramVecs: make(map[string]*promHistogramVecMeter),
	}

	metricsMu.Lock()
	metrics = p
	promHTTPHandler = promhttp.Handler()
	metricsMu.Unlock()
}

type promProvider struct {
	mu            sync.Mutex
	counters      map[string]*promCountMeter
	counterVecs   map[string]*promCountVecMeter
	gauges        map[string]*promGaugeMeter
	gaugeVecs     map[string]*promGaugeVecMeter
	histograms    map[string]*promHistogramMeter
	histogramVecs map[string]*promHistogramVecMeter
}

func (p *promProvider) Counter(name string) CounterMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.counters[name]; ok {
		return m
	}
	c := registerOrReuse(prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name}))
	m := &promCountMeter{c: c}
	p.counters[name] = m
	return m
}

func (p *promProvider) CounterVec(name string, labels []string) CounterVecMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.counterVecs[name]; ok {
		return m
	}
	c := registerOrReuse(prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name}, labels))
	m := &promCountVecMeter{c: c}
	p.counterVecs[name] = m
	return m
}

func (p *promProvider) Gauge(name string) GaugeMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.gauges[name]; ok {
		return m
	}
	g := registerOrReuse(prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name}))
	m := &promGaugeMeter{g: g}
	p.gauges[name] = m
	return m
}

func (p *promProvider) GaugeVec(name string, labels []string) GaugeVecMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.gaugeVecs[name]; ok {
		return m
	}
	g := registerOrReuse(prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name}, labels))
	m := &promGaugeVecMeter{g: g}
	p.gaugeVecs[name] = m
	return m
}

func (p *promProvider) Histogram(name string, buckets []float64) HistogramMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.histograms[name]; ok {
		return m
	}
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	h := registerOrReuse(prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: name, Buckets: buckets}))
	m := &promHistogramMeter{h: h}
	p.histograms[name] = m
	return m
}

func (p *promProvider) HistogramVec(name string, labels []string, buckets []float64) HistogramVecMeter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.histogramVecs[name]; ok {
		return m
	}
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	h := registerOrReuse(prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Buckets: buckets}, labels))
	m := &promHistogramVecMeter{h: h}
	p.histogramVecs[name] = m
	return m
}

// registerOrReuse registers c with the default registry and returns the
// collector to actually use: c itself, or — if a previous
// InitializePrometheusMetrics call in this process already registered a
// collector under the same name — that earlier collector, so writes
// still land somewhere Gather() can see.
func registerOrReuse[T prometheus.Collector](c T) T {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

type promCountMeter struct{ c prometheus.Counter }

func (m *promCountMeter) Add(v int64) { m.c.Add(float64(v)) }

type promCountVecMeter struct{ c *prometheus.CounterVec }

func (m *promCountVecMeter) AddWithLabel(v int64, labels map[string]string) {
	m.c.With(prometheus.Labels(labels)).Add(float64(v))
}

type promGaugeMeter struct{ g prometheus.Gauge }

func (m *promGaugeMeter) Add(v int64) { m.g.Add(float64(v)) }

type promGaugeVecMeter struct{ g *prometheus.GaugeVec }

func (m *promGaugeVecMeter) AddWithLabel(v int64, labels map[string]string) {
	m.g.With(prometheus.Labels(labels)).Add(float64(v))
}

type promHistogramMeter struct{ h prometheus.Histogram }

func (m *promHistogramMeter) Observe(v int64) { m.h.Observe(float64(v)) }

type promHistogramVecMeter struct{ h *prometheus.HistogramVec }

func (m *promHistogramVecMeter) ObserveWithLabels(v int64, labels map[string]string) {
	m.h.With(prometheus.Labels(labels)).Observe(float64(v))
}
