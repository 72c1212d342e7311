// Package metrics provides a small prometheus.Registry wrapper, styled on
// op-interop-mon's metrics.Factory pattern: every metric is created through
// one Factory so a single call site can list everything that got
// registered, instead of scattering prometheus.NewGaugeVec calls (and their
// registration) across the codebase.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DocumentedMetric describes one metric registered through a Factory, kept
// around so an operator-facing doc/dashboard generator can enumerate
// everything this process exports without scraping it live.
type DocumentedMetric struct {
	Name   string
	Help   string
	Labels []string
}

// Factory creates and registers prometheus metrics against a single
// registry, recording each one's shape for later documentation.
type Factory struct {
	registry *prometheus.Registry
	docs     []DocumentedMetric
}

// NewRegistry returns a fresh, empty prometheus registry; callers that want
// the standard process/Go collectors get them via prometheus.WrapRegistererWithPrefix
// or by registering them separately, mirroring upstream op-service/metrics.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// With wraps registry in a Factory.
func With(registry *prometheus.Registry) Factory {
	return Factory{registry: registry}
}

func (f *Factory) NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	f.registry.MustRegister(c)
	f.docs = append(f.docs, DocumentedMetric{Name: fqName(opts.Namespace, opts.Subsystem, opts.Name), Help: opts.Help})
	return c
}

func (f *Factory) NewCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	f.registry.MustRegister(c)
	f.docs = append(f.docs, DocumentedMetric{Name: fqName(opts.Namespace, opts.Subsystem, opts.Name), Help: opts.Help, Labels: labels})
	return c
}

func (f *Factory) NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	g := prometheus.NewGauge(opts)
	f.registry.MustRegister(g)
	f.docs = append(f.docs, DocumentedMetric{Name: fqName(opts.Namespace, opts.Subsystem, opts.Name), Help: opts.Help})
	return g
}

func (f *Factory) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(opts, labels)
	f.registry.MustRegister(g)
	f.docs = append(f.docs, DocumentedMetric{Name: fqName(opts.Namespace, opts.Subsystem, opts.Name), Help: opts.Help, Labels: labels})
	return g
}

func (f *Factory) NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	f.registry.MustRegister(h)
	f.docs = append(f.docs, DocumentedMetric{Name: fqName(opts.Namespace, opts.Subsystem, opts.Name), Help: opts.Help})
	return h
}

// Document returns the shape of every metric this Factory has created so
// far.
func (f *Factory) Document() []DocumentedMetric {
	return f.docs
}

func fqName(namespace, subsystem, name string) string {
	out := name
	if subsystem != "" {
		out = subsystem + "_" + out
	}
	if namespace != "" {
		out = namespace + "_" + out
	}
	return out
}
