package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "op_derive_node"

// DerivationMetricer is the surface DerivationActor and the pipeline stages
// report through; a NoopMetrics implementation is available for tests and
// for callers that don't want a prometheus dependency at all.
type DerivationMetricer interface {
	RecordPipelineReset(reason string)
	RecordAttributesProduced()
	RecordChannelTimeout()
	RecordDroppedFrame(reason string)
	RecordDroppedBatch(reason string)
	RecordL1Origin(number uint64)
	RecordL2SafeHead(number uint64)
}

// DerivationMetrics is the prometheus-backed DerivationMetricer used in
// production, following op-interop-mon/metrics.Metrics's one-Factory
// construction pattern.
type DerivationMetrics struct {
	registry *prometheus.Registry
	factory  Factory

	pipelineResets     *prometheus.CounterVec
	attributesProduced prometheus.Counter
	channelTimeouts    prometheus.Counter
	droppedFrames      *prometheus.CounterVec
	droppedBatches     *prometheus.CounterVec
	l1Origin           prometheus.Gauge
	l2SafeHead         prometheus.Gauge
}

var _ DerivationMetricer = (*DerivationMetrics)(nil)

func NewDerivationMetrics(procName string) *DerivationMetrics {
	if procName == "" {
		procName = "default"
	}
	ns := Namespace + "_" + procName

	registry := NewRegistry()
	factory := With(registry)

	return &DerivationMetrics{
		registry: registry,
		factory:  factory,

		pipelineResets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "pipeline_resets_total",
			Help:      "Number of times the derivation pipeline was reset, by reason",
		}, []string{"reason"}),
		attributesProduced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "attributes_produced_total",
			Help:      "Number of payload attributes produced by the pipeline",
		}),
		channelTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "channel_timeouts_total",
			Help:      "Number of channels evicted from the channel bank for timing out",
		}),
		droppedFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "dropped_frames_total",
			Help:      "Number of frames dropped as invalid, by reason",
		}, []string{"reason"}),
		droppedBatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "dropped_batches_total",
			Help:      "Number of batches dropped as invalid, by reason",
		}, []string{"reason"}),
		l1Origin: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "l1_origin_number",
			Help:      "Current L1 origin block number the pipeline is positioned at",
		}),
		l2SafeHead: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "l2_safe_head_number",
			Help:      "Current L2 safe head block number reported by the derivation actor",
		}),
	}
}

func (m *DerivationMetrics) Registry() *prometheus.Registry { return m.registry }

func (m *DerivationMetrics) Document() []DocumentedMetric { return m.factory.Document() }

func (m *DerivationMetrics) RecordPipelineReset(reason string) {
	m.pipelineResets.WithLabelValues(reason).Inc()
}

func (m *DerivationMetrics) RecordAttributesProduced() {
	m.attributesProduced.Inc()
}

func (m *DerivationMetrics) RecordChannelTimeout() {
	m.channelTimeouts.Inc()
}

func (m *DerivationMetrics) RecordDroppedFrame(reason string) {
	m.droppedFrames.WithLabelValues(reason).Inc()
}

func (m *DerivationMetrics) RecordDroppedBatch(reason string) {
	m.droppedBatches.WithLabelValues(reason).Inc()
}

func (m *DerivationMetrics) RecordL1Origin(number uint64) {
	m.l1Origin.Set(float64(number))
}

func (m *DerivationMetrics) RecordL2SafeHead(number uint64) {
	m.l2SafeHead.Set(float64(number))
}

// NoopMetrics discards every recorded metric; used by tests and by callers
// that haven't wired a registry yet.
type NoopMetrics struct{}

var _ DerivationMetricer = NoopMetrics{}

func (NoopMetrics) RecordPipelineReset(string)    {}
func (NoopMetrics) RecordAttributesProduced()     {}
func (NoopMetrics) RecordChannelTimeout()         {}
func (NoopMetrics) RecordDroppedFrame(string)     {}
func (NoopMetrics) RecordDroppedBatch(string)     {}
func (NoopMetrics) RecordL1Origin(uint64)         {}
func (NoopMetrics) RecordL2SafeHead(uint64)       {}
