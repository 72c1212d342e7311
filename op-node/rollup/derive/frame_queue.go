package derive

import (
	"context"

	"github.com/ethereum/go-ethereum/log"

	"github.com/latticefold/op-derive-node/op-node/rollup"
	"github.com/latticefold/op-derive-node/op-service/eth"
	"github.com/latticefold/op-derive-node/op-service/metrics"
)

// FrameQueue parses raw DA bytes into Frames, buffering parsed frames
// across DA payloads so NextFrame always yields one frame at a time in DA
// order, regardless of how many frames a single payload packs.
type FrameQueue struct {
	log     log.Logger
	cfg     *rollup.Config
	metrics metrics.DerivationMetricer

	prev *L1Retrieval

	queue []Frame
}

func NewFrameQueue(log log.Logger, cfg *rollup.Config, prev *L1Retrieval) *FrameQueue {
	return &FrameQueue{
		log:     log.New("stage", "frame-queue"),
		cfg:     cfg,
		metrics: metrics.NoopMetrics{},
		prev:    prev,
	}
}

// WithMetrics swaps in a non-noop DerivationMetricer; returns fq for
// chaining at construction time.
func (fq *FrameQueue) WithMetrics(m metrics.DerivationMetricer) *FrameQueue {
	fq.metrics = m
	return fq
}

var _ Stage = (*FrameQueue)(nil)

func (fq *FrameQueue) Origin() eth.BlockInfo {
	return fq.prev.Origin()
}

// NextFrame returns the next parsed frame, pulling and parsing more DA
// payloads from L1Retrieval as needed. Payloads that don't parse as valid
// frames are dropped silently, per spec.md §4.3.
func (fq *FrameQueue) NextFrame(ctx context.Context) (Frame, error) {
	for len(fq.queue) == 0 {
		data, err := fq.prev.NextData(ctx)
		if err != nil {
			return Frame{}, err
		}
		frames, err := ParseFrames(data)
		if err != nil {
			fq.log.Warn("dropping invalid DA payload", "err", err, "origin", fq.Origin().ID())
			fq.metrics.RecordDroppedFrame("invalid-payload")
			continue
		}
		fq.queue = append(fq.queue, frames...)
	}
	f := fq.queue[0]
	fq.queue = fq.queue[1:]
	return f, nil
}

func (fq *FrameQueue) Signal(ctx context.Context, signal rollup.Signal) error {
	switch signal.(type) {
	case rollup.ResetSignal, rollup.ActivationSignal:
		fq.queue = nil
	}
	return fq.prev.Signal(ctx, signal)
}
