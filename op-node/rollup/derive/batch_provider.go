package derive

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/latticefold/op-derive-node/op-node/rollup"
	"github.com/latticefold/op-derive-node/op-service/eth"
	"github.com/latticefold/op-derive-node/op-service/metrics"
)

// BatchProvider applies the validity rules of spec.md §4.7 against a
// running safe head, turning BatchStream's candidate SingularBatch values
// into a totally-ordered sequence of accepted batches. When a real batch
// never shows up before its epoch's sequencing window closes, it
// synthesizes an empty batch for the next slot rather than stalling
// forever.
type BatchProvider struct {
	log     log.Logger
	cfg     *rollup.Config
	metrics metrics.DerivationMetricer

	prev *BatchStream

	l1Blocks []eth.BlockInfo
	safeHead *eth.L2BlockRef

	buffered *SingularBatch
}

func NewBatchProvider(log log.Logger, cfg *rollup.Config, prev *BatchStream) *BatchProvider {
	return &BatchProvider{
		log:     log.New("stage", "batch-provider"),
		cfg:     cfg,
		metrics: metrics.NoopMetrics{},
		prev:    prev,
	}
}

// WithMetrics swaps in a non-noop DerivationMetricer; returns bp for
// chaining at construction time.
func (bp *BatchProvider) WithMetrics(m metrics.DerivationMetricer) *BatchProvider {
	bp.metrics = m
	return bp
}

var _ Stage = (*BatchProvider)(nil)

func (bp *BatchProvider) Origin() eth.BlockInfo {
	return bp.prev.Origin()
}

func (bp *BatchProvider) observeOrigin(origin eth.BlockInfo) {
	if len(bp.l1Blocks) > 0 && bp.l1Blocks[len(bp.l1Blocks)-1].Number == origin.Number {
		return
	}
	bp.l1Blocks = append(bp.l1Blocks, origin)
	if max := int(bp.cfg.SeqWindowSize) + 2; len(bp.l1Blocks) > max {
		bp.l1Blocks = bp.l1Blocks[len(bp.l1Blocks)-max:]
	}
}

// NextBatch returns the next batch to apply on top of the current safe
// head, per the semantics above.
func (bp *BatchProvider) NextBatch(ctx context.Context) (*SingularBatch, error) {
	if bp.safeHead == nil {
		return nil, rollup.NewTemporaryError(rollup.ErrMissingOrigin)
	}

	for {
		candidate := bp.buffered
		if candidate == nil {
			next, err := bp.prev.NextBatch(ctx)
			if err != nil {
				if pe, ok := rollup.AsPipelineError(err); ok && pe.Kind() == rollup.KindTemporary {
					if synth := bp.maybeSynthesize(); synth != nil {
						return synth, nil
					}
				}
				return nil, err
			}
			candidate = next
		}
		bp.observeOrigin(bp.prev.Origin())
		// CheckBatch takes l1Blocks[0] as the safe head's L1 origin.
		for len(bp.l1Blocks) > 0 && bp.l1Blocks[0].Number < bp.safeHead.L1Origin.Number {
			bp.l1Blocks = bp.l1Blocks[1:]
		}

		validity := CheckBatch(bp.cfg, bp.log, bp.l1Blocks, *bp.safeHead, BatchWithInclusion{
			L1InclusionBlock: bp.prev.Origin(),
			Batch:            candidate,
		})

		switch validity {
		case BatchDrop:
			bp.log.Warn("dropping invalid batch", "epoch", candidate.EpochNum, "timestamp", candidate.Timestamp)
			bp.metrics.RecordDroppedBatch("invalid")
			bp.buffered = nil
			continue
		case BatchUndecided:
			bp.buffered = candidate
			return nil, rollup.NewTemporaryError(rollup.ErrNotEnoughData)
		case BatchFuture:
			bp.buffered = candidate
			if synth := bp.maybeSynthesize(); synth != nil {
				return synth, nil
			}
			return nil, rollup.NewTemporaryError(rollup.ErrNotEnoughData)
		case BatchAccept:
			bp.buffered = nil
			return candidate, nil
		default:
			return nil, rollup.NewCriticalError(fmt.Errorf("unreachable batch validity %d", validity))
		}
	}
}

// maybeSynthesize builds an empty, deposits-only batch for the next slot
// when the current epoch's sequencing window is about to close without a
// real batch having claimed it, so the chain keeps advancing on schedule
// even through sequencer downtime.
func (bp *BatchProvider) maybeSynthesize() *SingularBatch {
	if len(bp.l1Blocks) == 0 {
		return nil
	}
	epoch := bp.l1Blocks[0]
	latest := bp.l1Blocks[len(bp.l1Blocks)-1]
	if epoch.Number+bp.cfg.SeqWindowSize > latest.Number {
		return nil
	}

	nextTimestamp := bp.safeHead.Time + bp.cfg.BlockTime
	epochForBlock := epoch
	if len(bp.l1Blocks) > 1 && nextTimestamp > epoch.Time+bp.cfg.MaxSequencerDrift {
		epochForBlock = bp.l1Blocks[1]
	}

	bp.log.Info("synthesizing empty batch, sequencing window about to expire", "epoch", epochForBlock.Number, "timestamp", nextTimestamp)
	return &SingularBatch{
		ParentHash:   bp.safeHead.Hash,
		EpochNum:     epochForBlock.Number,
		EpochHash:    epochForBlock.Hash,
		Timestamp:    nextTimestamp,
		IsLastInSpan: true,
	}
}

func (bp *BatchProvider) Signal(ctx context.Context, signal rollup.Signal) error {
	switch sig := signal.(type) {
	case rollup.ResetSignal:
		bp.l1Blocks = nil
		bp.buffered = nil
		head := sig.L2SafeHead
		bp.safeHead = &head
	case rollup.ActivationSignal:
		bp.l1Blocks = nil
		bp.buffered = nil
		head := sig.L2SafeHead
		bp.safeHead = &head
	case rollup.ProvideBlockSignal:
		block := sig.Block
		bp.safeHead = &block
	}
	return bp.prev.Signal(ctx, signal)
}
