package derive

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/latticefold/op-derive-node/op-node/rollup"
	"github.com/latticefold/op-derive-node/op-service/eth"
)

// BatchStream sits above ChannelReader and turns its raw, type-tagged batch
// payloads into a flat stream of SingularBatch values. A SpanBatch is held
// back and unpacked one block at a time: each unpacked block's ParentHash
// isn't known until the execution engine has actually applied the previous
// one, so BatchStream stalls on ProvideBlockSignal between elements rather
// than guessing it (spec.md §4.6).
type BatchStream struct {
	log log.Logger
	cfg *rollup.Config

	prev *ChannelReader

	pending    []*SpanBatchElement
	spanOrigin eth.BlockInfo
	nextParent *eth.L2BlockRef

	// l1Origins is a bounded trailing window of L1 origins this stage has
	// observed flow past, used to resolve a span element's epoch number to
	// its canonical hash without re-deriving the whole L1Traversal window.
	l1Origins []eth.BlockInfo
}

func NewBatchStream(log log.Logger, cfg *rollup.Config, prev *ChannelReader) *BatchStream {
	return &BatchStream{
		log:  log.New("stage", "batch-stream"),
		cfg:  cfg,
		prev: prev,
	}
}

var _ Stage = (*BatchStream)(nil)

func (bs *BatchStream) Origin() eth.BlockInfo {
	return bs.prev.Origin()
}

func (bs *BatchStream) observeOrigin(origin eth.BlockInfo) {
	if len(bs.l1Origins) > 0 && bs.l1Origins[len(bs.l1Origins)-1].Number == origin.Number {
		return
	}
	bs.l1Origins = append(bs.l1Origins, origin)
	if max := int(bs.cfg.SeqWindowSize) + 2; len(bs.l1Origins) > max {
		bs.l1Origins = bs.l1Origins[len(bs.l1Origins)-max:]
	}
}

func (bs *BatchStream) epochHash(epochNum uint64) (eth.BlockInfo, bool) {
	for _, o := range bs.l1Origins {
		if o.Number == epochNum {
			return o, true
		}
	}
	return eth.BlockInfo{}, false
}

// NextBatch returns the next SingularBatch, unpacking a SpanBatch over
// several calls if that's what the channel held.
func (bs *BatchStream) NextBatch(ctx context.Context) (*SingularBatch, error) {
	if len(bs.pending) > 0 {
		if bs.nextParent == nil {
			return nil, rollup.NewTemporaryError(fmt.Errorf("%w: awaiting confirmation of previous span element", rollup.ErrNotEnoughData))
		}
		el := bs.pending[0]
		epoch, ok := bs.epochHash(el.EpochNum)
		if !ok {
			return nil, rollup.NewTemporaryError(fmt.Errorf("%w: epoch %d not yet in known L1 window", rollup.ErrNotEnoughData, el.EpochNum))
		}
		bs.pending = bs.pending[1:]
		parent := bs.nextParent.Hash
		bs.nextParent = nil
		return &SingularBatch{
			ParentHash:   parent,
			EpochNum:     el.EpochNum,
			EpochHash:    epoch.Hash,
			Timestamp:    el.Timestamp,
			Transactions: el.Transactions,
			IsLastInSpan: len(bs.pending) == 0,
		}, nil
	}

	raw, err := bs.prev.NextBatch(ctx)
	if err != nil {
		return nil, err
	}
	bs.observeOrigin(bs.prev.Origin())

	batch, err := DecodeBatch(raw)
	if err != nil {
		bs.log.Warn("dropping undecodable batch", "err", err)
		return nil, rollup.NewTemporaryError(rollup.ErrNotEnoughData)
	}

	switch b := batch.(type) {
	case *SingularBatch:
		b.IsLastInSpan = true
		return b, nil
	case *SpanBatch:
		if !bs.cfg.IsDelta(raw.L1InclusionBlock.Time) {
			bs.log.Warn("dropping span batch seen before Delta activation")
			return nil, rollup.NewTemporaryError(rollup.ErrNotEnoughData)
		}
		bs.spanOrigin = raw.L1InclusionBlock
		bs.pending = b.Elements
		// The first element's parent is whatever the safe head was when the
		// span arrived; ResetSignal/ActivationSignal seeded nextParent with
		// it, and it's still valid as long as nothing has consumed it since.
		return bs.NextBatch(ctx)
	default:
		return nil, rollup.NewCriticalError(fmt.Errorf("unreachable batch type %T", batch))
	}
}

func (bs *BatchStream) Signal(ctx context.Context, signal rollup.Signal) error {
	switch sig := signal.(type) {
	case rollup.ResetSignal:
		bs.pending = nil
		bs.l1Origins = nil
		head := sig.L2SafeHead
		bs.nextParent = &head
	case rollup.ActivationSignal:
		bs.pending = nil
		bs.l1Origins = nil
		head := sig.L2SafeHead
		bs.nextParent = &head
	case rollup.ProvideBlockSignal:
		block := sig.Block
		bs.nextParent = &block
	}
	return bs.prev.Signal(ctx, signal)
}
