package derive

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/latticefold/op-derive-node/op-node/rollup"
	"github.com/latticefold/op-derive-node/op-service/eth"
)

// AttributesWithParent is the pipeline's final product: execution payload
// attributes ready to hand to the engine, plus the parent block they build
// on and whether this is the last block of the span batch it came from
// (engine_forkchoiceUpdated callers use that to decide whether it's safe to
// advance the safe head without waiting for a sibling block).
type AttributesWithParent struct {
	Attributes   *eth.PayloadAttributes
	Parent       eth.L2BlockRef
	IsLastInSpan bool
}

// AttributesQueue is the outermost stage: it turns an accepted
// SingularBatch into payload attributes by asking AttributesBuilder to
// compute deposit transactions for the batch's epoch and prepend them to
// the batch's own transactions.
type AttributesQueue struct {
	log log.Logger
	cfg *rollup.Config

	prev    *BatchProvider
	builder AttributesBuilder

	safeHead *eth.L2BlockRef
	buffered *SingularBatch
}

func NewAttributesQueue(log log.Logger, cfg *rollup.Config, prev *BatchProvider, builder AttributesBuilder) *AttributesQueue {
	return &AttributesQueue{
		log:     log.New("stage", "attributes-queue"),
		cfg:     cfg,
		prev:    prev,
		builder: builder,
	}
}

var _ Stage = (*AttributesQueue)(nil)

func (aq *AttributesQueue) Origin() eth.BlockInfo {
	return aq.prev.Origin()
}

// NextAttributes returns the next block's payload attributes, or a
// Temporary PipelineError if nothing is ready yet.
func (aq *AttributesQueue) NextAttributes(ctx context.Context) (*AttributesWithParent, error) {
	if aq.safeHead == nil {
		return nil, rollup.NewTemporaryError(rollup.ErrMissingOrigin)
	}

	batch := aq.buffered
	if batch == nil {
		next, err := aq.prev.NextBatch(ctx)
		if err != nil {
			return nil, err
		}
		batch = next
	}

	if batch.ParentHash != aq.safeHead.Hash {
		return nil, rollup.NewCriticalError(fmt.Errorf("attributes queue parent mismatch: batch wants %s, safe head is %s", batch.ParentHash, aq.safeHead.Hash))
	}

	attrs, err := aq.builder.PreparePayloadAttributes(ctx, *aq.safeHead, batch.Epoch())
	if err != nil {
		aq.buffered = batch
		return nil, rollup.NewTemporaryError(fmt.Errorf("failed to prepare payload attributes: %w", err))
	}

	attrs.Transactions = append(attrs.Transactions, batch.Transactions...)
	attrs.NoTxPool = true

	aq.buffered = nil
	return &AttributesWithParent{
		Attributes:   attrs,
		Parent:       *aq.safeHead,
		IsLastInSpan: batch.IsLastInSpan,
	}, nil
}

func (aq *AttributesQueue) Signal(ctx context.Context, signal rollup.Signal) error {
	switch sig := signal.(type) {
	case rollup.ResetSignal:
		aq.buffered = nil
		head := sig.L2SafeHead
		aq.safeHead = &head
	case rollup.ActivationSignal:
		aq.buffered = nil
		head := sig.L2SafeHead
		aq.safeHead = &head
	case rollup.ProvideBlockSignal:
		block := sig.Block
		aq.safeHead = &block
	}
	return aq.prev.Signal(ctx, signal)
}
