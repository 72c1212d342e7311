package derive

import (
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/latticefold/op-derive-node/op-node/rollup"
	"github.com/latticefold/op-derive-node/op-service/eth"
)

// BatchValidity is the outcome of checking a batch against the current
// safe head and the L1 blocks surrounding its claimed epoch. Matches
// spec.md §4.7's validity table.
type BatchValidity uint8

const (
	// BatchDrop: the batch is invalid and will always be invalid (short of
	// an L1 reorg); discard it.
	BatchDrop BatchValidity = iota
	// BatchAccept: the batch is valid and should be applied.
	BatchAccept
	// BatchUndecided: not enough L1 information yet to decide; try again
	// once more L1 blocks are known.
	BatchUndecided
	// BatchFuture: the batch is for a later slot than the one currently
	// expected; hold it until the safe head catches up.
	BatchFuture
)

// BatchWithInclusion pairs a decoded batch with the L1 block its channel
// was included in, needed for the sequencing-window check.
type BatchWithInclusion struct {
	L1InclusionBlock eth.BlockInfo
	Batch            Batch
}

// CheckBatch validates batch against l2SafeHead and the L1 blocks spanning
// its epoch (l1Blocks[0] must be the safe head's current L1 origin).
// Grounded directly on the real op-node `CheckBatch`/`checkSingularBatch`
// validity rules (the NMT/Espresso-specific justification checks are not
// carried forward — see DESIGN.md).
func CheckBatch(cfg *rollup.Config, log log.Logger, l1Blocks []eth.BlockInfo, l2SafeHead eth.L2BlockRef, batch BatchWithInclusion) BatchValidity {
	switch b := batch.Batch.(type) {
	case *SingularBatch:
		return checkSingularBatch(cfg, log, l1Blocks, l2SafeHead, b, batch.L1InclusionBlock)
	case *SpanBatch:
		return checkSpanBatchHead(cfg, log, l1Blocks, l2SafeHead, b, batch.L1InclusionBlock)
	default:
		log.Warn("unrecognized batch implementation")
		return BatchDrop
	}
}

func checkSingularBatch(cfg *rollup.Config, lg log.Logger, l1Blocks []eth.BlockInfo, l2SafeHead eth.L2BlockRef, batch *SingularBatch, l1InclusionBlock eth.BlockInfo) BatchValidity {
	lg = lg.New("batch_epoch", batch.EpochNum, "batch_timestamp", batch.Timestamp)

	if len(l1Blocks) == 0 {
		lg.Warn("missing L1 block input, cannot proceed with batch checking")
		return BatchUndecided
	}
	epoch := l1Blocks[0]

	nextTimestamp := l2SafeHead.Time + cfg.BlockTime
	if batch.Timestamp > nextTimestamp {
		lg.Trace("batch timestamp is in the future", "next_timestamp", nextTimestamp)
		return BatchFuture
	}
	if batch.Timestamp < nextTimestamp {
		lg.Warn("dropping batch with old timestamp", "min_timestamp", nextTimestamp)
		return BatchDrop
	}

	if batch.ParentHash != l2SafeHead.Hash {
		lg.Warn("ignoring batch with mismatching parent hash", "current_safe_head", l2SafeHead.Hash)
		return BatchDrop
	}

	if batch.EpochNum+cfg.SeqWindowSize < l1InclusionBlock.Number {
		lg.Warn("batch was included too late, sequencing window expired")
		return BatchDrop
	}

	batchOrigin := epoch
	switch {
	case batch.EpochNum < epoch.Number:
		lg.Warn("batch epoch is too old", "minimum", epoch.ID())
		return BatchDrop
	case batch.EpochNum == epoch.Number:
		// Batch sticks to the current epoch.
	case batch.EpochNum == epoch.Number+1:
		if len(l1Blocks) < 2 {
			lg.Info("batch wants to advance epoch, need another L1 block to decide")
			return BatchUndecided
		}
		batchOrigin = l1Blocks[1]
	default:
		lg.Warn("batch is for a future epoch too far ahead", "current_epoch", epoch.ID())
		return BatchDrop
	}

	if batch.EpochHash != batchOrigin.Hash {
		lg.Warn("batch epoch hash does not match canonical L1 chain", "expected", batchOrigin.ID())
		return BatchDrop
	}

	if batch.Timestamp < batchOrigin.Time {
		lg.Warn("batch timestamp precedes its L1 origin timestamp")
		return BatchDrop
	}

	if max := batchOrigin.Time + cfg.MaxSequencerDrift; batch.Timestamp > max {
		if len(batch.Transactions) != 0 {
			lg.Warn("batch exceeded sequencer time drift while carrying transactions")
			return BatchDrop
		}
		if epoch.Number == batchOrigin.Number {
			if len(l1Blocks) < 2 {
				lg.Info("cannot decide if empty batch beyond drift is still valid without next L1 origin")
				return BatchUndecided
			}
			nextOrigin := l1Blocks[1]
			if batch.Timestamp >= nextOrigin.Time {
				lg.Info("batch exceeded drift without adopting an origin that was available")
				return BatchDrop
			}
		}
	}

	for i, tx := range batch.Transactions {
		if len(tx) == 0 {
			lg.Warn("empty transaction in batch", "tx_index", i)
			return BatchDrop
		}
		if tx[0] == types.DepositTxType {
			lg.Warn("sequencer batch must not contain deposit transactions", "tx_index", i)
			return BatchDrop
		}
	}

	return BatchAccept
}

// checkSpanBatchHead validates only what can be decided before the span is
// unpacked into SingularBatches: the parent check prefix, the first/last
// block timestamps, the start epoch range, and the sequencing-window
// deadline on its first block. The L1 origin check prefix is not compared
// here. Per-block timestamp/epoch
// drift and deposit-tx checks run again on each unpacked SingularBatch as
// it flows through BatchProvider, so there's no duplication of logic to
// keep in sync.
func checkSpanBatchHead(cfg *rollup.Config, lg log.Logger, l1Blocks []eth.BlockInfo, l2SafeHead eth.L2BlockRef, batch *SpanBatch, l1InclusionBlock eth.BlockInfo) BatchValidity {
	if len(l1Blocks) == 0 {
		return BatchUndecided
	}
	epoch := l1Blocks[0]

	nextTimestamp := l2SafeHead.Time + cfg.BlockTime
	if batch.GetTimestamp() > nextTimestamp {
		lg.Trace("span batch starts in the future", "next_timestamp", nextTimestamp)
		return BatchFuture
	}
	if batch.GetBlockTimestamp(batch.GetBlockCount()-1) < nextTimestamp {
		lg.Warn("span batch has no new blocks after the safe head")
		return BatchDrop
	}
	if !batch.CheckParentHash(l2SafeHead.Hash) {
		lg.Warn("span batch parent-check does not match safe head")
		return BatchDrop
	}
	if batch.GetStartEpochNum()+cfg.SeqWindowSize < l1InclusionBlock.Number {
		lg.Warn("span batch was included too late, sequencing window expired")
		return BatchDrop
	}
	if batch.GetStartEpochNum() < epoch.Number {
		lg.Warn("span batch epoch is too old", "minimum", epoch.ID())
		return BatchDrop
	}
	if batch.GetStartEpochNum() > epoch.Number+1 {
		lg.Warn("span batch is for a future epoch too far ahead", "current_epoch", epoch.ID())
		return BatchDrop
	}
	return BatchAccept
}
