package derive

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/latticefold/op-derive-node/op-service/eth"
)

// ChainProvider is the L1 chain-data collaborator: block headers/info and
// receipts, used by L1Traversal to walk the chain and replay config events.
// Out of scope per spec.md §1 — implemented elsewhere (an RPC client),
// referenced here only by interface.
type ChainProvider interface {
	BlockInfoByNumber(ctx context.Context, number uint64) (eth.BlockInfo, error)
	L1BlockRefByHash(ctx context.Context, hash [32]byte) (eth.BlockInfo, error)
	ReceiptsByHash(ctx context.Context, hash [32]byte) (eth.BlockInfo, types.Receipts, error)
}

// L2ChainProvider is the L2 chain-data collaborator: block lookups and
// system-config snapshots. Within this module only the pipeline driver
// calls it, to answer system_config_by_number queries on behalf of the
// actor's reset handling.
type L2ChainProvider interface {
	L2BlockRefByNumber(ctx context.Context, number uint64) (eth.L2BlockRef, error)
	SystemConfigByNumber(ctx context.Context, number uint64) (eth.SystemConfig, error)
	PayloadTransactionsByNumber(ctx context.Context, number uint64) ([][]byte, error)
}

// DataAvailabilityProvider iterates the DA payloads (calldata or blob
// contents of batcher-sender transactions to the batch-inbox address)
// published within a single L1 block.
type DataAvailabilityProvider interface {
	// Next returns the next DA payload for origin, or a Temporary(Eof)
	// PipelineError once origin is exhausted.
	Next(ctx context.Context, origin eth.BlockInfo) ([]byte, error)
}

// AttributesBuilder computes the deposit transactions for an epoch from L1
// receipts, deriving prev_randao, fee_recipient, gas_limit, and EIP-1559
// params. AttributesQueue appends the batch's user transactions after the
// deposits it returns.
type AttributesBuilder interface {
	PreparePayloadAttributes(ctx context.Context, parent eth.L2BlockRef, epoch eth.BlockID) (*eth.PayloadAttributes, error)
}
