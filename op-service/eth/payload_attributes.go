package eth

import (
	"github.com/ethereum/go-ethereum/core/types"
)

// Withdrawals is the execution-payload withdrawals list. Always empty for
// OP-stack payload attributes (no validator withdrawals on L2) but carried
// through for engine API compatibility.
type Withdrawals = types.Withdrawals

// PayloadAttributes is the execution engine's `engine_forkchoiceUpdated`
// payload attributes, as produced by AttributesQueue. Field names mirror
// the engine API JSON-RPC structure.
type PayloadAttributes struct {
	Timestamp             uint64             `json:"timestamp"`
	PrevRandao             Bytes32            `json:"prevRandao"`
	SuggestedFeeRecipient  [20]byte           `json:"suggestedFeeRecipient"`
	Withdrawals            *Withdrawals       `json:"withdrawals,omitempty"`
	ParentBeaconBlockRoot  *[32]byte          `json:"parentBeaconBlockRoot,omitempty"`

	// Transactions is the op-stack extension: pre-sequenced transactions to
	// force into the block (deposits, and if NoTxPool is set, the batch's
	// user transactions too). Each entry is an opaque RLP-encoded tx.
	Transactions []hexBytes `json:"transactions,omitempty"`

	// GasLimit is the op-stack extension carrying the system-config gas
	// limit through to the engine.
	GasLimit *Uint64Quantity `json:"gasLimit,omitempty"`

	// NoTxPool, if true, instructs the engine to build the block using only
	// the Transactions list, not its local mempool. Always true for
	// derivation-produced attributes (as opposed to sequencer-produced
	// ones), since a safe block must be byte-exact.
	NoTxPool bool `json:"noTxPool,omitempty"`

	// EIP1559Params is the Holocene+ extension carrying the block's packed
	// EIP-1559 denominator/elasticity override, nil pre-Holocene.
	EIP1559Params *Bytes32 `json:"eip1559Params,omitempty"`
}

// hexBytes is a byte slice alias kept local to avoid importing an RLP
// dependency into the attributes type itself; stages populate this with
// already-RLP-encoded transactions.
type hexBytes = []byte
