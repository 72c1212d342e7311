package rollup

import (
	"github.com/latticefold/op-derive-node/op-service/eth"
)

// Genesis records the rollup's anchor: the L1 block the rollup deploys
// from, and the corresponding first L2 block. The pipeline and actor in
// this module do not read it; a reset to genesis goes through the same
// ResetSignal path as any other reset.
type Genesis struct {
	L1 eth.BlockID `json:"l1"`
	L2 eth.BlockID `json:"l2"`

	// L2Time is the L2 genesis block's timestamp. The Is<Fork> checks
	// compare against the fork times directly and do not use it.
	L2Time uint64 `json:"l2_time"`

	SystemConfig eth.SystemConfig `json:"system_config"`
}
