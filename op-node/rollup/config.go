package rollup

import (
	"math/big"
)

// Config is the rollup's static protocol parameter set: genesis anchor,
// block timing, sequencing-window and channel-timeout bounds, and fork
// activation timestamps (L2 block time, matching op-node's rollup.Config).
//
// Everything here is read-only after node startup; no stage mutates it.
type Config struct {
	Genesis Genesis `json:"genesis"`

	// BlockTime is the L2 block time in seconds.
	BlockTime uint64 `json:"block_time"`

	// MaxSequencerDrift is the maximum number of seconds a batch's
	// timestamp may exceed its L1 origin's timestamp before the batch
	// must either adopt a newer origin or be empty.
	MaxSequencerDrift uint64 `json:"max_sequencer_drift"`

	// SeqWindowSize bounds how many L1 blocks after a batch's epoch the
	// batch may still be included in.
	SeqWindowSize uint64 `json:"seq_window_size"`

	// ChannelTimeout bounds how many L1 blocks a channel may stay open
	// (from its opening origin) before being discarded.
	ChannelTimeout uint64 `json:"channel_timeout"`

	L1ChainID *big.Int `json:"l1_chain_id"`
	L2ChainID *big.Int `json:"l2_chain_id"`

	// Fork activation timestamps, expressed in L2 block time. A nil
	// pointer means "not yet scheduled".
	CanyonTime   *uint64 `json:"canyon_time,omitempty"`
	DeltaTime    *uint64 `json:"delta_time,omitempty"`
	EcotoneTime  *uint64 `json:"ecotone_time,omitempty"`
	HoloceneTime *uint64 `json:"holocene_time,omitempty"`
}

func activated(forkTime *uint64, t uint64) bool {
	return forkTime != nil && t >= *forkTime
}

// IsCanyon reports whether the Canyon fork (introduces Shanghai withdrawals
// semantics) is active at L2 timestamp t.
func (c *Config) IsCanyon(t uint64) bool { return activated(c.CanyonTime, t) }

// IsDelta reports whether the Delta fork (introduces SpanBatch encoding) is
// active at L2 timestamp t.
func (c *Config) IsDelta(t uint64) bool { return activated(c.DeltaTime, t) }

// IsEcotone reports whether the Ecotone fork (blob DA, split fee scalars) is
// active at L2 timestamp t.
func (c *Config) IsEcotone(t uint64) bool { return activated(c.EcotoneTime, t) }

// IsHolocene reports whether the Holocene fork (strict batch-order rules,
// brotli channel compression, activation-signal reset) is active at L2
// timestamp t.
func (c *Config) IsHolocene(t uint64) bool { return activated(c.HoloceneTime, t) }

// IsHoloceneActivationBlock reports whether t is exactly the first L2 block
// timestamp at or after the Holocene activation time, i.e. the one block
// that must go through the activation (not plain reset) signal path.
func (c *Config) IsHoloceneActivationBlock(t uint64) bool {
	return c.HoloceneTime != nil && t >= *c.HoloceneTime && t < *c.HoloceneTime+c.BlockTime
}
