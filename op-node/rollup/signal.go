package rollup

import (
	"fmt"

	"github.com/latticefold/op-derive-node/op-service/eth"
)

// Signal is a control message fanned out to every stage that buffers
// state. Matches spec.md §3's Signal variants, plus the ProvideL1Traversal
// supplement described in SPEC_FULL.md.
type Signal interface {
	fmt.Stringer
	isSignal()
}

// ResetSignal instructs every stage to discard its buffers and resume
// derivation from the given safe head / L1 origin / system config.
type ResetSignal struct {
	L2SafeHead   eth.L2BlockRef
	L1Origin     eth.BlockInfo
	SystemConfig eth.SystemConfig
}

func (ResetSignal) isSignal() {}
func (s ResetSignal) String() string {
	return fmt.Sprintf("reset(l2=%s, l1=%s)", s.L2SafeHead, s.L1Origin)
}

// ActivationSignal is a ResetSignal variant issued specifically for fork
// activation (e.g. Holocene): it carries the same payload but stages may
// react differently (e.g. switching decode rules rather than merely
// clearing buffers).
type ActivationSignal struct {
	L2SafeHead   eth.L2BlockRef
	L1Origin     eth.BlockInfo
	SystemConfig eth.SystemConfig
}

func (ActivationSignal) isSignal() {}
func (s ActivationSignal) String() string {
	return fmt.Sprintf("activation(l2=%s, l1=%s)", s.L2SafeHead, s.L1Origin)
}

// FlushChannelSignal is sent in response to the engine rejecting
// attributes as INVALID. Only ChannelReader acts on it: it drops the rest of
// the channel it is currently decoding. Batches already buffered in
// BatchStream, BatchProvider or AttributesQueue are kept.
type FlushChannelSignal struct{}

func (FlushChannelSignal) isSignal()        {}
func (FlushChannelSignal) String() string   { return "flush-channel" }

// ProvideBlockSignal feeds the current L2 safe head back into the pipeline:
// AttributesQueue and BatchProvider take it as their safe head, and
// BatchStream uses its hash as the parent of the next unpacked SpanBatch
// element.
type ProvideBlockSignal struct {
	Block eth.L2BlockRef
}

func (ProvideBlockSignal) isSignal() {}
func (s ProvideBlockSignal) String() string {
	return fmt.Sprintf("provide-block(%s)", s.Block)
}

// ProvideL1Signal hands the pipeline its next L1 block directly, bypassing
// ChainProvider.BlockInfoByNumber. See SPEC_FULL.md's supplemented
// features section.
type ProvideL1Signal struct {
	NextL1 eth.BlockInfo
}

func (ProvideL1Signal) isSignal() {}
func (s ProvideL1Signal) String() string {
	return fmt.Sprintf("provide-l1(%s)", s.NextL1)
}
