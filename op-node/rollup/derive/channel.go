package derive

import (
	"bytes"

	"github.com/latticefold/op-derive-node/op-service/eth"
)

// PartialChannel accumulates frames for a single channel ID until every
// frame from 0 up to the one marked IsLast is present, at which point it
// can be merged into a contiguous byte stream (spec.md §3's Channel
// invariant).
type PartialChannel struct {
	id             ChannelID
	openedAtOrigin eth.BlockInfo

	framesByNumber map[uint16]Frame
	lastFrameNum   uint16
	sawLast        bool

	size uint64
}

func newPartialChannel(id ChannelID, openedAt eth.BlockInfo) *PartialChannel {
	return &PartialChannel{
		id:             id,
		openedAtOrigin: openedAt,
		framesByNumber: make(map[uint16]Frame),
	}
}

// AddFrame inserts a frame, ignoring duplicates (spec.md invariant 2).
// Returns false if the frame contradicts an already-seen IsLast frame
// (e.g. a higher frame number arriving after the declared last frame).
func (c *PartialChannel) AddFrame(f Frame) bool {
	if _, dup := c.framesByNumber[f.FrameNumber]; dup {
		return true
	}
	if c.sawLast && f.FrameNumber > c.lastFrameNum {
		return false
	}
	if f.IsLast {
		if c.sawLast && f.FrameNumber != c.lastFrameNum {
			return false
		}
		c.sawLast = true
		c.lastFrameNum = f.FrameNumber
	}
	c.framesByNumber[f.FrameNumber] = f
	c.size += f.frameSize()
	return true
}

// IsReady reports whether every frame from 0..=lastFrameNum has arrived.
func (c *PartialChannel) IsReady() bool {
	if !c.sawLast {
		return false
	}
	for i := uint16(0); i <= c.lastFrameNum; i++ {
		if _, ok := c.framesByNumber[i]; !ok {
			return false
		}
	}
	return true
}

// Size is the total buffered byte count, used by ChannelProvider's
// byte-budget eviction.
func (c *PartialChannel) Size() uint64 { return c.size }

// OpenedAt is the L1 origin the channel was first seen at, used for both
// timeout and oldest-first eviction.
func (c *PartialChannel) OpenedAt() eth.BlockInfo { return c.openedAtOrigin }

// Assemble concatenates frame 0..=last into the channel's raw byte stream.
// Only valid once IsReady returns true.
func (c *PartialChannel) Assemble() []byte {
	var buf bytes.Buffer
	for i := uint16(0); i <= c.lastFrameNum; i++ {
		buf.Write(c.framesByNumber[i].Data)
	}
	return buf.Bytes()
}
