package derive

import (
	"context"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/exp/slices"

	"github.com/latticefold/op-derive-node/op-node/rollup"
	"github.com/latticefold/op-derive-node/op-service/eth"
	"github.com/latticefold/op-derive-node/op-service/metrics"
)

// DefaultMaxChannelBankSize bounds ChannelProvider's total buffered frame
// bytes across all open channels, matching the protocol's channel-bank
// byte budget.
const DefaultMaxChannelBankSize = 100_000_000

// ChannelProvider ("channel bank") assembles frames pulled from FrameQueue
// into channels, evicting the oldest channel when the byte budget is
// exceeded and dropping channels that have timed out relative to the
// current L1 origin. Implements spec.md §4.4.
type ChannelProvider struct {
	log     log.Logger
	cfg     *rollup.Config
	metrics metrics.DerivationMetricer

	prev *FrameQueue

	// order tracks channel IDs in first-seen order, so eviction can always
	// drop channels[order[0]] (oldest by opening origin).
	order    []ChannelID
	channels map[ChannelID]*PartialChannel

	maxSize uint64
}

func NewChannelProvider(log log.Logger, cfg *rollup.Config, prev *FrameQueue) *ChannelProvider {
	return &ChannelProvider{
		log:      log.New("stage", "channel-provider"),
		cfg:      cfg,
		metrics:  metrics.NoopMetrics{},
		prev:     prev,
		channels: make(map[ChannelID]*PartialChannel),
		maxSize:  DefaultMaxChannelBankSize,
	}
}

// WithMetrics swaps in a non-noop DerivationMetricer; returns cp for
// chaining at construction time.
func (cp *ChannelProvider) WithMetrics(m metrics.DerivationMetricer) *ChannelProvider {
	cp.metrics = m
	return cp
}

var _ Stage = (*ChannelProvider)(nil)

func (cp *ChannelProvider) Origin() eth.BlockInfo {
	return cp.prev.Origin()
}

// NextChannel pulls frames until a channel is ready to be emitted (every
// frame 0..=last present), evicting/timing out channels along the way.
func (cp *ChannelProvider) NextChannel(ctx context.Context) ([]byte, error) {
	for {
		cp.pruneTimedOut()

		if id, ok := cp.readyChannel(); ok {
			data := cp.channels[id].Assemble()
			cp.remove(id)
			return data, nil
		}

		f, err := cp.prev.NextFrame(ctx)
		if err != nil {
			return nil, err
		}
		cp.ingest(f)
	}
}

func (cp *ChannelProvider) ingest(f Frame) {
	ch, ok := cp.channels[f.ID]
	if !ok {
		ch = newPartialChannel(f.ID, cp.Origin())
		cp.channels[f.ID] = ch
		cp.order = append(cp.order, f.ID)
	}
	if !ch.AddFrame(f) {
		cp.log.Warn("dropping inconsistent frame", "channel", f.ID, "frame", f.FrameNumber)
		return
	}
	cp.evictIfOverBudget()
}

func (cp *ChannelProvider) readyChannel() (ChannelID, bool) {
	for _, id := range cp.order {
		if cp.channels[id].IsReady() {
			return id, true
		}
	}
	return ChannelID{}, false
}

// pruneTimedOut drops channels whose opening origin plus the configured
// channel timeout has fallen behind the current origin (spec.md §4.4).
func (cp *ChannelProvider) pruneTimedOut() {
	origin := cp.Origin()
	if origin == (eth.BlockInfo{}) {
		return
	}
	for _, id := range slices.Clone(cp.order) {
		ch := cp.channels[id]
		if ch.OpenedAt().Number+cp.cfg.ChannelTimeout < origin.Number {
			cp.log.Info("channel timed out", "channel", id, "openedAt", ch.OpenedAt().ID())
			cp.metrics.RecordChannelTimeout()
			cp.remove(id)
		}
	}
}

// evictIfOverBudget drops the oldest channel(s) until total buffered bytes
// fit within the configured cap (spec.md §4.4).
func (cp *ChannelProvider) evictIfOverBudget() {
	for cp.totalSize() > cp.maxSize && len(cp.order) > 0 {
		oldest := cp.order[0]
		cp.log.Warn("evicting oldest channel, over byte budget", "channel", oldest)
		cp.remove(oldest)
	}
}

func (cp *ChannelProvider) totalSize() uint64 {
	var total uint64
	for _, ch := range cp.channels {
		total += ch.Size()
	}
	return total
}

func (cp *ChannelProvider) remove(id ChannelID) {
	delete(cp.channels, id)
	if idx := slices.Index(cp.order, id); idx >= 0 {
		cp.order = slices.Delete(cp.order, idx, idx+1)
	}
}

// Signal resets the channel bank on Reset/Activation. FlushChannelSignal's
// real effect lives downstream in ChannelReader (the channel this bank
// already emitted is long gone from channels/order by the time a flush
// can be requested for it); this stage only needs to forward it.
func (cp *ChannelProvider) Signal(ctx context.Context, signal rollup.Signal) error {
	switch signal.(type) {
	case rollup.ResetSignal, rollup.ActivationSignal:
		cp.channels = make(map[ChannelID]*PartialChannel)
		cp.order = nil
	}
	return cp.prev.Signal(ctx, signal)
}
