package derive

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/latticefold/op-derive-node/op-node/rollup"
	"github.com/latticefold/op-derive-node/op-service/eth"
)

// MaxRLPBytesPerChannel bounds a channel's post-decompression byte size;
// exceeding it terminates the channel as invalid rather than letting a
// decompression bomb exhaust memory (spec.md §4.5).
const MaxRLPBytesPerChannel = 10_000_000

const (
	zlibHeaderByte   = 0x78
	channelVersionBrotli = 0x01
)

// ChannelReader decompresses a channel's frame bytes and decodes the
// resulting stream into a sequence of raw (still type-tagged) batch
// payloads, one per NextBatch call.
type ChannelReader struct {
	log log.Logger
	cfg *rollup.Config

	prev *ChannelProvider

	decoded *rlp.Stream
	origin  eth.BlockInfo
}

func NewChannelReader(log log.Logger, cfg *rollup.Config, prev *ChannelProvider) *ChannelReader {
	return &ChannelReader{
		log:  log.New("stage", "channel-reader"),
		cfg:  cfg,
		prev: prev,
	}
}

var _ Stage = (*ChannelReader)(nil)

func (cr *ChannelReader) Origin() eth.BlockInfo {
	return cr.prev.Origin()
}

// NextBatch decodes the next RLP item from the current channel's
// decompressed stream, pulling and decompressing a new channel from
// ChannelProvider when the current one is exhausted or none is open yet.
// Decoding errors (corrupt RLP, oversized decompressed stream) discard the
// whole channel and return Temporary(ErrNotEnoughData) so the caller moves
// on to the next channel, per the protocol's never-fatal-on-bad-batch-data
// rule.
func (cr *ChannelReader) NextBatch(ctx context.Context) (RawBatch, error) {
	if cr.decoded == nil {
		if err := cr.openNextChannel(ctx); err != nil {
			return RawBatch{}, err
		}
	}

	var item []byte
	if err := cr.decoded.Decode(&item); err != nil {
		if err == io.EOF {
			cr.decoded = nil
			return RawBatch{}, rollup.NewTemporaryError(rollup.ErrNotEnoughData)
		}
		cr.log.Warn("invalid batch RLP in channel, discarding channel", "err", err)
		cr.decoded = nil
		return RawBatch{}, rollup.NewTemporaryError(rollup.ErrNotEnoughData)
	}
	if len(item) == 0 {
		return RawBatch{}, rollup.NewTemporaryError(rollup.ErrNotEnoughData)
	}
	return RawBatch{L1InclusionBlock: cr.origin, BatchType: item[0], Payload: item[1:]}, nil
}

func (cr *ChannelReader) openNextChannel(ctx context.Context) error {
	data, err := cr.prev.NextChannel(ctx)
	if err != nil {
		return err
	}
	cr.origin = cr.prev.Origin()

	decompressed, err := decompressChannel(cr.cfg, cr.origin.Time, data)
	if err != nil {
		cr.log.Warn("failed to decompress channel, discarding", "err", err)
		return rollup.NewTemporaryError(rollup.ErrNotEnoughData)
	}
	cr.decoded = rlp.NewStream(bytes.NewReader(decompressed), MaxRLPBytesPerChannel)
	return nil
}

// decompressChannel picks zlib (pre-Holocene) or brotli (Holocene+,
// version-gated by the channel's own leading byte) and enforces the
// post-decode size bound.
func decompressChannel(cfg *rollup.Config, originTime uint64, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty channel data")
	}

	var r io.Reader
	if data[0] == channelVersionBrotli && cfg.IsHolocene(originTime) {
		r = brotli.NewReader(bytes.NewReader(data[1:]))
	} else if data[0] == zlibHeaderByte {
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("invalid zlib stream: %w", err)
		}
		defer zr.Close()
		r = zr
	} else {
		return nil, fmt.Errorf("unrecognized channel compression version byte: %d", data[0])
	}

	limited := io.LimitReader(r, MaxRLPBytesPerChannel+1)
	out, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress channel: %w", err)
	}
	if len(out) > MaxRLPBytesPerChannel {
		return nil, fmt.Errorf("decompressed channel exceeds %d bytes, treating as decompression bomb", MaxRLPBytesPerChannel)
	}
	return out, nil
}

// RawBatch is a still-undecoded batch payload carrying its discriminating
// type byte, as read off a channel's RLP stream.
type RawBatch struct {
	L1InclusionBlock eth.BlockInfo
	BatchType        byte
	Payload          []byte
}

func (cr *ChannelReader) Signal(ctx context.Context, signal rollup.Signal) error {
	switch signal.(type) {
	case rollup.ResetSignal, rollup.ActivationSignal, rollup.FlushChannelSignal:
		cr.decoded = nil
	}
	return cr.prev.Signal(ctx, signal)
}
