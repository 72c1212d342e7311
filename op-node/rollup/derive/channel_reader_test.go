package derive

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"

	"github.com/latticefold/op-derive-node/op-node/rollup"
)

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func brotliCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecompressChannelZlib(t *testing.T) {
	payload := []byte("some rlp-encoded batch stream")
	data := zlibCompress(t, payload)

	cfg := testConfig()
	got, err := decompressChannel(cfg, 0, data)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestDecompressChannelBrotliRequiresHolocene(t *testing.T) {
	payload := []byte("brotli payload")
	compressed := brotliCompress(t, payload)
	data := append([]byte{channelVersionBrotli}, compressed...)

	cfg := testConfig() // no HoloceneTime set
	_, err := decompressChannel(cfg, 0, data)
	require.Error(t, err, "brotli must be rejected before Holocene activates")

	holoceneTime := uint64(0)
	cfg.HoloceneTime = &holoceneTime
	got, err := decompressChannel(cfg, 100, data)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestDecompressChannelRejectsUnrecognizedVersion(t *testing.T) {
	_, err := decompressChannel(testConfig(), 0, []byte{0xff, 0x01, 0x02})
	require.Error(t, err)
}

func TestDecompressChannelRejectsEmpty(t *testing.T) {
	_, err := decompressChannel(testConfig(), 0, nil)
	require.Error(t, err)
}

func TestDecompressChannelRejectsOversizedStream(t *testing.T) {
	payload := make([]byte, MaxRLPBytesPerChannel+1)
	data := zlibCompress(t, payload)
	_, err := decompressChannel(testConfig(), 0, data)
	require.Error(t, err)
}

func TestChannelReaderNextBatchDecodesRLPItems(t *testing.T) {
	item1 := append([]byte{byte(SingularBatchType)}, []byte("one")...)
	item2 := append([]byte{byte(SingularBatchType)}, []byte("two")...)
	var buf bytes.Buffer
	require.NoError(t, rlp.Encode(&buf, item1))
	require.NoError(t, rlp.Encode(&buf, item2))

	cr := &ChannelReader{
		cfg:     testConfig(),
		decoded: rlp.NewStream(bytes.NewReader(buf.Bytes()), MaxRLPBytesPerChannel),
	}

	got, err := cr.NextBatch(nil)
	require.NoError(t, err)
	require.Equal(t, byte(SingularBatchType), got.BatchType)
	require.Equal(t, []byte("one"), got.Payload)

	got, err = cr.NextBatch(nil)
	require.NoError(t, err)
	require.Equal(t, []byte("two"), got.Payload)

	_, err = cr.NextBatch(nil)
	require.Error(t, err)
	pe, ok := rollup.AsPipelineError(err)
	require.True(t, ok)
	require.Equal(t, rollup.KindTemporary, pe.Kind())
}
