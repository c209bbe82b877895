package payload

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ErrDecompress is returned when a payload flagged as compressed cannot be
// decoded. Callers should treat the entry as missing.
var ErrDecompress = errors.New("payload: failed to decompress")

// DefaultThreshold is the payload size in bytes above which compression is
// worth attempting. Small payloads rarely shrink and cost CPU on reads.
const DefaultThreshold = 1024

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
)

// initCodec builds the shared encoder/decoder pair once. If either fails
// to initialize, compression is disabled and payloads pass through as-is.
func initCodec() {
	codecOnce.Do(func() {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			enc.Close()
			return
		}
		encoder = enc
		decoder = dec
	})
}

// Compress compresses data with zstd. The boolean reports whether the
// returned bytes are actually compressed: it is false when the codec is
// unavailable or when compression does not shrink the input, in which case
// the input is returned unchanged.
func Compress(data []byte) ([]byte, bool) {
	initCodec()
	if encoder == nil || len(data) == 0 {
		return data, false
	}

	compressed := encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
	if len(compressed) >= len(data) {
		return data, false
	}
	return compressed, true
}

// Decompress reverses Compress for payloads stored with a true compressed
// flag. On failure it returns ErrDecompress so the caller can degrade to
// miss semantics.
func Decompress(data []byte) ([]byte, error) {
	initCodec()
	if decoder == nil {
		return data, ErrDecompress
	}

	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return data, errors.Join(ErrDecompress, err)
	}
	return out, nil
}

// EstimateSize returns the approximate serialized size of v in bytes.
// Byte slices and strings are measured directly; everything else is
// JSON-encoded. Unencodable values report zero.
func EstimateSize(v any) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case []byte:
		return int64(len(val))
	case json.RawMessage:
		return int64(len(val))
	case string:
		return int64(len(val))
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return 0
		}
		return int64(len(data))
	}
}
