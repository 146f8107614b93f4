package codec

import (
	"bytes"

	"github.com/klauspost/compress/zstd"

	"github.com/stratum-mods/stratum/pkg/errors"
)

// zstd magic, little-endian 0xFD2FB528.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// IsCompressed reports whether data begins with the zstd frame magic.
func IsCompressed(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], zstdMagic)
}

// Compress returns the zstd-compressed form of data.
func Compress(data []byte) []byte {
	return zstdEncoder.EncodeAll(data, nil)
}

// Decompress inflates a zstd frame.
func Decompress(data []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrContainerCorrupt, "corrupt compressed payload")
	}
	return out, nil
}

// DecompressIf inflates data when it carries the zstd magic and returns it
// untouched otherwise. The second result reports whether inflation
// happened.
func DecompressIf(data []byte) ([]byte, bool, error) {
	if !IsCompressed(data) {
		return data, false, nil
	}
	out, err := Decompress(data)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
