package virtfs

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// decompress removes gzip or zstd framing from an archive, detecting the
// compression format from the leading bytes. The result is always a fresh
// copy owned by the caller.
func decompress(archive []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(archive, gzipMagic):
		r, err := gzip.NewReader(bytes.NewReader(archive))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return data, nil

	case bytes.HasPrefix(archive, zstdMagic):
		r, err := zstd.NewReader(bytes.NewReader(archive),
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
		)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return data, nil

	default:
		return append([]byte(nil), archive...), nil
	}
}
