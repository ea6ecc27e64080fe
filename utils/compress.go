package utils

import (
	"bufio"
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Wrapping names returned by Unwrap.
const (
	WrapNone = ""
	WrapGzip = "gzip"
	WrapZstd = "zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// DetectWrapping reports the compression framing announced by the leading
// bytes of a source.
func DetectWrapping(peek []byte) string {
	switch {
	case bytes.HasPrefix(peek, zstdMagic):
		return WrapZstd
	case bytes.HasPrefix(peek, gzipMagic):
		return WrapGzip
	}
	return WrapNone
}

// Unwrap returns a streaming reader that removes gzip or zstd framing from
// br, or br itself when the stream is not compressed.  The returned closer
// releases decoder state and must be called once the reader is done.
func Unwrap(br *bufio.Reader) (io.Reader, func(), string, error) {
	peek, _ := br.Peek(len(zstdMagic))
	switch DetectWrapping(peek) {
	case WrapZstd:
		dec, err := zstd.NewReader(br,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
		)
		if err != nil {
			return nil, nil, WrapZstd, err
		}
		return dec, dec.Close, WrapZstd, nil
	case WrapGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, WrapGzip, err
		}
		return zr, func() { _ = zr.Close() }, WrapGzip, nil
	}
	return br, func() {}, WrapNone, nil
}
