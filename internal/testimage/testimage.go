// Package testimage builds encoded fixture images for tests.
package testimage

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Gradient returns a w×h opaque RGBA image with a diagonal gradient.
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / max(w, 1)),
				G: uint8(y * 255 / max(h, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// JPEG encodes a w×h gradient as JPEG.
func JPEG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Gradient(w, h), &jpeg.Options{Quality: 90}); err != nil {
		tb.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

// GrayJPEG encodes a w×h single-channel JPEG.
func GrayJPEG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		tb.Fatalf("encode test gray jpeg: %v", err)
	}
	return buf.Bytes()
}

// PNG encodes a w×h gradient as PNG.
func PNG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Gradient(w, h)); err != nil {
		tb.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

// GIF encodes a w×h gradient as a single-frame GIF.
func GIF(tb testing.TB, w, h int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, Gradient(w, h), nil); err != nil {
		tb.Fatalf("encode test gif: %v", err)
	}
	return buf.Bytes()
}

// BMP encodes a w×h gradient as BMP.
func BMP(tb testing.TB, w, h int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, Gradient(w, h)); err != nil {
		tb.Fatalf("encode test bmp: %v", err)
	}
	return buf.Bytes()
}

// TIFF encodes a w×h gradient as TIFF.
func TIFF(tb testing.TB, w, h int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, Gradient(w, h), nil); err != nil {
		tb.Fatalf("encode test tiff: %v", err)
	}
	return buf.Bytes()
}

// Truncated returns the first half of data.
func Truncated(data []byte) []byte {
	return append([]byte(nil), data[:len(data)/2]...)
}

// Gzip wraps data in gzip framing.
func Gzip(tb testing.TB, data []byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		tb.Fatalf("gzip: %v", err)
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// Zstd wraps data in zstd framing.
func Zstd(tb testing.TB, data []byte) []byte {
	tb.Helper()
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		tb.Fatalf("zstd: %v", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}
