package utils

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10}, "jpeg"},
		{"png", []byte("\x89PNG\r\n\x1a\n"), "png"},
		{"gif87", []byte("GIF87a...."), "gif"},
		{"gif89", []byte("GIF89a...."), "gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "webp"},
		{"riff not webp", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), "unknown"},
		{"tiff le", []byte("II*\x00\x08\x00\x00\x00"), "tiff"},
		{"tiff be", []byte("MM\x00*\x00\x00\x00\x08"), "tiff"},
		{"bmp", []byte("BM\x00\x00\x00\x00"), "bmp"},
		{"text", []byte("hello, world"), "unknown"},
		{"short", []byte{0xFF, 0xD8}, "unknown"},
		{"empty", nil, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.data); got != tt.want {
				t.Errorf("DetectFormat: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatFromContentType(t *testing.T) {
	cases := map[string]string{
		"image/jpg":      "jpeg",
		"image/x-ms-bmp": "bmp",
		"image/tiff":     "tiff",
		"text/plain":     "unknown",
		"":               "unknown",
	}
	for ct, want := range cases {
		if got := FormatFromContentType(ct); got != want {
			t.Errorf("FormatFromContentType(%q): got %q, want %q", ct, got, want)
		}
	}
}

func TestCeilDiv(t *testing.T) {
	tests := []struct{ n, d, want int }{
		{4000, 2, 2000},
		{4001, 2, 2001},
		{1, 8, 1},
		{17, 8, 3},
		{5, 1, 5},
		{5, 0, 5},
	}
	for _, tt := range tests {
		if got := CeilDiv(tt.n, tt.d); got != tt.want {
			t.Errorf("CeilDiv(%d, %d): got %d, want %d", tt.n, tt.d, got, tt.want)
		}
	}
}

func TestLimitedReader(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 100)

	t.Run("exactly max", func(t *testing.T) {
		lr := &LimitedReader{R: bytes.NewReader(data), Max: 100}
		got, err := io.ReadAll(lr)
		if err != nil || len(got) != 100 {
			t.Fatalf("got %d bytes, err %v", len(got), err)
		}
		if lr.N() != 100 {
			t.Errorf("N: got %d", lr.N())
		}
	})

	t.Run("over max", func(t *testing.T) {
		lr := &LimitedReader{R: bytes.NewReader(data), Max: 99}
		_, err := io.ReadAll(lr)
		if !errors.Is(err, ErrTooLarge) {
			t.Fatalf("got %v, want ErrTooLarge", err)
		}
	})

	t.Run("unlimited", func(t *testing.T) {
		lr := &LimitedReader{R: bytes.NewReader(data)}
		got, err := io.ReadAll(lr)
		if err != nil || len(got) != 100 {
			t.Fatalf("got %d bytes, err %v", len(got), err)
		}
	})
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestErrorRecorder(t *testing.T) {
	rec := &ErrorRecorder{R: bytes.NewReader([]byte("abc"))}
	if _, err := io.ReadAll(rec); err != nil {
		t.Fatal(err)
	}
	if rec.Err() != nil {
		t.Errorf("EOF must not be recorded, got %v", rec.Err())
	}

	boom := errors.New("boom")
	rec = &ErrorRecorder{R: failingReader{err: boom}}
	_, _ = rec.Read(make([]byte, 4))
	if !errors.Is(rec.Err(), boom) {
		t.Errorf("got %v, want boom", rec.Err())
	}
}

func TestContextReader(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cr := &ContextReader{Ctx: ctx, R: bytes.NewReader([]byte("abcdef"))}

	buf := make([]byte, 3)
	if n, err := cr.Read(buf); n != 3 || err != nil {
		t.Fatalf("first read: %d, %v", n, err)
	}
	cancel()
	if _, err := cr.Read(buf); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestReadAll(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 10_000)
	got, err := ReadAll(context.Background(), bytes.NewReader(data), 1024)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Error("ReadAll returned different bytes")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ReadAll(ctx, bytes.NewReader(data), 1024); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestUnwrap(t *testing.T) {
	payload := []byte("\x89PNG\r\n\x1a\n followed by the rest of a png")

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, _ = zw.Write(payload)
	_ = zw.Close()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	zs := enc.EncodeAll(payload, nil)
	_ = enc.Close()

	tests := []struct {
		name string
		in   []byte
		wrap string
	}{
		{"plain", payload, WrapNone},
		{"gzip", gz.Bytes(), WrapGzip},
		{"zstd", zs, WrapZstd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, closeFn, wrap, err := Unwrap(bufio.NewReader(bytes.NewReader(tt.in)))
			if err != nil {
				t.Fatalf("Unwrap: %v", err)
			}
			defer closeFn()
			if wrap != tt.wrap {
				t.Errorf("wrap: got %q, want %q", wrap, tt.wrap)
			}
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("payload mismatch: %q", got)
			}
		})
	}
}

func TestUnwrap_CorruptGzip(t *testing.T) {
	// Valid magic, invalid compression method.
	_, _, wrap, err := Unwrap(bufio.NewReader(bytes.NewReader([]byte{0x1f, 0x8b, 0x00, 0x00, 0x00})))
	if err == nil {
		t.Fatal("expected error")
	}
	if wrap != WrapGzip {
		t.Errorf("wrap: got %q", wrap)
	}
}
