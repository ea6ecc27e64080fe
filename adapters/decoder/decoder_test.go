package decoder

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/Skryldev/bitmap-decoder/core"
	apperrors "github.com/Skryldev/bitmap-decoder/errors"
	"github.com/Skryldev/bitmap-decoder/internal/testimage"
	"github.com/Skryldev/bitmap-decoder/utils"
)

type fixture struct {
	name  string
	codec core.Codec
	data  func(testing.TB, int, int) []byte
}

func fixtures() []fixture {
	return []fixture{
		{"jpeg", NewJPEG(0), testimage.JPEG},
		{"gray-jpeg", NewJPEG(0), testimage.GrayJPEG},
		{"png", NewPNG(), testimage.PNG},
		{"gif", NewGIF(), testimage.GIF},
		{"bmp", NewBMP(), testimage.BMP},
		{"tiff", NewTIFF(), testimage.TIFF},
	}
}

func TestCodecs_Probe(t *testing.T) {
	for _, fx := range fixtures() {
		t.Run(fx.name, func(t *testing.T) {
			dims, err := fx.codec.Probe(context.Background(), bytes.NewReader(fx.data(t, 123, 45)))
			if err != nil {
				t.Fatalf("Probe: %v", err)
			}
			if dims != (core.Dimensions{Width: 123, Height: 45}) {
				t.Errorf("got %+v", dims)
			}
		})
	}
}

func TestCodecs_Decode(t *testing.T) {
	const w, h = 200, 130
	for _, fx := range fixtures() {
		raw := fx.data(t, w, h)
		for _, f := range []core.SampleFactor{1, 2, 4, 8, 16, 32} {
			want := f.Scale(core.Dimensions{Width: w, Height: h})
			t.Run(fx.name, func(t *testing.T) {
				img, err := fx.codec.Decode(context.Background(), bytes.NewReader(raw), f)
				if err != nil {
					t.Fatalf("factor %d: %v", f, err)
				}
				if img.Width > want.Width || img.Height > want.Height || img.Width < 1 || img.Height < 1 {
					t.Errorf("factor %d: got %dx%d, want at most %dx%d", f, img.Width, img.Height, want.Width, want.Height)
				}
				if img.Intrinsic != (core.Dimensions{Width: w, Height: h}) {
					t.Errorf("factor %d: intrinsic %+v", f, img.Intrinsic)
				}
				if len(img.Pix) < img.Stride*img.Height {
					t.Errorf("factor %d: pix %d < stride %d * height %d", f, len(img.Pix), img.Stride, img.Height)
				}
			})
		}
	}
}

func TestCodecs_DecodeExactSize(t *testing.T) {
	// Codecs that aggregate produce exactly ceil(n/factor) per axis.
	raw := testimage.PNG(t, 97, 33)
	img, err := NewPNG().Decode(context.Background(), bytes.NewReader(raw), 8)
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 13 || img.Height != 5 {
		t.Errorf("got %dx%d, want 13x5", img.Width, img.Height)
	}
}

func TestCodecs_Garbage(t *testing.T) {
	garbage := []byte("definitely not pixels, not even close to a header")
	codecs := append(fixtures(), fixture{name: "webp", codec: NewWebP()})
	for _, fx := range codecs {
		t.Run(fx.name, func(t *testing.T) {
			_, err := fx.codec.Probe(context.Background(), bytes.NewReader(garbage))
			if !errors.Is(err, apperrors.ErrUnrecognizedFormat) {
				t.Errorf("Probe: got %v, want ErrUnrecognizedFormat", err)
			}
			_, err = fx.codec.Decode(context.Background(), bytes.NewReader(garbage), 1)
			if !errors.Is(err, apperrors.ErrDecodeFailed) {
				t.Errorf("Decode: got %v, want ErrDecodeFailed", err)
			}
		})
	}
}

func TestJPEG_Truncated(t *testing.T) {
	for name, raw := range map[string][]byte{
		"rgb":  testimage.JPEG(t, 256, 256),
		"gray": testimage.GrayJPEG(t, 256, 256),
	} {
		for _, keep := range []int{2, 4} {
			cut := raw[:len(raw)-len(raw)/keep]
			_, err := NewJPEG(0).Decode(context.Background(), bytes.NewReader(cut), 4)
			if !errors.Is(err, apperrors.ErrDecodeFailed) || !errors.Is(err, io.ErrUnexpectedEOF) {
				t.Errorf("%s cut to %d/%d bytes: got %v, want unexpected EOF as DecodeFailed", name, len(cut), len(raw), err)
			}
		}
	}
}

func TestJPEG_ByteLimit(t *testing.T) {
	raw := testimage.JPEG(t, 128, 128)
	r := &utils.LimitedReader{R: bytes.NewReader(raw), Max: int64(len(raw) - 10)}
	_, err := NewJPEG(0).Decode(context.Background(), r, 1)
	if !errors.Is(err, utils.ErrTooLarge) || !errors.Is(err, apperrors.ErrDecodeFailed) {
		t.Fatalf("got %v, want ErrTooLarge as DecodeFailed", err)
	}
	if errors.Is(err, apperrors.ErrSourceUnreadable) {
		t.Errorf("byte limit reported as unreadable source: %v", err)
	}
}

func TestCompleteJPEG(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"eoi", []byte{0xFF, 0xD8, 0x01, 0xFF, 0xD9}, true},
		{"zero padding", []byte{0xFF, 0xD8, 0xFF, 0xD9, 0x00, 0x00}, true},
		{"ff padding", []byte{0xFF, 0xD8, 0xFF, 0xD9, 0xFF}, true},
		{"no eoi", []byte{0xFF, 0xD8, 0x12, 0x34}, false},
		{"lone d9", []byte{0xFF, 0xD8, 0x00, 0xD9}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		if got := CompleteJPEG(tt.data); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
	if !CompleteJPEG(testimage.JPEG(t, 16, 16)) {
		t.Error("encoder output has no EOI")
	}
}

func TestRegisterDefaults_ChunkSize(t *testing.T) {
	reg := core.NewRegistry()
	RegisterDefaults(reg, 4096)
	c, ok := reg.CodecFor(core.FormatJPEG)
	if !ok {
		t.Fatal("no jpeg codec")
	}
	if j, ok := c.(*JPEG); !ok || j.ChunkSize != 4096 {
		t.Errorf("jpeg codec: %#v", c)
	}
	if NewJPEG(-1).ChunkSize != 32*1024 {
		t.Error("non-positive chunk size must fall back to 32 KiB")
	}
}

func TestCodecs_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, fx := range fixtures() {
		_, err := fx.codec.Decode(ctx, bytes.NewReader(fx.data(t, 8, 8)), 1)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("%s: got %v, want context.Canceled", fx.name, err)
		}
	}
}

func TestCanDecode(t *testing.T) {
	tests := []struct {
		codec core.Codec
		want  core.Format
	}{
		{NewJPEG(0), core.FormatJPEG},
		{NewPNG(), core.FormatPNG},
		{NewGIF(), core.FormatGIF},
		{NewWebP(), core.FormatWebP},
		{NewBMP(), core.FormatBMP},
		{NewTIFF(), core.FormatTIFF},
	}
	for _, tt := range tests {
		if !tt.codec.CanDecode(tt.want) {
			t.Errorf("%T: CanDecode(%s) = false", tt.codec, tt.want)
		}
		if tt.codec.CanDecode(core.FormatUnknown) {
			t.Errorf("%T: CanDecode(unknown) = true", tt.codec)
		}
	}
}

func TestSplitFactor(t *testing.T) {
	tests := []struct{ factor, denom, rest int }{
		{1, 1, 1},
		{2, 2, 1},
		{8, 8, 1},
		{16, 8, 2},
		{64, 8, 8},
	}
	for _, tt := range tests {
		d, r := splitFactor(tt.factor)
		if d != tt.denom || r != tt.rest {
			t.Errorf("splitFactor(%d) = (%d, %d), want (%d, %d)", tt.factor, d, r, tt.denom, tt.rest)
		}
		if d*r != tt.factor {
			t.Errorf("splitFactor(%d): %d*%d does not multiply back", tt.factor, d, r)
		}
	}
}

func TestNewRaster(t *testing.T) {
	t.Run("adopts rgba", func(t *testing.T) {
		src := image.NewRGBA(image.Rect(0, 0, 4, 3))
		out := NewRaster(src)
		if &out.Pix[0] != &src.Pix[0] || out.PixelFormat != core.PixelRGBA8888 {
			t.Error("RGBA buffer was not adopted")
		}
	})
	t.Run("converts ycbcr", func(t *testing.T) {
		src := image.NewYCbCr(image.Rect(0, 0, 5, 5), image.YCbCrSubsampleRatio420)
		out := NewRaster(src)
		if out.PixelFormat != core.PixelRGBA8888 || out.Width != 5 || len(out.Pix) != 5*5*4 {
			t.Errorf("got %s %dx%d len %d", out.PixelFormat, out.Width, out.Height, len(out.Pix))
		}
	})
	t.Run("offset gray", func(t *testing.T) {
		src := image.NewGray(image.Rect(2, 2, 6, 5))
		src.SetGray(2, 2, color.Gray{Y: 200})
		out := NewRaster(src)
		if out.PixelFormat != core.PixelGray8 || out.Width != 4 || out.Height != 3 {
			t.Fatalf("got %s %dx%d", out.PixelFormat, out.Width, out.Height)
		}
		if out.Pix[0] != 200 {
			t.Errorf("origin pixel: got %d", out.Pix[0])
		}
	})
}

func TestAggregate_Gray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range src.Pix {
		src.Pix[i] = 100
	}
	out := Aggregate(src, 4)
	if out.PixelFormat != core.PixelGray8 || out.Width != 4 || out.Height != 4 {
		t.Fatalf("got %s %dx%d", out.PixelFormat, out.Width, out.Height)
	}
	for i, v := range out.Pix {
		if v != 100 {
			t.Fatalf("pix[%d] = %d, want 100", i, v)
		}
	}
}
