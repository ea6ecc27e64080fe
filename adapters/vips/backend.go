package vips

import (
	"context"
	"errors"
	"io"
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/Skryldev/bitmap-decoder/adapters/decoder"
	"github.com/Skryldev/bitmap-decoder/core"
	apperrors "github.com/Skryldev/bitmap-decoder/errors"
	"github.com/Skryldev/bitmap-decoder/utils"
)

// maxShrinkOnLoad is the largest factor libjpeg can apply while loading.
const maxShrinkOnLoad = 8

// BackendConfig configures the libvips backend.
type BackendConfig struct {
	MaxCacheSize int
	MaxWorkers   int
	ReportLeaks  bool
	ChunkSize    int
}

// Backend is a libvips-powered Codec.  For JPEG it sets the shrink-on-load
// factor so libjpeg decodes at 1/2, 1/4 or 1/8 scale directly; other
// formats are loaded lazily and shrunk before pixels are materialised.
// Safe for concurrent use across goroutines.
type Backend struct {
	cfg BackendConfig
}

// NewBackend initialises libvips and returns a ready Backend.
// Call Shutdown() when the process exits.
func NewBackend(cfg BackendConfig) *Backend {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 32 * 1024
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.MaxWorkers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
	})
	return &Backend{cfg: cfg}
}

// Shutdown releases all libvips resources. Call once at process exit.
func (b *Backend) Shutdown() {
	govips.Shutdown()
}

func (b *Backend) CanDecode(f core.Format) bool {
	switch f {
	case core.FormatJPEG, core.FormatPNG, core.FormatGIF, core.FormatWebP, core.FormatBMP, core.FormatTIFF:
		return true
	}
	return false
}

// Probe parses the header only; libvips defers pixel decoding until the
// image is read.
func (b *Backend) Probe(ctx context.Context, r io.Reader) (core.Dimensions, error) {
	raw, err := b.read(ctx, r, "vips.probe")
	if err != nil {
		return core.Dimensions{}, err
	}
	ref, err := govips.LoadImageFromBuffer(raw, govips.NewImportParams())
	if err != nil {
		return core.Dimensions{}, apperrors.Unrecognized("vips.probe", err)
	}
	defer ref.Close()
	return core.Dimensions{Width: ref.Width(), Height: ref.Height()}, nil
}

func (b *Backend) Decode(ctx context.Context, r io.Reader, factor core.SampleFactor) (*core.DecodedImage, error) {
	raw, err := b.read(ctx, r, "vips.decode")
	if err != nil {
		return nil, err
	}

	header, err := govips.LoadImageFromBuffer(raw, govips.NewImportParams())
	if err != nil {
		return nil, apperrors.Failed("vips.header", err)
	}
	intrinsic := core.Dimensions{Width: header.Width(), Height: header.Height()}
	isJPEG := header.Format() == govips.ImageTypeJPEG
	header.Close()
	if isJPEG && !decoder.CompleteJPEG(raw) {
		return nil, apperrors.Failed("vips.decode", io.ErrUnexpectedEOF)
	}

	params := govips.NewImportParams()
	rest := int(factor)
	if isJPEG && factor > 1 {
		shrink := rest
		if shrink > maxShrinkOnLoad {
			shrink = maxShrinkOnLoad
		}
		params.JpegShrinkFactor.Set(shrink)
		rest /= shrink
	}

	ref, err := govips.LoadImageFromBuffer(raw, params)
	if err != nil {
		return nil, apperrors.Failed("vips.load", err)
	}
	defer ref.Close()

	if rest > 1 {
		if err := ref.Resize(1/float64(rest), govips.KernelLinear); err != nil {
			return nil, apperrors.Failed("vips.shrink", err)
		}
	}

	img, err := ref.ToImage(nil)
	if err != nil {
		return nil, apperrors.Failed("vips.export", err)
	}

	out := clamp(decoder.NewRaster(img), factor.Scale(intrinsic))
	out.Intrinsic = intrinsic
	out.Format = vipsFormatToCore(ref.Format())
	return out, nil
}

func (b *Backend) read(ctx context.Context, r io.Reader, op string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unreadable(op, err)
	}
	raw, err := utils.ReadAll(ctx, r, b.cfg.ChunkSize)
	if err != nil {
		if errors.Is(err, utils.ErrTooLarge) {
			return nil, apperrors.Failed(op, err)
		}
		return nil, apperrors.Unreadable(op, err)
	}
	if len(raw) == 0 {
		return nil, apperrors.New(apperrors.CategoryUnrecognizedFormat, op, apperrors.ErrEmptyInput)
	}
	return raw, nil
}

// clamp trims a raster that libvips rounded up past the ceiling size.
// vips rounds the resize output to nearest, which can exceed ceil(n/f) by
// a pixel on odd sizes.
func clamp(img *core.DecodedImage, max core.Dimensions) *core.DecodedImage {
	if img.Width <= max.Width && img.Height <= max.Height {
		return img
	}
	w, h := min(img.Width, max.Width), min(img.Height, max.Height)
	bpp := img.PixelFormat.BytesPerPixel()
	out := &core.DecodedImage{
		Pix:         make([]byte, w*h*bpp),
		Stride:      w * bpp,
		Width:       w,
		Height:      h,
		PixelFormat: img.PixelFormat,
	}
	for y := 0; y < h; y++ {
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], img.Pix[y*img.Stride:])
	}
	return out
}

// RegisterVipsBackend replaces the native codecs with libvips for all formats.
func RegisterVipsBackend(reg core.Registry, b *Backend) {
	for _, f := range []core.Format{core.FormatJPEG, core.FormatPNG, core.FormatGIF, core.FormatWebP, core.FormatBMP, core.FormatTIFF} {
		reg.Register(f, b)
	}
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func vipsFormatToCore(f govips.ImageType) core.Format {
	switch f {
	case govips.ImageTypeJPEG:
		return core.FormatJPEG
	case govips.ImageTypePNG:
		return core.FormatPNG
	case govips.ImageTypeGIF:
		return core.FormatGIF
	case govips.ImageTypeWEBP:
		return core.FormatWebP
	case govips.ImageTypeBMP:
		return core.FormatBMP
	case govips.ImageTypeTIFF:
		return core.FormatTIFF
	default:
		return core.FormatUnknown
	}
}

// compile-time interface checks
var _ core.Codec = (*Backend)(nil)
