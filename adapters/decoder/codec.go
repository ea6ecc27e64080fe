package decoder

import (
	"context"
	"image"
	"io"

	"github.com/Skryldev/bitmap-decoder/core"
	apperrors "github.com/Skryldev/bitmap-decoder/errors"
)

// base adapts an image package pair (DecodeConfig, Decode) whose decoder
// cannot sample natively.  Pixels are decoded at full resolution into the
// package's own buffer and aggregated into the single output raster.
type base struct {
	format core.Format
	config func(io.Reader) (image.Config, error)
	decode func(io.Reader) (image.Image, error)
}

func (c *base) CanDecode(format core.Format) bool { return format == c.format }

func (c *base) Probe(ctx context.Context, r io.Reader) (core.Dimensions, error) {
	op := string(c.format) + ".probe"
	if err := ctx.Err(); err != nil {
		return core.Dimensions{}, apperrors.Unreadable(op, err)
	}
	cfg, err := c.config(r)
	if err != nil {
		return core.Dimensions{}, apperrors.Unrecognized(op, err)
	}
	return core.Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

func (c *base) Decode(ctx context.Context, r io.Reader, factor core.SampleFactor) (*core.DecodedImage, error) {
	op := string(c.format) + ".decode"
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unreadable(op, err)
	}

	img, err := c.decode(r)
	if err != nil {
		return nil, apperrors.Failed(op, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Failed(op, err)
	}

	b := img.Bounds()
	out := Aggregate(img, int(factor))
	out.Intrinsic = core.Dimensions{Width: b.Dx(), Height: b.Dy()}
	out.Format = c.format
	return out, nil
}

// RegisterDefaults installs the native codecs for every supported format.
// chunkSize is the read size for codecs that buffer the whole stream.
func RegisterDefaults(reg core.Registry, chunkSize int) {
	reg.Register(core.FormatJPEG, NewJPEG(chunkSize))
	reg.Register(core.FormatPNG, NewPNG())
	reg.Register(core.FormatGIF, NewGIF())
	reg.Register(core.FormatWebP, NewWebP())
	reg.Register(core.FormatBMP, NewBMP())
	reg.Register(core.FormatTIFF, NewTIFF())
}
