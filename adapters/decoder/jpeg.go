package decoder

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"io"

	"github.com/gen2brain/jpegn"

	"github.com/Skryldev/bitmap-decoder/core"
	apperrors "github.com/Skryldev/bitmap-decoder/errors"
	"github.com/Skryldev/bitmap-decoder/utils"
)

// maxDCTScale is the largest reduction the IDCT can apply by itself.
const maxDCTScale = 8

var eoiMarker = []byte{0xFF, 0xD9}

// JPEG decodes JPEG images with DCT-domain scaling: for factors up to 8
// only the low-frequency coefficients of each 8x8 block are transformed, so
// the full-resolution bitmap is never allocated.  Larger factors aggregate
// the 1/8 output further.
type JPEG struct {
	// ChunkSize is the read size used while buffering the stream.
	ChunkSize int
}

// NewJPEG returns a JPEG decoder reading in chunkSize pieces; values <= 0
// select 32 KiB.
func NewJPEG(chunkSize int) *JPEG {
	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}
	return &JPEG{ChunkSize: chunkSize}
}

func (j *JPEG) CanDecode(format core.Format) bool {
	return format == core.FormatJPEG
}

func (j *JPEG) Probe(ctx context.Context, r io.Reader) (core.Dimensions, error) {
	if err := ctx.Err(); err != nil {
		return core.Dimensions{}, apperrors.Unreadable("jpeg.probe", err)
	}
	cfg, err := jpeg.DecodeConfig(r)
	if err != nil {
		return core.Dimensions{}, apperrors.Unrecognized("jpeg.probe", err)
	}
	return core.Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

func (j *JPEG) Decode(ctx context.Context, r io.Reader, factor core.SampleFactor) (*core.DecodedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unreadable("jpeg.decode", err)
	}

	data, err := utils.ReadAll(ctx, r, j.ChunkSize)
	if err != nil {
		if errors.Is(err, utils.ErrTooLarge) {
			return nil, apperrors.Failed("jpeg.read", err)
		}
		return nil, apperrors.Unreadable("jpeg.read", err)
	}
	// jpegn fills missing scan data with gray instead of failing.
	if !CompleteJPEG(data) {
		return nil, apperrors.Failed("jpeg.decode", io.ErrUnexpectedEOF)
	}

	cfg, err := jpeg.DecodeConfig(utils.BytesReader(data))
	if err != nil {
		return nil, apperrors.Failed("jpeg.header", err)
	}

	denom, rest := splitFactor(int(factor))
	img, err := jpegn.Decode(utils.BytesReader(data), &jpegn.Options{
		ToRGBA:     true,
		ScaleDenom: denom,
	})
	if err != nil {
		return nil, apperrors.Failed("jpeg.decode", err)
	}

	out := Aggregate(img, rest)
	out.Intrinsic = core.Dimensions{Width: cfg.Width, Height: cfg.Height}
	out.Format = core.FormatJPEG
	return out, nil
}

// CompleteJPEG reports whether data ends with an EOI marker, ignoring
// zero or 0xFF fill bytes after it.
func CompleteJPEG(data []byte) bool {
	end := len(data)
	for end > 0 && (data[end-1] == 0x00 || data[end-1] == 0xFF) {
		end--
	}
	return bytes.HasSuffix(data[:end], eoiMarker)
}

// splitFactor divides factor into the part the IDCT applies and the part
// left for aggregation.  ceil(ceil(n/a)/b) == ceil(n/(a*b)), so the split
// does not change the output size.
func splitFactor(factor int) (denom, rest int) {
	if factor <= 1 {
		return 1, 1
	}
	if factor <= maxDCTScale {
		return factor, 1
	}
	return maxDCTScale, factor / maxDCTScale
}
