package decoder

import (
	"golang.org/x/image/tiff"

	"github.com/Skryldev/bitmap-decoder/core"
)

// TIFF decodes baseline TIFF using golang.org/x/image/tiff.  The package
// buffers the whole stream since TIFF offsets can point anywhere.
type TIFF struct{ base }

func NewTIFF() *TIFF {
	return &TIFF{base{format: core.FormatTIFF, config: tiff.DecodeConfig, decode: tiff.Decode}}
}
