package decoder

import (
	"image/png"

	"github.com/Skryldev/bitmap-decoder/core"
)

// PNG decodes PNG images using the standard library.
type PNG struct{ base }

func NewPNG() *PNG {
	return &PNG{base{format: core.FormatPNG, config: png.DecodeConfig, decode: png.Decode}}
}
