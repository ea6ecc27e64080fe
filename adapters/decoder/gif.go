package decoder

import (
	"image/gif"

	"github.com/Skryldev/bitmap-decoder/core"
)

// GIF decodes the first frame of a GIF using the standard library.
type GIF struct{ base }

func NewGIF() *GIF {
	return &GIF{base{format: core.FormatGIF, config: gif.DecodeConfig, decode: gif.Decode}}
}
