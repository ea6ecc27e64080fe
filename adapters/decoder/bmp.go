package decoder

import (
	"golang.org/x/image/bmp"

	"github.com/Skryldev/bitmap-decoder/core"
)

// BMP decodes Windows bitmaps using golang.org/x/image/bmp.
type BMP struct{ base }

func NewBMP() *BMP {
	return &BMP{base{format: core.FormatBMP, config: bmp.DecodeConfig, decode: bmp.Decode}}
}
