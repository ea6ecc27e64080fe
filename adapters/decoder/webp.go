package decoder

import (
	"golang.org/x/image/webp"

	"github.com/Skryldev/bitmap-decoder/core"
)

// WebP decodes WebP images using golang.org/x/image/webp.
// Animated WebP is not supported.
type WebP struct{ base }

func NewWebP() *WebP {
	return &WebP{base{format: core.FormatWebP, config: webp.DecodeConfig, decode: webp.Decode}}
}
