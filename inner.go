package bitmapdecoder

import "github.com/Skryldev/bitmap-decoder/core"

// Inner exposes the underlying core.Decoder for advanced use (e.g., direct
// registry access in tests).  Prefer the high-level API for normal usage.
func (d *Decoder) Inner() *core.Decoder { return d.inner }
