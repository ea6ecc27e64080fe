// Package decoder provides format-specific image codecs.
package decoder

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/Skryldev/bitmap-decoder/core"
	"github.com/Skryldev/bitmap-decoder/utils"
)

// NewRaster returns img as an owned DecodedImage.  Buffers in a supported
// layout that start at the origin are adopted as-is (codecs allocate them
// fresh per call); anything else is converted once.
func NewRaster(img image.Image) *core.DecodedImage {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	origin := b.Min == image.Point{}

	switch src := img.(type) {
	case *image.RGBA:
		if origin {
			return raster(src.Pix, src.Stride, w, h, core.PixelRGBA8888)
		}
	case *image.NRGBA:
		if origin {
			return raster(src.Pix, src.Stride, w, h, core.PixelNRGBA8888)
		}
	case *image.Gray:
		if origin {
			return raster(src.Pix, src.Stride, w, h, core.PixelGray8)
		}
	}

	if isGray(img) {
		dst := image.NewGray(image.Rect(0, 0, w, h))
		xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
		return raster(dst.Pix, dst.Stride, w, h, core.PixelGray8)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return raster(dst.Pix, dst.Stride, w, h, core.PixelRGBA8888)
}

// Aggregate reduces img by factor, averaging each factor×factor block into
// one output pixel of a freshly allocated buffer.  Edge blocks that are
// cut short still produce a pixel, so each axis is ceil(n/factor).
func Aggregate(img image.Image, factor int) *core.DecodedImage {
	if factor <= 1 {
		return NewRaster(img)
	}
	b := img.Bounds()
	w, h := utils.CeilDiv(b.Dx(), factor), utils.CeilDiv(b.Dy(), factor)

	if isGray(img) {
		dst := image.NewGray(image.Rect(0, 0, w, h))
		xdraw.BiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		return raster(dst.Pix, dst.Stride, w, h, core.PixelGray8)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return raster(dst.Pix, dst.Stride, w, h, core.PixelRGBA8888)
}

func raster(pix []byte, stride, w, h int, pf core.PixelFormat) *core.DecodedImage {
	return &core.DecodedImage{Pix: pix, Stride: stride, Width: w, Height: h, PixelFormat: pf}
}

func isGray(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	}
	return false
}
