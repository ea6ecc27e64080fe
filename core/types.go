package core

import (
	"context"
	"image"
	"io"
	"time"
)

// Format identifies an image codec.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatWebP    Format = "webp"
	FormatBMP     Format = "bmp"
	FormatTIFF    Format = "tiff"
	FormatUnknown Format = "unknown"
)

// PixelFormat identifies the memory layout of a DecodedImage buffer.
type PixelFormat string

const (
	PixelRGBA8888  PixelFormat = "rgba8888"  // alpha-premultiplied, 4 bytes per pixel
	PixelNRGBA8888 PixelFormat = "nrgba8888" // straight alpha, 4 bytes per pixel
	PixelGray8     PixelFormat = "gray8"     // 1 byte per pixel
)

// BytesPerPixel returns the size of one pixel in the buffer.
func (p PixelFormat) BytesPerPixel() int {
	if p == PixelGray8 {
		return 1
	}
	return 4
}

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  int
	Height int
}

// Valid reports whether both axes are positive.
func (d Dimensions) Valid() bool { return d.Width > 0 && d.Height > 0 }

// Pixels returns Width*Height as int64.
func (d Dimensions) Pixels() int64 { return int64(d.Width) * int64(d.Height) }

// Within reports whether d fits inside b on both axes.
func (d Dimensions) Within(b Bounds) bool {
	return d.Width <= b.MaxWidth && d.Height <= b.MaxHeight
}

// Bounds is the caller-supplied maximum output size.
type Bounds struct {
	MaxWidth  int
	MaxHeight int
}

// Valid reports whether both limits are positive.
func (b Bounds) Valid() bool { return b.MaxWidth > 0 && b.MaxHeight > 0 }

// SampleFactor is the decode sampling rate: one output pixel per
// factor×factor source block.  Always a power of two ≥ 1.
type SampleFactor int

// Valid reports whether f is a positive power of two.
func (f SampleFactor) Valid() bool { return f > 0 && f&(f-1) == 0 }

// Scale returns the output dimensions for d decoded at f.  Partial blocks
// at the right and bottom edges produce a pixel, so each axis is the
// ceiling of d/f.
func (f SampleFactor) Scale(d Dimensions) Dimensions {
	if f <= 1 {
		return d
	}
	n := int(f)
	return Dimensions{Width: (d.Width + n - 1) / n, Height: (d.Height + n - 1) / n}
}

// Metadata holds image information read from the header only.
type Metadata struct {
	Dimensions
	Format    Format
	SizeBytes int64 // -1 when the source length is unknown
}

// DecodedImage is an owned in-memory raster.  The decoder keeps no
// reference to Pix once the image has been returned.
type DecodedImage struct {
	Pix         []byte
	Stride      int
	Width       int
	Height      int
	PixelFormat PixelFormat

	// Factor is the sample factor the image was decoded at.
	Factor SampleFactor
	// Intrinsic holds the dimensions of the encoded image.
	Intrinsic Dimensions
	// Format is the encoding the pixels were decoded from.
	Format Format
}

// Dimensions returns the raster size.
func (d *DecodedImage) Dimensions() Dimensions {
	return Dimensions{Width: d.Width, Height: d.Height}
}

// SizeBytes returns the pixel buffer length.
func (d *DecodedImage) SizeBytes() int64 { return int64(len(d.Pix)) }

// Image returns an image.Image view sharing Pix.
func (d *DecodedImage) Image() image.Image {
	r := image.Rect(0, 0, d.Width, d.Height)
	switch d.PixelFormat {
	case PixelGray8:
		return &image.Gray{Pix: d.Pix, Stride: d.Stride, Rect: r}
	case PixelNRGBA8888:
		return &image.NRGBA{Pix: d.Pix, Stride: d.Stride, Rect: r}
	default:
		return &image.RGBA{Pix: d.Pix, Stride: d.Stride, Rect: r}
	}
}

// SourceKind tags the Source variant.
type SourceKind uint8

const (
	SourceResource SourceKind = iota + 1 // embedded resource id
	SourceFile                           // filesystem path
	SourceStream                         // caller-supplied reader
)

func (k SourceKind) String() string {
	switch k {
	case SourceResource:
		return "resource"
	case SourceFile:
		return "file"
	case SourceStream:
		return "stream"
	}
	return "invalid"
}

// Source identifies where encoded bytes come from.  Exactly one of
// ResourceID, Path, or Reader is meaningful, selected by Kind.
type Source struct {
	Kind       SourceKind
	ResourceID string
	Path       string
	Reader     io.Reader

	ContentType string // optional hint
	Name        string // optional logical name used in logs
}

// ResourceSource returns a Source for an embedded resource id.
func ResourceSource(id string) Source { return Source{Kind: SourceResource, ResourceID: id, Name: id} }

// FileSource returns a Source for a filesystem path.
func FileSource(path string) Source { return Source{Kind: SourceFile, Path: path, Name: path} }

// StreamSource returns a Source reading from r.  A non-seekable r can be
// read only once; DecodeBounded buffers it for the second pass.
func StreamSource(r io.Reader) Source { return Source{Kind: SourceStream, Reader: r} }

// Label returns a short description for logs and errors.
func (s Source) Label() string {
	if s.Name != "" {
		return s.Kind.String() + ":" + s.Name
	}
	return s.Kind.String()
}

// DecodeState is the value passed from step to step in a bounded decode.
type DecodeState struct {
	Source Source
	Bounds Bounds

	// Filled by the probe step.
	Meta Metadata
	// Filled by the sample step.
	Factor SampleFactor
	// Filled by the decode step.
	Image *DecodedImage
}

// Result is returned to the caller after a bounded decode completes.
type Result struct {
	Image *DecodedImage
	Meta  Metadata

	ProcessingTime time.Duration
	StepTimings    map[string]time.Duration
}

// Request is one entry of a batch.
type Request struct {
	Source Source
	Bounds Bounds
}

// Job encapsulates a single bounded decode for the worker pool.
type Job struct {
	ID      string
	Ctx     context.Context //nolint:containedctx // intentional for async jobs
	Request Request
	Runner  PipelineRunner
	// Result channel; nil for fire-and-forget.
	ResultCh chan<- JobResult
}

// JobResult wraps the outcome of an async job.
type JobResult struct {
	JobID  string
	Result *Result
	Err    error
}

// Step is the fundamental pipeline building block.  Steps must be safe for
// concurrent use across goroutines.
type Step interface {
	Name() string
	Execute(ctx context.Context, st *DecodeState) (*DecodeState, error)
}

// Hook is an optional observer invoked around pipeline steps.
type Hook interface {
	BeforeStep(ctx context.Context, stepName string, st *DecodeState)
	AfterStep(ctx context.Context, stepName string, st *DecodeState, d time.Duration, err error)
}
