package core

import (
	"context"
	"io"
	"time"
)

// Prober reads image dimensions from a header without decoding pixels.
type Prober interface {
	// Probe reads as little of r as the format allows and returns the
	// intrinsic dimensions.
	Probe(ctx context.Context, r io.Reader) (Dimensions, error)
}

// SampledDecoder decodes pixel data at a reduced sample rate.
type SampledDecoder interface {
	// Decode reads r and returns a raster of factor.Scale(intrinsic)
	// pixels, applying the factor during decode.
	Decode(ctx context.Context, r io.Reader, factor SampleFactor) (*DecodedImage, error)
}

// Codec is a format adapter offering both capabilities.
// Implementations live in adapters/decoder/ and adapters/vips/.
type Codec interface {
	Prober
	SampledDecoder
	// CanDecode reports whether this codec handles the given format.
	CanDecode(format Format) bool
}

// ResourceStore resolves embedded resource ids to byte streams.
// Implementations live in adapters/resource/.
type ResourceStore interface {
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

// PipelineRunner is a minimal interface over pipeline.Pipeline so that core
// does not import the pipeline package (avoiding a circular dependency).
type PipelineRunner interface {
	Run(ctx context.Context, st *DecodeState) (*DecodeState, map[string]time.Duration, error)
}

// MetricsCollector receives performance observations from the pipeline.
type MetricsCollector interface {
	RecordProcessingTime(stepName string, d interface{ Seconds() float64 })
	RecordBytesRead(bytes int64)
	RecordMemory(bytes int64)
	RecordError(stepName string, category string)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Registry maps Format values to Codec implementations.
type Registry interface {
	CodecFor(format Format) (Codec, bool)
	Register(format Format, c Codec)
	Formats() []Format
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
