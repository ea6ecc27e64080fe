// Package bitmapdecoder decodes images into rasters no larger than a
// caller-supplied bound, sampling during decode instead of scaling a
// full-resolution bitmap afterwards.
package bitmapdecoder

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/Skryldev/bitmap-decoder/adapters/decoder"
	"github.com/Skryldev/bitmap-decoder/adapters/resource"
	"github.com/Skryldev/bitmap-decoder/config"
	"github.com/Skryldev/bitmap-decoder/core"
	"github.com/Skryldev/bitmap-decoder/hooks"
	"github.com/Skryldev/bitmap-decoder/pipeline"
)

// Re-export Format constants for convenience.
const (
	JPEG = core.FormatJPEG
	PNG  = core.FormatPNG
	GIF  = core.FormatGIF
	WebP = core.FormatWebP
	BMP  = core.FormatBMP
	TIFF = core.FormatTIFF
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// Decoder is the primary entry point.
type Decoder struct {
	inner *core.Decoder
	reg   *core.DefaultRegistry
}

// New creates a fully wired Decoder with the native codecs registered.
// When cfg.Resources.Dir is set, resource ids resolve below that directory.
// Log output goes to stderr at cfg.LogLevel.
func New(cfg config.Config) (*Decoder, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	reg := core.NewRegistry()
	decoder.RegisterDefaults(reg, cfg.ChunkSize)

	inner := core.New(cfg, reg)
	inner.SetLogger(hooks.NewLogger(cfg.LogLevel, os.Stderr))
	if cfg.Resources.Dir != "" {
		store, err := resource.NewDir(cfg.Resources.Dir)
		if err != nil {
			return nil, err
		}
		inner.SetResources(store)
	}
	return &Decoder{inner: inner, reg: reg}, nil
}

// SetLogger attaches a structured logger.
func (d *Decoder) SetLogger(l core.Logger) { d.inner.SetLogger(l) }

// SetMetrics attaches a metrics collector.
func (d *Decoder) SetMetrics(m core.MetricsCollector) { d.inner.SetMetrics(m) }

// AddHook registers an observer for pipeline step events.
func (d *Decoder) AddHook(h core.Hook) { d.inner.AddHook(h) }

// WithResources sets the store embedded resource ids resolve against and
// returns d for chaining.
func (d *Decoder) WithResources(s core.ResourceStore) *Decoder {
	d.inner.SetResources(s)
	return d
}

// RegisterCodec registers a custom codec for the given format.
func (d *Decoder) RegisterCodec(f core.Format, c core.Codec) { d.reg.Register(f, c) }

// Start starts the background worker pool used by DecodeBoundedAsync.
func (d *Decoder) Start() { d.inner.Start() }

// Stop drains and shuts down the worker pool.
func (d *Decoder) Stop() { d.inner.Stop() }

// Probe reads only the image header and returns its dimensions and format.
func (d *Decoder) Probe(ctx context.Context, src core.Source) (core.Metadata, error) {
	return d.inner.Probe(ctx, src)
}

// ComputeSampleFactor returns the power-of-two factor DecodeBounded would
// use for an image of the given size.
func ComputeSampleFactor(intrinsic core.Dimensions, bounds core.Bounds) core.SampleFactor {
	return core.ComputeSampleFactor(intrinsic, bounds)
}

// Decode decodes src at an explicit sample factor.
func (d *Decoder) Decode(ctx context.Context, src core.Source, factor core.SampleFactor) (*core.DecodedImage, error) {
	return d.inner.Decode(ctx, src, factor)
}

// DecodeBounded probes src, picks the sample factor for maxWidth×maxHeight,
// and decodes at that factor.
func (d *Decoder) DecodeBounded(ctx context.Context, src core.Source, maxWidth, maxHeight int) (*core.DecodedImage, error) {
	res, err := d.DecodeBoundedResult(ctx, src, core.Bounds{MaxWidth: maxWidth, MaxHeight: maxHeight})
	if err != nil {
		return nil, err
	}
	return res.Image, nil
}

// DecodeBoundedResult is DecodeBounded returning the probed metadata and
// step timings alongside the image.
func (d *Decoder) DecodeBoundedResult(ctx context.Context, src core.Source, bounds core.Bounds) (*core.Result, error) {
	return d.inner.Execute(ctx, core.Request{Source: src, Bounds: bounds}, d.boundedPipeline())
}

// DecodeBoundedAsync submits a bounded decode to the worker pool and returns
// a channel that receives exactly one result.  Start must have been called.
func (d *Decoder) DecodeBoundedAsync(ctx context.Context, src core.Source, maxWidth, maxHeight int) (<-chan core.JobResult, error) {
	ch := make(chan core.JobResult, 1)
	job := core.Job{
		ID:       uuid.NewString(),
		Ctx:      ctx,
		Request:  core.Request{Source: src, Bounds: core.Bounds{MaxWidth: maxWidth, MaxHeight: maxHeight}},
		Runner:   d.boundedPipeline(),
		ResultCh: ch,
	}
	if err := d.inner.Submit(job); err != nil {
		return nil, err
	}
	return ch, nil
}

// Batch runs bounded decodes for independent requests concurrently.
func (d *Decoder) Batch(ctx context.Context, reqs []core.Request) ([]*core.Result, []error) {
	return d.inner.Batch(ctx, reqs, func() core.PipelineRunner { return d.boundedPipeline() })
}

// Stats returns lightweight processing statistics.
func (d *Decoder) Stats() (processed, errors int64) {
	return d.inner.ProcessedCount(), d.inner.ErrorCount()
}

func (d *Decoder) boundedPipeline() *pipeline.Pipeline {
	return pipeline.Bounded(d.inner, d.inner.Hooks()...)
}

// ── Source constructors ────────────────────────────────────────────────────────

// FromResource creates a Source for an embedded resource id.
func FromResource(id string) core.Source { return core.ResourceSource(id) }

// FromFile creates a Source for a filesystem path.
func FromFile(path string) core.Source { return core.FileSource(path) }

// FromReader creates a Source from an io.Reader.
func FromReader(r io.Reader) core.Source { return core.StreamSource(r) }

// FromBytes creates a rewindable Source over b.
func FromBytes(b []byte) core.Source { return core.StreamSource(bytes.NewReader(b)) }

// FromReaderWithMeta creates a stream Source with content-type and name hints.
func FromReaderWithMeta(r io.Reader, contentType, name string) core.Source {
	src := core.StreamSource(r)
	src.ContentType = contentType
	src.Name = name
	return src
}
