package core

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Skryldev/bitmap-decoder/config"
	apperrors "github.com/Skryldev/bitmap-decoder/errors"
)

// Decoder is the central orchestrator.  It is safe for concurrent use; every
// call opens its own source handle and allocates its own buffers.
type Decoder struct {
	cfg      config.Config
	registry Registry
	opener   *sourceOpener
	hooks    []Hook
	logger   Logger
	metrics  MetricsCollector

	// Worker pool for async decodes.
	jobQueue  chan Job
	wg        sync.WaitGroup
	startOnce sync.Once
	shutdown  chan struct{}
	// poolMu orders Submit against Stop: no job is enqueued after
	// rejectQueued has started.
	poolMu sync.RWMutex
	closed bool

	// Atomic counters for lightweight internal metrics.
	processedCount int64
	errorCount     int64
}

// New creates a Decoder with the given config.  Call Start() before
// submitting jobs; call Stop() when done.
func New(cfg config.Config, reg Registry) *Decoder {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Decoder{
		cfg:      cfg,
		registry: reg,
		opener:   &sourceOpener{cfg: cfg},
		logger:   nopLogger{},
		jobQueue: make(chan Job, queueSize),
		shutdown: make(chan struct{}),
	}
}

// SetLogger attaches a structured logger.
func (d *Decoder) SetLogger(l Logger) {
	if l == nil {
		l = nopLogger{}
	}
	d.logger = l
}

// SetMetrics attaches a metrics collector.
func (d *Decoder) SetMetrics(m MetricsCollector) { d.metrics = m }

// SetResources sets the store that resolves embedded resource ids.
func (d *Decoder) SetResources(s ResourceStore) { d.opener.resources = s }

// AddHook registers a pipeline hook.
func (d *Decoder) AddHook(h Hook) { d.hooks = append(d.hooks, h) }

// Hooks returns the registered hooks.
func (d *Decoder) Hooks() []Hook { return d.hooks }

// Registry returns the underlying registry so callers can register codecs
// after construction.
func (d *Decoder) Registry() Registry { return d.registry }

// Config returns the configuration the decoder was built with.
func (d *Decoder) Config() config.Config { return d.cfg }

// Probe reads only the header of src and returns its intrinsic dimensions
// and format.  No pixel buffer is allocated.
func (d *Decoder) Probe(ctx context.Context, src Source) (Metadata, error) {
	const op = "probe"

	p, err := d.opener.open(ctx, src)
	if err != nil {
		return Metadata{}, d.fail(op, src, err)
	}
	defer p.close()

	codec, err := d.codecFor(op, p.format)
	if err != nil {
		return Metadata{}, d.fail(op, src, err)
	}

	dims, err := codec.Probe(ctx, p.r)
	if err != nil {
		return Metadata{}, d.fail(op, src, p.classify(op+"."+string(p.format), err, apperrors.CategoryUnrecognizedFormat))
	}
	if !dims.Valid() {
		return Metadata{}, d.fail(op, src, apperrors.New(apperrors.CategoryUnrecognizedFormat, op,
			fmt.Errorf("header reports %dx%d", dims.Width, dims.Height)))
	}
	if err := d.checkPixels(op, dims); err != nil {
		return Metadata{}, d.fail(op, src, err)
	}

	d.recordRead(p)
	meta := Metadata{Dimensions: dims, Format: p.format, SizeBytes: p.size}
	d.logger.Debug("probe.done",
		"source", src.Label(),
		"format", meta.Format,
		"width", dims.Width,
		"height", dims.Height,
		"wrap", p.wrap,
	)
	return meta, nil
}

// Decode opens src again and decodes it at factor.  The result holds the
// only reference to its pixel buffer.
func (d *Decoder) Decode(ctx context.Context, src Source, factor SampleFactor) (*DecodedImage, error) {
	const op = "decode"

	if !factor.Valid() {
		return nil, d.fail(op, src, apperrors.New(apperrors.CategoryInput, op,
			fmt.Errorf("%w: %d", apperrors.ErrInvalidFactor, factor)))
	}

	p, err := d.opener.open(ctx, src)
	if err != nil {
		return nil, d.fail(op, src, err)
	}
	defer p.close()

	codec, err := d.codecFor(op, p.format)
	if err != nil {
		return nil, d.fail(op, src, err)
	}

	img, err := codec.Decode(ctx, p.r, factor)
	if err != nil {
		return nil, d.fail(op, src, p.classify(op+"."+string(p.format), err, apperrors.CategoryDecodeFailed))
	}
	if err := d.checkDecoded(op, img, factor); err != nil {
		return nil, d.fail(op, src, err)
	}
	img.Factor = factor
	img.Format = p.format

	d.recordRead(p)
	if d.metrics != nil {
		d.metrics.RecordMemory(img.SizeBytes())
	}
	d.logger.Debug("decode.done",
		"source", src.Label(),
		"format", img.Format,
		"factor", int(factor),
		"width", img.Width,
		"height", img.Height,
		"bytes", img.SizeBytes(),
	)
	return img, nil
}

// Execute validates req, makes stream sources replayable for the two read
// passes, and runs them through runner.
func (d *Decoder) Execute(ctx context.Context, req Request, runner PipelineRunner) (*Result, error) {
	if !req.Bounds.Valid() {
		atomic.AddInt64(&d.errorCount, 1)
		return nil, apperrors.New(apperrors.CategoryInput, "execute",
			fmt.Errorf("%w: %dx%d", apperrors.ErrInvalidBounds, req.Bounds.MaxWidth, req.Bounds.MaxHeight))
	}

	start := time.Now()
	src, err := d.opener.replayable(ctx, req.Source)
	if err != nil {
		atomic.AddInt64(&d.errorCount, 1)
		return nil, err
	}

	st, timings, err := runner.Run(ctx, &DecodeState{Source: src, Bounds: req.Bounds})
	if err != nil {
		atomic.AddInt64(&d.errorCount, 1)
		return nil, err
	}
	if st == nil || st.Image == nil {
		atomic.AddInt64(&d.errorCount, 1)
		return nil, apperrors.New(apperrors.CategoryPipeline, "execute", apperrors.ErrEmptyInput)
	}

	atomic.AddInt64(&d.processedCount, 1)
	return &Result{
		Image:          st.Image,
		Meta:           st.Meta,
		ProcessingTime: time.Since(start),
		StepTimings:    timings,
	}, nil
}

// Start launches the worker pool.  It is idempotent.
func (d *Decoder) Start() {
	d.startOnce.Do(func() {
		workerCount := d.cfg.WorkerCount
		if workerCount <= 0 {
			workerCount = runtime.NumCPU()
		}
		for i := 0; i < workerCount; i++ {
			d.wg.Add(1)
			go d.worker()
		}
	})
}

// Stop shuts down all workers.  Jobs still queued are answered with
// ErrWorkerPoolClosed.
func (d *Decoder) Stop() {
	d.poolMu.Lock()
	if !d.closed {
		d.closed = true
		close(d.shutdown)
	}
	d.poolMu.Unlock()
	d.wg.Wait()
	d.rejectQueued()
}

// Submit enqueues an async job.  Returns ErrWorkerPoolFull if the queue is full.
func (d *Decoder) Submit(job Job) error {
	d.poolMu.RLock()
	defer d.poolMu.RUnlock()
	if d.closed {
		return apperrors.New(apperrors.CategoryPipeline, "submit", apperrors.ErrWorkerPoolClosed)
	}
	select {
	case d.jobQueue <- job:
		return nil
	default:
		return apperrors.New(apperrors.CategoryPipeline, "submit", apperrors.ErrWorkerPoolFull)
	}
}

// Batch decodes independent requests concurrently (fan-out / fan-in).
func (d *Decoder) Batch(ctx context.Context, reqs []Request, runner func() PipelineRunner) ([]*Result, []error) {
	results := make([]*Result, len(reqs))
	errs := make([]error, len(reqs))
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(idx int, r Request) {
			defer wg.Done()
			results[idx], errs[idx] = d.Execute(ctx, r, runner())
		}(i, req)
	}
	wg.Wait()
	return results, errs
}

// ── worker pool internals ──────────────────────────────────────────────────────

func (d *Decoder) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.shutdown:
			return
		case job := <-d.jobQueue:
			d.processJob(job)
		}
	}
}

func (d *Decoder) processJob(job Job) {
	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout := d.cfg.JobTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := d.Execute(ctx, job.Request, job.Runner)
	if err != nil {
		d.logger.Warn("job.failed", "job", job.ID, "source", job.Request.Source.Label(), "error", err.Error())
	}
	if job.ResultCh != nil {
		job.ResultCh <- JobResult{JobID: job.ID, Result: result, Err: err}
	}
}

func (d *Decoder) rejectQueued() {
	for {
		select {
		case job := <-d.jobQueue:
			if job.ResultCh != nil {
				job.ResultCh <- JobResult{
					JobID: job.ID,
					Err:   apperrors.New(apperrors.CategoryPipeline, "job", apperrors.ErrWorkerPoolClosed),
				}
			}
		default:
			return
		}
	}
}

// ── helpers ────────────────────────────────────────────────────────────────────

func (d *Decoder) codecFor(op string, f Format) (Codec, error) {
	c, ok := d.registry.CodecFor(f)
	if !ok || !c.CanDecode(f) {
		return nil, apperrors.New(apperrors.CategoryUnrecognizedFormat, op,
			fmt.Errorf("no codec for format %q", f))
	}
	return c, nil
}

func (d *Decoder) checkPixels(op string, dims Dimensions) error {
	if d.cfg.MaxPixels > 0 && dims.Pixels() > d.cfg.MaxPixels {
		return apperrors.New(apperrors.CategoryDecodeFailed, op,
			fmt.Errorf("%w: %dx%d", apperrors.ErrPixelBudget, dims.Width, dims.Height))
	}
	return nil
}

// checkDecoded rejects codec output that is empty, inconsistent, or larger
// than the sample factor allows.
func (d *Decoder) checkDecoded(op string, img *DecodedImage, factor SampleFactor) error {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return apperrors.New(apperrors.CategoryDecodeFailed, op, apperrors.ErrEmptyInput)
	}
	if err := d.checkPixels(op, img.Intrinsic); err != nil {
		return err
	}
	if img.Intrinsic.Valid() {
		want := factor.Scale(img.Intrinsic)
		if img.Width > want.Width || img.Height > want.Height {
			return apperrors.New(apperrors.CategoryDecodeFailed, op,
				fmt.Errorf("codec returned %dx%d, factor %d allows %dx%d",
					img.Width, img.Height, factor, want.Width, want.Height))
		}
	}
	if len(img.Pix) < img.Stride*(img.Height-1)+img.Width*img.PixelFormat.BytesPerPixel() {
		return apperrors.New(apperrors.CategoryDecodeFailed, op, fmt.Errorf("short pixel buffer"))
	}
	return nil
}

func (d *Decoder) recordRead(p *pass) {
	if d.metrics != nil {
		d.metrics.RecordBytesRead(p.bytesRead())
	}
}

func (d *Decoder) fail(op string, src Source, err error) error {
	d.logger.Debug(op+".failed", "source", src.Label(), "error", err.Error())
	return err
}

// ProcessedCount returns the total number of successful bounded decodes.
func (d *Decoder) ProcessedCount() int64 { return atomic.LoadInt64(&d.processedCount) }

// ErrorCount returns the total number of failed bounded decodes.
func (d *Decoder) ErrorCount() int64 { return atomic.LoadInt64(&d.errorCount) }
