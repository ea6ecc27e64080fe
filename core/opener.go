package core

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Skryldev/bitmap-decoder/config"
	apperrors "github.com/Skryldev/bitmap-decoder/errors"
	"github.com/Skryldev/bitmap-decoder/utils"
)

// pass is one read pass over a source, positioned at the first image byte.
type pass struct {
	r      io.Reader
	format Format
	size   int64
	wrap   string

	raw     *utils.LimitedReader // encoded bytes as read from the source
	rec     *utils.ErrorRecorder
	closers []func()
}

// close releases every layer in reverse order.
func (p *pass) close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

// bytesRead returns the number of bytes pulled from the source so far.
func (p *pass) bytesRead() int64 { return p.raw.N() }

// classify turns an error seen while the pass was being consumed into the
// taxonomy: failures of the source itself beat whatever the codec reported.
func (p *pass) classify(op string, err error, fallback apperrors.Category) error {
	if rerr := p.rec.Err(); rerr != nil {
		return apperrors.New(apperrors.CategorySourceUnreadable, op, rerr)
	}
	if errors.Is(err, utils.ErrTooLarge) {
		return apperrors.New(apperrors.CategoryDecodeFailed, op, apperrors.Cause(err))
	}
	return apperrors.Wrap(fallback, op, err)
}

// sourceOpener dispatches a Source to the right byte stream.  It is the
// only place that switches on Source.Kind.
type sourceOpener struct {
	cfg       config.Config
	resources ResourceStore
}

func (o *sourceOpener) open(ctx context.Context, src Source) (*pass, error) {
	const op = "open"

	var (
		rc   io.ReadCloser
		size int64 = -1
	)
	switch src.Kind {
	case SourceResource:
		if o.resources == nil {
			return nil, apperrors.New(apperrors.CategorySourceUnreadable, op, apperrors.ErrNoResourceStore)
		}
		r, err := o.resources.Open(ctx, src.ResourceID)
		if err != nil {
			return nil, apperrors.Unreadable(op, fmt.Errorf("resource %q: %w", src.ResourceID, err))
		}
		rc = r
	case SourceFile:
		f, err := os.Open(src.Path)
		if err != nil {
			return nil, apperrors.Unreadable(op, err)
		}
		if fi, err := f.Stat(); err == nil {
			if fi.IsDir() {
				f.Close()
				return nil, apperrors.New(apperrors.CategorySourceUnreadable, op, fmt.Errorf("%s is a directory", src.Path))
			}
			size = fi.Size()
		}
		rc = f
	case SourceStream:
		if src.Reader == nil {
			return nil, apperrors.New(apperrors.CategorySourceUnreadable, op, apperrors.ErrEmptyInput)
		}
		if s, ok := src.Reader.(io.Seeker); ok {
			if _, err := s.Seek(0, io.SeekStart); err != nil {
				return nil, apperrors.Unreadable(op, err)
			}
		}
		if br, ok := src.Reader.(*bytes.Reader); ok {
			size = br.Size()
		}
		rc = io.NopCloser(src.Reader)
	default:
		return nil, apperrors.New(apperrors.CategoryInput, op, fmt.Errorf("unknown source kind %d", src.Kind))
	}

	p := &pass{size: size}
	p.closers = append(p.closers, func() { _ = rc.Close() })
	p.rec = &utils.ErrorRecorder{R: &utils.ContextReader{Ctx: ctx, R: rc}}
	p.raw = &utils.LimitedReader{R: p.rec, Max: o.cfg.MaxImageBytes}

	peekSize := o.cfg.PeekSize
	if peekSize < 16 {
		peekSize = 512
	}
	br := bufio.NewReaderSize(p.raw, peekSize)

	if o.cfg.Decompress {
		inner, closeFn, wrap, err := utils.Unwrap(br)
		if err != nil {
			p.close()
			return nil, p.classify(op+"."+wrap, err, apperrors.CategoryDecodeFailed)
		}
		p.closers = append(p.closers, closeFn)
		if wrap != utils.WrapNone {
			p.wrap = wrap
			p.size = -1
			limited := &utils.LimitedReader{R: inner, Max: o.cfg.MaxImageBytes}
			br = bufio.NewReaderSize(limited, peekSize)
		}
	}

	peek, err := br.Peek(peekSize)
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		fallback := apperrors.CategorySourceUnreadable
		if p.wrap != utils.WrapNone {
			fallback = apperrors.CategoryDecodeFailed
		}
		p.close()
		return nil, p.classify(op+".peek", err, fallback)
	}
	if len(peek) == 0 {
		p.close()
		return nil, apperrors.New(apperrors.CategoryUnrecognizedFormat, op, apperrors.ErrEmptyInput)
	}

	p.format = Format(utils.DetectFormat(peek))
	if p.format == FormatUnknown && src.ContentType != "" {
		p.format = Format(utils.FormatFromContentType(src.ContentType))
	}
	p.r = br
	return p, nil
}

// replayable makes a stream source readable twice.  Seekable readers are
// rewound by open; anything else is drained once into a call-scoped buffer.
func (o *sourceOpener) replayable(ctx context.Context, src Source) (Source, error) {
	if src.Kind != SourceStream || src.Reader == nil {
		return src, nil
	}
	if _, ok := src.Reader.(io.Seeker); ok {
		return src, nil
	}
	rec := &utils.ErrorRecorder{R: src.Reader}
	data, err := utils.ReadAll(ctx, &utils.LimitedReader{R: rec, Max: o.cfg.MaxImageBytes}, o.cfg.ChunkSize)
	if err != nil {
		if errors.Is(err, utils.ErrTooLarge) && rec.Err() == nil {
			return src, apperrors.New(apperrors.CategoryDecodeFailed, "stream.buffer", err)
		}
		return src, apperrors.Unreadable("stream.buffer", err)
	}
	out := src
	out.Reader = bytes.NewReader(data)
	return out, nil
}
