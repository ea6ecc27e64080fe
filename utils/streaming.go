package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrTooLarge is returned by LimitedReader once the byte limit is passed.
var ErrTooLarge = errors.New("source exceeds byte limit")

// bufPool reuses byte buffers to reduce GC pressure.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

// AcquireBuffer returns a reset buffer from the pool.
func AcquireBuffer() *bytes.Buffer {
	b := bufPool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// ReleaseBuffer returns b to the pool.  Callers must not use b after this call.
func ReleaseBuffer(b *bytes.Buffer) {
	// Cap large buffers to avoid pinning excessive memory.
	if b.Cap() > 8*1024*1024 {
		return
	}
	bufPool.Put(b)
}

// DrainReader reads all bytes from r into a pooled buffer and returns them.
// The context is checked between chunks.  Pass the buffer back with
// ReleaseBuffer once its bytes have been copied out.
func DrainReader(ctx context.Context, r io.Reader, chunkSize int) (*bytes.Buffer, error) {
	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}
	buf := AcquireBuffer()
	chunk := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			ReleaseBuffer(buf)
			return nil, err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			ReleaseBuffer(buf)
			return nil, err
		}
	}
	return buf, nil
}

// ReadAll drains r and returns an owned copy of its bytes.
func ReadAll(ctx context.Context, r io.Reader, chunkSize int) ([]byte, error) {
	buf, err := DrainReader(ctx, r, chunkSize)
	if err != nil {
		return nil, err
	}
	out := CloneBytes(buf.Bytes())
	ReleaseBuffer(buf)
	return out, nil
}

// LimitedReader wraps r and returns ErrTooLarge when more than Max bytes
// are available.  Max <= 0 disables the limit.
type LimitedReader struct {
	R   io.Reader
	Max int64
	n   int64
}

func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.Max > 0 && l.n >= l.Max {
		// Probe for one more byte to tell "exactly Max" from "more than Max".
		var one [1]byte
		n, err := l.R.Read(one[:])
		if n > 0 {
			return 0, fmt.Errorf("%w (%d bytes)", ErrTooLarge, l.Max)
		}
		return 0, err
	}
	if l.Max > 0 {
		remain := l.Max - l.n
		if int64(len(p)) > remain {
			p = p[:remain]
		}
	}
	n, err := l.R.Read(p)
	l.n += int64(n)
	return n, err
}

// N returns the number of bytes read so far.
func (l *LimitedReader) N() int64 { return l.n }

// ContextReader fails reads once ctx is done, so a cancelled decode stops
// at the next read instead of running to the end of the source.
type ContextReader struct {
	Ctx context.Context //nolint:containedctx // scoped to one read pass
	R   io.Reader
}

func (c *ContextReader) Read(p []byte) (int, error) {
	if err := c.Ctx.Err(); err != nil {
		return 0, err
	}
	return c.R.Read(p)
}

// ErrorRecorder remembers the first non-EOF error returned by R.  Codecs
// tend to flatten I/O failures into their own syntax errors; the recorder
// lets callers tell an unreadable source from corrupt data afterwards.
type ErrorRecorder struct {
	R   io.Reader
	mu  sync.Mutex
	err error
}

func (e *ErrorRecorder) Read(p []byte) (int, error) {
	n, err := e.R.Read(p)
	if err != nil && err != io.EOF {
		e.mu.Lock()
		if e.err == nil {
			e.err = err
		}
		e.mu.Unlock()
	}
	return n, err
}

// Err returns the first recorded read error.
func (e *ErrorRecorder) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}
