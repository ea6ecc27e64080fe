package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategorySourceUnreadable   Category = "source_unreadable"
	CategoryUnrecognizedFormat Category = "unrecognized_format"
	CategoryDecodeFailed       Category = "decode_failed"
	CategoryInput              Category = "input"
	CategoryPipeline           Category = "pipeline"
	CategoryConfig             Category = "config"
)

// DecoderError is the structured error type used throughout the module.
type DecoderError struct {
	Category Category
	Op       string // operation name
	Err      error
}

func (e *DecoderError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *DecoderError) Unwrap() error { return e.Err }

// Is lets errors.Is match a DecoderError against the sentinel of its
// category, so callers can branch on ErrSourceUnreadable and friends
// without knowing the wrapped cause.
func (e *DecoderError) Is(target error) bool {
	switch target {
	case ErrSourceUnreadable:
		return e.Category == CategorySourceUnreadable
	case ErrUnrecognizedFormat:
		return e.Category == CategoryUnrecognizedFormat
	case ErrDecodeFailed:
		return e.Category == CategoryDecodeFailed
	}
	return false
}

// New creates a DecoderError.
func New(category Category, op string, err error) *DecoderError {
	return &DecoderError{Category: category, Op: op, Err: err}
}

// Wrap wraps an existing error with context.  An error that already carries
// a category keeps it; only the operation name is added.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DecoderError
	if errors.As(err, &de) {
		return &DecoderError{Category: de.Category, Op: op, Err: err}
	}
	return New(category, op, err)
}

// Unreadable wraps err as a SourceUnreadable failure.
func Unreadable(op string, err error) error { return Wrap(CategorySourceUnreadable, op, err) }

// Unrecognized wraps err as an UnrecognizedFormat failure.
func Unrecognized(op string, err error) error { return Wrap(CategoryUnrecognizedFormat, op, err) }

// Failed wraps err as a DecodeFailed failure.
func Failed(op string, err error) error { return Wrap(CategoryDecodeFailed, op, err) }

// Cause strips every DecoderError layer from err and returns the
// underlying failure, so it can be re-categorised without keeping the
// categories it was wrapped in along the way.
func Cause(err error) error {
	for {
		de, ok := err.(*DecoderError)
		if !ok || de.Err == nil {
			return err
		}
		err = de.Err
	}
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var de *DecoderError
	if errors.As(err, &de) {
		return de.Category == cat
	}
	return false
}

// CategoryOf returns the category of err, or "" for foreign errors.
func CategoryOf(err error) Category {
	var de *DecoderError
	if errors.As(err, &de) {
		return de.Category
	}
	return ""
}

// Sentinel errors for common failure modes.
var (
	ErrSourceUnreadable   = errors.New("source unreadable")
	ErrUnrecognizedFormat = errors.New("unrecognized image format")
	ErrDecodeFailed       = errors.New("decode failed")

	ErrInvalidBounds    = errors.New("invalid bounds")
	ErrInvalidFactor    = errors.New("sample factor must be a positive power of two")
	ErrEmptyInput       = errors.New("empty input")
	ErrNoResourceStore  = errors.New("no resource store configured")
	ErrPixelBudget      = errors.New("image exceeds pixel budget")
	ErrWorkerPoolFull   = errors.New("worker pool queue full")
	ErrWorkerPoolClosed = errors.New("worker pool stopped")
)
