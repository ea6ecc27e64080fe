package config

import (
	"errors"
	"time"

	apperrors "github.com/Skryldev/bitmap-decoder/errors"
)

// Config is the top-level configuration struct.  Start from Default and
// override only what you need.
type Config struct {
	// Worker pool controls (async decodes only).
	WorkerCount int // default: runtime.NumCPU()
	QueueSize   int // max queued jobs before backpressure; default: 256
	JobTimeout  time.Duration

	// Streaming / memory limits.
	MaxImageBytes int64 // 0 = no limit
	ChunkSize     int   // streaming chunk size in bytes; default 32 KiB
	PeekSize      int   // bytes sniffed for format detection; default 512
	MaxPixels     int64 // intrinsic width*height ceiling; 0 = no limit

	// Decompress unwraps gzip / zstd wrapped sources before sniffing.
	Decompress bool

	// Embedded resources.
	Resources ResourceConfig

	// Logging.
	LogLevel string // "debug", "info", "warn", "error"
}

// ResourceConfig configures where embedded resource ids resolve.
type ResourceConfig struct {
	// Dir roots a directory-backed resource store.  Empty leaves resource
	// resolution to a store supplied in code.
	Dir string
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		WorkerCount:   0, // resolved at runtime to NumCPU
		QueueSize:     256,
		JobTimeout:    30 * time.Second,
		MaxImageBytes: 64 << 20,
		ChunkSize:     32 * 1024,
		PeekSize:      512,
		MaxPixels:     1 << 28,
		Decompress:    true,
		LogLevel:      "info",
	}
}

// Validate returns a CategoryConfig error if the configuration is
// inconsistent.
func Validate(c Config) error {
	if err := validate(c); err != nil {
		return apperrors.New(apperrors.CategoryConfig, "config", err)
	}
	return nil
}

func validate(c Config) error {
	if c.ChunkSize <= 0 {
		return errors.New("ChunkSize must be positive")
	}
	if c.PeekSize < 16 {
		return errors.New("PeekSize must be at least 16 bytes")
	}
	if c.MaxImageBytes < 0 {
		return errors.New("MaxImageBytes must not be negative")
	}
	if c.MaxPixels < 0 {
		return errors.New("MaxPixels must not be negative")
	}
	if c.QueueSize < 0 || c.WorkerCount < 0 {
		return errors.New("worker pool sizes must not be negative")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.New("LogLevel must be one of debug, info, warn, error")
	}
	return nil
}
