package core

import (
	"sort"
	"sync"
)

// ── Registry ──────────────────────────────────────────────────────────────────

// DefaultRegistry is a thread-safe implementation of Registry.
type DefaultRegistry struct {
	mu     sync.RWMutex
	codecs map[Format]Codec
}

// NewRegistry returns an empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{codecs: make(map[Format]Codec)}
}

// Register installs c for f, replacing any previous codec.
func (r *DefaultRegistry) Register(f Format, c Codec) {
	r.mu.Lock()
	r.codecs[f] = c
	r.mu.Unlock()
}

func (r *DefaultRegistry) CodecFor(f Format) (Codec, bool) {
	r.mu.RLock()
	c, ok := r.codecs[f]
	r.mu.RUnlock()
	return c, ok
}

// Formats lists the registered formats in name order.
func (r *DefaultRegistry) Formats() []Format {
	r.mu.RLock()
	out := make([]Format, 0, len(r.codecs))
	for f := range r.codecs {
		out = append(out, f)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
