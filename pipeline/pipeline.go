// Package pipeline wires steps together and runs hooks around them.
package pipeline

import (
	"context"
	"time"

	"github.com/Skryldev/bitmap-decoder/core"
	apperrors "github.com/Skryldev/bitmap-decoder/errors"
)

// Pipeline executes a sequence of Steps with hook support.  Steps run once:
// failures are returned to the caller, never retried.
type Pipeline struct {
	steps []core.Step
	hooks []core.Hook
}

// New returns an empty Pipeline.
func New() *Pipeline { return &Pipeline{} }

// Bounded returns the probe → sample → decode pipeline over e.
func Bounded(e Engine, hooks ...core.Hook) *Pipeline {
	p := New().Use(&ProbeStep{Engine: e}, &SampleStep{}, &DecodeStep{Engine: e})
	for _, h := range hooks {
		p.AddHook(h)
	}
	return p
}

// Use appends a step to the pipeline.  Returns the same Pipeline for chaining.
func (p *Pipeline) Use(s ...core.Step) *Pipeline {
	p.steps = append(p.steps, s...)
	return p
}

// AddHook registers an observer.
func (p *Pipeline) AddHook(h core.Hook) *Pipeline {
	p.hooks = append(p.hooks, h)
	return p
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return names
}

// Run executes the pipeline on st.  It returns the final state and a map
// of per-step timing observations.
func (p *Pipeline) Run(ctx context.Context, st *core.DecodeState) (*core.DecodeState, map[string]time.Duration, error) {
	timings := make(map[string]time.Duration, len(p.steps))
	current := st

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return nil, timings, apperrors.Wrap(apperrors.CategoryPipeline, step.Name(), err)
		}

		result, elapsed, err := p.runStep(ctx, step, current)
		timings[step.Name()] = elapsed
		if err != nil {
			return nil, timings, err
		}
		current = result
	}
	return current, timings, nil
}

// runStep executes a single step, calling hooks around it.
func (p *Pipeline) runStep(ctx context.Context, step core.Step, st *core.DecodeState) (*core.DecodeState, time.Duration, error) {
	p.callHooksBefore(ctx, step.Name(), st)

	start := time.Now()
	result, err := step.Execute(ctx, st)
	elapsed := time.Since(start)

	after := result
	if after == nil {
		after = st
	}
	p.callHooksAfter(ctx, step.Name(), after, elapsed, err)
	return result, elapsed, err
}

func (p *Pipeline) callHooksBefore(ctx context.Context, name string, st *core.DecodeState) {
	for _, h := range p.hooks {
		h.BeforeStep(ctx, name, st)
	}
}

func (p *Pipeline) callHooksAfter(ctx context.Context, name string, st *core.DecodeState, d time.Duration, err error) {
	for _, h := range p.hooks {
		h.AfterStep(ctx, name, st, d, err)
	}
}

// Clone returns a shallow copy of the pipeline so templates can be reused
// safely across goroutines.
func (p *Pipeline) Clone() *Pipeline {
	cp := &Pipeline{
		steps: make([]core.Step, len(p.steps)),
		hooks: make([]core.Hook, len(p.hooks)),
	}
	copy(cp.steps, p.steps)
	copy(cp.hooks, p.hooks)
	return cp
}

var _ core.PipelineRunner = (*Pipeline)(nil)
