package pipeline

import (
	"context"
	"fmt"

	"github.com/Skryldev/bitmap-decoder/core"
	apperrors "github.com/Skryldev/bitmap-decoder/errors"
)

// Engine is the two-pass decode primitive the steps call into.
// *core.Decoder satisfies it.
type Engine interface {
	Probe(ctx context.Context, src core.Source) (core.Metadata, error)
	Decode(ctx context.Context, src core.Source, factor core.SampleFactor) (*core.DecodedImage, error)
}

// ── Probe ─────────────────────────────────────────────────────────────────────

// ProbeStep reads the header of the state's source into st.Meta.
type ProbeStep struct {
	Engine Engine
}

func (s *ProbeStep) Name() string { return "probe" }

func (s *ProbeStep) Execute(ctx context.Context, st *core.DecodeState) (*core.DecodeState, error) {
	meta, err := s.Engine.Probe(ctx, st.Source)
	if err != nil {
		return nil, err
	}
	out := *st
	out.Meta = meta
	return &out, nil
}

// ── Sample ────────────────────────────────────────────────────────────────────

// SampleStep derives st.Factor from the probed dimensions and the bounds.
// It performs no I/O.
type SampleStep struct{}

func (s *SampleStep) Name() string { return "sample" }

func (s *SampleStep) Execute(_ context.Context, st *core.DecodeState) (*core.DecodeState, error) {
	if !st.Meta.Valid() {
		return nil, apperrors.New(apperrors.CategoryPipeline, s.Name(),
			fmt.Errorf("%w: dimensions not probed", apperrors.ErrEmptyInput))
	}
	out := *st
	out.Factor = core.ComputeSampleFactor(st.Meta.Dimensions, st.Bounds)
	return &out, nil
}

// ── Decode ────────────────────────────────────────────────────────────────────

// DecodeStep decodes the source at st.Factor into st.Image.
type DecodeStep struct {
	Engine Engine
}

func (s *DecodeStep) Name() string { return "decode" }

func (s *DecodeStep) Execute(ctx context.Context, st *core.DecodeState) (*core.DecodeState, error) {
	factor := st.Factor
	if factor == 0 {
		factor = 1
	}
	img, err := s.Engine.Decode(ctx, st.Source, factor)
	if err != nil {
		return nil, err
	}
	out := *st
	out.Factor = factor
	out.Image = img
	return &out, nil
}
