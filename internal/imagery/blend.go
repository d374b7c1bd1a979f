package imagery

import (
	"context"
	"fmt"
	"math"
)

// Blend policy defaults. An overlap is only blended when the
// correlation peak is confident and wide enough to be worth a ramp;
// anything weaker falls back to plain concatenation.
const (
	DefaultConfidenceThreshold = 0.6
	DefaultMinBlendOverlapPx   = 10
)

// BlendParams tunes the sequential blender and its overlap search.
type BlendParams struct {
	Overlap             OverlapParams
	ConfidenceThreshold float64
	MinOverlapPx        int
}

// DefaultBlendParams returns the stock blending policy.
func DefaultBlendParams() BlendParams {
	return BlendParams{
		Overlap:             DefaultOverlapParams(),
		ConfidenceThreshold: DefaultConfidenceThreshold,
		MinOverlapPx:        DefaultMinBlendOverlapPx,
	}
}

// SequentialBlender chains an ordered image sequence along one axis.
// Each step locates the next image's overlap against the running
// composite and either alpha-blends the overlap band or concatenates
// outright. The composite buffer is replaced at every step, never
// aliased, so a run exclusively owns its canvas.
//
// Identical inputs in identical order always produce byte-identical
// output.
type SequentialBlender struct {
	params BlendParams
}

// NewSequentialBlender creates a blender; zero-valued params fall back
// to defaults.
func NewSequentialBlender(params BlendParams) *SequentialBlender {
	if params.ConfidenceThreshold <= 0 {
		params.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if params.MinOverlapPx <= 0 {
		params.MinOverlapPx = DefaultMinBlendOverlapPx
	}
	params.Overlap = params.Overlap.withDefaults()
	return &SequentialBlender{params: params}
}

// Stitch merges the sequence into one composite. The context is
// checked between merge steps; progress fires once per merge. The
// composite's extent along the blend axis never exceeds the sum of the
// input extents.
func (b *SequentialBlender) Stitch(ctx context.Context, images []*Image, axis Axis, progress ProgressFunc) (*Image, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("imagery: blend of empty sequence")
	}
	for _, im := range images {
		if err := im.Validate(); err != nil {
			return nil, err
		}
	}

	// Reduce the horizontal case to the vertical one.
	if axis == AxisHorizontal {
		transposed := make([]*Image, len(images))
		for i, im := range images {
			transposed[i] = im.transpose()
		}
		out, err := b.Stitch(ctx, transposed, AxisVertical, progress)
		if err != nil {
			return nil, err
		}
		return out.transpose(), nil
	}

	channels := 1
	for _, im := range images {
		if im.C > channels {
			channels = im.C
		}
	}

	// The canvas is exclusively owned by this run; never alias the
	// caller's buffer.
	composite := images[0].expandChannels(channels)
	if composite == images[0] {
		composite = composite.Clone()
	}
	for i := 1; i < len(images); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		notify(progress, i, len(images)-1, fmt.Sprintf("merging image %d/%d", i+1, len(images)))

		next := images[i].expandChannels(channels)
		res := LocateOverlap(composite, next, AxisVertical, b.params.Overlap)
		overlap := 0
		if res.Found && res.Confidence > b.params.ConfidenceThreshold && res.OverlapPx > b.params.MinOverlapPx {
			overlap = res.OverlapPx
		}
		composite = mergeVertical(composite, next, overlap)
	}
	return composite, nil
}

// mergeVertical appends next below base with the given overlap band.
// The two are zero-padded to a common width first. Inside the band the
// incoming image's weight ramps linearly from 0 on the first blended
// row to (overlap−1)/overlap on the last, so the band opens on exactly
// the base pixels and closes arbitrarily near the incoming ones.
// overlap == 0 is plain concatenation.
func mergeVertical(base, next *Image, overlap int) *Image {
	width := base.W
	if next.W > width {
		width = next.W
	}
	base = base.padOrtho(AxisVertical, width)
	next = next.padOrtho(AxisVertical, width)

	if overlap > base.H {
		overlap = base.H
	}
	if overlap > next.H {
		overlap = next.H
	}

	out := NewImage(base.ID, width, base.H+next.H-overlap, base.C)
	rowBytes := width * base.C

	// Rows before the band: base unchanged.
	copy(out.Pix[:(base.H-overlap)*rowBytes], base.Pix[:(base.H-overlap)*rowBytes])

	// The band: linear ramp between the trailing base rows and the
	// leading next rows.
	for i := 0; i < overlap; i++ {
		alpha := float64(i) / float64(overlap)
		baseRow := (base.H - overlap + i) * rowBytes
		nextRow := i * rowBytes
		outRow := baseRow
		for k := 0; k < rowBytes; k++ {
			v := (1-alpha)*float64(base.Pix[baseRow+k]) + alpha*float64(next.Pix[nextRow+k])
			out.Pix[outRow+k] = uint8(math.Round(v))
		}
	}

	// Rows after the band: next unchanged.
	copy(out.Pix[base.H*rowBytes:], next.Pix[overlap*rowBytes:])
	return out
}
