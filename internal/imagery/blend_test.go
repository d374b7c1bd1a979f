package imagery

import (
	"bytes"
	"context"
	"testing"
)

func TestSequentialBlender_PlantedOverlapChain(t *testing.T) {
	// Scenario: two images sharing a clean 40 px vertical overlap.
	master := noiseImage("master", 64, 200, 1, 21)
	base := sliceRows(master, "base", 0, 120)
	next := sliceRows(master, "next", 80, 200)

	b := NewSequentialBlender(DefaultBlendParams())
	out, err := b.Stitch(context.Background(), []*Image{base, next}, AxisVertical, nil)
	if err != nil {
		t.Fatal(err)
	}

	if out.H != 120+120-40 {
		t.Fatalf("composite height = %d, want %d", out.H, 120+120-40)
	}
	if out.W != 64 {
		t.Errorf("composite width = %d, want 64", out.W)
	}

	// Before the band the composite is the base, untouched.
	for y := 0; y < 80; y++ {
		for x := 0; x < 64; x++ {
			if out.At(x, y, 0) != base.At(x, y, 0) {
				t.Fatalf("row %d: composite differs from base before the blend band", y)
			}
		}
	}
	// After the band it is the incoming image, untouched.
	for y := 120; y < out.H; y++ {
		for x := 0; x < 64; x++ {
			if out.At(x, y, 0) != next.At(x, y-80, 0) {
				t.Fatalf("row %d: composite differs from next after the blend band", y)
			}
		}
	}
	// Inside the band both sources agree (same noise field), so the
	// blend must reproduce them exactly.
	for y := 80; y < 120; y++ {
		for x := 0; x < 64; x++ {
			if out.At(x, y, 0) != base.At(x, y, 0) {
				t.Fatalf("row %d: blend of identical bands must be lossless", y)
			}
		}
	}
}

func TestMergeVertical_BlendContinuity(t *testing.T) {
	base := NewImage("base", 16, 60, 1)
	next := NewImage("next", 16, 60, 1)
	for i := range base.Pix {
		base.Pix[i] = 100
	}
	for i := range next.Pix {
		next.Pix[i] = 200
	}

	const overlap = 40
	out := mergeVertical(base, next, overlap)
	if out.H != 60+60-overlap {
		t.Fatalf("height = %d, want %d", out.H, 60+60-overlap)
	}

	firstBlend := out.At(8, 60-overlap, 0)
	if firstBlend != 100 {
		t.Errorf("first blended row = %d, want exactly the base value 100", firstBlend)
	}
	lastBlend := out.At(8, 59, 0)
	if lastBlend < 195 {
		t.Errorf("last blended row = %d, want near the incoming value 200", lastBlend)
	}
	// The ramp is monotone from base toward incoming.
	prev := uint8(100)
	for y := 60 - overlap; y < 60; y++ {
		v := out.At(8, y, 0)
		if v < prev {
			t.Fatalf("row %d: blend ramp not monotone (%d < %d)", y, v, prev)
		}
		prev = v
	}
}

func TestSequentialBlender_NoOverlapConcatenates(t *testing.T) {
	// Unrelated noise: confidence stays under threshold, so the blender
	// concatenates with zero blending.
	a := noiseImage("a", 32, 100, 1, 31)
	b := noiseImage("b", 32, 80, 1, 32)

	blender := NewSequentialBlender(DefaultBlendParams())
	out, err := blender.Stitch(context.Background(), []*Image{a, b}, AxisVertical, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.H != 180 {
		t.Fatalf("concat height = %d, want 180", out.H)
	}
	for y := 0; y < 100; y++ {
		if out.At(5, y, 0) != a.At(5, y, 0) {
			t.Fatalf("row %d: concatenation altered the base", y)
		}
	}
	for y := 100; y < 180; y++ {
		if out.At(5, y, 0) != b.At(5, y-100, 0) {
			t.Fatalf("row %d: concatenation altered the appended image", y)
		}
	}
}

func TestSequentialBlender_WidthPadding(t *testing.T) {
	a := noiseImage("a", 30, 100, 1, 41)
	b := noiseImage("b", 50, 100, 1, 42)

	blender := NewSequentialBlender(DefaultBlendParams())
	out, err := blender.Stitch(context.Background(), []*Image{a, b}, AxisVertical, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.W != 50 {
		t.Errorf("composite width = %d, want the padded maximum 50", out.W)
	}
	// a's rows are zero-padded on the right.
	if got := out.At(45, 10, 0); got != 0 {
		t.Errorf("padding pixel = %d, want 0", got)
	}
}

func TestSequentialBlender_Horizontal(t *testing.T) {
	master := noiseImage("master", 64, 200, 1, 51)
	base := sliceRows(master, "base", 0, 120).transpose()
	next := sliceRows(master, "next", 80, 200).transpose()

	blender := NewSequentialBlender(DefaultBlendParams())
	out, err := blender.Stitch(context.Background(), []*Image{base, next}, AxisHorizontal, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.W != 120+120-40 {
		t.Errorf("horizontal composite width = %d, want %d", out.W, 200)
	}
	if out.H != 64 {
		t.Errorf("horizontal composite height = %d, want 64", out.H)
	}
}

func TestSequentialBlender_Deterministic(t *testing.T) {
	master := noiseImage("master", 48, 300, 3, 61)
	images := []*Image{
		sliceRows(master, "one", 0, 120),
		sliceRows(master, "two", 80, 200),
		sliceRows(master, "three", 160, 300),
	}
	blender := NewSequentialBlender(DefaultBlendParams())

	first, err := blender.Stitch(context.Background(), images, AxisVertical, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := blender.Stitch(context.Background(), images, AxisVertical, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Pix, second.Pix) || first.W != second.W || first.H != second.H {
		t.Error("identical inputs and order must produce byte-identical composites")
	}

	// Chain length invariant: the composite never exceeds the summed
	// extents along the blend axis.
	if first.H > 120+120+140 {
		t.Errorf("composite height %d exceeds summed input heights", first.H)
	}
}

func TestSequentialBlender_EdgeInputs(t *testing.T) {
	blender := NewSequentialBlender(DefaultBlendParams())

	if _, err := blender.Stitch(context.Background(), nil, AxisVertical, nil); err == nil {
		t.Error("empty sequence must error")
	}

	single := noiseImage("solo", 32, 40, 1, 71)
	out, err := blender.Stitch(context.Background(), []*Image{single}, AxisVertical, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.W != 32 || out.H != 40 {
		t.Errorf("single image composite = %dx%d, want 32x40", out.W, out.H)
	}

	bad := &Image{ID: "bad", W: 4, H: 0, C: 1}
	if _, err := blender.Stitch(context.Background(), []*Image{single, bad}, AxisVertical, nil); err == nil {
		t.Error("structurally invalid image must be rejected")
	}
}

func TestSequentialBlender_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	blender := NewSequentialBlender(DefaultBlendParams())
	images := []*Image{noiseImage("a", 32, 60, 1, 81), noiseImage("b", 32, 60, 1, 82)}
	if _, err := blender.Stitch(ctx, images, AxisVertical, nil); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
