// Package imagery implements the stitching core: feature-based
// connectivity grouping of an unordered image batch, translational
// overlap detection, sequential alpha blending, grid composition, and
// the orchestrator that ties them to an opaque primary stitcher.
//
// The core is single-threaded, synchronous and deterministic. It never
// touches the filesystem; callers hand it decoded pixel buffers and
// receive composites or discarded-set membership back.
package imagery

import (
	"errors"
	"fmt"
	"image"
)

// Errors returned for structurally invalid input. Everything else in
// the pipeline is absorbed into data (discarded sets, zero-confidence
// overlaps) rather than surfaced as errors.
var ErrEmptyImage = errors.New("imagery: image has zero width or height")

// Axis selects the direction a sequential blend grows in.
// Vertical means the next image attaches below the composite;
// horizontal means it attaches to the right.
type Axis int

const (
	AxisVertical Axis = iota
	AxisHorizontal
)

func (a Axis) String() string {
	if a == AxisHorizontal {
		return "horizontal"
	}
	return "vertical"
}

// Image is a read-only H×W×C 8-bit pixel buffer with an opaque
// caller-supplied identifier. C is 1 (grayscale) or 3 (RGB). Pix is
// row-major, channel-interleaved, len H*W*C. The core never mutates an
// Image it is handed; composites are always freshly allocated.
type Image struct {
	ID  string
	W   int
	H   int
	C   int
	Pix []uint8
}

// NewImage allocates a zero-filled image buffer.
func NewImage(id string, w, h, c int) *Image {
	return &Image{ID: id, W: w, H: h, C: c, Pix: make([]uint8, w*h*c)}
}

// Validate rejects structurally invalid buffers before any feature
// extraction or compositing sees them.
func (im *Image) Validate() error {
	if im == nil {
		return fmt.Errorf("imagery: nil image: %w", ErrEmptyImage)
	}
	if im.W <= 0 || im.H <= 0 {
		return fmt.Errorf("imagery: image %q is %dx%d: %w", im.ID, im.W, im.H, ErrEmptyImage)
	}
	if im.C != 1 && im.C != 3 {
		return fmt.Errorf("imagery: image %q has unsupported channel count %d", im.ID, im.C)
	}
	if len(im.Pix) != im.W*im.H*im.C {
		return fmt.Errorf("imagery: image %q buffer length %d, want %d", im.ID, len(im.Pix), im.W*im.H*im.C)
	}
	return nil
}

// At returns the value of channel c at (x, y). No bounds checking
// beyond the slice's own; callers stay inside the image.
func (im *Image) At(x, y, c int) uint8 {
	return im.Pix[(y*im.W+x)*im.C+c]
}

func (im *Image) set(x, y, c int, v uint8) {
	im.Pix[(y*im.W+x)*im.C+c] = v
}

// Extent returns the image's size along the given axis:
// height for vertical, width for horizontal.
func (im *Image) Extent(axis Axis) int {
	if axis == AxisHorizontal {
		return im.W
	}
	return im.H
}

// Gray returns the single-channel intensity plane as float64 values in
// [0, 255], row-major. RGB collapses with the usual luma weights.
func (im *Image) Gray() []float64 {
	out := make([]float64, im.W*im.H)
	if im.C == 1 {
		for i, v := range im.Pix {
			out[i] = float64(v)
		}
		return out
	}
	for i := 0; i < im.W*im.H; i++ {
		r := float64(im.Pix[i*3])
		g := float64(im.Pix[i*3+1])
		b := float64(im.Pix[i*3+2])
		out[i] = 0.299*r + 0.587*g + 0.114*b
	}
	return out
}

// Clone returns a deep copy sharing no pixel storage.
func (im *Image) Clone() *Image {
	out := &Image{ID: im.ID, W: im.W, H: im.H, C: im.C, Pix: make([]uint8, len(im.Pix))}
	copy(out.Pix, im.Pix)
	return out
}

// transpose returns a new image with rows and columns swapped. Used to
// reduce horizontal-axis operations to the vertical case.
func (im *Image) transpose() *Image {
	out := NewImage(im.ID, im.H, im.W, im.C)
	for y := 0; y < im.H; y++ {
		for x := 0; x < im.W; x++ {
			for c := 0; c < im.C; c++ {
				out.set(y, x, c, im.At(x, y, c))
			}
		}
	}
	return out
}

// expandChannels returns the image widened to c channels (gray → RGB by
// replication). Returns the receiver unchanged when already at c.
func (im *Image) expandChannels(c int) *Image {
	if im.C == c {
		return im
	}
	out := NewImage(im.ID, im.W, im.H, c)
	for y := 0; y < im.H; y++ {
		for x := 0; x < im.W; x++ {
			v := im.At(x, y, 0)
			for k := 0; k < c; k++ {
				out.set(x, y, k, v)
			}
		}
	}
	return out
}

// padOrtho returns the image zero-padded (trailing fill) to the given
// extent on the axis orthogonal to the blend axis. For a vertical blend
// that is the width; for horizontal the height. Returns the receiver
// unchanged when no padding is needed.
func (im *Image) padOrtho(axis Axis, extent int) *Image {
	if axis == AxisHorizontal {
		if im.H >= extent {
			return im
		}
		out := NewImage(im.ID, im.W, extent, im.C)
		copy(out.Pix, im.Pix)
		return out
	}
	if im.W >= extent {
		return im
	}
	out := NewImage(im.ID, extent, im.H, im.C)
	rowIn := im.W * im.C
	rowOut := extent * im.C
	for y := 0; y < im.H; y++ {
		copy(out.Pix[y*rowOut:y*rowOut+rowIn], im.Pix[y*rowIn:(y+1)*rowIn])
	}
	return out
}

// FromNRGBA converts a decoded stdlib image into an Image buffer,
// dropping alpha. The identifier is caller-supplied.
func FromNRGBA(id string, src *image.NRGBA) *Image {
	b := src.Bounds()
	out := NewImage(id, b.Dx(), b.Dy(), 3)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			out.set(x, y, 0, src.Pix[i])
			out.set(x, y, 1, src.Pix[i+1])
			out.set(x, y, 2, src.Pix[i+2])
		}
	}
	return out
}

// ToNRGBA converts an Image buffer back to a stdlib image for encoding.
func (im *Image) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, im.W, im.H))
	for y := 0; y < im.H; y++ {
		for x := 0; x < im.W; x++ {
			i := out.PixOffset(x, y)
			if im.C == 1 {
				v := im.At(x, y, 0)
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = v, v, v
			} else {
				out.Pix[i] = im.At(x, y, 0)
				out.Pix[i+1] = im.At(x, y, 1)
				out.Pix[i+2] = im.At(x, y, 2)
			}
			out.Pix[i+3] = 0xff
		}
	}
	return out
}
