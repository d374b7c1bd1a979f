package imagery

import (
	"fmt"
	"math"
)

// GridCompositor tiles an unordered image list into a square-ish grid
// with no alignment or blending: cols = ⌈√N⌉, rows = ⌈N/cols⌉, every
// cell sized to the batch maxima, each image centered on zero padding
// in its row-major cell. Trailing cells stay blank.
type GridCompositor struct{}

// Compose builds the grid canvas. All N inputs land unclipped.
func (GridCompositor) Compose(images []*Image) (*Image, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("imagery: grid of empty list")
	}

	channels := 1
	cellW, cellH := 0, 0
	for _, im := range images {
		if err := im.Validate(); err != nil {
			return nil, err
		}
		if im.W > cellW {
			cellW = im.W
		}
		if im.H > cellH {
			cellH = im.H
		}
		if im.C > channels {
			channels = im.C
		}
	}

	n := len(images)
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols

	out := NewImage(images[0].ID, cols*cellW, rows*cellH, channels)
	for idx, im := range images {
		im = im.expandChannels(channels)
		originX := (idx%cols)*cellW + (cellW-im.W)/2
		originY := (idx/cols)*cellH + (cellH-im.H)/2
		rowBytes := im.W * channels
		for y := 0; y < im.H; y++ {
			dst := ((originY+y)*out.W + originX) * channels
			copy(out.Pix[dst:dst+rowBytes], im.Pix[y*rowBytes:(y+1)*rowBytes])
		}
	}
	return out, nil
}
