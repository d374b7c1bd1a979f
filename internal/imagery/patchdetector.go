package imagery

import (
	"image"
	"math"
	"math/rand"
	"sort"

	xdraw "golang.org/x/image/draw"
)

// Built-in detector constants.
const (
	// DefaultMaxKeypoints caps the keypoint count per image.
	DefaultMaxKeypoints = 500
	// DefaultCornerThreshold is the minimum intensity contrast between a
	// candidate corner and its sampling ring.
	DefaultCornerThreshold = 20.0
	// DefaultDetectCellSize is the non-maximum-suppression cell size in
	// pixels; at most one keypoint survives per cell.
	DefaultDetectCellSize = 16
	// DefaultMaxDetectSide is the longest image side allowed into
	// feature extraction; larger inputs are downscaled first.
	DefaultMaxDetectSide = 1600

	// descriptorBits is the binary descriptor width.
	descriptorBits = 256
	// floatDescriptorDims is the float descriptor width (8×8 patch).
	floatDescriptorDims = 64
	// patchBorder keeps sampling windows inside the image.
	patchBorder = 8
	// ringArcMin is the minimum run of consistently brighter/darker ring
	// samples for a corner.
	ringArcMin = 6
)

// ringOffsets samples a radius-3 circle around a candidate corner.
var ringOffsets = [8][2]int{
	{3, 0}, {2, 2}, {0, 3}, {-2, 2}, {-3, 0}, {-2, -2}, {0, -3}, {2, -2},
}

// briefPairs holds the fixed point-pair sampling pattern for the binary
// descriptor. Generated once from a fixed seed so descriptors are
// reproducible across runs and platforms.
var briefPairs [descriptorBits][4]int

func init() {
	rng := rand.New(rand.NewSource(0x5747)) // fixed pattern seed
	for i := range briefPairs {
		for j := 0; j < 4; j++ {
			briefPairs[i][j] = rng.Intn(15) - 7
		}
	}
}

// DetectorParams tunes the built-in patch detector.
type DetectorParams struct {
	MaxKeypoints    int
	CornerThreshold float64
	CellSize        int
	MaxDetectSide   int
}

// DefaultDetectorParams returns the parameters used when the caller
// supplies none.
func DefaultDetectorParams() DetectorParams {
	return DetectorParams{
		MaxKeypoints:    DefaultMaxKeypoints,
		CornerThreshold: DefaultCornerThreshold,
		CellSize:        DefaultDetectCellSize,
		MaxDetectSide:   DefaultMaxDetectSide,
	}
}

func (p DetectorParams) withDefaults() DetectorParams {
	if p.MaxKeypoints <= 0 {
		p.MaxKeypoints = DefaultMaxKeypoints
	}
	if p.CornerThreshold <= 0 {
		p.CornerThreshold = DefaultCornerThreshold
	}
	if p.CellSize <= 0 {
		p.CellSize = DefaultDetectCellSize
	}
	if p.MaxDetectSide <= 0 {
		p.MaxDetectSide = DefaultMaxDetectSide
	}
	return p
}

// PatchDetector is the built-in Detector: ring-contrast corner scoring
// on the intensity plane with per-cell non-maximum suppression, then
// either binary point-pair descriptors (Hamming) or normalized patch
// descriptors (Euclidean) depending on the configured metric.
type PatchDetector struct {
	metric Metric
	params DetectorParams
}

func (d *PatchDetector) Name() string {
	if d.metric == MetricEuclidean {
		return "patch-float"
	}
	return "patch-binary"
}

// DetectAndDescribe extracts keypoints and descriptors from one image.
// Output order is deterministic: keypoints sorted by (y, x).
func (d *PatchDetector) DetectAndDescribe(img *Image) (*DescriptorSet, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	p := d.params.withDefaults()

	work := downscaleForDetect(img, p.MaxDetectSide)
	gray := work.Gray()
	kps := detectCorners(gray, work.W, work.H, p)

	ds := &DescriptorSet{ImageID: img.ID, Metric: d.metric, Keypoints: kps}
	if d.metric == MetricEuclidean {
		ds.Float = make([][]float32, len(kps))
		for i, kp := range kps {
			ds.Float[i] = floatPatchDescriptor(gray, work.W, int(kp.X), int(kp.Y))
		}
	} else {
		ds.Binary = make([][]byte, len(kps))
		for i, kp := range kps {
			ds.Binary[i] = binaryPatchDescriptor(gray, work.W, int(kp.X), int(kp.Y))
		}
	}
	return ds, nil
}

// detectCorners scores every interior pixel with a ring-contrast test
// and keeps the best candidate per suppression cell, capped at
// MaxKeypoints by score.
func detectCorners(gray []float64, w, h int, p DetectorParams) []Keypoint {
	if w <= 2*patchBorder || h <= 2*patchBorder {
		return nil
	}

	cellsX := (w + p.CellSize - 1) / p.CellSize
	cellsY := (h + p.CellSize - 1) / p.CellSize
	best := make([]Keypoint, cellsX*cellsY)
	found := make([]bool, cellsX*cellsY)

	for y := patchBorder; y < h-patchBorder; y++ {
		for x := patchBorder; x < w-patchBorder; x++ {
			center := gray[y*w+x]
			brighter, darker := 0, 0
			var score float64
			for _, off := range ringOffsets {
				s := gray[(y+off[1])*w+x+off[0]]
				diff := s - center
				if diff > p.CornerThreshold {
					brighter++
					score += diff
				} else if diff < -p.CornerThreshold {
					darker++
					score -= diff
				}
			}
			if brighter < ringArcMin && darker < ringArcMin {
				continue
			}
			cell := (y/p.CellSize)*cellsX + x/p.CellSize
			if !found[cell] || score > best[cell].Score {
				best[cell] = Keypoint{X: float64(x), Y: float64(y), Score: score}
				found[cell] = true
			}
		}
	}

	kps := make([]Keypoint, 0, len(best))
	for i, ok := range found {
		if ok {
			kps = append(kps, best[i])
		}
	}
	sort.Slice(kps, func(i, j int) bool { return kps[i].Score > kps[j].Score })
	if len(kps) > p.MaxKeypoints {
		kps = kps[:p.MaxKeypoints]
	}
	// Stable output order regardless of score ties.
	sort.Slice(kps, func(i, j int) bool {
		if kps[i].Y != kps[j].Y {
			return kps[i].Y < kps[j].Y
		}
		return kps[i].X < kps[j].X
	})
	return kps
}

// binaryPatchDescriptor builds a 256-bit descriptor from fixed
// intensity comparisons inside a 15×15 window around (x, y).
func binaryPatchDescriptor(gray []float64, w, x, y int) []byte {
	desc := make([]byte, descriptorBits/8)
	for i, pair := range briefPairs {
		a := gray[(y+pair[1])*w+x+pair[0]]
		b := gray[(y+pair[3])*w+x+pair[2]]
		if a < b {
			desc[i/8] |= 1 << (i % 8)
		}
	}
	return desc
}

// floatPatchDescriptor samples an 8×8 patch at stride 2 from the 16×16
// window around (x, y), mean-subtracted and L2-normalized.
func floatPatchDescriptor(gray []float64, w, x, y int) []float32 {
	var samples [floatDescriptorDims]float64
	var mean float64
	i := 0
	for dy := -8; dy < 8; dy += 2 {
		for dx := -8; dx < 8; dx += 2 {
			v := gray[(y+dy)*w+x+dx]
			samples[i] = v
			mean += v
			i++
		}
	}
	mean /= floatDescriptorDims

	var norm float64
	for i := range samples {
		samples[i] -= mean
		norm += samples[i] * samples[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}

	desc := make([]float32, floatDescriptorDims)
	for i := range samples {
		desc[i] = float32(samples[i] / norm)
	}
	return desc
}

// downscaleForDetect shrinks oversized inputs before feature
// extraction so the O(W·H) corner pass and the O(N²) matching stay
// bounded. Keypoint coordinates are only consumed within one grouping
// pass, so no back-projection to the original scale is needed.
func downscaleForDetect(img *Image, maxSide int) *Image {
	longest := img.W
	if img.H > longest {
		longest = img.H
	}
	if longest <= maxSide {
		return img
	}
	scale := float64(maxSide) / float64(longest)
	dstW := int(float64(img.W) * scale)
	dstH := int(float64(img.H) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}
	src := img.ToNRGBA()
	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	out := FromNRGBA(img.ID, dst)
	if img.C == 1 {
		return toGrayImage(out)
	}
	return out
}

func toGrayImage(im *Image) *Image {
	out := NewImage(im.ID, im.W, im.H, 1)
	g := im.Gray()
	for i, v := range g {
		out.Pix[i] = uint8(math.Round(v))
	}
	return out
}
