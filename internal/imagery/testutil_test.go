package imagery

import (
	"fmt"
	"math/rand"
)

// noiseImage builds a deterministic pseudo-random image. Noise gives
// the correlation search unambiguous peaks.
func noiseImage(id string, w, h, c int, seed int64) *Image {
	rng := rand.New(rand.NewSource(seed))
	im := NewImage(id, w, h, c)
	for i := range im.Pix {
		im.Pix[i] = uint8(rng.Intn(256))
	}
	return im
}

// sliceRows copies rows [from, to) of src into a new image.
func sliceRows(src *Image, id string, from, to int) *Image {
	out := NewImage(id, src.W, to-from, src.C)
	rowBytes := src.W * src.C
	copy(out.Pix, src.Pix[from*rowBytes:to*rowBytes])
	return out
}

// randomBinarySet builds n random 32-byte descriptors. Random 256-bit
// strings sit ~128 bits apart, so planted duplicates across sets are
// unambiguous matches.
func randomBinarySet(imageID string, n int, seed int64) *DescriptorSet {
	rng := rand.New(rand.NewSource(seed))
	ds := &DescriptorSet{ImageID: imageID, Metric: MetricHamming}
	for i := 0; i < n; i++ {
		d := make([]byte, 32)
		rng.Read(d)
		ds.Binary = append(ds.Binary, d)
		ds.Keypoints = append(ds.Keypoints, Keypoint{X: float64(i), Y: float64(i)})
	}
	return ds
}

// plantMatches copies k descriptors from a into b (appended), so the
// two sets share exactly k mutual nearest neighbors.
func plantMatches(a, b *DescriptorSet, k int) {
	for i := 0; i < k; i++ {
		d := make([]byte, len(a.Binary[i]))
		copy(d, a.Binary[i])
		b.Binary = append(b.Binary, d)
		b.Keypoints = append(b.Keypoints, Keypoint{X: float64(len(b.Binary)), Y: 0})
	}
}

// stubDetector serves canned descriptor sets keyed by image ID, and
// can simulate per-image detector failures.
type stubDetector struct {
	sets map[string]*DescriptorSet
	fail map[string]bool
}

func (d *stubDetector) Name() string { return "stub" }

func (d *stubDetector) DetectAndDescribe(img *Image) (*DescriptorSet, error) {
	if d.fail[img.ID] {
		return nil, fmt.Errorf("stub detector failure for %s", img.ID)
	}
	ds, ok := d.sets[img.ID]
	if !ok {
		return &DescriptorSet{ImageID: img.ID, Metric: MetricHamming}, nil
	}
	return ds, nil
}

// smallImage is a minimal structurally valid image for grouper and
// orchestrator tests that drive a stub detector.
func smallImage(id string) *Image {
	return NewImage(id, 4, 4, 1)
}
