package imagery

import (
	"fmt"
	"math"
	"math/bits"
)

// Metric is the distance metric native to a descriptor format. A
// detector and its metric travel together: binary descriptors are
// compared under Hamming distance, float descriptors under Euclidean.
type Metric int

const (
	MetricHamming Metric = iota
	MetricEuclidean
)

func (m Metric) String() string {
	if m == MetricEuclidean {
		return "euclidean"
	}
	return "hamming"
}

// Keypoint is a detected, repeatable image location.
type Keypoint struct {
	X, Y  float64
	Score float64
}

// DescriptorSet holds the keypoints and descriptors extracted from one
// image. Exactly one of Binary/Float is populated, per Metric. A
// DescriptorSet is valid only for the grouping pass that produced it.
type DescriptorSet struct {
	ImageID   string
	Metric    Metric
	Keypoints []Keypoint
	Binary    [][]byte
	Float     [][]float32
}

// Len returns the number of descriptors in the set.
func (ds *DescriptorSet) Len() int {
	if ds == nil {
		return 0
	}
	if ds.Metric == MetricEuclidean {
		return len(ds.Float)
	}
	return len(ds.Binary)
}

// distance computes the native-metric distance between descriptor i of
// the receiver and descriptor j of other. Both sets must share a
// metric; callers guarantee index validity.
func (ds *DescriptorSet) distance(i int, other *DescriptorSet, j int) float64 {
	if ds.Metric == MetricEuclidean {
		a, b := ds.Float[i], other.Float[j]
		var sum float64
		for k := range a {
			d := float64(a[k]) - float64(b[k])
			sum += d * d
		}
		return math.Sqrt(sum)
	}
	a, b := ds.Binary[i], other.Binary[j]
	var h int
	for k := range a {
		h += bits.OnesCount8(a[k] ^ b[k])
	}
	return float64(h)
}

// Detector is the pluggable feature-extraction capability. An
// implementation carries both its feature algorithm and its native
// distance metric; the two are never decoupled. Selection between
// implementations is configuration, not core logic.
type Detector interface {
	Name() string
	DetectAndDescribe(img *Image) (*DescriptorSet, error)
}

// NewDetector constructs a built-in detector by configuration name:
// "binary" (Hamming descriptors) or "float" (Euclidean descriptors).
func NewDetector(kind string, params DetectorParams) (Detector, error) {
	switch kind {
	case "binary", "":
		return &PatchDetector{metric: MetricHamming, params: params}, nil
	case "float":
		return &PatchDetector{metric: MetricEuclidean, params: params}, nil
	}
	return nil, fmt.Errorf("imagery: unknown detector kind %q", kind)
}
