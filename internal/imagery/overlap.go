package imagery

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Overlap search defaults. The search band covers the trailing half of
// the base image, the template band the leading 30% of the next image.
const (
	DefaultSearchFraction   = 0.5
	DefaultTemplateFraction = 0.3
	DefaultTemplateCapPx    = 300
	DefaultMinBandPx        = 10
	// DefaultMinCorrelatePx short-circuits correlation when either band
	// is too thin to produce a meaningful peak.
	DefaultMinCorrelatePx = 20
)

// OverlapParams tunes the translational overlap search.
type OverlapParams struct {
	SearchFraction   float64
	TemplateFraction float64
	TemplateCapPx    int
	MinBandPx        int
	MinCorrelatePx   int
}

// DefaultOverlapParams returns the stock band sizing.
func DefaultOverlapParams() OverlapParams {
	return OverlapParams{
		SearchFraction:   DefaultSearchFraction,
		TemplateFraction: DefaultTemplateFraction,
		TemplateCapPx:    DefaultTemplateCapPx,
		MinBandPx:        DefaultMinBandPx,
		MinCorrelatePx:   DefaultMinCorrelatePx,
	}
}

func (p OverlapParams) withDefaults() OverlapParams {
	if p.SearchFraction <= 0 {
		p.SearchFraction = DefaultSearchFraction
	}
	if p.TemplateFraction <= 0 {
		p.TemplateFraction = DefaultTemplateFraction
	}
	if p.TemplateCapPx <= 0 {
		p.TemplateCapPx = DefaultTemplateCapPx
	}
	if p.MinBandPx <= 0 {
		p.MinBandPx = DefaultMinBandPx
	}
	if p.MinCorrelatePx <= 0 {
		p.MinCorrelatePx = DefaultMinCorrelatePx
	}
	return p
}

// OverlapResult reports a translational overlap between two images
// along one axis. OverlapPx never exceeds the smaller of the two
// compared extents (the search band is bounded by the base image, the
// result by the incoming image). Confidence is the peak normalized
// cross-correlation, typically in [-1, 1]; degenerate inputs yield
// {false, 0, 0}.
type OverlapResult struct {
	Found      bool
	OverlapPx  int
	Confidence float64
}

// overlapBands holds the grayscale search and template bands, cropped
// to a common orthogonal width and flattened row-major.
type overlapBands struct {
	search     []float64
	template   []float64
	width      int
	searchLen  int
	templLen   int
	nextExtent int
}

// extractBands converts both images to intensity and cuts the trailing
// search band from base and the leading template band from next.
// Returns ok=false when either band falls under the correlation
// minimum, per the degenerate-region policy.
func extractBands(base, next *Image, axis Axis, p OverlapParams) (overlapBands, bool) {
	if axis == AxisHorizontal {
		base = base.transpose()
		next = next.transpose()
	}

	searchLen := int(p.SearchFraction * float64(base.H))
	if searchLen < p.MinBandPx {
		searchLen = p.MinBandPx
	}
	if searchLen > base.H {
		searchLen = base.H
	}

	templLen := int(p.TemplateFraction * float64(next.H))
	if templLen < p.MinBandPx {
		templLen = p.MinBandPx
	}
	if templLen > p.TemplateCapPx {
		templLen = p.TemplateCapPx
	}
	if templLen > next.H {
		templLen = next.H
	}
	if templLen > searchLen {
		templLen = searchLen
	}

	if searchLen < p.MinCorrelatePx || templLen < p.MinCorrelatePx {
		return overlapBands{}, false
	}

	width := base.W
	if next.W < width {
		width = next.W
	}
	if width < 1 {
		return overlapBands{}, false
	}

	baseGray := base.Gray()
	nextGray := next.Gray()

	search := make([]float64, searchLen*width)
	for r := 0; r < searchLen; r++ {
		srcRow := (base.H - searchLen + r) * base.W
		copy(search[r*width:(r+1)*width], baseGray[srcRow:srcRow+width])
	}
	template := make([]float64, templLen*width)
	for r := 0; r < templLen; r++ {
		srcRow := r * next.W
		copy(template[r*width:(r+1)*width], nextGray[srcRow:srcRow+width])
	}

	return overlapBands{
		search:     search,
		template:   template,
		width:      width,
		searchLen:  searchLen,
		templLen:   templLen,
		nextExtent: next.H,
	}, true
}

// LocateOverlap finds the translational overlap of next against the
// trailing edge of base along the given axis. The template band slides
// inside the search band along the axis only; the peak Pearson
// correlation decides both the overlap extent and the confidence.
func LocateOverlap(base, next *Image, axis Axis, p OverlapParams) OverlapResult {
	p = p.withDefaults()
	bands, ok := extractBands(base, next, axis, p)
	if !ok {
		return OverlapResult{}
	}

	bestOffset, bestCorr := -1, math.Inf(-1)
	window := bands.templLen * bands.width
	for d := 0; d+bands.templLen <= bands.searchLen; d++ {
		corr := stat.Correlation(bands.template, bands.search[d*bands.width:d*bands.width+window], nil)
		if math.IsNaN(corr) {
			continue
		}
		if corr > bestCorr {
			bestCorr = corr
			bestOffset = d
		}
	}
	if bestOffset < 0 {
		// Flat bands: correlation undefined everywhere.
		return OverlapResult{}
	}

	// The template marks the leading edge of next; the match position
	// implies how deep next penetrates the base, which may exceed the
	// template band itself but never either image's extent.
	overlap := bands.searchLen - bestOffset
	if overlap > bands.nextExtent {
		overlap = bands.nextExtent
	}
	return OverlapResult{Found: true, OverlapPx: overlap, Confidence: bestCorr}
}

// OverlapCurve returns the correlation value at every candidate offset
// of the template inside the search band, for diagnostic plotting.
// Index is the offset from the leading edge of the search band; flat
// windows report NaN. A nil slice means the bands were degenerate.
func OverlapCurve(base, next *Image, axis Axis, p OverlapParams) []float64 {
	p = p.withDefaults()
	bands, ok := extractBands(base, next, axis, p)
	if !ok {
		return nil
	}
	window := bands.templLen * bands.width
	curve := make([]float64, bands.searchLen-bands.templLen+1)
	for d := range curve {
		curve[d] = stat.Correlation(bands.template, bands.search[d*bands.width:d*bands.width+window], nil)
	}
	return curve
}
