// Command overlap-plot renders the normalized cross-correlation curve
// for one image pair, for eyeballing why the overlap locator picked
// (or missed) a peak.
package main

import (
	"flag"
	"log"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/stitchwork/internal/imagery"
	"github.com/banshee-data/stitchwork/internal/imgio"
)

var (
	basePath = flag.String("base", "", "Base image path (required)")
	nextPath = flag.String("next", "", "Next image path (required)")
	axisName = flag.String("axis", "vertical", "Blend axis: vertical|horizontal")
	outPath  = flag.String("out", "overlap.png", "Output plot path")
)

func main() {
	flag.Parse()
	if *basePath == "" || *nextPath == "" {
		flag.Usage()
		log.Fatal("both -base and -next are required")
	}

	axis := imagery.AxisVertical
	if *axisName == "horizontal" {
		axis = imagery.AxisHorizontal
	}

	base, err := imgio.Load(*basePath)
	if err != nil {
		log.Fatalf("load base: %v", err)
	}
	next, err := imgio.Load(*nextPath)
	if err != nil {
		log.Fatalf("load next: %v", err)
	}

	params := imagery.DefaultOverlapParams()
	curve := imagery.OverlapCurve(base, next, axis, params)
	if curve == nil {
		log.Fatal("bands too small to correlate")
	}
	res := imagery.LocateOverlap(base, next, axis, params)
	log.Printf("overlap=%dpx confidence=%.3f found=%v", res.OverlapPx, res.Confidence, res.Found)

	pts := make(plotter.XYs, 0, len(curve))
	for i, c := range curve {
		if math.IsNaN(c) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i), Y: c})
	}

	p := plot.New()
	p.Title.Text = "Overlap correlation"
	p.X.Label.Text = "offset in search band (px)"
	p.Y.Label.Text = "correlation"

	line, err := plotter.NewLine(pts)
	if err != nil {
		log.Fatalf("build line: %v", err)
	}
	p.Add(line, plotter.NewGrid())

	if err := p.Save(8*vg.Inch, 4*vg.Inch, *outPath); err != nil {
		log.Fatalf("save plot: %v", err)
	}
	log.Printf("wrote %s", *outPath)
}
