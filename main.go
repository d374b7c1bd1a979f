// Command stitchwork groups an unordered directory of images into
// stitchable clusters and composites each cluster, falling back to
// overlap blending or grid tiling when the primary stitcher fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/banshee-data/stitchwork/internal/config"
	"github.com/banshee-data/stitchwork/internal/imagery"
	"github.com/banshee-data/stitchwork/internal/imgio"
	"github.com/banshee-data/stitchwork/internal/report"
	"github.com/banshee-data/stitchwork/internal/runlog"
	"github.com/banshee-data/stitchwork/internal/version"
)

var (
	inputDir   = flag.String("input", "", "Directory of images to stitch (required)")
	outputDir  = flag.String("output", "stitched", "Directory for composite output")
	configPath = flag.String("config", "", "Path to tuning config JSON")
	fallback   = flag.String("fallback", "", "Fallback mode override: vertical|horizontal|grid|none")
	detector   = flag.String("detector", "", "Detector override: binary|float")
	dbPath     = flag.String("db", "", "Optional sqlite run-log path")
	reportPath = flag.String("report", "", "Optional HTML batch report path")
	quiet      = flag.Bool("quiet", false, "Suppress per-unit progress output")
	showVer    = flag.Bool("version", false, "Print build information and exit")
)

func main() {
	flag.Parse()
	if *showVer {
		fmt.Println(version.String())
		return
	}
	if *inputDir == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(); err != nil {
		log.Fatalf("stitchwork: %v", err)
	}
}

func run() error {
	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	detectorKind := cfg.GetDetector()
	if *detector != "" {
		detectorKind = *detector
	}
	mode := cfg.GetFallbackMode()
	if *fallback != "" {
		parsed, err := imagery.ParseFallbackMode(*fallback)
		if err != nil {
			return err
		}
		mode = parsed
	}

	images, err := imgio.LoadDir(*inputDir)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("no images found in %s", *inputDir)
	}
	log.Printf("loaded %d images from %s (detector=%s fallback=%s)", len(images), *inputDir, detectorKind, mode)

	det, err := imagery.NewDetector(detectorKind, cfg.DetectorParams())
	if err != nil {
		return err
	}
	grouper := imagery.NewConnectivityGrouper(det, cfg.MatchPolicy())
	blender := imagery.NewSequentialBlender(cfg.BlendParams())
	orchestrator := imagery.NewStitchOrchestrator(grouper, blender, nil, mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := imagery.ProgressFunc(nil)
	if !*quiet {
		progress = func(current, total int, message string) {
			log.Printf("[%d/%d] %s", current, total, message)
		}
	}

	started := time.Now()
	result, err := orchestrator.Run(ctx, images, progress)
	if err != nil {
		return err
	}
	finished := time.Now()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		return err
	}
	succeeded := 0
	for i, outcome := range result.Outcomes {
		if outcome.Composite == nil {
			log.Printf("group %d (%d images) failed both stitching paths", i+1, len(outcome.Members))
			continue
		}
		out := filepath.Join(*outputDir, fmt.Sprintf("group-%02d.png", i+1))
		if err := imgio.SavePNG(out, outcome.Composite); err != nil {
			return err
		}
		log.Printf("group %d: %d images -> %s (%s, %dx%d)", i+1, len(outcome.Members), out, outcome.Method, outcome.Composite.W, outcome.Composite.H)
		succeeded++
	}
	log.Printf("done in %s: %d groups stitched, %d images discarded", finished.Sub(started).Round(time.Millisecond), succeeded, len(result.Discarded))
	for _, id := range result.Discarded {
		log.Printf("discarded: %s", id)
	}

	if *dbPath != "" {
		db, err := runlog.NewDB(*dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		rec := runlog.RunRecord{
			RunID:          result.RunID.String(),
			StartedAt:      started,
			FinishedAt:     finished,
			ImageCount:     len(images),
			GroupCount:     len(result.Outcomes),
			DiscardedCount: len(result.Discarded),
			FallbackMode:   string(mode),
		}
		if err := db.RecordBatch(rec, result); err != nil {
			return err
		}
		log.Printf("recorded run %s to %s", result.RunID, *dbPath)
	}

	if *reportPath != "" {
		f, err := os.Create(*reportPath)
		if err != nil {
			return err
		}
		if err := report.WriteHTML(f, result); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Printf("wrote report to %s", *reportPath)
	}
	return nil
}
