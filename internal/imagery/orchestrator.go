package imagery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// FallbackMode selects what happens to a group when the primary
// stitcher fails.
type FallbackMode string

const (
	FallbackNone       FallbackMode = "none"
	FallbackVertical   FallbackMode = "vertical"
	FallbackHorizontal FallbackMode = "horizontal"
	FallbackGrid       FallbackMode = "grid"
)

// ParseFallbackMode validates a configuration string.
func ParseFallbackMode(s string) (FallbackMode, error) {
	switch FallbackMode(s) {
	case FallbackNone, FallbackVertical, FallbackHorizontal, FallbackGrid:
		return FallbackMode(s), nil
	case "":
		return FallbackNone, nil
	}
	return "", fmt.Errorf("imagery: unknown fallback mode %q", s)
}

// PrimaryStitcher is the opaque external stitching capability. It is
// attempted exactly once per group before any fallback; its internals
// (bundle adjustment, seam finding, exposure compensation) are entirely
// outside this package.
type PrimaryStitcher interface {
	Stitch(ctx context.Context, images []*Image) (*Image, error)
}

// GroupOutcome reports one group's fate. Composite is nil iff the
// group failed both paths; Method names the path that produced the
// pixels ("primary", "vertical", "horizontal", "grid").
type GroupOutcome struct {
	GroupID   uuid.UUID
	Members   []string
	Method    string
	Composite *Image
}

// BatchResult is the outcome of one orchestrated run. Discarded holds
// connectivity singletons plus the members of groups that failed both
// stitching paths; together with the successful outcomes it covers the
// whole input exactly once.
type BatchResult struct {
	RunID     uuid.UUID
	Outcomes  []GroupOutcome
	Discarded []string
}

// StitchOrchestrator runs the full pipeline: group the batch, try the
// primary stitcher per group, and fall back to sequential blending or
// grid tiling per the configured mode. A nil primary stitcher is
// treated as a stitcher that always fails, which makes the fallback
// path the only path.
type StitchOrchestrator struct {
	grouper  *ConnectivityGrouper
	blender  *SequentialBlender
	grid     GridCompositor
	primary  PrimaryStitcher
	fallback FallbackMode
}

// NewStitchOrchestrator wires the pipeline together.
func NewStitchOrchestrator(grouper *ConnectivityGrouper, blender *SequentialBlender, primary PrimaryStitcher, fallback FallbackMode) *StitchOrchestrator {
	return &StitchOrchestrator{
		grouper:  grouper,
		blender:  blender,
		primary:  primary,
		fallback: fallback,
	}
}

// Run processes one batch. Groups already discarded by the grouper are
// reported as singleton failures and never reach either stitcher. No
// single group failure aborts the batch; only cancellation does.
func (o *StitchOrchestrator) Run(ctx context.Context, images []*Image, progress ProgressFunc) (*BatchResult, error) {
	grouped, err := o.grouper.Group(ctx, images, progress)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Image, len(images))
	for _, im := range images {
		if _, dup := byID[im.ID]; !dup {
			byID[im.ID] = im
		}
	}

	result := &BatchResult{
		RunID:     uuid.New(),
		Discarded: append([]string(nil), grouped.Discarded...),
	}

	for gi, group := range grouped.Groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		notify(progress, gi+1, len(grouped.Groups), fmt.Sprintf("stitching group %d/%d (%d images)", gi+1, len(grouped.Groups), len(group.Members)))

		members := make([]*Image, len(group.Members))
		for i, id := range group.Members {
			members[i] = byID[id]
		}

		outcome := GroupOutcome{
			GroupID: uuid.New(),
			Members: group.Members,
		}
		if composite := o.tryPrimary(ctx, members); composite != nil {
			outcome.Method = "primary"
			outcome.Composite = composite
		} else {
			composite, method := o.tryFallback(ctx, members, progress)
			// Cancellation inside a fallback is a batch abort, not a
			// group failure.
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if composite != nil {
				outcome.Method = method
				outcome.Composite = composite
			} else {
				result.Discarded = append(result.Discarded, group.Members...)
			}
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result, nil
}

// tryPrimary attempts the opaque stitcher once. Failure (error or nil
// pixels) is absorbed; the fallback policy decides what happens next.
func (o *StitchOrchestrator) tryPrimary(ctx context.Context, members []*Image) *Image {
	if o.primary == nil {
		return nil
	}
	composite, err := o.primary.Stitch(ctx, members)
	if err != nil || composite == nil || len(composite.Pix) == 0 {
		return nil
	}
	return composite
}

func (o *StitchOrchestrator) tryFallback(ctx context.Context, members []*Image, progress ProgressFunc) (*Image, string) {
	switch o.fallback {
	case FallbackVertical:
		composite, err := o.blender.Stitch(ctx, members, AxisVertical, progress)
		if err != nil {
			return nil, ""
		}
		return composite, string(FallbackVertical)
	case FallbackHorizontal:
		composite, err := o.blender.Stitch(ctx, members, AxisHorizontal, progress)
		if err != nil {
			return nil, ""
		}
		return composite, string(FallbackHorizontal)
	case FallbackGrid:
		composite, err := o.grid.Compose(members)
		if err != nil {
			return nil, ""
		}
		return composite, string(FallbackGrid)
	}
	return nil, ""
}
