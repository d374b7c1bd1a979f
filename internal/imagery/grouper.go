package imagery

import (
	"context"
	"fmt"
	"sort"
)

// Group is an ordered list of image identifiers belonging to one
// connected component of the good-pair graph. Members appear in
// first-seen (input) order; a group always has at least two members.
type Group struct {
	Members []string
}

// GroupResult partitions a batch: every input identifier appears in
// exactly one group or in Discarded, never both, never twice.
type GroupResult struct {
	Groups    []Group
	Discarded []string
}

// ConnectivityGrouper partitions N images into stitchable groups and
// discarded singles. Descriptors are extracted once per image, all
// N·(N−1)/2 unordered pairs are evaluated through the PairMatcher, and
// connected components of the resulting graph decide membership.
type ConnectivityGrouper struct {
	detector Detector
	matcher  *PairMatcher
}

// NewConnectivityGrouper builds a grouper around a detector capability
// and a matching policy.
func NewConnectivityGrouper(detector Detector, policy MatchPolicy) *ConnectivityGrouper {
	return &ConnectivityGrouper{
		detector: detector,
		matcher:  NewPairMatcher(policy),
	}
}

// Group runs one grouping pass. The context is checked between
// discrete units of work (per extraction, per pair), never
// mid-operation; on cancellation the partial state is abandoned and
// ctx.Err() returned. The progress sink sees one notification per unit
// of work and never affects the outcome.
//
// Images that fail structural validation (zero extent, bad buffer) are
// discarded up front and excluded from extraction. A per-image detector
// failure is absorbed: the image simply has no descriptors and can
// never form a good pair.
func (g *ConnectivityGrouper) Group(ctx context.Context, images []*Image, progress ProgressFunc) (*GroupResult, error) {
	n := len(images)
	if n == 0 {
		return &GroupResult{}, nil
	}

	valid := make([]bool, n)
	for i, im := range images {
		valid[i] = im.Validate() == nil
	}

	totalUnits := n + n*(n-1)/2
	unit := 0

	// Phase 1: one descriptor set per image.
	descs := make([]*DescriptorSet, n)
	for i, im := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		unit++
		if !valid[i] {
			notify(progress, unit, totalUnits, fmt.Sprintf("skipping invalid image %d/%d", i+1, n))
			continue
		}
		notify(progress, unit, totalUnits, fmt.Sprintf("describing image %d/%d", i+1, n))
		ds, err := g.detector.DetectAndDescribe(im)
		if err != nil {
			// Absorbed: no descriptors means no edges for this image.
			continue
		}
		descs[i] = ds
	}

	// Phase 2: pairwise good-pair edges.
	adj := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			unit++
			notify(progress, unit, totalUnits, fmt.Sprintf("comparing %d and %d", i+1, j+1))
			if !valid[i] || !valid[j] {
				continue
			}
			if g.matcher.GoodPair(descs[i], descs[j]) {
				adj[i] = append(adj[i], j)
				adj[j] = append(adj[j], i)
			}
		}
	}

	// Phase 3: connected components, iterative DFS with an explicit
	// stack so large batches cannot exhaust the call stack.
	visited := make([]bool, n)
	result := &GroupResult{}
	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		component := []int{}
		stack := []int{start}
		visited[start] = true
		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, node)
			for _, next := range adj[node] {
				if !visited[next] {
					visited[next] = true
					stack = append(stack, next)
				}
			}
		}
		// First-seen order is input order.
		sort.Ints(component)
		if len(component) < 2 {
			result.Discarded = append(result.Discarded, images[component[0]].ID)
			continue
		}
		members := make([]string, len(component))
		for k, idx := range component {
			members[k] = images[idx].ID
		}
		result.Groups = append(result.Groups, Group{Members: members})
	}

	return result, nil
}
