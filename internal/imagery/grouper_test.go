package imagery

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linkedSets builds descriptor sets where each listed pair shares
// enough planted matches to be a good pair, and no other pair does.
func linkedSets(ids []string, links [][2]string) map[string]*DescriptorSet {
	sets := make(map[string]*DescriptorSet, len(ids))
	for i, id := range ids {
		sets[id] = randomBinarySet(id, 16, int64(i)*7+1000)
	}
	for _, link := range links {
		plantMatches(sets[link[0]], sets[link[1]], DefaultMinGoodMatches)
	}
	return sets
}

func newTestGrouper(sets map[string]*DescriptorSet) *ConnectivityGrouper {
	return NewConnectivityGrouper(&stubDetector{sets: sets}, DefaultMatchPolicy())
}

func imagesFor(ids ...string) []*Image {
	out := make([]*Image, len(ids))
	for i, id := range ids {
		out[i] = smallImage(id)
	}
	return out
}

// partitionIDs flattens a GroupResult back to the full identifier
// multiset for coverage checks.
func partitionIDs(res *GroupResult) []string {
	var all []string
	for _, g := range res.Groups {
		all = append(all, g.Members...)
	}
	all = append(all, res.Discarded...)
	sort.Strings(all)
	return all
}

func TestGroup_NoMatchesAllDiscarded(t *testing.T) {
	// Scenario: five images with zero planted matches.
	ids := []string{"a", "b", "c", "d", "e"}
	g := newTestGrouper(linkedSets(ids, nil))

	res, err := g.Group(context.Background(), imagesFor(ids...), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Groups)
	assert.Len(t, res.Discarded, 5)
}

func TestGroup_TransitiveChain(t *testing.T) {
	// A–B and B–C are good pairs, A–C is not: one group of all three.
	sets := linkedSets([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})
	g := newTestGrouper(sets)

	res, err := g.Group(context.Background(), imagesFor("a", "b", "c"), nil)
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)
	assert.Equal(t, []string{"a", "b", "c"}, res.Groups[0].Members, "members keep first-seen order")
	assert.Empty(t, res.Discarded)
}

func TestGroup_PartitionCompleteness(t *testing.T) {
	ids := []string{"p", "q", "r", "s", "t", "u", "v"}
	links := [][2]string{{"p", "r"}, {"r", "t"}, {"q", "s"}}
	g := newTestGrouper(linkedSets(ids, links))

	res, err := g.Group(context.Background(), imagesFor(ids...), nil)
	require.NoError(t, err)

	want := append([]string(nil), ids...)
	sort.Strings(want)
	if diff := cmp.Diff(want, partitionIDs(res)); diff != "" {
		t.Errorf("partition mismatch (-want +got):\n%s", diff)
	}
}

func TestGroup_OrderIndependentMembership(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f"}
	links := [][2]string{{"a", "c"}, {"c", "e"}, {"b", "f"}}
	sets := linkedSets(ids, links)

	componentKey := func(res *GroupResult) []string {
		var keys []string
		for _, g := range res.Groups {
			members := append([]string(nil), g.Members...)
			sort.Strings(members)
			keys = append(keys, strings.Join(members, ","))
		}
		sort.Strings(keys)
		return keys
	}

	base, err := newTestGrouper(sets).Group(context.Background(), imagesFor(ids...), nil)
	require.NoError(t, err)

	shuffled := append([]string(nil), ids...)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	perm, err := newTestGrouper(sets).Group(context.Background(), imagesFor(shuffled...), nil)
	require.NoError(t, err)

	assert.Equal(t, componentKey(base), componentKey(perm), "membership must not depend on input order")
}

func TestGroup_ProgressUnits(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	g := newTestGrouper(linkedSets(ids, nil))

	var calls int
	var lastCurrent, lastTotal int
	progress := func(current, total int, _ string) {
		calls++
		lastCurrent, lastTotal = current, total
	}
	_, err := g.Group(context.Background(), imagesFor(ids...), progress)
	require.NoError(t, err)

	wantUnits := 4 + 4*3/2
	assert.Equal(t, wantUnits, calls)
	assert.Equal(t, wantUnits, lastCurrent)
	assert.Equal(t, wantUnits, lastTotal)
}

func TestGroup_Cancellation(t *testing.T) {
	ids := []string{"a", "b", "c"}
	g := newTestGrouper(linkedSets(ids, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Group(ctx, imagesFor(ids...), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGroup_EmptyAndSingleInput(t *testing.T) {
	g := newTestGrouper(nil)

	res, err := g.Group(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Groups)
	assert.Empty(t, res.Discarded)

	res, err = g.Group(context.Background(), imagesFor("only"), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Groups)
	assert.Equal(t, []string{"only"}, res.Discarded)
}

func TestGroup_InvalidImageDiscarded(t *testing.T) {
	sets := linkedSets([]string{"a", "b"}, [][2]string{{"a", "b"}})
	g := newTestGrouper(sets)

	bad := &Image{ID: "bad", W: 0, H: 10, C: 1}
	res, err := g.Group(context.Background(), []*Image{smallImage("a"), bad, smallImage("b")}, nil)
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)
	assert.Equal(t, []string{"a", "b"}, res.Groups[0].Members)
	assert.Equal(t, []string{"bad"}, res.Discarded)
}

func TestGroup_DetectorFailureAbsorbed(t *testing.T) {
	sets := linkedSets([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})
	det := &stubDetector{sets: sets, fail: map[string]bool{"c": true}}
	g := NewConnectivityGrouper(det, DefaultMatchPolicy())

	res, err := g.Group(context.Background(), imagesFor("a", "b", "c"), nil)
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)
	assert.Equal(t, []string{"a", "b"}, res.Groups[0].Members)
	assert.Equal(t, []string{"c"}, res.Discarded, "detector failure isolates the image, never aborts the batch")
}
