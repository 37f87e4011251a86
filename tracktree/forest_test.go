package tracktree

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
	"pgregory.net/rapid"

	"github.com/hgcal-tools/simchain/internal/testutil"
)

type visit struct {
	ID    int
	Depth int
}

func collect(f *Forest, root int) []visit {
	var got []visit
	for t, depth := range f.DepthFirst(root) {
		got = append(got, visit{t.ID, depth})
	}
	return got
}

// threeTrackEvent is a root track 1 whose vertex-1 and vertex-2 daughters
// are tracks 2 and 3.
func threeTrackEvent() ([]RawTrack, []RawVertex) {
	tracks := []RawTrack{
		{ID: 1, VertexIndex: 0, PDGID: 22, Momentum: FourVector{P: r3.Vec{X: 3, Y: 4}, E: 5}},
		{ID: 2, VertexIndex: 1, PDGID: 11, Momentum: FourVector{P: r3.Vec{X: 1}, E: 1}},
		{ID: 3, VertexIndex: 2, PDGID: -11, Momentum: FourVector{P: r3.Vec{Y: 2}, E: 2}, CrossedBoundary: true},
	}
	vertices := []RawVertex{{ParentIndex: NoParent}, {ParentIndex: 1}, {ParentIndex: 1}}
	return tracks, vertices
}

func TestBuildForest_SingleTree(t *testing.T) {
	tracks, vertices := threeTrackEvent()
	f, err := BuildForest(tracks, vertices)
	require.NoError(t, err)

	require.Equal(t, []int{0}, f.Roots())
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []int{1, 2}, f.Children(0))

	p, ok := f.Parent(2)
	assert.True(t, ok)
	assert.Equal(t, 0, p)
	_, ok = f.Parent(0)
	assert.False(t, ok)

	want := []visit{{1, 0}, {2, 1}, {3, 1}}
	if diff := cmp.Diff(want, collect(f, 0)); diff != "" {
		t.Errorf("DepthFirst mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildForest_DanglingParent(t *testing.T) {
	tracks, vertices := threeTrackEvent()
	vertices[2].ParentIndex = 99

	f, err := BuildForest(tracks, vertices)
	assert.Nil(t, f)
	var dre *DanglingReferenceError
	require.True(t, errors.As(err, &dre))
	assert.Equal(t, 3, dre.TrackID)
	assert.Equal(t, 2, dre.VertexIndex)
	assert.Equal(t, 99, dre.ParentID)
	assert.Contains(t, err.Error(), "99")
}

func TestBuildForest_VertexOutOfRange(t *testing.T) {
	tracks, vertices := threeTrackEvent()
	tracks[1].VertexIndex = 7

	_, err := BuildForest(tracks, vertices)
	var dre *DanglingReferenceError
	require.True(t, errors.As(err, &dre))
	assert.Equal(t, NoParent, dre.ParentID)
	assert.Equal(t, 7, dre.VertexIndex)
}

func TestBuildForest_IDsNeedNotMatchPosition(t *testing.T) {
	// Daughter listed before its mother.
	tracks := []RawTrack{
		{ID: 40, VertexIndex: 1},
		{ID: 7, VertexIndex: 0},
	}
	vertices := []RawVertex{{ParentIndex: NoParent}, {ParentIndex: 7}}

	f, err := BuildForest(tracks, vertices)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, f.Roots())
	assert.Equal(t, []visit{{7, 0}, {40, 1}}, collect(f, 1))
}

func TestBuildForest_DuplicateIDFirstWins(t *testing.T) {
	tracks := []RawTrack{
		{ID: 5, VertexIndex: 0},
		{ID: 5, VertexIndex: 0},
		{ID: 6, VertexIndex: 1},
	}
	vertices := []RawVertex{{ParentIndex: NoParent}, {ParentIndex: 5}}

	f, err := BuildForest(tracks, vertices)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, f.Roots())
	assert.Equal(t, []int{2}, f.Children(0))
	assert.Empty(t, f.Children(1))
}

func TestBuildForest_Empty(t *testing.T) {
	f, err := BuildForest(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Len())
	assert.Empty(t, f.Roots())
}

func TestDepthFirst_PreOrderAcrossLevels(t *testing.T) {
	//   1
	//   ├─ 2
	//   │  └─ 4
	//   └─ 3
	tracks := []RawTrack{
		{ID: 1, VertexIndex: 0},
		{ID: 2, VertexIndex: 1},
		{ID: 3, VertexIndex: 1},
		{ID: 4, VertexIndex: 2},
	}
	vertices := []RawVertex{{ParentIndex: NoParent}, {ParentIndex: 1}, {ParentIndex: 2}}
	f, err := BuildForest(tracks, vertices)
	require.NoError(t, err)

	want := []visit{{1, 0}, {2, 1}, {4, 2}, {3, 1}}
	assert.Equal(t, want, collect(f, 0))
	assert.Equal(t, want, collect(f, 0), "traversal must be repeatable")
}

func TestDepthFirst_EarlyBreak(t *testing.T) {
	tracks, vertices := threeTrackEvent()
	f, err := BuildForest(tracks, vertices)
	require.NoError(t, err)

	n := 0
	for range f.DepthFirst(0) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestRender(t *testing.T) {
	tracks, vertices := threeTrackEvent()
	f, err := BuildForest(tracks, vertices)
	require.NoError(t, err)

	out := f.Render(0)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.False(t, strings.HasSuffix(out, "\n"))
	assert.True(t, strings.HasPrefix(lines[0], "<trackid=     1"))
	assert.True(t, strings.HasPrefix(lines[1], "  <trackid=     2"))
	assert.True(t, strings.HasPrefix(lines[2], "  <trackid=     3"))
	assert.True(t, strings.HasSuffix(lines[2], "crossed_b=1>"))
}

func TestRawTrackString(t *testing.T) {
	tr := RawTrack{ID: 12, PDGID: 22, Momentum: FourVector{P: r3.Vec{X: 3, Y: 4}, E: 5}}
	assert.Equal(t,
		"<trackid=    12 pdgid=22    E=5.00    pt=5.00    eta=0.00    phi=0.93    crossed_b=0>",
		tr.String())
}

func TestFourVector_Kinematics(t *testing.T) {
	v := FourVector{P: r3.Vec{X: 1, Y: 1, Z: 0}, E: 2}
	testutil.AssertFloat64Equal(t, "pt", math.Sqrt2, v.Pt(), 1e-12)
	testutil.AssertFloat64Equal(t, "eta", 0, v.Eta(), 1e-12)
	testutil.AssertFloat64Equal(t, "phi", math.Pi/4, v.Phi(), 1e-12)

	forward := FourVector{P: r3.Vec{X: 1, Z: 1}}
	testutil.AssertFloat64Equal(t, "forward eta", math.Asinh(1), forward.Eta(), 1e-12)

	beam := FourVector{P: r3.Vec{Z: -3}}
	assert.True(t, math.IsInf(beam.Eta(), -1))
	assert.Equal(t, 0.0, FourVector{}.Eta())
	assert.Equal(t, 0.0, FourVector{}.Phi())
}

func TestHitCounts(t *testing.T) {
	tracks, _ := threeTrackEvent()
	hits := []RawHit{
		{TrackID: 2, Energy: 0.1},
		{TrackID: 2, Energy: 0.2, Time: 1.5},
		{TrackID: 3},
		{TrackID: 42},
	}
	want := map[int]int{1: 0, 2: 2, 3: 1, 42: 1}
	if diff := cmp.Diff(want, HitCounts(tracks, hits)); diff != "" {
		t.Errorf("HitCounts mismatch (-want +got):\n%s", diff)
	}
}

// genEvent draws a well-formed event: every vertex names either no parent
// or an earlier-generated track, and track order is then shuffled.
func genEvent(t *rapid.T) ([]RawTrack, []RawVertex) {
	n := rapid.IntRange(0, 40).Draw(t, "n")
	tracks := make([]RawTrack, n)
	vertices := make([]RawVertex, n)
	for i := range n {
		parent := NoParent
		if i > 0 && rapid.Bool().Draw(t, "hasParent") {
			parent = 100 + rapid.IntRange(0, i-1).Draw(t, "parent")
		}
		vertices[i] = RawVertex{ParentIndex: parent}
		tracks[i] = RawTrack{ID: 100 + i, VertexIndex: i}
	}
	return rapid.Permutation(tracks).Draw(t, "order"), vertices
}

func TestBuildForest_PartitionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tracks, vertices := genEvent(t)
		f, err := BuildForest(tracks, vertices)
		if err != nil {
			t.Fatalf("well-formed event rejected: %v", err)
		}

		seen := make(map[int]int)
		for _, root := range f.Roots() {
			if tracks[root].VertexIndex >= 0 && vertices[tracks[root].VertexIndex].HasParent() {
				t.Fatalf("root %d has a parent vertex", tracks[root].ID)
			}
			for tr := range f.DepthFirst(root) {
				seen[tr.ID]++
			}
		}
		if len(seen) != len(tracks) {
			t.Fatalf("visited %d distinct tracks, want %d", len(seen), len(tracks))
		}
		for id, c := range seen {
			if c != 1 {
				t.Fatalf("track %d visited %d times", id, c)
			}
		}

		childOf := 0
		for i := range f.Len() {
			childOf += len(f.Children(i))
		}
		if childOf+len(f.Roots()) != len(tracks) {
			t.Fatalf("children %d + roots %d != tracks %d", childOf, len(f.Roots()), len(tracks))
		}
	})
}

func TestDepthFirst_DepthProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tracks, vertices := genEvent(t)
		f, err := BuildForest(tracks, vertices)
		if err != nil {
			t.Fatalf("well-formed event rejected: %v", err)
		}
		for _, root := range f.Roots() {
			depthOf := make(map[*Track]int)
			for tr, depth := range f.DepthFirst(root) {
				depthOf[tr] = depth
				if tr.IsRoot() {
					if depth != 0 {
						t.Fatalf("root at depth %d", depth)
					}
					continue
				}
				p, _ := f.Parent(indexOf(f, tr))
				pd, ok := depthOf[f.Track(p)]
				if !ok {
					t.Fatalf("track %d visited before its parent", tr.ID)
				}
				if depth != pd+1 {
					t.Fatalf("track %d depth %d, parent depth %d", tr.ID, depth, pd)
				}
			}
		}
	})
}

func indexOf(f *Forest, tr *Track) int {
	for i := range f.Len() {
		if f.Track(i) == tr {
			return i
		}
	}
	return -1
}
