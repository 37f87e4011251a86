package tracktree

import (
	"fmt"
	"iter"
	"strings"
)

// DanglingReferenceError reports a track whose vertex, or whose vertex's
// parent track, does not exist in the event.
type DanglingReferenceError struct {
	TrackID     int
	VertexIndex int
	// ParentID is the unresolved parent track id, or NoParent when the vertex
	// index itself was out of range.
	ParentID int
}

func (e *DanglingReferenceError) Error() string {
	if e.ParentID == NoParent {
		return fmt.Sprintf("track %d references vertex %d, which does not exist", e.TrackID, e.VertexIndex)
	}
	return fmt.Sprintf("track %d: vertex %d names parent track %d, which does not exist",
		e.TrackID, e.VertexIndex, e.ParentID)
}

// Track is a node in a Forest. Parent and children are arena positions.
type Track struct {
	RawTrack
	parent   int
	children []int
}

// IsRoot reports whether the track has no parent.
func (t *Track) IsRoot() bool {
	return t.parent == NoParent
}

// Forest is the set of decay trees of one event.
type Forest struct {
	tracks []Track
	roots  []int
}

// BuildForest links every track to the track that produced its vertex.
// Children keep input order under their parent and roots keep input order in
// Roots. Track ids need not match their position; when an id repeats, the
// first occurrence is the one children attach to.
func BuildForest(tracks []RawTrack, vertices []RawVertex) (*Forest, error) {
	f := &Forest{tracks: make([]Track, len(tracks))}
	byID := make(map[int]int, len(tracks))
	for i, raw := range tracks {
		f.tracks[i] = Track{RawTrack: raw, parent: NoParent}
		if _, seen := byID[raw.ID]; !seen {
			byID[raw.ID] = i
		}
	}

	for i := range f.tracks {
		t := &f.tracks[i]
		if t.VertexIndex < 0 || t.VertexIndex >= len(vertices) {
			return nil, &DanglingReferenceError{TrackID: t.ID, VertexIndex: t.VertexIndex, ParentID: NoParent}
		}
		parentID := vertices[t.VertexIndex].ParentIndex
		if parentID == NoParent {
			continue
		}
		p, ok := byID[parentID]
		if !ok {
			return nil, &DanglingReferenceError{TrackID: t.ID, VertexIndex: t.VertexIndex, ParentID: parentID}
		}
		t.parent = p
		f.tracks[p].children = append(f.tracks[p].children, i)
	}

	for i := range f.tracks {
		if f.tracks[i].IsRoot() {
			f.roots = append(f.roots, i)
		}
	}
	return f, nil
}

// Len is the number of tracks in the forest.
func (f *Forest) Len() int {
	return len(f.tracks)
}

// Roots returns the arena positions of the root tracks in input order.
func (f *Forest) Roots() []int {
	return append([]int(nil), f.roots...)
}

// Track returns the track at arena position i.
func (f *Forest) Track(i int) *Track {
	return &f.tracks[i]
}

// Parent returns the parent position of track i, or false for a root.
func (f *Forest) Parent(i int) (int, bool) {
	p := f.tracks[i].parent
	return p, p != NoParent
}

// Children returns the child positions of track i in attach order.
func (f *Forest) Children(i int) []int {
	return append([]int(nil), f.tracks[i].children...)
}

// DepthFirst yields every track reachable from root with its depth (root is
// depth 0), parents before children and children in attach order. Each call
// starts a fresh traversal.
func (f *Forest) DepthFirst(root int) iter.Seq2[*Track, int] {
	return func(yield func(*Track, int) bool) {
		type frame struct{ pos, depth int }
		stack := []frame{{root, 0}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			t := &f.tracks[top.pos]
			if !yield(t, top.depth) {
				return
			}
			for j := len(t.children) - 1; j >= 0; j-- {
				stack = append(stack, frame{t.children[j], top.depth + 1})
			}
		}
	}
}

// Render prints the tree under root, one track per line, indented two spaces
// per level. The result has no trailing newline.
func (f *Forest) Render(root int) string {
	var b strings.Builder
	for t, depth := range f.DepthFirst(root) {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(t.RawTrack.String())
	}
	return b.String()
}

// HitCounts tallies hits per track id. Every track in tracks appears in the
// result, with zero when it has no hits.
func HitCounts(tracks []RawTrack, hits []RawHit) map[int]int {
	counts := make(map[int]int, len(tracks))
	for _, t := range tracks {
		counts[t.ID] = 0
	}
	for _, h := range hits {
		counts[h.TrackID]++
	}
	return counts
}
