// Package tracktree rebuilds simulated-particle decay forests from the flat
// track and vertex collections stored per event.
//
// Tracks live in an arena (Forest) and refer to each other by arena position,
// so parent links never own anything. A Forest belongs to one event; build a
// new one for the next event.
package tracktree

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// NoParent is the parent-track index of a vertex that starts a new root track.
const NoParent = -1

// FourVector is a track's momentum and energy in GeV.
type FourVector struct {
	P r3.Vec
	E float64
}

// Pt is the transverse momentum.
func (v FourVector) Pt() float64 {
	return math.Hypot(v.P.X, v.P.Y)
}

// Eta is the pseudorapidity. Tracks along the beam axis get ±Inf, zero
// momentum gets 0.
func (v FourVector) Eta() float64 {
	p := r3.Norm(v.P)
	if p == 0 {
		return 0
	}
	if p == math.Abs(v.P.Z) {
		return math.Copysign(math.Inf(1), v.P.Z)
	}
	return 0.5 * math.Log((p+v.P.Z)/(p-v.P.Z))
}

// Phi is the azimuthal angle in (-π, π].
func (v FourVector) Phi() float64 {
	if v.P.X == 0 && v.P.Y == 0 {
		return 0
	}
	return math.Atan2(v.P.Y, v.P.X)
}

// RawTrack is one simulated track as stored in the event.
type RawTrack struct {
	ID              int
	VertexIndex     int
	PDGID           int
	Momentum        FourVector
	CrossedBoundary bool
	GenPartIndex    int
}

// RawVertex is one simulated vertex; its identity is its position in the
// event's vertex collection.
type RawVertex struct {
	ParentIndex int
	Position    r3.Vec
}

// HasParent reports whether the vertex was produced by a known track.
func (v RawVertex) HasParent() bool {
	return v.ParentIndex != NoParent
}

// RawHit is a calorimeter hit attributed to a track.
type RawHit struct {
	TrackID int
	DetID   uint32
	Energy  float64
	Time    float64
}

// String is the fixed-width one-line summary used by Forest.Render.
func (t RawTrack) String() string {
	crossed := 0
	if t.CrossedBoundary {
		crossed = 1
	}
	return fmt.Sprintf("<trackid=%6d pdgid=%-5d E=%-7.2f pt=%-7.2f eta=%-7.2f phi=%-7.2f crossed_b=%d>",
		t.ID, t.PDGID, t.Momentum.E, t.Momentum.Pt(), t.Momentum.Eta(), t.Momentum.Phi(), crossed)
}
