package eventstore

import (
	"hash/fnv"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hgcal-tools/simchain/tracktree"
)

// Synthetic generation draws from independent streams so that, for example,
// changing the hit model does not reshuffle the shower topology.
const (
	streamKinematics = "kinematics"
	streamShower     = "shower"
	streamHits       = "hits"
)

// streams hands out one deterministically seeded *rand.Rand per stream name.
// Not safe for concurrent use.
type streams struct {
	seed int64
	rngs map[string]*rand.Rand
}

func newStreams(seed int64) *streams {
	return &streams{seed: seed, rngs: make(map[string]*rand.Rand)}
}

func (s *streams) get(name string) *rand.Rand {
	if rng, ok := s.rngs[name]; ok {
		return rng
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	rng := rand.New(rand.NewSource(s.seed ^ int64(h.Sum64())))
	s.rngs[name] = rng
	return rng
}

// SynthConfig controls Synthesize.
type SynthConfig struct {
	Events            int
	ParticlesPerEvent int
	// MaxDepth bounds the number of splitting generations below each root.
	MaxDepth int
	// MeanEnergy is the mean of the exponential primary energy spectrum, GeV.
	MeanEnergy float64
	Seed       int64
}

// DefaultSynthConfig is a small photon-gun sample in the endcap acceptance.
func DefaultSynthConfig() SynthConfig {
	return SynthConfig{Events: 3, ParticlesPerEvent: 2, MaxDepth: 3, MeanEnergy: 50, Seed: 42}
}

const (
	photonPDGID   = 22
	electronPDGID = 11
	// Tracks below this energy are not split further.
	splitThreshold = 2.0
	etaMin, etaMax = 1.5, 3.0
)

// Synthesize produces events shaped like the simulation step's output: one
// generator particle and root track per primary, each root showering into
// e+/e- pairs with hits attached to every track. The same config always
// yields the same events.
func Synthesize(cfg SynthConfig) []EventData {
	rs := newStreams(cfg.Seed)
	events := make([]EventData, cfg.Events)
	for i := range events {
		events[i] = synthEvent(cfg, rs)
	}
	return events
}

type pending struct {
	pos   int
	depth int
}

func synthEvent(cfg SynthConfig, rs *streams) EventData {
	kin := rs.get(streamKinematics)
	shower := rs.get(streamShower)
	hitRNG := rs.get(streamHits)

	var ev EventData
	nextID := 1
	addTrack := func(pdgid int, p tracktree.FourVector, parentID, genIndex int) int {
		ev.Vertices = append(ev.Vertices, tracktree.RawVertex{
			ParentIndex: parentID,
			Position:    r3.Vec{Z: 320 * float64(len(ev.Vertices)%7) / 7},
		})
		ev.Tracks = append(ev.Tracks, tracktree.RawTrack{
			ID:           nextID,
			VertexIndex:  len(ev.Vertices) - 1,
			PDGID:        pdgid,
			Momentum:     p,
			GenPartIndex: genIndex,
		})
		nextID++
		return len(ev.Tracks) - 1
	}

	var queue []pending
	for g := range cfg.ParticlesPerEvent {
		energy := 1 + kin.ExpFloat64()*cfg.MeanEnergy
		eta := etaMin + kin.Float64()*(etaMax-etaMin)
		if kin.Intn(2) == 0 {
			eta = -eta
		}
		phi := (2*kin.Float64() - 1) * math.Pi
		p := masslessFourVector(energy, eta, phi)
		ev.GenParticles = append(ev.GenParticles, GenParticle{PDGID: photonPDGID, Status: 1, Momentum: p})
		pos := addTrack(photonPDGID, p, tracktree.NoParent, g)
		ev.Tracks[pos].CrossedBoundary = true
		queue = append(queue, pending{pos: pos, depth: 0})
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		parent := ev.Tracks[cur.pos]
		if cur.depth >= cfg.MaxDepth || parent.Momentum.E < splitThreshold {
			continue
		}
		frac := 0.2 + 0.6*shower.Float64()
		for k, f := range []float64{frac, 1 - frac} {
			pdgid := electronPDGID
			if k == 1 {
				pdgid = -electronPDGID
			}
			d := tracktree.FourVector{P: r3.Scale(f, parent.Momentum.P), E: f * parent.Momentum.E}
			queue = append(queue, pending{pos: addTrack(pdgid, d, parent.ID, -1), depth: cur.depth + 1})
		}
	}

	for _, t := range ev.Tracks {
		n := 1 + int(t.Momentum.E/10)
		for range n {
			ev.Hits = append(ev.Hits, tracktree.RawHit{
				TrackID: t.ID,
				DetID:   hitRNG.Uint32(),
				Energy:  t.Momentum.E / float64(n) * 0.01,
				Time:    hitRNG.NormFloat64() + 1,
			})
		}
	}
	return ev
}

func masslessFourVector(energy, eta, phi float64) tracktree.FourVector {
	pt := energy / math.Cosh(eta)
	return tracktree.FourVector{
		P: r3.Vec{X: pt * math.Cos(phi), Y: pt * math.Sin(phi), Z: pt * math.Sinh(eta)},
		E: energy,
	}
}
