package eventstore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hgcal-tools/simchain/tracktree"
)

func TestSynthesize_Deterministic(t *testing.T) {
	cfg := DefaultSynthConfig()
	a := Synthesize(cfg)
	b := Synthesize(cfg)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed produced different events (-a +b):\n%s", diff)
	}

	cfg.Seed++
	assert.NotEqual(t, a, Synthesize(cfg))
}

func TestSynthesize_EventsFormForests(t *testing.T) {
	cfg := DefaultSynthConfig()
	cfg.Events = 5
	for i, ev := range Synthesize(cfg) {
		f, err := tracktree.BuildForest(ev.Tracks, ev.Vertices)
		require.NoError(t, err, "event %d", i)
		assert.Len(t, f.Roots(), cfg.ParticlesPerEvent)
		assert.Len(t, ev.GenParticles, cfg.ParticlesPerEvent)

		counts := tracktree.HitCounts(ev.Tracks, ev.Hits)
		for _, tr := range ev.Tracks {
			assert.Positive(t, counts[tr.ID], "track %d has no hits", tr.ID)
		}

		for _, root := range f.Roots() {
			for _, depth := range f.DepthFirst(root) {
				assert.LessOrEqual(t, depth, cfg.MaxDepth)
			}
		}
	}
}

func TestSynthesize_ZeroDepthHasNoDaughters(t *testing.T) {
	cfg := DefaultSynthConfig()
	cfg.MaxDepth = 0
	for _, ev := range Synthesize(cfg) {
		assert.Len(t, ev.Tracks, cfg.ParticlesPerEvent)
	}
}

func TestSynthesize_RoundTripsThroughStore(t *testing.T) {
	events := Synthesize(DefaultSynthConfig())
	s, err := Open(writeStore(t, events))
	require.NoError(t, err)

	ev, err := s.Event(1)
	require.NoError(t, err)
	tracks, err := ev.Tracks()
	require.NoError(t, err)
	if diff := cmp.Diff(events[1].Tracks, tracks); diff != "" {
		t.Errorf("tracks mismatch (-want +got):\n%s", diff)
	}
}
