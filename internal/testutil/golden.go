package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// ForestDataset represents the structure of testdata/forests.json.
type ForestDataset struct {
	Cases []ForestCase `json:"cases"`
}

// ForestCase is one event with the expected rendering of each root tree.
type ForestCase struct {
	Name     string        `json:"name"`
	Tracks   []GoldenTrack `json:"tracks"`
	Vertices []int         `json:"vertex_parents"`
	// HitTrackIDs lists the track id of each hit, one entry per hit.
	HitTrackIDs []int       `json:"hit_track_ids"`
	HitCounts   map[int]int `json:"hit_counts"`
	// Render holds the expected lines per root, in root order.
	Render [][]string `json:"render"`
}

// GoldenTrack is a track record in dataset form.
type GoldenTrack struct {
	ID      int        `json:"id"`
	Vertex  int        `json:"vertex"`
	PDGID   int        `json:"pdgid"`
	P       [3]float64 `json:"p"`
	E       float64    `json:"e"`
	Crossed bool       `json:"crossed_boundary"`
}

// LoadForestDataset loads the forest dataset from the testdata directory.
// The path is resolved relative to this source file: internal/testutil/ → testdata/.
func LoadForestDataset(t *testing.T) *ForestDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "testdata", "forests.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read forest dataset: %v", err)
	}

	var dataset ForestDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse forest dataset: %v", err)
	}
	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
