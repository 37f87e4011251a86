// Package eventstore reads and writes the per-event collections consumed by
// the track tools: simulated tracks, vertices, calorimeter hits and generator
// particles.
//
// A store is a directory holding header.yaml and one CSV file per branch.
// The header maps each logical collection name to its branch; every branch
// file starts with an "event" column followed by the collection's fields.
package eventstore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StoreVersion is the only header version Open accepts.
const StoreVersion = 1

// HeaderFile is the name of the metadata file inside a store directory.
const HeaderFile = "header.yaml"

// Logical collection names.
const (
	CollectionTracks       = "tracks"
	CollectionVertices     = "vertices"
	CollectionHits         = "hits"
	CollectionGenParticles = "genparticles"
)

// DefaultBranches are the branch names the simulation step writes.
var DefaultBranches = map[string]string{
	CollectionTracks:       "SimTracks_g4SimHits__SIM",
	CollectionVertices:     "SimVertexs_g4SimHits__SIM",
	CollectionHits:         "PCaloHits_g4SimHits_HGCHitsEE_SIM",
	CollectionGenParticles: "recoGenParticles_genParticles__GEN",
}

// Header is the store metadata kept in header.yaml.
type Header struct {
	Version     int               `yaml:"store_version"`
	Events      int               `yaml:"events"`
	CreatedAt   string            `yaml:"created_at,omitempty"`
	Source      string            `yaml:"source,omitempty"`
	Collections map[string]string `yaml:"collections"`
}

// Validate checks the header fields that Open relies on.
func (h *Header) Validate() error {
	if h.Version != StoreVersion {
		return fmt.Errorf("unsupported store_version %d; want %d", h.Version, StoreVersion)
	}
	if h.Events < 0 {
		return fmt.Errorf("events must be non-negative, got %d", h.Events)
	}
	seen := make(map[string]string, len(h.Collections))
	for name, branch := range h.Collections {
		if _, ok := columnsFor[name]; !ok {
			return fmt.Errorf("unknown collection %q", name)
		}
		if branch == "" || filepath.Base(branch) != branch {
			return fmt.Errorf("collection %q: invalid branch name %q", name, branch)
		}
		if other, dup := seen[branch]; dup {
			return fmt.Errorf("collections %q and %q share branch %q", other, name, branch)
		}
		seen[branch] = name
	}
	return nil
}

func readHeader(path string) (*Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading store header: %w", err)
	}
	var h Header
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&h); err != nil {
		return nil, fmt.Errorf("parsing store header %s: %w", path, err)
	}
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("store header %s: %w", path, err)
	}
	return &h, nil
}

func writeHeader(path string, h *Header) error {
	data, err := yaml.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshaling store header: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing store header: %w", err)
	}
	return nil
}
