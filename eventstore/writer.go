package eventstore

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hgcal-tools/simchain/tracktree"
)

// EventData is the content of one event handed to a Writer.
type EventData struct {
	Tracks       []tracktree.RawTrack
	Vertices     []tracktree.RawVertex
	Hits         []tracktree.RawHit
	GenParticles []GenParticle
}

// Writer accumulates events in memory and writes a store on Close.
type Writer struct {
	dir      string
	source   string
	branches map[string]string
	events   []EventData
}

// NewWriter prepares a store in dir using DefaultBranches. The directory is
// created on Close.
func NewWriter(dir, source string) *Writer {
	branches := make(map[string]string, len(DefaultBranches))
	for k, v := range DefaultBranches {
		branches[k] = v
	}
	return &Writer{dir: dir, source: source, branches: branches}
}

// SetBranch overrides the branch name used for a collection.
func (w *Writer) SetBranch(collection, name string) error {
	if _, ok := columnsFor[collection]; !ok {
		return fmt.Errorf("unknown collection %q", collection)
	}
	w.branches[collection] = name
	return nil
}

// Add appends one event.
func (w *Writer) Add(ev EventData) {
	w.events = append(w.events, ev)
}

// Close writes header.yaml and every branch file.
func (w *Writer) Close() error {
	h := &Header{
		Version:     StoreVersion,
		Events:      len(w.events),
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Source:      w.source,
		Collections: w.branches,
	}
	if err := h.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	writers := map[string]func(EventData, func([]string) error) error{
		CollectionTracks: func(ev EventData, emit func([]string) error) error {
			return emitAll(ev.Tracks, formatTrack, emit)
		},
		CollectionVertices: func(ev EventData, emit func([]string) error) error {
			return emitAll(ev.Vertices, formatVertex, emit)
		},
		CollectionHits: func(ev EventData, emit func([]string) error) error {
			return emitAll(ev.Hits, formatHit, emit)
		},
		CollectionGenParticles: func(ev EventData, emit func([]string) error) error {
			return emitAll(ev.GenParticles, formatGenParticle, emit)
		},
	}
	for collection, name := range w.branches {
		if err := w.writeBranch(filepath.Join(w.dir, name+".csv"), columnsFor[collection], writers[collection]); err != nil {
			return err
		}
	}
	return writeHeader(filepath.Join(w.dir, HeaderFile), h)
}

func (w *Writer) writeBranch(path string, columns []string, rows func(EventData, func([]string) error) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating branch file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	if err := writer.Write(append([]string{"event"}, columns...)); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, ev := range w.events {
		prefix := strconv.Itoa(i)
		emit := func(row []string) error {
			return writer.Write(append([]string{prefix}, row...))
		}
		if err := rows(ev, emit); err != nil {
			return fmt.Errorf("writing %s event %d: %w", path, i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return file.Close()
}

func emitAll[T any](rows []T, format func(T) []string, emit func([]string) error) error {
	for _, r := range rows {
		if err := emit(format(r)); err != nil {
			return err
		}
	}
	return nil
}
