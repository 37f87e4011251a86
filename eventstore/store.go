package eventstore

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hgcal-tools/simchain/tracktree"
)

// ErrNoCollection is returned when an event is asked for a collection the
// store header does not map to a branch.
var ErrNoCollection = errors.New("collection not present in store")

// BranchInfo describes one branch file of a store.
type BranchInfo struct {
	Name       string
	Collection string
	Rows       int
}

// branch is one lazily parsed collection, rows grouped by event.
type branch[T any] struct {
	once   sync.Once
	events [][]T
	err    error
}

// Store is an opened event store. Branch files are parsed on first access
// and kept for the lifetime of the Store. Safe for concurrent use.
type Store struct {
	dir    string
	header *Header

	tracks       branch[tracktree.RawTrack]
	vertices     branch[tracktree.RawVertex]
	hits         branch[tracktree.RawHit]
	genParticles branch[GenParticle]
}

// Open reads and validates the header of the store in dir. Branch files are
// not touched until an event accessor needs them.
func Open(dir string) (*Store, error) {
	h, err := readHeader(filepath.Join(dir, HeaderFile))
	if err != nil {
		return nil, err
	}
	logrus.Debugf("opened event store %s: %d events, %d collections", dir, h.Events, len(h.Collections))
	return &Store{dir: dir, header: h}, nil
}

// Header returns a copy of the store metadata.
func (s *Store) Header() Header {
	h := *s.header
	h.Collections = make(map[string]string, len(s.header.Collections))
	for k, v := range s.header.Collections {
		h.Collections[k] = v
	}
	return h
}

// NumEvents is the event count declared in the header.
func (s *Store) NumEvents() int {
	return s.header.Events
}

// Branches lists the mapped branches sorted by name, with their row counts.
func (s *Store) Branches() ([]BranchInfo, error) {
	infos := make([]BranchInfo, 0, len(s.header.Collections))
	for collection, name := range s.header.Collections {
		rows, err := countRows(s.branchPath(name))
		if err != nil {
			return nil, err
		}
		infos = append(infos, BranchInfo{Name: name, Collection: collection, Rows: rows})
	}
	slices.SortFunc(infos, func(a, b BranchInfo) int { return cmp.Compare(a.Name, b.Name) })
	return infos, nil
}

// Event returns a handle on event i, counted from zero.
func (s *Store) Event(i int) (*Event, error) {
	if i < 0 || i >= s.header.Events {
		return nil, fmt.Errorf("event %d out of range [0, %d)", i, s.header.Events)
	}
	return &Event{store: s, index: i}, nil
}

func (s *Store) branchPath(name string) string {
	return filepath.Join(s.dir, name+".csv")
}

func loadCollection[T any](s *Store, b *branch[T], collection string, parse func([]string) (T, error)) ([][]T, error) {
	b.once.Do(func() {
		name, ok := s.header.Collections[collection]
		if !ok {
			b.err = fmt.Errorf("%s: %w", collection, ErrNoCollection)
			return
		}
		b.events, b.err = readBranch(s.branchPath(name), columnsFor[collection], s.header.Events, parse)
		if b.err == nil {
			logrus.Debugf("loaded branch %s (%s)", name, collection)
		}
	})
	return b.events, b.err
}

// readBranch parses one branch file into per-event row slices.
func readBranch[T any](path string, columns []string, numEvents int, parse func([]string) (T, error)) ([][]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening branch: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(columns) + 1

	head, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s header: %w", path, err)
	}
	if want := append([]string{"event"}, columns...); !slices.Equal(head, want) {
		return nil, fmt.Errorf("%s: columns %v, want %v", path, head, want)
	}

	events := make([][]T, numEvents)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		ev, err := strconv.Atoi(row[0])
		if err != nil || ev < 0 || ev >= numEvents {
			return nil, fmt.Errorf("%s line %d: invalid event %q", path, line, row[0])
		}
		rec, err := parse(row[1:])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		events[ev] = append(events[ev], rec)
	}
	return events, nil
}

func countRows(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening branch: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.ReuseRecord = true
	n := -1
	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", path, err)
		}
		n++
	}
	return max(n, 0), nil
}
