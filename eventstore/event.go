package eventstore

import "github.com/hgcal-tools/simchain/tracktree"

// Event is a view of one event in a Store.
type Event struct {
	store *Store
	index int
}

// Index is the zero-based position of the event in its store.
func (e *Event) Index() int {
	return e.index
}

// Tracks returns the event's simulated tracks. The store reads the tracks
// collection once, on first use by any event.
func (e *Event) Tracks() ([]tracktree.RawTrack, error) {
	rows, err := loadCollection(e.store, &e.store.tracks, CollectionTracks, parseTrack)
	if err != nil {
		return nil, err
	}
	return rows[e.index], nil
}

// Vertices returns the event's simulated vertices in collection order.
func (e *Event) Vertices() ([]tracktree.RawVertex, error) {
	rows, err := loadCollection(e.store, &e.store.vertices, CollectionVertices, parseVertex)
	if err != nil {
		return nil, err
	}
	return rows[e.index], nil
}

// Hits returns the calorimeter hits of the event.
func (e *Event) Hits() ([]tracktree.RawHit, error) {
	rows, err := loadCollection(e.store, &e.store.hits, CollectionHits, parseHit)
	if err != nil {
		return nil, err
	}
	return rows[e.index], nil
}

// GenParticles returns the generator-level particles of the event.
func (e *Event) GenParticles() ([]GenParticle, error) {
	rows, err := loadCollection(e.store, &e.store.genParticles, CollectionGenParticles, parseGenParticle)
	if err != nil {
		return nil, err
	}
	return rows[e.index], nil
}

// Forest builds the decay forest of the event's tracks and vertices.
func (e *Event) Forest() (*tracktree.Forest, error) {
	tracks, err := e.Tracks()
	if err != nil {
		return nil, err
	}
	vertices, err := e.Vertices()
	if err != nil {
		return nil, err
	}
	return tracktree.BuildForest(tracks, vertices)
}
