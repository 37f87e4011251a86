package eventstore

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hgcal-tools/simchain/tracktree"
)

// CSV column headers per collection. The leading "event" column is implied.
var (
	trackColumns       = []string{"track_id", "vertex_index", "pdgid", "px", "py", "pz", "e", "crossed_boundary", "genpart_index"}
	vertexColumns      = []string{"parent_index", "x", "y", "z"}
	hitColumns         = []string{"track_id", "det_id", "energy", "time"}
	genParticleColumns = []string{"pdgid", "status", "px", "py", "pz", "e"}

	columnsFor = map[string][]string{
		CollectionTracks:       trackColumns,
		CollectionVertices:     vertexColumns,
		CollectionHits:         hitColumns,
		CollectionGenParticles: genParticleColumns,
	}
)

// fieldParser accumulates the first conversion error so a row can be
// decoded in one pass and checked once.
type fieldParser struct {
	row []string
	err error
}

func (p *fieldParser) int(i int) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(p.row[i])
	if err != nil {
		p.err = fmt.Errorf("column %d: %w", i, err)
	}
	return v
}

func (p *fieldParser) uint32(i int) uint32 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseUint(p.row[i], 10, 32)
	if err != nil {
		p.err = fmt.Errorf("column %d: %w", i, err)
	}
	return uint32(v)
}

func (p *fieldParser) float(i int) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.row[i], 64)
	if err != nil {
		p.err = fmt.Errorf("column %d: %w", i, err)
	}
	return v
}

func (p *fieldParser) bool(i int) bool {
	if p.err != nil {
		return false
	}
	v, err := strconv.ParseBool(p.row[i])
	if err != nil {
		p.err = fmt.Errorf("column %d: %w", i, err)
	}
	return v
}

func (p *fieldParser) vec(i int) r3.Vec {
	return r3.Vec{X: p.float(i), Y: p.float(i + 1), Z: p.float(i + 2)}
}

func parseTrack(row []string) (tracktree.RawTrack, error) {
	p := fieldParser{row: row}
	t := tracktree.RawTrack{
		ID:              p.int(0),
		VertexIndex:     p.int(1),
		PDGID:           p.int(2),
		Momentum:        tracktree.FourVector{P: p.vec(3), E: p.float(6)},
		CrossedBoundary: p.bool(7),
		GenPartIndex:    p.int(8),
	}
	return t, p.err
}

func parseVertex(row []string) (tracktree.RawVertex, error) {
	p := fieldParser{row: row}
	v := tracktree.RawVertex{ParentIndex: p.int(0), Position: p.vec(1)}
	return v, p.err
}

func parseHit(row []string) (tracktree.RawHit, error) {
	p := fieldParser{row: row}
	h := tracktree.RawHit{TrackID: p.int(0), DetID: p.uint32(1), Energy: p.float(2), Time: p.float(3)}
	return h, p.err
}

func parseGenParticle(row []string) (GenParticle, error) {
	p := fieldParser{row: row}
	g := GenParticle{
		PDGID:    p.int(0),
		Status:   p.int(1),
		Momentum: tracktree.FourVector{P: p.vec(2), E: p.float(5)},
	}
	return g, p.err
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatVec(v r3.Vec) []string {
	return []string{formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z)}
}

func formatTrack(t tracktree.RawTrack) []string {
	row := []string{strconv.Itoa(t.ID), strconv.Itoa(t.VertexIndex), strconv.Itoa(t.PDGID)}
	row = append(row, formatVec(t.Momentum.P)...)
	return append(row, formatFloat(t.Momentum.E), strconv.FormatBool(t.CrossedBoundary), strconv.Itoa(t.GenPartIndex))
}

func formatVertex(v tracktree.RawVertex) []string {
	return append([]string{strconv.Itoa(v.ParentIndex)}, formatVec(v.Position)...)
}

func formatHit(h tracktree.RawHit) []string {
	return []string{strconv.Itoa(h.TrackID), strconv.FormatUint(uint64(h.DetID), 10), formatFloat(h.Energy), formatFloat(h.Time)}
}

func formatGenParticle(g GenParticle) []string {
	row := []string{strconv.Itoa(g.PDGID), strconv.Itoa(g.Status)}
	row = append(row, formatVec(g.Momentum.P)...)
	return append(row, formatFloat(g.Momentum.E))
}
