// Package xgraph adapts a *core.Graph into the "graph oracle" collaborator
// the reduction engine consumes (spec §6): an undirected, weighted graph
// with per-vertex terminal/prize attributes and a compressed-sparse-row
// (CSR) adjacency view for the prize-collecting Steiner variant.
//
// Terminal/prize attributes ride on core.Vertex.Metadata rather than a
// parallel map, so a *core.Graph built and populated by any other lvlath
// consumer already carries everything xgraph needs — Wrap only reads the
// two well-known metadata keys below.
//
// CSR() builds the row-start/col-index/weight triple once per Graph and
// caches it; repeated calls are O(1). The cache is invalidated by calling
// Refresh after mutating the underlying core.Graph.
package xgraph

import (
	"errors"
	"math"
	"sort"

	"github.com/katalvlaran/xreduce/core"
)

// Sentinel errors for xgraph operations.
var (
	// ErrNilGraph indicates a nil *core.Graph was passed to Wrap.
	ErrNilGraph = errors.New("xgraph: graph is nil")

	// ErrVertexNotFound indicates a vertex ID absent from the wrapped graph.
	ErrVertexNotFound = errors.New("xgraph: vertex not found")
)

// metadata keys used to carry the prize-collecting attributes on core.Vertex.
const (
	metaPrize = "xgraph.prize"
	metaTerm  = "xgraph.isTerm"
)

// weightScale converts between core.Edge.Weight's int64 and the real-
// valued edge costs the reduction engine's SD/bottleneck arithmetic
// needs (spec §3/§4 costs are reals, e.g. 1.5). core.Graph has no
// float-weight mode, so AddWeightedEdge/EdgeCost/buildCSR round-trip
// costs through a fixed-point scale instead of widening core itself.
const weightScale = 1 << 20

// AddWeightedEdge adds an undirected edge of real-valued cost between
// two already-present vertices, scaling cost into core.Edge.Weight's
// int64 domain (see weightScale).
func AddWeightedEdge(g *core.Graph, from, to string, cost float64) (string, error) {
	return g.AddEdge(from, to, int64(cost*weightScale))
}

// Graph wraps a *core.Graph with the terminal/prize attributes and CSR
// export the reduction engine's graph oracle collaborator needs.
type Graph struct {
	g *core.Graph

	// id <-> dense index interning, since exttree/csrdepot/dcmst all index
	// by small ints rather than core's string vertex IDs.
	idx    map[string]int
	ids    []string
	built  bool
	rowOff []int
	colIdx []int
	weight []float64

	edgeIdx map[string]int // undirected edge id -> dense index, for ruleout's equality bit-set
	edgeIDs []string
}

// Wrap adapts g into a *Graph, interning vertex IDs to dense indices in
// sorted order (matching core.Graph.Vertices()'s own deterministic order).
func Wrap(g *core.Graph) (*Graph, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	ids := g.Vertices() // already sorted ascending, per core's contract
	xg := &Graph{
		g:   g,
		idx: make(map[string]int, len(ids)),
		ids: ids,
	}
	for i, id := range ids {
		xg.idx[id] = i
	}
	return xg, nil
}

// NVertices returns the number of interned vertices.
func (xg *Graph) NVertices() int { return len(xg.ids) }

// IndexOf returns the dense index for a vertex ID, or (-1, false) if absent.
func (xg *Graph) IndexOf(id string) (int, bool) {
	i, ok := xg.idx[id]
	return i, ok
}

// VertexID returns the string ID interned at dense index i.
func (xg *Graph) VertexID(i int) string { return xg.ids[i] }

// Prize returns the prize of vertex index v (0 if never set).
func (xg *Graph) Prize(v int) float64 {
	vert := xg.vertex(v)
	if vert == nil || vert.Metadata == nil {
		return 0
	}
	if p, ok := vert.Metadata[metaPrize].(float64); ok {
		return p
	}
	return 0
}

// SetPrize records the prize of a vertex, auto-vivifying Metadata.
func (xg *Graph) SetPrize(id string, prize float64) error {
	vert, ok := xg.g.VerticesMap()[id]
	if !ok {
		return ErrVertexNotFound
	}
	if vert.Metadata == nil {
		vert.Metadata = make(map[string]interface{})
	}
	vert.Metadata[metaPrize] = prize
	return nil
}

// IsTerm reports whether vertex index v is marked terminal.
func (xg *Graph) IsTerm(v int) bool {
	vert := xg.vertex(v)
	if vert == nil || vert.Metadata == nil {
		return false
	}
	b, _ := vert.Metadata[metaTerm].(bool)
	return b
}

// SetTerm marks a vertex terminal/non-terminal.
func (xg *Graph) SetTerm(id string, isTerm bool) error {
	vert, ok := xg.g.VerticesMap()[id]
	if !ok {
		return ErrVertexNotFound
	}
	if vert.Metadata == nil {
		vert.Metadata = make(map[string]interface{})
	}
	vert.Metadata[metaTerm] = isTerm
	return nil
}

func (xg *Graph) vertex(v int) *core.Vertex {
	if v < 0 || v >= len(xg.ids) {
		return nil
	}
	return xg.g.VerticesMap()[xg.ids[v]]
}

// EdgeID returns a dense, stable integer id for the edge between vertex
// indices u and v (interned on first lookup, in the order callers
// request them), or (-1, false) if no such edge exists. ruleout's
// equality-forbidden bit-set indexes by this id (spec §4.E/§9: "bit-set
// indexed by undirected-edge id").
func (xg *Graph) EdgeID(u, v int) (int, bool) {
	if u < 0 || u >= len(xg.ids) || v < 0 || v >= len(xg.ids) {
		return -1, false
	}
	edges, err := xg.g.Neighbors(xg.ids[u])
	if err != nil {
		return -1, false
	}
	for _, e := range edges {
		other := e.To
		if other == xg.ids[u] {
			other = e.From
		}
		if other == xg.ids[v] {
			return xg.internEdge(e.ID), true
		}
	}
	return -1, false
}

func (xg *Graph) internEdge(id string) int {
	if xg.edgeIdx == nil {
		xg.edgeIdx = make(map[string]int)
	}
	if i, ok := xg.edgeIdx[id]; ok {
		return i
	}
	i := len(xg.edgeIDs)
	xg.edgeIdx[id] = i
	xg.edgeIDs = append(xg.edgeIDs, id)
	return i
}

// NEdgeIDs returns how many distinct edge ids have been interned so
// far, a lower bound a caller can use to size ruleout.New's bit-set
// (growing it as more edges are interned is the caller's
// responsibility; a generous static upper bound such as 2x the graph's
// edge count is simpler in practice).
func (xg *Graph) NEdgeIDs() int { return len(xg.edgeIDs) }

// EdgeCost returns the cost of the cheapest edge between vertex indices u
// and v (either direction), and whether one exists.
func (xg *Graph) EdgeCost(u, v int) (float64, bool) {
	if u < 0 || u >= len(xg.ids) || v < 0 || v >= len(xg.ids) {
		return 0, false
	}
	edges, err := xg.g.Neighbors(xg.ids[u])
	if err != nil {
		return 0, false
	}
	best := math.MaxFloat64
	found := false
	for _, e := range edges {
		other := e.To
		if other == xg.ids[u] {
			other = e.From
		}
		if other == xg.ids[v] {
			c := float64(e.Weight) / weightScale
			if c < best {
				best = c
				found = true
			}
		}
	}
	return best, found
}

// CSR lazily builds and returns the row-start/col-index/weight triple for
// this graph's adjacency: for vertex v, its neighbors are
// colIdx[rowOff[v]:rowOff[v+1]] with costs weight[rowOff[v]:rowOff[v+1]].
func (xg *Graph) CSR() (rowOff, colIdx []int, weight []float64) {
	if !xg.built {
		xg.buildCSR()
	}
	return xg.rowOff, xg.colIdx, xg.weight
}

// Refresh invalidates the cached CSR view (call after mutating the
// underlying core.Graph).
func (xg *Graph) Refresh() {
	xg.built = false
	xg.rowOff = nil
	xg.colIdx = nil
	xg.weight = nil
}

func (xg *Graph) buildCSR() {
	n := len(xg.ids)
	rowOff := make([]int, n+1)
	type arc struct {
		to   int
		cost float64
	}
	arcs := make([][]arc, n)
	for v, id := range xg.ids {
		neighbors, err := xg.g.Neighbors(id)
		if err != nil {
			continue
		}
		for _, e := range neighbors {
			other := e.To
			if other == id {
				other = e.From
			}
			oi, ok := xg.idx[other]
			if !ok {
				continue
			}
			arcs[v] = append(arcs[v], arc{to: oi, cost: float64(e.Weight) / weightScale})
		}
		sort.Slice(arcs[v], func(i, j int) bool { return arcs[v][i].to < arcs[v][j].to })
	}
	total := 0
	for v := 0; v < n; v++ {
		rowOff[v] = total
		total += len(arcs[v])
	}
	rowOff[n] = total
	colIdx := make([]int, total)
	weight := make([]float64, total)
	k := 0
	for v := 0; v < n; v++ {
		for _, a := range arcs[v] {
			colIdx[k] = a.to
			weight[k] = a.cost
			k++
		}
	}
	xg.rowOff, xg.colIdx, xg.weight = rowOff, colIdx, weight
	xg.built = true
}
