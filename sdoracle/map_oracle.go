package sdoracle

// MapOracle is a dense, row-major reference Oracle backed by a flat
// []float64 buffer, in the same flat-slice style as matrix.Dense: a
// symmetric n×n table of precomputed special distances plus a set of
// temporarily forbidden undirected edges for the §4.E equality check.
//
// It exists for tests and for presolvers that precompute every SD up
// front; it is not required by the engine, which only depends on the
// Oracle interface.
type MapOracle struct {
	n         int
	data      []float64 // row-major n*n, symmetric by construction
	forbidden map[int]bool
}

// NewMapOracle creates an n×n oracle with every pair initialized to
// Unknown.
func NewMapOracle(n int) *MapOracle {
	data := make([]float64, n*n)
	for i := range data {
		data[i] = Unknown
	}
	return &MapOracle{n: n, data: data, forbidden: make(map[int]bool)}
}

// Set records the special distance between u and v (symmetric).
func (m *MapOracle) Set(u, v int, dist float64) {
	m.data[u*m.n+v] = dist
	m.data[v*m.n+u] = dist
}

// SDDouble implements Oracle.
func (m *MapOracle) SDDouble(u, v int) float64 {
	if u == v {
		return FarAway
	}
	return m.data[u*m.n+v]
}

// ForbidEdge marks an undirected edge id as temporarily excluded from
// SDDoubleForbidden's view.
func (m *MapOracle) ForbidEdge(edgeID int) { m.forbidden[edgeID] = true }

// AllowEdge clears a previously forbidden edge id.
func (m *MapOracle) AllowEdge(edgeID int) { delete(m.forbidden, edgeID) }

// SDDoubleForbidden implements Oracle. MapOracle has no per-edge routing
// information, so it conservatively returns distEq unchanged when the
// requested edge is not currently forbidden, and FarAway (no alternative)
// when it is — a caller-controlled stand-in sufficient to drive the §4.E
// equality scenarios in tests, where the test pre-forbids exactly the
// edge under scrutiny.
func (m *MapOracle) SDDoubleForbidden(distEq float64, forbiddenEdge, u, v int) float64 {
	if m.forbidden[forbiddenEdge] {
		return FarAway
	}
	return distEq
}
