// Package xtbuild builds the small synthetic graphs spec.md §8 names
// (triangle, star-with-four-leaves, PC path) plus seeded-random property
// generators, for use by tests only.
//
// A trimmed adaptation of lvlath/builder's per-topology constructors
// (impl_star.go, impl_path.go, impl_complete.go): same "deterministic
// ID, deterministic edge emission order, deterministic weight" contract,
// collapsed from builder's generic Constructor/BuildGraph pipeline down
// to one direct function per scenario, since xreduce's tests need exact
// control over individual edge weights rather than a general topology
// generator.
package xtbuild

import (
	"fmt"
	"math/rand"

	"github.com/katalvlaran/xreduce/core"
	"github.com/katalvlaran/xreduce/sdoracle"
	"github.com/katalvlaran/xreduce/xgraph"
)

// vid renders vertex index i as a stable string id, mirroring builder's
// cfg.idFn default numeric-ID convention.
func vid(i int) string { return fmt.Sprintf("v%d", i) }

// Scenario bundles a constructed graph oracle with a matching SD oracle
// ready for SDDouble queries, so tests can build both collaborators with
// one call.
type Scenario struct {
	Graph  *xgraph.Graph
	Oracle *sdoracle.MapOracle
	Index  map[string]int // vertex id -> dense index, for readability in tests
}

func newScenario(g *core.Graph, nSD int) (*Scenario, error) {
	xg, err := xgraph.Wrap(g)
	if err != nil {
		return nil, err
	}
	oracle := sdoracle.NewMapOracle(nSD)
	idx := make(map[string]int, xg.NVertices())
	for i := 0; i < xg.NVertices(); i++ {
		idx[xg.VertexID(i)] = i
	}
	return &Scenario{Graph: xg, Oracle: oracle, Index: idx}, nil
}

// Triangle builds the 3-vertex complete graph of spec §8 scenario 1/2:
// v0-v1, v1-v2 at cost ab/bc, and v0-v2 at cost ac.
func Triangle(ab, bc, ac float64) (*Scenario, error) {
	g := core.NewGraph(core.WithWeighted(), core.WithDirected(false))
	for i := 0; i < 3; i++ {
		if err := g.AddVertex(vid(i)); err != nil {
			return nil, err
		}
	}
	if _, err := xgraph.AddWeightedEdge(g, vid(0), vid(1), ab); err != nil {
		return nil, err
	}
	if _, err := xgraph.AddWeightedEdge(g, vid(1), vid(2), bc); err != nil {
		return nil, err
	}
	if _, err := xgraph.AddWeightedEdge(g, vid(0), vid(2), ac); err != nil {
		return nil, err
	}
	return newScenario(g, 3)
}

// Star builds a hub "center" with nLeaves leaves, every spoke at cost
// spokeCost, matching spec §8 scenario 3's "star with four leaves" shape
// generalized to any leaf count (center occupies vertex index 0, leaves
// 1..nLeaves, same ordering builder.Star's hub-then-leaves convention
// uses).
func Star(nLeaves int, spokeCost float64) (*Scenario, error) {
	g := core.NewGraph(core.WithWeighted(), core.WithDirected(false))
	if err := g.AddVertex(vid(0)); err != nil {
		return nil, err
	}
	for i := 1; i <= nLeaves; i++ {
		if err := g.AddVertex(vid(i)); err != nil {
			return nil, err
		}
		if _, err := xgraph.AddWeightedEdge(g, vid(0), vid(i), spokeCost); err != nil {
			return nil, err
		}
	}
	return newScenario(g, nLeaves+1)
}

// PCPath builds the 3-vertex path v0-t-v2 of spec §8 scenario 6, with t
// (index 1) marked as a prize-collecting terminal of the given prize.
func PCPath(edgeCost1, edgeCost2, prize float64) (*Scenario, error) {
	g := core.NewGraph(core.WithWeighted(), core.WithDirected(false))
	for i := 0; i < 3; i++ {
		if err := g.AddVertex(vid(i)); err != nil {
			return nil, err
		}
	}
	if _, err := xgraph.AddWeightedEdge(g, vid(0), vid(1), edgeCost1); err != nil {
		return nil, err
	}
	if _, err := xgraph.AddWeightedEdge(g, vid(1), vid(2), edgeCost2); err != nil {
		return nil, err
	}
	sc, err := newScenario(g, 3)
	if err != nil {
		return nil, err
	}
	if err := sc.Graph.SetTerm(vid(1), true); err != nil {
		return nil, err
	}
	if err := sc.Graph.SetPrize(vid(1), prize); err != nil {
		return nil, err
	}
	return sc, nil
}

// RandomSparse builds a seeded random connected graph over n vertices
// with approximately m extra edges beyond a random spanning path,
// weights drawn uniformly in [1, maxWeight), in the same seeded-PRNG,
// no testing/quick style as lvlath/builder.WithSeed-driven generators.
func RandomSparse(n, extraEdges int, maxWeight float64, seed int64) (*Scenario, error) {
	g := core.NewGraph(core.WithWeighted(), core.WithDirected(false))
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		if err := g.AddVertex(vid(i)); err != nil {
			return nil, err
		}
	}
	// Random spanning path guarantees connectivity before extra edges.
	order := rng.Perm(n)
	for i := 1; i < n; i++ {
		w := 1 + rng.Float64()*(maxWeight-1)
		if _, err := xgraph.AddWeightedEdge(g, vid(order[i-1]), vid(order[i]), w); err != nil {
			return nil, err
		}
	}
	for k := 0; k < extraEdges; k++ {
		a, b := rng.Intn(n), rng.Intn(n)
		if a == b {
			continue
		}
		w := 1 + rng.Float64()*(maxWeight-1)
		_, _ = xgraph.AddWeightedEdge(g, vid(a), vid(b), w) // duplicate edges silently skipped if multi-edges disabled
	}
	return newScenario(g, n)
}
