// Package bottleneck implements the bottleneck-distance tracker (spec
// §4.D): given the extension tree's current root-to-leaf paths, answer
// "what is the heaviest edge between this vertex and its nearest
// degree->=3 ancestor" for any vertex still hanging off a marked path,
// in O(path length) per query rather than a fresh tree walk every time.
//
// The ancestor-walk itself is grounded on lvlath/dfs/cycle.go's
// back-edge detection, which walks a DFS parent chain from a vertex up
// to the point where it meets an already-visited ancestor; here the walk
// instead runs proactively from a marked start vertex up to the tree
// root, resetting its running maximum at every branch point (tree_deg
// >= 3), generalized to carry a PC-variant prize-subtracting
// accumulator (spec §4.D, §6 non-goals: PC support is in-scope).
package bottleneck

import "github.com/katalvlaran/xreduce/exttree"

// unset marks a tracker slot that has never been written (spec §9: -1
// sentinel convention shared with sddist/sdoracle).
const unset = -1.0

// Tracker holds the per-vertex bottleneck cache built by the most recent
// MarkRootPath call, plus a sparse undo stack so UnmarkRootPath need not
// walk every tracked vertex (spec §9: "undo by sparse stack, not full
// clear").
type Tracker struct {
	bottleneck []float64 // -1 == unset; sized to the tree's vertex capacity
	undo       []int     // vertices touched since the last unmark, in write order
	marked     bool
	markRoot   int

	pc      bool
	prizeOf func(int) float64
}

// NewTracker creates a Tracker over nVertices dense vertex indices (the
// xgraph-interned space shared by exttree.Tree).
func NewTracker(nVertices int) *Tracker {
	b := make([]float64, nVertices)
	for i := range b {
		b[i] = unset
	}
	return &Tracker{bottleneck: b}
}

// MarkRootPath walks tree from start up to its root, recording at every
// ancestor u the bottleneck distance from u to the nearest degree->=3
// descendant strictly below u along this path (spec §4.D): the running
// maximum resets to 0 whenever the walk passes a branch vertex (tree_deg
// >= 3), and otherwise accumulates the max edge cost seen since the last
// reset. When pc is true, every non-leaf terminal vertex visited along
// the way additionally subtracts its prize from the running accumulator
// before the max is taken (spec §4.D PC variant), floored at zero since a
// bottleneck distance cannot go negative.
//
// prizeOf may be nil when pc is false.
func (t *Tracker) MarkRootPath(tree *exttree.Tree, start int, pc bool, prizeOf func(int) float64) {
	t.marked = true
	t.markRoot = start
	t.pc = pc
	t.prizeOf = prizeOf

	running := 0.0
	v := start
	for {
		parent := tree.ParentNode[v]
		if parent < 0 {
			// v is the tree root: nothing above it to record.
			break
		}
		edgeCost := tree.ParentEdgeCost[v]
		if tree.TreeDeg[v] >= 3 {
			running = 0
		}
		if running < edgeCost {
			running = edgeCost
		}
		if pc && prizeOf != nil && tree.TreeDeg[v] >= 2 {
			running -= prizeOf(v)
			if running < 0 {
				running = 0
			}
		}
		t.record(parent, running)
		v = parent
	}
}

func (t *Tracker) record(v int, dist float64) {
	if t.bottleneck[v] == unset {
		t.undo = append(t.undo, v)
	}
	t.bottleneck[v] = dist
}

// UnmarkRootPath resets every vertex touched since the last MarkRootPath
// back to unset, without walking the whole vertex space.
func (t *Tracker) UnmarkRootPath(start int) {
	for _, v := range t.undo {
		t.bottleneck[v] = unset
	}
	t.undo = t.undo[:0]
	t.marked = false
	t.markRoot = 0
}

// GetBottleneckDist walks from vUnmarked up the tree until it reaches a
// vertex the last MarkRootPath touched, accumulating the same running
// maximum (and PC-prize subtraction, using the pc/prizeOf configuration
// captured by that MarkRootPath call) along the unmarked suffix, then
// returns max(accumulated, bottleneck[ancestor]) (spec §4.D).
func (t *Tracker) GetBottleneckDist(vUnmarked int, tree *exttree.Tree) float64 {
	running := 0.0
	v := vUnmarked
	for {
		if t.bottleneck[v] != unset {
			if running > t.bottleneck[v] {
				return running
			}
			return t.bottleneck[v]
		}
		parent := tree.ParentNode[v]
		if parent < 0 {
			return running
		}
		edgeCost := tree.ParentEdgeCost[v]
		if tree.TreeDeg[v] >= 3 {
			running = 0
		}
		if running < edgeCost {
			running = edgeCost
		}
		if t.pc && t.prizeOf != nil && tree.TreeDeg[v] >= 2 {
			running -= t.prizeOf(v)
			if running < 0 {
				running = 0
			}
		}
		v = parent
	}
}
