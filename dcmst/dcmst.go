// Package dcmst implements the dynamic-cardinality MST kernel (spec §4.C):
// given a prior MST P on k nodes and an adjacency-cost vector from a new
// node to each of P's k nodes, build the MST on k+1 nodes in O(k²) without
// a heap, reusing one scratch buffer across calls.
//
// Algorithm (spec §4.C, "classic edge-swap MST update"): connect the new
// node x via its single cheapest incident edge a[i*]; this is a valid
// spanning tree of k+1 nodes but not necessarily minimum, since some other
// node v might be cheaper to reach directly from x than through the
// existing tree path from i* to v. For every other node v, walk the tree
// path from i* to v and find its heaviest edge (the "bottleneck" of that
// path); if a[v] undercuts it, removing that tree edge and adding (x, v)
// at cost a[v] strictly improves the tree (cycle-property swap), so we
// perform the swap. Processing every v this way, each in O(k) via a path
// walk over the (at most k-edge) tree, gives O(k²) total — matching
// lvlath/tsp/mst.go's O(n²) dense Prim in spirit (no heap, pre-sized
// buffers, deterministic tie-breaks) but specialized to single-vertex
// online insertion rather than building from scratch.
package dcmst

import (
	"errors"
	"math"

	"github.com/katalvlaran/xreduce/csrdepot"
)

// Sentinel errors.
var (
	// ErrInvalidInput indicates len(a) != k+1 for a prior MST of k nodes
	// (spec §4.C).
	ErrInvalidInput = errors.New("dcmst: adjacency vector length must equal k+1")

	// ErrBufferTooSmall indicates the kernel's reusable buffer is smaller
	// than required (spec §5 resource-exhaustion, fatal).
	ErrBufferTooSmall = errors.New("dcmst: adjacency buffer too small")

	// ErrReentrant indicates GetExtWeight was called while an
	// AddNodeInplace build was in progress on the same kernel (spec §9:
	// "not re-entrant").
	ErrReentrant = errors.New("dcmst: kernel is not re-entrant mid add_node_inplace")
)

// Kernel holds the reusable scratch buffer and epsilon policy shared
// across every MST extension call (spec §5: "process-wide reusable
// arena... not re-entrant").
type Kernel struct {
	buf         []float64 // len >= maxNLeaves+1
	eps         float64
	inplaceBusy bool
}

// NewKernel creates a Kernel whose scratch buffer can service adjacency
// vectors up to maxNLeaves+1 wide.
func NewKernel(maxNLeaves int, eps float64) *Kernel {
	return &Kernel{buf: make([]float64, maxNLeaves+1), eps: eps}
}

// Buf returns the kernel's reusable adjacency-cost scratch buffer so
// callers (xtlevels) can fill it with a row of SDs in place and pass the
// relevant prefix straight to AddNode/GetExtWeight without allocating a
// fresh slice per candidate leaf (spec §5: "the DCMST adjacency buffer is
// reused across every call").
func (k *Kernel) Buf() []float64 { return k.buf }

type treeEdge struct {
	u, v int
	w    float64
}

// edgesOf extracts P's undirected edges once each (u < v) from its CSR
// representation.
func edgesOf(p *csrdepot.CSR) []treeEdge {
	edges := make([]treeEdge, 0, p.N)
	for u := 0; u < p.N; u++ {
		nbrs, ws := p.Neighbors(u)
		for i, v := range nbrs {
			if v > u {
				edges = append(edges, treeEdge{u: u, v: v, w: ws[i]})
			}
		}
	}
	return edges
}

// simulate runs the edge-swap algorithm and returns the resulting k-edge
// tree on k+1 nodes (node k == the new node x), without mutating p.
func (k *Kernel) simulate(p *csrdepot.CSR, a []float64) ([]treeEdge, error) {
	n := p.N
	if len(a) != n+1 {
		return nil, ErrInvalidInput
	}
	if len(k.buf) < n+1 {
		return nil, ErrBufferTooSmall
	}
	x := n
	active := edgesOf(p)

	// i* = argmin a[0..n), tie-break smaller index.
	istar := 0
	best := math.MaxFloat64
	for i := 0; i < n; i++ {
		if a[i] < best {
			best = a[i]
			istar = i
		}
	}
	if n > 0 {
		active = append(active, treeEdge{u: istar, v: x, w: a[istar]})
	} else {
		// n == 0: P is the trivial empty (single implicit) tree; nothing
		// to connect to yet. Caller is expected to use Get1Node for this
		// case instead, but we degrade gracefully to a single isolated
		// node.
		return nil, nil
	}

	for v := 0; v < n; v++ {
		if v == istar {
			continue
		}
		heaviestIdx, heaviestW := pathBottleneck(active, istar, v)
		if heaviestIdx < 0 {
			continue // disconnected path (should not happen for a valid MST)
		}
		if a[v] < heaviestW-k.eps {
			active[heaviestIdx] = active[len(active)-1]
			active = active[:len(active)-1]
			active = append(active, treeEdge{u: v, v: x, w: a[v]})
		}
	}

	return active, nil
}

// pathBottleneck walks the tree path from src to dst within edges (a
// forest of treeEdges forming a tree over the nodes touched so far) and
// returns the index (within edges) and weight of its heaviest edge, or
// (-1, 0) if no path exists.
func pathBottleneck(edges []treeEdge, src, dst int) (int, float64) {
	adj := make(map[int][]int, len(edges)*2)
	for i, e := range edges {
		adj[e.u] = append(adj[e.u], i)
		adj[e.v] = append(adj[e.v], i)
	}
	visited := map[int]bool{src: true}
	type frame struct {
		node       int
		maxIdx     int
		maxW       float64
	}
	queue := []frame{{node: src, maxIdx: -1, maxW: -1}}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		if f.node == dst {
			return f.maxIdx, f.maxW
		}
		for _, ei := range adj[f.node] {
			e := edges[ei]
			other := e.v
			if other == f.node {
				other = e.u
			}
			if visited[other] {
				continue
			}
			visited[other] = true
			nextMaxIdx, nextMaxW := f.maxIdx, f.maxW
			if e.w > nextMaxW {
				nextMaxIdx, nextMaxW = ei, e.w
			}
			queue = append(queue, frame{node: other, maxIdx: nextMaxIdx, maxW: nextMaxW})
		}
	}
	return -1, 0
}

func buildCSR(n int, edges []treeEdge) *csrdepot.CSR {
	fromIdx := make([]int, 0, 2*len(edges))
	toIdx := make([]int, 0, 2*len(edges))
	weight := make([]float64, 0, 2*len(edges))
	for _, e := range edges {
		fromIdx = append(fromIdx, e.u, e.v)
		toIdx = append(toIdx, e.v, e.u)
		weight = append(weight, e.w, e.w)
	}
	return csrdepot.Finalize(n, fromIdx, toIdx, weight)
}

// AddNode produces a new MST P' on k+1 nodes starting from a copy of P,
// leaving P itself untouched.
func (k *Kernel) AddNode(p *csrdepot.CSR, a []float64) (*csrdepot.CSR, error) {
	edges, err := k.simulate(p, a)
	if err != nil {
		return nil, err
	}
	return buildCSR(p.N+1, edges), nil
}

// AddNodeInplace extends pPrime (representing a prior MST on pPrime.N
// nodes) to pPrime.N+1 nodes in place: the grown tree is built into freshly
// allocated arrays, which then replace pPrime's N, RowStart, ColIdx and
// Weight. Must not be called while a GetExtWeight call on
// the same Kernel is outstanding (spec §9: the kernel is not re-entrant).
func (k *Kernel) AddNodeInplace(a []float64, pPrime *csrdepot.CSR) error {
	k.inplaceBusy = true
	defer func() { k.inplaceBusy = false }()

	edges, err := k.simulate(pPrime, a)
	if err != nil {
		return err
	}
	grown := buildCSR(pPrime.N+1, edges)
	pPrime.N = grown.N
	pPrime.RowStart = grown.RowStart
	pPrime.ColIdx = grown.ColIdx
	pPrime.Weight = grown.Weight
	return nil
}

// GetExtWeight computes the weight of P extended by the new node without
// materializing the resulting tree, used for the trial extensions of spec
// §4.F step 2.
func (k *Kernel) GetExtWeight(p *csrdepot.CSR, a []float64) (float64, error) {
	if k.inplaceBusy {
		return 0, ErrReentrant
	}
	edges, err := k.simulate(p, a)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, e := range edges {
		total += e.w
	}
	return total, nil
}

// GetWeight returns P's total edge weight.
func (k *Kernel) GetWeight(p *csrdepot.CSR) float64 { return p.TotalWeight() }

// Get1Node initializes out as the trivial one-node, zero-edge MST (spec
// §4.B: "k=1 is a legal zero-edge MST").
func (k *Kernel) Get1Node(out *csrdepot.CSR) {
	out.N = 1
	out.RowStart = []int{0, 0}
	out.ColIdx = nil
	out.Weight = nil
}
