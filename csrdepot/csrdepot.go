// Package csrdepot implements the CSR depot (spec §4.B): a stack of
// compressed-sparse-row graphs, each an undirected MST over some subset of
// the extension tree's leaves. Node identity within a CSR is the node's
// position in the extension tree's leaves array, not its global xgraph
// vertex index (spec §4.B).
//
// The sparse layout itself — parallel RowStart/ColIdx/Weight arrays —
// mirrors lvlath/matrix's row-major CSR-style incidence/adjacency export;
// the stack-of-CSRs lifecycle (mutable top, frozen-below) mirrors
// csrdepot's sibling sddist.Store.
package csrdepot

import "errors"

// Sentinel errors for Depot precondition violations (spec §7: fatal).
var (
	// ErrEmptyDepot indicates a top-of-stack operation on an empty Depot.
	ErrEmptyDepot = errors.New("csrdepot: depot is empty")

	// ErrNoEmptyTop indicates GetEmptyTop/EmptyTopSetMarked was called
	// without a prior AddEmptyTopTree, or after the top was already
	// marked.
	ErrNoEmptyTop = errors.New("csrdepot: no empty (unmarked) top tree")

	// ErrBadNodeCount indicates AddEmptyTopTree was asked for fewer than
	// one node.
	ErrBadNodeCount = errors.New("csrdepot: nnodes must be >= 1")
)

// CSR is an undirected MST over nnodes local positions. A k-node MST has
// exactly 2(k-1) directed edge entries (each undirected edge stored both
// ways), and k=1 is the legal zero-edge case (spec §4.B invariant).
type CSR struct {
	N        int
	RowStart []int
	ColIdx   []int
	Weight   []float64

	marked bool // true once sealed via EmptyTopSetMarked; only the
	// unmarked top of a Depot may be mutated further.
}

// NEdges returns the number of directed edge entries currently staged
// (builders append to ColIdx/Weight directly; RowStart is finalized by
// Finalize).
func (c *CSR) NEdges() int { return len(c.ColIdx) }

// Finalize computes RowStart from a flat list of (from, to, weight)
// arcs appended in any order, producing the canonical CSR layout. Callers
// that fill ColIdx/Weight directly must set RowStart themselves; Finalize
// exists for bulk construction (e.g. DCMST's add_node, which materializes
// a whole new CSR from scratch).
func Finalize(n int, fromIdx, toIdx []int, weight []float64) *CSR {
	rowStart := make([]int, n+1)
	for _, f := range fromIdx {
		rowStart[f+1]++
	}
	for i := 0; i < n; i++ {
		rowStart[i+1] += rowStart[i]
	}
	colIdx := make([]int, len(toIdx))
	w := make([]float64, len(toIdx))
	cursor := append([]int(nil), rowStart...)
	for i, f := range fromIdx {
		pos := cursor[f]
		colIdx[pos] = toIdx[i]
		w[pos] = weight[i]
		cursor[f]++
	}
	return &CSR{N: n, RowStart: rowStart, ColIdx: colIdx, Weight: w}
}

// Neighbors returns the adjacency slice for local position v.
func (c *CSR) Neighbors(v int) ([]int, []float64) {
	return c.ColIdx[c.RowStart[v]:c.RowStart[v+1]], c.Weight[c.RowStart[v]:c.RowStart[v+1]]
}

// TotalWeight sums every directed arc's weight and divides by two (each
// undirected edge is stored twice).
func (c *CSR) TotalWeight() float64 {
	var total float64
	for _, w := range c.Weight {
		total += w
	}
	return total / 2
}

// Depot is the stack of CSRs described in spec §4.B.
type Depot struct {
	stack []*CSR
}

// NewDepot creates an empty Depot.
func NewDepot() *Depot { return &Depot{} }

// AddEmptyTopTree pushes a new, empty (unmarked, mutable) CSR scaffold for
// nnodes local positions and returns it for the caller to fill.
func (d *Depot) AddEmptyTopTree(nnodes int) (*CSR, error) {
	if nnodes < 1 {
		return nil, ErrBadNodeCount
	}
	c := &CSR{N: nnodes, RowStart: make([]int, nnodes+1)}
	d.stack = append(d.stack, c)
	return c, nil
}

// GetEmptyTop returns the mutable top CSR, if it has not yet been marked.
func (d *Depot) GetEmptyTop() (*CSR, error) {
	if len(d.stack) == 0 {
		return nil, ErrEmptyDepot
	}
	top := d.stack[len(d.stack)-1]
	if top.marked {
		return nil, ErrNoEmptyTop
	}
	return top, nil
}

// EmptyTopSetMarked seals the top CSR: from this point only GetTop (a
// read-only view) may access it, matching spec §4.B's "only the top CSR
// may be mutable; all lower CSRs are read-only".
func (d *Depot) EmptyTopSetMarked() error {
	top, err := d.GetEmptyTop()
	if err != nil {
		return err
	}
	top.marked = true
	return nil
}

// RemoveTop discards the top CSR.
func (d *Depot) RemoveTop() error {
	if len(d.stack) == 0 {
		return ErrEmptyDepot
	}
	d.stack = d.stack[:len(d.stack)-1]
	return nil
}

// GetTop returns a read-only view of the top CSR.
func (d *Depot) GetTop() (*CSR, error) {
	if len(d.stack) == 0 {
		return nil, ErrEmptyDepot
	}
	return d.stack[len(d.stack)-1], nil
}

// IsEmpty reports whether the Depot currently holds no CSRs.
func (d *Depot) IsEmpty() bool { return len(d.stack) == 0 }

// NCSRs returns how many CSRs are currently on the stack.
func (d *Depot) NCSRs() int { return len(d.stack) }
