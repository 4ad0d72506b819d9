// Package ruleout implements the rule-out engine of spec §4.G: given the
// per-leaf ancestor/sibling domination already surfaced by xtlevels
// during component-MST construction (Stage 1), it resolves equality
// ambiguities (spec §4.E) and performs the Stage 2 MST-objective test
// that decides whether the current top-level component can be safely
// eliminated.
//
// Grounded on lvlath/tsp/bb.go's bbEngine bound-then-prune structure
// (compare a running lower bound against an incumbent, prune if
// dominated), transplanted from "tour cost vs one-tree lower bound" to
// "tree cost vs component MST weight," and on bound_onetree.go's
// admissible-bound framing for the Stage 2 test. The equality-forbidden
// bit-set + undo stack (§4.E, §9) mirrors csrdepot's own stack-of-marks
// discipline, generalized from CSR-per-level to flag-per-edge.
package ruleout

import (
	"errors"

	"github.com/katalvlaran/xreduce/sdoracle"
	"github.com/katalvlaran/xreduce/xtlevels"
	"github.com/katalvlaran/xreduce/xtlog"
)

// ErrUnknownEdge indicates the equality-forbidden bit-set was asked to
// flag an edge id outside the configured capacity.
var ErrUnknownEdge = errors.New("ruleout: edge id out of range")

// eqForbidStack is the equality-forbidden edge bit-set plus its undo
// stack (spec §4.E, §9: "flag + resettable stack... replaces any
// implicit global").
type eqForbidStack struct {
	forbidden []bool
	stack     []int
}

func newEqForbidStack(nEdges int) *eqForbidStack {
	return &eqForbidStack{forbidden: make([]bool, nEdges)}
}

func (s *eqForbidStack) forbid(edgeID int) error {
	if edgeID < 0 || edgeID >= len(s.forbidden) {
		return ErrUnknownEdge
	}
	if s.forbidden[edgeID] {
		return nil
	}
	s.forbidden[edgeID] = true
	s.stack = append(s.stack, edgeID)
	return nil
}

// rewind pops every mark back to the given stack depth (LIFO), clearing
// their flags, matching spec §4.E's "on backtrack, the stack is rewound
// and flags cleared."
func (s *eqForbidStack) rewind(toDepth int) {
	for len(s.stack) > toDepth {
		last := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]
		s.forbidden[last] = false
	}
}

func (s *eqForbidStack) depth() int { return len(s.stack) }

func (s *eqForbidStack) hasForbidden() bool { return len(s.stack) > 0 }

// Options configures an Engine.
type Options struct {
	Epsilon float64
	Tracer  xtlog.Tracer
}

// DefaultOptions mirrors xtlevels.DefaultOptions's epsilon/tracer
// baseline.
func DefaultOptions() Options {
	return Options{Epsilon: 1e-9, Tracer: xtlog.NoopTracer{}}
}

// Option mutates an Options value during construction.
type Option func(*Options)

// WithEpsilon overrides the near-equality tolerance.
func WithEpsilon(eps float64) Option { return func(o *Options) { o.Epsilon = eps } }

// WithTracer installs a debug tracer.
func WithTracer(t xtlog.Tracer) Option { return func(o *Options) { o.Tracer = t } }

// Engine is the rule-out collaborator of spec §4.G.
type Engine struct {
	lc      *xtlevels.Lifecycle
	eqStack *eqForbidStack
	opts    Options
}

// New builds an Engine over an already-constructed Lifecycle, with
// capacity for nEdges distinct undirected edge ids in the equality
// bit-set.
func New(lc *xtlevels.Lifecycle, nEdges int, opts ...Option) *Engine {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Engine{lc: lc, eqStack: newEqForbidStack(nEdges), opts: o}
}

// equalityHolds re-derives the SD between u and v with the single edge
// forbiddenEdge excluded, via the oracle's SDDoubleForbidden collaborator;
// the other edges of the matching bottleneck path are not excluded. If the
// re-derived distance is feasible and does not exceed distEq (within
// epsilon), the rule-out holds with equality, and forbiddenEdge is
// recorded on the undo stack for the duration of this branch.
func (e *Engine) equalityHolds(distEq float64, forbiddenEdge, u, v int) bool {
	alt := e.lc.Oracle().SDDoubleForbidden(distEq, forbiddenEdge, u, v)
	if !sdoracle.IsFeasible(alt) {
		return false // conservative: no alternative found, do not rule out via equality
	}
	if alt <= distEq+e.opts.Epsilon {
		_ = e.eqStack.forbid(forbiddenEdge)
		return true
	}
	return false
}

// ResolveEquality is called by the caller (xreduce.Engine) for each
// ancestor/sibling pair xtlevels.Lifecycle.FillVertical or HorizontalAdd
// flagged as exactly equal to its bottleneck/sibling bound, once per
// candidate edge id. Returns whether the equality rule-out holds.
func (e *Engine) ResolveEquality(distEq float64, edgeID, u, v int) bool {
	return e.equalityHolds(distEq, edgeID, u, v)
}

// BacktrackEquality rewinds the equality-forbidden stack to depth
// (typically 0, when a whole branch unwinds) per spec §4.E/§5: "the
// equality-forbidden edge stack is the sole backtrack mechanism inside a
// branch and is rewound via its own stack pointer."
func (e *Engine) BacktrackEquality(toDepth int) { e.eqStack.rewind(toDepth) }

// EqualityDepth reports the current equality-forbidden stack depth, so a
// caller can snapshot it before a branch and rewind to that point later.
func (e *Engine) EqualityDepth() int { return e.eqStack.depth() }

// HasForbiddenEdges reports whether any edge is currently
// equality-forbidden (spec §8 property #5: "sdeq_has_forbidden_edges").
func (e *Engine) HasForbiddenEdges() bool { return e.eqStack.hasForbidden() }

// stage2 implements spec §4.G Stage 2: after the top component MST is
// built, compare its weight against tree_cost.
func (e *Engine) stage2(weight, treeCost float64, nEdges, nLeaves int) bool {
	eps := e.opts.Epsilon
	if weight < treeCost-eps {
		return true
	}
	if nEdges > 2 && weight <= treeCost+eps {
		return true
	}
	if nLeaves == 3 && abs(weight-treeCost) <= eps {
		return true // 3-leaf equality sub-check: caller already resolved
		// any per-pair equality ambiguity via ResolveEquality before
		// reaching Stage 2, per spec §4.G's "using strict-forbidden SDs
		// on all three leaf-pairs."
	}
	return false
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// RuleOutPeripheral runs Stage 2 of spec §4.G against the current
// top-level component MST and tree cost, and reports whether the whole
// top component is ruled out. Calling it twice without an intervening
// state change returns the same result (spec §8 idempotence property),
// since it is a pure read over the already-built component MST.
func (e *Engine) RuleOutPeripheral() (bool, error) {
	top, err := e.lc.ComponentTop()
	if err != nil {
		return false, err
	}
	weight := top.TotalWeight()
	treeCost := e.lc.Tree().Cost
	ruledOut := e.stage2(weight, treeCost, top.NEdges()/2, e.lc.Tree().NLeaves())
	if ruledOut {
		e.opts.Tracer.RuleOut(top.N-1, "mst_objective", weight, treeCost)
	}
	return ruledOut, nil
}
