// Package xreduce is the top-level extended-reduction MST engine (spec
// §6 EXTERNAL INTERFACES): the one-to-one realization of the operation
// list an outer presolving driver calls, delegating to exttree (shared
// state), xtlevels (level lifecycle), and ruleout (rule-out decisions).
//
// Dispatcher shape is grounded on lvlath/tsp/solve.go's Solve dispatcher:
// validate preconditions once, then delegate to the right sub-package,
// exactly as Solve validates then routes to mst.go/bb.go/approx.go.
package xreduce

import (
	"errors"

	"github.com/katalvlaran/xreduce/exttree"
	"github.com/katalvlaran/xreduce/ruleout"
	"github.com/katalvlaran/xreduce/sdoracle"
	"github.com/katalvlaran/xreduce/xgraph"
	"github.com/katalvlaran/xreduce/xtlevels"
	"github.com/katalvlaran/xreduce/xtlog"
)

// Sentinel errors for Engine precondition violations (spec §7: fatal).
var (
	// ErrAlreadyInitialized indicates AddRootLevel was called twice.
	ErrAlreadyInitialized = errors.New("xreduce: engine already initialized")

	// ErrNotInitialized indicates an operation was attempted before
	// AddRootLevel.
	ErrNotInitialized = errors.New("xreduce: engine not initialized")
)

// Options configures an Engine via functional options (lvlath/dijkstra
// and lvlath/bfs style).
type Options struct {
	MaxDegree int
	Epsilon   float64
	PCVariant bool
	Tracer    xtlog.Tracer
	MaxEdgeID int // capacity for the equality-forbidden bit-set
}

// DefaultOptions returns the baseline configuration.
func DefaultOptions() Options {
	return Options{MaxDegree: 8, Epsilon: 1e-9, Tracer: xtlog.NoopTracer{}, MaxEdgeID: 1024}
}

// Option mutates an Options value during construction.
type Option func(*Options)

// WithPCVariant enables the prize-collecting variant throughout the
// engine.
func WithPCVariant() Option { return func(o *Options) { o.PCVariant = true } }

// WithEpsilon overrides the near-equality tolerance.
func WithEpsilon(eps float64) Option { return func(o *Options) { o.Epsilon = eps } }

// WithMaxDegree overrides the planned vertical-level capacity.
func WithMaxDegree(d int) Option { return func(o *Options) { o.MaxDegree = d } }

// WithTracer installs a debug tracer (spec §9).
func WithTracer(t xtlog.Tracer) Option { return func(o *Options) { o.Tracer = t } }

// WithMaxEdgeID sets the equality-forbidden bit-set's capacity to the
// largest undirected edge id the graph oracle will ever report.
func WithMaxEdgeID(n int) Option { return func(o *Options) { o.MaxEdgeID = n } }

// Engine is the façade spec §6 describes: it owns the extension tree,
// the level lifecycle, and the rule-out engine, and exposes exactly the
// operation list an outer presolving driver needs.
type Engine struct {
	tree *exttree.Tree
	lc   *xtlevels.Lifecycle
	ro   *ruleout.Engine
	opts Options

	initialized    bool
	pendingExtNode int

	// snapshots for the equality-forbidden stack, one per level pushed,
	// so LevelRemove can rewind exactly what LevelClose's branch added.
	eqDepths []int
}

// New builds an Engine rooted at root over graph, consulting oracle for
// special distances.
func New(root int, graph *xgraph.Graph, oracle sdoracle.Oracle, opts ...Option) *Engine {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	tree := exttree.NewTree(root, graph.NVertices())
	lcOpts := []xtlevels.Option{
		xtlevels.WithMaxDegree(o.MaxDegree),
		xtlevels.WithEpsilon(o.Epsilon),
		xtlevels.WithTracer(o.Tracer),
	}
	if o.PCVariant {
		lcOpts = append(lcOpts, xtlevels.WithPCVariant())
	}
	lc := xtlevels.New(tree, graph, oracle, lcOpts...)
	ro := ruleout.New(lc, o.MaxEdgeID, ruleout.WithEpsilon(o.Epsilon), ruleout.WithTracer(o.Tracer))
	return &Engine{tree: tree, lc: lc, ro: ro, opts: o}
}

// AddRootLevel initializes every stack with a one-node MST (spec §6).
// root must match the vertex the Engine was constructed with.
func (e *Engine) AddRootLevel(root int) error {
	if e.initialized {
		return ErrAlreadyInitialized
	}
	if err := e.lc.InitRoot(); err != nil {
		return err
	}
	e.initialized = true
	return nil
}

// LevelInit begins a new extension level (spec §6).
func (e *Engine) LevelInit() error {
	if !e.initialized {
		return ErrNotInitialized
	}
	e.eqDepths = append(e.eqDepths, e.ro.EqualityDepth())
	return e.lc.LevelInit()
}

// VerticalAddLeaf processes one candidate extension edge: fills its
// vertical SD row, runs the ancestor-bottleneck and trial-MST tests, and
// reports whether the candidate is ruled out (spec §6).
func (e *Engine) VerticalAddLeaf(edgeToNeighbor exttree.CandidateEdge) (ruledOut bool, err error) {
	return e.verticalAddLeaf(edgeToNeighbor, false)
}

// VerticalAddLeafInitial is VerticalAddLeaf specialized for the initial
// component (spec §6): the only behavioral difference is that the
// vertical level's target count already excludes the parent, handled by
// xtlevels.LevelInit's own depth check, so this simply forwards.
func (e *Engine) VerticalAddLeafInitial(edgeToNeighbor exttree.CandidateEdge) (ruledOut bool, err error) {
	return e.verticalAddLeaf(edgeToNeighbor, true)
}

func (e *Engine) verticalAddLeaf(edge exttree.CandidateEdge, initial bool) (bool, error) {
	if !e.initialized {
		return false, ErrNotInitialized
	}
	if err := e.lc.LeafInit(edge.Parent, edge.Child); err != nil {
		return false, err
	}
	ruledOut, equalCandidates, err := e.lc.FillVertical()
	if err != nil {
		return false, err
	}
	if !ruledOut {
		for _, eq := range equalCandidates {
			if e.ro.ResolveEquality(eq.Dist, edge.EdgeID, edge.Child, eq.Vertex) {
				ruledOut = true
				break
			}
		}
	}
	if !ruledOut {
		extWeight, werr := e.lc.TrialExtendWeight()
		if werr == nil && extWeight < e.tree.Cost-e.opts.Epsilon {
			ruledOut = true
		}
	}
	if !ruledOut {
		if _, perr := e.tree.AddLeaf(edge.Parent, edge.Child, edge.Cost); perr != nil {
			return false, perr
		}
	}
	if err := e.lc.LeafExit(!ruledOut); err != nil {
		return ruledOut, err
	}
	return ruledOut, nil
}

// VerticalClose seals the current vertical level (spec §6).
func (e *Engine) VerticalClose() error { return e.lc.VerticalClose() }

// HorizontalAdd computes sibling SDs for the given candidate edges (spec
// §6).
func (e *Engine) HorizontalAdd(extEdges []exttree.CandidateEdge) error {
	return e.lc.HorizontalAdd(extEdges)
}

// LevelClose builds the new levelbase MST from extNode's siblings (spec
// §6).
func (e *Engine) LevelClose(extNode int) error {
	e.pendingExtNode = extNode
	return e.lc.LevelClose(extNode)
}

// LevelRemove pops the top level of every stack and rewinds any
// equality-forbidden edges that level's branch recorded (spec §6).
func (e *Engine) LevelRemove() error {
	if err := e.lc.LevelRemove(); err != nil {
		return err
	}
	if n := len(e.eqDepths); n > 0 {
		depth := e.eqDepths[n-1]
		e.eqDepths = e.eqDepths[:n-1]
		e.ro.BacktrackEquality(depth)
	}
	return nil
}

// ComponentRemove discards the top-level component MST (spec §6).
func (e *Engine) ComponentRemove() error { return e.lc.ComponentRemove(true) }

// RuleOutPeripheral runs the Stage 2 MST-objective test against the
// current top component (spec §6, §4.G).
func (e *Engine) RuleOutPeripheral() (bool, error) { return e.ro.RuleOutPeripheral() }

// Tree exposes the extension tree's read-only invariants for callers
// that need to inspect tree_depth/tree_cost/tree_deg directly.
func (e *Engine) Tree() *exttree.Tree { return e.tree }
