// Package xtlevels coordinates the per-level lifecycle of spec §4.F: on
// every extension step it drives the multi-level distance store
// (sddist), the CSR depot pair (csrdepot), and the dynamic-cardinality
// MST kernel (dcmst) together, keeping their stack depths coherent with
// the extension tree's (exttree) own depth.
//
// Grounded on lvlath/flow.Dinic's outer control loop (level build,
// blocking flow over it, optional rebuild), generalized from "always
// rebuild the whole level graph from scratch" to "push an incremental
// level onto persistent stacks, and pop it again on retraction"; and on
// lvlath/tsp/bb.go's bbEngine, which holds every collaborator a
// branch-and-bound step needs as plain struct fields instead of free
// functions threading state through parameters.
package xtlevels

import (
	"errors"

	"github.com/katalvlaran/xreduce/bottleneck"
	"github.com/katalvlaran/xreduce/csrdepot"
	"github.com/katalvlaran/xreduce/dcmst"
	"github.com/katalvlaran/xreduce/exttree"
	"github.com/katalvlaran/xreduce/pcmark"
	"github.com/katalvlaran/xreduce/sddist"
	"github.com/katalvlaran/xreduce/sdoracle"
	"github.com/katalvlaran/xreduce/xgraph"
	"github.com/katalvlaran/xreduce/xtlog"
)

// Sentinel errors for Lifecycle precondition violations (spec §7:
// fatal, no recovery).
var (
	// ErrNoLeafInProgress indicates a vertical-fill operation was called
	// without a preceding LeafInit.
	ErrNoLeafInProgress = errors.New("xtlevels: no leaf fill in progress")

	// ErrBadExtNode indicates LevelClose was given a vertex that is not
	// the tree's root and not a currently known tree vertex.
	ErrBadExtNode = errors.New("xtlevels: unknown extension node")

	// ErrNoTrialVector indicates LeafExit(true) was called without a
	// preceding, matching TrialExtendWeight call (spec §4.F step 2: every
	// accepted candidate must have been trial-extended first).
	ErrNoTrialVector = errors.New("xtlevels: no trial-extend vector to commit")
)

// Options configures a Lifecycle, constructed via functional options in
// the same style as lvlath/dijkstra.Options.
type Options struct {
	MaxDegree int
	Epsilon   float64
	PCVariant bool
	Tracer    xtlog.Tracer
}

// DefaultOptions returns the zero-configured baseline: no PC variant,
// a conservative epsilon, and a no-op tracer.
func DefaultOptions() Options {
	return Options{MaxDegree: 8, Epsilon: 1e-9, Tracer: xtlog.NoopTracer{}}
}

// Option mutates an Options value during construction.
type Option func(*Options)

// WithMaxDegree overrides the maximum vertex degree the engine plans
// vertical-level capacity for.
func WithMaxDegree(d int) Option { return func(o *Options) { o.MaxDegree = d } }

// WithEpsilon overrides the near-equality tolerance used by every
// numeric comparison (spec §4.C/§4.G).
func WithEpsilon(eps float64) Option { return func(o *Options) { o.Epsilon = eps } }

// WithPCVariant enables prize-collecting bottleneck/PC-cache behavior.
func WithPCVariant() Option { return func(o *Options) { o.PCVariant = true } }

// WithTracer installs a debug tracer (spec §9).
func WithTracer(t xtlog.Tracer) Option { return func(o *Options) { o.Tracer = t } }

// Lifecycle is the component F collaborator of spec §4.F: it owns the
// extension tree and every leaf collaborator (sddist, csrdepot ×2,
// dcmst, bottleneck, pcmark) needed to push or pop one extension level.
type Lifecycle struct {
	tree      *exttree.Tree
	graph     *xgraph.Graph
	oracle    sdoracle.Oracle
	dists     *sddist.Store
	levelbase *csrdepot.Depot
	component *csrdepot.Depot
	kernel    *dcmst.Kernel
	bt        *bottleneck.Tracker
	pc        *pcmark.Cache
	opts      Options

	// per-leaf scratch, valid only between LeafInit and LeafExit.
	curLeaf    int  // dense vertex index of the leaf being filled
	leafActive bool

	// trialVec caches the adjacency vector TrialExtendWeight built against
	// the still-unmutated component top, so LeafExit's real commit reuses
	// the exact same vector rather than recomputing it from tree.PositionOf
	// after AddLeaf has already run: AddLeaf demotes the extended parent
	// out of Leaves (and may swap-shift another leaf into its old slot),
	// so any position lookup done post-AddLeaf can no longer be trusted to
	// match the positions a pre-AddLeaf SD row was filled against.
	trialVec []float64
}

// New builds a Lifecycle over tree, wired to graph's CSR/prize surface
// and oracle's special-distance surface.
func New(tree *exttree.Tree, graph *xgraph.Graph, oracle sdoracle.Oracle, opts ...Option) *Lifecycle {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Lifecycle{
		tree:      tree,
		graph:     graph,
		oracle:    oracle,
		dists:     sddist.NewStore(),
		levelbase: csrdepot.NewDepot(),
		component: csrdepot.NewDepot(),
		kernel:    dcmst.NewKernel(graph.NVertices(), o.Epsilon),
		bt:        bottleneck.NewTracker(graph.NVertices()),
		pc:        pcmark.NewCache(),
		opts:      o,
	}
}

// Tree exposes the underlying extension tree (read-mostly; mutation
// happens exclusively through Lifecycle's own operations).
func (l *Lifecycle) Tree() *exttree.Tree { return l.tree }

// InitRoot initializes every stack with the one-node trivial state
// (spec §3 lifecycle: "the root level is created exactly once at engine
// start").
func (l *Lifecycle) InitRoot() error {
	l.dists.LevelAddTop(1, 1)
	if err := l.dists.EmptySlotSetBase(l.tree.Root()); err != nil {
		return err
	}
	if err := l.dists.EmptySlotSetFilled(); err != nil {
		return err
	}
	if err := l.dists.LevelCloseTop(); err != nil {
		return err
	}

	levelbaseTop, err := l.levelbase.AddEmptyTopTree(1)
	if err != nil {
		return err
	}
	l.kernel.Get1Node(levelbaseTop)
	if err := l.levelbase.EmptyTopSetMarked(); err != nil {
		return err
	}

	compTop, err := l.component.AddEmptyTopTree(1)
	if err != nil {
		return err
	}
	l.kernel.Get1Node(compTop)
	if err := l.component.EmptyTopSetMarked(); err != nil {
		return err
	}
	return nil
}

// LevelInit pushes an empty vertical level sized MAX_DEG x (n_leaves or
// n_leaves-1), per spec §4.F step 1, and opens a fresh one-node
// component-MST scaffold for this level (spec §3: "component MSTs are
// created ... inside each level"). The scaffold is grown one node per
// accepted candidate as LeafExit commits it (spec §4.G: Stage 1 runs
// "while building the component MST"), so TrialExtendWeight always has
// an unmarked, in-progress top to trial against — including the very
// first level, where InitRoot's own one-node seed is already sealed.
func (l *Lifecycle) LevelInit() error {
	nLeaves := l.tree.NLeaves()
	nTargets := nLeaves
	if l.tree.Depth > 0 {
		nTargets = nLeaves - 1 // excludes the parent being extended from
	}
	l.opts.Tracer.LevelPush(l.tree.Depth+1, nLeaves)
	l.dists.LevelAddTop(l.opts.MaxDegree*nTargets, nTargets)
	return l.ComponentInit()
}

// LeafInit marks the root path from v (the parent being extended) and
// activates the PC shortcut cache for candidate w, opening a fresh
// vertical slot for w (spec §4.F step 2).
func (l *Lifecycle) LeafInit(v, w int) error {
	l.bt.MarkRootPath(l.tree, v, l.opts.PCVariant, l.prizeOf)
	if l.opts.PCVariant {
		l.pc.Activate(w, l.oracle, l.tree)
	}
	if err := l.dists.EmptySlotSetBase(w); err != nil {
		return err
	}
	l.curLeaf = w
	l.leafActive = true
	l.trialVec = l.trialVec[:0] // guard against committing a stale vector from a previous leaf
	return nil
}

func (l *Lifecycle) prizeOf(v int) float64 {
	if l.graph == nil {
		return 0
	}
	return l.graph.Prize(v)
}

// EqualCandidate names one ancestor leaf whose SD to the active leaf
// exactly tied its bottleneck bound, deferred to the equality sub-check
// (spec §4.E).
type EqualCandidate struct {
	Vertex int
	Dist   float64
}

// FillVertical computes and stores the SD from the active leaf w to
// every current tree leaf, reporting strict ancestor-bottleneck
// domination per candidate leaf (spec §4.F step 2 / §4.G Stage 1,
// ancestor half). Equality cases are intentionally not resolved here;
// the caller (ruleout.Engine) re-examines any equal pair with the
// oracle's forbidden-edge variant.
func (l *Lifecycle) FillVertical() (ruledOut bool, equalCandidates []EqualCandidate, err error) {
	if !l.leafActive {
		return false, nil, ErrNoLeafInProgress
	}
	for _, leaf := range l.tree.Leaves {
		if leaf == l.curLeaf {
			continue
		}
		sd := l.oracle.SDDouble(l.curLeaf, leaf)
		if err := l.dists.EmptySlotAppend(leaf, sd); err != nil {
			return false, nil, err
		}
		if !sdoracle.IsFeasible(sd) {
			continue
		}
		bdist := l.bt.GetBottleneckDist(leaf, l.tree)
		switch {
		case sd < bdist-l.opts.Epsilon:
			ruledOut = true
			l.opts.Tracer.RuleOut(leaf, "ancestor_bottleneck", bdist, sd)
		case sd < bdist+l.opts.Epsilon:
			equalCandidates = append(equalCandidates, EqualCandidate{Vertex: leaf, Dist: sd})
		}
	}
	return ruledOut, equalCandidates, nil
}

// TrialExtendWeight feeds the just-filled SD row into the DCMST kernel
// against the top (still-building) component MST and returns the
// resulting extended weight, without mutating the component depot (spec
// §4.F step 2: "trial-extend the component MST via DCMST
// get_ext_weight"). The adjacency vector built here is cached: if the
// candidate survives, LeafExit's commit reuses it verbatim instead of
// re-deriving positions from a tree state AddLeaf has since mutated.
func (l *Lifecycle) TrialExtendWeight() (float64, error) {
	top, err := l.component.GetEmptyTop()
	if err != nil {
		return 0, err
	}
	ids, err := l.dists.EmptySlotTargetIDs()
	if err != nil {
		return 0, err
	}
	dists, err := l.dists.EmptySlotTargetDists()
	if err != nil {
		return 0, err
	}
	a := l.kernel.Buf()[:top.N+1]
	for i := range a {
		a[i] = sdoracle.FarAway
	}
	for i, id := range ids {
		if pos, ok := l.tree.PositionOf(id); ok && pos < top.N {
			a[pos] = dists[i]
		}
	}
	l.trialVec = append(l.trialVec[:0], a...)
	return l.kernel.GetExtWeight(top, a)
}

// commitToComponent mutates the level's in-progress component MST by
// actually adding curLeaf, reusing the adjacency vector TrialExtendWeight
// already computed for this same leaf against this same (still
// unmutated) top rather than recomputing it: by the time LeafExit runs,
// tree.AddLeaf has typically already demoted curLeaf's parent out of
// Leaves, so tree.PositionOf no longer agrees with the positions that
// vector was filled against.
func (l *Lifecycle) commitToComponent() error {
	top, err := l.component.GetEmptyTop()
	if err != nil {
		return err
	}
	if len(l.trialVec) != top.N+1 {
		return ErrNoTrialVector
	}
	return l.kernel.AddNodeInplace(l.trialVec, top)
}

// LeafExit seals the slot (FillVertical never writes the base vertex's
// own self entry into it), commits the leaf into the level's in-progress
// component MST (the real DCMST counterpart to TrialExtendWeight's
// non-mutating trial), and unmarks the root path and PC cache (spec
// §4.F step 2 close-out). keep decides whether to seal+commit (true, the
// candidate survived a prior TrialExtendWeight call) or discard (false,
// the candidate was ruled out before or during the trial). Callers
// normally invoke tree.AddLeaf before LeafExit(true) so the tree already
// reflects the new leaf once LeafExit returns; the commit itself does not
// depend on that ordering, since it replays the vector TrialExtendWeight
// already computed rather than re-deriving it from the (by then mutated)
// tree state.
func (l *Lifecycle) LeafExit(keep bool) error {
	if !l.leafActive {
		return ErrNoLeafInProgress
	}
	var err error
	if keep {
		if err = l.dists.EmptySlotSetFilled(); err == nil {
			err = l.commitToComponent()
		}
	} else {
		err = l.dists.EmptySlotReset()
	}
	l.bt.UnmarkRootPath(l.curLeaf)
	if l.opts.PCVariant {
		l.pc.Deactivate()
	}
	l.leafActive = false
	return err
}

// VerticalClose seals the top vertical level (spec §4.F step 3).
func (l *Lifecycle) VerticalClose() error { return l.dists.LevelCloseTop() }

// HorizontalAdd computes and stores pairwise SDs among extEdges' child
// vertices (spec §4.F step 4): the store reuses the same sddist.Store
// machinery at a dedicated horizontal level so right-siblings recompute
// fresh and left-siblings can be read back via TopTargetDist.
func (l *Lifecycle) HorizontalAdd(extEdges []exttree.CandidateEdge) error {
	n := len(extEdges)
	l.dists.LevelAddTop(n*n, n)
	for i, e := range extEdges {
		if err := l.dists.EmptySlotSetBase(e.Child); err != nil {
			return err
		}
		for j, other := range extEdges {
			if i == j {
				continue
			}
			sd := l.oracle.SDDouble(e.Child, other.Child)
			if err := l.dists.EmptySlotAppend(other.Child, sd); err != nil {
				return err
			}
		}
		if err := l.dists.EmptySlotSetFilled(); err != nil {
			return err
		}
	}
	return l.dists.LevelCloseTop()
}

// LevelClose builds the new levelbase MST: a one-node MST if extNode is
// the tree root, otherwise the previous levelbase MST extended by every
// sibling of extNode in leaf order (spec §4.F step 5). It also seals this
// level's component MST, which LevelInit opened and every surviving
// LeafExit(true) since has grown one node at a time (spec §4.G: Stage 1
// runs "while building the component MST", not after).
func (l *Lifecycle) LevelClose(extNode int) error {
	if err := l.component.EmptyTopSetMarked(); err != nil {
		return err
	}

	if extNode == l.tree.Root() && l.levelbase.NCSRs() == 1 {
		// Already holds the one-node base from InitRoot; nothing to extend.
		l.tree.BumpDepth()
		return nil
	}
	prevTop, err := l.levelbase.GetTop()
	if err != nil {
		return err
	}
	newTop, err := l.levelbase.AddEmptyTopTree(prevTop.N)
	if err != nil {
		return err
	}
	// Seed with the previous levelbase's edges, grown below one sibling at
	// a time. Copying field-by-field (rather than *newTop = *prevTop)
	// matters: a whole-struct copy would also copy CSR's unexported marked
	// bit, which is true on prevTop (already sealed) — silently birthing
	// newTop pre-marked and making the EmptyTopSetMarked call below fail.
	newTop.N = prevTop.N
	newTop.RowStart = append([]int(nil), prevTop.RowStart...)
	newTop.ColIdx = append([]int(nil), prevTop.ColIdx...)
	newTop.Weight = append([]float64(nil), prevTop.Weight...)
	for _, sib := range l.tree.Leaves {
		if sib == extNode {
			continue
		}
		ids, dists, derr := l.dists.TopTargetDists(sib)
		if derr != nil {
			continue
		}
		a := l.kernel.Buf()[:newTop.N+1]
		for i := range a {
			a[i] = sdoracle.FarAway
		}
		for i, id := range ids {
			if pos, ok := l.tree.PositionOf(id); ok && pos < newTop.N {
				a[pos] = dists[i]
			}
		}
		if aerr := l.kernel.AddNodeInplace(a, newTop); aerr != nil {
			return aerr
		}
	}
	if err := l.levelbase.EmptyTopSetMarked(); err != nil {
		return err
	}
	l.tree.BumpDepth()
	return nil
}

// LevelRemove pops exactly the top of horizontal, levelbase, and
// vertical in that order (spec §4.F retraction).
func (l *Lifecycle) LevelRemove() error {
	if err := l.dists.LevelRemoveTop(); err != nil { // horizontal
		return err
	}
	if err := l.levelbase.RemoveTop(); err != nil {
		return err
	}
	if err := l.dists.LevelRemoveTop(); err != nil { // vertical
		return err
	}
	l.opts.Tracer.LevelPop(l.tree.Depth)
	return nil
}

// ComponentInit pushes a fresh one-node component MST seed, standing in
// for the level's first leaf (spec §3 lifecycle: "component MSTs are
// created/destroyed inside each level by component_init -> component_build
// -> component_remove"). Called from LevelInit, once per level; never
// exposed on xreduce.Engine (spec §6 only lists component_remove and
// rule_out_peripheral among the externally-driven component operations).
func (l *Lifecycle) ComponentInit() error {
	top, err := l.component.AddEmptyTopTree(1)
	if err != nil {
		return err
	}
	l.kernel.Get1Node(top)
	return nil
}

// ComponentBuild extends the component MST ComponentInit seeded (as
// leafOrder[0]) by every remaining leaf in leafOrder, in order, one
// DCMST AddNodeInplace step per leaf, reading each leaf's
// previously-stored vertical SD row. leafOrder's positions must agree
// with the tree's own leaf positions (the same index space csrdepot CSR
// adjacency is keyed by), so callers pass tree.Leaves itself rather than
// a reordering of it. The running engine commits leaves one at a time via
// LeafExit as they're accepted instead of calling this; ComponentBuild
// remains for tests and any caller that already has a full leaf order in
// hand and wants to seed a component MST in one batch call.
func (l *Lifecycle) ComponentBuild(leafOrder []int) error {
	if len(leafOrder) == 0 {
		return nil
	}
	top, err := l.component.GetEmptyTop()
	if err != nil {
		return err
	}
	for _, leaf := range leafOrder[1:] {
		ids, dists, derr := l.dists.TopTargetDists(leaf)
		if derr != nil {
			return derr
		}
		a := l.kernel.Buf()[:top.N+1]
		for i := range a {
			a[i] = sdoracle.FarAway
		}
		for i, id := range ids {
			if pos, ok := l.tree.PositionOf(id); ok && pos < top.N {
				a[pos] = dists[i]
			}
		}
		if err := l.kernel.AddNodeInplace(a, top); err != nil {
			return err
		}
	}
	return nil
}

// ComponentRemove discards the top component MST (del is named to match
// spec §4.G's "component_remove(delete=true)" rejection path; the
// current depot has no distinct non-deleting variant since only the top
// is ever mutable).
func (l *Lifecycle) ComponentRemove(del bool) error {
	return l.component.RemoveTop()
}

// ComponentTop returns the current (possibly still-building) top
// component CSR for read-only inspection by ruleout.Engine's Stage 2.
func (l *Lifecycle) ComponentTop() (*csrdepot.CSR, error) { return l.component.GetTop() }

// Oracle exposes the distance oracle for ruleout's equality re-checks.
func (l *Lifecycle) Oracle() sdoracle.Oracle { return l.oracle }

// Bottleneck exposes the bottleneck tracker for ruleout's Stage 1
// sibling/ancestor tests that need a marked path outside LeafInit's own
// scope (e.g. re-deriving bottleneck_to(a) during the equality
// sub-check).
func (l *Lifecycle) Bottleneck() *bottleneck.Tracker { return l.bt }

// PCCache exposes the PC shortcut cache.
func (l *Lifecycle) PCCache() *pcmark.Cache { return l.pc }

// Options returns the configured Options (read-only).
func (l *Lifecycle) Options() Options { return l.opts }
