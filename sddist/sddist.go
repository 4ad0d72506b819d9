// Package sddist implements the multi-level distance store (MLDISTS,
// spec §4.A): a stack of levels, each holding per-slot target arrays of
// special distances (SDs) keyed by base vertex.
//
// The stack discipline mirrors lvlath/flow.Dinic's level-graph rebuild —
// a fresh level is pushed, filled slot by slot, sealed, and eventually
// discarded — generalized from "always rebuild a single map" to
// "persistent push/pop stack of levels" since spec §3 requires vertical
// SDs from several past levels to remain readable while deeper levels are
// explored.
package sddist

import (
	"errors"

	"github.com/katalvlaran/xreduce/sdoracle"
)

// Sentinel errors for Store precondition violations (spec §7: fatal,
// no recovery).
var (
	// ErrNoEmptySlot indicates an empty-slot operation was requested
	// without a prior EmptySlotSetBase (or after the level was sealed).
	ErrNoEmptySlot = errors.New("sddist: no empty slot in progress")

	// ErrLevelSealed indicates a mutation was attempted on a level whose
	// LevelCloseTop already ran.
	ErrLevelSealed = errors.New("sddist: level already sealed")

	// ErrEmptyStore indicates a top-of-stack operation was requested on an
	// empty Store.
	ErrEmptyStore = errors.New("sddist: store is empty")

	// ErrUnknownBase indicates a read accessor was given a base vertex
	// that has no filled slot at the top level.
	ErrUnknownBase = errors.New("sddist: base vertex has no filled slot")
)

type slot struct {
	base   int
	ids    []int
	dists  []float64
	filled bool
}

type level struct {
	slots     []slot
	byBase    map[int]int // base vertex -> index into slots, for filled slots only
	nTargets  int
	nextEmpty int // index of the slot currently being written, or -1
	sealed    bool
}

// Store is the stack of levels described in spec §4.A.
type Store struct {
	levels []*level
}

// NewStore creates an empty, zero-level Store.
func NewStore() *Store { return &Store{} }

// LevelAddTop pushes a new, empty level with room pre-allocated for
// maxSlots slots, each with room for ntargets (id, dist) pairs (spec §4.F
// step 1: "vertical SDs push an empty level of size MAX_DEG × (n_leaves or
// n_leaves-1)"). maxSlots is not enforced as a limit: EmptySlotSetBase
// may add slots past it.
func (s *Store) LevelAddTop(maxSlots, ntargets int) {
	s.levels = append(s.levels, &level{
		slots:     make([]slot, 0, maxSlots),
		byBase:    make(map[int]int, maxSlots),
		nTargets:  ntargets,
		nextEmpty: -1,
	})
}

func (s *Store) top() (*level, error) {
	if len(s.levels) == 0 {
		return nil, ErrEmptyStore
	}
	return s.levels[len(s.levels)-1], nil
}

// EmptySlotSetBase binds the next empty slot of the top level to base
// vertex v, allocating its target arrays to the level's ntargets capacity.
func (s *Store) EmptySlotSetBase(v int) error {
	lvl, err := s.top()
	if err != nil {
		return err
	}
	if lvl.sealed {
		return ErrLevelSealed
	}
	// maxSlots (LevelAddTop) is a capacity hint, not a hard cap: growth
	// past it is allowed so callers never need a pre-count of candidates.
	lvl.slots = append(lvl.slots, slot{
		base:  v,
		ids:   make([]int, 0, lvl.nTargets),
		dists: make([]float64, 0, lvl.nTargets),
	})
	lvl.nextEmpty = len(lvl.slots) - 1
	return nil
}

func (s *Store) currentEmptySlot() (*level, *slot, error) {
	lvl, err := s.top()
	if err != nil {
		return nil, nil, err
	}
	if lvl.nextEmpty < 0 || lvl.nextEmpty >= len(lvl.slots) {
		return nil, nil, ErrNoEmptySlot
	}
	return lvl, &lvl.slots[lvl.nextEmpty], nil
}

// EmptySlotTargetDists returns a mutable view onto the current empty
// slot's distance array.
func (s *Store) EmptySlotTargetDists() ([]float64, error) {
	_, sl, err := s.currentEmptySlot()
	if err != nil {
		return nil, err
	}
	return sl.dists, nil
}

// EmptySlotTargetIDs returns a mutable view onto the current empty slot's
// target-id array.
func (s *Store) EmptySlotTargetIDs() ([]int, error) {
	_, sl, err := s.currentEmptySlot()
	if err != nil {
		return nil, err
	}
	return sl.ids, nil
}

// EmptySlotAppend appends one (id, dist) pair to the current empty slot,
// in the order the caller fills leaves[] (spec §4.A: "order of target
// entries is the order of the leaves array at the moment the slot was
// filled").
func (s *Store) EmptySlotAppend(id int, dist float64) error {
	lvl, sl, err := s.currentEmptySlot()
	if err != nil {
		return err
	}
	sl.ids = append(sl.ids, id)
	sl.dists = append(sl.dists, dist)
	lvl.slots[lvl.nextEmpty] = *sl
	return nil
}

// EmptySlotSetFilled seals the current slot, making it addressable by its
// base vertex via TopTargetDist/TopTargetDists.
func (s *Store) EmptySlotSetFilled() error {
	lvl, sl, err := s.currentEmptySlot()
	if err != nil {
		return err
	}
	sl.filled = true
	lvl.slots[lvl.nextEmpty] = *sl
	lvl.byBase[sl.base] = lvl.nextEmpty
	lvl.nextEmpty = -1
	return nil
}

// EmptySlotReset discards the in-progress slot without sealing it.
func (s *Store) EmptySlotReset() error {
	lvl, err := s.top()
	if err != nil {
		return err
	}
	if lvl.nextEmpty < 0 {
		return ErrNoEmptySlot
	}
	idx := lvl.nextEmpty
	lvl.slots = append(lvl.slots[:idx], lvl.slots[idx+1:]...)
	lvl.nextEmpty = -1
	// byBase indices past idx shifted by one; rebuild to stay correct.
	for base, i := range lvl.byBase {
		if i > idx {
			lvl.byBase[base] = i - 1
		}
	}
	return nil
}

// LevelCloseTop seals the top level against further slot additions.
func (s *Store) LevelCloseTop() error {
	lvl, err := s.top()
	if err != nil {
		return err
	}
	lvl.sealed = true
	return nil
}

// LevelRemoveTop discards the top level entirely.
func (s *Store) LevelRemoveTop() error {
	if len(s.levels) == 0 {
		return ErrEmptyStore
	}
	s.levels = s.levels[:len(s.levels)-1]
	return nil
}

// TopTargetDist reads the SD from base to target at the top level, or
// sdoracle.Unknown if no filled slot exists for base, matching spec §4.A:
// "FARAWAY is returned for self-pairs and for unknown pairs stored
// explicitly" — callers that want the Unknown-vs-FarAway distinction
// should also consult TopTargetDists directly.
func (s *Store) TopTargetDist(base, target int) (float64, error) {
	lvl, err := s.top()
	if err != nil {
		return 0, err
	}
	if base == target {
		return sdoracle.FarAway, nil
	}
	idx, ok := lvl.byBase[base]
	if !ok {
		return sdoracle.Unknown, ErrUnknownBase
	}
	sl := lvl.slots[idx]
	for i, id := range sl.ids {
		if id == target {
			return sl.dists[i], nil
		}
	}
	return sdoracle.Unknown, nil
}

// TopTargetDists returns the full target-id/target-dist arrays for base's
// filled slot at the top level.
func (s *Store) TopTargetDists(base int) (ids []int, dists []float64, err error) {
	lvl, err := s.top()
	if err != nil {
		return nil, nil, err
	}
	idx, ok := lvl.byBase[base]
	if !ok {
		return nil, nil, ErrUnknownBase
	}
	sl := lvl.slots[idx]
	return sl.ids, sl.dists, nil
}

// LevelNTopTargets returns the ntargets capacity configured for the top
// level.
func (s *Store) LevelNTopTargets() (int, error) {
	lvl, err := s.top()
	if err != nil {
		return 0, err
	}
	return lvl.nTargets, nil
}

// TopLevel returns the 0-based index of the top level (len-1), matching
// spec §3's invariant "top_level(vertical_sds) = tree_depth at quiescent
// states".
func (s *Store) TopLevel() int { return len(s.levels) - 1 }

// NLevels returns the number of levels currently on the stack.
func (s *Store) NLevels() int { return len(s.levels) }

// LevelNSlots returns the number of slots filled-or-in-progress at the
// given 0-based level index.
func (s *Store) LevelNSlots(lvlIdx int) (int, error) {
	if lvlIdx < 0 || lvlIdx >= len(s.levels) {
		return 0, ErrEmptyStore
	}
	return len(s.levels[lvlIdx].slots), nil
}
