// Package pcmark implements the prize-collecting activation cache (spec
// §4.E refinement / PC variant): while a leaf is active, the PC shortcut
// records, for each ancestor on the leaf's root path, the oracle's direct
// SD from the leaf discounted by the cost of the tree edge just below that
// ancestor. The cache remembers the best alternative found per ancestor
// for the duration of one leaf's activation.
//
// Grounded on lvlath/dfs/cycle.go's `seen map[string]struct{}` dedup-cache
// idiom, generalized from a presence set to a float64-valued cache,
// activated/deactivated in the same MarkRootPath/UnmarkRootPath pairing
// bottleneck.Tracker uses for leaf_init/leaf_exit (spec §4.F step 2).
package pcmark

import (
	"github.com/katalvlaran/xreduce/exttree"
	"github.com/katalvlaran/xreduce/sdoracle"
)

// Cache holds, per tree ancestor of an activated leaf, the best
// alternative special distance discovered via the PC shortcut while a
// leaf is active. Vertices off the activated leaves' root paths get no
// entry.
type Cache struct {
	marks  map[int]float64
	active bool
}

// NewCache creates an empty, inactive Cache.
func NewCache() *Cache {
	return &Cache{marks: make(map[int]float64)}
}

// Activate walks tree's root path from leaf, computing at every ancestor
// u the oracle's direct special distance leaf->u minus the cost of the
// tree edge from u down to the path vertex below it, floored at zero.
// Vertex prizes are not consulted. Any vertex
// whose accumulated alternative beats what is already cached is
// recorded; Activate may be called multiple times between Deactivate
// calls to fold in several leaves' shortcuts at once (spec §4.F step 2
// processes several candidate leaves per level before closing).
func (c *Cache) Activate(leaf int, oracle sdoracle.Oracle, tree *exttree.Tree) {
	c.active = true
	v := leaf
	for {
		parent := tree.ParentNode[v]
		if parent < 0 {
			break
		}
		sd := oracle.SDDouble(leaf, parent)
		if sdoracle.IsFeasible(sd) {
			alt := sd - tree.ParentEdgeCost[v]
			if alt < 0 {
				alt = 0
			}
			if cur, ok := c.marks[parent]; !ok || alt < cur {
				c.marks[parent] = alt
			}
		}
		v = parent
	}
}

// Deactivate clears every mark recorded since the cache was last empty,
// returning it to its pristine state for the next leaf's activation.
func (c *Cache) Deactivate() {
	for k := range c.marks {
		delete(c.marks, k)
	}
	c.active = false
}

// Lookup returns the best alternative distance recorded for v, if any.
func (c *Cache) Lookup(v int) (float64, bool) {
	d, ok := c.marks[v]
	return d, ok
}

// Active reports whether the cache currently holds marks from an
// un-deactivated Activate call.
func (c *Cache) Active() bool { return c.active }
