package mortontable

import (
	"slices"

	"github.com/esote/minmaxheap"
)

// DefaultCapacity is the leaf capacity used when a Quadtree is constructed
// with a capacity below 1.
const DefaultCapacity = 16

// child quadrants, in traversal order
const (
	qNW = iota
	qNE
	qSW
	qSE
)

// nodeID indexes a node in the tree arena. The zero id is reserved so that a
// zeroed children array marks a leaf.
type nodeID uint32

const rootNode nodeID = 1

type qentry[V any] struct {
	pos Point
	val V
	seq int64
}

type qnode[V any] struct {
	region   Region
	children [4]nodeID
	entries  []qentry[V]
}

func (n *qnode[V]) leaf() bool {
	return n.children[0] == 0
}

// Quadtree is an adaptive spatial index over a fixed boundary: leaves hold up
// to capacity entries and split into four quadrants when they fill up. Points
// on a splitting midline belong to the lower, or western, quadrant. Nodes
// live in a flat arena and refer to their children by index.
type Quadtree[V any] struct {
	nodes    []qnode[V]
	free     []nodeID
	boundary Region
	capacity int
	count    int
	seq      int64
}

// NewQuadtree returns an empty tree accepting positions inside boundary.
// Leaves split when they exceed capacity entries; capacities below 1 fall
// back to DefaultCapacity.
func NewQuadtree[V any](boundary Region, capacity int) (*Quadtree[V], error) {
	if !boundary.Valid() {
		return nil, ErrInvalidBoundary
	}
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	q := &Quadtree[V]{boundary: boundary, capacity: capacity}
	q.nodes = append(q.nodes, qnode[V]{}, qnode[V]{region: boundary})
	return q, nil
}

// QuadtreeFromEntries returns a tree bounded by the tight bounding box of
// entries, which keeps it balanced when the data covers a small part of the
// coordinate space. An empty batch gets the MortonTable domain as boundary.
func QuadtreeFromEntries[V any](capacity int, entries []Entry[V]) (*Quadtree[V], error) {
	bounds := mortonDomain
	if len(entries) > 0 {
		bounds = Region{Min: entries[0].Pos, Max: entries[0].Pos}
		for _, e := range entries[1:] {
			bounds.Min.X = min(bounds.Min.X, e.Pos.X)
			bounds.Min.Y = min(bounds.Min.Y, e.Pos.Y)
			bounds.Max.X = max(bounds.Max.X, e.Pos.X)
			bounds.Max.Y = max(bounds.Max.Y, e.Pos.Y)
		}
	}
	q, err := NewQuadtree[V](bounds, capacity)
	if err != nil {
		return nil, err
	}
	if err := q.Extend(entries); err != nil {
		return nil, err
	}
	return q, nil
}

// Len returns the number of stored entries.
func (q *Quadtree[V]) Len() int {
	return q.count
}

// Bounds returns the boundary the tree was constructed with.
func (q *Quadtree[V]) Bounds() Region {
	return q.boundary
}

// Clear removes every entry, keeping the boundary and capacity.
func (q *Quadtree[V]) Clear() {
	q.nodes = q.nodes[:2]
	q.nodes[rootNode] = qnode[V]{region: q.boundary}
	q.free = q.free[:0]
	q.count = 0
	q.seq = 0
}

// Insert stores val at pos. A full leaf splits one level; the entries of an
// overfull child split further on later inserts.
func (q *Quadtree[V]) Insert(pos Point, val V) error {
	if !q.boundary.Contains(pos) {
		return ErrOutOfBounds
	}
	id := q.descend(pos)
	leaf := &q.nodes[id]
	for _, e := range leaf.entries {
		if e.pos == pos {
			return ErrDuplicate
		}
	}
	// single-cell leaves never split: their entries cannot be told apart
	// by position
	if len(leaf.entries) >= q.capacity && leaf.region.Min != leaf.region.Max {
		q.split(id)
		n := &q.nodes[id]
		id = n.children[quadrant(n.region.mid(), pos)]
		leaf = &q.nodes[id]
	}
	leaf.entries = append(leaf.entries, qentry[V]{pos: pos, val: val, seq: q.seq})
	q.seq++
	q.count++
	return nil
}

// Extend stores every entry. If any entry is out of bounds or collides with
// an existing or in-batch position, nothing is stored.
func (q *Quadtree[V]) Extend(entries []Entry[V]) error {
	seen := make(map[Point]struct{}, len(entries))
	for _, e := range entries {
		if !q.boundary.Contains(e.Pos) {
			return ErrOutOfBounds
		}
		if _, dup := seen[e.Pos]; dup {
			return ErrDuplicate
		}
		if q.Contains(e.Pos) {
			return ErrDuplicate
		}
		seen[e.Pos] = struct{}{}
	}
	for _, e := range entries {
		_ = q.Insert(e.Pos, e.Val)
	}
	return nil
}

// At returns the value stored at pos.
func (q *Quadtree[V]) At(pos Point) (V, bool) {
	var zero V
	if !q.boundary.Contains(pos) {
		return zero, false
	}
	for _, e := range q.nodes[q.descend(pos)].entries {
		if e.pos == pos {
			return e.val, true
		}
	}
	return zero, false
}

// Contains reports whether an entry exists at pos.
func (q *Quadtree[V]) Contains(pos Point) bool {
	_, ok := q.At(pos)
	return ok
}

// Remove deletes the entry at pos.
func (q *Quadtree[V]) Remove(pos Point) error {
	if _, ok := q.DeleteAt(pos); !ok {
		return ErrNotFound
	}
	return nil
}

// DeleteAt deletes the entry at pos, returning its value. A removal that
// leaves a split node with at most capacity entries merges its children back
// into it.
func (q *Quadtree[V]) DeleteAt(pos Point) (V, bool) {
	var zero V
	if !q.boundary.Contains(pos) {
		return zero, false
	}
	val, ok := q.deleteAt(rootNode, pos)
	if !ok {
		return zero, false
	}
	q.count--
	return val, true
}

func (q *Quadtree[V]) deleteAt(id nodeID, pos Point) (V, bool) {
	n := &q.nodes[id]
	if n.leaf() {
		for i, e := range n.entries {
			if e.pos == pos {
				n.entries = slices.Delete(n.entries, i, i+1)
				return e.val, true
			}
		}
		var zero V
		return zero, false
	}
	child := n.children[quadrant(n.region.mid(), pos)]
	val, ok := q.deleteAt(child, pos)
	if ok {
		q.merge(id)
	}
	return val, ok
}

// QueryRange returns the entries inside r.
func (q *Quadtree[V]) QueryRange(r Region) []Entry[V] {
	return q.QueryRangeFast(r, nil)
}

// QueryRangeFast appends the entries inside r to out[:0] and returns it.
// Reusing one results slice across queries avoids allocating on every call.
func (q *Quadtree[V]) QueryRangeFast(r Region, out []Entry[V]) []Entry[V] {
	out = out[:0]
	if !r.Valid() {
		return out
	}
	stack := make([]nodeID, 0, 32)
	stack = append(stack, rootNode)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &q.nodes[id]
		if !n.region.Intersects(r) {
			continue
		}
		if n.leaf() {
			for _, e := range n.entries {
				if r.Contains(e.pos) {
					out = append(out, Entry[V]{Pos: e.pos, Val: e.val})
				}
			}
			continue
		}
		stack = append(stack, n.children[qSE], n.children[qSW], n.children[qNE], n.children[qNW])
	}
	return out
}

// FindInRange returns the entries within radius of center.
func (q *Quadtree[V]) FindInRange(center Point, radius uint32) []Entry[V] {
	return q.FindInRangeFast(center, radius, nil)
}

// FindInRangeFast appends the entries within radius of center to out[:0] and
// returns it. Reusing one results slice across queries avoids allocating on
// every call.
func (q *Quadtree[V]) FindInRangeFast(center Point, radius uint32, out []Entry[V]) []Entry[V] {
	out = out[:0]
	if radius > maxRadius {
		radius = maxRadius
	}
	r2 := int64(radius) * int64(radius)
	stack := make([]nodeID, 0, 32)
	stack = append(stack, rootNode)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &q.nodes[id]
		if n.region.distSquared(center) > r2 {
			continue
		}
		if n.leaf() {
			for _, e := range n.entries {
				if center.DistSquared(e.pos) <= r2 {
					out = append(out, Entry[V]{Pos: e.pos, Val: e.val})
				}
			}
			continue
		}
		stack = append(stack, n.children[qSE], n.children[qSW], n.children[qNE], n.children[qNW])
	}
	return out
}

// QueryNearest returns the k entries closest to pos, nearest first, walking
// nodes in best-first order and keeping the k best entries seen so far in a
// bounded min-max heap. Entries at equal distance rank by insertion order.
func (q *Quadtree[V]) QueryNearest(pos Point, k int) []Entry[V] {
	if k <= 0 || q.count == 0 {
		return nil
	}
	if k > q.count {
		k = q.count
	}
	best := newBestK[V](k)
	frontier := make(nearHeap[V], 0, 32)
	minmaxheap.Push(&frontier, nearElem[V]{
		d2:  q.nodes[rootNode].region.distSquared(pos),
		ord: int64(rootNode),
	})
	for len(frontier) > 0 {
		cand := minmaxheap.Pop(&frontier).(nearElem[V])
		if best.full() && cand.d2 > best.worst() {
			// every remaining node is at least as far
			break
		}
		n := &q.nodes[cand.ord]
		if n.leaf() {
			for _, e := range n.entries {
				best.offer(pos.DistSquared(e.pos), e.seq, Entry[V]{Pos: e.pos, Val: e.val})
			}
			continue
		}
		for _, c := range n.children {
			child := &q.nodes[c]
			if child.leaf() && len(child.entries) == 0 {
				continue
			}
			d2 := child.region.distSquared(pos)
			if best.full() && d2 > best.worst() {
				continue
			}
			minmaxheap.Push(&frontier, nearElem[V]{d2: d2, ord: int64(c)})
		}
	}
	return best.take()
}

// descend walks from the root to the leaf whose region contains pos.
func (q *Quadtree[V]) descend(pos Point) nodeID {
	id := rootNode
	for !q.nodes[id].leaf() {
		n := &q.nodes[id]
		id = n.children[quadrant(n.region.mid(), pos)]
	}
	return id
}

// split turns leaf id into an inner node, redistributing its entries over
// four freshly allocated children.
func (q *Quadtree[V]) split(id nodeID) {
	region := q.nodes[id].region
	mid := region.mid()
	var children [4]nodeID
	for i := range children {
		children[i] = q.alloc(childRegion(region, mid, i))
	}
	for _, e := range q.nodes[id].entries {
		c := children[quadrant(mid, e.pos)]
		q.nodes[c].entries = append(q.nodes[c].entries, e)
	}
	n := &q.nodes[id]
	n.children = children
	n.entries = nil
}

// merge collapses id's children back into it when they are all leaves
// holding at most capacity entries in total.
func (q *Quadtree[V]) merge(id nodeID) {
	n := &q.nodes[id]
	total := 0
	for _, c := range n.children {
		child := &q.nodes[c]
		if !child.leaf() {
			return
		}
		total += len(child.entries)
	}
	if total > q.capacity {
		return
	}
	var entries []qentry[V]
	if total > 0 {
		entries = make([]qentry[V], 0, total)
		for _, c := range n.children {
			entries = append(entries, q.nodes[c].entries...)
		}
	}
	for _, c := range n.children {
		q.nodes[c] = qnode[V]{}
	}
	q.free = append(q.free, n.children[:]...)
	n.entries = entries
	n.children = [4]nodeID{}
}

// alloc returns a fresh leaf with the given region, reusing ids freed by
// merge. Appending to the arena moves it, so callers must not hold node
// pointers across calls.
func (q *Quadtree[V]) alloc(region Region) nodeID {
	if l := len(q.free); l > 0 {
		id := q.free[l-1]
		q.free = q.free[:l-1]
		q.nodes[id] = qnode[V]{region: region}
		return id
	}
	q.nodes = append(q.nodes, qnode[V]{region: region})
	return nodeID(len(q.nodes) - 1)
}

// quadrant returns the child index for p in a node split at mid. Points on a
// midline go west, or south.
func quadrant(mid, p Point) int {
	if p.Y <= mid.Y {
		if p.X <= mid.X {
			return qSW
		}
		return qSE
	}
	if p.X <= mid.X {
		return qNW
	}
	return qNE
}

// childRegion returns the quadrant i of r split at mid. The quadrants tile r
// exactly; on axes where r spans a single value the eastern, or northern,
// quadrants end up empty.
func childRegion(r Region, mid Point, i int) Region {
	switch i {
	case qNW:
		return Rect(r.Min.X, mid.Y+1, mid.X, r.Max.Y)
	case qNE:
		return Rect(mid.X+1, mid.Y+1, r.Max.X, r.Max.Y)
	case qSW:
		return Rect(r.Min.X, r.Min.Y, mid.X, mid.Y)
	default:
		return Rect(mid.X+1, r.Min.Y, r.Max.X, mid.Y)
	}
}

// maxRadius is the largest radius whose square fits in an int64. Distances
// between in-bounds points never exceed it, so larger radii are clamped.
const maxRadius = 3037000499
