package mortontable

import (
	"math"
	"slices"
)

const (
	skipLen = 8

	// splitThreshold is the key span length below which scanning beats
	// splitting the span with litmaxBigmin.
	splitThreshold = 16
)

// MortonTable is a linear quadtree over the positions in Bounds. Entries live
// in three parallel slices sorted by the Morton key of their position, so a
// range query turns into binary searches over the key space, and a short
// skiplist of sampled keys narrows every search to one partition before
// touching the full slice.
type MortonTable[V any] struct {
	skipstep uint32
	skiplist [skipLen]uint32

	keys      []Key
	positions []Point
	values    []V
}

// NewMortonTable returns an empty table.
func NewMortonTable[V any]() *MortonTable[V] {
	return &MortonTable[V]{}
}

// MortonTableFromEntries returns a table holding entries, loaded as one
// batch.
func MortonTableFromEntries[V any](entries []Entry[V]) (*MortonTable[V], error) {
	t := NewMortonTable[V]()
	if err := t.Extend(entries); err != nil {
		return nil, err
	}
	return t, nil
}

// Len returns the number of stored entries.
func (t *MortonTable[V]) Len() int {
	return len(t.keys)
}

// Bounds returns the region positions must lie inside.
func (t *MortonTable[V]) Bounds() Region {
	return mortonDomain
}

// Clear removes every entry.
func (t *MortonTable[V]) Clear() {
	t.keys = t.keys[:0]
	t.positions = t.positions[:0]
	clear(t.values)
	t.values = t.values[:0]
	t.skipstep = 0
	t.skiplist = [skipLen]uint32{}
}

// Insert stores val at pos. Inserting shifts every entry after pos to keep
// the slices sorted; prefer Extend when loading many entries at once.
func (t *MortonTable[V]) Insert(pos Point, val V) error {
	if !mortonDomain.Contains(pos) {
		return ErrOutOfBounds
	}
	key := MakeKey(pos)
	ind, ok := slices.BinarySearch(t.keys, key)
	if ok {
		return ErrDuplicate
	}
	t.keys = slices.Insert(t.keys, ind, key)
	t.positions = slices.Insert(t.positions, ind, pos)
	t.values = slices.Insert(t.values, ind, val)
	t.rebuildSkipList()
	return nil
}

// Extend stores every entry, appending them all and sorting once. If any
// entry is out of bounds or collides with an existing or in-batch position,
// nothing is stored.
func (t *MortonTable[V]) Extend(entries []Entry[V]) error {
	seen := make(map[Point]struct{}, len(entries))
	for _, e := range entries {
		if !mortonDomain.Contains(e.Pos) {
			return ErrOutOfBounds
		}
		if _, dup := seen[e.Pos]; dup {
			return ErrDuplicate
		}
		if t.Contains(e.Pos) {
			return ErrDuplicate
		}
		seen[e.Pos] = struct{}{}
	}
	for _, e := range entries {
		t.keys = append(t.keys, MakeKey(e.Pos))
		t.positions = append(t.positions, e.Pos)
		t.values = append(t.values, e.Val)
	}
	sortByKeys(t.keys, t.positions, t.values)
	t.rebuildSkipList()
	return nil
}

// At returns the value stored at pos.
func (t *MortonTable[V]) At(pos Point) (V, bool) {
	var zero V
	if !mortonDomain.Contains(pos) {
		return zero, false
	}
	ind, ok := t.findKey(MakeKey(pos))
	if !ok {
		return zero, false
	}
	return t.values[ind], true
}

// Contains reports whether an entry exists at pos.
func (t *MortonTable[V]) Contains(pos Point) bool {
	if !mortonDomain.Contains(pos) {
		return false
	}
	_, ok := t.findKey(MakeKey(pos))
	return ok
}

// Remove deletes the entry at pos.
func (t *MortonTable[V]) Remove(pos Point) error {
	if _, ok := t.DeleteAt(pos); !ok {
		return ErrNotFound
	}
	return nil
}

// DeleteAt deletes the entry at pos, returning its value.
func (t *MortonTable[V]) DeleteAt(pos Point) (V, bool) {
	var zero V
	if !mortonDomain.Contains(pos) {
		return zero, false
	}
	ind, ok := t.findKey(MakeKey(pos))
	if !ok {
		return zero, false
	}
	val := t.values[ind]
	t.keys = slices.Delete(t.keys, ind, ind+1)
	t.positions = slices.Delete(t.positions, ind, ind+1)
	t.values = slices.Delete(t.values, ind, ind+1)
	t.rebuildSkipList()
	return val, true
}

// QueryRange returns the entries inside r.
func (t *MortonTable[V]) QueryRange(r Region) []Entry[V] {
	return t.QueryRangeFast(r, nil)
}

// QueryRangeFast appends the entries inside r to out[:0] and returns it.
// Reusing one results slice across queries avoids allocating on every call.
func (t *MortonTable[V]) QueryRangeFast(r Region, out []Entry[V]) []Entry[V] {
	out = out[:0]
	r = clampToDomain(r)
	if !r.Valid() || len(t.keys) == 0 {
		return out
	}
	return t.queryRange(r, MakeKey(r.Min), MakeKey(r.Max), out)
}

func (t *MortonTable[V]) queryRange(r Region, min, max Key, out []Entry[V]) []Entry[V] {
	imin, pmin, imax, pmax := t.keySpan(min, max)
	if imax < imin {
		return out
	}
	if imax-imin > splitThreshold {
		litmax, bigmin := litmaxBigmin(min, pmin, max, pmax)
		out = t.queryRange(r, min, litmax, out)
		return t.queryRange(r, bigmin, max, out)
	}
	for i := imin; i < imax; i++ {
		if r.Contains(t.positions[i]) {
			out = append(out, Entry[V]{Pos: t.positions[i], Val: t.values[i]})
		}
	}
	return out
}

// FindInRange returns the entries within radius of center.
func (t *MortonTable[V]) FindInRange(center Point, radius uint32) []Entry[V] {
	return t.FindInRangeFast(center, radius, nil)
}

// FindInRangeFast appends the entries within radius of center to out[:0] and
// returns it. Reusing one results slice across queries avoids allocating on
// every call.
func (t *MortonTable[V]) FindInRangeFast(center Point, radius uint32, out []Entry[V]) []Entry[V] {
	out = out[:0]
	if radius > 2*maxCoord {
		// already spans the whole domain from any center
		radius = 2 * maxCoord
	}
	box := clampToDomain(RegionAround(center, int32(radius), int32(radius)))
	if !box.Valid() || len(t.keys) == 0 {
		return out
	}
	r2 := int64(radius) * int64(radius)
	return t.findInRange(center, r2, MakeKey(box.Min), MakeKey(box.Max), out)
}

func (t *MortonTable[V]) findInRange(center Point, r2 int64, min, max Key, out []Entry[V]) []Entry[V] {
	imin, pmin, imax, pmax := t.keySpan(min, max)
	if imax < imin {
		return out
	}
	if imax-imin > splitThreshold {
		litmax, bigmin := litmaxBigmin(min, pmin, max, pmax)
		out = t.findInRange(center, r2, min, litmax, out)
		return t.findInRange(center, r2, bigmin, max, out)
	}
	for i := imin; i < imax; i++ {
		if center.DistSquared(t.positions[i]) <= r2 {
			out = append(out, Entry[V]{Pos: t.positions[i], Val: t.values[i]})
		}
	}
	return out
}

// QueryNearest returns the k entries closest to pos, nearest first. Entries
// at equal distance rank in key order.
func (t *MortonTable[V]) QueryNearest(pos Point, k int) []Entry[V] {
	if k <= 0 || len(t.keys) == 0 {
		return nil
	}
	if k > len(t.keys) {
		k = len(t.keys)
	}
	best := newBestK[V](k)
	for i, p := range t.positions {
		best.offer(pos.DistSquared(p), int64(i), Entry[V]{Pos: p, Val: t.values[i]})
	}
	return best.take()
}

// keySpan returns the window [imin, imax) of entries whose keys may fall in
// [min, max], along with the corner positions litmaxBigmin needs to split the
// range.
func (t *MortonTable[V]) keySpan(min, max Key) (imin int, pmin Point, imax int, pmax Point) {
	var ok bool
	if imin, ok = t.findKey(min); ok {
		pmin = t.positions[imin]
	} else {
		pmin = min.Point()
	}
	if imax, ok = t.findKey(max); ok {
		pmax = t.positions[imax]
		imax++
	} else {
		pmax = max.Point()
	}
	return
}

// findKey returns the index of key, or the index where it would be inserted.
func (t *MortonTable[V]) findKey(key Key) (int, bool) {
	step := int(t.skipstep)
	if step == 0 {
		return slices.BinarySearch(t.keys, key)
	}
	var begin, end int
	if part := t.findKeyPartition(key); part < skipLen {
		begin = part * step
		end = min(len(t.keys), begin+step+1)
	} else {
		end = len(t.keys)
		begin = end - step - 3
	}
	ind, ok := slices.BinarySearch(t.keys[begin:end], key)
	return ind + begin, ok
}

// findKeyPartition returns the index of the skiplist partition that may hold
// key: the number of sampled keys smaller than it.
func (t *MortonTable[V]) findKeyPartition(key Key) int {
	k := uint32(key)
	part := 0
	for _, s := range t.skiplist {
		if s < k {
			part++
		}
	}
	return part
}

// rebuildSkipList resamples every skipstep-th key. Unused slots are filled
// with MaxUint32 so they never count as smaller in findKeyPartition.
func (t *MortonTable[V]) rebuildSkipList() {
	for i := range t.skiplist {
		t.skiplist[i] = math.MaxUint32
	}
	n := len(t.keys)
	step := n / (skipLen - 1)
	t.skipstep = uint32(step)
	if step == 0 {
		if n > 0 {
			t.skiplist[0] = uint32(t.keys[n-1])
		}
		return
	}
	for i := 0; i < skipLen && (i+1)*step < n; i++ {
		t.skiplist[i] = uint32(t.keys[(i+1)*step])
	}
}

// clampToDomain intersects r with the table domain. The result is invalid
// when they do not overlap.
func clampToDomain(r Region) Region {
	return Rect(
		max(r.Min.X, 0), max(r.Min.Y, 0),
		min(r.Max.X, maxCoord), min(r.Max.Y, maxCoord),
	)
}
