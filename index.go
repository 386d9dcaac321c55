package mortontable

// Entry pairs a position with its stored value.
type Entry[V any] struct {
	Pos Point
	Val V
}

// Ent is shorthand for Entry[V]{pos, val}.
func Ent[V any](pos Point, val V) Entry[V] {
	return Entry[V]{Pos: pos, Val: val}
}

// Index is the operation set shared by MortonTable and Quadtree. Positions
// are unique within an index: inserting at an occupied position fails with
// ErrDuplicate.
type Index[V any] interface {
	// Insert stores val at pos.
	Insert(pos Point, val V) error
	// Extend stores every entry, or stores nothing if any entry would fail.
	Extend(entries []Entry[V]) error
	// Remove deletes the entry at pos, returning ErrNotFound if absent.
	Remove(pos Point) error
	// DeleteAt deletes the entry at pos, returning its value.
	DeleteAt(pos Point) (V, bool)
	// At returns the value stored at pos.
	At(pos Point) (V, bool)
	// Contains reports whether an entry exists at pos.
	Contains(pos Point) bool
	// QueryRange returns the entries inside r.
	QueryRange(r Region) []Entry[V]
	// QueryRangeFast appends the entries inside r to out[:0] and returns it.
	QueryRangeFast(r Region, out []Entry[V]) []Entry[V]
	// FindInRange returns the entries within radius of center.
	FindInRange(center Point, radius uint32) []Entry[V]
	// FindInRangeFast appends the entries within radius of center to out[:0]
	// and returns it.
	FindInRangeFast(center Point, radius uint32, out []Entry[V]) []Entry[V]
	// QueryNearest returns the k entries closest to pos, nearest first.
	QueryNearest(pos Point, k int) []Entry[V]
	// Len returns the number of stored entries.
	Len() int
	// Bounds returns the region positions must lie inside.
	Bounds() Region
	// Clear removes every entry.
	Clear()
}
