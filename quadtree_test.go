package mortontable

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuadtreeInvalidBoundary(t *testing.T) {
	_, err := NewQuadtree[int](Rect(10, 0, 0, 10), 4)
	require.ErrorIs(t, err, ErrInvalidBoundary)
	_, err = NewQuadtree[int](Rect(0, 10, 10, 0), 4)
	require.ErrorIs(t, err, ErrInvalidBoundary)
}

func TestQuadtreeSplitOncePerInsert(t *testing.T) {
	q, err := NewQuadtree[int](Rect(-100, -100, 100, 100), 4)
	require.NoError(t, err)

	for i := int32(1); i <= 4; i++ {
		require.NoError(t, q.Insert(Pt(i, i), int(i)))
	}
	require.True(t, q.nodes[rootNode].leaf())

	// the fifth insert splits the root exactly one level
	require.NoError(t, q.Insert(Pt(5, 5), 5))
	require.Equal(t, 5, q.Len())
	require.False(t, q.nodes[rootNode].leaf())
	require.Len(t, q.nodes, 6)

	// all five points are north-east of the midpoint (0,0), so they share
	// one overfull child; it splits on the next insert into it
	ne := q.nodes[q.nodes[rootNode].children[qNE]]
	require.True(t, ne.leaf())
	require.Len(t, ne.entries, 5)
	require.Equal(t, Rect(1, 1, 100, 100), ne.region)

	require.Len(t, q.QueryRange(q.Bounds()), 5)

	got := q.QueryNearest(Pt(0, 0), 1)
	require.Len(t, got, 1)
	require.Equal(t, Ent(Pt(1, 1), 1), got[0])

	require.ErrorIs(t, q.Insert(Pt(500, 500), 0), ErrOutOfBounds)
	require.Equal(t, 5, q.Len())
}

func TestQuadtreeChildTiling(t *testing.T) {
	q, err := NewQuadtree[int](Rect(-100, -100, 100, 100), 1)
	require.NoError(t, err)
	require.NoError(t, q.Insert(Pt(0, 0), 0))
	require.NoError(t, q.Insert(Pt(1, 1), 1))

	root := q.nodes[rootNode]
	require.False(t, root.leaf())
	require.Equal(t, Rect(-100, 1, 0, 100), q.nodes[root.children[qNW]].region)
	require.Equal(t, Rect(1, 1, 100, 100), q.nodes[root.children[qNE]].region)
	require.Equal(t, Rect(-100, -100, 0, 0), q.nodes[root.children[qSW]].region)
	require.Equal(t, Rect(1, -100, 100, 0), q.nodes[root.children[qSE]].region)
}

// Points on a splitting midline land in the western or southern child.
func TestQuadtreeMidlineTies(t *testing.T) {
	q, err := NewQuadtree[int](Rect(-100, -100, 100, 100), 1)
	require.NoError(t, err)
	require.NoError(t, q.Insert(Pt(50, 50), 0))
	require.NoError(t, q.Insert(Pt(-50, -50), 1)) // forces the split

	childAt := func(pos Point) nodeID {
		return q.nodes[rootNode].children[quadrant(q.nodes[rootNode].region.mid(), pos)]
	}
	root := q.nodes[rootNode]
	require.Equal(t, root.children[qSW], childAt(Pt(0, 0)))
	require.Equal(t, root.children[qSW], childAt(Pt(0, -5)))
	require.Equal(t, root.children[qSW], childAt(Pt(-5, 0)))
	require.Equal(t, root.children[qNW], childAt(Pt(0, 5)))
	require.Equal(t, root.children[qSE], childAt(Pt(5, 0)))
	require.Equal(t, root.children[qNE], childAt(Pt(5, 5)))

	for i, p := range []Point{Pt(0, 0), Pt(0, 5), Pt(5, 0)} {
		require.NoError(t, q.Insert(p, 10+i))
		got, ok := q.At(p)
		require.True(t, ok)
		require.Equal(t, 10+i, got)
	}
}

func TestQuadtreeZeroExtentBoundary(t *testing.T) {
	q, err := NewQuadtree[int](Rect(5, 5, 5, 5), 1)
	require.NoError(t, err)
	require.NoError(t, q.Insert(Pt(5, 5), 55))
	require.ErrorIs(t, q.Insert(Pt(5, 6), 0), ErrOutOfBounds)
	require.ErrorIs(t, q.Insert(Pt(4, 5), 0), ErrOutOfBounds)
	require.ErrorIs(t, q.Insert(Pt(5, 5), 56), ErrDuplicate)
	require.Equal(t, 1, q.Len())
	// a single-cell root never splits
	require.True(t, q.nodes[rootNode].leaf())
}

func TestQuadtreeDegenerateAxis(t *testing.T) {
	q, err := NewQuadtree[int](Rect(0, 0, 0, 10), 1)
	require.NoError(t, err)
	for y := int32(0); y <= 10; y++ {
		require.NoError(t, q.Insert(Pt(0, y), int(y)))
	}
	require.Equal(t, 11, q.Len())
	for y := int32(0); y <= 10; y++ {
		got, ok := q.At(Pt(0, y))
		require.True(t, ok)
		require.Equal(t, int(y), got)
	}
	require.Len(t, q.QueryRange(Rect(0, 3, 0, 7)), 5)
}

func TestQuadtreeRemoveCollapses(t *testing.T) {
	q, err := NewQuadtree[int](Rect(-100, -100, 100, 100), 4)
	require.NoError(t, err)
	for i := int32(1); i <= 5; i++ {
		require.NoError(t, q.Insert(Pt(i, i), int(i)))
	}
	require.False(t, q.nodes[rootNode].leaf())

	// dropping back to capacity merges the children away
	val, ok := q.DeleteAt(Pt(5, 5))
	require.True(t, ok)
	require.Equal(t, 5, val)
	require.Equal(t, 4, q.Len())
	require.True(t, q.nodes[rootNode].leaf())
	require.Len(t, q.free, 4)

	for i := int32(1); i <= 4; i++ {
		got, ok := q.At(Pt(i, i))
		require.True(t, ok)
		require.Equal(t, int(i), got)
	}
}

func TestQuadtreeRemoveAbsent(t *testing.T) {
	q, err := NewQuadtree[int](Rect(0, 0, 100, 100), 2)
	require.NoError(t, err)
	require.NoError(t, q.Insert(Pt(1, 1), 1))
	require.NoError(t, q.Insert(Pt(2, 2), 2))

	require.ErrorIs(t, q.Remove(Pt(3, 3)), ErrNotFound)
	require.ErrorIs(t, q.Remove(Pt(200, 200)), ErrNotFound)
	require.Equal(t, 2, q.Len())
	require.True(t, q.Contains(Pt(1, 1)))
	require.True(t, q.Contains(Pt(2, 2)))

	empty, err := NewQuadtree[int](Rect(0, 0, 1, 1), 1)
	require.NoError(t, err)
	_, ok := empty.DeleteAt(Pt(0, 0))
	require.False(t, ok)
}

func TestQuadtreeDeepSplitChain(t *testing.T) {
	q, err := NewQuadtree[int](Rect(0, 0, 127, 127), 1)
	require.NoError(t, err)
	points := []Point{Pt(0, 0), Pt(1, 1), Pt(2, 2), Pt(3, 3)}
	for i, p := range points {
		require.NoError(t, q.Insert(p, i))
	}
	require.Equal(t, 4, q.Len())
	require.Len(t, q.nodes, 14)
	for i, p := range points {
		got, ok := q.At(p)
		require.True(t, ok)
		require.Equal(t, i, got)
	}
	require.Len(t, q.QueryRange(Rect(0, 0, 3, 3)), 4)

	// removals cascade merges back up to the root
	for i := len(points) - 1; i >= 0; i-- {
		require.NoError(t, q.Remove(points[i]))
	}
	require.Equal(t, 0, q.Len())
	require.True(t, q.nodes[rootNode].leaf())
	require.Len(t, q.free, 12)

	// splits after clearing out reuse freed nodes instead of growing the arena
	require.NoError(t, q.Insert(Pt(0, 0), 0))
	require.NoError(t, q.Insert(Pt(100, 100), 1))
	require.Len(t, q.nodes, 14)
	require.Len(t, q.free, 8)
}

func TestQuadtreeExtendAtomic(t *testing.T) {
	q, err := NewQuadtree[int](Rect(0, 0, 100, 100), 4)
	require.NoError(t, err)
	require.NoError(t, q.Insert(Pt(1, 1), 11))

	err = q.Extend([]Entry[int]{
		Ent(Pt(2, 2), 22),
		Ent(Pt(101, 0), 0),
	})
	require.ErrorIs(t, err, ErrOutOfBounds)
	require.Equal(t, 1, q.Len())
	require.False(t, q.Contains(Pt(2, 2)))

	err = q.Extend([]Entry[int]{
		Ent(Pt(2, 2), 22),
		Ent(Pt(1, 1), 12),
	})
	require.ErrorIs(t, err, ErrDuplicate)
	require.Equal(t, 1, q.Len())

	require.NoError(t, q.Extend([]Entry[int]{
		Ent(Pt(2, 2), 22),
		Ent(Pt(3, 3), 33),
	}))
	require.Equal(t, 3, q.Len())
}

func TestQuadtreeFromEntries(t *testing.T) {
	entries := []Entry[int]{
		Ent(Pt(10, 20), 1),
		Ent(Pt(30, 5), 2),
		Ent(Pt(25, 25), 3),
	}
	q, err := QuadtreeFromEntries(4, entries)
	require.NoError(t, err)
	require.Equal(t, Rect(10, 5, 30, 25), q.Bounds())
	require.Equal(t, 3, q.Len())
	for _, e := range entries {
		got, ok := q.At(e.Pos)
		require.True(t, ok)
		require.Equal(t, e.Val, got)
	}

	empty, err := QuadtreeFromEntries[int](4, nil)
	require.NoError(t, err)
	require.Equal(t, mortonDomain, empty.Bounds())

	_, err = QuadtreeFromEntries(4, []Entry[int]{
		Ent(Pt(1, 1), 1),
		Ent(Pt(1, 1), 2),
	})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestQuadtreeClear(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	q, err := NewQuadtree[uint32](Rect(0, 0, 1023, 1023), 8)
	require.NoError(t, err)
	require.NoError(t, q.Extend(randomEntries(rng, 200, 1024)))
	require.False(t, q.nodes[rootNode].leaf())

	q.Clear()
	require.Equal(t, 0, q.Len())
	require.Len(t, q.nodes, 2)
	require.True(t, q.nodes[rootNode].leaf())
	require.Equal(t, Rect(0, 0, 1023, 1023), q.Bounds())

	require.NoError(t, q.Insert(Pt(7, 7), 77))
	require.True(t, q.Contains(Pt(7, 7)))
}

func TestQuadtreeQueryRangeVsBrute(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	entries := randomEntries(rng, 300, 512)
	q, err := NewQuadtree[uint32](Rect(0, 0, 511, 511), 8)
	require.NoError(t, err)
	require.NoError(t, q.Extend(entries))

	var out []Entry[uint32]
	for i := 0; i < 50; i++ {
		r := randomRegion(rng, 512)
		out = q.QueryRangeFast(r, out)
		require.ElementsMatch(t, bruteRange(entries, r), out)

		// traversal order is fixed, so repeated queries agree exactly
		again := q.QueryRange(r)
		require.Len(t, again, len(out))
		for j := range again {
			require.Equal(t, out[j], again[j])
		}
	}

	require.Empty(t, q.QueryRange(Rect(600, 600, 700, 700)))
	require.Empty(t, q.QueryRange(Rect(50, 50, 40, 60)))
}

func TestQuadtreeFindInRangeVsBrute(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	q, err := NewQuadtree[uint32](Rect(-512, -512, 511, 511), 8)
	require.NoError(t, err)

	entries := make([]Entry[uint32], 0, 400)
	seen := make(map[Point]struct{})
	for len(entries) < 400 {
		p := Pt(rng.Int31n(1024)-512, rng.Int31n(1024)-512)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		entries = append(entries, Ent(p, uint32(len(entries))))
	}
	require.NoError(t, q.Extend(entries))

	var out []Entry[uint32]
	for i := 0; i < 50; i++ {
		center := Pt(rng.Int31n(1024)-512, rng.Int31n(1024)-512)
		radius := uint32(rng.Int31n(300))
		out = q.FindInRangeFast(center, radius, out)
		require.ElementsMatch(t, bruteInRange(entries, center, radius), out)
	}

	got := q.FindInRange(Pt(0, 0), math.MaxUint32)
	require.Len(t, got, len(entries))
}

func TestQuadtreeQueryNearest(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	entries := randomEntries(rng, 256, 1024)
	q, err := NewQuadtree[uint32](Rect(0, 0, 1023, 1023), 8)
	require.NoError(t, err)
	require.NoError(t, q.Extend(entries))

	for i := 0; i < 30; i++ {
		pos := Pt(rng.Int31n(1024), rng.Int31n(1024))
		k := 1 + rng.Intn(12)
		got := q.QueryNearest(pos, k)
		require.Len(t, got, k)

		want := bruteNearestD2(entries, pos, k)
		for j, e := range got {
			require.Equal(t, want[j], pos.DistSquared(e.Pos))
			if j > 0 {
				require.LessOrEqual(t, pos.DistSquared(got[j-1].Pos), pos.DistSquared(e.Pos))
			}
		}
	}

	require.Nil(t, q.QueryNearest(Pt(0, 0), 0))
	require.Nil(t, q.QueryNearest(Pt(0, 0), -3))
	require.Len(t, q.QueryNearest(Pt(0, 0), 10000), len(entries))
}

// Equal-distance ties rank by insertion order.
func TestQuadtreeQueryNearestTieOrder(t *testing.T) {
	for _, points := range [][]Point{
		{Pt(1, 0), Pt(0, 1)},
		{Pt(0, 1), Pt(1, 0)},
	} {
		q, err := NewQuadtree[int](Rect(0, 0, 100, 100), 4)
		require.NoError(t, err)
		for i, p := range points {
			require.NoError(t, q.Insert(p, i))
		}
		require.NoError(t, q.Insert(Pt(50, 50), 2))

		got := q.QueryNearest(Pt(0, 0), 2)
		require.Len(t, got, 2)
		require.Equal(t, points[0], got[0].Pos)
		require.Equal(t, points[1], got[1].Pos)
	}
}

func TestQuadtreeQueryNearestEmpty(t *testing.T) {
	q, err := NewQuadtree[int](Rect(0, 0, 100, 100), 4)
	require.NoError(t, err)
	require.Nil(t, q.QueryNearest(Pt(50, 50), 3))
}
