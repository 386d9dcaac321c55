package mortontable

import (
	"container/heap"

	"github.com/esote/minmaxheap"
)

// nearElem is a candidate in a nearest query, ordered by squared distance
// with ord breaking ties: the entry sequence number in a result heap, or the
// node id in a frontier heap.
type nearElem[V any] struct {
	d2  int64
	ord int64
	ent Entry[V]
}

// nearHeap is a min-max heap of nearest candidates.
type nearHeap[V any] []nearElem[V]

var _ heap.Interface = (*nearHeap[int])(nil)

func (h nearHeap[V]) Len() int {
	return len(h)
}

func (h nearHeap[V]) Less(i, j int) bool {
	if h[i].d2 != h[j].d2 {
		return h[i].d2 < h[j].d2
	}
	return h[i].ord < h[j].ord
}

func (h nearHeap[V]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *nearHeap[V]) Push(x any) {
	*h = append(*h, x.(nearElem[V]))
}

func (h *nearHeap[V]) Pop() any {
	old := *h
	e := old[len(old)-1]
	*h = old[:len(old)-1]
	return e
}

// bestK keeps the k closest entries offered so far, evicting the farthest
// when a closer one arrives.
type bestK[V any] struct {
	h nearHeap[V]
	k int
}

func newBestK[V any](k int) *bestK[V] {
	return &bestK[V]{
		h: make(nearHeap[V], 0, k+1),
		k: k,
	}
}

func (b *bestK[V]) full() bool {
	return len(b.h) >= b.k
}

// worst returns the squared distance of the farthest kept entry. Only call
// this when the heap holds at least one entry.
func (b *bestK[V]) worst() int64 {
	// in a min-max heap the maximum sits at the root when it is alone,
	// otherwise at index 1 or 2
	switch len(b.h) {
	case 1:
		return b.h[0].d2
	case 2:
		return b.h[1].d2
	default:
		if b.h.Less(1, 2) {
			return b.h[2].d2
		}
		return b.h[1].d2
	}
}

func (b *bestK[V]) offer(d2, ord int64, ent Entry[V]) {
	minmaxheap.Push(&b.h, nearElem[V]{d2: d2, ord: ord, ent: ent})
	if len(b.h) > b.k {
		minmaxheap.PopMax(&b.h)
	}
}

// take drains the heap, closest first.
func (b *bestK[V]) take() []Entry[V] {
	out := make([]Entry[V], 0, len(b.h))
	for len(b.h) > 0 {
		out = append(out, minmaxheap.Pop(&b.h).(nearElem[V]).ent)
	}
	return out
}
