package router

import (
	"math"

	"github.com/azybler/route-snapper/pkg/snapmap"
)

// pqItem is a priority queue entry: node u with A* priority f = g + h,
// plus a monotonic seq that breaks ties by insertion order so search output
// is deterministic across runs with identical inputs.
type pqItem struct {
	node snapmap.NodeID
	f    float64
	seq  uint64
}

// minHeap is a concrete-typed binary min-heap, avoiding container/heap's
// interface boxing, adapted from the teacher's routing.MinHeap and widened
// to a float64 key plus a tie-break sequence number.
type minHeap struct {
	items []pqItem
}

func (h *minHeap) Len() int { return len(h.items) }

func (h *minHeap) Push(node snapmap.NodeID, f float64, seq uint64) {
	h.items = append(h.items, pqItem{node: node, f: f, seq: seq})
	h.siftUp(len(h.items) - 1)
}

func (h *minHeap) Pop() pqItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *minHeap) PeekF() float64 {
	if len(h.items) == 0 {
		return math.Inf(1)
	}
	return h.items[0].f
}

func (h *minHeap) Reset() {
	h.items = h.items[:0]
}

func less(a, b pqItem) bool {
	if a.f != b.f {
		return a.f < b.f
	}
	return a.seq < b.seq
}

func (h *minHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !less(h.items[i], h.items[parent]) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *minHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && less(h.items[left], h.items[smallest]) {
			smallest = left
		}
		if right < n && less(h.items[right], h.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
