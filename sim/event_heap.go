package sim

import "container/heap"

// dueEntry says that an entity wants to step at a logical time.
type dueEntry struct {
	due    int64
	rank   int // position in the topological order
	handle Handle
}

// DueHeap is a priority queue of entities waiting for their next step.
// Ordering: due time → topological rank → handle.
type DueHeap struct {
	entries []dueEntry
}

// NewDueHeap creates an empty heap.
func NewDueHeap() *DueHeap {
	h := &DueHeap{
		entries: make([]dueEntry, 0),
	}
	heap.Init(h)
	return h
}

// Len implements heap.Interface
func (h *DueHeap) Len() int {
	return len(h.entries)
}

// Less implements heap.Interface with deterministic ordering
func (h *DueHeap) Less(i, j int) bool {
	ei, ej := h.entries[i], h.entries[j]

	// Primary: due time (earlier first)
	if ei.due != ej.due {
		return ei.due < ej.due
	}

	// Secondary: sources of non-delayed connections before their destinations
	if ei.rank != ej.rank {
		return ei.rank < ej.rank
	}

	// Tertiary: handle, only reachable if two entries share a rank
	return ei.handle < ej.handle
}

// Swap implements heap.Interface
func (h *DueHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
}

// Push implements heap.Interface
func (h *DueHeap) Push(x interface{}) {
	h.entries = append(h.entries, x.(dueEntry))
}

// Pop implements heap.Interface
func (h *DueHeap) Pop() interface{} {
	old := h.entries
	n := len(old)
	item := old[n-1]
	h.entries = old[0 : n-1]
	return item
}

// schedule adds an entry to the heap
func (h *DueHeap) schedule(e dueEntry) {
	heap.Push(h, e)
}

// popNext removes and returns the next entry
func (h *DueHeap) popNext() dueEntry {
	return heap.Pop(h).(dueEntry)
}

// peek returns the next entry without removing it
func (h *DueHeap) peek() (dueEntry, bool) {
	if h.Len() == 0 {
		return dueEntry{}, false
	}
	return h.entries[0], true
}
