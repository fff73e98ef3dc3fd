package sim

import (
	"container/heap"
	"sort"
)

// schedule is a coordinator's priority queue over its children.
// Ordering: next event time → child attachment index.
type schedule struct {
	entries []*scheduleEntry
	byChild []*scheduleEntry
}

type scheduleEntry struct {
	child int
	tNext float64
	pos   int
}

// newSchedule creates a schedule with one entry per child.
func newSchedule(children []AbstractSimulator) *schedule {
	s := &schedule{
		entries: make([]*scheduleEntry, len(children)),
		byChild: make([]*scheduleEntry, len(children)),
	}
	for i, child := range children {
		e := &scheduleEntry{child: i, tNext: child.TimeNext(), pos: i}
		s.entries[i] = e
		s.byChild[i] = e
	}
	heap.Init(s)
	return s
}

// Len implements heap.Interface
func (s *schedule) Len() int {
	return len(s.entries)
}

// Less implements heap.Interface with deterministic ordering
func (s *schedule) Less(i, j int) bool {
	ei, ej := s.entries[i], s.entries[j]
	if ei.tNext != ej.tNext {
		return ei.tNext < ej.tNext
	}
	return ei.child < ej.child
}

// Swap implements heap.Interface
func (s *schedule) Swap(i, j int) {
	s.entries[i], s.entries[j] = s.entries[j], s.entries[i]
	s.entries[i].pos = i
	s.entries[j].pos = j
}

// Push implements heap.Interface
func (s *schedule) Push(x interface{}) {
	e := x.(*scheduleEntry)
	e.pos = len(s.entries)
	s.entries = append(s.entries, e)
}

// Pop implements heap.Interface
func (s *schedule) Pop() interface{} {
	old := s.entries
	n := len(old)
	item := old[n-1]
	s.entries = old[0 : n-1]
	return item
}

// next returns the earliest next event time, or Infinity when there is none.
func (s *schedule) next() float64 {
	if len(s.entries) == 0 {
		return Infinity
	}
	return s.entries[0].tNext
}

// update moves a child to its new position after its next event time changed.
func (s *schedule) update(child int, tNext float64) {
	e := s.byChild[child]
	if e.tNext == tNext {
		return
	}
	e.tNext = tNext
	heap.Fix(s, e.pos)
}

// imminent returns, in attachment order, every child whose next event time is t.
// Only the part of the heap holding t is visited: children of a node never
// come earlier than the node itself.
func (s *schedule) imminent(t float64) []int {
	var out []int
	stack := []int{0}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p >= len(s.entries) || s.entries[p].tNext != t {
			continue
		}
		out = append(out, s.entries[p].child)
		stack = append(stack, 2*p+1, 2*p+2)
	}
	sort.Ints(out)
	return out
}
