package compression

import (
	"container/heap"
)

// queueChunk is the step by which the queue's backing store grows and
// shrinks.
const queueChunk = 16

// treeQueue is a min-heap of partial Huffman trees ordered by root weight.
// Trees of equal weight come out in insertion order.
type treeQueue struct {
	items []*Tree
	next  uint64
}

func (q *treeQueue) Len() int { return len(q.items) }

func (q *treeQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.root.weight != b.root.weight {
		return a.root.weight < b.root.weight
	}
	return a.seq < b.seq
}

func (q *treeQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *treeQueue) Push(x any) {
	if len(q.items) == cap(q.items) {
		grown := make([]*Tree, len(q.items), cap(q.items)+queueChunk)
		copy(grown, q.items)
		q.items = grown
	}
	q.items = append(q.items, x.(*Tree))
}

func (q *treeQueue) Pop() any {
	n := len(q.items)
	item := q.items[n-1]
	q.items[n-1] = nil
	q.items = q.items[:n-1]
	if cap(q.items)-len(q.items) > 2*queueChunk {
		shrunk := make([]*Tree, len(q.items), len(q.items)+queueChunk)
		copy(shrunk, q.items)
		q.items = shrunk
	}
	return item
}

// insert adds t to the queue.
func (q *treeQueue) insert(t *Tree) {
	t.seq = q.next
	q.next++
	heap.Push(q, t)
}

// extractMin removes and returns the lightest tree. It reports false when
// the queue is empty.
func (q *treeQueue) extractMin() (*Tree, bool) {
	if q.Len() == 0 {
		return nil, false
	}
	return heap.Pop(q).(*Tree), true
}

var _ heap.Interface = (*treeQueue)(nil)
