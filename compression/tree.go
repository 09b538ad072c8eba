package compression

import (
	"bytes"
	"fmt"
	"io"
)

// Symbol is a byte value, or NoSymbol for an internal tree node.
type Symbol int16

// NoSymbol marks a node that carries no symbol of its own.
const NoSymbol = Symbol(-1)

type node struct {
	symbol Symbol
	weight uint32
	left   *node
	right  *node
}

func (n *node) isLeaf() bool {
	return n.left == nil && n.right == nil
}

// Tree is a Huffman tree. Every node is owned by exactly one parent; trees
// never share subtrees.
type Tree struct {
	root *node
	seq  uint64
}

// BuildTree builds the Huffman tree for ft. Leaves are queued in ascending
// symbol order and the two lightest trees are merged until one is left, so
// the same table always produces the same tree.
//
// A table without symbols yields a lone root that is never traversed. A
// table with a single symbol yields a synthetic root whose only (left) child
// is that symbol's leaf, giving it a one-bit code.
func BuildTree(ft FrequencyTable) *Tree {
	var q treeQueue
	for symbol, weight := range ft.Counts {
		if weight != 0 {
			q.insert(&Tree{root: &node{symbol: Symbol(symbol), weight: weight}})
		}
	}

	if q.Len() == 0 {
		return &Tree{root: &node{symbol: NoSymbol}}
	}

	for q.Len() > 1 {
		t1, _ := q.extractMin()
		t2, _ := q.extractMin()
		q.insert(merge(t1, t2))
	}

	t, _ := q.extractMin()
	if t.root.isLeaf() {
		t.root = &node{symbol: NoSymbol, weight: t.root.weight, left: t.root}
	}
	return t
}

// merge joins two trees under a new internal root. Ownership of both roots
// moves to the result.
func merge(left, right *Tree) *Tree {
	return &Tree{root: &node{
		symbol: NoSymbol,
		weight: left.root.weight + right.root.weight,
		left:   left.root,
		right:  right.root,
	}}
}

// Weight returns the root weight, i.e. the number of encoded symbols.
func (t *Tree) Weight() uint32 {
	return t.root.weight
}

// Leaves returns the number of symbol leaves in the tree.
func (t *Tree) Leaves() int {
	return countLeaves(t.root)
}

func countLeaves(n *node) int {
	if n == nil {
		return 0
	}
	if n.isLeaf() {
		if n.symbol == NoSymbol {
			return 0
		}
		return 1
	}
	return countLeaves(n.left) + countLeaves(n.right)
}

// Dump writes a programmer-readable rendering of the tree to w.
func (t *Tree) Dump(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString("Tree{\n")
	dumpNode(&buf, t.root, 1)
	buf.WriteString("}\n")
	return buf.WriteTo(w)
}

func dumpNode(buf *bytes.Buffer, n *node, depth int) {
	if n == nil {
		return
	}
	for i := 0; i < depth; i++ {
		buf.WriteByte('\t')
	}
	if n.symbol == NoSymbol {
		fmt.Fprintf(buf, "* %d\n", n.weight)
	} else {
		fmt.Fprintf(buf, "%d %d\n", n.symbol, n.weight)
	}
	dumpNode(buf, n.left, depth+1)
	dumpNode(buf, n.right, depth+1)
}
