package compression

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// CodeTable maps every symbol to its Huffman code, written as a string of
// '0' and '1' characters. Symbols that do not occur have an empty code.
type CodeTable [SymbolCount]string

// BuildCodeTable derives the code of every leaf from its path: '0' for each
// step to a left child, '1' for each step to a right child.
func BuildCodeTable(t *Tree) CodeTable {
	var ct CodeTable
	assignCodes(t.root, "", &ct)
	return ct
}

func assignCodes(n *node, code string, ct *CodeTable) {
	if n == nil {
		return
	}

	// leaf: record the path taken to get here
	if n.symbol != NoSymbol {
		ct[n.symbol] = code
		return
	}

	assignCodes(n.left, code+"0", ct)
	assignCodes(n.right, code+"1", ct)
}

// Dump writes the non-empty codes to w, one per line.
func (ct *CodeTable) Dump(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString("CodeTable{\n")
	for symbol, code := range ct {
		if code != "" {
			fmt.Fprintf(&buf, "\tEncode(%d) = %s\n", symbol, strconv.Quote(code))
		}
	}
	buf.WriteString("}\n")
	return buf.WriteTo(w)
}
