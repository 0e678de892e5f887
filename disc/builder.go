package disc

import (
	"fmt"
	"sort"
)

// This file is the artifact producer: it compiles a word list into the
// packed trie + rank directory strings that FrozenTrie consumes. The
// runtime only ever reads prebuilt artifacts; the builder exists for the
// lexicon build tooling and for tests that need a real dictionary.

type buildNode struct {
	letter   byte
	final    bool
	children []*buildNode
}

func (n *buildNode) child(letter byte) *buildNode {
	for _, c := range n.children {
		if c.letter == letter {
			return c
		}
	}
	c := &buildNode{letter: letter}
	n.children = append(n.children, c)
	return c
}

// letterCode packs a normalized character into the 5-bit node record code.
// The inverse of the decode in nodeByIndex.
func letterCode(ch byte) (uint32, error) {
	switch {
	case ch >= '0' && ch <= '5':
		return uint32(ch - '0'), nil
	case ch >= 'A' && ch <= 'Z':
		return uint32(ch) - 59, nil
	}
	return 0, fmt.Errorf("character %q not representable in a node record", ch)
}

// bitWriter appends big-endian bit fields and renders them in the packed
// 6-bit artifact alphabet.
type bitWriter struct {
	chars   []byte
	pending uint32
	nbits   uint32
}

func (w *bitWriter) write(value, width uint32) {
	for i := int(width) - 1; i >= 0; i-- {
		w.pending = (w.pending << 1) | ((value >> uint(i)) & 1)
		w.nbits++
		if w.nbits == charWidth {
			w.chars = append(w.chars, artifactAlphabet[w.pending])
			w.pending = 0
			w.nbits = 0
		}
	}
}

func (w *bitWriter) String() string {
	if w.nbits > 0 {
		return string(append(append([]byte{}, w.chars...),
			artifactAlphabet[w.pending<<(charWidth-w.nbits)]))
	}
	return string(w.chars)
}

// Build compiles a list of words into the trie topology string, the rank
// directory string, and the node count. Words are normalized first, so the
// caller can pass raw display forms.
func Build(words []string) (trie, directory string, nodeCount uint32, err error) {
	root := &buildNode{}
	for _, w := range words {
		node := root
		normalized := Normalize(w)
		for i := 0; i < len(normalized); i++ {
			node = node.child(normalized[i])
		}
		node.final = true
	}

	// Level order, children sorted, so the layout is deterministic.
	nodes := []*buildNode{root}
	for i := 0; i < len(nodes); i++ {
		sort.Slice(nodes[i].children, func(a, b int) bool {
			return nodes[i].children[a].letter < nodes[i].children[b].letter
		})
		nodes = append(nodes, nodes[i].children...)
	}
	nodeCount = uint32(len(nodes))

	tw := &bitWriter{}
	// Unary degree sequence, with the leading super-root marker.
	tw.write(0b10, 2)
	for _, n := range nodes {
		for range n.children {
			tw.write(1, 1)
		}
		tw.write(0, 1)
	}
	topologyBits := collectBits(tw, nodeCount*2+1)

	for _, n := range nodes {
		final := uint32(0)
		if n.final {
			final = 1
		}
		tw.write(final, 1)
		code := uint32(0)
		if n.letter != 0 {
			code, err = letterCode(n.letter)
			if err != nil {
				return "", "", 0, err
			}
		}
		tw.write(code, 5)
	}

	return tw.String(), buildDirectory(topologyBits), nodeCount, nil
}

// collectBits snapshots the first numBits bits written so far, so the
// directory can be computed without re-decoding the packed string.
func collectBits(w *bitWriter, numBits uint32) []bool {
	out := make([]bool, numBits)
	for i := uint32(0); i < numBits; i++ {
		ci := i / charWidth
		var ch uint32
		if int(ci) < len(w.chars) {
			ch = charValue[w.chars[ci]]
		} else {
			ch = w.pending << (charWidth - w.nbits)
		}
		out[i] = (ch>>(charWidth-1-i%charWidth))&1 == 1
	}
	return out
}

// buildDirectory emits the two-level rank summary in the exact layout Rank
// expects: per 1024-bit outer block, 31 relative inner counts followed by
// one cumulative count.
func buildDirectory(data []bool) string {
	numBits := uint32(len(data))
	l1Bits := ceilLog2(numBits)
	l2Bits := ceilLog2(L1Size)

	ones := func(from, to uint32) uint32 {
		count := uint32(0)
		for i := from; i < to && i < numBits; i++ {
			if data[i] {
				count++
			}
		}
		return count
	}

	w := &bitWriter{}
	cumulative := uint32(0)
	for base := uint32(0); base < numBits; base += L1Size {
		for j := uint32(1); j < L1Size/L2Size; j++ {
			w.write(ones(base, base+j*L2Size), l2Bits)
		}
		cumulative += ones(base, base+L1Size)
		w.write(cumulative, l1Bits)
	}
	return w.String()
}
