package disc

// A FrozenTrie is a succinct, read-only trie over the packed topology bit
// array produced by the dictionary build. The topology is a unary degree
// sequence (LOUDS-style): node i's children occupy the contiguous index
// range found with two select-0 queries. After the topology bits, each
// node occupies a fixed 6-bit record: 1 "word ends here" bit plus a 5-bit
// letter code.
type FrozenTrie struct {
	data        *BitReader
	directory   *RankDirectory
	letterStart uint32
	nodeCount   uint32
}

const nodeRecordBits = 6

// NewFrozenTrie builds the trie view over the topology/letter data and its
// rank directory artifact.
func NewFrozenTrie(data, directoryData string, nodeCount uint32) *FrozenTrie {
	return &FrozenTrie{
		data:        NewBitReader(data),
		directory:   NewRankDirectory(directoryData, data, nodeCount*2+1, L1Size, L2Size),
		letterStart: nodeCount*2 + 1,
		nodeCount:   nodeCount,
	}
}

// NodeCount returns the number of nodes in the trie.
func (t *FrozenTrie) NodeCount() uint32 {
	return t.nodeCount
}

// trieNode is a decoded view of one node record.
type trieNode struct {
	letter     byte
	final      bool
	firstChild uint32
	childCount uint32
}

func (t *FrozenTrie) nodeByIndex(index uint32) trieNode {
	final := t.data.Get(t.letterStart+index*nodeRecordBits, 1) == 1
	code := t.data.Get(t.letterStart+index*nodeRecordBits+1, 5)

	// 5-bit letter codes pack digits below the letters: codes 0-5 map to
	// '0'-'5', the rest to 'A' onward.
	var letter byte
	if code < 6 {
		letter = byte(code) + '0'
	} else {
		letter = byte(code) + 59
	}

	firstChild := uint32(t.directory.Select(0, index+1)) - index
	childOfNextNode := uint32(t.directory.Select(0, index+2)) - index - 1

	return trieNode{
		letter:     letter,
		final:      final,
		firstChild: firstChild,
		childCount: childOfNextNode - firstChild,
	}
}

// lookup walks the trie for an already-normalized word. Children are
// scanned linearly; child counts are small for a natural-language lexicon,
// so this stays fast without extra indexing.
func (t *FrozenTrie) lookup(word string) bool {
	node := t.nodeByIndex(0)
	for i := 0; i < len(word); i++ {
		found := false
		for j := uint32(0); j < node.childCount; j++ {
			child := t.nodeByIndex(node.firstChild + j)
			if child.letter == word[i] {
				node = child
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return node.final
}
