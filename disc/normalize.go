package disc

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldMarks = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize maps a word built from tile display characters onto the
// alphabet the trie was compressed with: uppercase ASCII letters only.
// It strips diacritics, drops the punctuation used to spell the geminated
// L (L·L, L.L, L-L), and folds Ç to C. This exact set is part of the
// lookup contract; the board builds words from raw display characters and
// they must match what the dictionary build saw.
//
// This is deliberately a different function from the tile tokenizer's
// handling of digraphs: that one decides what counts as one tile, this one
// decides what the lexicon was keyed on. Do not merge them.
func Normalize(word string) string {
	w := strings.ToUpper(strings.TrimSpace(word))
	if folded, _, err := transform.String(foldMarks, w); err == nil {
		w = folded
	}
	w = strings.Map(func(r rune) rune {
		switch r {
		case '·', '.', '-':
			return -1
		}
		return r
	}, w)
	// The cedilla is a combining mark after NFD, so the fold above already
	// handles composed input; this covers strings that never decomposed.
	w = strings.ReplaceAll(w, "Ç", "C")
	return w
}
