package tilemapping

import (
	"sort"
	"unicode"
)

// LetterDistribution encodes the full tile set for the game: how many of
// each unit exist and what each is worth. The bag is never stored; it is
// always re-derived from this distribution minus the tiles in play.
type LetterDistribution struct {
	counts  map[rune]uint8
	letters []rune
	total   uint
	Name    string
}

// CatalanDistribution returns the official Catalan tile set: 100 tiles
// including single tiles for the QU and NY digraphs and the geminated L,
// and two blanks.
func CatalanDistribution() *LetterDistribution {
	return newLetterDistribution("catalan", map[rune]uint8{
		'A': 12, 'E': 13, 'I': 8, 'O': 5, 'U': 4,
		'S': 8, 'R': 8, 'N': 6, 'T': 5, 'L': 4,
		'C': 3, 'D': 3, 'M': 3,
		'B': 2, 'G': 2, 'P': 2,
		'F': 1, 'V': 1,
		'H': 1, 'J': 1, 'Z': 1,
		'Ç': 1, 'X': 1,
		CodeQU: 1, CodeLL: 1, CodeNY: 1,
		BlankToken: 2,
	})
}

func newLetterDistribution(name string, counts map[rune]uint8) *LetterDistribution {
	letters := make([]rune, 0, len(counts))
	total := uint(0)
	for code, ct := range counts {
		letters = append(letters, code)
		total += uint(ct)
	}
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })
	return &LetterDistribution{
		counts:  counts,
		letters: letters,
		total:   total,
		Name:    name,
	}
}

// Count returns how many tiles of the given unit code exist in the set.
func (ld *LetterDistribution) Count(code rune) uint8 {
	return ld.counts[unicode.ToUpper(code)]
}

// Score gives the point value of the given unit code. Lowercase codes are
// blanks and score 0.
func (ld *LetterDistribution) Score(code rune) int {
	if code == BlankToken || unicode.IsLower(code) {
		return 0
	}
	return letterValues[code]
}

// Letters returns the unit codes of the set in a deterministic order,
// blank included.
func (ld *LetterDistribution) Letters() []rune {
	return ld.letters
}

// NumTotalTiles returns the size of the full tile set.
func (ld *LetterDistribution) NumTotalTiles() uint {
	return ld.total
}
