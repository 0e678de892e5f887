package tilemapping

import (
	"unicode"
)

// A tile is internally represented by a single rune code. Multi-character
// units (the digraphs QU and NY, and the geminated L·L) get their own code
// so that one board cell always holds exactly one code. A lowercase code
// denotes a blank standing in for that unit; its point value is always 0.
const (
	// BlankToken is the user-visible representation of an unassigned blank.
	BlankToken = '?'

	// CodeQU is the internal code for the QU digraph tile.
	CodeQU rune = 'Û'
	// CodeLL is the internal code for the geminated-L (L·L) tile.
	CodeLL rune = 'Ł'
	// CodeNY is the internal code for the NY digraph tile.
	CodeNY rune = 'Ý'
)

// digraphDisplay maps an internal unit code to what is printed on the tile.
var digraphDisplay = map[rune]string{
	CodeQU: "QU",
	CodeLL: "L·L",
	CodeNY: "NY",
}

// letterValues is the Catalan point value per unit code.
var letterValues = map[rune]int{
	'A': 1, 'E': 1, 'I': 1, 'R': 1, 'S': 1, 'N': 1, 'O': 1, 'T': 1, 'L': 1, 'U': 1,
	'C': 2, 'D': 2, 'M': 2,
	'B': 3, 'G': 3, 'P': 3,
	'F': 4, 'V': 4,
	'H': 8, 'J': 8, 'Q': 8, 'Z': 8,
	'Ç': 10, 'X': 10,
	CodeLL: 10,
	CodeNY: 10,
	CodeQU: 8,
}

// A Tile is an immutable playable unit: one letter or digraph, or a blank
// standing in for one.
type Tile struct {
	// Code is the canonical single-rune representation; lowercase means
	// blank.
	Code rune `json:"char"`
	// Value is the face value. Always 0 for blanks.
	Value int `json:"value"`
	// IsBlank is true when this tile is a blank assigned to a letter, or
	// the unassigned '?'.
	IsBlank bool `json:"isBlank"`
	// Display is what is shown on the tile face ("QU", "L·L", "A", ...).
	Display string `json:"displayChar"`
}

// MakeTile builds a Tile from an internal code. A lowercase code produces
// the blank version of that unit, worth 0 points.
func MakeTile(code rune) Tile {
	if code == BlankToken {
		return Tile{Code: BlankToken, Value: 0, IsBlank: true, Display: "?"}
	}
	upper := unicode.ToUpper(code)
	isBlank := code != upper

	display, ok := digraphDisplay[upper]
	if !ok {
		display = string(upper)
	}
	value := 0
	if !isBlank {
		value = letterValues[upper]
	}
	return Tile{Code: code, Value: value, IsBlank: isBlank, Display: display}
}

// UpperCode returns the unblanked unit code for this tile.
func (t Tile) UpperCode() rune {
	return unicode.ToUpper(t.Code)
}

// UnitValue returns the face value of the given (uppercase) unit code.
func UnitValue(code rune) int {
	return letterValues[unicode.ToUpper(code)]
}
