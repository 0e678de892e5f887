package board

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/escrabble-cat/duplicat/tilemapping"
)

// Dim is the board dimension. Only the standard 15x15 layout is supported.
const Dim = 15

var ErrOccupied = errors.New("cell already occupied")

// PremiumClass is a cell's fixed score multiplier class. The numeric
// values match the persisted session document.
type PremiumClass int

const (
	None PremiumClass = iota
	DoubleLetter
	TripleLetter
	DoubleWord
	TripleWord
	Center
)

// LetterMultiplier returns the multiplier applied to a freshly placed
// tile's face value on this cell.
func (p PremiumClass) LetterMultiplier() int {
	switch p {
	case DoubleLetter:
		return 2
	case TripleLetter:
		return 3
	}
	return 1
}

// WordMultiplier returns the whole-word multiplier this cell contributes.
// The center cell counts as a double word score.
func (p PremiumClass) WordMultiplier() int {
	switch p {
	case DoubleWord, Center:
		return 2
	case TripleWord:
		return 3
	}
	return 1
}

// A Cell is a single board position: its fixed premium class and at most
// one placed tile. The tile transitions from nil to non-nil exactly once
// and is only ever cleared by a full session reset.
type Cell struct {
	Row     int               `json:"row"`
	Col     int               `json:"col"`
	Premium PremiumClass      `json:"multiplier"`
	Tile    *tilemapping.Tile `json:"tile"`
}

// Direction of a placement on the board.
type Direction string

const (
	Horizontal Direction = "H"
	Vertical   Direction = "V"
)

// Delta returns the per-step row and column increments for this direction.
func (d Direction) Delta() (dr, dc int) {
	if d == Horizontal {
		return 0, 1
	}
	return 1, 0
}

// CrosswordGameLayout is the standard symmetric premium layout, described
// the same way the board is drawn: = and - are triple and double word
// scores, " and ' are triple and double letter scores, * is the center.
var CrosswordGameLayout = []string{
	`=  '   =   '  =`,
	` -   "   "   - `,
	`  -   ' '   -  `,
	`'  -   '   -  '`,
	`    -     -    `,
	` "   "   "   " `,
	`  '   ' '   '  `,
	`=  '   *   '  =`,
	`  '   ' '   '  `,
	` "   "   "   " `,
	`    -     -    `,
	`'  -   '   -  '`,
	`  -   ' '   -  `,
	` -   "   "   - `,
	`=  '   =   '  =`,
}

// Board is the 15x15 matrix of cells.
type Board struct {
	cells [Dim][Dim]Cell
}

// MakeBoard stamps the standard premium layout onto a fresh empty board.
func MakeBoard() *Board {
	b := &Board{}
	for r, rowDesc := range CrosswordGameLayout {
		for c, ch := range rowDesc {
			b.cells[r][c] = Cell{Row: r, Col: c, Premium: premiumFromDesc(ch)}
		}
	}
	return b
}

func premiumFromDesc(ch rune) PremiumClass {
	switch ch {
	case '=':
		return TripleWord
	case '-':
		return DoubleWord
	case '"':
		return TripleLetter
	case '\'':
		return DoubleLetter
	case '*':
		return Center
	}
	return None
}

// InBounds tests whether the coordinate is on the board.
func (b *Board) InBounds(row, col int) bool {
	return row >= 0 && row < Dim && col >= 0 && col < Dim
}

// Cell returns the cell at the coordinate, or nil if out of bounds.
func (b *Board) Cell(row, col int) *Cell {
	if !b.InBounds(row, col) {
		return nil
	}
	return &b.cells[row][col]
}

// HasTile reports whether the coordinate is on the board and occupied.
func (b *Board) HasTile(row, col int) bool {
	return b.InBounds(row, col) && b.cells[row][col].Tile != nil
}

// PlaceTile puts a tile into a currently empty cell. Overwriting is never
// allowed; conflicting confirmations are the scorer's concern, not ours.
func (b *Board) PlaceTile(row, col int, t tilemapping.Tile) error {
	if !b.InBounds(row, col) {
		return fmt.Errorf("placement out of bounds at (%d,%d)", row, col)
	}
	if b.cells[row][col].Tile != nil {
		return ErrOccupied
	}
	b.cells[row][col].Tile = &t
	return nil
}

// TilesPlayed returns the number of occupied cells.
func (b *Board) TilesPlayed() int {
	n := 0
	for r := 0; r < Dim; r++ {
		for c := 0; c < Dim; c++ {
			if b.cells[r][c].Tile != nil {
				n++
			}
		}
	}
	return n
}

// LetterCounts counts the tiles on the board per unit code, with blanks
// counted under '?'. Used for the derived bag.
func (b *Board) LetterCounts() map[rune]int {
	counts := map[rune]int{}
	for r := 0; r < Dim; r++ {
		for c := 0; c < Dim; c++ {
			t := b.cells[r][c].Tile
			if t == nil {
				continue
			}
			if t.IsBlank {
				counts[tilemapping.BlankToken]++
			} else {
				counts[t.UpperCode()]++
			}
		}
	}
	return counts
}

// Copy returns a deep copy of the board.
func (b *Board) Copy() *Board {
	n := &Board{}
	for r := 0; r < Dim; r++ {
		for c := 0; c < Dim; c++ {
			cell := b.cells[r][c]
			if cell.Tile != nil {
				t := *cell.Tile
				cell.Tile = &t
			}
			n.cells[r][c] = cell
		}
	}
	return n
}

// CoordLabel renders a coordinate the way players read it aloud: row
// letter then 1-based column ("A1" is the top-left cell).
func CoordLabel(row, col int) string {
	return fmt.Sprintf("%c%d", 'A'+rune(row), col+1)
}

// MarshalJSON serializes the board as the 15x15 cell array of the session
// document.
func (b *Board) MarshalJSON() ([]byte, error) {
	rows := make([][]Cell, Dim)
	for r := 0; r < Dim; r++ {
		rows[r] = b.cells[r][:]
	}
	return json.Marshal(rows)
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var rows [][]Cell
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	if len(rows) != Dim {
		return fmt.Errorf("board has %d rows, want %d", len(rows), Dim)
	}
	for r := range rows {
		if len(rows[r]) != Dim {
			return fmt.Errorf("board row %d has %d cells, want %d", r, len(rows[r]), Dim)
		}
		for c := range rows[r] {
			b.cells[r][c] = rows[r][c]
		}
	}
	return nil
}
