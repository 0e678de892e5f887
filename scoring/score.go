// Package scoring computes the validity and point value of a proposed
// placement against the current board, rack, and dictionary.
package scoring

import (
	"fmt"
	"strings"

	"github.com/escrabble-cat/duplicat/board"
	"github.com/escrabble-cat/duplicat/disc"
	"github.com/escrabble-cat/duplicat/tilemapping"
)

// BingoBonus is the fixed bonus for playing all 7 rack tiles in one move.
const BingoBonus = 50

// Result is the outcome of scoring one candidate placement. An invalid
// move is a value, not an error: it carries the single human-readable
// reason of the first failing check.
type Result struct {
	Points        int    `json:"points"`
	Valid         bool   `json:"valid"`
	Reason        string `json:"reason,omitempty"`
	TilesFromRack int    `json:"tilesFromRack"`
	Word          string `json:"word,omitempty"`
}

func invalid(reason string) Result {
	return Result{Valid: false, Reason: reason}
}

type coord struct{ row, col int }

// Score evaluates a proposed placement of tiles starting at the anchor
// cell and running in the given direction. Candidate scoring never
// consumes the real rack: concurrent candidates are all judged against the
// rack as it stood before any of them is committed.
func Score(b *board.Board, tiles []tilemapping.Tile, rack *tilemapping.Rack,
	anchorRow, anchorCol int, dir board.Direction, dict *disc.Dict) Result {

	if len(tiles) == 0 {
		return invalid("no tiles in move")
	}

	dr, dc := dir.Delta()
	overlay := make(map[coord]tilemapping.Tile, len(tiles))
	for i, t := range tiles {
		overlay[coord{anchorRow + i*dr, anchorCol + i*dc}] = t
	}

	// The complete primary word can extend past the typed fragment in both
	// directions; it is always checked as reconstructed, never as typed.
	mainWord, mainUnits := fullWord(b, overlay, anchorRow, anchorCol, dr, dc)
	if mainUnits > 1 && !dict.Lookup(mainWord) {
		return invalid(fmt.Sprintf("invalid word: %s", mainWord))
	}

	rackAvail := rack.Copy()
	mainScore := 0
	mainMultiplier := 1
	crossTotal := 0
	tilesFromRack := 0

	crossDr, crossDc := dc, dr

	for i, tile := range tiles {
		r := anchorRow + i*dr
		c := anchorCol + i*dc
		if !b.InBounds(r, c) {
			return invalid(fmt.Sprintf("placement out of bounds at (%d,%d)", r, c))
		}
		cell := b.Cell(r, c)

		if cell.Tile != nil {
			// Confirming an existing tile: codes must match exactly, and
			// existing tiles never trigger premiums.
			if cell.Tile.UpperCode() != tile.UpperCode() {
				return invalid(fmt.Sprintf("conflict at %s: board has '%s' but move has '%s'",
					board.CoordLabel(r, c), cell.Tile.Display, tile.Display))
			}
			mainScore += cell.Tile.Value
			continue
		}

		if _, ok := rackAvail.TakeOrBlank(tile.UpperCode()); !ok {
			if tile.IsBlank {
				return invalid(fmt.Sprintf("no blank (?) available for '%s'", tile.Display))
			}
			return invalid(fmt.Sprintf("missing letter '%s'", tile.Display))
		}
		tilesFromRack++

		letterVal := tile.Value * cell.Premium.LetterMultiplier()
		mainScore += letterVal
		wordMult := cell.Premium.WordMultiplier()
		mainMultiplier *= wordMult

		// A freshly placed tile can form a word in the perpendicular
		// direction with tiles already on the board.
		hasPrev := b.HasTile(r-crossDr, c-crossDc)
		hasNext := b.HasTile(r+crossDr, c+crossDc)
		if !hasPrev && !hasNext {
			continue
		}

		crossWord, crossUnits := fullWord(b, overlay, r, c, crossDr, crossDc)
		if crossUnits > 1 && !dict.Lookup(crossWord) {
			return invalid(fmt.Sprintf("invalid word: %s", crossWord))
		}

		// Cross word score: the new tile's premium-adjusted value plus the
		// face values of its neighbors, all times this cell's word premium.
		crossScore := letterVal
		for rr, cc := r-crossDr, c-crossDc; b.HasTile(rr, cc); rr, cc = rr-crossDr, cc-crossDc {
			crossScore += b.Cell(rr, cc).Tile.Value
		}
		for rr, cc := r+crossDr, c+crossDc; b.HasTile(rr, cc); rr, cc = rr+crossDr, cc+crossDc {
			crossScore += b.Cell(rr, cc).Tile.Value
		}
		crossTotal += crossScore * wordMult
	}

	total := mainScore*mainMultiplier + crossTotal
	if tilesFromRack == tilemapping.RackTileLimit {
		total += BingoBonus
	}

	return Result{
		Points:        total,
		Valid:         true,
		TilesFromRack: tilesFromRack,
		Word:          mainWord,
	}
}

// fullWord reconstructs the complete word through (row, col) in the
// direction (dr, dc): it scans backward over occupied cells (board tiles
// or proposal tiles) to the true start, then forward collecting display
// characters until an empty cell. Returns the word and its length in
// units.
func fullWord(b *board.Board, overlay map[coord]tilemapping.Tile,
	row, col, dr, dc int) (string, int) {

	r, c := row, col
	for {
		pr, pc := r-dr, c-dc
		if !b.InBounds(pr, pc) {
			break
		}
		_, isNew := overlay[coord{pr, pc}]
		if !b.HasTile(pr, pc) && !isNew {
			break
		}
		r, c = pr, pc
	}

	var sb strings.Builder
	units := 0
	for b.InBounds(r, c) {
		if b.HasTile(r, c) {
			sb.WriteString(b.Cell(r, c).Tile.Display)
		} else if t, ok := overlay[coord{r, c}]; ok {
			sb.WriteString(t.Display)
		} else {
			break
		}
		units++
		r += dr
		c += dc
	}
	return sb.String(), units
}
