package board

import (
	"encoding/json"
	"testing"

	"github.com/matryer/is"

	"github.com/escrabble-cat/duplicat/tilemapping"
)

func TestLayoutPremiums(t *testing.T) {
	b := MakeBoard()
	type premtest struct {
		row, col int
		premium  PremiumClass
	}
	testCases := []premtest{
		{0, 0, TripleWord},
		{0, 7, TripleWord},
		{14, 14, TripleWord},
		{7, 7, Center},
		{1, 1, DoubleWord},
		{13, 13, DoubleWord},
		{1, 5, TripleLetter},
		{0, 3, DoubleLetter},
		{7, 8, None},
	}
	for _, tc := range testCases {
		got := b.Cell(tc.row, tc.col).Premium
		if got != tc.premium {
			t.Errorf("For (%v,%v), expected premium %v, got %v", tc.row, tc.col, tc.premium, got)
		}
	}
}

func TestLayoutIsSymmetric(t *testing.T) {
	b := MakeBoard()
	for r := 0; r < Dim; r++ {
		for c := 0; c < Dim; c++ {
			p := b.Cell(r, c).Premium
			if q := b.Cell(Dim-1-r, Dim-1-c).Premium; q != p {
				t.Errorf("Premium at (%v,%v)=%v not mirrored at (%v,%v)=%v",
					r, c, p, Dim-1-r, Dim-1-c, q)
			}
		}
	}
}

func TestCenterDoublesWord(t *testing.T) {
	is := is.New(t)
	b := MakeBoard()
	is.Equal(b.Cell(7, 7).Premium.WordMultiplier(), 2)
	is.Equal(b.Cell(7, 7).Premium.LetterMultiplier(), 1)
}

func TestPlaceTile(t *testing.T) {
	is := is.New(t)
	b := MakeBoard()
	err := b.PlaceTile(7, 7, tilemapping.MakeTile('C'))
	is.NoErr(err)
	is.True(b.HasTile(7, 7))
	is.Equal(b.TilesPlayed(), 1)

	// Occupied cells are write-once.
	err = b.PlaceTile(7, 7, tilemapping.MakeTile('D'))
	is.Equal(err, ErrOccupied)
	is.Equal(b.Cell(7, 7).Tile.Code, 'C')
}

func TestPlaceTileOutOfBounds(t *testing.T) {
	is := is.New(t)
	b := MakeBoard()
	is.True(b.PlaceTile(15, 0, tilemapping.MakeTile('A')) != nil)
	is.True(b.PlaceTile(0, -1, tilemapping.MakeTile('A')) != nil)
}

func TestLetterCounts(t *testing.T) {
	is := is.New(t)
	b := MakeBoard()
	is.NoErr(b.PlaceTile(7, 7, tilemapping.MakeTile('C')))
	is.NoErr(b.PlaceTile(7, 8, tilemapping.MakeTile('A')))
	is.NoErr(b.PlaceTile(7, 9, tilemapping.MakeTile('s')))

	counts := b.LetterCounts()
	is.Equal(counts['C'], 1)
	is.Equal(counts['A'], 1)
	// The blank S counts as a blank, not as an S.
	is.Equal(counts['S'], 0)
	is.Equal(counts[tilemapping.BlankToken], 1)
}

func TestCopyIsDeep(t *testing.T) {
	is := is.New(t)
	b := MakeBoard()
	is.NoErr(b.PlaceTile(7, 7, tilemapping.MakeTile('C')))

	c := b.Copy()
	is.NoErr(c.PlaceTile(7, 8, tilemapping.MakeTile('A')))
	is.Equal(b.TilesPlayed(), 1)
	is.Equal(c.TilesPlayed(), 2)
}

func TestCoordLabel(t *testing.T) {
	type coordtest struct {
		row, col int
		label    string
	}
	testCases := []coordtest{
		{0, 0, "A1"},
		{7, 7, "H8"},
		{14, 14, "O15"},
	}
	for _, tc := range testCases {
		if got := CoordLabel(tc.row, tc.col); got != tc.label {
			t.Errorf("For (%v,%v), expected %v, got %v", tc.row, tc.col, tc.label, got)
		}
	}
}

func TestBoardJSONRoundTrip(t *testing.T) {
	is := is.New(t)
	b := MakeBoard()
	is.NoErr(b.PlaceTile(7, 7, tilemapping.MakeTile(tilemapping.CodeQU)))
	is.NoErr(b.PlaceTile(7, 8, tilemapping.MakeTile('e')))

	raw, err := json.Marshal(b)
	is.NoErr(err)

	back := &Board{}
	is.NoErr(json.Unmarshal(raw, back))
	is.Equal(back.Cell(7, 7).Tile.Display, "QU")
	is.True(back.Cell(7, 8).Tile.IsBlank)
	is.Equal(back.Cell(0, 0).Premium, TripleWord)
}
