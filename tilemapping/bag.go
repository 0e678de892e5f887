package tilemapping

import (
	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"
)

// A Bag is the bag o'tiles! It is never persisted: every bag is derived
// fresh from the letter distribution minus the tiles on the board and on
// the rack, then shuffled. There is no ordering to maintain across calls.
type Bag struct {
	tiles []rune
}

// RemainingCounts derives the per-unit remaining counts:
// distribution − on board − on rack, clamped at 0. A negative derived
// count means more of a unit is in play than exists in the set; that is a
// data-integrity bug, so it is logged, but the game keeps going with the
// clamped value.
func RemainingCounts(ld *LetterDistribution, boardCounts map[rune]int, rack *Rack) map[rune]int {
	used := make(map[rune]int, len(boardCounts))
	for code, n := range boardCounts {
		used[code] += n
	}
	if rack != nil {
		for _, code := range rack.TilesOn() {
			used[code]++
		}
	}

	remaining := make(map[rune]int)
	for _, code := range ld.Letters() {
		rem := int(ld.Count(code)) - used[code]
		if rem < 0 {
			log.Error().
				Str("unit", MakeTile(code).Display).
				Int("derived", rem).
				Msg("derived bag count went negative; clamping to 0")
			rem = 0
		}
		remaining[code] = rem
	}
	return remaining
}

// RemainingBag materializes the derived counts into a flat, uniformly
// shuffled bag.
func RemainingBag(ld *LetterDistribution, boardCounts map[rune]int, rack *Rack) *Bag {
	counts := RemainingCounts(ld, boardCounts, rack)
	tiles := make([]rune, 0, ld.NumTotalTiles())
	for _, code := range ld.Letters() {
		for i := 0; i < counts[code]; i++ {
			tiles = append(tiles, code)
		}
	}
	b := &Bag{tiles: tiles}
	b.Shuffle()
	return b
}

// Shuffle shuffles the bag.
func (b *Bag) Shuffle() {
	frand.Shuffle(len(b.tiles), func(i, j int) {
		b.tiles[i], b.tiles[j] = b.tiles[j], b.tiles[i]
	})
}

// DrawAtMost draws at most n tiles from the front of the bag. It can draw
// fewer if there are fewer tiles than n, and even draw no tiles at all :o
func (b *Bag) DrawAtMost(n int) []rune {
	if n > len(b.tiles) {
		n = len(b.tiles)
	}
	drawn := make([]rune, n)
	copy(drawn, b.tiles[:n])
	b.tiles = b.tiles[n:]
	return drawn
}

// TilesRemaining returns the number of tiles left in the bag.
func (b *Bag) TilesRemaining() int {
	return len(b.tiles)
}

// Refill tops the rack up to RackTileLimit by drawing from a freshly
// derived and shuffled bag, and returns the new rack. The input rack is
// not mutated.
func Refill(ld *LetterDistribution, boardCounts map[rune]int, rack *Rack) *Rack {
	newRack := rack.Copy()
	needed := RackTileLimit - newRack.NumTiles()
	if needed <= 0 {
		return newRack
	}
	bag := RemainingBag(ld, boardCounts, rack)
	for _, code := range bag.DrawAtMost(needed) {
		newRack.Add(code)
	}
	return newRack
}
