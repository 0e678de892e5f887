package tilemapping

import (
	"strings"
	"unicode"
)

// RackTileLimit is the maximum number of tiles on the arbiter's rack.
const RackTileLimit = 7

// Rack is the shared arbiter rack: an ordered multiset of up to 7 unit
// codes, with '?' denoting an unassigned blank. Unlike a per-player rack,
// ordering matters here (the arbiter types it and the display mirrors the
// typed order), so we keep a slice rather than a count array.
type Rack struct {
	letters []rune
}

// NewRack creates an empty rack.
func NewRack() *Rack {
	return &Rack{letters: []rune{}}
}

// RackFromString tokenizes a typed rack string into unit codes. Blanks are
// typed as '?'.
func RackFromString(rack string) *Rack {
	r := NewRack()
	for _, t := range Tokenize(rack) {
		if t.Code == BlankToken {
			r.letters = append(r.letters, BlankToken)
			continue
		}
		r.letters = append(r.letters, unicode.ToUpper(t.Code))
	}
	return r
}

// RackFromLetters builds a rack directly from unit codes.
func RackFromLetters(letters []rune) *Rack {
	r := NewRack()
	r.Set(letters)
	return r
}

// String returns a user-visible version of this rack.
func (r *Rack) String() string {
	var sb strings.Builder
	for _, code := range r.letters {
		sb.WriteString(MakeTile(code).Display)
	}
	return sb.String()
}

// TilesOn returns a copy of the rack's unit codes in order.
func (r *Rack) TilesOn() []rune {
	out := make([]rune, len(r.letters))
	copy(out, r.letters)
	return out
}

// NumTiles returns the current number of tiles on this rack.
func (r *Rack) NumTiles() int {
	return len(r.letters)
}

func (r *Rack) Empty() bool {
	return len(r.letters) == 0
}

// Set replaces the rack contents.
func (r *Rack) Set(letters []rune) {
	r.letters = make([]rune, len(letters))
	copy(r.letters, letters)
}

// Has reports whether the rack holds at least one of the given code.
func (r *Rack) Has(code rune) bool {
	for _, l := range r.letters {
		if l == code {
			return true
		}
	}
	return false
}

// Take removes the first occurrence of the given code. It reports whether
// a tile was removed.
func (r *Rack) Take(code rune) bool {
	for i, l := range r.letters {
		if l == code {
			r.letters = append(r.letters[:i], r.letters[i+1:]...)
			return true
		}
	}
	return false
}

// TakeOrBlank removes the given code, falling back to consuming a '?' slot
// if the exact letter is absent. It reports whether a blank was used and
// whether anything was removed at all.
func (r *Rack) TakeOrBlank(code rune) (usedBlank, ok bool) {
	if r.Take(code) {
		return false, true
	}
	if r.Take(BlankToken) {
		return true, true
	}
	return false, false
}

// Add appends a unit code to the rack.
func (r *Rack) Add(code rune) {
	r.letters = append(r.letters, code)
}

// Copy returns a deep copy of this rack.
func (r *Rack) Copy() *Rack {
	n := NewRack()
	n.Set(r.letters)
	return n
}

// ScoreOn returns the total face value of the tiles on this rack.
func (r *Rack) ScoreOn(ld *LetterDistribution) int {
	score := 0
	for _, l := range r.letters {
		score += ld.Score(l)
	}
	return score
}
