package tilemapping

import (
	"strings"
	"unicode"
)

// A Span is the half-open rune range [Start, End) that one token occupies
// in the raw input string. It lets a caller toggle the blank-ness of a
// single token by case-flipping exactly that substring.
type Span struct {
	Start int
	End   int
}

// The geminated L can be typed three ways; the mid-dot glyph ĿL comes from
// some keyboard layouts as a single precomposed rune plus L.
var geminatedTrigraphs = map[string]bool{
	"L·L": true,
	"L.L": true,
	"L-L": true,
}

var digraphCodes = map[string]rune{
	"QU": CodeQU,
	"NY": CodeNY,
	"ĿL": CodeLL,
}

// Tokenize turns raw player-typed text into tiles. At each position it
// greedily matches a three-character geminated-L unit, then a two-character
// digraph, else a single character. The case of the matched unit's first
// character decides blank-ness. No dictionary normalization happens here;
// that belongs to the disc package's lookup path.
func Tokenize(raw string) []Tile {
	runes := []rune(raw)
	tiles := []Tile{}
	for _, sp := range UnitBoundaries(raw) {
		unit := runes[sp.Start:sp.End]
		tiles = append(tiles, tokenToTile(unit))
	}
	return tiles
}

// UnitBoundaries returns the rune spans of each token in raw, aligned 1:1
// with the tiles Tokenize returns.
func UnitBoundaries(raw string) []Span {
	runes := []rune(raw)
	spans := []Span{}
	i := 0
	for i < len(runes) {
		if i+3 <= len(runes) &&
			geminatedTrigraphs[strings.ToUpper(string(runes[i:i+3]))] {
			spans = append(spans, Span{i, i + 3})
			i += 3
			continue
		}
		if i+2 <= len(runes) {
			if _, ok := digraphCodes[strings.ToUpper(string(runes[i:i+2]))]; ok {
				spans = append(spans, Span{i, i + 2})
				i += 2
				continue
			}
		}
		spans = append(spans, Span{i, i + 1})
		i++
	}
	return spans
}

func tokenToTile(unit []rune) Tile {
	blank := unicode.IsLower(unit[0])
	if len(unit) == 1 {
		// Single character: the code is the character itself, with its
		// case preserved.
		return MakeTile(unit[0])
	}
	var code rune
	if len(unit) == 3 {
		code = CodeLL
	} else {
		code = digraphCodes[strings.ToUpper(string(unit))]
	}
	if blank {
		code = unicode.ToLower(code)
	}
	return MakeTile(code)
}
