package disc

import (
	"math/bits"
)

// Directory block sizes, in bits. The outer blocks store a cumulative rank
// for every 1024 data bits; the inner blocks store a relative rank for
// every 32 bits within an outer block.
const (
	L1Size = 32 * 32
	L2Size = 32
)

// A RankDirectory answers rank and select queries over a packed bit array
// in O(1) amortized time, using a precomputed two-level block summary that
// ships alongside the data as its own packed array.
type RankDirectory struct {
	directory *BitReader
	data      *BitReader

	l1Size      uint32
	l2Size      uint32
	l1Bits      uint32
	l2Bits      uint32
	sectionBits uint32
	numBits     uint32
}

func ceilLog2(x uint32) uint32 {
	if x <= 1 {
		return 0
	}
	return uint32(bits.Len32(x - 1))
}

// NewRankDirectory wraps the directory artifact and the data it summarizes.
// numBits is the number of meaningful bits in data.
func NewRankDirectory(directoryData, data string, numBits, l1Size, l2Size uint32) *RankDirectory {
	l1Bits := ceilLog2(numBits)
	l2Bits := ceilLog2(l1Size)
	return &RankDirectory{
		directory:   NewBitReader(directoryData),
		data:        NewBitReader(data),
		l1Size:      l1Size,
		l2Size:      l2Size,
		l1Bits:      l1Bits,
		l2Bits:      l2Bits,
		sectionBits: (l1Size/l2Size-1)*l2Bits + l1Bits,
		numBits:     numBits,
	}
}

// Rank returns the number of bits equal to `which` (0 or 1) up to and
// including position x.
func (rd *RankDirectory) Rank(which, x uint32) uint32 {
	if which == 0 {
		return x - rd.Rank(1, x) + 1
	}

	rank := uint32(0)
	o := x
	var sectionPos uint32

	if o >= rd.l1Size {
		sectionPos = (o / rd.l1Size) * rd.sectionBits
		rank = rd.directory.Get(sectionPos-rd.l1Bits, rd.l1Bits)
		o = o % rd.l1Size
	}

	if o >= rd.l2Size {
		sectionPos += (o / rd.l2Size) * rd.l2Bits
		rank += rd.directory.Get(sectionPos-rd.l2Bits, rd.l2Bits)
	}

	rank += rd.data.Count(x-x%rd.l2Size, x%rd.l2Size+1)

	return rank
}

// Select returns the position of the y-th bit equal to `which`, or -1 if
// there is none. Binary search over Rank.
func (rd *RankDirectory) Select(which, y uint32) int {
	high := int(rd.numBits)
	low := -1
	val := -1

	for high-low > 1 {
		probe := (high + low) / 2
		r := rd.Rank(which, uint32(probe))

		if r == y {
			// We have to continue searching after we have found it,
			// because we want the _first_ occurrence.
			val = probe
			high = probe
		} else if r < y {
			low = probe
		} else {
			high = probe
		}
	}

	return val
}
