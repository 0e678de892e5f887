package disc

import (
	"math/bits"
)

// The dictionary artifacts encode their bit arrays in a base64-style
// alphabet, 6 usable bits per character. This was chosen by the artifact
// producer so the packed arrays survive JSON transport unescaped; we keep
// the format as-is and address bits straight out of the string.
const charWidth = 6

const artifactAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

var charValue [128]uint32

func init() {
	for i, ch := range artifactAlphabet {
		charValue[ch] = uint32(i)
	}
}

// maskTop masks off the bits above a given in-character offset.
var maskTop = [charWidth + 1]uint32{
	0x3f, 0x1f, 0x0f, 0x07, 0x03, 0x01, 0x00,
}

// A BitReader reads arbitrary bit-width integers at arbitrary bit offsets
// from a packed 6-bit-per-character buffer. It is a stateless value over an
// immutable string.
type BitReader struct {
	data    string
	numBits uint32
}

func NewBitReader(data string) *BitReader {
	return &BitReader{data: data, numBits: uint32(len(data)) * charWidth}
}

func (b *BitReader) chr(i uint32) uint32 {
	return charValue[b.data[i]]
}

// Get reads the n-bit big-endian integer starting at bit offset p.
func (b *BitReader) Get(p, n uint32) uint32 {
	// Fast case: the bits fit within a single character.
	if p%charWidth+n <= charWidth {
		return (b.chr(p/charWidth) & maskTop[p%charWidth]) >>
			(charWidth - p%charWidth - n)
	}

	// Slow case: spans characters.
	result := b.chr(p/charWidth) & maskTop[p%charWidth]
	l := charWidth - p%charWidth
	p += l
	n -= l
	for n >= charWidth {
		result = (result << charWidth) | b.chr(p/charWidth)
		p += charWidth
		n -= charWidth
	}
	if n > 0 {
		result = (result << n) | (b.chr(p/charWidth) >> (charWidth - n))
	}
	return result
}

// Count returns the number of set bits in the n bits starting at offset p.
func (b *BitReader) Count(p, n uint32) uint32 {
	count := uint32(0)
	for n >= 8 {
		count += uint32(bits.OnesCount32(b.Get(p, 8)))
		p += 8
		n -= 8
	}
	if n > 0 {
		count += uint32(bits.OnesCount32(b.Get(p, n)))
	}
	return count
}
