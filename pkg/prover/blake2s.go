package prover

import (
	"encoding/binary"

	"github.com/consensys/gnark/frontend"
)

// word is a 32-bit value as bits, least significant first.
type word [32]frontend.Variable

var blake2sIV = [8]uint32{
	0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
	0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
}

var blake2sSigma = [10][16]uint8{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	{14, 10, 4, 8, 9, 15, 13, 6, 1, 12, 0, 2, 11, 7, 5, 3},
	{11, 8, 12, 0, 5, 2, 15, 13, 10, 14, 3, 6, 7, 1, 9, 4},
	{7, 9, 3, 1, 13, 12, 11, 14, 2, 6, 5, 10, 4, 0, 15, 8},
	{9, 0, 5, 7, 2, 4, 10, 15, 14, 1, 11, 12, 6, 8, 3, 13},
	{2, 12, 6, 10, 0, 11, 8, 3, 4, 13, 7, 5, 15, 14, 1, 9},
	{12, 5, 1, 15, 14, 13, 4, 10, 0, 7, 6, 3, 9, 2, 8, 11},
	{13, 11, 7, 14, 12, 1, 3, 9, 5, 0, 15, 4, 8, 6, 2, 10},
	{6, 15, 14, 9, 11, 3, 0, 8, 12, 2, 13, 7, 1, 4, 10, 5},
	{10, 2, 8, 4, 7, 6, 1, 5, 15, 11, 9, 14, 3, 12, 13, 0},
}

func constWord(x uint32) word {
	var w word
	for i := range w {
		w[i] = (x >> i) & 1
	}
	return w
}

// blake2s returns the 256-bit personalized BLAKE2s digest of one 64-byte
// block given as 512 bits, least significant bit of each byte first. The
// digest uses the same bit order.
func (g *gadgets) blake2s(personalization string, in []frontend.Variable) []frontend.Variable {
	if len(in) != 512 || len(personalization) != 8 {
		panic("blake2s gadget hashes exactly one block with an 8-byte personalization")
	}

	var h [8]word
	for i := range h {
		h[i] = constWord(blake2sIV[i])
	}
	p := []byte(personalization)
	h[0] = constWord(blake2sIV[0] ^ 0x01010020)
	h[6] = constWord(blake2sIV[6] ^ binary.LittleEndian.Uint32(p[:4]))
	h[7] = constWord(blake2sIV[7] ^ binary.LittleEndian.Uint32(p[4:]))

	var m [16]word
	for i := range m {
		copy(m[i][:], in[32*i:32*i+32])
	}

	var v [16]word
	copy(v[:8], h[:])
	for i := 0; i < 8; i++ {
		v[8+i] = constWord(blake2sIV[i])
	}
	v[12] = constWord(blake2sIV[4] ^ 64)
	v[14] = constWord(^blake2sIV[6])

	for _, s := range blake2sSigma {
		g.mix(&v, 0, 4, 8, 12, m[s[0]], m[s[1]])
		g.mix(&v, 1, 5, 9, 13, m[s[2]], m[s[3]])
		g.mix(&v, 2, 6, 10, 14, m[s[4]], m[s[5]])
		g.mix(&v, 3, 7, 11, 15, m[s[6]], m[s[7]])
		g.mix(&v, 0, 5, 10, 15, m[s[8]], m[s[9]])
		g.mix(&v, 1, 6, 11, 12, m[s[10]], m[s[11]])
		g.mix(&v, 2, 7, 8, 13, m[s[12]], m[s[13]])
		g.mix(&v, 3, 4, 9, 14, m[s[14]], m[s[15]])
	}

	out := make([]frontend.Variable, 0, 256)
	for i := range h {
		w := g.xor(h[i], g.xor(v[i], v[i+8]))
		out = append(out, w[:]...)
	}
	return out
}

// mix is the BLAKE2s G function.
func (g *gadgets) mix(v *[16]word, a, b, c, d int, x, y word) {
	v[a] = g.add(v[a], v[b], x)
	v[d] = rotr(g.xor(v[d], v[a]), 16)
	v[c] = g.add(v[c], v[d])
	v[b] = rotr(g.xor(v[b], v[c]), 12)
	v[a] = g.add(v[a], v[b], y)
	v[d] = rotr(g.xor(v[d], v[a]), 8)
	v[c] = g.add(v[c], v[d])
	v[b] = rotr(g.xor(v[b], v[c]), 7)
}

func (g *gadgets) xor(a, b word) word {
	var r word
	for i := range r {
		r[i] = g.api.Xor(a[i], b[i])
	}
	return r
}

// add returns the sum of at most three words mod 2^32.
func (g *gadgets) add(ws ...word) word {
	sum := frontend.Variable(0)
	for _, w := range ws {
		sum = g.api.Add(sum, g.api.FromBinary(w[:]...))
	}
	var r word
	copy(r[:], g.toBits(sum, 34)[:32])
	return r
}

func rotr(a word, n int) word {
	var r word
	for i := range r {
		r[i] = a[(i+n)%32]
	}
	return r
}
