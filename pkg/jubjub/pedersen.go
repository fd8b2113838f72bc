package jubjub

import "math/big"

// ChunksPerSegment is c, the number of 3-bit chunks hashed against one
// generator.
const ChunksPerSegment = 63

// Bits expands bytes to bits, least significant bit of each byte first.
func Bits(b []byte) []bool {
	out := make([]bool, 0, 8*len(b))
	for _, x := range b {
		for i := 0; i < 8; i++ {
			out = append(out, x>>i&1 == 1)
		}
	}
	return out
}

// PedersenHash hashes a bit string to a point. The input is zero padded to a
// multiple of three bits and split into segments of 63 chunks; segment i is
// scaled onto the i-th Pedersen generator.
func PedersenHash(bits []bool) Point {
	gens := generators().pedersen
	acc := Identity()
	for seg := 0; len(bits) > 0; seg++ {
		if seg >= len(gens) {
			panic("jubjub: pedersen hash input too long")
		}
		n := min(len(bits), 3*ChunksPerSegment)
		acc = acc.Add(gens[seg].MulInt(segmentScalar(bits[:n])))
		bits = bits[n:]
	}
	return acc
}

// segmentScalar returns sum_j enc(m_j) * 2^(4j) mod r_J with
// enc(s0, s1, s2) = (1 - 2 s2) (1 + s0 + 2 s1).
func segmentScalar(bits []bool) *big.Int {
	at := func(i int) int64 {
		if i < len(bits) && bits[i] {
			return 1
		}
		return 0
	}
	sum := new(big.Int)
	shift := uint(0)
	for j := 0; j < len(bits); j += 3 {
		enc := 1 + at(j) + 2*at(j+1)
		if at(j+2) == 1 {
			enc = -enc
		}
		sum.Add(sum, new(big.Int).Lsh(big.NewInt(enc), shift))
		shift += 4
	}
	return sum.Mod(sum, &curve.Order)
}

// MerkleHash combines two note commitment tree nodes at level (leaves are
// level 0) and returns the u coordinate of the result.
func MerkleHash(level uint8, left, right [32]byte) [32]byte {
	bits := make([]bool, 0, 6+2*255)
	for i := 0; i < 6; i++ {
		bits = append(bits, level>>i&1 == 1)
	}
	bits = append(bits, Bits(left[:])[:255]...)
	bits = append(bits, Bits(right[:])[:255]...)
	return PedersenHash(bits).U()
}

// NoteCommitment returns the windowed Pedersen commitment to the note
// contents I2LEOSP_64(value) || repr(g_d) || repr(pk_d) under trapdoor rcm.
func NoteCommitment(gd, pkd [32]byte, value uint64, rcm Scalar) Point {
	contents := make([]byte, 0, 8+32+32)
	for i := 0; i < 8; i++ {
		contents = append(contents, byte(value>>(8*i)))
	}
	contents = append(contents, gd[:]...)
	contents = append(contents, pkd[:]...)

	bits := make([]bool, 0, 6+8*len(contents))
	for i := 0; i < 6; i++ {
		bits = append(bits, true)
	}
	bits = append(bits, Bits(contents)...)
	return PedersenHash(bits).Add(NoteCommitmentRandomnessBase().Mul(rcm))
}

// ValueCommitment returns [value]V + [rcv]R.
func ValueCommitment(value uint64, rcv Scalar) Point {
	v := ValueCommitmentValueBase().Mul(ScalarFromUint64(value))
	return v.Add(ValueCommitmentRandomnessBase().Mul(rcv))
}
