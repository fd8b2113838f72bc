// Package crypto implements the hash, signature and transaction-encoding
// primitives shared by the wallet packages.
//
// Two hash families are used:
//   - BLAKE2b with a 16-byte personalization for key derivation, note
//     encryption key agreement and signature hash digests
//   - BLAKE2s with an 8-byte personalization for the group hash, the
//     incoming viewing key and nullifiers
package crypto

import (
	"crypto/sha256"
	"encoding"
	"encoding/binary"
	"hash"

	blake2b "github.com/minio/blake2b-simd"
	"golang.org/x/crypto/blake2s"
)

// blake2bNew creates a new BLAKE2b hash of the given size with the given
// personalization. The personalization is a distinct parameter of the hash
// function, not a key.
func blake2bNew(size uint8, personalization string) hash.Hash {
	h, err := blake2b.New(&blake2b.Config{
		Size:   size,
		Person: []byte(personalization),
	})
	if err != nil {
		// Only reachable with a personalization longer than 16 bytes.
		panic("blake2b: " + err.Error())
	}
	return h
}

// Blake2b256 hashes the concatenation of parts with a personalized
// BLAKE2b-256.
func Blake2b256(personalization string, parts ...[]byte) [32]byte {
	h := blake2bNew(32, personalization)
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Blake2b512 hashes the concatenation of parts with a personalized
// BLAKE2b-512.
func Blake2b512(personalization string, parts ...[]byte) [64]byte {
	h := blake2bNew(64, personalization)
	for _, p := range parts {
		h.Write(p)
	}
	var out [64]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DoubleSHA256 returns SHA256(SHA256(data)).
func DoubleSHA256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// blake2sNew creates a BLAKE2s-256 hash with an 8-byte personalization.
// x/crypto/blake2s has no parameter block, so the personalization is folded
// into the chaining value of a fresh digest through its marshaled state.
func blake2sNew(personalization string) hash.Hash {
	if len(personalization) != 8 {
		panic("blake2s: personalization must be 8 bytes")
	}
	h, err := blake2s.New256(nil)
	if err != nil {
		panic("blake2s: " + err.Error())
	}
	state, err := h.(encoding.BinaryMarshaler).MarshalBinary()
	if err != nil {
		panic("blake2s: " + err.Error())
	}
	// state = "b2s" | h[0..8] as big-endian words | ...
	const h6 = 3 + 6*4
	for i := 0; i < 2; i++ {
		off := h6 + 4*i
		w := binary.BigEndian.Uint32(state[off:])
		w ^= binary.LittleEndian.Uint32([]byte(personalization[4*i : 4*i+4]))
		binary.BigEndian.PutUint32(state[off:], w)
	}
	if err := h.(encoding.BinaryUnmarshaler).UnmarshalBinary(state); err != nil {
		panic("blake2s: " + err.Error())
	}
	return h
}

// Blake2s256 hashes the concatenation of parts with a personalized
// BLAKE2s-256.
func Blake2s256(personalization string, parts ...[]byte) [32]byte {
	h := blake2sNew(personalization)
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
