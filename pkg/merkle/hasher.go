// Package merkle implements the append-only note commitment tree and the
// incremental witnesses that keep authentication paths for individual leaves
// up to date as the tree grows.
//
// The tree is stored as a frontier (left, right and one optional node per
// level above them) so appending and computing the root are O(Depth) no
// matter how many leaves the tree holds. The byte layout of both the tree and
// the witness matches the legacy Zcash/PIVX encoding, so hex blobs produced by
// other wallets can be read directly.
package merkle

import (
	"encoding/hex"
	"sync"

	"github.com/suffix-labs/pivx-shield/pkg/jubjub"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// Depth is the depth of the note commitment tree.
const Depth = 32

// Node is a tree leaf or an inner node.
type Node [32]byte

// Hex returns the lowercase hex encoding of n.
func (n Node) Hex() string {
	return hex.EncodeToString(n[:])
}

// NodeFromHex decodes a 32-byte hex node.
func NodeFromHex(s string) (Node, error) {
	var n Node
	b, err := hex.DecodeString(s)
	if err != nil {
		return n, shield.Decode(shield.ErrInvalidHex, "node hex", err)
	}
	if len(b) != len(n) {
		return n, shield.Decode(shield.ErrInvalidHex, "node must be 32 bytes", nil)
	}
	copy(n[:], b)
	return n, nil
}

// Hasher combines two children at a level into their parent.
type Hasher interface {
	// Combine returns the parent of left and right, where level is the level
	// of the children (leaves are level 0).
	Combine(level uint8, left, right Node) Node

	// EmptyLeaf is the value of an unused leaf slot.
	EmptyLeaf() Node
}

// PedersenHasher is the Sapling Merkle hash: the Pedersen hash over the
// 6-bit level followed by the low 255 bits of left and right, keeping the u
// coordinate of the result.
type PedersenHasher struct{}

// Combine implements Hasher.
func (PedersenHasher) Combine(level uint8, left, right Node) Node {
	return jubjub.MerkleHash(level, left, right)
}

// EmptyLeaf implements Hasher. The empty leaf is the field element 1.
func (PedersenHasher) EmptyLeaf() Node {
	var n Node
	n[0] = 1
	return n
}

// DefaultHasher is used by trees and witnesses created without an explicit
// hasher.
var DefaultHasher Hasher = PedersenHasher{}

var (
	emptyRootsMu    sync.Mutex
	emptyRootsCache = map[Hasher][]Node{}
)

// EmptyRoots returns the roots of empty subtrees for every level 0..Depth:
// er[0] is the empty leaf and er[l] = Combine(l-1, er[l-1], er[l-1]).
func EmptyRoots(h Hasher) []Node {
	emptyRootsMu.Lock()
	defer emptyRootsMu.Unlock()

	if roots, ok := emptyRootsCache[h]; ok {
		return roots
	}

	roots := make([]Node, Depth+1)
	roots[0] = h.EmptyLeaf()
	for l := 1; l <= Depth; l++ {
		roots[l] = h.Combine(uint8(l-1), roots[l-1], roots[l-1])
	}
	emptyRootsCache[h] = roots
	return roots
}

// EmptyRoot returns the root of an empty tree of the given depth.
func EmptyRoot(h Hasher, depth int) Node {
	return EmptyRoots(h)[depth]
}
