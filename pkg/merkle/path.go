package merkle

import "fmt"

// MerklePath is the authentication path of the leaf at Position.
//
// AuthPath[i] is the sibling at level i. Bit i of Position tells which side
// it is on: 0 means the running node is the left child.
type MerklePath struct {
	Position uint64
	AuthPath []Node
}

// Root recomputes the root from leaf using DefaultHasher.
func (p *MerklePath) Root(leaf Node) Node {
	return p.RootWith(DefaultHasher, leaf)
}

// RootWith recomputes the root from leaf using h.
func (p *MerklePath) RootWith(h Hasher, leaf Node) Node {
	cur := leaf
	for i, sibling := range p.AuthPath {
		if (p.Position>>uint(i))&1 == 0 {
			cur = h.Combine(uint8(i), cur, sibling)
		} else {
			cur = h.Combine(uint8(i), sibling, cur)
		}
	}
	return cur
}

// Verify checks that leaf and the path hash to root.
func (p *MerklePath) Verify(h Hasher, leaf, root Node) error {
	if len(p.AuthPath) != Depth {
		return fmt.Errorf("path has %d levels, want %d", len(p.AuthPath), Depth)
	}
	if got := p.RootWith(h, leaf); got != root {
		return fmt.Errorf("path root %s does not match %s", got.Hex(), root.Hex())
	}
	return nil
}
