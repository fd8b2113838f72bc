package merkle

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// CommitmentTree is the frontier of an append-only Merkle tree.
//
// left and right hold the most recent pair of leaves; parents[i] holds the
// completed left subtree of height i+1 still waiting for its right sibling.
type CommitmentTree struct {
	left    *Node
	right   *Node
	parents []*Node
	hasher  Hasher
}

// NewCommitmentTree returns an empty tree using DefaultHasher.
func NewCommitmentTree() *CommitmentTree {
	return NewCommitmentTreeWithHasher(DefaultHasher)
}

// NewCommitmentTreeWithHasher returns an empty tree using h.
func NewCommitmentTreeWithHasher(h Hasher) *CommitmentTree {
	return &CommitmentTree{hasher: h}
}

// Size returns the number of leaves appended so far.
func (t *CommitmentTree) Size() uint64 {
	var size uint64
	if t.left != nil {
		size++
	}
	if t.right != nil {
		size++
	}
	for i, p := range t.parents {
		if p != nil {
			size += 1 << (i + 1)
		}
	}
	return size
}

// IsEmpty reports whether no leaf has been appended.
func (t *CommitmentTree) IsEmpty() bool {
	return t.left == nil && t.right == nil
}

// IsComplete reports whether the tree holds 2^depth leaves.
func (t *CommitmentTree) IsComplete(depth int) bool {
	if t.left == nil || t.right == nil || len(t.parents) != depth-1 {
		return false
	}
	for _, p := range t.parents {
		if p == nil {
			return false
		}
	}
	return true
}

// Append adds a leaf. Returns shield.ErrTreeFull when the tree already holds
// 2^Depth leaves.
func (t *CommitmentTree) Append(node Node) error {
	return t.appendInner(node, Depth)
}

func (t *CommitmentTree) appendInner(node Node, depth int) error {
	if t.IsComplete(depth) {
		return shield.ErrTreeFull
	}

	switch {
	case t.left == nil:
		t.left = &node
	case t.right == nil:
		t.right = &node
	default:
		combined := t.h().Combine(0, *t.left, *t.right)
		t.left = &node
		t.right = nil

		for i := 0; i < depth; i++ {
			if i >= len(t.parents) {
				t.parents = append(t.parents, &combined)
				break
			}
			if p := t.parents[i]; p != nil {
				combined = t.h().Combine(uint8(i+1), *p, combined)
				t.parents[i] = nil
				continue
			}
			c := combined
			t.parents[i] = &c
			break
		}
	}
	return nil
}

// Root returns the root of the tree padded with empty subtrees to Depth.
func (t *CommitmentTree) Root() Node {
	return t.rootInner(Depth, emptyFiller{roots: EmptyRoots(t.h())})
}

func (t *CommitmentTree) rootInner(depth int, f filler) Node {
	left := t.nodeOr(t.left, f)
	right := t.nodeOr(t.right, f)
	root := t.h().Combine(0, left, right)

	for i := 0; i < depth-1; i++ {
		level := uint8(i + 1)
		var p *Node
		if i < len(t.parents) {
			p = t.parents[i]
		}
		if p != nil {
			root = t.h().Combine(level, *p, root)
		} else {
			root = t.h().Combine(level, root, f.next(level))
		}
	}
	return root
}

func (t *CommitmentTree) nodeOr(n *Node, f filler) Node {
	if n != nil {
		return *n
	}
	return f.next(0)
}

// Clone returns a deep copy.
func (t *CommitmentTree) Clone() *CommitmentTree {
	c := &CommitmentTree{
		left:    cloneNode(t.left),
		right:   cloneNode(t.right),
		parents: make([]*Node, len(t.parents)),
		hasher:  t.hasher,
	}
	for i, p := range t.parents {
		c.parents[i] = cloneNode(p)
	}
	return c
}

// Equal reports whether both frontiers hold the same nodes.
func (t *CommitmentTree) Equal(o *CommitmentTree) bool {
	if !nodeEqual(t.left, o.left) || !nodeEqual(t.right, o.right) || len(t.parents) != len(o.parents) {
		return false
	}
	for i := range t.parents {
		if !nodeEqual(t.parents[i], o.parents[i]) {
			return false
		}
	}
	return true
}

// Bytes encodes the tree as Optional(left) Optional(right) Vector(Optional(parent)).
func (t *CommitmentTree) Bytes() []byte {
	var buf bytes.Buffer
	t.writeTo(&buf)
	return buf.Bytes()
}

// Hex returns the hex encoding of Bytes.
func (t *CommitmentTree) Hex() string {
	return hex.EncodeToString(t.Bytes())
}

// MarshalText implements encoding.TextMarshaler.
func (t *CommitmentTree) MarshalText() ([]byte, error) {
	return []byte(t.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using DefaultHasher.
func (t *CommitmentTree) UnmarshalText(text []byte) error {
	parsed, err := TreeFromHex(string(text))
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

func (t *CommitmentTree) writeTo(w *bytes.Buffer) {
	writeOptionalNode(w, t.left)
	writeOptionalNode(w, t.right)
	crypto.WriteCompactSize(w, uint64(len(t.parents)))
	for _, p := range t.parents {
		writeOptionalNode(w, p)
	}
}

// TreeFromHex decodes a hex-encoded tree using DefaultHasher.
func TreeFromHex(s string) (*CommitmentTree, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, shield.Decode(shield.ErrInvalidHex, "tree hex", err)
	}
	return TreeFromBytes(raw, DefaultHasher)
}

// TreeFromBytes decodes a tree and rejects trailing bytes.
func TreeFromBytes(raw []byte, h Hasher) (*CommitmentTree, error) {
	r := bytes.NewReader(raw)
	t, err := ReadCommitmentTree(r, h)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, shield.Decode(shield.ErrTrailingBytes, fmt.Sprintf("%d bytes after tree", r.Len()), nil)
	}
	return t, nil
}

// ReadCommitmentTree reads one encoded tree from r.
func ReadCommitmentTree(r io.Reader, h Hasher) (*CommitmentTree, error) {
	t, err := readTree(r, h)
	if err != nil {
		return nil, shield.Decode(shield.ErrMalformedTree, "reading commitment tree", err)
	}
	return t, nil
}

func readTree(r io.Reader, h Hasher) (*CommitmentTree, error) {
	t := &CommitmentTree{hasher: h}

	var err error
	if t.left, err = readOptionalNode(r); err != nil {
		return nil, fmt.Errorf("reading left: %w", err)
	}
	if t.right, err = readOptionalNode(r); err != nil {
		return nil, fmt.Errorf("reading right: %w", err)
	}

	n, err := readVectorLen(r, Depth-1)
	if err != nil {
		return nil, fmt.Errorf("reading parent count: %w", err)
	}
	t.parents = make([]*Node, n)
	for i := range t.parents {
		if t.parents[i], err = readOptionalNode(r); err != nil {
			return nil, fmt.Errorf("reading parent %d: %w", i, err)
		}
	}

	if t.left == nil && t.right != nil {
		return nil, fmt.Errorf("right leaf present without left")
	}
	return t, nil
}

// filler supplies the nodes standing in for absent subtrees.
type filler interface {
	next(level uint8) Node
}

type emptyFiller struct {
	roots []Node
}

func (f emptyFiller) next(level uint8) Node {
	return f.roots[level]
}

func cloneNode(n *Node) *Node {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}

func nodeEqual(a, b *Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (t *CommitmentTree) h() Hasher {
	if t.hasher == nil {
		return DefaultHasher
	}
	return t.hasher
}
