package merkle

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// IncrementalWitness tracks the authentication path of one leaf.
//
// tree is the frontier at the moment the leaf was appended and never changes.
// Every later leaf is fed to Append: completed subtrees to the right of the
// leaf are pushed to filled in the order the path consumes them, and the
// subtree currently being built is kept in cursor.
type IncrementalWitness struct {
	tree        *CommitmentTree
	filled      []Node
	cursorDepth int
	cursor      *CommitmentTree
}

// WitnessFromTree starts a witness for the most recently appended leaf of t.
// The tree is copied; later appends to t do not affect the witness.
func WitnessFromTree(t *CommitmentTree) *IncrementalWitness {
	return &IncrementalWitness{tree: t.Clone()}
}

// Position returns the index of the witnessed leaf.
func (w *IncrementalWitness) Position() uint64 {
	return w.tree.Size() - 1
}

// Leaf returns the witnessed leaf.
func (w *IncrementalWitness) Leaf() (Node, error) {
	switch {
	case w.tree.right != nil:
		return *w.tree.right, nil
	case w.tree.left != nil:
		return *w.tree.left, nil
	default:
		return Node{}, shield.ErrEmptyTree
	}
}

// Size returns the number of leaves of the tree the witness has caught up to.
func (w *IncrementalWitness) Size() uint64 {
	size := w.tree.Size()
	for _, d := range w.slotDepths(len(w.filled)) {
		size += 1 << d
	}
	if w.cursor != nil {
		size += w.cursor.Size()
	}
	return size
}

// slotDepths returns the heights of the first n subtrees the witness fills,
// in the order it fills them.
func (w *IncrementalWitness) slotDepths(n int) []int {
	depths := make([]int, 0, n)
	if w.tree.left == nil {
		depths = append(depths, 0)
	}
	if w.tree.right == nil {
		depths = append(depths, 0)
	}
	d := 1
	for _, p := range w.tree.parents {
		if p == nil {
			depths = append(depths, d)
		}
		d++
	}
	for len(depths) < n {
		depths = append(depths, d)
		d++
	}
	return depths[:n]
}

// nextDepth returns the height of the next subtree the witness has to fill.
func (w *IncrementalWitness) nextDepth() int {
	skip := len(w.filled)

	if w.tree.left == nil {
		if skip == 0 {
			return 0
		}
		skip--
	}
	if w.tree.right == nil {
		if skip == 0 {
			return 0
		}
		skip--
	}

	d := 1
	for _, p := range w.tree.parents {
		if p == nil {
			if skip == 0 {
				return d
			}
			skip--
		}
		d++
	}
	return d + skip
}

// Append feeds the next leaf of the tree into the witness.
func (w *IncrementalWitness) Append(node Node) error {
	return w.appendInner(node, Depth)
}

func (w *IncrementalWitness) appendInner(node Node, depth int) error {
	if w.cursor != nil {
		if err := w.cursor.appendInner(node, depth); err != nil {
			return err
		}
		if w.cursor.IsComplete(w.cursorDepth) {
			w.filled = append(w.filled, w.cursor.rootInner(w.cursorDepth, emptyFiller{roots: EmptyRoots(w.tree.h())}))
			w.cursor = nil
		}
		return nil
	}

	w.cursorDepth = w.nextDepth()
	if w.cursorDepth >= depth {
		return shield.ErrTreeFull
	}

	if w.cursorDepth == 0 {
		w.filled = append(w.filled, node)
		return nil
	}

	cursor := NewCommitmentTreeWithHasher(w.tree.h())
	if err := cursor.appendInner(node, depth); err != nil {
		return err
	}
	w.cursor = cursor
	return nil
}

// pathFiller hands out filled nodes (and the cursor's partial root) in order,
// then empty subtree roots.
type pathFiller struct {
	queue []Node
	roots []Node
}

func (f *pathFiller) next(level uint8) Node {
	if len(f.queue) > 0 {
		n := f.queue[0]
		f.queue = f.queue[1:]
		return n
	}
	return f.roots[level]
}

func (w *IncrementalWitness) filler() *pathFiller {
	roots := EmptyRoots(w.tree.h())
	queue := make([]Node, len(w.filled), len(w.filled)+1)
	copy(queue, w.filled)
	if w.cursor != nil {
		queue = append(queue, w.cursor.rootInner(w.cursorDepth, emptyFiller{roots: roots}))
	}
	return &pathFiller{queue: queue, roots: roots}
}

// Root returns the root of the tree as of the last appended leaf. This is the
// anchor a spend of the witnessed note is proven against.
func (w *IncrementalWitness) Root() Node {
	return w.tree.rootInner(Depth, w.filler())
}

// Path returns the authentication path of the witnessed leaf.
func (w *IncrementalWitness) Path() (*MerklePath, error) {
	return w.pathInner(Depth)
}

func (w *IncrementalWitness) pathInner(depth int) (*MerklePath, error) {
	if w.tree.left == nil {
		return nil, shield.ErrEmptyTree
	}

	f := w.filler()
	path := &MerklePath{Position: w.Position(), AuthPath: make([]Node, 0, depth)}

	if w.tree.right != nil {
		path.AuthPath = append(path.AuthPath, *w.tree.left)
	} else {
		path.AuthPath = append(path.AuthPath, f.next(0))
	}

	for i := 0; i < depth-1; i++ {
		var p *Node
		if i < len(w.tree.parents) {
			p = w.tree.parents[i]
		}
		if p != nil {
			path.AuthPath = append(path.AuthPath, *p)
		} else {
			path.AuthPath = append(path.AuthPath, f.next(uint8(i+1)))
		}
	}
	return path, nil
}

// Clone returns a deep copy.
func (w *IncrementalWitness) Clone() *IncrementalWitness {
	c := &IncrementalWitness{
		tree:        w.tree.Clone(),
		filled:      append([]Node(nil), w.filled...),
		cursorDepth: w.cursorDepth,
	}
	if w.cursor != nil {
		c.cursor = w.cursor.Clone()
	}
	return c
}

// Equal reports whether both witnesses hold the same state.
func (w *IncrementalWitness) Equal(o *IncrementalWitness) bool {
	if !w.tree.Equal(o.tree) || len(w.filled) != len(o.filled) || w.cursorDepth != o.cursorDepth {
		return false
	}
	for i := range w.filled {
		if w.filled[i] != o.filled[i] {
			return false
		}
	}
	if w.cursor == nil || o.cursor == nil {
		return w.cursor == nil && o.cursor == nil
	}
	return w.cursor.Equal(o.cursor)
}

// Bytes encodes the witness as tree Vector(filled) Optional(cursor).
func (w *IncrementalWitness) Bytes() []byte {
	var buf bytes.Buffer
	w.tree.writeTo(&buf)
	crypto.WriteCompactSize(&buf, uint64(len(w.filled)))
	for i := range w.filled {
		buf.Write(w.filled[i][:])
	}
	if w.cursor == nil {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(1)
		w.cursor.writeTo(&buf)
	}
	return buf.Bytes()
}

// Hex returns the hex encoding of Bytes.
func (w *IncrementalWitness) Hex() string {
	return hex.EncodeToString(w.Bytes())
}

// MarshalText implements encoding.TextMarshaler.
func (w *IncrementalWitness) MarshalText() ([]byte, error) {
	return []byte(w.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using DefaultHasher.
func (w *IncrementalWitness) UnmarshalText(text []byte) error {
	parsed, err := WitnessFromHex(string(text))
	if err != nil {
		return err
	}
	*w = *parsed
	return nil
}

// WitnessFromHex decodes a hex-encoded witness using DefaultHasher.
func WitnessFromHex(s string) (*IncrementalWitness, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, shield.Decode(shield.ErrInvalidHex, "witness hex", err)
	}
	return WitnessFromBytes(raw, DefaultHasher)
}

// WitnessFromBytes decodes a witness and rejects trailing bytes.
func WitnessFromBytes(raw []byte, h Hasher) (*IncrementalWitness, error) {
	r := bytes.NewReader(raw)
	w, err := ReadIncrementalWitness(r, h)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, shield.Decode(shield.ErrTrailingBytes, fmt.Sprintf("%d bytes after witness", r.Len()), nil)
	}
	return w, nil
}

// ReadIncrementalWitness reads one encoded witness from r.
func ReadIncrementalWitness(r io.Reader, h Hasher) (*IncrementalWitness, error) {
	w, err := readWitness(r, h)
	if err != nil {
		return nil, shield.Decode(shield.ErrMalformedWitness, "reading incremental witness", err)
	}
	return w, nil
}

func readWitness(r io.Reader, h Hasher) (*IncrementalWitness, error) {
	tree, err := readTree(r, h)
	if err != nil {
		return nil, fmt.Errorf("reading tree: %w", err)
	}
	if tree.IsEmpty() {
		return nil, shield.ErrEmptyTree
	}

	n, err := readVectorLen(r, Depth)
	if err != nil {
		return nil, fmt.Errorf("reading filled count: %w", err)
	}
	w := &IncrementalWitness{tree: tree, filled: make([]Node, n)}
	for i := range w.filled {
		if w.filled[i], err = readNode(r); err != nil {
			return nil, fmt.Errorf("reading filled %d: %w", i, err)
		}
	}

	present, err := readOptionalFlag(r)
	if err != nil {
		return nil, fmt.Errorf("reading cursor flag: %w", err)
	}
	if present {
		if w.cursor, err = readTree(r, h); err != nil {
			return nil, fmt.Errorf("reading cursor: %w", err)
		}
	}

	w.cursorDepth = w.nextDepth()
	return w, nil
}
