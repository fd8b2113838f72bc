package merkle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

func TestWitnessPathMatchesTreeRoot(t *testing.T) {
	const total = 45

	for _, h := range []Hasher{sha256Hasher{}, PedersenHasher{}} {
		tree := NewCommitmentTreeWithHasher(h)
		var witnesses []*IncrementalWitness

		for i := uint64(0); i < total; i++ {
			node := leaf(i)
			for _, w := range witnesses {
				require.NoError(t, w.Append(node))
			}
			require.NoError(t, tree.Append(node))
			witnesses = append(witnesses, WitnessFromTree(tree))

			for j, w := range witnesses {
				assert.Equal(t, uint64(j), w.Position())
				assert.Equal(t, tree.Size(), w.Size(), "witness %d after %d leaves", j, i+1)
				assert.Equal(t, tree.Root(), w.Root(), "witness %d after %d leaves", j, i+1)

				l, err := w.Leaf()
				require.NoError(t, err)
				assert.Equal(t, leaf(uint64(j)), l)

				path, err := w.Path()
				require.NoError(t, err)
				require.Len(t, path.AuthPath, Depth)
				assert.Equal(t, uint64(j), path.Position)
				assert.NoError(t, path.Verify(h, l, tree.Root()))
			}
		}
	}
}

func TestWitnessFromFixtureTree(t *testing.T) {
	tree, err := TreeFromHex(fixtureTreeHex)
	require.NoError(t, err)

	require.NoError(t, tree.Append(leaf(0)))
	w := WitnessFromTree(tree)
	assert.Equal(t, uint64(8), w.Position())

	for i := uint64(1); i < 20; i++ {
		require.NoError(t, tree.Append(leaf(i)))
		require.NoError(t, w.Append(leaf(i)))
	}

	path, err := w.Path()
	require.NoError(t, err)
	assert.Equal(t, tree.Root(), path.Root(leaf(0)))
	assert.Equal(t, tree.Root(), w.Root())
}

func TestWitnessDoesNotTrackLaterTreeAppends(t *testing.T) {
	tree := NewCommitmentTree()
	require.NoError(t, tree.Append(leaf(0)))
	w := WitnessFromTree(tree)
	before := w.Root()

	require.NoError(t, tree.Append(leaf(1)))
	assert.Equal(t, before, w.Root())
	assert.NotEqual(t, tree.Root(), w.Root())
}

func TestWitnessSerializationRoundTrip(t *testing.T) {
	tree := NewCommitmentTree()
	require.NoError(t, tree.Append(leaf(0)))
	require.NoError(t, tree.Append(leaf(1)))
	require.NoError(t, tree.Append(leaf(2)))
	w := WitnessFromTree(tree)

	for i := uint64(3); i < 30; i++ {
		decoded, err := WitnessFromHex(w.Hex())
		require.NoError(t, err)
		assert.True(t, w.Equal(decoded))
		assert.Equal(t, w.Root(), decoded.Root())
		assert.Equal(t, w.Hex(), decoded.Hex())

		// Keep extending the decoded copy to make sure the recomputed
		// cursor depth continues the same way.
		require.NoError(t, w.Append(leaf(i)))
		require.NoError(t, decoded.Append(leaf(i)))
		assert.Equal(t, w.Root(), decoded.Root())
	}
}

func TestWitnessTextMarshaling(t *testing.T) {
	tree := NewCommitmentTree()
	require.NoError(t, tree.Append(leaf(0)))
	w := WitnessFromTree(tree)
	require.NoError(t, w.Append(leaf(1)))

	text, err := w.MarshalText()
	require.NoError(t, err)

	var decoded IncrementalWitness
	require.NoError(t, decoded.UnmarshalText(text))
	assert.True(t, w.Equal(&decoded))
}

func TestEmptyWitness(t *testing.T) {
	w := WitnessFromTree(NewCommitmentTree())
	_, err := w.Path()
	assert.ErrorIs(t, err, shield.ErrEmptyTree)

	_, err = w.Leaf()
	assert.ErrorIs(t, err, shield.ErrEmptyTree)

	_, err = WitnessFromHex(w.Hex())
	assert.Error(t, err)
}

func TestWitnessCloneIsIndependent(t *testing.T) {
	tree := NewCommitmentTree()
	require.NoError(t, tree.Append(leaf(0)))
	w := WitnessFromTree(tree)
	clone := w.Clone()

	require.NoError(t, w.Append(leaf(1)))
	assert.Equal(t, uint64(1), clone.Size())
	assert.Equal(t, uint64(2), w.Size())
}
