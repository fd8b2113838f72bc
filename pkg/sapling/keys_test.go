package sapling

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/pivx-shield/pkg/jubjub"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

func testSeed() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func testFullViewingKey(t *testing.T) (SpendingKey, *FullViewingKey) {
	t.Helper()
	sk, err := DeriveSpendingKey(testSeed(), 1, 0)
	require.NoError(t, err)
	fvk, err := sk.FullViewingKey()
	require.NoError(t, err)
	return sk, fvk
}

func TestDeriveSpendingKeyDeterministic(t *testing.T) {
	a, err := DeriveSpendingKey(testSeed(), 1, 0)
	require.NoError(t, err)
	b, err := DeriveSpendingKey(testSeed(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := DeriveSpendingKey(testSeed(), 1, 1)
	require.NoError(t, err)
	assert.NotEqual(t, a, other)

	mainnet, err := DeriveSpendingKey(testSeed(), 119, 0)
	require.NoError(t, err)
	assert.NotEqual(t, a, mainnet)
}

func TestDeriveSpendingKeyFollowsPath(t *testing.T) {
	sk, err := DeriveSpendingKey(testSeed(), 1, 4)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), sk.Depth)
	assert.Equal(t, 4|HardenedKeyStart, sk.ChildIndex)

	m, err := MasterSpendingKey(testSeed())
	require.NoError(t, err)
	step := m
	for _, i := range []uint32{32, 1, 4} {
		parent, err := step.FullViewingKey()
		require.NoError(t, err)
		step, err = step.Child(i)
		require.NoError(t, err)
		fp := parent.Fingerprint()
		assert.Equal(t, fp[:4], step.ParentTag[:])
	}
	assert.Equal(t, sk, step)
}

func TestDeriveSpendingKeyErrors(t *testing.T) {
	_, err := DeriveSpendingKey(testSeed(), 1, HardenedKeyStart)
	var derr *shield.DerivationError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, shield.ErrInvalidAccount, derr.Code)

	_, err = DeriveSpendingKey([]byte{1, 2, 3}, 1, 0)
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, shield.ErrInvalidKey, derr.Code)
}

func TestSpendingKeyRoundTrip(t *testing.T) {
	sk, _ := testFullViewingKey(t)
	raw := sk.Bytes()
	require.Len(t, raw, ExtendedKeySize)

	decoded, err := SpendingKeyFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, sk, decoded)

	bad := append([]byte{}, raw...)
	for i := 41; i < 73; i++ {
		bad[i] = 0xff
	}
	_, err = SpendingKeyFromBytes(bad)
	assert.Error(t, err)
	_, err = SpendingKeyFromBytes(raw[:100])
	assert.Error(t, err)
}

func TestFullViewingKeyRoundTrip(t *testing.T) {
	_, fvk := testFullViewingKey(t)

	raw := fvk.Bytes()
	require.Len(t, raw, FullViewingKeySize)

	decoded, err := FullViewingKeyFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, fvk, decoded)

	_, err = FullViewingKeyFromBytes(raw[:100])
	assert.Error(t, err)

	// ak replaced by the identity.
	bad := append([]byte{}, raw...)
	id := jubjub.Identity().Bytes()
	copy(bad[41:73], id[:])
	_, err = FullViewingKeyFromBytes(bad)
	assert.Error(t, err)
}

func TestAddressesAreDiversified(t *testing.T) {
	_, fvk := testFullViewingKey(t)

	defIndex, def, err := fvk.DefaultAddress()
	require.NoError(t, err)

	index, next, err := fvk.NextAddress(defIndex)
	require.NoError(t, err)
	assert.Greater(t, index.Uint64(), defIndex.Uint64())
	assert.NotEqual(t, def, next)

	again, err := fvk.Address(index)
	require.NoError(t, err)
	assert.Equal(t, next, again)

	// Every index skipped between the two has no valid diversifier.
	for i := defIndex.Uint64() + 1; i < index.Uint64(); i++ {
		_, err := fvk.Address(DiversifierIndexFromUint64(i))
		assert.Error(t, err)
	}

	raw := def.Bytes()
	decoded, err := PaymentAddressFromBytes(raw[:])
	require.NoError(t, err)
	assert.Equal(t, def, decoded)

	id := jubjub.Identity().Bytes()
	copy(raw[11:], id[:])
	_, err = PaymentAddressFromBytes(raw[:])
	assert.Error(t, err)
}

func TestDiversifierIsDeterministic(t *testing.T) {
	_, fvk := testFullViewingKey(t)
	d0, err := fvk.Diversifier(DiversifierIndex{})
	require.NoError(t, err)
	again, err := fvk.Diversifier(DiversifierIndex{})
	require.NoError(t, err)
	assert.Equal(t, d0, again)

	d1, err := fvk.Diversifier(DiversifierIndexFromUint64(1))
	require.NoError(t, err)
	assert.NotEqual(t, d0, d1)

	numerals := toBinaryNumerals([]byte{0x01, 0x80})
	assert.Equal(t, "1000000000000001", numerals)
	var back [2]byte
	fromBinaryNumerals(numerals, back[:])
	assert.Equal(t, [2]byte{0x01, 0x80}, back)
}

func TestDiversifierIndexExhausted(t *testing.T) {
	var index DiversifierIndex
	for k := range index {
		index[k] = 0xff
	}
	err := index.Increment()
	var derr *shield.DerivationError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, shield.ErrDiversifierSpace, derr.Code)

	index = DiversifierIndexFromUint64(0xff)
	require.NoError(t, index.Increment())
	assert.Equal(t, uint64(0x100), index.Uint64())
}

func TestNullifierDependsOnPosition(t *testing.T) {
	_, fvk := testFullViewingKey(t)
	note, err := NewNote(defaultAddress(t, fvk), 1000, false)
	require.NoError(t, err)

	nf0 := DeriveNullifier(fvk.NullifierKey(), note, 0)
	assert.Equal(t, nf0, DeriveNullifier(fvk.NullifierKey(), note, 0))
	assert.NotEqual(t, nf0, DeriveNullifier(fvk.NullifierKey(), note, 1))

	parsed, err := NullifierFromHex(nf0.String())
	require.NoError(t, err)
	assert.Equal(t, nf0, parsed)

	_, err = NullifierFromHex("abcd")
	assert.Error(t, err)
}

func TestMemoText(t *testing.T) {
	m, err := MemoFromText("hello")
	require.NoError(t, err)
	text, ok := m.Text()
	require.True(t, ok)
	assert.Equal(t, "hello", text)

	empty, err := MemoFromText("")
	require.NoError(t, err)
	assert.Equal(t, EmptyMemo, empty)
	_, ok = empty.Text()
	assert.False(t, ok)

	_, err = MemoFromText(string(bytes.Repeat([]byte{'a'}, MemoSize+1)))
	assert.Error(t, err)
}

func TestRandomizedSpendKey(t *testing.T) {
	sk, fvk := testFullViewingKey(t)
	expsk, err := sk.Expand()
	require.NoError(t, err)

	alpha, err := RandomAlpha()
	require.NoError(t, err)
	rsk, rk, err := RandomizedSpendKey(expsk.Ask, alpha)
	require.NoError(t, err)

	ak, err := jubjub.PointFromBytes(fvk.Ak)
	require.NoError(t, err)
	assert.Equal(t, ak.Add(jubjub.SpendAuthGenerator().Mul(alpha)).Bytes(), rk)

	msg := [32]byte{1, 2, 3}
	sig, err := SignSpend(rsk, rk, msg)
	require.NoError(t, err)
	assert.True(t, VerifySpend(rk, msg, sig))
	assert.False(t, VerifySpend(fvk.Ak, msg, sig))
}
