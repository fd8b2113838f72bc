package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/pivx-shield/internal/fixtures"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

func TestParseFixtureTransactions(t *testing.T) {
	tests := []struct {
		name         string
		hex          string
		txid         string
		outValue     uint64
		valueBalance int64
		cmu          string
	}{
		{
			name:         "scan tx",
			hex:          fixtures.ScanTxHex,
			txid:         fixtures.ScanTxID,
			outValue:     23_998_785_000,
			valueBalance: -1_000_000_000,
			cmu:          fixtures.ScanTxCmu,
		},
		{
			name:         "spend input tx",
			hex:          fixtures.SpendInputTxHex,
			txid:         fixtures.SpendInputTxID,
			outValue:     22_998_785_000,
			valueBalance: -2_000_000_000,
			cmu:          "3642ad16653acda3cf9b5230f652592197e578ea1eae78c2496a3dc274a4ba0b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := ParseTransactionHex(tt.hex)
			require.NoError(t, err)

			assert.Equal(t, SaplingVersion, tx.Version)
			assert.Equal(t, TxTypeNormal, tx.Type)
			require.Len(t, tx.Inputs, 1)
			require.Len(t, tx.Outputs, 1)
			assert.Equal(t, tt.outValue, tx.Outputs[0].Value)

			require.NotNil(t, tx.Sapling)
			assert.Equal(t, tt.valueBalance, tx.Sapling.ValueBalance)
			assert.Empty(t, tx.Sapling.Spends)
			require.Len(t, tx.Sapling.Outputs, 1)
			assert.Equal(t, tt.cmu, hex.EncodeToString(tx.Sapling.Outputs[0].Cmu[:]))

			assert.Equal(t, tt.hex, tx.Hex())
			assert.Equal(t, tt.txid, tx.TxID())
		})
	}
}

func TestParseTransactionErrors(t *testing.T) {
	raw, err := hex.DecodeString(fixtures.ScanTxHex)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		code string
	}{
		{name: "empty", data: nil, code: shield.ErrMalformedTx},
		{name: "truncated", data: raw[:len(raw)-10], code: shield.ErrMalformedTx},
		{name: "trailing", data: append(append([]byte{}, raw...), 0x00), code: shield.ErrTrailingBytes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTransaction(tt.data)
			var derr *shield.DecodeError
			require.True(t, errors.As(err, &derr), "got %v", err)
			assert.Equal(t, tt.code, derr.Code)
		})
	}

	_, err = ParseTransactionHex("zz")
	var derr *shield.DecodeError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, shield.ErrInvalidHex, derr.Code)
}

func TestSerializeSpecialTransaction(t *testing.T) {
	tx := &Transaction{
		Version:      SaplingVersion,
		Type:         2,
		Inputs:       []TxIn{},
		Outputs:      []TxOut{{Value: 5, ScriptPubKey: []byte{0x51}}},
		ExtraPayload: []byte{1, 2, 3},
	}
	parsed, err := ParseTransaction(tx.Serialize())
	require.NoError(t, err)
	assert.Equal(t, tx, parsed)
}

func TestCompactSize(t *testing.T) {
	for _, v := range []uint64{0, 0xfc, 0xfd, 0xffff, 0x10000, 0xffffffff, 0x100000000} {
		var buf bytes.Buffer
		WriteCompactSize(&buf, v)
		got, err := ReadCompactSize(&buf)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	// 0xfc encoded with the 3-byte form is not canonical.
	_, err := ReadCompactSize(bytes.NewReader([]byte{0xfd, 0xfc, 0x00}))
	assert.Error(t, err)
}

func TestSignatureHashCommitsToOutputs(t *testing.T) {
	tx, err := ParseTransactionHex(fixtures.SpendInputTxHex)
	require.NoError(t, err)

	in := SigHashInput{Index: 0, ScriptCode: []byte{0x76, 0xa9}, Amount: 100}
	base := SignatureHash(tx, in, SighashAll, 0x76b809bb)
	assert.Equal(t, base, SignatureHash(tx, in, SighashAll, 0x76b809bb))

	shielded := SignatureHash(tx, SigHashInput{Index: NotAnInput}, SighashAll, 0x76b809bb)
	assert.NotEqual(t, base, shielded)

	tx.Outputs[0].Value++
	assert.NotEqual(t, base, SignatureHash(tx, in, SighashAll, 0x76b809bb))
}

func TestSignatures(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	msg := DoubleSHA256([]byte("message"))

	der := key.Sign(msg)
	assert.True(t, VerifySignature(key.PublicKey(), msg, der))

	msg[0] ^= 1
	assert.False(t, VerifySignature(key.PublicKey(), msg, der))

	wif, err := EncodeWIF(key.Bytes(), 239)
	require.NoError(t, err)
	back, err := ParsePrivateKeyWIF(wif, 239)
	require.NoError(t, err)
	assert.Equal(t, key.Bytes(), back.Bytes())
	_, err = ParsePrivateKeyWIF(wif, 212)
	assert.Error(t, err)
}
