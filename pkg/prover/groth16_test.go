package prover

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

var (
	setupOnce   sync.Once
	setupParams *Params
	setupErr    error
)

// testParams runs the trusted setup once per test binary.
func testParams(t *testing.T) *Params {
	t.Helper()
	if testing.Short() {
		t.Skip("groth16 setup is slow")
	}
	setupOnce.Do(func() { setupParams, setupErr = Setup() })
	require.NoError(t, setupErr)
	return setupParams
}

func TestGroth16BuildVerifies(t *testing.T) {
	p := NewGroth16(testParams(t))
	from, to := newTestKeys(t, 0), newTestKeys(t, 1)

	tx, err := p.Build(shieldedRequest(t, from, to), nil)
	require.NoError(t, err)
	require.NoError(t, p.VerifyTransaction(tx))

	tampered := tx.Sapling.Spends[0]
	tampered.Nullifier[0] ^= 1
	err = p.VerifySpend(&tampered)
	var perr *shield.ProverError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, shield.ErrProofVerification, perr.Code)

	out := tx.Sapling.Outputs[0]
	out.CV = tx.Sapling.Outputs[1].CV
	assert.Error(t, p.VerifyOutput(&out))
}

func TestParamsEncodeRoundTrip(t *testing.T) {
	params := testParams(t)
	spend, output, err := params.Encode()
	require.NoError(t, err)

	loaded, err := (&BytesLoader{
		Spend:     spend,
		Output:    output,
		Checksums: Checksums{Spend: Checksum(spend), Output: Checksum(output)},
	}).Load(context.Background())
	require.NoError(t, err)

	// A proof made with the original keys verifies with the decoded ones.
	from, to := newTestKeys(t, 0), newTestKeys(t, 1)
	tx, err := NewGroth16(params).Build(shieldedRequest(t, from, to), nil)
	require.NoError(t, err)
	assert.NoError(t, NewGroth16(loaded).VerifyTransaction(tx))
}

func TestParseParamsRejectsGarbage(t *testing.T) {
	for _, raw := range [][]byte{nil, {0, 0, 0}, {0xff, 0xff, 0xff, 0xff, 1}} {
		_, err := ParseParams(raw, raw)
		var perr *shield.ProverError
		require.True(t, errors.As(err, &perr), "got %v", err)
		assert.Equal(t, shield.ErrParamsInvalid, perr.Code)
	}
}
