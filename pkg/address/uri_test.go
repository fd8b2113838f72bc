package address

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

func TestParseURISingle(t *testing.T) {
	req, err := ParseURI("pivx:"+testShielded+"?amount=1.5&memo=coffee&label=shop", consensus.TestNet)
	require.NoError(t, err)
	require.Len(t, req.Payments, 1)

	p := req.Payments[0]
	assert.Equal(t, testShielded, p.Address.String())
	require.NotNil(t, p.Amount)
	assert.Equal(t, uint64(150_000_000), *p.Amount)
	require.NotNil(t, p.Memo)
	assert.Equal(t, "coffee", *p.Memo)
	require.NotNil(t, p.Label)
	assert.Equal(t, "shop", *p.Label)
	assert.Nil(t, p.Message)
}

func TestParseURIIndexed(t *testing.T) {
	uri := "pivx:?address.1=" + testTransparent + "&amount.1=0.5&address.2=" + testShielded + "&amount.2=2"
	req, err := ParseURI(uri, consensus.TestNet)
	require.NoError(t, err)
	require.Len(t, req.Payments, 2)

	assert.Equal(t, testTransparent, req.Payments[0].Address.String())
	assert.Equal(t, uint64(50_000_000), *req.Payments[0].Amount)
	assert.Equal(t, testShielded, req.Payments[1].Address.String())
	assert.Equal(t, uint64(200_000_000), *req.Payments[1].Amount)

	again, err := ParseURI(req.Encode(), consensus.TestNet)
	require.NoError(t, err)
	assert.Equal(t, req, again)
}

func TestParseURIErrors(t *testing.T) {
	cases := map[string]string{
		"scheme":           "zcash:" + testTransparent,
		"no address":       "pivx:?amount=1",
		"bad amount":       "pivx:" + testTransparent + "?amount=1.123456789",
		"negative":         "pivx:" + testTransparent + "?amount=-1",
		"too much":         "pivx:" + testTransparent + "?amount=21000001",
		"memo transparent": "pivx:" + testTransparent + "?memo=hi",
		"index zero":       "pivx:?address.0=" + testTransparent,
		"leading zero":     "pivx:?address.01=" + testTransparent,
		"bad address":      "pivx:yNotAnAddress",
	}
	for name, uri := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseURI(uri, consensus.TestNet)
			var derr *shield.DecodeError
			assert.True(t, errors.As(err, &derr), "got %v", err)
		})
	}
}

func TestAmountFormatting(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want uint64
		out  string
	}{
		{"1", 100_000_000, "1"},
		{"0.00000001", 1, "0.00000001"},
		{"12.3", 1_230_000_000, "12.3"},
		{"21000000", consensus.MaxMoney, "21000000"},
	} {
		got, err := ParseAmount(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.out, FormatAmount(got))
	}
}
