package prover

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

func paramsServer(t *testing.T, spend, output []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/"+SpendParamsFile, func(w http.ResponseWriter, _ *http.Request) { w.Write(spend) })
	mux.HandleFunc("/"+OutputParamsFile, func(w http.ResponseWriter, _ *http.Request) { w.Write(output) })
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func proverCode(t *testing.T, err error) string {
	t.Helper()
	var perr *shield.ProverError
	require.True(t, errors.As(err, &perr), "got %v", err)
	return perr.Code
}

func TestURLLoaderFallsBackToNextMirror(t *testing.T) {
	spend, output := []byte("spend params"), []byte("output params")
	broken := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(broken.Close)
	corrupt := paramsServer(t, []byte("tampered"), output)
	good := paramsServer(t, spend, output)

	l := &URLLoader{
		Mirrors:   []string{broken.URL, corrupt.URL + "/", good.URL},
		Checksums: Checksums{Spend: Checksum(spend), Output: Checksum(output)},
	}
	gotSpend, gotOutput, err := l.fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, spend, gotSpend)
	assert.Equal(t, output, gotOutput)
}

func TestURLLoaderErrors(t *testing.T) {
	srv := paramsServer(t, []byte("a"), []byte("b"))

	_, _, err := (&URLLoader{Mirrors: []string{srv.URL}}).fetch(context.Background())
	assert.Equal(t, shield.ErrParamsChecksum, proverCode(t, err))

	_, _, err = (&URLLoader{Checksums: Checksums{Spend: "00", Output: "00"}}).fetch(context.Background())
	assert.Equal(t, shield.ErrParamsFetch, proverCode(t, err))

	l := &URLLoader{Mirrors: []string{srv.URL}, Checksums: Checksums{Spend: Checksum([]byte("x")), Output: Checksum([]byte("b"))}}
	_, err = l.Load(context.Background())
	assert.Equal(t, shield.ErrParamsFetch, proverCode(t, err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.Checksums = Checksums{Spend: Checksum([]byte("a")), Output: Checksum([]byte("b"))}
	_, _, err = l.fetch(ctx)
	assert.Equal(t, shield.ErrParamsFetch, proverCode(t, err))
}

func TestBytesLoaderVerifiesChecksums(t *testing.T) {
	l := &BytesLoader{
		Spend:     []byte("spend"),
		Output:    []byte("output"),
		Checksums: Checksums{Spend: Checksum([]byte("spend")), Output: Checksum([]byte("other"))},
	}
	_, err := l.Load(context.Background())
	assert.Equal(t, shield.ErrParamsChecksum, proverCode(t, err))

	l.Checksums = Checksums{}
	_, err = l.Load(context.Background())
	assert.Equal(t, shield.ErrParamsInvalid, proverCode(t, err))
}

type countingLoader struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (l *countingLoader) Load(context.Context) (*Params, error) {
	l.calls.Add(1)
	if l.fail.Load() {
		return nil, shield.Prover(shield.ErrParamsFetch, "offline", nil)
	}
	return &Params{}, nil
}

func TestHandleLoadsLazilyAndRetries(t *testing.T) {
	loader := &countingLoader{}
	loader.fail.Store(true)
	h := NewHandle(loader)
	assert.False(t, h.Loaded())

	_, err := h.Get(context.Background())
	assert.Equal(t, shield.ErrParamsFetch, proverCode(t, err))
	assert.False(t, h.Loaded())

	loader.fail.Store(false)
	var g errgroup.Group
	provers := make([]*Groth16, 8)
	for i := range provers {
		i := i
		g.Go(func() error {
			p, err := h.Get(context.Background())
			provers[i] = p
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.True(t, h.Loaded())
	assert.Equal(t, int32(2), loader.calls.Load())
	for _, p := range provers {
		assert.Same(t, provers[0], p)
	}
}

func TestHandleWithParams(t *testing.T) {
	h := NewHandleWithParams(&Params{})
	assert.True(t, h.Loaded())
	_, err := h.Get(context.Background())
	assert.NoError(t, err)
}
