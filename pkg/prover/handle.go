package prover

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// Handle owns the prover parameters of one process. It loads them on first
// use through its Loader and shares the resulting prover between callers.
// A failed load is not cached: the next Get tries again.
type Handle struct {
	loader Loader

	mu     sync.Mutex
	prover *Groth16
}

// NewHandle creates a handle that initializes with loader.
func NewHandle(loader Loader) *Handle {
	return &Handle{loader: loader}
}

// NewHandleWithParams creates a handle that is already loaded.
func NewHandleWithParams(params *Params) *Handle {
	return &Handle{prover: NewGroth16(params)}
}

// Get returns the prover, loading the parameters if needed. Concurrent
// callers wait for one load.
func (h *Handle) Get(ctx context.Context) (*Groth16, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.prover != nil {
		return h.prover, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	params, err := h.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	h.prover = NewGroth16(params)
	log.Info("Loaded prover parameters", "elapsed", time.Since(start))
	return h.prover, nil
}

// Loaded reports whether the parameters are in memory.
func (h *Handle) Loaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.prover != nil
}
