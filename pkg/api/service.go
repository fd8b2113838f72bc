package api

import (
	"context"

	"github.com/suffix-labs/pivx-shield/pkg/address"
	"github.com/suffix-labs/pivx-shield/pkg/builder"
	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/prover"
	"github.com/suffix-labs/pivx-shield/pkg/sapling"
	"github.com/suffix-labs/pivx-shield/pkg/scanner"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// TxOptions describe one transaction for Service.CreateTransaction. Exactly
// one of Notes and Utxos must be set.
type TxOptions struct {
	Notes []NoteWitness  `json:"notes"`
	Utxos []builder.Utxo `json:"utxos"`
	// SpendingKey is the encoded spending key. It is required for notes and
	// optional for UTXOs, where it only supplies the outgoing viewing key.
	SpendingKey   string             `json:"extsk"`
	To            string             `json:"to_address"`
	ChangeAddress string             `json:"change_address"`
	Amount        uint64             `json:"amount"`
	Memo          string             `json:"memo"`
	BlockHeight   uint32             `json:"block_height"`
	Network       *consensus.Network `json:"-"`
}

// Service owns the prover and the progress of the transaction it is
// proving. It is safe for concurrent use; concurrent builds share one
// progress value.
type Service struct {
	handle   *prover.Handle
	fixed    prover.Prover
	progress builder.Tracker
}

// NewService creates a service whose prover parameters come from loader on
// first use.
func NewService(loader prover.Loader) *Service {
	return &Service{handle: prover.NewHandle(loader)}
}

// NewServiceWithProver creates a service that always builds with p.
func NewServiceWithProver(p prover.Prover) *Service {
	return &Service{fixed: p}
}

// ============================================================================
// Prover
// ============================================================================

// LoadProver loads the prover parameters if they are not loaded yet.
func (s *Service) LoadProver(ctx context.Context) error {
	_, err := s.prover(ctx)
	return err
}

// ProverIsLoaded reports whether a transaction can be built without loading
// parameters first.
func (s *Service) ProverIsLoaded() bool {
	return s.fixed != nil || s.handle.Loaded()
}

func (s *Service) prover(ctx context.Context) (prover.Prover, error) {
	if s.fixed != nil {
		return s.fixed, nil
	}
	return s.handle.Get(ctx)
}

// ============================================================================
// Building
// ============================================================================

// CreateTransaction builds and signs a transaction. The prover parameters
// are loaded first if needed. Progress is readable with ReadTxProgress
// while the call runs.
func (s *Service) CreateTransaction(ctx context.Context, opts *TxOptions) (*builder.Result, error) {
	net := opts.Network
	if net == nil {
		return nil, shield.Prover(shield.ErrInvalidRequest, "network is required", nil)
	}

	var esk *sapling.ExpandedSpendingKey
	if opts.SpendingKey != "" {
		sk, err := address.DecodeSpendingKey(opts.SpendingKey, net)
		if err != nil {
			return nil, err
		}
		if esk, err = sk.Expand(); err != nil {
			return nil, err
		}
	}

	var notes []scanner.SpendableNote
	if len(opts.Notes) > 0 {
		if esk == nil {
			return nil, shield.ErrNoSpendingKey
		}
		var err error
		if notes, err = spendable(esk.FullViewingKey(), opts.Notes); err != nil {
			return nil, err
		}
	}
	// Candidates are tried smallest first.
	inputs, err := builder.NewInputs(
		builder.NoteInputs(notes).SortAscending(),
		builder.UtxoInputs(opts.Utxos).SortAscending(),
	)
	if err != nil {
		return nil, err
	}

	params := &builder.Params{
		Inputs:        inputs,
		SpendingKey:   esk,
		To:            opts.To,
		ChangeAddress: opts.ChangeAddress,
		Amount:        opts.Amount,
		Memo:          opts.Memo,
		Height:        opts.BlockHeight,
		Network:       net,
	}

	p, err := s.prover(ctx)
	if err != nil {
		return nil, err
	}
	s.progress.Reset()
	defer s.progress.Reset()
	return builder.New(p).Build(ctx, params, &s.progress)
}

// ReadTxProgress returns the fraction of proofs finished for the
// transaction being built, or 0 when none is.
func (s *Service) ReadTxProgress() float64 {
	return s.progress.Fraction()
}
