// Package builder turns a payment intent into a signed transaction: it
// resolves addresses, selects inputs, checks anchors, lays out the outputs
// and hands the result to a prover running on its own goroutine.
package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/suffix-labs/pivx-shield/pkg/address"
	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/merkle"
	"github.com/suffix-labs/pivx-shield/pkg/prover"
	"github.com/suffix-labs/pivx-shield/pkg/sapling"
	"github.com/suffix-labs/pivx-shield/pkg/scanner"
	"github.com/suffix-labs/pivx-shield/pkg/selection"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// Params describe one payment.
type Params struct {
	Inputs Inputs

	// SpendingKey authorizes note inputs. Its outgoing viewing key is used
	// for every shielded output when present.
	SpendingKey *sapling.ExpandedSpendingKey

	// To is a transparent or shielded address.
	To string
	// ChangeAddress receives change. It is normally shielded; a transparent
	// change address is used when spending UTXOs without a shielded account.
	ChangeAddress string

	Amount  uint64
	Memo    string
	Height  uint32
	Network *consensus.Network
}

// Result is a built transaction.
type Result struct {
	TxID  string `json:"txid"`
	TxHex string `json:"txhex"`
	// Nullifiers identify the spent inputs: hex nullifiers for notes and
	// "txid,vout" for UTXOs.
	Nullifiers []string `json:"nullifiers"`
	Fee        uint64   `json:"fee"`
	// Amount is what the recipient receives; it is below the requested
	// amount when the fee was taken out of it.
	Amount uint64 `json:"amount"`
}

// Builder builds transactions with one prover.
type Builder struct {
	prover prover.Prover
	log    log.Logger
}

// New creates a builder over p.
func New(p prover.Prover) *Builder {
	return &Builder{prover: p, log: log.New("module", "builder")}
}

// Build plans and proves a transaction, reporting progress to sink (which
// may be nil). Cancelling ctx abandons the wait, not the proving.
func (b *Builder) Build(ctx context.Context, p *Params, sink ProgressSink) (*Result, error) {
	job, err := b.Start(p, sink)
	if err != nil {
		return nil, err
	}
	return job.Wait(ctx)
}

// Job is a transaction being proven.
type Job struct {
	inputs []string
	done   chan struct{}
	result *Result
	err    error
}

// Inputs returns the ids of the inputs the job spends, known as soon as
// Start returns.
func (j *Job) Inputs() []string { return j.inputs }

// Wait blocks until the job finishes or ctx is done. It may be called again
// after a cancelled wait.
func (j *Job) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-j.done:
		return j.result, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed once the result is available.
func (j *Job) Done() <-chan struct{} { return j.done }

// Start validates and plans the transaction synchronously, then proves it in
// the background. Planning errors are returned directly; the inputs in p are
// never modified.
func (b *Builder) Start(p *Params, sink ProgressSink) (*Job, error) {
	pl, err := b.plan(p)
	if err != nil {
		return nil, err
	}

	job := &Job{inputs: pl.ids, done: make(chan struct{})}
	go func() {
		defer close(job.done)
		start := time.Now()
		tx, err := b.prove(pl.req, sink)
		if err != nil {
			job.err = err
			return
		}
		job.result = &Result{
			TxID:       tx.TxID(),
			TxHex:      tx.Hex(),
			Nullifiers: pl.ids,
			Fee:        pl.fee,
			Amount:     pl.amount,
		}
		b.log.Info("Built transaction", "txid", job.result.TxID, "inputs", len(pl.ids),
			"amount", pl.amount, "fee", pl.fee, "elapsed", time.Since(start))
	}()
	return job, nil
}

// prove runs the prover and forwards its progress to sink from a second
// goroutine so a slow sink never stalls proving for longer than one report.
func (b *Builder) prove(req *prover.Request, sink ProgressSink) (*crypto.Transaction, error) {
	progress := make(chan prover.Progress, 1)

	var (
		g  errgroup.Group
		tx *crypto.Transaction
	)
	g.Go(func() error {
		defer close(progress)
		var err error
		tx, err = b.prover.Build(req, func(p prover.Progress) { progress <- p })
		return err
	})
	g.Go(func() error {
		for p := range progress {
			if sink != nil {
				sink.Report(p)
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tx, nil
}

// plan is a fully selected request.
type plan struct {
	req    *prover.Request
	ids    []string
	amount uint64
	fee    uint64
}

func (b *Builder) plan(p *Params) (*plan, error) {
	if p.Network == nil {
		return nil, invalid("network is required")
	}
	if p.Inputs == nil {
		return nil, shield.ErrNoInputs
	}
	if p.Amount == 0 {
		return nil, invalid("amount must be positive")
	}
	if p.Amount > consensus.MaxMoney {
		return nil, invalid(fmt.Sprintf("amount %d exceeds the maximum of %d", p.Amount, consensus.MaxMoney))
	}

	to, err := address.Decode(p.To, p.Network)
	if err != nil {
		return nil, err
	}
	change, err := address.Decode(p.ChangeAddress, p.Network)
	if err != nil {
		return nil, fmt.Errorf("change address: %w", err)
	}
	var memo sapling.Memo
	if p.Memo != "" {
		if memo, err = sapling.MemoFromText(p.Memo); err != nil {
			return nil, err
		}
	}

	shape := selection.Shape{SaplingOutputs: 2}
	if _, ok := to.(*address.Transparent); ok {
		shape.TransparentOutputs = 1
	}

	req := &prover.Request{
		Network:     p.Network,
		Height:      p.Height,
		SpendingKey: p.SpendingKey,
	}
	if p.SpendingKey != nil {
		req.Ovk = &p.SpendingKey.Ovk
	}

	var sel struct {
		ids                 []string
		amount, fee, change uint64
	}
	switch in := p.Inputs.(type) {
	case NoteInputs:
		if p.SpendingKey == nil {
			return nil, shield.ErrNoSpendingKey
		}
		res, err := selection.Select(notePointers(in), p.Amount, shape, selection.Shielded)
		if err != nil {
			return nil, err
		}
		if req.Anchor, err = commonAnchor(res.Selected); err != nil {
			return nil, err
		}
		// The prover gets its own witnesses; the caller's notes stay untouched.
		for _, n := range res.Selected {
			req.Spends = append(req.Spends, prover.Spend{Note: n.Note, Witness: n.Witness.Clone()})
		}
		sel.ids, sel.amount, sel.fee, sel.change = res.IDs, res.Amount, res.Fee, res.Change

	case UtxoInputs:
		res, err := selection.Select(utxoPointers(in), p.Amount, shape, selection.Transparent)
		if err != nil {
			return nil, err
		}
		for _, u := range res.Selected {
			ti, err := u.transparentInput()
			if err != nil {
				return nil, err
			}
			req.TransparentInputs = append(req.TransparentInputs, ti)
		}
		sel.ids, sel.amount, sel.fee, sel.change = res.IDs, res.Amount, res.Fee, res.Change

	default:
		return nil, fmt.Errorf("unsupported inputs %T", p.Inputs)
	}

	addOutput(req, to, sel.amount, memo)
	if sel.change > 0 {
		addOutput(req, change, sel.change, sapling.Memo{})
	}
	req.Fee = sel.fee

	b.log.Debug("Planned transaction", "inputs", len(sel.ids), "amount", sel.amount,
		"fee", sel.fee, "change", sel.change, "to", p.To)
	return &plan{req: req, ids: sel.ids, amount: sel.amount, fee: sel.fee}, nil
}

func addOutput(req *prover.Request, to address.Address, value uint64, memo sapling.Memo) {
	switch to := to.(type) {
	case *address.Shielded:
		req.Outputs = append(req.Outputs, prover.Output{Address: to.PaymentAddress, Value: value, Memo: memo})
	case *address.Transparent:
		req.TransparentOutputs = append(req.TransparentOutputs, prover.TransparentOutput{Script: to.Script(), Value: value})
	}
}

// commonAnchor returns the root shared by every selected witness.
func commonAnchor(notes []*scanner.SpendableNote) (merkle.Node, error) {
	anchor := notes[0].Anchor()
	for i, n := range notes[1:] {
		if root := n.Anchor(); root != anchor {
			return anchor, &shield.AnchorMismatchError{Expected: anchor.Hex(), Got: root.Hex(), Index: i + 1}
		}
	}
	return anchor, nil
}

func invalid(msg string) error {
	return shield.Prover(shield.ErrInvalidRequest, msg, nil)
}
