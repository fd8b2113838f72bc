// Package selection picks inputs for a transaction and estimates its fee.
//
// Selection is an ordered greedy walk: candidates are consumed in the order
// given, and the fee is recomputed after every pick from the cumulative input
// count. Callers that want smallest-first behaviour sort with SortAscending
// before calling Select.
package selection

import (
	"cmp"
	"math"
	"slices"

	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// Fee rates, in satoshis per byte and estimated bytes per component.
const (
	FeePerByte            = 1000
	TxOffsetSize          = 85
	SaplingOutputSize     = 948
	SaplingInputSize      = 384
	TransparentInputSize  = 150
	TransparentOutputSize = 34
)

// Fee estimates the fee of a transaction with the given shape.
func Fee(tIn, tOut, sIn, sOut uint64) uint64 {
	return FeePerByte * (sOut*SaplingOutputSize +
		sIn*SaplingInputSize +
		tIn*TransparentInputSize +
		tOut*TransparentOutputSize +
		TxOffsetSize)
}

// Kind tells Select which input count a picked candidate adds to.
type Kind int

const (
	// Shielded inputs are notes.
	Shielded Kind = iota
	// Transparent inputs are UTXOs.
	Transparent
)

func (k Kind) String() string {
	switch k {
	case Shielded:
		return "shielded"
	case Transparent:
		return "transparent"
	default:
		return "unknown"
	}
}

// Input is a candidate for selection.
type Input interface {
	// Value in satoshis.
	Value() uint64
	// ID is reported back for every selected input: the hex nullifier of a
	// note or "txid,vout" of a UTXO.
	ID() string
}

// Result is the outcome of a successful selection.
type Result[T Input] struct {
	Selected []T
	IDs      []string
	// Amount is the amount that will be sent. It is lower than the requested
	// amount when the underfunded policy applied.
	Amount uint64
	Fee    uint64
	Change uint64
}

// Shape is the output side of the transaction being funded.
type Shape struct {
	TransparentOutputs uint64
	SaplingOutputs     uint64
}

// Select walks candidates in order until the running total covers amount plus
// the fee of the inputs taken so far.
//
// When even the whole set falls short but its total still covers amount and
// amount exceeds the fee, the fee is taken out of the amount instead. Any
// other shortfall is an *shield.InsufficientBalanceError. Amounts above
// consensus.MaxMoney fail with shield.ErrAmountRange. candidates is never
// reordered or modified.
func Select[T Input](candidates []T, amount uint64, shape Shape, kind Kind) (*Result[T], error) {
	if amount > consensus.MaxMoney {
		return nil, shield.ErrAmountRange
	}

	var (
		total    uint64
		fee      uint64
		selected []T
		ids      []string
	)
	for _, c := range candidates {
		selected = append(selected, c)
		ids = append(ids, c.ID())
		fee = shape.fee(kind, uint64(len(selected)))
		total = addSaturating(total, c.Value())
		if covers(total, amount, fee) {
			break
		}
	}

	if !covers(total, amount, fee) {
		if total >= amount && amount > fee {
			amount -= fee
		} else {
			return nil, &shield.InsufficientBalanceError{Available: total, Amount: amount, Fee: fee}
		}
	}

	return &Result[T]{
		Selected: selected,
		IDs:      ids,
		Amount:   amount,
		Fee:      fee,
		Change:   total - amount - fee,
	}, nil
}

// covers reports total >= amount + fee without computing the sum.
func covers(total, amount, fee uint64) bool {
	return total >= fee && total-fee >= amount
}

func addSaturating(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func (s Shape) fee(kind Kind, inputs uint64) uint64 {
	if kind == Transparent {
		return Fee(inputs, s.TransparentOutputs, 0, s.SaplingOutputs)
	}
	return Fee(0, s.TransparentOutputs, inputs, s.SaplingOutputs)
}

// SortAscending stably sorts inputs by value, smallest first.
func SortAscending[T Input](inputs []T) {
	slices.SortStableFunc(inputs, func(a, b T) int {
		return cmp.Compare(a.Value(), b.Value())
	})
}
