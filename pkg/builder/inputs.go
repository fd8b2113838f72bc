package builder

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/prover"
	"github.com/suffix-labs/pivx-shield/pkg/scanner"
	"github.com/suffix-labs/pivx-shield/pkg/selection"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// Inputs is the set of candidates a transaction may spend from. It is either
// NoteInputs or UtxoInputs; a transaction never mixes the two.
type Inputs interface {
	Len() int
	isInputs()
}

// NoteInputs are owned shielded notes, tried in order.
type NoteInputs []scanner.SpendableNote

// UtxoInputs are transparent outputs, tried in order.
type UtxoInputs []Utxo

func (NoteInputs) isInputs() {}
func (UtxoInputs) isInputs() {}

// Len returns the number of candidate notes.
func (n NoteInputs) Len() int { return len(n) }

// Len returns the number of candidate UTXOs.
func (u UtxoInputs) Len() int { return len(u) }

// SortAscending returns a copy of n ordered smallest value first.
func (n NoteInputs) SortAscending() NoteInputs {
	ptrs := notePointers(n)
	selection.SortAscending(ptrs)
	out := make(NoteInputs, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}

// SortAscending returns a copy of u ordered smallest value first.
func (u UtxoInputs) SortAscending() UtxoInputs {
	ptrs := utxoPointers(u)
	selection.SortAscending(ptrs)
	out := make(UtxoInputs, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}

// NewInputs picks the variant from the two optional lists of a request.
func NewInputs(notes []scanner.SpendableNote, utxos []Utxo) (Inputs, error) {
	switch {
	case len(notes) > 0 && len(utxos) > 0:
		return nil, shield.ErrMixedInputs
	case len(notes) > 0:
		return NoteInputs(notes), nil
	case len(utxos) > 0:
		return UtxoInputs(utxos), nil
	default:
		return nil, shield.ErrNoInputs
	}
}

// Utxo is a transparent output controlled by PrivateKey.
type Utxo struct {
	TxID       string `json:"txid"` // display hex
	Vout       uint32 `json:"vout"`
	Amount     uint64 `json:"amount"`
	PrivateKey []byte `json:"privateKey"`
	Script     []byte `json:"script"`
}

// Value returns the output amount.
func (u *Utxo) Value() uint64 { return u.Amount }

// ID returns "txid,vout", the identifier reported for spent UTXOs.
func (u *Utxo) ID() string {
	return u.TxID + "," + strconv.FormatUint(uint64(u.Vout), 10)
}

func (u *Utxo) transparentInput() (prover.TransparentInput, error) {
	raw, err := hex.DecodeString(u.TxID)
	if err != nil || len(raw) != 32 {
		return prover.TransparentInput{}, shield.Decode(shield.ErrInvalidHex, fmt.Sprintf("utxo txid %q", u.TxID), err)
	}
	key, err := crypto.PrivateKeyFromBytes(u.PrivateKey)
	if err != nil {
		return prover.TransparentInput{}, shield.Decode(shield.ErrInvalidKey, "utxo "+u.ID(), err)
	}
	in := prover.TransparentInput{Vout: u.Vout, Value: u.Amount, Script: u.Script, Key: key}
	copy(in.TxID[:], crypto.Reverse(raw))
	return in, nil
}

// notePointers lets selection work on the caller's slice without copying
// witnesses.
func notePointers(notes NoteInputs) []*scanner.SpendableNote {
	out := make([]*scanner.SpendableNote, len(notes))
	for i := range notes {
		out[i] = &notes[i]
	}
	return out
}

func utxoPointers(utxos UtxoInputs) []*Utxo {
	out := make([]*Utxo, len(utxos))
	for i := range utxos {
		out[i] = &utxos[i]
	}
	return out
}
