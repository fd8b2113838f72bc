package sapling

import (
	"encoding/hex"
	"fmt"

	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/jubjub"
	"github.com/suffix-labs/pivx-shield/pkg/merkle"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// Rseed is the note randomness carried in the plaintext.
type Rseed [32]byte

// MarshalText encodes the seed as hex.
func (r Rseed) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(r[:])), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rseed) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil || len(b) != len(r) {
		return shield.Decode(shield.ErrMalformedNote, "rseed must be 32 hex-encoded bytes", err)
	}
	copy(r[:], b)
	return nil
}

// Note is a shielded value owned by Recipient. Notes are compared
// structurally.
//
// Zip212 selects how Rseed is used: before ZIP 212 it is the commitment
// trapdoor rcm itself, after it it is a seed rcm and esk are derived from.
type Note struct {
	Recipient PaymentAddress `json:"recipient"`
	Value     uint64         `json:"value"`
	Rseed     Rseed          `json:"rseed"`
	Zip212    bool           `json:"zip212,omitempty"`
}

// NewNote creates a note with a random seed.
func NewNote(recipient PaymentAddress, value uint64, zip212 bool) (Note, error) {
	if value > consensus.MaxMoney {
		return Note{}, fmt.Errorf("note value %d exceeds maximum", value)
	}
	var seed Rseed
	if zip212 {
		b, err := crypto.RandomBytes32()
		if err != nil {
			return Note{}, err
		}
		seed = b
	} else {
		rcm, err := jubjub.RandomScalar()
		if err != nil {
			return Note{}, err
		}
		seed = Rseed(rcm)
	}
	return Note{Recipient: recipient, Value: value, Rseed: seed, Zip212: zip212}, nil
}

// Rcm returns the note commitment trapdoor.
func (n Note) Rcm() jubjub.Scalar {
	if n.Zip212 {
		wide := prfExpand(n.Rseed[:], expandRcm)
		return jubjub.ScalarFromWide(wide[:])
	}
	return jubjub.ScalarFromWide(n.Rseed[:])
}

// CommitmentPoint returns the full note commitment cm. It fails when the
// recipient diversifier has no base point.
func (n Note) CommitmentPoint() (jubjub.Point, error) {
	gd, ok := n.Recipient.DiversifiedBase()
	if !ok {
		return jubjub.Point{}, shield.Decode(shield.ErrInvalidAddress, "diversifier has no base point", nil)
	}
	return jubjub.NoteCommitment(gd.Bytes(), n.Recipient.PkD, n.Value, n.Rcm()), nil
}

// Commitment returns cmu, the u coordinate of cm and the tree leaf of the
// note. A note with an invalid recipient has the zero commitment, which no
// valid note has.
func (n Note) Commitment() merkle.Node {
	cm, err := n.CommitmentPoint()
	if err != nil {
		return merkle.Node{}
	}
	return cm.U()
}

// ValueCommitment returns repr_J([value]V + [rcv]R).
func ValueCommitment(value uint64, rcv jubjub.Scalar) [32]byte {
	return jubjub.ValueCommitment(value, rcv).Bytes()
}
