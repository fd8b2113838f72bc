package sapling

import (
	"encoding/hex"
	"math/big"

	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/jubjub"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// Nullifier is revealed when a note is spent.
type Nullifier [32]byte

const nullifierPersonalization = "Zcash_nf"

// DeriveNullifier computes nf = BLAKE2s(repr(nk) | repr(rho)) with
// rho = cm + [position]J. The same note at two positions gives two different
// nullifiers. A note with an invalid recipient gives the zero nullifier.
func DeriveNullifier(nk NullifierKey, note Note, position uint64) Nullifier {
	cm, err := note.CommitmentPoint()
	if err != nil {
		return Nullifier{}
	}
	rho := cm.Add(jubjub.NullifierPositionBase().MulInt(new(big.Int).SetUint64(position)))
	r := rho.Bytes()
	return crypto.Blake2s256(nullifierPersonalization, nk[:], r[:])
}

// String returns the lowercase hex encoding.
func (nf Nullifier) String() string {
	return hex.EncodeToString(nf[:])
}

// MarshalText implements encoding.TextMarshaler.
func (nf Nullifier) MarshalText() ([]byte, error) {
	return []byte(nf.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (nf *Nullifier) UnmarshalText(text []byte) error {
	parsed, err := NullifierFromHex(string(text))
	if err != nil {
		return err
	}
	*nf = parsed
	return nil
}

// NullifierFromHex decodes a 32-byte hex nullifier.
func NullifierFromHex(s string) (Nullifier, error) {
	var nf Nullifier
	b, err := hex.DecodeString(s)
	if err != nil {
		return nf, shield.Decode(shield.ErrInvalidHex, "nullifier hex", err)
	}
	if len(b) != len(nf) {
		return nf, shield.Decode(shield.ErrInvalidHex, "nullifier must be 32 bytes", nil)
	}
	copy(nf[:], b)
	return nf, nil
}
