package sapling

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/jubjub"
)

// Note plaintext layout:
//
//	lead byte (1) | diversifier (11) | value (8, LE) | rseed (32) | memo (512)
//
// The encrypted plaintext plus the 16-byte tag fills the 580-byte
// enc_ciphertext of an output. The outgoing plaintext pk_d (32) | esk (32)
// plus tag fills the 80-byte out_ciphertext.
const (
	NotePlaintextSize    = 1 + 11 + 8 + 32 + MemoSize
	OutPlaintextSize     = 32 + 32
	EncCiphertextSize    = NotePlaintextSize + chacha20poly1305.Overhead
	OutCiphertextSize    = OutPlaintextSize + chacha20poly1305.Overhead
	leadByteBeforeZip212 = 0x01
	leadByteAfterZip212  = 0x02
	kdfPersonalization   = "Zcash_SaplingKDF"
	ockPersonalization   = "Zcash_Derive_ock"
)

// Both keys are used for exactly one message, so a fixed nonce is safe.
var zeroNonce [chacha20poly1305.NonceSize]byte

// NoteEncryption encrypts one note for its recipient and, when an outgoing
// viewing key is given, for the sender.
type NoteEncryption struct {
	note Note
	memo Memo
	ovk  *OutgoingViewingKey
	esk  jubjub.Scalar
	epk  jubjub.Point
}

// NewNoteEncryption prepares the encryption of note. For ZIP 212 notes the
// ephemeral secret is derived from the note seed, otherwise it is random.
func NewNoteEncryption(ovk *OutgoingViewingKey, note Note, memo Memo) (*NoteEncryption, error) {
	ne := &NoteEncryption{note: note, memo: memo, ovk: ovk}

	if note.Zip212 {
		ne.esk = deriveEsk(note.Rseed)
	} else {
		esk, err := jubjub.RandomScalar()
		if err != nil {
			return nil, err
		}
		ne.esk = esk
	}
	if ne.esk.IsZero() {
		return nil, errors.New("ephemeral secret key is zero")
	}

	gd, ok := note.Recipient.DiversifiedBase()
	if !ok {
		return nil, errors.New("recipient diversifier has no base point")
	}
	ne.epk = gd.Mul(ne.esk)
	return ne, nil
}

// EphemeralKey returns repr_J(epk) with epk = [esk]g_d.
func (ne *NoteEncryption) EphemeralKey() [32]byte {
	return ne.epk.Bytes()
}

// EphemeralSecret returns esk.
func (ne *NoteEncryption) EphemeralSecret() jubjub.Scalar {
	return ne.esk
}

// EncryptNote returns the enc_ciphertext for the recipient.
func (ne *NoteEncryption) EncryptNote() ([EncCiphertextSize]byte, error) {
	var out [EncCiphertextSize]byte

	pkd, err := jubjub.PointFromBytes(ne.note.Recipient.PkD)
	if err != nil {
		return out, fmt.Errorf("recipient pk_d: %w", err)
	}
	key := kdf(agree(ne.esk, pkd), ne.EphemeralKey())

	plaintext := encodePlaintext(ne.note, ne.memo)
	if err := seal(key, plaintext, out[:]); err != nil {
		return out, err
	}
	return out, nil
}

// EncryptOutgoing returns the out_ciphertext. Without an outgoing viewing
// key the ciphertext is sealed under a random key and cannot be recovered.
func (ne *NoteEncryption) EncryptOutgoing(cv, cmu [32]byte) ([OutCiphertextSize]byte, error) {
	var out [OutCiphertextSize]byte

	var ock [32]byte
	if ne.ovk != nil {
		ock = deriveOck(*ne.ovk, cv, cmu, ne.EphemeralKey())
	} else {
		random, err := crypto.RandomBytes32()
		if err != nil {
			return out, err
		}
		ock = random
	}

	plaintext := make([]byte, 0, OutPlaintextSize)
	plaintext = append(plaintext, ne.note.Recipient.PkD[:]...)
	plaintext = append(plaintext, ne.esk[:]...)

	if err := seal(ock, plaintext, out[:]); err != nil {
		return out, err
	}
	return out, nil
}

// TryDecryptNote attempts to decrypt out with ivk. It returns false when the
// output is not addressed to ivk or is malformed. Both plaintext versions
// are accepted.
func TryDecryptNote(ivk *IncomingViewingKey, out *crypto.OutputDescription) (Note, Memo, bool) {
	epk, err := jubjub.PointFromBytes(out.EphemeralKey)
	if err != nil {
		return Note{}, Memo{}, false
	}
	key := kdf(agree(ivk.ivk, epk), out.EphemeralKey)

	plaintext, ok := open(key, out.EncCiphertext[:])
	if !ok {
		return Note{}, Memo{}, false
	}
	d, value, rseed, zip212, memo, ok := decodePlaintext(plaintext)
	if !ok {
		return Note{}, Memo{}, false
	}

	pkd, err := ivk.transmissionKey(d)
	if err != nil {
		return Note{}, Memo{}, false
	}
	note := Note{Recipient: PaymentAddress{Diversifier: d, PkD: pkd.Bytes()}, Value: value, Rseed: rseed, Zip212: zip212}
	if !checkOutput(note, out) {
		return Note{}, Memo{}, false
	}
	return note, memo, true
}

// TryRecoverOutput attempts to recover an output created by the holder of
// ovk.
func TryRecoverOutput(ovk OutgoingViewingKey, out *crypto.OutputDescription) (Note, Memo, bool) {
	ock := deriveOck(ovk, out.CV, out.Cmu, out.EphemeralKey)
	op, ok := open(ock, out.OutCiphertext[:])
	if !ok {
		return Note{}, Memo{}, false
	}

	var pkdRepr, eskRepr [32]byte
	copy(pkdRepr[:], op[:32])
	copy(eskRepr[:], op[32:])
	esk, err := jubjub.ScalarFromBytes(eskRepr)
	if err != nil || esk.IsZero() {
		return Note{}, Memo{}, false
	}
	pkd, err := jubjub.PointFromBytes(pkdRepr)
	if err != nil {
		return Note{}, Memo{}, false
	}

	key := kdf(agree(esk, pkd), out.EphemeralKey)
	plaintext, ok := open(key, out.EncCiphertext[:])
	if !ok {
		return Note{}, Memo{}, false
	}
	d, value, rseed, zip212, memo, ok := decodePlaintext(plaintext)
	if !ok {
		return Note{}, Memo{}, false
	}

	gd, ok := jubjub.DiversifiedBase(d)
	if !ok {
		return Note{}, Memo{}, false
	}
	epk := gd.Mul(esk).Bytes()
	if subtle.ConstantTimeCompare(epk[:], out.EphemeralKey[:]) != 1 {
		return Note{}, Memo{}, false
	}

	note := Note{Recipient: PaymentAddress{Diversifier: d, PkD: pkdRepr}, Value: value, Rseed: rseed, Zip212: zip212}
	if !checkOutput(note, out) {
		return Note{}, Memo{}, false
	}
	return note, memo, true
}

// checkOutput verifies the recomputed commitment and, for ZIP 212 notes, the
// ephemeral key.
func checkOutput(note Note, out *crypto.OutputDescription) bool {
	cm := note.Commitment()
	if subtle.ConstantTimeCompare(cm[:], out.Cmu[:]) != 1 {
		return false
	}
	if note.Zip212 {
		gd, ok := note.Recipient.DiversifiedBase()
		if !ok || gd.Mul(deriveEsk(note.Rseed)).Bytes() != out.EphemeralKey {
			return false
		}
	}
	return true
}

// agree is KA^Sapling: [8 sk]P.
func agree(sk jubjub.Scalar, p jubjub.Point) [32]byte {
	return p.Mul(sk).MulCofactor().Bytes()
}

func deriveEsk(rseed Rseed) jubjub.Scalar {
	wide := prfExpand(rseed[:], expandEsk)
	return jubjub.ScalarFromWide(wide[:])
}

func kdf(shared, epk [32]byte) [32]byte {
	return crypto.Blake2b256(kdfPersonalization, shared[:], epk[:])
}

func deriveOck(ovk OutgoingViewingKey, cv, cmu, epk [32]byte) [32]byte {
	return crypto.Blake2b256(ockPersonalization, ovk[:], cv[:], cmu[:], epk[:])
}

func encodePlaintext(note Note, memo Memo) []byte {
	lead := byte(leadByteBeforeZip212)
	if note.Zip212 {
		lead = leadByteAfterZip212
	}
	pt := make([]byte, 0, NotePlaintextSize)
	pt = append(pt, lead)
	pt = append(pt, note.Recipient.Diversifier[:]...)
	pt = binary.LittleEndian.AppendUint64(pt, note.Value)
	pt = append(pt, note.Rseed[:]...)
	return append(pt, memo[:]...)
}

func decodePlaintext(pt []byte) (d Diversifier, value uint64, rseed Rseed, zip212 bool, memo Memo, ok bool) {
	if len(pt) != NotePlaintextSize {
		return
	}
	switch pt[0] {
	case leadByteBeforeZip212:
	case leadByteAfterZip212:
		zip212 = true
	default:
		return
	}
	copy(d[:], pt[1:12])
	value = binary.LittleEndian.Uint64(pt[12:20])
	if value > consensus.MaxMoney {
		return
	}
	copy(rseed[:], pt[20:52])
	if !zip212 {
		// rcm must be canonical.
		if _, err := jubjub.ScalarFromBytes(rseed); err != nil {
			return
		}
	}
	copy(memo[:], pt[52:])
	ok = true
	return
}

func seal(key [32]byte, plaintext, out []byte) error {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return err
	}
	ct := aead.Seal(nil, zeroNonce[:], plaintext, nil)
	if len(ct) != len(out) {
		return fmt.Errorf("ciphertext is %d bytes, want %d", len(ct), len(out))
	}
	copy(out, ct)
	return nil
}

func open(key [32]byte, ciphertext []byte) ([]byte, bool) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, false
	}
	pt, err := aead.Open(nil, zeroNonce[:], ciphertext, nil)
	return pt, err == nil
}
