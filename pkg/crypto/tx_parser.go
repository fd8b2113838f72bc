package crypto

// PIVX sapling transaction parsing.
//
// Layout (all integers little-endian):
//
//	int16  nVersion
//	int16  nType
//	vin    CompactSize count, then (prevout txid 32 | index u32 | scriptSig | sequence u32)
//	vout   CompactSize count, then (value u64 | scriptPubKey)
//	u32    nLockTime
//	Optional(sapData)            present only for nVersion >= 3
//	  int64 valueBalance
//	  vShieldedSpend             CompactSize count x 384 bytes
//	  vShieldedOutput            CompactSize count x 948 bytes
//	  [64]  bindingSig
//	Optional(Vector(extraPayload)) present only for nVersion >= 3 and nType != 0

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

const (
	// SaplingVersion is the first transaction version carrying sapData.
	SaplingVersion int16 = 3

	// TxTypeNormal is the only special-transaction type the wallet builds.
	TxTypeNormal int16 = 0

	// SpendDescriptionSize is the wire size of one shielded spend.
	SpendDescriptionSize = 384

	// OutputDescriptionSize is the wire size of one shielded output.
	OutputDescriptionSize = 948

	maxCompactCount = 1 << 20
)

// Transaction is a decoded PIVX transaction.
type Transaction struct {
	Version  int16
	Type     int16
	Inputs   []TxIn
	Outputs  []TxOut
	LockTime uint32

	// Sapling is nil when the transaction has no sapData.
	Sapling *SaplingBundle

	// ExtraPayload is set for special transactions (Type != 0).
	ExtraPayload []byte
}

// TxIn represents a transparent input.
type TxIn struct {
	PrevoutTxID  [32]byte
	PrevoutIndex uint32
	ScriptSig    []byte
	Sequence     uint32
}

// TxOut represents a transparent output.
type TxOut struct {
	Value        uint64
	ScriptPubKey []byte
}

// SaplingBundle is the shielded part of a transaction.
type SaplingBundle struct {
	ValueBalance int64
	Spends       []SpendDescription
	Outputs      []OutputDescription
	BindingSig   [64]byte
}

// SpendDescription represents one shielded spend.
type SpendDescription struct {
	CV           [32]byte  // value commitment
	Anchor       [32]byte  // tree root the proof is built against
	Nullifier    [32]byte  // nullifier of the spent note
	Rk           [32]byte  // spend authorization key
	ZkProof      [192]byte // spend proof
	SpendAuthSig [64]byte  // spend authorization signature
}

// OutputDescription represents one shielded output.
type OutputDescription struct {
	CV            [32]byte  // value commitment
	Cmu           [32]byte  // note commitment
	EphemeralKey  [32]byte  // ephemeral public key
	EncCiphertext [580]byte // note plaintext ciphertext
	OutCiphertext [80]byte  // sender recovery ciphertext
	ZkProof       [192]byte // output proof
}

// ParseTransactionHex decodes a hex-encoded transaction.
func ParseTransactionHex(s string) (*Transaction, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, shield.Decode(shield.ErrInvalidHex, "transaction hex", err)
	}
	return ParseTransaction(raw)
}

// ParseTransaction parses raw transaction bytes into a structured format.
// Returns a *shield.DecodeError if the bytes are malformed or have trailing
// data.
func ParseTransaction(data []byte) (*Transaction, error) {
	r := bytes.NewReader(data)
	tx := &Transaction{}

	if err := parseTransaction(r, tx); err != nil {
		return nil, shield.Decode(shield.ErrMalformedTx, "parsing transaction", err)
	}
	if r.Len() != 0 {
		return nil, shield.Decode(shield.ErrTrailingBytes, fmt.Sprintf("%d bytes after transaction", r.Len()), nil)
	}
	return tx, nil
}

func parseTransaction(r io.Reader, tx *Transaction) error {
	// Read header
	if err := binary.Read(r, binary.LittleEndian, &tx.Version); err != nil {
		return fmt.Errorf("reading version: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &tx.Type); err != nil {
		return fmt.Errorf("reading type: %w", err)
	}
	if tx.Version < SaplingVersion && tx.Type != TxTypeNormal {
		return fmt.Errorf("special transaction type %d requires version %d", tx.Type, SaplingVersion)
	}

	if err := parseTransparentBundle(r, tx); err != nil {
		return fmt.Errorf("parsing transparent bundle: %w", err)
	}

	if err := binary.Read(r, binary.LittleEndian, &tx.LockTime); err != nil {
		return fmt.Errorf("reading lock_time: %w", err)
	}

	if tx.Version < SaplingVersion {
		return nil
	}

	present, err := readOptionalFlag(r)
	if err != nil {
		return fmt.Errorf("reading sapData flag: %w", err)
	}
	if present {
		tx.Sapling = &SaplingBundle{}
		if err := parseSaplingBundle(r, tx.Sapling); err != nil {
			return fmt.Errorf("parsing sapling bundle: %w", err)
		}
	}

	if tx.Type != TxTypeNormal {
		present, err := readOptionalFlag(r)
		if err != nil {
			return fmt.Errorf("reading extra payload flag: %w", err)
		}
		if present {
			n, err := readCompactCount(r)
			if err != nil {
				return fmt.Errorf("reading extra payload length: %w", err)
			}
			tx.ExtraPayload = make([]byte, n)
			if _, err := io.ReadFull(r, tx.ExtraPayload); err != nil {
				return fmt.Errorf("reading extra payload: %w", err)
			}
		}
	}

	return nil
}

// parseTransparentBundle reads the transparent inputs and outputs.
func parseTransparentBundle(r io.Reader, tx *Transaction) error {
	numInputs, err := readCompactCount(r)
	if err != nil {
		return fmt.Errorf("reading input count: %w", err)
	}
	tx.Inputs = make([]TxIn, numInputs)
	for i := range tx.Inputs {
		if err := parseTxIn(r, &tx.Inputs[i]); err != nil {
			return fmt.Errorf("parsing input %d: %w", i, err)
		}
	}

	numOutputs, err := readCompactCount(r)
	if err != nil {
		return fmt.Errorf("reading output count: %w", err)
	}
	tx.Outputs = make([]TxOut, numOutputs)
	for i := range tx.Outputs {
		if err := parseTxOut(r, &tx.Outputs[i]); err != nil {
			return fmt.Errorf("parsing output %d: %w", i, err)
		}
	}

	return nil
}

// parseTxIn reads a single transparent input.
func parseTxIn(r io.Reader, txin *TxIn) error {
	if _, err := io.ReadFull(r, txin.PrevoutTxID[:]); err != nil {
		return fmt.Errorf("reading prevout txid: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &txin.PrevoutIndex); err != nil {
		return fmt.Errorf("reading prevout index: %w", err)
	}

	script, err := readVarBytes(r)
	if err != nil {
		return fmt.Errorf("reading scriptSig: %w", err)
	}
	txin.ScriptSig = script

	if err := binary.Read(r, binary.LittleEndian, &txin.Sequence); err != nil {
		return fmt.Errorf("reading sequence: %w", err)
	}
	return nil
}

// parseTxOut reads a single transparent output.
func parseTxOut(r io.Reader, txout *TxOut) error {
	if err := binary.Read(r, binary.LittleEndian, &txout.Value); err != nil {
		return fmt.Errorf("reading value: %w", err)
	}
	script, err := readVarBytes(r)
	if err != nil {
		return fmt.Errorf("reading scriptPubKey: %w", err)
	}
	txout.ScriptPubKey = script
	return nil
}

// parseSaplingBundle reads sapData. Unlike v5 Zcash transactions every
// description is self-contained: each spend carries its own anchor, proof and
// signature, and each output carries its proof.
func parseSaplingBundle(r io.Reader, b *SaplingBundle) error {
	if err := binary.Read(r, binary.LittleEndian, &b.ValueBalance); err != nil {
		return fmt.Errorf("reading value balance: %w", err)
	}

	numSpends, err := readCompactCount(r)
	if err != nil {
		return fmt.Errorf("reading spend count: %w", err)
	}
	b.Spends = make([]SpendDescription, numSpends)
	for i := range b.Spends {
		s := &b.Spends[i]
		for _, field := range [][]byte{s.CV[:], s.Anchor[:], s.Nullifier[:], s.Rk[:], s.ZkProof[:], s.SpendAuthSig[:]} {
			if _, err := io.ReadFull(r, field); err != nil {
				return fmt.Errorf("reading spend %d: %w", i, err)
			}
		}
	}

	numOutputs, err := readCompactCount(r)
	if err != nil {
		return fmt.Errorf("reading output count: %w", err)
	}
	b.Outputs = make([]OutputDescription, numOutputs)
	for i := range b.Outputs {
		o := &b.Outputs[i]
		for _, field := range [][]byte{o.CV[:], o.Cmu[:], o.EphemeralKey[:], o.EncCiphertext[:], o.OutCiphertext[:], o.ZkProof[:]} {
			if _, err := io.ReadFull(r, field); err != nil {
				return fmt.Errorf("reading output %d: %w", i, err)
			}
		}
	}

	if _, err := io.ReadFull(r, b.BindingSig[:]); err != nil {
		return fmt.Errorf("reading binding sig: %w", err)
	}
	return nil
}

func readOptionalFlag(r io.Reader) (bool, error) {
	var flag [1]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return false, err
	}
	switch flag[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid optional flag 0x%02x", flag[0])
	}
}

func readVarBytes(r io.Reader) ([]byte, error) {
	n, err := readCompactCount(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// readCompactCount reads a CompactSize used as an element count and rejects
// values that could not fit in any real transaction.
func readCompactCount(r io.Reader) (uint64, error) {
	n, err := ReadCompactSize(r)
	if err != nil {
		return 0, err
	}
	if n > maxCompactCount {
		return 0, fmt.Errorf("count %d exceeds limit", n)
	}
	return n, nil
}

// ReadCompactSize reads a Bitcoin-style CompactSize integer.
func ReadCompactSize(r io.Reader) (uint64, error) {
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return 0, err
	}

	switch first[0] {
	case 253:
		var v uint16
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		if v < 253 {
			return 0, fmt.Errorf("non-canonical compact size %d", v)
		}
		return uint64(v), nil
	case 254:
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		if v <= 0xffff {
			return 0, fmt.Errorf("non-canonical compact size %d", v)
		}
		return uint64(v), nil
	case 255:
		var v uint64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		if v <= 0xffffffff {
			return 0, fmt.Errorf("non-canonical compact size %d", v)
		}
		return v, nil
	default:
		return uint64(first[0]), nil
	}
}
