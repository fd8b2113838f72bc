package crypto

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"io"
)

// Serialize encodes the transaction in the layout read by ParseTransaction.
func (tx *Transaction) Serialize() []byte {
	var buf bytes.Buffer
	tx.writeTo(&buf)
	return buf.Bytes()
}

// Hex returns the hex encoding of Serialize.
func (tx *Transaction) Hex() string {
	return hex.EncodeToString(tx.Serialize())
}

// TxID returns the double SHA-256 of the serialized transaction in display
// (byte-reversed) order.
func (tx *Transaction) TxID() string {
	h := DoubleSHA256(tx.Serialize())
	return hex.EncodeToString(Reverse(h[:]))
}

// Reverse returns a reversed copy of b.
func Reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}

func (tx *Transaction) writeTo(w *bytes.Buffer) {
	binary.Write(w, binary.LittleEndian, tx.Version)
	binary.Write(w, binary.LittleEndian, tx.Type)

	WriteCompactSize(w, uint64(len(tx.Inputs)))
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		w.Write(in.PrevoutTxID[:])
		binary.Write(w, binary.LittleEndian, in.PrevoutIndex)
		writeVarBytes(w, in.ScriptSig)
		binary.Write(w, binary.LittleEndian, in.Sequence)
	}

	WriteCompactSize(w, uint64(len(tx.Outputs)))
	for i := range tx.Outputs {
		writeTxOut(w, &tx.Outputs[i])
	}

	binary.Write(w, binary.LittleEndian, tx.LockTime)

	if tx.Version < SaplingVersion {
		return
	}

	if tx.Sapling == nil {
		w.WriteByte(0)
	} else {
		w.WriteByte(1)
		tx.Sapling.writeTo(w)
	}

	if tx.Type != TxTypeNormal {
		if tx.ExtraPayload == nil {
			w.WriteByte(0)
		} else {
			w.WriteByte(1)
			writeVarBytes(w, tx.ExtraPayload)
		}
	}
}

func (b *SaplingBundle) writeTo(w *bytes.Buffer) {
	binary.Write(w, binary.LittleEndian, b.ValueBalance)

	WriteCompactSize(w, uint64(len(b.Spends)))
	for i := range b.Spends {
		b.Spends[i].writeTo(w)
	}

	WriteCompactSize(w, uint64(len(b.Outputs)))
	for i := range b.Outputs {
		b.Outputs[i].writeTo(w)
	}

	w.Write(b.BindingSig[:])
}

func (s *SpendDescription) writeTo(w io.Writer) {
	w.Write(s.CV[:])
	w.Write(s.Anchor[:])
	w.Write(s.Nullifier[:])
	w.Write(s.Rk[:])
	w.Write(s.ZkProof[:])
	w.Write(s.SpendAuthSig[:])
}

func (o *OutputDescription) writeTo(w io.Writer) {
	w.Write(o.CV[:])
	w.Write(o.Cmu[:])
	w.Write(o.EphemeralKey[:])
	w.Write(o.EncCiphertext[:])
	w.Write(o.OutCiphertext[:])
	w.Write(o.ZkProof[:])
}

func writeTxOut(w *bytes.Buffer, out *TxOut) {
	binary.Write(w, binary.LittleEndian, out.Value)
	writeVarBytes(w, out.ScriptPubKey)
}

func writeVarBytes(w *bytes.Buffer, b []byte) {
	WriteCompactSize(w, uint64(len(b)))
	w.Write(b)
}

// WriteCompactSize writes a Bitcoin-style CompactSize integer.
func WriteCompactSize(w io.Writer, v uint64) {
	switch {
	case v < 253:
		w.Write([]byte{byte(v)})
	case v <= 0xffff:
		var b [3]byte
		b[0] = 253
		binary.LittleEndian.PutUint16(b[1:], uint16(v))
		w.Write(b[:])
	case v <= 0xffffffff:
		var b [5]byte
		b[0] = 254
		binary.LittleEndian.PutUint32(b[1:], uint32(v))
		w.Write(b[:])
	default:
		var b [9]byte
		b[0] = 255
		binary.LittleEndian.PutUint64(b[1:], v)
		w.Write(b[:])
	}
}
