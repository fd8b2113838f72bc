package crypto

// Sapling signature hash.
//
// The digest follows the ZIP 243 structure: the transparent prevouts,
// sequences and outputs, and the shielded spends and outputs, are each hashed
// under their own BLAKE2b personalization, and the resulting digests are
// hashed together with the header fields under a branch-specific
// personalization.
//
// References:
//   - ZIP 243: https://zips.z.cash/zip-0243

import (
	"bytes"
	"encoding/binary"
)

// Sighash types
const (
	SighashAll          uint32 = 0x01
	SighashNone         uint32 = 0x02
	SighashSingle       uint32 = 0x03
	SighashAnyoneCanPay uint32 = 0x80
)

// NotAnInput marks a signature hash that commits to the whole transaction
// rather than to one transparent input. Shielded spend authorization and
// binding signatures sign this digest.
const NotAnInput = -1

// Signature hash personalizations (all 16 bytes except the 12-byte prefix that
// is completed with the branch id).
const (
	SigHashPersonalizationPrefix       = "ZcashSigHash"
	PrevoutsHashPersonalization        = "ZcashPrevoutHash"
	SequenceHashPersonalization        = "ZcashSequencHash"
	OutputsHashPersonalization         = "ZcashOutputsHash"
	ShieldedSpendsHashPersonalization  = "ZcashSSpendsHash"
	ShieldedOutputsHashPersonalization = "ZcashSOutputHash"
)

// SigHashInput carries what the transaction itself does not record about the
// input being signed.
type SigHashInput struct {
	Index      int    // Input index, or NotAnInput
	ScriptCode []byte // scriptPubKey of the spent output
	Amount     uint64 // value of the spent output
}

// SignatureHash computes the digest signed by transparent inputs
// (in.Index >= 0) or by shielded signatures (in.Index == NotAnInput).
func SignatureHash(tx *Transaction, in SigHashInput, hashType uint32, branchID uint32) [32]byte {
	anyoneCanPay := hashType&SighashAnyoneCanPay != 0
	base := hashType & 0x1f

	var hashPrevouts, hashSequence, hashOutputs, hashSpends, hashShieldedOutputs [32]byte

	if !anyoneCanPay {
		hashPrevouts = prevoutsDigest(tx)
	}
	if !anyoneCanPay && base != SighashSingle && base != SighashNone {
		hashSequence = sequenceDigest(tx)
	}
	switch {
	case base != SighashSingle && base != SighashNone:
		hashOutputs = outputsDigest(tx.Outputs)
	case base == SighashSingle && in.Index >= 0 && in.Index < len(tx.Outputs):
		hashOutputs = outputsDigest(tx.Outputs[in.Index : in.Index+1])
	}

	var valueBalance int64
	if tx.Sapling != nil {
		valueBalance = tx.Sapling.ValueBalance
		if len(tx.Sapling.Spends) > 0 {
			hashSpends = shieldedSpendsDigest(tx.Sapling.Spends)
		}
		if len(tx.Sapling.Outputs) > 0 {
			hashShieldedOutputs = shieldedOutputsDigest(tx.Sapling.Outputs)
		}
	}

	var personalization [16]byte
	copy(personalization[:], SigHashPersonalizationPrefix)
	binary.LittleEndian.PutUint32(personalization[12:], branchID)
	h := blake2bNew(32, string(personalization[:]))

	header := uint32(uint16(tx.Version)) | uint32(uint16(tx.Type))<<16
	binary.Write(h, binary.LittleEndian, header)
	h.Write(hashPrevouts[:])
	h.Write(hashSequence[:])
	h.Write(hashOutputs[:])
	h.Write(hashSpends[:])
	h.Write(hashShieldedOutputs[:])
	binary.Write(h, binary.LittleEndian, tx.LockTime)
	binary.Write(h, binary.LittleEndian, valueBalance)
	binary.Write(h, binary.LittleEndian, hashType)

	if in.Index >= 0 && in.Index < len(tx.Inputs) {
		input := &tx.Inputs[in.Index]
		h.Write(input.PrevoutTxID[:])
		binary.Write(h, binary.LittleEndian, input.PrevoutIndex)
		WriteCompactSize(h, uint64(len(in.ScriptCode)))
		h.Write(in.ScriptCode)
		binary.Write(h, binary.LittleEndian, in.Amount)
		binary.Write(h, binary.LittleEndian, input.Sequence)
	}

	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

// prevoutsDigest hashes all outpoints (txid || index).
func prevoutsDigest(tx *Transaction) [32]byte {
	h := blake2bNew(32, PrevoutsHashPersonalization)
	for i := range tx.Inputs {
		h.Write(tx.Inputs[i].PrevoutTxID[:])
		binary.Write(h, binary.LittleEndian, tx.Inputs[i].PrevoutIndex)
	}
	return sum32(h.Sum(nil))
}

// sequenceDigest hashes all input sequence numbers.
func sequenceDigest(tx *Transaction) [32]byte {
	h := blake2bNew(32, SequenceHashPersonalization)
	for i := range tx.Inputs {
		binary.Write(h, binary.LittleEndian, tx.Inputs[i].Sequence)
	}
	return sum32(h.Sum(nil))
}

// outputsDigest hashes serialized transparent outputs.
func outputsDigest(outs []TxOut) [32]byte {
	var buf bytes.Buffer
	for i := range outs {
		writeTxOut(&buf, &outs[i])
	}
	return Blake2b256(OutputsHashPersonalization, buf.Bytes())
}

// shieldedSpendsDigest hashes every spend without its authorization signature.
func shieldedSpendsDigest(spends []SpendDescription) [32]byte {
	h := blake2bNew(32, ShieldedSpendsHashPersonalization)
	for i := range spends {
		s := &spends[i]
		h.Write(s.CV[:])
		h.Write(s.Anchor[:])
		h.Write(s.Nullifier[:])
		h.Write(s.Rk[:])
		h.Write(s.ZkProof[:])
	}
	return sum32(h.Sum(nil))
}

// shieldedOutputsDigest hashes every serialized output.
func shieldedOutputsDigest(outputs []OutputDescription) [32]byte {
	h := blake2bNew(32, ShieldedOutputsHashPersonalization)
	for i := range outputs {
		outputs[i].writeTo(h)
	}
	return sum32(h.Sum(nil))
}

func sum32(b []byte) [32]byte {
	var out [32]byte
	copy(out[:], b)
	return out
}
