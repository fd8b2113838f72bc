package prover

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/crypto"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

// signer signs transparent inputs.
//
// Every input is signed with SIGHASH_ALL over the sapling signature hash of
// that input, and its scriptSig is set to <signature||hashtype> <pubkey>.
type signer struct {
	req *Request
	tx  *crypto.Transaction
}

func newSigner(req *Request, tx *crypto.Transaction) *signer {
	return &signer{req: req, tx: tx}
}

func (s *signer) sign() error {
	for i := range s.req.TransparentInputs {
		if err := s.signInput(i); err != nil {
			return fmt.Errorf("transparent input %d: %w", i, err)
		}
	}
	return nil
}

func (s *signer) signInput(i int) error {
	in := &s.req.TransparentInputs[i]
	pubkey := in.Key.PublicKey().SerializeCompressed()

	if hash, ok := p2pkhHash(in.Script); ok && !bytes.Equal(hash, btcutil.Hash160(pubkey[:])) {
		return shield.Prover(shield.ErrSigning, "key does not match the spent script", nil)
	}

	sighash := crypto.SignatureHash(s.tx, crypto.SigHashInput{
		Index:      i,
		ScriptCode: in.Script,
		Amount:     in.Value,
	}, crypto.SighashAll, consensus.SaplingBranchID)

	signature := append(in.Key.Sign(sighash), byte(crypto.SighashAll))
	s.tx.Inputs[i].ScriptSig = buildScriptSig(signature, pubkey[:])
	return nil
}

// p2pkhHash returns the key hash of OP_DUP OP_HASH160 <20> OP_EQUALVERIFY
// OP_CHECKSIG.
func p2pkhHash(script []byte) ([]byte, bool) {
	if len(script) != 25 || script[0] != 0x76 || script[1] != 0xa9 || script[2] != 0x14 ||
		script[23] != 0x88 || script[24] != 0xac {
		return nil, false
	}
	return script[3:23], true
}

// buildScriptSig constructs a P2PKH scriptSig: <signature> <pubkey>, each
// pushed with a single length byte.
func buildScriptSig(signature []byte, pubkey []byte) []byte {
	var buf bytes.Buffer

	buf.WriteByte(byte(len(signature)))
	buf.Write(signature)

	buf.WriteByte(byte(len(pubkey)))
	buf.Write(pubkey)

	return buf.Bytes()
}
