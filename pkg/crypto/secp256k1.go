package crypto

// secp256k1 signing for transparent inputs.
//
// Transparent inputs use Bitcoin-style ECDSA (DER-encoded, with a trailing
// sighash type byte in the scriptSig). Shielded signatures live in jubjub.
//
// Key formats:
//   - Private keys: WIF (network-specific version byte) or raw 32 bytes
//   - Public keys: Compressed 33-byte format (0x02/0x03 prefix + x-coordinate)

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// PrivateKey wraps secp256k1 private key
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// PublicKey wraps secp256k1 public key
type PublicKey struct {
	key *secp256k1.PublicKey
}

// GeneratePrivateKey returns a fresh random private key.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generating private key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// ParsePrivateKeyWIF parses a WIF-encoded private key with the given version
// byte.
func ParsePrivateKeyWIF(wif string, version byte) (*PrivateKey, error) {
	decoded, err := decodeWIF(wif, version)
	if err != nil {
		return nil, err
	}
	return PrivateKeyFromBytes(decoded)
}

// PrivateKeyFromBytes creates a private key from raw bytes
func PrivateKeyFromBytes(keyBytes []byte) (*PrivateKey, error) {
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(keyBytes))
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(keyBytes); overflow || s.IsZero() {
		return nil, errors.New("private key is not a valid scalar")
	}
	return &PrivateKey{key: secp256k1.NewPrivateKey(&s)}, nil
}

// Sign creates a DER-encoded ECDSA signature
func (pk *PrivateKey) Sign(hash [32]byte) []byte {
	return ecdsa.Sign(pk.key, hash[:]).Serialize()
}

// PublicKey derives the public key
func (pk *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{key: pk.key.PubKey()}
}

// Bytes returns the raw 32-byte private key
func (pk *PrivateKey) Bytes() []byte {
	return pk.key.Serialize()
}

// SerializeCompressed returns the 33-byte compressed public key
func (pub *PublicKey) SerializeCompressed() [33]byte {
	var result [33]byte
	copy(result[:], pub.key.SerializeCompressed())
	return result
}

// Bytes returns the compressed public key bytes
func (pub *PublicKey) Bytes() []byte {
	return pub.key.SerializeCompressed()
}

// ParsePublicKey parses a compressed public key
func ParsePublicKey(pubKeyBytes []byte) (*PublicKey, error) {
	if len(pubKeyBytes) != 33 {
		return nil, fmt.Errorf("compressed public key must be 33 bytes, got %d", len(pubKeyBytes))
	}

	pubKey, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	return &PublicKey{key: pubKey}, nil
}

// VerifySignature verifies a DER-encoded ECDSA signature
func VerifySignature(pubkey *PublicKey, hash [32]byte, signature []byte) bool {
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash[:], pubkey.key)
}

// RandomBytes32 reads 32 bytes from the system CSPRNG.
func RandomBytes32() ([32]byte, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return b, fmt.Errorf("reading randomness: %w", err)
	}
	return b, nil
}

// decodeWIF decodes a WIF-encoded private key
// WIF format: version_byte || private_key (32 bytes) || [compression_flag] || checksum (4 bytes)
func decodeWIF(wif string, version byte) ([]byte, error) {
	payload, gotVersion, err := base58.CheckDecode(wif)
	if err != nil {
		return nil, fmt.Errorf("decoding WIF: %w", err)
	}
	if gotVersion != version {
		return nil, fmt.Errorf("invalid WIF version byte: 0x%02x", gotVersion)
	}
	if len(payload) != 32 && !(len(payload) == 33 && payload[32] == 0x01) {
		return nil, errors.New("invalid WIF length")
	}
	return payload[:32], nil
}

// EncodeWIF encodes a compressed private key to WIF format
func EncodeWIF(privateKey []byte, version byte) (string, error) {
	if len(privateKey) != 32 {
		return "", errors.New("private key must be 32 bytes")
	}
	payload := append(append([]byte{}, privateKey...), 0x01)
	return base58.CheckEncode(payload, version), nil
}
