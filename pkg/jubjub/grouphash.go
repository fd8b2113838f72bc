package jubjub

import (
	"encoding/binary"
	"sync"

	"github.com/suffix-labs/pivx-shield/pkg/crypto"
)

// urs is the first block hashed by every group hash.
const urs = "096b36a5804bfacef1691e173c366a47ff5ba84a44f26ddd7e8d9f79d5b42df0"

// BLAKE2s personalizations of the fixed generators.
const (
	spendAuthPersonalization   = "Zcash_G_"
	proofGenPersonalization    = "Zcash_H_"
	valueCommitPersonalization = "Zcash_cv"
	pedersenPersonalization    = "Zcash_PH"
	nullifierPersonalization   = "Zcash_J_"
	diversifyPersonalization   = "Zcash_gd"
)

// GroupHash maps (personalization, msg) to a prime-order point, or fails
// for roughly half of all inputs.
func GroupHash(personalization string, msg []byte) (Point, bool) {
	h := crypto.Blake2s256(personalization, []byte(urs), msg)
	p, err := PointFromBytes(h)
	if err != nil {
		return Point{}, false
	}
	q := p.MulCofactor()
	if q.IsIdentity() {
		return Point{}, false
	}
	return q, true
}

// FindGroupHash appends a counter byte to msg until GroupHash succeeds.
func FindGroupHash(personalization string, msg []byte) Point {
	m := append(append(make([]byte, 0, len(msg)+1), msg...), 0)
	for i := 0; i < 256; i++ {
		m[len(m)-1] = byte(i)
		if p, ok := GroupHash(personalization, m); ok {
			return p
		}
	}
	panic("jubjub: group hash failed for every counter")
}

// DiversifiedBase returns g_d for an 11-byte diversifier, or false when d is
// not a valid diversifier.
func DiversifiedBase(d [11]byte) (Point, bool) {
	return GroupHash(diversifyPersonalization, d[:])
}

// PedersenSegments is enough for the longest input hashed by the wallet,
// a note commitment of 582 bits.
const PedersenSegments = 6

type generatorSet struct {
	spendAuth      Point
	proofGen       Point
	valueCommitV   Point
	valueCommitR   Point
	noteCommitRand Point
	nullifierPos   Point
	pedersen       [PedersenSegments]Point
}

var generators = sync.OnceValue(func() *generatorSet {
	g := &generatorSet{
		spendAuth:      FindGroupHash(spendAuthPersonalization, nil),
		proofGen:       FindGroupHash(proofGenPersonalization, nil),
		valueCommitV:   FindGroupHash(valueCommitPersonalization, []byte("v")),
		valueCommitR:   FindGroupHash(valueCommitPersonalization, []byte("r")),
		noteCommitRand: FindGroupHash(pedersenPersonalization, []byte("r")),
		nullifierPos:   FindGroupHash(nullifierPersonalization, nil),
	}
	for i := range g.pedersen {
		var seg [4]byte
		binary.LittleEndian.PutUint32(seg[:], uint32(i))
		g.pedersen[i] = FindGroupHash(pedersenPersonalization, seg[:])
	}
	return g
})

// SpendAuthGenerator is the base of ak and of spend authorization
// signatures.
func SpendAuthGenerator() Point { return generators().spendAuth }

// ProofGenerator is the base of the nullifier deriving key nk.
func ProofGenerator() Point { return generators().proofGen }

// ValueCommitmentValueBase is the value base V of value commitments.
func ValueCommitmentValueBase() Point { return generators().valueCommitV }

// ValueCommitmentRandomnessBase is the trapdoor base R of value commitments
// and the base of binding signatures.
func ValueCommitmentRandomnessBase() Point { return generators().valueCommitR }

// NoteCommitmentRandomnessBase is the trapdoor base of note commitments.
func NoteCommitmentRandomnessBase() Point { return generators().noteCommitRand }

// PedersenGenerator returns the generator of Pedersen hash segment i.
func PedersenGenerator(i int) Point { return generators().pedersen[i] }

// NullifierPositionBase is multiplied by the leaf position when deriving
// nullifiers.
func NullifierPositionBase() Point { return generators().nullifierPos }
