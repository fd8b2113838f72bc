package prover

import (
	"errors"
	"math/big"
	"slices"

	tedwards "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"

	"github.com/suffix-labs/pivx-shield/pkg/jubjub"
	"github.com/suffix-labs/pivx-shield/pkg/merkle"
	"github.com/suffix-labs/pivx-shield/pkg/sapling"
)

// SpendCircuit proves that a note committed in the tree under Anchor is
// spent with nullifier NullifierLo | NullifierHi by the owner of ak.
//
// Constraints:
//   - rk = ak + [alpha]G
//   - cv = [value]V + [rcv]R with value < 2^64
//   - nk = [nsk]H, ivk = BLAKE2s(ak | nk) truncated to 251 bits, pk_d = [ivk]g_d
//   - cm = NoteCommit(value, g_d, pk_d; rcm) and the path hashes cm.u to Anchor
//   - nf = BLAKE2s(nk | cm + [position]J)
type SpendCircuit struct {
	RkU         frontend.Variable `gnark:",public"`
	RkV         frontend.Variable `gnark:",public"`
	CvU         frontend.Variable `gnark:",public"`
	CvV         frontend.Variable `gnark:",public"`
	Anchor      frontend.Variable `gnark:",public"`
	NullifierLo frontend.Variable `gnark:",public"`
	NullifierHi frontend.Variable `gnark:",public"`

	AkU      frontend.Variable
	AkV      frontend.Variable
	Nsk      frontend.Variable
	Alpha    frontend.Variable
	GdU      frontend.Variable
	GdV      frontend.Variable
	Value    frontend.Variable
	Rcv      frontend.Variable
	Rcm      frontend.Variable
	Position frontend.Variable
	AuthPath [merkle.Depth]frontend.Variable
}

// Define declares the circuit constraints.
func (c *SpendCircuit) Define(api frontend.API) error {
	g, err := newGadgets(api)
	if err != nil {
		return err
	}

	ak := twistededwards.Point{X: c.AkU, Y: c.AkV}
	gd := twistededwards.Point{X: c.GdU, Y: c.GdV}
	g.assertPrimeSubgroupCandidate(ak)
	g.assertPrimeSubgroupCandidate(gd)

	rk := g.curve.DoubleBaseScalarMul(ak, constPoint(jubjub.SpendAuthGenerator()), 1, c.Alpha)
	g.assertPoint(rk, c.RkU, c.RkV)

	cv := g.valueCommitment(c.Value, c.Rcv)
	g.assertPoint(cv, c.CvU, c.CvV)

	nk := g.curve.ScalarMul(constPoint(jubjub.ProofGenerator()), c.Nsk)
	nkRepr := g.repr(nk)
	ivk := g.blake2s(ivkPersonalization, append(g.repr(ak), nkRepr...))
	pkd := g.curve.ScalarMul(gd, g.fromBits(ivk[:ivkBits]))

	cm := g.noteCommitment(c.Value, gd, pkd, c.Rcm)

	position := g.toBits(c.Position, merkle.Depth)
	cur := cm.X
	for i := 0; i < merkle.Depth; i++ {
		left := api.Select(position[i], c.AuthPath[i], cur)
		right := api.Select(position[i], cur, c.AuthPath[i])
		cur = g.merkleHash(i, left, right)
	}
	api.AssertIsEqual(cur, c.Anchor)

	rho := g.curve.DoubleBaseScalarMul(cm, constPoint(jubjub.NullifierPositionBase()), 1, c.Position)
	nf := g.blake2s(nullifierPersonalization, append(nkRepr, g.repr(rho)...))
	api.AssertIsEqual(g.fromBits(nf[:128]), c.NullifierLo)
	api.AssertIsEqual(g.fromBits(nf[128:]), c.NullifierHi)
	return nil
}

// OutputCircuit proves that Cmu commits to a note for (g_d, pk_d) whose
// value is committed in Cv, and that Epk = [esk]g_d.
type OutputCircuit struct {
	CvU  frontend.Variable `gnark:",public"`
	CvV  frontend.Variable `gnark:",public"`
	EpkU frontend.Variable `gnark:",public"`
	EpkV frontend.Variable `gnark:",public"`
	Cmu  frontend.Variable `gnark:",public"`

	GdU   frontend.Variable
	GdV   frontend.Variable
	PkdU  frontend.Variable
	PkdV  frontend.Variable
	Value frontend.Variable
	Rcv   frontend.Variable
	Rcm   frontend.Variable
	Esk   frontend.Variable
}

// Define declares the circuit constraints.
func (c *OutputCircuit) Define(api frontend.API) error {
	g, err := newGadgets(api)
	if err != nil {
		return err
	}

	gd := twistededwards.Point{X: c.GdU, Y: c.GdV}
	pkd := twistededwards.Point{X: c.PkdU, Y: c.PkdV}
	g.assertPrimeSubgroupCandidate(gd)
	g.curve.AssertIsOnCurve(pkd)

	cv := g.valueCommitment(c.Value, c.Rcv)
	g.assertPoint(cv, c.CvU, c.CvV)

	epk := g.curve.ScalarMul(gd, c.Esk)
	g.assertPoint(epk, c.EpkU, c.EpkV)

	cm := g.noteCommitment(c.Value, gd, pkd, c.Rcm)
	api.AssertIsEqual(cm.X, c.Cmu)
	return nil
}

const (
	// fieldBits is the size of a Jubjub coordinate.
	fieldBits = 255
	// ivkBits is the length of ivk after truncation.
	ivkBits = 251

	ivkPersonalization       = "Zcashivk"
	nullifierPersonalization = "Zcash_nf"
)

// gadgets are the Jubjub and hash building blocks shared by both circuits.
type gadgets struct {
	api   frontend.API
	curve twistededwards.Curve
}

func newGadgets(api frontend.API) (*gadgets, error) {
	curve, err := twistededwards.NewEdCurve(api, tedwards.BLS12_381)
	if err != nil {
		return nil, err
	}
	return &gadgets{api: api, curve: curve}, nil
}

func constPoint(p jubjub.Point) twistededwards.Point {
	u, v := p.Coordinates()
	return twistededwards.Point{X: u, Y: v}
}

func (g *gadgets) assertPoint(p twistededwards.Point, u, v frontend.Variable) {
	g.api.AssertIsEqual(p.X, u)
	g.api.AssertIsEqual(p.Y, v)
}

// assertPrimeSubgroupCandidate checks that p is on the curve and not of
// small order.
func (g *gadgets) assertPrimeSubgroupCandidate(p twistededwards.Point) {
	g.curve.AssertIsOnCurve(p)
	p8 := g.curve.Double(g.curve.Double(g.curve.Double(p)))
	g.api.AssertIsDifferent(p8.X, 0)
}

func (g *gadgets) toBits(v frontend.Variable, n int) []frontend.Variable {
	return g.api.ToBinary(v, n)
}

func (g *gadgets) fromBits(b []frontend.Variable) frontend.Variable {
	return g.api.FromBinary(b...)
}

// repr returns the 256 bits of repr_J(p): v little-endian, then the low bit
// of u.
func (g *gadgets) repr(p twistededwards.Point) []frontend.Variable {
	out := make([]frontend.Variable, 0, 256)
	out = append(out, g.toBits(p.Y, fieldBits)...)
	return append(out, g.toBits(p.X, fieldBits)[0])
}

func (g *gadgets) valueCommitment(value, rcv frontend.Variable) twistededwards.Point {
	g.toBits(value, 64)
	return g.curve.DoubleBaseScalarMul(
		constPoint(jubjub.ValueCommitmentValueBase()),
		constPoint(jubjub.ValueCommitmentRandomnessBase()),
		value, rcv)
}

func (g *gadgets) noteCommitment(value frontend.Variable, gd, pkd twistededwards.Point, rcm frontend.Variable) twistededwards.Point {
	in := make([]frontend.Variable, 0, 6+64+2*256)
	for i := 0; i < 6; i++ {
		in = append(in, 1)
	}
	in = append(in, g.toBits(value, 64)...)
	in = append(in, g.repr(gd)...)
	in = append(in, g.repr(pkd)...)
	return g.curve.DoubleBaseScalarMul(g.pedersenHash(in), constPoint(jubjub.NoteCommitmentRandomnessBase()), 1, rcm)
}

func (g *gadgets) merkleHash(level int, left, right frontend.Variable) frontend.Variable {
	in := make([]frontend.Variable, 0, 6+2*fieldBits)
	for i := 0; i < 6; i++ {
		in = append(in, (level>>i)&1)
	}
	in = append(in, g.toBits(left, fieldBits)...)
	in = append(in, g.toBits(right, fieldBits)...)
	return g.pedersenHash(in).X
}

// pedersenHash mirrors jubjub.PedersenHash. Chunk j of a segment selects
// one of [1..4][2^(4j)]I from a constant table and negates it by its third
// bit.
func (g *gadgets) pedersenHash(in []frontend.Variable) twistededwards.Point {
	api := g.api
	acc := twistededwards.Point{X: 0, Y: 1}
	sixteen := big.NewInt(16)

	for seg := 0; len(in) > 0; seg++ {
		n := min(len(in), 3*jubjub.ChunksPerSegment)
		bit := func(i int) frontend.Variable {
			if i < n {
				return in[i]
			}
			return 0
		}

		base := jubjub.PedersenGenerator(seg)
		for j := 0; j < n; j += 3 {
			var xs, ys [4]frontend.Variable
			m := base
			for k := range xs {
				xs[k], ys[k] = m.Coordinates()
				m = m.Add(base)
			}
			x := api.Lookup2(bit(j), bit(j+1), xs[0], xs[1], xs[2], xs[3])
			y := api.Lookup2(bit(j), bit(j+1), ys[0], ys[1], ys[2], ys[3])
			x = api.Sub(x, api.Mul(2, bit(j+2), x))
			acc = g.curve.Add(acc, twistededwards.Point{X: x, Y: y})
			base = base.MulInt(sixteen)
		}
		in = in[n:]
	}
	return acc
}

// spendAssignment fills a SpendCircuit from a witness.
func spendAssignment(w *spendWitness) (*SpendCircuit, error) {
	a, err := spendPublic(w.anchor, w.nullifier, w.rk, w.cv)
	if err != nil {
		return nil, err
	}
	gd, ok := w.note.Recipient.DiversifiedBase()
	if !ok {
		return nil, errors.New("recipient diversifier has no base point")
	}
	a.AkU, a.AkV = w.ak.Coordinates()
	a.GdU, a.GdV = gd.Coordinates()
	a.Nsk = w.nsk.Int()
	a.Alpha = w.alpha.Int()
	a.Value = new(big.Int).SetUint64(w.note.Value)
	a.Rcv = w.rcv.Int()
	a.Rcm = w.note.Rcm().Int()
	a.Position = new(big.Int).SetUint64(w.path.Position)
	for i := range a.AuthPath {
		a.AuthPath[i] = leInt(w.path.AuthPath[i][:])
	}
	return a, nil
}

// spendPublic fills the public part of a SpendCircuit.
func spendPublic(anchor merkle.Node, nf sapling.Nullifier, rk, cv [32]byte) (*SpendCircuit, error) {
	rkP, err := jubjub.PointFromBytes(rk)
	if err != nil {
		return nil, err
	}
	cvP, err := jubjub.PointFromBytes(cv)
	if err != nil {
		return nil, err
	}
	c := &SpendCircuit{
		Anchor:      leInt(anchor[:]),
		NullifierLo: leInt(nf[:16]),
		NullifierHi: leInt(nf[16:]),
	}
	c.RkU, c.RkV = rkP.Coordinates()
	c.CvU, c.CvV = cvP.Coordinates()
	return c, nil
}

// outputAssignment fills an OutputCircuit from a witness.
func outputAssignment(w *outputWitness) (*OutputCircuit, error) {
	a, err := outputPublic(w.cmu, w.cv, w.epk)
	if err != nil {
		return nil, err
	}
	gd, ok := w.note.Recipient.DiversifiedBase()
	if !ok {
		return nil, errors.New("recipient diversifier has no base point")
	}
	pkd, err := jubjub.PointFromBytes(w.note.Recipient.PkD)
	if err != nil {
		return nil, err
	}
	a.GdU, a.GdV = gd.Coordinates()
	a.PkdU, a.PkdV = pkd.Coordinates()
	a.Value = new(big.Int).SetUint64(w.note.Value)
	a.Rcv = w.rcv.Int()
	a.Rcm = w.note.Rcm().Int()
	a.Esk = w.esk.Int()
	return a, nil
}

// outputPublic fills the public part of an OutputCircuit.
func outputPublic(cmu merkle.Node, cv, epk [32]byte) (*OutputCircuit, error) {
	cvP, err := jubjub.PointFromBytes(cv)
	if err != nil {
		return nil, err
	}
	epkP, err := jubjub.PointFromBytes(epk)
	if err != nil {
		return nil, err
	}
	c := &OutputCircuit{Cmu: leInt(cmu[:])}
	c.CvU, c.CvV = cvP.Coordinates()
	c.EpkU, c.EpkV = epkP.Coordinates()
	return c, nil
}

func leInt(b []byte) *big.Int {
	be := slices.Clone(b)
	slices.Reverse(be)
	return new(big.Int).SetBytes(be)
}
