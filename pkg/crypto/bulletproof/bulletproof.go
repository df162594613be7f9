package bulletproof

import (
	"errors"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
)

// ippDomain and challengeDomain separate the inner-product-argument
// transcript from the outer range-proof challenge derivations.
const (
	ippDomain       = "bulletproof-ipa"
	challengeDomain = "bulletproof-challenge"
)

// ErrInvalidBitWidth is returned when N is zero, exceeds 64, or is not
// a power of two.
var ErrInvalidBitWidth = errors.New("bulletproof: bit width must be a power of two in (0, 64]")

// ErrProofRejected is returned when a range proof fails to verify.
var ErrProofRejected = errors.New("bulletproof: proof rejected")

// ErrBatchLengthMismatch is returned when a batch's commitment and
// proof slices differ in length.
var ErrBatchLengthMismatch = errors.New("bulletproof: commitment and proof counts differ")

// Proof is a single Bulletproofs range proof.
type Proof struct {
	A, S   crypto.Point
	T1, T2 crypto.Point
	Taux   crypto.Scalar
	Mu     crypto.Scalar
	Tx     crypto.Scalar
	L, R   []crypto.Point
	AFinal crypto.Scalar
	BFinal crypto.Scalar
}

func checkBitWidth(n int) error {
	if n <= 0 || n > 64 || n&(n-1) != 0 {
		return ErrInvalidBitWidth
	}
	return nil
}

// Prove proves that amount lies in [0, 2^bitWidth) under the Pedersen
// commitment blinding*G + amount*H. Any zero-valued Fiat-Shamir
// challenge restarts the whole prover with fresh randomness.
func Prove(cache *GeneratorCache, amount uint64, blinding crypto.Scalar, bitWidth int) (*Proof, error) {
	if err := checkBitWidth(bitWidth); err != nil {
		return nil, err
	}
	n := bitWidth
	gv, hv := cache.Vectors(n)

	aL := make([]crypto.Scalar, n)
	for i := 0; i < n; i++ {
		if (amount>>uint(i))&1 == 1 {
			aL[i] = crypto.OneScalar
		} else {
			aL[i] = crypto.ZeroScalar
		}
	}
	aR := make([]crypto.Scalar, n)
	for i := range aL {
		aR[i] = aL[i].Sub(crypto.OneScalar)
	}

	alpha, err := crypto.RandomScalar()
	if err != nil {
		return nil, err
	}
	A := crypto.MultiScalarMul(aL, gv).Add(crypto.MultiScalarMul(aR, hv)).Add(crypto.BaseMul(alpha))

	sL := randomVector(n)
	sR := randomVector(n)
	rho, err := crypto.RandomScalar()
	if err != nil {
		return nil, err
	}
	S := crypto.MultiScalarMul(sL, gv).Add(crypto.MultiScalarMul(sR, hv)).Add(crypto.BaseMul(rho))

	commitment := crypto.BaseMul(blinding).Add(crypto.HPoint.Mul(scalarFromU64(amount)))
	tr := crypto.NewTranscript(challengeDomain)
	tr.UpdatePoint(commitment)
	tr.UpdatePoint(A)
	tr.UpdatePoint(S)
	y := tr.Challenge()
	tr.UpdateScalar(y)
	z := tr.Challenge()
	if y.IsZero() || z.IsZero() {
		return Prove(cache, amount, blinding, bitWidth)
	}

	yPow := crypto.PowerVector(y, n)
	twoPow := crypto.PowerVector(scalarFromU64(2), n)
	zSq := z.Mul(z)

	l0 := crypto.VectorSub(aL, fill(n, z))
	l1 := sL

	r0 := make([]crypto.Scalar, n)
	for i := 0; i < n; i++ {
		r0[i] = yPow[i].Mul(aR[i].Add(z)).Add(zSq.Mul(twoPow[i]))
	}
	r1 := hadamard(yPow, sR)

	t1 := crypto.ScalarVectorInnerProduct(l0, r1).Add(crypto.ScalarVectorInnerProduct(l1, r0))
	t2 := crypto.ScalarVectorInnerProduct(l1, r1)

	tau1, err := crypto.RandomScalar()
	if err != nil {
		return nil, err
	}
	tau2, err := crypto.RandomScalar()
	if err != nil {
		return nil, err
	}
	T1 := crypto.BaseMul(tau1).Add(crypto.HPoint.Mul(t1))
	T2 := crypto.BaseMul(tau2).Add(crypto.HPoint.Mul(t2))

	tr.UpdatePoint(T1)
	tr.UpdatePoint(T2)
	x := tr.Challenge()
	if x.IsZero() {
		return Prove(cache, amount, blinding, bitWidth)
	}

	l := crypto.VectorAdd(l0, crypto.VectorScale(l1, x))
	r := crypto.VectorAdd(r0, crypto.VectorScale(r1, x))
	tx := crypto.ScalarVectorInnerProduct(l, r)

	taux := tau2.Mul(x.Mul(x)).Add(tau1.Mul(x)).Add(zSq.Mul(blinding))
	mu := alpha.Add(rho.Mul(x))

	hPrime := weightedGenerators(hv, crypto.PowerVector(y.Invert(), n))

	L, R, aFinal, bFinal := innerProductArgument(gv, hPrime, l, r)

	return &Proof{
		A: A, S: S, T1: T1, T2: T2,
		Taux: taux, Mu: mu, Tx: tx,
		L: L, R: R, AFinal: aFinal, BFinal: bFinal,
	}, nil
}

// Verify checks a single range proof against commitment.
func Verify(cache *GeneratorCache, commitment crypto.Point, bitWidth int, proof *Proof) error {
	return VerifyBatch(cache, []crypto.Point{commitment}, bitWidth, []*Proof{proof})
}

// VerifyBatch checks m range proofs, sharing one generator cache
// across the whole batch so its derivation cost is paid once.
func VerifyBatch(cache *GeneratorCache, commitments []crypto.Point, bitWidth int, proofs []*Proof) error {
	if err := checkBitWidth(bitWidth); err != nil {
		return err
	}
	if len(commitments) != len(proofs) {
		return ErrBatchLengthMismatch
	}
	n := bitWidth
	gv, hv := cache.Vectors(n)

	for idx, proof := range proofs {
		commitment := commitments[idx]

		tr := crypto.NewTranscript(challengeDomain)
		tr.UpdatePoint(commitment)
		tr.UpdatePoint(proof.A)
		tr.UpdatePoint(proof.S)
		y := tr.Challenge()
		tr.UpdateScalar(y)
		z := tr.Challenge()
		tr.UpdatePoint(proof.T1)
		tr.UpdatePoint(proof.T2)
		x := tr.Challenge()
		if y.IsZero() || z.IsZero() || x.IsZero() {
			return ErrProofRejected
		}

		zSq := z.Mul(z)
		yPow := crypto.PowerVector(y, n)
		twoPow := crypto.PowerVector(scalarFromU64(2), n)
		delta := deltaYZ(yPow, twoPow, z, zSq)

		lhs := crypto.HPoint.Mul(proof.Tx).Add(crypto.BaseMul(proof.Taux))
		rhs := commitment.Mul(zSq).Add(crypto.HPoint.Mul(delta)).Add(proof.T1.Mul(x)).Add(proof.T2.Mul(x.Mul(x)))
		if !lhs.Equal(rhs) {
			return ErrProofRejected
		}

		hPrime := weightedGenerators(hv, crypto.PowerVector(y.Invert(), n))
		p := combinedCommitment(proof, x, z, zSq, yPow, twoPow, gv, hPrime)
		p = p.Sub(crypto.BaseMul(proof.Mu)).Add(ipaGenerator.Mul(proof.Tx))

		if err := verifyInnerProductArgument(gv, hPrime, proof.L, proof.R, proof.AFinal, proof.BFinal, p); err != nil {
			return err
		}
	}
	return nil
}

// combinedCommitment rebuilds P = A + x*S - z*sum(G_i) + sum((z*y^i + z^2*2^i) * H'_i),
// the public commitment to the (l, r) vectors the inner-product
// argument proves knowledge of; hv carries H'_i = y^-i * H_i.
func combinedCommitment(proof *Proof, x, z, zSq crypto.Scalar, yPow, twoPow []crypto.Scalar, gv, hv []crypto.Point) crypto.Point {
	n := len(gv)
	p := proof.A.Add(proof.S.Mul(x))

	negZ := z.Negate()
	for i := 0; i < n; i++ {
		p = p.Add(gv[i].Mul(negZ))
	}
	for i := 0; i < n; i++ {
		term := yPow[i].Mul(z).Add(zSq.Mul(twoPow[i]))
		p = p.Add(hv[i].Mul(term))
	}
	return p
}

func deltaYZ(yPow, twoPow []crypto.Scalar, z, zSq crypto.Scalar) crypto.Scalar {
	n := len(yPow)
	sumY := crypto.ZeroScalar
	sumTwo := crypto.ZeroScalar
	for i := 0; i < n; i++ {
		sumY = sumY.Add(yPow[i])
		sumTwo = sumTwo.Add(twoPow[i])
	}
	zCubed := zSq.Mul(z)
	term1 := z.Sub(zSq).Mul(sumY)
	term2 := zCubed.Mul(sumTwo)
	return term1.Sub(term2)
}

func weightedGenerators(base []crypto.Point, weights []crypto.Scalar) []crypto.Point {
	out := make([]crypto.Point, len(base))
	for i := range base {
		out[i] = base[i].Mul(weights[i])
	}
	return out
}

func randomVector(n int) []crypto.Scalar {
	out := make([]crypto.Scalar, n)
	for i := range out {
		s, err := crypto.RandomScalar()
		if err != nil {
			s = crypto.ZeroScalar
		}
		out[i] = s
	}
	return out
}

func fill(n int, v crypto.Scalar) []crypto.Scalar {
	out := make([]crypto.Scalar, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func hadamard(a, b []crypto.Scalar) []crypto.Scalar {
	out := make([]crypto.Scalar, len(a))
	for i := range a {
		out[i] = a[i].Mul(b[i])
	}
	return out
}

func scalarFromU64(v uint64) crypto.Scalar {
	var buf [32]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * uint(i)))
	}
	return crypto.ScalarReduce(buf[:])
}
