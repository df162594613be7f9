package bulletproof

import "github.com/Klingon-tech/klingnet-chain/pkg/crypto"

// plusDomain separates Bulletproofs+ transcripts from the original
// Bulletproofs construction; the two schemes must never be confused
// for one another even when proving the same statement.
const plusDomain = "bulletproof-plus-challenge"

// etaGenerator is Bulletproofs+'s extra blinding generator, bound to
// the weighted inner-product argument's eta term.
var etaGenerator = crypto.HashToPoint([]byte(plusDomain), []byte("eta"))

// ProofPlus is a single Bulletproofs+ range proof. It replaces BP's
// (T1, T2, Taux, Mu, Tx) with a single (A, B) commitment pair and a
// final (R1, S1, D1) scalar triple, with the inner-product recursion
// weighted by powers of y and the eta blinding scalar.
type ProofPlus struct {
	A, B   crypto.Point
	R1, S1 crypto.Scalar
	D1     crypto.Scalar
	L, R   []crypto.Point
}

// ProvePlus proves that amount lies in [0, 2^bitWidth) under the
// Pedersen commitment blinding*G + amount*H, using the Bulletproofs+
// construction.
func ProvePlus(cache *GeneratorCache, amount uint64, blinding crypto.Scalar, bitWidth int) (*ProofPlus, error) {
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

	alpha1, err := crypto.RandomScalar()
	if err != nil {
		return nil, err
	}
	A := crypto.MultiScalarMul(aL, gv).Add(crypto.MultiScalarMul(aR, hv)).Add(crypto.BaseMul(alpha1))

	commitment := crypto.BaseMul(blinding).Add(crypto.HPoint.Mul(scalarFromU64(amount)))
	tr := crypto.NewTranscript(plusDomain)
	tr.UpdatePoint(commitment)
	tr.UpdatePoint(A)
	y := tr.Challenge()
	tr.UpdateScalar(y)
	z := tr.Challenge()
	if y.IsZero() || z.IsZero() {
		return ProvePlus(cache, amount, blinding, bitWidth)
	}

	yPow := crypto.PowerVector(y, n)
	twoPow := crypto.PowerVector(scalarFromU64(2), n)
	zSq := z.Mul(z)

	dVec := make([]crypto.Scalar, n)
	for i := 0; i < n; i++ {
		dVec[i] = zSq.Mul(twoPow[i])
	}

	l := crypto.VectorSub(aL, fill(n, z))
	rBase := crypto.VectorAdd(aR, fill(n, z))
	r := make([]crypto.Scalar, n)
	for i := 0; i < n; i++ {
		r[i] = yPow[i].Mul(rBase[i]).Add(dVec[i])
	}

	eta, err := crypto.RandomScalar()
	if err != nil {
		return nil, err
	}
	alpha2, err := crypto.RandomScalar()
	if err != nil {
		return nil, err
	}
	t := crypto.ScalarVectorInnerProduct(l, r)
	B := crypto.HPoint.Mul(t).Add(crypto.BaseMul(alpha2)).Add(etaGenerator.Mul(eta))

	tr.UpdatePoint(B)
	x := tr.Challenge()
	if x.IsZero() {
		return ProvePlus(cache, amount, blinding, bitWidth)
	}

	d1 := alpha2.Add(x.Mul(zSq.Mul(blinding))).Add(x.Mul(x).Mul(alpha1))

	hPrime := weightedGenerators(hv, crypto.PowerVector(y.Invert(), n))
	L, R, aFinal, bFinal := innerProductArgument(gv, hPrime, l, r)

	r1 := aFinal.Add(x.Mul(eta))
	s1 := bFinal

	return &ProofPlus{A: A, B: B, R1: r1, S1: s1, D1: d1, L: L, R: R}, nil
}

// VerifyPlus checks a single Bulletproofs+ range proof against
// commitment.
func VerifyPlus(cache *GeneratorCache, commitment crypto.Point, bitWidth int, proof *ProofPlus) error {
	return VerifyBatchPlus(cache, []crypto.Point{commitment}, bitWidth, []*ProofPlus{proof})
}

// VerifyBatchPlus checks m Bulletproofs+ range proofs, sharing one
// generator cache across the batch.
func VerifyBatchPlus(cache *GeneratorCache, commitments []crypto.Point, bitWidth int, proofs []*ProofPlus) error {
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

		tr := crypto.NewTranscript(plusDomain)
		tr.UpdatePoint(commitment)
		tr.UpdatePoint(proof.A)
		y := tr.Challenge()
		tr.UpdateScalar(y)
		z := tr.Challenge()
		tr.UpdatePoint(proof.B)
		x := tr.Challenge()
		if y.IsZero() || z.IsZero() || x.IsZero() {
			return ErrProofRejected
		}

		zSq := z.Mul(z)
		yPow := crypto.PowerVector(y, n)
		twoPow := crypto.PowerVector(scalarFromU64(2), n)

		// p reconstructs the public commitment to (l, r) that the
		// weighted inner-product argument proves knowledge of, folding
		// in the claimed response (r1, s1) via the final check below.
		p := proof.A
		negZ := z.Negate()
		for i := 0; i < n; i++ {
			p = p.Add(gv[i].Mul(negZ))
		}
		for i := 0; i < n; i++ {
			term := yPow[i].Mul(z).Add(zSq.Mul(twoPow[i]))
			p = p.Add(hv[i].Mul(term))
		}
		p = p.Add(proof.B.Mul(x)).Sub(crypto.BaseMul(proof.D1))

		hPrime := weightedGenerators(hv, crypto.PowerVector(y.Invert(), n))
		pPrime := p.Add(ipaGenerator.Mul(proof.R1.Mul(proof.S1)))

		if err := verifyInnerProductArgument(gv, hPrime, proof.L, proof.R, proof.R1, proof.S1, pPrime); err != nil {
			return err
		}
	}
	return nil
}
