package bulletproof

import "github.com/Klingon-tech/klingnet-chain/pkg/crypto"

// ipaGenerator is the extra generator U the inner-product argument
// binds the claimed inner product to, independent of G and H.
var ipaGenerator = crypto.HashToPoint([]byte(ippDomain), []byte("U"))

// innerProductArgument recursively halves (G, H, l, r) through
// log2(n) rounds, publishing one (L,R) commitment pair per round and
// folding the challenge transcript forward, until a single (a,b)
// scalar pair remains.
func innerProductArgument(g, h []crypto.Point, l, r []crypto.Scalar) ([]crypto.Point, []crypto.Point, crypto.Scalar, crypto.Scalar) {
	tr := crypto.NewTranscript(ippDomain)
	return ipaRound(tr, g, h, l, r, nil, nil)
}

func ipaRound(tr *crypto.Transcript, g, h []crypto.Point, l, r []crypto.Scalar, Ls, Rs []crypto.Point) ([]crypto.Point, []crypto.Point, crypto.Scalar, crypto.Scalar) {
	n := len(l)
	if n == 1 {
		return Ls, Rs, l[0], r[0]
	}
	half := n / 2
	lL, lR := l[:half], l[half:]
	rL, rR := r[:half], r[half:]
	gL, gR := g[:half], g[half:]
	hL, hR := h[:half], h[half:]

	cL := crypto.ScalarVectorInnerProduct(lL, rR)
	cR := crypto.ScalarVectorInnerProduct(lR, rL)
	L := crypto.MultiScalarMul(lL, gR).Add(crypto.MultiScalarMul(rR, hL)).Add(ipaGenerator.Mul(cL))
	R := crypto.MultiScalarMul(lR, gL).Add(crypto.MultiScalarMul(rL, hR)).Add(ipaGenerator.Mul(cR))

	tr.UpdatePoint(L)
	tr.UpdatePoint(R)
	u := tr.Challenge()
	uInv := u.Invert()

	lNext := crypto.VectorAdd(crypto.VectorScale(lL, u), crypto.VectorScale(lR, uInv))
	rNext := crypto.VectorAdd(crypto.VectorScale(rL, uInv), crypto.VectorScale(rR, u))
	gNext := make([]crypto.Point, half)
	hNext := make([]crypto.Point, half)
	for i := 0; i < half; i++ {
		gNext[i] = gL[i].Mul(uInv).Add(gR[i].Mul(u))
		hNext[i] = hL[i].Mul(u).Add(hR[i].Mul(uInv))
	}

	return ipaRound(tr, gNext, hNext, lNext, rNext, append(Ls, L), append(Rs, R))
}

// verifyInnerProductArgument recomputes the per-round challenges from
// the published (L,R) pairs, folds (G,H) down to a single generator
// pair, and checks P + sum(u_j^2*L_j) + sum(u_j^-2*R_j) equals
// a*Gfinal + b*Hfinal + (a*b)*U.
func verifyInnerProductArgument(g, h []crypto.Point, Ls, Rs []crypto.Point, a, b crypto.Scalar, p crypto.Point) error {
	tr := crypto.NewTranscript(ippDomain)
	acc := p
	n := len(g)

	for round := 0; n > 1; round++ {
		if round >= len(Ls) || round >= len(Rs) {
			return ErrProofRejected
		}
		L, R := Ls[round], Rs[round]
		tr.UpdatePoint(L)
		tr.UpdatePoint(R)
		u := tr.Challenge()
		if u.IsZero() {
			return ErrProofRejected
		}
		uInv := u.Invert()

		half := n / 2
		gNext := make([]crypto.Point, half)
		hNext := make([]crypto.Point, half)
		for i := 0; i < half; i++ {
			gNext[i] = g[i].Mul(uInv).Add(g[half+i].Mul(u))
			hNext[i] = h[i].Mul(u).Add(h[half+i].Mul(uInv))
		}
		g, h = gNext, hNext

		acc = acc.Add(L.Mul(u.Square())).Add(R.Mul(uInv.Square()))
		n = half
	}

	rhs := g[0].Mul(a).Add(h[0].Mul(b)).Add(ipaGenerator.Mul(a.Mul(b)))
	if !acc.Equal(rhs) {
		return ErrProofRejected
	}
	return nil
}
