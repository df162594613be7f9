package crypto

// ScalarVectorInnerProduct returns sum(a_i * b_i) mod l. Panics if the
// vectors differ in length — a programmer error at every call site.
func ScalarVectorInnerProduct(a, b []Scalar) Scalar {
	if len(a) != len(b) {
		panic("crypto: inner product of mismatched-length scalar vectors")
	}
	acc := ZeroScalar
	for i := range a {
		acc = acc.Add(a[i].Mul(b[i]))
	}
	return acc
}

// MultiScalarMul returns sum(scalars_i * points_i), the multi-scalar
// multiplication the Bulletproofs and Bulletproofs+ provers and the
// inner-product argument use to build vector commitments. The
// verifiers do not call it.
func MultiScalarMul(scalars []Scalar, points []Point) Point {
	if len(scalars) != len(points) {
		panic("crypto: multi-scalar-mul of mismatched-length vectors")
	}
	acc := IdentityPoint
	for i := range scalars {
		acc = acc.Add(points[i].Mul(scalars[i]))
	}
	return acc
}

// VectorAdd returns the elementwise sum of two scalar vectors.
func VectorAdd(a, b []Scalar) []Scalar {
	out := make([]Scalar, len(a))
	for i := range a {
		out[i] = a[i].Add(b[i])
	}
	return out
}

// VectorSub returns the elementwise difference of two scalar vectors.
func VectorSub(a, b []Scalar) []Scalar {
	out := make([]Scalar, len(a))
	for i := range a {
		out[i] = a[i].Sub(b[i])
	}
	return out
}

// VectorScale multiplies every element of v by s.
func VectorScale(v []Scalar, s Scalar) []Scalar {
	out := make([]Scalar, len(v))
	for i := range v {
		out[i] = v[i].Mul(s)
	}
	return out
}

// PowerVector returns [1, x, x^2, ..., x^(n-1)].
func PowerVector(x Scalar, n int) []Scalar {
	out := make([]Scalar, n)
	out[0] = OneScalar
	for i := 1; i < n; i++ {
		out[i] = out[i-1].Mul(x)
	}
	return out
}
