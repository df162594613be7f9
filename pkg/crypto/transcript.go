package crypto

// Transcript is a deterministic Fiat-Shamir scalar accumulator. Given the
// same sequence of Update calls, Challenge returns a bitwise-identical
// scalar regardless of which implementation produced it.
type Transcript struct {
	state Scalar
}

// NewTranscript starts a transcript seeded with a fixed domain separator.
func NewTranscript(domain string) *Transcript {
	return &Transcript{state: HashToScalar([]byte(domain))}
}

// Clone returns an independent copy of t that can be updated without
// affecting the original.
func (t *Transcript) Clone() *Transcript {
	return &Transcript{state: t.state}
}

// UpdateScalar folds a scalar into the transcript state.
func (t *Transcript) UpdateScalar(s Scalar) *Transcript {
	t.state = HashToScalar(t.state.Bytes(), s.Bytes())
	return t
}

// UpdatePoint folds a point into the transcript state.
func (t *Transcript) UpdatePoint(p Point) *Transcript {
	b := p.Bytes()
	t.state = HashToScalar(t.state.Bytes(), b[:])
	return t
}

// UpdateBytes folds a raw byte string into the transcript state.
func (t *Transcript) UpdateBytes(b []byte) *Transcript {
	t.state = HashToScalar(t.state.Bytes(), b)
	return t
}

// UpdatePoints folds a vector of points in order.
func (t *Transcript) UpdatePoints(ps []Point) *Transcript {
	for _, p := range ps {
		t.UpdatePoint(p)
	}
	return t
}

// UpdateScalars folds a vector of scalars in order.
func (t *Transcript) UpdateScalars(ss []Scalar) *Transcript {
	for _, s := range ss {
		t.UpdateScalar(s)
	}
	return t
}

// Challenge returns the transcript's current state as a challenge scalar.
// Callers that use the result as a divisor or exponent in a proof must
// check IsZero themselves and restart proving with fresh randomness; a
// verifier facing a zero challenge simply rejects the proof.
func (t *Transcript) Challenge() Scalar {
	return t.state
}
