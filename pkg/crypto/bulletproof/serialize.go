package bulletproof

import (
	"bytes"
	"errors"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

// ErrTruncated is returned when a proof blob ends before a field it
// promised to carry.
var ErrTruncated = errors.New("bulletproof: truncated proof encoding")

func appendPoint(buf []byte, p crypto.Point) []byte {
	b := p.Bytes()
	return append(buf, b[:]...)
}

func appendScalar(buf []byte, s crypto.Scalar) []byte {
	return append(buf, s.Bytes()...)
}

func readPoint(r *bytes.Reader) (crypto.Point, error) {
	var b [crypto.PointSize]byte
	if _, err := readFull(r, b[:]); err != nil {
		return crypto.Point{}, err
	}
	return crypto.NewPoint(b[:])
}

func readScalar(r *bytes.Reader) (crypto.Scalar, error) {
	var b [crypto.ScalarSize]byte
	if _, err := readFull(r, b[:]); err != nil {
		return crypto.Scalar{}, err
	}
	return crypto.NewScalarCanonical(b[:])
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, ErrTruncated
		}
	}
	return n, nil
}

// Bytes encodes a single Bulletproofs proof: fixed-size points and
// scalars followed by varint-prefixed L/R vectors.
func (p *Proof) Bytes() []byte {
	var buf []byte
	buf = appendPoint(buf, p.A)
	buf = appendPoint(buf, p.S)
	buf = appendPoint(buf, p.T1)
	buf = appendPoint(buf, p.T2)
	buf = appendScalar(buf, p.Taux)
	buf = appendScalar(buf, p.Mu)
	buf = appendScalar(buf, p.Tx)
	buf = appendScalar(buf, p.AFinal)
	buf = appendScalar(buf, p.BFinal)
	buf = types.PutVarint(buf, uint64(len(p.L)))
	for i := range p.L {
		buf = appendPoint(buf, p.L[i])
		buf = appendPoint(buf, p.R[i])
	}
	return buf
}

func decodeProof(r *bytes.Reader) (*Proof, error) {
	p := &Proof{}
	var err error
	if p.A, err = readPoint(r); err != nil {
		return nil, err
	}
	if p.S, err = readPoint(r); err != nil {
		return nil, err
	}
	if p.T1, err = readPoint(r); err != nil {
		return nil, err
	}
	if p.T2, err = readPoint(r); err != nil {
		return nil, err
	}
	if p.Taux, err = readScalar(r); err != nil {
		return nil, err
	}
	if p.Mu, err = readScalar(r); err != nil {
		return nil, err
	}
	if p.Tx, err = readScalar(r); err != nil {
		return nil, err
	}
	if p.AFinal, err = readScalar(r); err != nil {
		return nil, err
	}
	if p.BFinal, err = readScalar(r); err != nil {
		return nil, err
	}
	count, err := types.ReadVarint(r)
	if err != nil {
		return nil, ErrTruncated
	}
	p.L = make([]crypto.Point, count)
	p.R = make([]crypto.Point, count)
	for i := range p.L {
		if p.L[i], err = readPoint(r); err != nil {
			return nil, err
		}
		if p.R[i], err = readPoint(r); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// EncodeProofs packs a per-output-commitment list of proofs into a
// single transaction-level range-proof blob.
func EncodeProofs(proofs []*Proof) []byte {
	var buf []byte
	buf = types.PutVarint(buf, uint64(len(proofs)))
	for _, p := range proofs {
		pb := p.Bytes()
		buf = types.PutVarint(buf, uint64(len(pb)))
		buf = append(buf, pb...)
	}
	return buf
}

// DecodeProofs unpacks a transaction-level range-proof blob produced
// by EncodeProofs.
func DecodeProofs(b []byte) ([]*Proof, error) {
	r := bytes.NewReader(b)
	count, err := types.ReadVarint(r)
	if err != nil {
		return nil, ErrTruncated
	}
	proofs := make([]*Proof, count)
	for i := range proofs {
		length, err := types.ReadVarint(r)
		if err != nil {
			return nil, ErrTruncated
		}
		raw := make([]byte, length)
		if _, err := readFull(r, raw); err != nil {
			return nil, err
		}
		proofs[i], err = decodeProof(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
	}
	return proofs, nil
}

// Bytes encodes a single Bulletproofs+ proof.
func (p *ProofPlus) Bytes() []byte {
	var buf []byte
	buf = appendPoint(buf, p.A)
	buf = appendPoint(buf, p.B)
	buf = appendScalar(buf, p.R1)
	buf = appendScalar(buf, p.S1)
	buf = appendScalar(buf, p.D1)
	buf = types.PutVarint(buf, uint64(len(p.L)))
	for i := range p.L {
		buf = appendPoint(buf, p.L[i])
		buf = appendPoint(buf, p.R[i])
	}
	return buf
}

func decodeProofPlus(r *bytes.Reader) (*ProofPlus, error) {
	p := &ProofPlus{}
	var err error
	if p.A, err = readPoint(r); err != nil {
		return nil, err
	}
	if p.B, err = readPoint(r); err != nil {
		return nil, err
	}
	if p.R1, err = readScalar(r); err != nil {
		return nil, err
	}
	if p.S1, err = readScalar(r); err != nil {
		return nil, err
	}
	if p.D1, err = readScalar(r); err != nil {
		return nil, err
	}
	count, err := types.ReadVarint(r)
	if err != nil {
		return nil, ErrTruncated
	}
	p.L = make([]crypto.Point, count)
	p.R = make([]crypto.Point, count)
	for i := range p.L {
		if p.L[i], err = readPoint(r); err != nil {
			return nil, err
		}
		if p.R[i], err = readPoint(r); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// EncodeProofsPlus packs a per-output-commitment list of
// Bulletproofs+ proofs into a single transaction-level blob.
func EncodeProofsPlus(proofs []*ProofPlus) []byte {
	var buf []byte
	buf = types.PutVarint(buf, uint64(len(proofs)))
	for _, p := range proofs {
		pb := p.Bytes()
		buf = types.PutVarint(buf, uint64(len(pb)))
		buf = append(buf, pb...)
	}
	return buf
}

// DecodeProofsPlus unpacks a blob produced by EncodeProofsPlus.
func DecodeProofsPlus(b []byte) ([]*ProofPlus, error) {
	r := bytes.NewReader(b)
	count, err := types.ReadVarint(r)
	if err != nil {
		return nil, ErrTruncated
	}
	proofs := make([]*ProofPlus, count)
	for i := range proofs {
		length, err := types.ReadVarint(r)
		if err != nil {
			return nil, ErrTruncated
		}
		raw := make([]byte, length)
		if _, err := readFull(r, raw); err != nil {
			return nil, err
		}
		proofs[i], err = decodeProofPlus(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
	}
	return proofs, nil
}
