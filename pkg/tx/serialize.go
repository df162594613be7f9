package tx

import (
	"bytes"

	"github.com/Klingon-tech/klingnet-chain/pkg/crypto"
	"github.com/Klingon-tech/klingnet-chain/pkg/types"
)

const (
	inputTagBase byte = 0xff
	inputTagKey  byte = 0x02
)

// Bytes returns the canonical serialization of the prefix: version,
// unlock-time, varint-prefixed input list, varint-prefixed output
// list, and a varint-prefixed extra blob.
func (p *Prefix) Bytes() []byte {
	var buf []byte
	buf = types.PutVarint(buf, uint64(p.Version))
	buf = types.PutVarint(buf, p.UnlockTime)

	buf = types.PutVarint(buf, uint64(len(p.Inputs)))
	for _, in := range p.Inputs {
		buf = appendInput(buf, in)
	}

	buf = types.PutVarint(buf, uint64(len(p.Outputs)))
	for _, out := range p.Outputs {
		buf = types.PutVarint(buf, out.Amount)
		t := out.Target.Bytes()
		buf = append(buf, t[:]...)
	}

	buf = types.PutVarint(buf, uint64(len(p.Extra)))
	buf = append(buf, p.Extra...)
	return buf
}

func appendInput(buf []byte, in Input) []byte {
	if in.Base != nil {
		buf = append(buf, inputTagBase)
		buf = types.PutVarint(buf, in.Base.BlockIndex)
		return buf
	}
	buf = append(buf, inputTagKey)
	buf = types.PutVarint(buf, in.Key.Amount)
	buf = types.PutVarint(buf, uint64(len(in.Key.Offsets)))
	for _, off := range in.Key.Offsets {
		buf = types.PutVarint(buf, off)
	}
	img := in.Key.KeyImage.Bytes()
	buf = append(buf, img[:]...)
	return buf
}

// DecodePrefix parses a Prefix from its canonical encoding, returning
// any trailing bytes left unconsumed.
func DecodePrefix(b []byte) (Prefix, []byte, error) {
	r := bytes.NewReader(b)

	version, err := types.ReadVarint(r)
	if err != nil {
		return Prefix{}, nil, ErrTruncated
	}
	unlockTime, err := types.ReadVarint(r)
	if err != nil {
		return Prefix{}, nil, ErrTruncated
	}

	inputCount, err := types.ReadVarint(r)
	if err != nil {
		return Prefix{}, nil, ErrTruncated
	}
	inputs := make([]Input, inputCount)
	for i := range inputs {
		in, err := readInput(r)
		if err != nil {
			return Prefix{}, nil, err
		}
		inputs[i] = in
	}

	outputCount, err := types.ReadVarint(r)
	if err != nil {
		return Prefix{}, nil, ErrTruncated
	}
	outputs := make([]Output, outputCount)
	for i := range outputs {
		amount, err := types.ReadVarint(r)
		if err != nil {
			return Prefix{}, nil, ErrTruncated
		}
		var enc [crypto.PointSize]byte
		if _, err := readFull(r, enc[:]); err != nil {
			return Prefix{}, nil, ErrTruncated
		}
		target, err := crypto.NewPoint(enc[:])
		if err != nil {
			return Prefix{}, nil, err
		}
		outputs[i] = Output{Amount: amount, Target: target}
	}

	extraLen, err := types.ReadVarint(r)
	if err != nil {
		return Prefix{}, nil, ErrTruncated
	}
	extra := make([]byte, extraLen)
	if _, err := readFull(r, extra); err != nil {
		return Prefix{}, nil, ErrTruncated
	}

	rest := make([]byte, r.Len())
	if _, err := readFull(r, rest); err != nil {
		return Prefix{}, nil, ErrTruncated
	}

	return Prefix{
		Version:    uint32(version),
		UnlockTime: unlockTime,
		Inputs:     inputs,
		Outputs:    outputs,
		Extra:      extra,
	}, rest, nil
}

func readInput(r *bytes.Reader) (Input, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return Input{}, ErrTruncated
	}
	switch tag {
	case inputTagBase:
		idx, err := types.ReadVarint(r)
		if err != nil {
			return Input{}, ErrTruncated
		}
		return Input{Base: &BaseInput{BlockIndex: idx}}, nil
	case inputTagKey:
		amount, err := types.ReadVarint(r)
		if err != nil {
			return Input{}, ErrTruncated
		}
		offsetCount, err := types.ReadVarint(r)
		if err != nil {
			return Input{}, ErrTruncated
		}
		offsets := make([]uint64, offsetCount)
		for i := range offsets {
			offsets[i], err = types.ReadVarint(r)
			if err != nil {
				return Input{}, ErrTruncated
			}
		}
		var enc [crypto.PointSize]byte
		if _, err := readFull(r, enc[:]); err != nil {
			return Input{}, ErrTruncated
		}
		img, err := crypto.NewPoint(enc[:])
		if err != nil {
			return Input{}, err
		}
		return Input{Key: &KeyInput{Amount: amount, Offsets: offsets, KeyImage: img}}, nil
	default:
		return Input{}, ErrUnknownInputType
	}
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

// Bytes returns the canonical serialization of the full transaction:
// the prefix, followed by the signature scheme tag and its scalar
// vectors, the pseudo-output commitments, and the range-proof bundle.
func (t *Transaction) Bytes() []byte {
	buf := t.Prefix.Bytes()
	buf = append(buf, byte(t.SignatureScheme))

	switch t.SignatureScheme {
	case SchemeBorromean:
		buf = types.PutVarint(buf, uint64(len(t.BorromeanSigs)))
		for _, s := range t.BorromeanSigs {
			buf = append(buf, s.C.Bytes()...)
			buf = types.PutVarint(buf, uint64(len(s.L)))
			for i := range s.L {
				buf = append(buf, s.L[i].Bytes()...)
				buf = append(buf, s.R[i].Bytes()...)
			}
		}
	case SchemeCLSAG:
		buf = types.PutVarint(buf, uint64(len(t.CLSAGSigs)))
		for _, s := range t.CLSAGSigs {
			buf = append(buf, s.C0.Bytes()...)
			buf = types.PutVarint(buf, uint64(len(s.S)))
			for _, sc := range s.S {
				buf = append(buf, sc.Bytes()...)
			}
			if s.CommitmentAware {
				buf = append(buf, 1)
				enc := s.CommitmentKeyImg.Bytes()
				buf = append(buf, enc[:]...)
			} else {
				buf = append(buf, 0)
			}
		}
	}

	buf = types.PutVarint(buf, uint64(len(t.PseudoOutputs)))
	for _, p := range t.PseudoOutputs {
		enc := p.Bytes()
		buf = append(buf, enc[:]...)
	}

	buf = append(buf, byte(t.RangeProofScheme))
	buf = types.PutVarint(buf, uint64(len(t.RangeProofBlob)))
	buf = append(buf, t.RangeProofBlob...)

	buf = types.PutVarint(buf, uint64(len(t.OutputCommitments)))
	for _, c := range t.OutputCommitments {
		enc := c.Bytes()
		buf = append(buf, enc[:]...)
	}

	return buf
}

// DecodeTransaction parses a Transaction from its canonical encoding.
func DecodeTransaction(b []byte) (*Transaction, error) {
	prefix, rest, err := DecodePrefix(b)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(rest)

	schemeByte, err := r.ReadByte()
	if err != nil {
		return nil, ErrTruncated
	}
	t := &Transaction{Prefix: prefix, SignatureScheme: SignatureScheme(schemeByte)}

	switch t.SignatureScheme {
	case SchemeBorromean:
		count, err := types.ReadVarint(r)
		if err != nil {
			return nil, ErrTruncated
		}
		t.BorromeanSigs = make([]BorromeanSig, count)
		for i := range t.BorromeanSigs {
			c, err := readScalar(r)
			if err != nil {
				return nil, err
			}
			n, err := types.ReadVarint(r)
			if err != nil {
				return nil, ErrTruncated
			}
			l := make([]crypto.Scalar, n)
			rr := make([]crypto.Scalar, n)
			for j := range l {
				if l[j], err = readScalar(r); err != nil {
					return nil, err
				}
				if rr[j], err = readScalar(r); err != nil {
					return nil, err
				}
			}
			t.BorromeanSigs[i] = BorromeanSig{C: c, L: l, R: rr}
		}
	case SchemeCLSAG:
		count, err := types.ReadVarint(r)
		if err != nil {
			return nil, ErrTruncated
		}
		t.CLSAGSigs = make([]CLSAGSig, count)
		for i := range t.CLSAGSigs {
			c0, err := readScalar(r)
			if err != nil {
				return nil, err
			}
			n, err := types.ReadVarint(r)
			if err != nil {
				return nil, ErrTruncated
			}
			s := make([]crypto.Scalar, n)
			for j := range s {
				if s[j], err = readScalar(r); err != nil {
					return nil, err
				}
			}
			awareByte, err := r.ReadByte()
			if err != nil {
				return nil, ErrTruncated
			}
			sig := CLSAGSig{S: s, C0: c0, CommitmentAware: awareByte == 1}
			if sig.CommitmentAware {
				var enc [crypto.PointSize]byte
				if _, err := readFull(r, enc[:]); err != nil {
					return nil, ErrTruncated
				}
				img, err := crypto.NewPoint(enc[:])
				if err != nil {
					return nil, err
				}
				sig.CommitmentKeyImg = img
			}
			t.CLSAGSigs[i] = sig
		}
	}

	pseudoCount, err := types.ReadVarint(r)
	if err != nil {
		return nil, ErrTruncated
	}
	t.PseudoOutputs = make([]crypto.Point, pseudoCount)
	for i := range t.PseudoOutputs {
		p, err := readPoint(r)
		if err != nil {
			return nil, err
		}
		t.PseudoOutputs[i] = p
	}

	rpScheme, err := r.ReadByte()
	if err != nil {
		return nil, ErrTruncated
	}
	t.RangeProofScheme = RangeProofScheme(rpScheme)

	blobLen, err := types.ReadVarint(r)
	if err != nil {
		return nil, ErrTruncated
	}
	blob := make([]byte, blobLen)
	if _, err := readFull(r, blob); err != nil {
		return nil, ErrTruncated
	}
	t.RangeProofBlob = blob

	commitCount, err := types.ReadVarint(r)
	if err != nil {
		return nil, ErrTruncated
	}
	t.OutputCommitments = make([]crypto.Point, commitCount)
	for i := range t.OutputCommitments {
		c, err := readPoint(r)
		if err != nil {
			return nil, err
		}
		t.OutputCommitments[i] = c
	}

	return t, nil
}

func readScalar(r *bytes.Reader) (crypto.Scalar, error) {
	var enc [crypto.ScalarSize]byte
	if _, err := readFull(r, enc[:]); err != nil {
		return crypto.Scalar{}, ErrTruncated
	}
	s, err := crypto.NewScalarCanonical(enc[:])
	if err != nil {
		return crypto.Scalar{}, err
	}
	return s, nil
}

func readPoint(r *bytes.Reader) (crypto.Point, error) {
	var enc [crypto.PointSize]byte
	if _, err := readFull(r, enc[:]); err != nil {
		return crypto.Point{}, ErrTruncated
	}
	return crypto.NewPoint(enc[:])
}
