package crypto

import (
	"errors"
	"math/big"
)

// PointSize is the width of a compressed point encoding.
const PointSize = 32

// fieldP is the Ed25519 base field prime, 2^255 - 19.
var fieldP = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(19))

// paramD is the twisted-Edwards curve parameter d = -121665/121666 mod p.
var paramD = func() *big.Int {
	d := new(big.Int).ModInverse(big.NewInt(121666), fieldP)
	d.Mul(d, big.NewInt(-121665))
	return d.Mod(d, fieldP)
}()

// sqrtMinus1 = 2^((p-1)/4) mod p, used by the standard Ed25519 square-root
// algorithm (p ≡ 5 mod 8).
var sqrtMinus1 = func() *big.Int {
	exp := new(big.Int).Rsh(new(big.Int).Sub(fieldP, big.NewInt(1)), 2)
	return new(big.Int).Exp(big.NewInt(2), exp, fieldP)
}()

// ErrInvalidPoint is returned when a byte string does not decode to a
// point on the curve.
var ErrInvalidPoint = errors.New("crypto: invalid point encoding")

// extPoint holds a point in extended twisted-Edwards coordinates
// (X:Y:Z:T) with x=X/Z, y=Y/Z, xy=T/Z.
type extPoint struct {
	X, Y, Z, T *big.Int
}

func extIdentity() *extPoint {
	return &extPoint{X: big.NewInt(0), Y: big.NewInt(1), Z: big.NewInt(1), T: big.NewInt(0)}
}

func fmod(v *big.Int) *big.Int {
	return new(big.Int).Mod(v, fieldP)
}

// extAdd implements the unified Hisil-Wong-Carter-Dawson addition formula,
// valid for both distinct-point addition and doubling.
func extAdd(p1, p2 *extPoint) *extPoint {
	a := fmod(new(big.Int).Mul(new(big.Int).Sub(p1.Y, p1.X), new(big.Int).Sub(p2.Y, p2.X)))
	b := fmod(new(big.Int).Mul(new(big.Int).Add(p1.Y, p1.X), new(big.Int).Add(p2.Y, p2.X)))
	c := fmod(new(big.Int).Mul(new(big.Int).Mul(p1.T, p2.T), new(big.Int).Mul(big.NewInt(2), paramD)))
	d := fmod(new(big.Int).Mul(new(big.Int).Mul(p1.Z, big.NewInt(2)), p2.Z))
	e := fmod(new(big.Int).Sub(b, a))
	f := fmod(new(big.Int).Sub(d, c))
	g := fmod(new(big.Int).Add(d, c))
	h := fmod(new(big.Int).Add(b, a))
	return &extPoint{
		X: fmod(new(big.Int).Mul(e, f)),
		Y: fmod(new(big.Int).Mul(g, h)),
		Z: fmod(new(big.Int).Mul(f, g)),
		T: fmod(new(big.Int).Mul(e, h)),
	}
}

func extNegate(p *extPoint) *extPoint {
	return &extPoint{X: fmod(new(big.Int).Neg(p.X)), Y: new(big.Int).Set(p.Y), Z: new(big.Int).Set(p.Z), T: fmod(new(big.Int).Neg(p.T))}
}

func extScalarMul(p *extPoint, s Scalar) *extPoint {
	result := extIdentity()
	bits := s.ToBits()
	addend := p
	for i := 255; i >= 0; i-- {
		result = extAdd(result, result)
		if bits[i] {
			result = extAdd(result, addend)
		}
	}
	return result
}

func (p *extPoint) affine() (x, y *big.Int) {
	zInv := new(big.Int).ModInverse(p.Z, fieldP)
	if zInv == nil {
		return big.NewInt(0), big.NewInt(0)
	}
	x = fmod(new(big.Int).Mul(p.X, zInv))
	y = fmod(new(big.Int).Mul(p.Y, zInv))
	return x, y
}

func (p *extPoint) compress() [PointSize]byte {
	x, y := p.affine()
	var out [PointSize]byte
	yb := y.Bytes()
	for i := 0; i < len(yb); i++ {
		out[i] = yb[len(yb)-1-i]
	}
	if x.Bit(0) == 1 {
		out[31] |= 0x80
	}
	return out
}

// sqrtRatio computes a square root of u/v mod p using the standard
// Ed25519 decompression algorithm, returning ok=false if u/v is not a
// quadratic residue.
func sqrtRatio(u, v *big.Int) (root *big.Int, ok bool) {
	vInv := new(big.Int).ModInverse(v, fieldP)
	if vInv == nil {
		return nil, false
	}
	uv := fmod(new(big.Int).Mul(u, vInv))

	exp := new(big.Int).Add(new(big.Int).Rsh(fieldP, 3), big.NewInt(1)) // (p+3)/8
	cand := new(big.Int).Exp(uv, exp, fieldP)

	sq := fmod(new(big.Int).Mul(cand, cand))
	if sq.Cmp(uv) == 0 {
		return cand, true
	}
	candAlt := fmod(new(big.Int).Mul(cand, sqrtMinus1))
	sqAlt := fmod(new(big.Int).Mul(candAlt, candAlt))
	if sqAlt.Cmp(uv) == 0 {
		return candAlt, true
	}
	return nil, false
}

func extFromBytes(b [PointSize]byte) (*extPoint, error) {
	sign := b[31] >> 7
	yb := make([]byte, PointSize)
	copy(yb, b[:])
	yb[31] &= 0x7f
	be := make([]byte, PointSize)
	for i := 0; i < PointSize; i++ {
		be[PointSize-1-i] = yb[i]
	}
	y := new(big.Int).SetBytes(be)
	if y.Cmp(fieldP) >= 0 {
		return nil, ErrInvalidPoint
	}

	y2 := fmod(new(big.Int).Mul(y, y))
	u := fmod(new(big.Int).Sub(y2, big.NewInt(1)))
	v := fmod(new(big.Int).Add(new(big.Int).Mul(paramD, y2), big.NewInt(1)))

	x, ok := sqrtRatio(u, v)
	if !ok {
		return nil, ErrInvalidPoint
	}
	if x.Sign() == 0 && sign == 1 {
		return nil, ErrInvalidPoint
	}
	if x.Bit(0) != uint(sign) {
		x = fmod(new(big.Int).Neg(x))
	}
	return &extPoint{X: x, Y: y, Z: big.NewInt(1), T: fmod(new(big.Int).Mul(x, y))}, nil
}

// Point is an Ed25519 curve point, canonically compressed to 32 bytes.
// The decompressed extended-coordinate form is cached lazily.
type Point struct {
	enc [PointSize]byte
	ext *extPoint
}

// IdentityPoint is the group's neutral element Z = (0,1).
var IdentityPoint = Point{ext: extIdentity()}

func pointFromExt(p *extPoint) Point {
	return Point{enc: p.compress(), ext: p}
}

func (p *Point) decompressed() (*extPoint, error) {
	if p.ext != nil {
		return p.ext, nil
	}
	e, err := extFromBytes(p.enc)
	if err != nil {
		return nil, err
	}
	p.ext = e
	return e, nil
}

// Bytes returns the canonical compressed encoding of p.
func (p Point) Bytes() [PointSize]byte {
	if p.ext != nil {
		return p.ext.compress()
	}
	return p.enc
}

// Equal reports whether p and o represent the same curve point.
func (p Point) Equal(o Point) bool {
	return p.Bytes() == o.Bytes()
}

// CheckPoint reports whether b parses as a point on the curve (cofactor-8
// subgroup, not necessarily the prime-order subgroup).
func CheckPoint(b []byte) bool {
	if len(b) != PointSize {
		return false
	}
	var arr [PointSize]byte
	copy(arr[:], b)
	_, err := extFromBytes(arr)
	return err == nil
}

// NewPoint parses b as a compressed Ed25519 point.
func NewPoint(b []byte) (Point, error) {
	if len(b) != PointSize {
		return Point{}, ErrInvalidPoint
	}
	var arr [PointSize]byte
	copy(arr[:], b)
	ext, err := extFromBytes(arr)
	if err != nil {
		return Point{}, err
	}
	return Point{enc: arr, ext: ext}, nil
}

// Add returns p + o.
func (p Point) Add(o Point) Point {
	pe, _ := p.decompressed()
	oe, _ := o.decompressed()
	return pointFromExt(extAdd(pe, oe))
}

// Sub returns p - o.
func (p Point) Sub(o Point) Point {
	pe, _ := p.decompressed()
	oe, _ := o.decompressed()
	return pointFromExt(extAdd(pe, extNegate(oe)))
}

// Negate returns -p.
func (p Point) Negate() Point {
	pe, _ := p.decompressed()
	return pointFromExt(extNegate(pe))
}

// Mul returns s*p.
func (p Point) Mul(s Scalar) Point {
	pe, _ := p.decompressed()
	return pointFromExt(extScalarMul(pe, s))
}

// MulByCofactor returns 8*p, clearing any component outside the
// prime-order subgroup.
func (p Point) MulByCofactor() Point {
	pe, _ := p.decompressed()
	r := extAdd(pe, pe)
	r = extAdd(r, r)
	r = extAdd(r, r)
	return pointFromExt(r)
}

// IsSubgroupMember reports whether p lies in the prime-order subgroup
// generated by G, i.e. whether l*p == Z.
func (p Point) IsSubgroupMember() bool {
	pe, err := p.decompressed()
	if err != nil {
		return false
	}
	// Multiply by l itself; scalarFromBig(order) would reduce it to zero.
	var l Scalar
	lb := order.Bytes()
	for i := range lb {
		l[i] = lb[len(lb)-1-i]
	}
	r := extScalarMul(pe, l)
	return pointFromExt(r).Equal(IdentityPoint)
}

// BaseMul returns s*G. It is named distinctly from Point.Mul so that an
// implementation may special-case the base point with a precomputed
// table; this implementation dispatches to the same generic multiply.
func BaseMul(s Scalar) Point {
	return BasePoint.Mul(s)
}

// BasePoint is the standard Ed25519 generator G, with y = 4/5 mod p and
// the conventional even-x (sign bit 0) root.
var BasePoint = func() Point {
	four := big.NewInt(4)
	five := big.NewInt(5)
	y := fmod(new(big.Int).Mul(four, new(big.Int).ModInverse(five, fieldP)))

	y2 := fmod(new(big.Int).Mul(y, y))
	u := fmod(new(big.Int).Sub(y2, big.NewInt(1)))
	v := fmod(new(big.Int).Add(new(big.Int).Mul(paramD, y2), big.NewInt(1)))
	x, ok := sqrtRatio(u, v)
	if !ok {
		panic("crypto: failed to construct Ed25519 base point")
	}
	if x.Bit(0) == 1 {
		x = fmod(new(big.Int).Neg(x))
	}
	ext := &extPoint{X: x, Y: y, Z: big.NewInt(1), T: fmod(new(big.Int).Mul(x, y))}
	return pointFromExt(ext)
}()

// HPoint is the secondary Pedersen-commitment generator,
// H = hash_to_point(G).
var HPoint = HashToPoint(BasePoint.Bytes()[:])
