package gcm

import (
	"encoding/binary"
	"math/bits"
)

// fieldElement is an element in GF(2^128) reduced by
//
//    x^128 + x^127 + x^126 + x^121 + 1
//
// GHASH defines its field over bit-reflected operands. Rather than
// reflecting individual bits, elements are kept in the equivalent
// "reversed" representation: a 16-byte GHASH block is loaded with its
// byte order mirrored and the hash subkey is doubled once at key
// setup. Multiplication in this representation uses the Montgomery
// reduction below and matches GHASH exactly; see the identity
//
//    GHASH(H, X_1, ..., X_n) =
//        ByteReverse(POLYVAL(mulX(ByteReverse(H)),
//            ByteReverse(X_1), ..., ByteReverse(X_n)))
//
// from RFC 8452, Appendix A.
type fieldElement struct {
	hi, lo uint64
}

// setBytesReflected loads the GHASH block p into the reversed
// representation.
func (z *fieldElement) setBytesReflected(p []byte) {
	z.hi = binary.BigEndian.Uint64(p[0:8])
	z.lo = binary.BigEndian.Uint64(p[8:16])
}

// putBytesReflected stores z as a GHASH block.
func (z fieldElement) putBytesReflected(p []byte) {
	binary.BigEndian.PutUint64(p[0:8], z.hi)
	binary.BigEndian.PutUint64(p[8:16], z.lo)
}

func (x fieldElement) xor(y fieldElement) fieldElement {
	return fieldElement{hi: x.hi ^ y.hi, lo: x.lo ^ y.lo}
}

// mulParts computes the unreduced 256-bit carry-less product of x and
// y as four 64-bit words.
//
// We perform schoolbook multiplication of x and y:
//
//    (x1,x0)*(y1,y0) = (x1*y1) + (x1*y0 + x0*y1) + (x0*y0)
//                         H         M       M         L
//
// The middle result (M) is simplified with Karatsuba multiplication:
//
//    (x1*y0 + x0*y1) = (x1+x0)*(y1+y0) + (x1*y1) + (x0*y0)
//
// which saves one 64-bit carry-less multiply.
func (x fieldElement) mulParts(y fieldElement) (x3, x2, x1, x0 uint64) {
	h1, h0 := ctmul(x.hi, y.hi)           // H
	l1, l0 := ctmul(x.lo, y.lo)           // L
	m1, m0 := ctmul(x.hi^x.lo, y.hi^y.lo) // M

	x0 = l0
	x1 = l1 ^ m0 ^ h0 ^ l0
	x2 = h0 ^ m1 ^ h1 ^ l1
	x3 = h1
	return x3, x2, x1, x0
}

// reduce folds the 256-bit product [X3:X2:X1:X0] back into 128 bits
// using Shay Gueron's two-step Montgomery reduction against the
// low-degree terms of the field polynomial.
//
// See https://crypto.stanford.edu/RealWorldCrypto/slides/gueron.pdf
// page 20.
//
// Reduction is linear over XOR, so unreduced products from multiple
// blocks may be accumulated first and reduced once.
func reduce(x3, x2, x1, x0 uint64) fieldElement {
	const poly = 0xc200000000000000

	// [A1:A0] = X0 • 0xc200000000000000
	a1, a0 := ctmul(x0, poly)

	// [B1:B0] = [X0 ⊕ A1 : X1 ⊕ A0]
	b1 := x0 ^ a1
	b0 := x1 ^ a0

	// [C1:C0] = B0 • 0xc200000000000000
	c1, c0 := ctmul(b0, poly)

	// [D1:D0] = [B0 ⊕ C1 : B1 ⊕ C0]
	d1 := b0 ^ c1
	d0 := b1 ^ c0

	// Output: [D1 ⊕ X3 : D0 ⊕ X2]
	return fieldElement{hi: d1 ^ x3, lo: d0 ^ x2}
}

// mul multiplies the two field elements.
func (x fieldElement) mul(y fieldElement) fieldElement {
	return reduce(x.mulParts(y))
}

// double multiplies x by the monomial in GF(2^128).
func (x fieldElement) double() fieldElement {
	// h := x >> 127
	h := x.hi >> (127 - 64)

	// x <<= 1
	hi := x.hi<<1 | x.lo>>(64-1)
	lo := x.lo << 1

	// v ^= h ^ (h << 127) ^ (h << 126) ^ (h << 121)
	lo ^= h
	hi ^= h << (127 - 64) // h << 127
	hi ^= h << (126 - 64) // h << 126
	hi ^= h << (121 - 64) // h << 121

	return fieldElement{hi: hi, lo: lo}
}

// expandHashKey converts the raw GHASH subkey (the encryption of the
// all-zero block) into the reversed representation and precomputes its
// first groupBlocks powers, pow[i] = H^(i+1).
//
// Block j in a group of k blocks pairs with pow[k-1-j], so a whole
// group is folded with a single reduction.
func expandHashKey(h *[blockSize]byte) [groupBlocks]fieldElement {
	var e fieldElement
	e.setBytesReflected(h[:])
	e = e.double()

	var pow [groupBlocks]fieldElement
	pow[0] = e
	pow[1] = e.mul(e)
	for i := 2; i < groupBlocks; i++ {
		pow[i] = pow[i-1].mul(e)
	}
	return pow
}

// foldBlocks folds len(blocks)/16 blocks (at least one, at most
// groupBlocks) into the accumulator:
//
//    acc = (acc ⊕ b_1)·H^k ⊕ b_2·H^(k-1) ⊕ ... ⊕ b_k·H
//
// Each block contributes only its unreduced partial products; the sum
// is reduced once. The result is identical to folding the blocks one
// at a time.
func foldBlocks(acc *fieldElement, pow *[groupBlocks]fieldElement, blocks []byte) {
	k := len(blocks) / blockSize
	if k == 0 || k > groupBlocks {
		panic("gcm: invalid block group length")
	}
	var x3, x2, x1, x0 uint64
	for j := 0; j < k; j++ {
		var e fieldElement
		e.setBytesReflected(blocks[j*blockSize:])
		if j == 0 {
			e = e.xor(*acc)
		}
		p3, p2, p1, p0 := e.mulParts(pow[k-1-j])
		x3 ^= p3
		x2 ^= p2
		x1 ^= p1
		x0 ^= p0
	}
	*acc = reduce(x3, x2, x1, x0)
}

// ctmul returns the 128-bit carry-less product of x and y.
func ctmul(x, y uint64) (z1, z0 uint64) {
	return ctmulGeneric(x, y)
}

// ctmulGeneric computes the product with masked integer
// multiplications, Thomas Pornin's BearSSL technique. Operands are
// split into four interleaved bit classes so that integer carries
// never land on a bit position that survives the class mask. The high
// half reuses the low-half routine on bit-reversed operands.
func ctmulGeneric(x, y uint64) (z1, z0 uint64) {
	z0 = bmul64(x, y)
	z1 = bits.Reverse64(bmul64(bits.Reverse64(x), bits.Reverse64(y))) >> 1
	return z1, z0
}

// bmul64 returns the low 64 bits of the carry-less product of x and y.
func bmul64(x, y uint64) uint64 {
	x0 := x & 0x1111111111111111
	x1 := x & 0x2222222222222222
	x2 := x & 0x4444444444444444
	x3 := x & 0x8888888888888888
	y0 := y & 0x1111111111111111
	y1 := y & 0x2222222222222222
	y2 := y & 0x4444444444444444
	y3 := y & 0x8888888888888888
	z0 := (x0 * y0) ^ (x1 * y3) ^ (x2 * y2) ^ (x3 * y1)
	z1 := (x0 * y1) ^ (x1 * y0) ^ (x2 * y3) ^ (x3 * y2)
	z2 := (x0 * y2) ^ (x1 * y1) ^ (x2 * y0) ^ (x3 * y3)
	z3 := (x0 * y3) ^ (x1 * y2) ^ (x2 * y1) ^ (x3 * y0)
	z0 &= 0x1111111111111111
	z1 &= 0x2222222222222222
	z2 &= 0x4444444444444444
	z3 &= 0x8888888888888888
	return z0 | z1 | z2 | z3
}
