// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ghash is a slow, table-driven GHASH used as a test oracle.
// It is the 4-bit method from crypto/cipher and shares no code with
// the carry-less multiply engine it checks.
package ghash

import (
	"encoding/binary"
)

const blockSize = 16

// fieldElement represents a value in GF(2¹²⁸). In order to reflect the GCM
// standard and make binary.BigEndian suitable for marshaling these values, the
// bits are stored in big endian order. For example:
//   the coefficient of x⁰ can be obtained by v.low >> 63.
//   the coefficient of x⁶³ can be obtained by v.low & 1.
//   the coefficient of x⁶⁴ can be obtained by v.high >> 63.
//   the coefficient of x¹²⁷ can be obtained by v.high & 1.
type fieldElement struct {
	low, high uint64
}

func (z *fieldElement) setBytes(p []byte) {
	z.low = binary.BigEndian.Uint64(p[:8])
	z.high = binary.BigEndian.Uint64(p[8:])
}

func (x fieldElement) marshal() []byte {
	out := make([]byte, blockSize)
	binary.BigEndian.PutUint64(out, x.low)
	binary.BigEndian.PutUint64(out[8:], x.high)
	return out
}

// Hash accumulates GHASH terms under a fixed subkey H.
type Hash struct {
	y fieldElement
	// productTable contains the first sixteen multiples of the
	// subkey, in bit reversed order.
	productTable [16]fieldElement
}

func New(key []byte) *Hash {
	// We precompute 16 multiples of |key|. However, when we do lookups
	// into this table we'll be using bits from a field element and
	// therefore the bits will be in the reverse order. So normally one
	// would expect, say, 4*key to be in index 4 of the table but due to
	// this bit ordering it will actually be in index 0010 (base 2) = 2.
	var x fieldElement
	x.setBytes(key)

	var h Hash
	h.productTable[reverseBits(1)] = x
	for i := 2; i < 16; i += 2 {
		h.productTable[reverseBits(i)] = double(h.productTable[reverseBits(i/2)])
		h.productTable[reverseBits(i+1)] = add(h.productTable[reverseBits(i)], x)
	}
	return &h
}

// reverseBits reverses the order of the bits of 4-bit number in i.
func reverseBits(i int) int {
	i = ((i << 2) & 0xc) | ((i >> 2) & 0x3)
	i = ((i << 1) & 0xa) | ((i >> 1) & 0x5)
	return i
}

// add adds two elements of GF(2¹²⁸) and returns the sum.
func add(x, y fieldElement) fieldElement {
	// Addition in a characteristic 2 field is just XOR.
	return fieldElement{x.low ^ y.low, x.high ^ y.high}
}

// double returns the result of doubling an element of GF(2¹²⁸).
func double(x fieldElement) (d fieldElement) {
	msbSet := x.high&1 == 1

	// Because of the bit-ordering, doubling is actually a right shift.
	d.high = x.high >> 1
	d.high |= x.low << 63
	d.low = x.low >> 1

	// If the most-significant bit was set before shifting then it,
	// conceptually, becomes a term of x^128. This is greater than the
	// irreducible polynomial so the result has to be reduced. The
	// irreducible polynomial is 1+x+x^2+x^7+x^128. We can subtract that to
	// eliminate the term at x^128 which also means subtracting the other
	// four terms. In characteristic 2 fields, subtraction == addition ==
	// XOR.
	if msbSet {
		d.low ^= 0xe100000000000000
	}
	return
}

var reductionTable = []uint16{
	0x0000, 0x1c20, 0x3840, 0x2460, 0x7080, 0x6ca0, 0x48c0, 0x54e0,
	0xe100, 0xfd20, 0xd940, 0xc560, 0x9180, 0x8da0, 0xa9c0, 0xb5e0,
}

// mul sets y to y*H, where H is the GHASH subkey.
func (h *Hash) mul(y fieldElement) fieldElement {
	var z fieldElement

	for i := 0; i < 2; i++ {
		word := y.high
		if i == 1 {
			word = y.low
		}

		// Multiplication works by multiplying z by 16 and adding in
		// one of the precomputed multiples of H.
		for j := 0; j < 64; j += 4 {
			msw := z.high & 0xf
			z.high >>= 4
			z.high |= z.low << 60
			z.low >>= 4
			z.low ^= uint64(reductionTable[msw]) << 48

			// the values in |table| are ordered for
			// little-endian bit positions.
			t := h.productTable[word&0xf]

			z.low ^= t.low
			z.high ^= t.high
			word >>= 4
		}
	}
	return z
}

// UpdateBlocks extends y with more polynomial terms from blocks, based on
// Horner's rule. There must be a multiple of blockSize bytes in blocks.
func (h *Hash) UpdateBlocks(blocks []byte) {
	if len(blocks)%blockSize != 0 {
		panic("ghash: invalid block size")
	}
	for len(blocks) > 0 {
		h.y.low ^= binary.BigEndian.Uint64(blocks)
		h.y.high ^= binary.BigEndian.Uint64(blocks[8:])
		h.y = h.mul(h.y)
		blocks = blocks[blockSize:]
	}
}

// Sum returns the current digest.
func (h *Hash) Sum() []byte {
	return h.y.marshal()
}
