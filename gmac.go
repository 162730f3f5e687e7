package gcm

import (
	"encoding/binary"
	"fmt"
)

// GMAC authenticates data without enciphering it: the tag is the one
// GCM would produce for an empty plaintext with the written data as
// additional authenticated data.
//
// GMAC implements io.Writer. Writes need not be block-aligned.
type GMAC struct {
	key *Key
	y   fieldElement
	j0  [blockSize]byte
	n   uint64

	buf    [blockSize]byte
	bufLen int

	finalized bool
}

// NewGMAC begins an authentication-only message under the key.
func (k *Key) NewGMAC(nonce []byte) (*GMAC, error) {
	if len(nonce) == 0 {
		return nil, fmt.Errorf("gcm: invalid nonce size: %d", len(nonce))
	}
	g := &GMAC{key: k}
	k.deriveJ0(&g.j0, nonce)
	return g, nil
}

// Write absorbs p into the authenticator. It never fails before
// Finalize and always returns len(p).
func (g *GMAC) Write(p []byte) (int, error) {
	if g.finalized {
		return 0, ErrFinalized
	}
	n := len(p)
	g.n += uint64(n)

	if g.bufLen > 0 {
		c := copy(g.buf[g.bufLen:], p)
		g.bufLen += c
		p = p[c:]
		if g.bufLen == blockSize {
			foldBlocks(&g.y, &g.key.pow, g.buf[:])
			g.bufLen = 0
		}
	}
	full := len(p) &^ (blockSize - 1)
	g.key.foldFull(&g.y, p[:full])
	g.bufLen += copy(g.buf[g.bufLen:], p[full:])
	return n, nil
}

// Finalize writes the first len(tag) bytes of the authentication tag.
// len(tag) must be in [1, TagSize]. The GMAC is unusable afterward.
func (g *GMAC) Finalize(tag []byte) error {
	if len(tag) < 1 || len(tag) > TagSize {
		return fmt.Errorf("gcm: invalid tag size: %d", len(tag))
	}
	if g.finalized {
		return ErrFinalized
	}
	var full [TagSize]byte
	g.finalizeInto(&full)
	copy(tag, full[:len(tag)])
	return nil
}

// Verify finalizes the GMAC and compares the computed tag against tag
// in constant time.
func (g *GMAC) Verify(tag []byte) error {
	if len(tag) < 1 || len(tag) > TagSize {
		return fmt.Errorf("gcm: invalid tag size: %d", len(tag))
	}
	if g.finalized {
		return ErrFinalized
	}
	var full [TagSize]byte
	g.finalizeInto(&full)
	if !constantTimeTagEqual(tag, &full) {
		return ErrAuthentication
	}
	return nil
}

func (g *GMAC) finalizeInto(full *[TagSize]byte) {
	if g.bufLen > 0 {
		for i := g.bufLen; i < blockSize; i++ {
			g.buf[i] = 0
		}
		foldBlocks(&g.y, &g.key.pow, g.buf[:])
		g.bufLen = 0
	}

	// The written data counts as AAD; the ciphertext length is
	// zero.
	var lens [blockSize]byte
	binary.BigEndian.PutUint64(lens[0:8], g.n*8)
	foldBlocks(&g.y, &g.key.pow, lens[:])
	g.y.putBytesReflected(full[:])

	var mask [blockSize]byte
	g.key.block.Encrypt(mask[:], g.j0[:])
	for i := range full {
		full[i] ^= mask[i]
	}

	g.y = fieldElement{}
	for i := range g.buf {
		g.buf[i] = 0
	}
	g.finalized = true
}
