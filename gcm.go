// Package gcm implements the computation engine for Galois/Counter
// Mode: counter-mode encryption interleaved with the GF(2^128) GHASH
// authenticator, as specified in NIST SP 800-38D.
//
// Unlike crypto/cipher's AEAD, this package exposes the streaming
// core: a message may be encrypted or decrypted across any number of
// Update calls, split at arbitrary byte boundaries, with the
// authentication tag produced at Finalize. A GMAC (authentication
// only) mode and one-shot helpers are included.
//
// The block cipher is an external collaborator. NewKey builds an AES
// schedule; NewKeyFrom accepts any 128-bit cipher.Block.
package gcm

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ericlagergren/subtle"
)

const (
	// BlockSize is the cipher and GHASH block size in bytes.
	BlockSize = 16

	// NonceSize is the fast-pathed nonce size in bytes. Any
	// positive nonce length is accepted; other lengths are hashed
	// down to the initial counter block.
	NonceSize = 12

	// TagSize is the size of a full authentication tag in bytes.
	// Tags may be truncated to any length in [1, TagSize].
	TagSize = 16
)

const blockSize = BlockSize

var (
	// ErrAuthentication is returned when a tag does not match the
	// received message.
	ErrAuthentication = errors.New("gcm: message authentication failed")

	// ErrFinalized is returned when a stream is used after
	// Finalize or Verify.
	ErrFinalized = errors.New("gcm: stream already finalized")
)

// Direction selects between encryption and decryption of a stream.
//
// The direction decides which side of the XOR feeds the
// authenticator: ciphertext is always hashed, so an encrypting stream
// hashes its output and a decrypting stream hashes its input.
type Direction int

const (
	Encrypt Direction = iota
	Decrypt
)

func (d Direction) String() string {
	switch d {
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Key is the precomputed per-key state: the block cipher schedule and
// the first groupBlocks powers of the hash subkey.
//
// A Key is immutable after creation and may be shared by any number
// of concurrent streams.
type Key struct {
	block cipher.Block
	pow   [groupBlocks]fieldElement
}

// NewKey expands the raw AES key (16, 24, or 32 bytes) into a Key.
//
// Calling NewKey twice with the same key material yields identical
// state.
func NewKey(key []byte) (*Key, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("gcm: invalid key size: %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return NewKeyFrom(block)
}

// NewKeyFrom builds a Key from an existing 128-bit block cipher.
func NewKeyFrom(block cipher.Block) (*Key, error) {
	if block.BlockSize() != BlockSize {
		return nil, fmt.Errorf("gcm: invalid cipher block size: %d", block.BlockSize())
	}
	var h [blockSize]byte
	block.Encrypt(h[:], h[:])
	return &Key{
		block: block,
		pow:   expandHashKey(&h),
	}, nil
}

// deriveJ0 computes the pre-counter block. A 12-byte nonce is used
// directly with a one-valued 32-bit suffix; any other length is
// hashed with its bit length appended.
func (k *Key) deriveJ0(j0 *[blockSize]byte, nonce []byte) {
	if len(nonce) == NonceSize {
		copy(j0[:], nonce)
		binary.BigEndian.PutUint32(j0[12:], 1)
		return
	}
	var y fieldElement
	k.absorb(&y, nonce)
	var lens [blockSize]byte
	binary.BigEndian.PutUint64(lens[8:], uint64(len(nonce))*8)
	foldBlocks(&y, &k.pow, lens[:])
	y.putBytesReflected(j0[:])
}

// foldFull folds a whole number of blocks into acc, a group at a
// time.
func (k *Key) foldFull(acc *fieldElement, blocks []byte) {
	for len(blocks) > 0 {
		n := len(blocks)
		if n > groupBlocks*blockSize {
			n = groupBlocks * blockSize
		}
		foldBlocks(acc, &k.pow, blocks[:n])
		blocks = blocks[n:]
	}
}

// absorb folds data into acc, zero-padding the final partial block.
func (k *Key) absorb(acc *fieldElement, data []byte) {
	full := len(data) &^ (blockSize - 1)
	k.foldFull(acc, data[:full])
	if full < len(data) {
		var buf [blockSize]byte
		copy(buf[:], data[full:])
		foldBlocks(acc, &k.pow, buf[:])
	}
}

// Encrypt encrypts plaintext into dst and writes the authentication
// tag over nonce, aad, and the ciphertext into tag.
//
// dst must be at least len(plaintext) bytes and may overlap plaintext
// exactly or not at all. len(tag) must be in [1, TagSize]; SP 800-38D
// sanctions 8, 12, and 16 bytes.
func (k *Key) Encrypt(dst, tag, nonce, plaintext, aad []byte) error {
	if len(tag) < 1 || len(tag) > TagSize {
		return fmt.Errorf("gcm: invalid tag size: %d", len(tag))
	}
	s, err := k.NewStream(Encrypt, nonce, aad)
	if err != nil {
		return err
	}
	if _, err := s.Update(dst, plaintext); err != nil {
		return err
	}
	return s.Finalize(tag)
}

// Decrypt decrypts ciphertext into dst and verifies tag in constant
// time. On authentication failure the plaintext written to dst is
// zeroed and ErrAuthentication is returned.
func (k *Key) Decrypt(dst, tag, nonce, ciphertext, aad []byte) error {
	if len(tag) < 1 || len(tag) > TagSize {
		return fmt.Errorf("gcm: invalid tag size: %d", len(tag))
	}
	s, err := k.NewStream(Decrypt, nonce, aad)
	if err != nil {
		return err
	}
	if _, err := s.Update(dst, ciphertext); err != nil {
		return err
	}
	if err := s.Verify(tag); err != nil {
		for i := range dst[:len(ciphertext)] {
			dst[i] = 0
		}
		return err
	}
	return nil
}

// constantTimeTagEqual reports whether the truncated tag matches the
// full computed tag.
func constantTimeTagEqual(tag []byte, full *[TagSize]byte) bool {
	return subtle.ConstantTimeCompare(tag, full[:len(tag)]) == 1
}
