package gcm

import (
	"encoding/binary"
	"fmt"
)

// Stream is the per-message state threaded through Update calls: the
// running GHASH accumulator, the CTR counter, total lengths, and the
// pending partial block.
//
// A Stream is exclusively owned by one message. It holds no locks;
// concurrent use of a single Stream is undefined. Distinct streams
// sharing a Key are safe.
type Stream struct {
	key *Key
	dir Direction

	// y is the running GHASH of aad ‖ ciphertext-so-far, except
	// for the pending partial block, which is folded when it
	// completes or at Finalize.
	y   fieldElement
	ctr counter

	// j0 is the saved pre-counter block, enciphered at Finalize to
	// mask the tag.
	j0 [blockSize]byte

	aadLen uint64
	inLen  uint64

	// partial holds the hash-stream bytes of the pending block;
	// partialKS the keystream block that enciphers it. Bytes below
	// partialLen are cipher-processed but not yet hash-folded.
	partial    [blockSize]byte
	partialKS  [blockSize]byte
	partialLen int

	// ks is the counter/keystream scratch for one lane group; ring
	// stages ciphertext groups between the cipher and hash stages,
	// sized to the maximum pipeline depth.
	ks   [groupBlocks * blockSize]byte
	ring [deepDepth * blockSize]byte

	finalized bool
}

// NewStream begins a message: it derives the initial counter block
// from the nonce and absorbs the additional authenticated data.
//
// The nonce may be any positive length; 12 bytes avoids a GHASH pass.
func (k *Key) NewStream(dir Direction, nonce, aad []byte) (*Stream, error) {
	if dir != Encrypt && dir != Decrypt {
		return nil, fmt.Errorf("gcm: invalid direction: %d", int(dir))
	}
	if len(nonce) == 0 {
		return nil, fmt.Errorf("gcm: invalid nonce size: %d", len(nonce))
	}
	s := &Stream{key: k, dir: dir}
	k.deriveJ0(&s.j0, nonce)
	s.ctr.block = s.j0
	inc32(&s.ctr.block)
	k.absorb(&s.y, aad)
	s.aadLen = uint64(len(aad))
	return s, nil
}

// Update enciphers (or deciphers) src into dst and extends the
// authenticator. It returns the number of bytes written, always
// len(src).
//
// dst must be at least len(src) bytes and may overlap src exactly or
// not at all. Calls may split the message at any byte boundary; the
// ciphertext and tag are independent of the split.
func (s *Stream) Update(dst, src []byte) (int, error) {
	if s.finalized {
		return 0, ErrFinalized
	}
	if len(dst) < len(src) {
		return 0, fmt.Errorf("gcm: output buffer too small: %d < %d", len(dst), len(src))
	}
	total := len(src)

	// Finish the partial block left by the previous call.
	n := s.consumePartial(dst, src)
	dst, src = dst[n:], src[n:]

	full := len(src) &^ (blockSize - 1)
	s.bulk(dst[:full], src[:full])
	dst, src = dst[full:], src[full:]

	if len(src) > 0 {
		// Stash the new trailing partial block along with its
		// keystream so the next call can resume without
		// re-deriving it.
		s.ctr.fill(s.partialKS[:], 1)
		s.key.block.Encrypt(s.partialKS[:], s.partialKS[:])
		if s.dir == Encrypt {
			for i, c := range src {
				dst[i] = c ^ s.partialKS[i]
				s.partial[i] = dst[i]
			}
		} else {
			for i, c := range src {
				s.partial[i] = c
				dst[i] = c ^ s.partialKS[i]
			}
		}
		s.partialLen = len(src)
	}

	s.inLen += uint64(total)
	return total, nil
}

// consumePartial enciphers up to blockSize-partialLen bytes of src
// against the saved keystream block and folds the block into the
// accumulator once it completes. The authenticator always sees
// ciphertext: output bytes when encrypting, input bytes when
// decrypting.
func (s *Stream) consumePartial(dst, src []byte) int {
	if s.partialLen == 0 {
		return 0
	}
	n := blockSize - s.partialLen
	if n > len(src) {
		n = len(src)
	}
	ks := s.partialKS[s.partialLen:]
	if s.dir == Encrypt {
		for i := 0; i < n; i++ {
			dst[i] = src[i] ^ ks[i]
			s.partial[s.partialLen+i] = dst[i]
		}
	} else {
		for i := 0; i < n; i++ {
			s.partial[s.partialLen+i] = src[i]
			dst[i] = src[i] ^ ks[i]
		}
	}
	s.partialLen += n
	if s.partialLen == blockSize {
		foldBlocks(&s.y, &s.key.pow, s.partial[:])
		s.partialLen = 0
	}
	return n
}

// Finalize folds the pending partial block and the length block into
// the authenticator, masks the digest with the enciphered pre-counter
// block, and writes the first len(tag) bytes of the result.
//
// len(tag) must be in [1, TagSize]. The stream's sensitive state is
// scrubbed; further use returns ErrFinalized.
func (s *Stream) Finalize(tag []byte) error {
	if len(tag) < 1 || len(tag) > TagSize {
		return fmt.Errorf("gcm: invalid tag size: %d", len(tag))
	}
	if s.finalized {
		return ErrFinalized
	}
	var full [TagSize]byte
	s.finalizeInto(&full)
	copy(tag, full[:len(tag)])
	return nil
}

// Verify finalizes a decrypt stream and compares the computed tag
// against tag in constant time. Encrypt streams produce their tag with
// Finalize instead.
func (s *Stream) Verify(tag []byte) error {
	if s.dir != Decrypt {
		return fmt.Errorf("gcm: Verify on %v stream", s.dir)
	}
	if len(tag) < 1 || len(tag) > TagSize {
		return fmt.Errorf("gcm: invalid tag size: %d", len(tag))
	}
	if s.finalized {
		return ErrFinalized
	}
	var full [TagSize]byte
	s.finalizeInto(&full)
	if !constantTimeTagEqual(tag, &full) {
		return ErrAuthentication
	}
	return nil
}

func (s *Stream) finalizeInto(full *[TagSize]byte) {
	if s.partialLen > 0 {
		for i := s.partialLen; i < blockSize; i++ {
			s.partial[i] = 0
		}
		foldBlocks(&s.y, &s.key.pow, s.partial[:])
		s.partialLen = 0
	}

	var lens [blockSize]byte
	binary.BigEndian.PutUint64(lens[0:8], s.aadLen*8)
	binary.BigEndian.PutUint64(lens[8:16], s.inLen*8)
	foldBlocks(&s.y, &s.key.pow, lens[:])
	s.y.putBytesReflected(full[:])

	var mask [blockSize]byte
	s.key.block.Encrypt(mask[:], s.j0[:])
	for i := range full {
		full[i] ^= mask[i]
	}

	// Scrub per-message secrets.
	s.y = fieldElement{}
	for i := range s.partialKS {
		s.partialKS[i] = 0
		s.partial[i] = 0
	}
	for i := range s.ks {
		s.ks[i] = 0
	}
	for i := range s.ring {
		s.ring[i] = 0
	}
	s.finalized = true
}
