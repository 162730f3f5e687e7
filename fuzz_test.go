package gcm

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"testing"
	"time"

	tink "github.com/google/tink/go/aead/subtle"
	"golang.org/x/exp/rand"
)

// TestFuzzStdlib runs fuzz tests against crypto/cipher's GCM with
// random keys, nonce lengths, AAD, and message lengths.
func TestFuzzStdlib(t *testing.T) {
	runTests(t, testFuzzStdlib)
}

func testFuzzStdlib(t *testing.T) {
	d := 2 * time.Second
	if testing.Short() {
		d = 10 * time.Millisecond
	}
	timer := time.NewTimer(d)

	seed := uint64(time.Now().UnixNano())
	rng := rand.New(rand.NewSource(seed))

	keySizes := []int{16, 24, 32}
	buf := make([]byte, 1024)
	aadBuf := make([]byte, 64)
	nonceBuf := make([]byte, 64)
	for i := 0; ; i++ {
		select {
		case <-timer.C:
			t.Logf("iters: %d", i)
			return
		default:
		}

		key := make([]byte, keySizes[rng.Intn(len(keySizes))])
		rng.Read(key)

		nonce := nonceBuf[:1+rng.Intn(len(nonceBuf)-1)]
		if rng.Intn(2) == 0 {
			nonce = nonceBuf[:NonceSize]
		}
		rng.Read(nonce)

		aad := aadBuf[:rng.Intn(len(aadBuf))]
		rng.Read(aad)

		pt := buf[:rng.Intn(len(buf))]
		rng.Read(pt)

		block, err := aes.NewCipher(key)
		if err != nil {
			t.Fatal(err)
		}
		aead, err := cipher.NewGCMWithNonceSize(block, len(nonce))
		if err != nil {
			t.Fatal(err)
		}
		sealed := aead.Seal(nil, nonce, pt, aad)
		wantCT, wantTag := sealed[:len(pt)], sealed[len(pt):]

		k, err := NewKey(key)
		if err != nil {
			t.Fatal(err)
		}
		ct := make([]byte, len(pt))
		tag := make([]byte, TagSize)
		if err := k.Encrypt(ct, tag, nonce, pt, aad); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(ct, wantCT) {
			t.Fatalf("ciphertext: expected %x, got %x", wantCT, ct)
		}
		if !bytes.Equal(tag, wantTag) {
			t.Fatalf("tag: expected %x, got %x", wantTag, tag)
		}

		got := make([]byte, len(pt))
		if err := k.Decrypt(got, wantTag, nonce, wantCT, aad); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, pt) {
			t.Fatal("round trip mismatch")
		}

		if len(pt) > 0 {
			ct[rng.Intn(len(ct))] ^= 1 << uint(rng.Intn(8))
			if err := k.Decrypt(got, wantTag, nonce, ct, aad); !errors.Is(err, ErrAuthentication) {
				t.Fatalf("expected ErrAuthentication, got %v", err)
			}
		}
	}
}

// TestFuzzTink runs interop fuzz tests against Google Tink's AES-GCM:
// messages sealed by one implementation must open with the other.
func TestFuzzTink(t *testing.T) {
	runTests(t, testFuzzTink)
}

func testFuzzTink(t *testing.T) {
	d := 2 * time.Second
	if testing.Short() {
		d = 10 * time.Millisecond
	}
	timer := time.NewTimer(d)

	seed := uint64(time.Now().UnixNano())
	rng := rand.New(rand.NewSource(seed))

	keySizes := []int{16, 32}
	buf := make([]byte, 512)
	aadBuf := make([]byte, 32)
	for i := 0; ; i++ {
		select {
		case <-timer.C:
			t.Logf("iters: %d", i)
			return
		default:
		}

		key := make([]byte, keySizes[rng.Intn(len(keySizes))])
		rng.Read(key)

		aad := aadBuf[:rng.Intn(len(aadBuf))]
		rng.Read(aad)

		pt := buf[:rng.Intn(len(buf))]
		rng.Read(pt)

		want, err := tink.NewAESGCM(key)
		if err != nil {
			t.Fatal(err)
		}
		k, err := NewKey(key)
		if err != nil {
			t.Fatal(err)
		}

		// Tink seals as nonce ‖ ciphertext ‖ tag with a random
		// 12-byte nonce.
		sealed, err := want.Encrypt(pt, aad)
		if err != nil {
			t.Fatal(err)
		}
		nonce := sealed[:NonceSize]
		ct := sealed[NonceSize : len(sealed)-TagSize]
		tag := sealed[len(sealed)-TagSize:]

		got := make([]byte, len(ct))
		if err := k.Decrypt(got, tag, nonce, ct, aad); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, pt) {
			t.Fatalf("expected %x, got %x", pt, got)
		}

		// And the reverse: our output must open with tink.
		nonce = make([]byte, NonceSize)
		rng.Read(nonce)
		sealed = make([]byte, NonceSize+len(pt)+TagSize)
		copy(sealed, nonce)
		if err := k.Encrypt(sealed[NonceSize:], sealed[NonceSize+len(pt):], nonce, pt, aad); err != nil {
			t.Fatal(err)
		}
		opened, err := want.Decrypt(sealed, aad)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(opened, pt) {
			t.Fatalf("expected %x, got %x", pt, opened)
		}
	}
}
