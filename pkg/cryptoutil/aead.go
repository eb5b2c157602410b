// aead.go implements the session-phase AES-128-GCM AEAD discipline.
//
// Unlike a conventional per-direction random-nonce scheme, SafeCloud shares a
// single 96-bit counter between client and server: both peers seed it from
// the same value sent in ClientHello (see cbc.go) and advance it by exactly
// one after every session frame, control or raw, that either peer emits or
// consumes. A tag-verification failure is therefore always unrecoverable:
// the peers' counters can no longer be trusted to agree, so the connection
// is torn down rather than resynchronized.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"sync"

	"github.com/safecloud-project/safecloud/internal/constants"
	scerrors "github.com/safecloud-project/safecloud/internal/errors"
)

// GCMContext is the session AEAD: one AES-128-GCM cipher plus the shared
// nonce counter, advanced identically by Seal and Open. block is the
// same underlying AES-128 cipher as cipher, kept alongside it so the
// raw-mode streaming AEAD in streamaead.go can drive CTR encryption and
// GHASH directly instead of going through the all-at-once cipher.AEAD
// interface.
type GCMContext struct {
	cipher cipher.AEAD
	block  cipher.Block

	mu    sync.Mutex
	nonce [constants.GCMNonceSize]byte
}

// NewGCMContext builds the session AEAD from the derived session key K and
// the 12-byte GCM view of the handshake IV seed.
func NewGCMContext(key, initialNonce []byte) (*GCMContext, error) {
	if len(key) != constants.GCMKeySize {
		return nil, scerrors.ErrInvalidKeySize
	}
	if len(initialNonce) != constants.GCMNonceSize {
		return nil, scerrors.ErrInvalidNonce
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, scerrors.NewCryptoError("NewGCMContext", err)
	}
	aeadCipher, err := cipher.NewGCM(block)
	if err != nil {
		return nil, scerrors.NewCryptoError("NewGCMContext", err)
	}

	ctx := &GCMContext{cipher: aeadCipher, block: block}
	copy(ctx.nonce[:], initialNonce)
	return ctx, nil
}

// Seal encrypts and authenticates a session frame's plaintext, consuming the
// current nonce value and advancing the shared counter by one.
func (g *GCMContext) Seal(plaintext, additionalData []byte) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ciphertext := g.cipher.Seal(nil, g.nonce[:], plaintext, additionalData)
	if err := g.advanceLocked(); err != nil {
		return nil, err
	}
	return ciphertext, nil
}

// Open decrypts and verifies a session frame's ciphertext against the
// current nonce value, advancing the shared counter by one on success.
//
// A verification failure is fatal and the counter is NOT advanced: the
// caller must close the connection, since the peer's and our counter can no
// longer be assumed to agree.
func (g *GCMContext) Open(ciphertext, additionalData []byte) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(ciphertext) < constants.GCMTagSize {
		return nil, scerrors.ErrCiphertextTooShort
	}

	plaintext, err := g.cipher.Open(nil, g.nonce[:], ciphertext, additionalData)
	if err != nil {
		return nil, scerrors.ErrAuthenticationFailed
	}
	if err := g.advanceLocked(); err != nil {
		return nil, err
	}
	return plaintext, nil
}

// advanceLocked increments the 96-bit big-endian nonce counter by one.
// Overflow back to zero is treated as fatal nonce exhaustion, which at one
// frame per increment is unreachable in any real session lifetime.
func (g *GCMContext) advanceLocked() error {
	for i := len(g.nonce) - 1; i >= 0; i-- {
		g.nonce[i]++
		if g.nonce[i] != 0 {
			return nil
		}
		if i == 0 {
			return scerrors.ErrNonceDesync
		}
	}
	return nil
}

// Nonce returns a copy of the current 12-byte nonce value, for tests and
// diagnostics verifying Property 4 (nonce monotonicity).
func (g *GCMContext) Nonce() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]byte, len(g.nonce))
	copy(out, g.nonce[:])
	return out
}

// Overhead returns the number of bytes of authentication-tag overhead added
// by Seal.
func (g *GCMContext) Overhead() int {
	return g.cipher.Overhead()
}
