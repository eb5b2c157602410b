// kdf.go derives the AES-128 session key K from the Diffie-Hellman shared
// secret: K = first 16 bytes of SHA-256(sharedSecret). There is no domain
// separation label or transcript hash folded in beyond the DH secret itself
// — the STSM authentication proofs, not the KDF, are what bind the key to
// the handshake transcript.
package cryptoutil

import (
	"crypto/sha256"

	"github.com/safecloud-project/safecloud/internal/constants"
)

// DeriveSessionKey computes K from the raw DH shared secret.
func DeriveSessionKey(sharedSecret []byte) []byte {
	digest := sha256.Sum256(sharedSecret)
	key := make([]byte, constants.KDFOutputSize)
	copy(key, digest[:constants.KDFOutputSize])
	return key
}
