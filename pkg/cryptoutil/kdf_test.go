package cryptoutil_test

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/safecloud-project/safecloud/internal/constants"
	"github.com/safecloud-project/safecloud/pkg/cryptoutil"
)

func TestDeriveSessionKeySize(t *testing.T) {
	secret := make([]byte, constants.DHKeyBytes)
	cryptoutil.MustSecureRandom(secret)

	key := cryptoutil.DeriveSessionKey(secret)
	if len(key) != constants.KDFOutputSize {
		t.Errorf("session key size: got %d, want %d", len(key), constants.KDFOutputSize)
	}
}

func TestDeriveSessionKeyMatchesSHA256Prefix(t *testing.T) {
	secret := []byte("deterministic shared secret for testing")
	want := sha256.Sum256(secret)

	key := cryptoutil.DeriveSessionKey(secret)
	if !bytes.Equal(key, want[:constants.KDFOutputSize]) {
		t.Error("DeriveSessionKey does not match the first KDFOutputSize bytes of SHA-256")
	}
}

func TestDeriveSessionKeyDeterministic(t *testing.T) {
	secret := []byte("same input")
	if !bytes.Equal(cryptoutil.DeriveSessionKey(secret), cryptoutil.DeriveSessionKey(secret)) {
		t.Error("DeriveSessionKey should be deterministic for the same input")
	}
}

func TestDeriveSessionKeyDiffersForDifferentSecrets(t *testing.T) {
	a := cryptoutil.DeriveSessionKey([]byte("secret-a"))
	b := cryptoutil.DeriveSessionKey([]byte("secret-b"))
	if bytes.Equal(a, b) {
		t.Error("DeriveSessionKey should differ for different inputs")
	}
}
