package cryptoutil_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/safecloud-project/safecloud/pkg/cryptoutil"
)

func generateTestRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}
	return key
}

func TestSignAndVerifyAuthProof(t *testing.T) {
	key := generateTestRSAKey(t)
	message := []byte("Yc||Ys")

	sig, err := cryptoutil.SignAuthProof(key, message)
	if err != nil {
		t.Fatalf("SignAuthProof failed: %v", err)
	}

	if err := cryptoutil.VerifyAuthProof(&key.PublicKey, message, sig); err != nil {
		t.Errorf("VerifyAuthProof failed for a valid signature: %v", err)
	}
}

func TestVerifyAuthProofRejectsTamperedMessage(t *testing.T) {
	key := generateTestRSAKey(t)
	sig, err := cryptoutil.SignAuthProof(key, []byte("Yc||Ys"))
	if err != nil {
		t.Fatalf("SignAuthProof failed: %v", err)
	}

	if err := cryptoutil.VerifyAuthProof(&key.PublicKey, []byte("Yc||Ys-tampered"), sig); err == nil {
		t.Error("expected verification failure for tampered message")
	}
}

func TestVerifyAuthProofRejectsWrongKey(t *testing.T) {
	key := generateTestRSAKey(t)
	other := generateTestRSAKey(t)
	message := []byte("Yc||Ys")

	sig, err := cryptoutil.SignAuthProof(key, message)
	if err != nil {
		t.Fatalf("SignAuthProof failed: %v", err)
	}

	if err := cryptoutil.VerifyAuthProof(&other.PublicKey, message, sig); err == nil {
		t.Error("expected verification failure for mismatched key")
	}
}

func TestParseRSAPublicKeyPEM(t *testing.T) {
	key := generateTestRSAKey(t)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey failed: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	pub, err := cryptoutil.ParseRSAPublicKeyPEM(pemBytes)
	if err != nil {
		t.Fatalf("ParseRSAPublicKeyPEM failed: %v", err)
	}
	if pub.N.Cmp(key.PublicKey.N) != 0 {
		t.Error("parsed public key modulus does not match original")
	}
}

func TestParseRSAPublicKeyPEMRejectsMalformed(t *testing.T) {
	if _, err := cryptoutil.ParseRSAPublicKeyPEM([]byte("not pem data")); err == nil {
		t.Error("expected error for malformed PEM")
	}
}
