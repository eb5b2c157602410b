package cryptoutil_test

import (
	"bytes"
	"testing"

	"github.com/safecloud-project/safecloud/internal/constants"
	"github.com/safecloud-project/safecloud/pkg/cryptoutil"
)

func TestEncryptDecryptCBCRoundTrip(t *testing.T) {
	key := make([]byte, constants.CBCKeySize)
	iv := make([]byte, constants.CBCIVSize)
	if err := cryptoutil.SecureRandom(key); err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	if err := cryptoutil.SecureRandom(iv); err != nil {
		t.Fatalf("failed to generate iv: %v", err)
	}

	plaintext := make([]byte, constants.STSMAuthProofSize)
	if err := cryptoutil.SecureRandom(plaintext); err != nil {
		t.Fatalf("failed to generate plaintext: %v", err)
	}

	ciphertext, err := cryptoutil.EncryptCBC(key, iv, plaintext)
	if err != nil {
		t.Fatalf("EncryptCBC failed: %v", err)
	}
	if len(ciphertext)%constants.CBCBlockSize != 0 {
		t.Errorf("ciphertext length %d is not a multiple of the block size", len(ciphertext))
	}

	decrypted, err := cryptoutil.DecryptCBC(key, iv, ciphertext)
	if err != nil {
		t.Fatalf("DecryptCBC failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Error("decrypted plaintext does not match original")
	}
}

func TestDecryptCBCRejectsBadKeySize(t *testing.T) {
	iv := make([]byte, constants.CBCIVSize)
	ciphertext := make([]byte, constants.CBCBlockSize)
	if _, err := cryptoutil.DecryptCBC(make([]byte, 8), iv, ciphertext); err == nil {
		t.Error("expected error for undersized key")
	}
}

func TestDecryptCBCRejectsMalformedCiphertext(t *testing.T) {
	key := make([]byte, constants.CBCKeySize)
	iv := make([]byte, constants.CBCIVSize)
	if _, err := cryptoutil.DecryptCBC(key, iv, []byte{1, 2, 3}); err == nil {
		t.Error("expected error for ciphertext not a multiple of the block size")
	}
}

func TestDecryptCBCRejectsTamperedCiphertext(t *testing.T) {
	key := make([]byte, constants.CBCKeySize)
	iv := make([]byte, constants.CBCIVSize)
	cryptoutil.MustSecureRandom(key)
	cryptoutil.MustSecureRandom(iv)

	ciphertext, err := cryptoutil.EncryptCBC(key, iv, []byte("authentication proof payload..."))
	if err != nil {
		t.Fatalf("EncryptCBC failed: %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xFF

	if _, err := cryptoutil.DecryptCBC(key, iv, ciphertext); err == nil {
		t.Error("expected padding/authentication error for tampered ciphertext")
	}
}
