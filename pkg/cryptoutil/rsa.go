// rsa.go implements long-term RSA-2048 identity key loading, PKCS1v15/SHA-256
// signing and verification for the STSM authentication proofs.
package cryptoutil

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/safecloud-project/safecloud/internal/constants"
	scerrors "github.com/safecloud-project/safecloud/internal/errors"
)

// LoadRSAPrivateKey reads and parses a PEM-encoded PKCS#8 or PKCS#1
// RSA-2048 private key from disk. This is the actor's long-term private
// key, loaded once at process startup and held for the process lifetime.
func LoadRSAPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, scerrors.NewCryptoError("LoadRSAPrivateKey", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, scerrors.ErrInvalidPrivateKey
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return validateRSAPrivateKey(key)
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, scerrors.NewCryptoError("LoadRSAPrivateKey", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, scerrors.ErrInvalidPrivateKey
	}
	return validateRSAPrivateKey(rsaKey)
}

// LoadRSAPublicKey reads and parses a PEM-encoded PKIX RSA-2048 public key
// from disk, as used by pkg/userregistry for per-client identity lookup.
func LoadRSAPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, scerrors.NewCryptoError("LoadRSAPublicKey", err)
	}
	return ParseRSAPublicKeyPEM(data)
}

// ParseRSAPublicKeyPEM parses PEM-encoded bytes into an RSA public key.
func ParseRSAPublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, scerrors.ErrInvalidPublicKey
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, scerrors.NewCryptoError("ParseRSAPublicKeyPEM", err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, scerrors.ErrInvalidPublicKey
	}
	if rsaKey.N.BitLen() != constants.RSAKeyBits {
		return nil, scerrors.ErrInvalidPublicKey
	}
	return rsaKey, nil
}

func validateRSAPrivateKey(key *rsa.PrivateKey) (*rsa.PrivateKey, error) {
	if key.N.BitLen() != constants.RSAKeyBits {
		return nil, scerrors.ErrInvalidPrivateKey
	}
	return key, nil
}

// SignAuthProof signs SHA-256(message) with the actor's long-term RSA key
// using PKCS1v15, producing the fixed RSASignatureSize-byte signature
// embedded in the STSM authentication proof.
func SignAuthProof(priv *rsa.PrivateKey, message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		return nil, scerrors.NewCryptoError("SignAuthProof", err)
	}
	return sig, nil
}

// VerifyAuthProof verifies an RSA-2048/PKCS1v15/SHA-256 signature over
// message against the peer's certified public key.
func VerifyAuthProof(pub *rsa.PublicKey, message, signature []byte) error {
	digest := sha256.Sum256(message)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], signature); err != nil {
		return scerrors.ErrSignatureInvalid
	}
	return nil
}
