// Package certstore implements the client-side X.509 trust store used to
// verify the server's certificate during the STSM handshake (spec.md §4.2).
package certstore

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"

	scerrors "github.com/safecloud-project/safecloud/internal/errors"
)

// TrustStore holds a pool of trusted root certificates and verifies a
// peer-supplied leaf certificate's chain against it.
type TrustStore struct {
	roots *x509.CertPool
}

// NewTrustStore builds an empty trust store.
func NewTrustStore() *TrustStore {
	return &TrustStore{roots: x509.NewCertPool()}
}

// LoadDir reads every `.pem` file in dir and adds the root certificates it
// contains to the store. Subdirectories and files without a `.pem`
// extension are skipped; a `.pem` file holding no CERTIFICATE block makes
// LoadDir fail with the error AddPEM returns for it.
func LoadDir(dir string) (*TrustStore, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, scerrors.NewCryptoError("certstore.LoadDir", err)
	}

	ts := NewTrustStore()
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".pem" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, scerrors.NewCryptoError("certstore.LoadDir", err)
		}
		if err := ts.AddPEM(data); err != nil {
			return nil, err
		}
	}
	return ts, nil
}

// AddPEM parses PEM-encoded certificate data and adds every CERTIFICATE
// block found to the store's root pool.
func (ts *TrustStore) AddPEM(data []byte) error {
	added := false
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return scerrors.NewCryptoError("certstore.AddPEM", err)
		}
		ts.roots.AddCert(cert)
		added = true
	}
	if !added {
		return scerrors.ErrServerCertRejected
	}
	return nil
}

// VerifyLeaf parses a PEM-encoded leaf certificate and verifies it builds a
// chain to one of the store's trusted roots. On success it returns the
// parsed leaf certificate, whose RSA public key verifies the server's
// STSM authentication proof.
func (ts *TrustStore) VerifyLeaf(leafPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(leafPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, scerrors.ErrServerCertRejected
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, scerrors.ErrServerCertRejected
	}

	opts := x509.VerifyOptions{Roots: ts.roots}
	if _, err := cert.Verify(opts); err != nil {
		return nil, scerrors.ErrServerCertRejected
	}
	return cert, nil
}
