package userregistry_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/safecloud-project/safecloud/pkg/userregistry"
)

func writeTestKey(t *testing.T, dir, name string) *rsa.PublicKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey failed: %v", err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	if err := os.WriteFile(filepath.Join(dir, name+".pem"), data, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return &priv.PublicKey
}

func TestLookupFindsRegisteredUser(t *testing.T) {
	dir := t.TempDir()
	want := writeTestKey(t, dir, "alice")

	reg := userregistry.NewRegistry(dir)
	got, err := reg.Lookup("alice")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got.N.Cmp(want.N) != 0 {
		t.Error("looked-up public key does not match the stored one")
	}
}

func TestLookupCachesResult(t *testing.T) {
	dir := t.TempDir()
	writeTestKey(t, dir, "bob")

	reg := userregistry.NewRegistry(dir)
	first, err := reg.Lookup("bob")
	if err != nil {
		t.Fatalf("first Lookup failed: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "bob.pem")); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	second, err := reg.Lookup("bob")
	if err != nil {
		t.Fatalf("second Lookup should be served from cache, got error: %v", err)
	}
	if first != second {
		t.Error("expected cached lookup to return the same key value")
	}
}

func TestLookupUnknownUser(t *testing.T) {
	dir := t.TempDir()
	reg := userregistry.NewRegistry(dir)
	if _, err := reg.Lookup("mallory"); err == nil {
		t.Error("expected error for unregistered user")
	}
}

func TestLookupRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	reg := userregistry.NewRegistry(dir)
	for _, bad := range []string{"../escape", "a/b", "", ".", "..", string(make([]byte, 40))} {
		if _, err := reg.Lookup(bad); err == nil {
			t.Errorf("expected error for invalid name %q", bad)
		}
	}
}
