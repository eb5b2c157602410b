// Package userregistry resolves a client's asserted username to its
// long-term RSA public key, file-backed as `<dir>/<name>.pem` (spec.md
// §4.2, §6). Lookup failures of any kind are reported uniformly by the
// caller as CLIENT_LOGIN_FAILED, to avoid leaking account enumeration.
package userregistry

import (
	"crypto/rsa"
	"path/filepath"
	"strings"
	"sync"

	"github.com/safecloud-project/safecloud/internal/constants"
	scerrors "github.com/safecloud-project/safecloud/internal/errors"
	"github.com/safecloud-project/safecloud/pkg/cryptoutil"
)

// Registry looks up per-user RSA public keys under a single directory.
type Registry struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*rsa.PublicKey
}

// NewRegistry creates a registry rooted at dir, the directory holding one
// `<name>.pem` file per registered user.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir, cache: make(map[string]*rsa.PublicKey)}
}

// Lookup resolves name to its RSA public key. name must already be
// sanitized by the caller (bounded length, restricted character set, no
// path separators) — Lookup additionally refuses any name that would
// escape dir once joined, as defense in depth.
func (r *Registry) Lookup(name string) (*rsa.PublicKey, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	r.mu.RLock()
	if key, ok := r.cache[name]; ok {
		r.mu.RUnlock()
		return key, nil
	}
	r.mu.RUnlock()

	path := filepath.Join(r.dir, name+".pem")
	if !strings.HasPrefix(path, filepath.Clean(r.dir)+string(filepath.Separator)) {
		return nil, scerrors.ErrClientLoginFailed
	}

	key, err := cryptoutil.LoadRSAPublicKey(path)
	if err != nil {
		return nil, scerrors.ErrClientLoginFailed
	}

	r.mu.Lock()
	r.cache[name] = key
	r.mu.Unlock()

	return key, nil
}

// validateName re-checks the username invariants the handshake layer is
// responsible for enforcing before calling Lookup: 1..30 bytes, no path
// separators, no "." or "..".
func validateName(name string) error {
	if len(name) == 0 || len(name) > constants.MaxClientNameLength {
		return scerrors.ErrClientLoginFailed
	}
	if name == "." || name == ".." {
		return scerrors.ErrClientLoginFailed
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return scerrors.ErrClientLoginFailed
	}
	return nil
}
