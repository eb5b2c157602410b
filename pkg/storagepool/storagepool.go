// Package storagepool implements per-user on-disk file storage for the
// session manager: stat, temp-file staging, atomic commit, open, delete,
// rename and listing. The session manager never touches the filesystem
// directly; it depends only on the Pool interface defined here, so Property
// 6 (upload atomicity) reduces to CommitTemp being a single os.Rename.
package storagepool

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/safecloud-project/safecloud/internal/constants"
	scerrors "github.com/safecloud-project/safecloud/internal/errors"
)

// Metadata describes one stored file, independent of the wire encoding
// pkg/protocol uses for the same fields.
type Metadata struct {
	Name  string
	Size  uint64
	Mtime uint64 // Unix seconds
	Ctime uint64 // Unix seconds
}

// Pool is the storage-layer collaborator the session manager depends on.
// A FilePool is the only implementation; tests may supply their own.
type Pool interface {
	Stat(name string) (Metadata, error)
	CreateTemp() (*os.File, string, error)
	CommitTemp(tempPath, name string, mtime time.Time) error
	Open(name string) (*os.File, Metadata, error)
	Delete(name string) error
	Rename(oldName, newName string) error
	List() ([]Metadata, error)
}

const tempSubdir = ".tmp"

// FilePool is a Pool backed by one directory per user, with a ".tmp"
// subdirectory used to stage uploads before they are committed.
type FilePool struct {
	root string
	tmp  string
}

// NewFilePool opens (creating if necessary) a user's storage directory
// rooted at dir, along with its temp-staging subdirectory.
func NewFilePool(dir string) (*FilePool, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, scerrors.NewStorageError("storagepool.NewFilePool", err)
	}
	tmp := filepath.Join(dir, tempSubdir)
	if err := os.MkdirAll(tmp, 0o700); err != nil {
		return nil, scerrors.NewStorageError("storagepool.NewFilePool", err)
	}
	return &FilePool{root: dir, tmp: tmp}, nil
}

// validateName enforces spec.md's single-component filename rule: non-empty,
// at most MaxFileNameLength bytes, no path separators, and not "." or "..".
func validateName(name string) error {
	if name == "" || len(name) > constants.MaxFileNameLength {
		return scerrors.ErrInvalidFileName
	}
	if name == "." || name == ".." {
		return scerrors.ErrInvalidFileName
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, '\\') {
		return scerrors.ErrInvalidFileName
	}
	if strings.ContainsRune(name, 0) {
		return scerrors.ErrInvalidFileName
	}
	return nil
}

func (p *FilePool) path(name string) string {
	return filepath.Join(p.root, name)
}

func statMetadata(name string, info os.FileInfo) Metadata {
	md := Metadata{
		Name:  name,
		Size:  uint64(info.Size()),
		Mtime: uint64(info.ModTime().Unix()),
	}
	if sys, ok := info.Sys().(*syscall.Stat_t); ok {
		md.Ctime = uint64(sys.Ctim.Sec)
	} else {
		md.Ctime = md.Mtime
	}
	return md
}

// Stat returns the stored metadata for name, or ErrFileNotFound.
func (p *FilePool) Stat(name string) (Metadata, error) {
	if err := validateName(name); err != nil {
		return Metadata{}, err
	}
	info, err := os.Stat(p.path(name))
	if os.IsNotExist(err) {
		return Metadata{}, scerrors.ErrFileNotFound
	}
	if err != nil {
		return Metadata{}, scerrors.NewStorageError("storagepool.Stat", err)
	}
	return statMetadata(name, info), nil
}

// CreateTemp opens a new, exclusively-created temp file in the pool's
// staging subdirectory and returns it alongside its path. The caller
// decrypts the raw upload stream into this file, then calls CommitTemp on
// success or deletes it on failure.
func (p *FilePool) CreateTemp() (*os.File, string, error) {
	f, err := os.CreateTemp(p.tmp, "upload-*")
	if err != nil {
		return nil, "", scerrors.NewStorageError("storagepool.CreateTemp", err)
	}
	return f, f.Name(), nil
}

// CommitTemp atomically renames a completed temp file into the pool under
// name, after stamping it with the client-declared modification time. The
// rename is atomic within one filesystem, which is what makes Property 6
// (operation atomicity) hold: there is no window in which a partially
// written file is visible at name.
func (p *FilePool) CommitTemp(tempPath, name string, mtime time.Time) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.Chtimes(tempPath, mtime, mtime); err != nil {
		return scerrors.NewStorageError("storagepool.CommitTemp", err)
	}
	if err := os.Rename(tempPath, p.path(name)); err != nil {
		return scerrors.NewStorageError("storagepool.CommitTemp", err)
	}
	return nil
}

// Open opens a stored file for reading, returning it with its metadata.
func (p *FilePool) Open(name string) (*os.File, Metadata, error) {
	if err := validateName(name); err != nil {
		return nil, Metadata{}, err
	}
	f, err := os.Open(p.path(name))
	if os.IsNotExist(err) {
		return nil, Metadata{}, scerrors.ErrFileNotFound
	}
	if err != nil {
		return nil, Metadata{}, scerrors.NewStorageError("storagepool.Open", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, Metadata{}, scerrors.NewStorageError("storagepool.Open", err)
	}
	return f, statMetadata(name, info), nil
}

// Delete removes a stored file.
func (p *FilePool) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.Remove(p.path(name)); err != nil {
		if os.IsNotExist(err) {
			return scerrors.ErrFileNotFound
		}
		return scerrors.NewStorageError("storagepool.Delete", err)
	}
	return nil
}

// Rename renames oldName to newName within the pool. newName must not
// already exist, matching spec.md §4.3's rename semantics (never
// overwrites).
func (p *FilePool) Rename(oldName, newName string) error {
	if err := validateName(oldName); err != nil {
		return err
	}
	if err := validateName(newName); err != nil {
		return err
	}
	if _, err := os.Stat(p.path(oldName)); os.IsNotExist(err) {
		return scerrors.ErrFileNotFound
	}
	if _, err := os.Stat(p.path(newName)); err == nil {
		return scerrors.ErrFileExists
	}
	if err := os.Rename(p.path(oldName), p.path(newName)); err != nil {
		return scerrors.NewStorageError("storagepool.Rename", err)
	}
	return nil
}

// List returns metadata for every file directly in the pool, skipping the
// temp-staging subdirectory.
func (p *FilePool) List() ([]Metadata, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil, scerrors.NewStorageError("storagepool.List", err)
	}

	out := make([]Metadata, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, statMetadata(entry.Name(), info))
	}
	return out, nil
}
