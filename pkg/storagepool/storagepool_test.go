package storagepool_test

import (
	"crypto/sha256"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	scerrors "github.com/safecloud-project/safecloud/internal/errors"
	"github.com/safecloud-project/safecloud/pkg/storagepool"
)

func newTestPool(t *testing.T) *storagepool.FilePool {
	t.Helper()
	pool, err := storagepool.NewFilePool(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilePool failed: %v", err)
	}
	return pool
}

func writeViaCommit(t *testing.T, pool *storagepool.FilePool, name string, content []byte, mtime time.Time) {
	t.Helper()
	f, tempPath, err := pool.CreateTemp()
	if err != nil {
		t.Fatalf("CreateTemp failed: %v", err)
	}
	if _, err := f.Write(content); err != nil {
		t.Fatalf("write to temp file failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file failed: %v", err)
	}
	if err := pool.CommitTemp(tempPath, name, mtime); err != nil {
		t.Fatalf("CommitTemp failed: %v", err)
	}
}

func TestUploadCommitIsAtomicAndPreservesContentAndMtime(t *testing.T) {
	pool := newTestPool(t)
	content := []byte("the quick brown fox")
	mtime := time.Unix(1_700_000_000, 0)

	writeViaCommit(t, pool, "fox.txt", content, mtime)

	f, md, err := pool.Open("fox.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content = %q, want %q", got, content)
	}

	wantSum := sha256.Sum256(content)
	gotSum := sha256.Sum256(got)
	if wantSum != gotSum {
		t.Error("SHA-256 mismatch between written and stored content")
	}

	if md.Mtime != uint64(mtime.Unix()) {
		t.Errorf("Mtime = %d, want %d", md.Mtime, mtime.Unix())
	}
	if md.Size != uint64(len(content)) {
		t.Errorf("Size = %d, want %d", md.Size, len(content))
	}
}

func TestFailedUploadLeavesNoTempFileAndNoPoolEntry(t *testing.T) {
	dir := t.TempDir()
	pool, err := storagepool.NewFilePool(dir)
	if err != nil {
		t.Fatalf("NewFilePool failed: %v", err)
	}

	f, tempPath, err := pool.CreateTemp()
	if err != nil {
		t.Fatalf("CreateTemp failed: %v", err)
	}
	if _, err := f.Write([]byte("partial")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	f.Close()

	// Simulate an AEAD tag failure mid-stream: the caller deletes the temp
	// file instead of committing it.
	if err := os.Remove(tempPath); err != nil {
		t.Fatalf("removing temp file failed: %v", err)
	}

	if _, err := pool.Stat("aborted.txt"); !errors.Is(err, scerrors.ErrFileNotFound) {
		t.Errorf("Stat on never-committed name = %v, want ErrFileNotFound", err)
	}
	if _, err := os.Stat(tempPath); !os.IsNotExist(err) {
		t.Error("expected temp file to be gone after cancellation")
	}
}

func TestRenameRejectsOverwritingExistingDestination(t *testing.T) {
	pool := newTestPool(t)
	now := time.Now()
	writeViaCommit(t, pool, "a.txt", []byte("a"), now)
	writeViaCommit(t, pool, "b.txt", []byte("b"), now)

	if err := pool.Rename("a.txt", "b.txt"); !errors.Is(err, scerrors.ErrFileExists) {
		t.Errorf("Rename over existing destination = %v, want ErrFileExists", err)
	}
}

func TestRenameUnknownSourceFails(t *testing.T) {
	pool := newTestPool(t)
	if err := pool.Rename("missing.txt", "new.txt"); !errors.Is(err, scerrors.ErrFileNotFound) {
		t.Errorf("Rename of missing source = %v, want ErrFileNotFound", err)
	}
}

func TestRenameSucceeds(t *testing.T) {
	pool := newTestPool(t)
	writeViaCommit(t, pool, "old.txt", []byte("data"), time.Now())

	if err := pool.Rename("old.txt", "new.txt"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if _, err := pool.Stat("old.txt"); !errors.Is(err, scerrors.ErrFileNotFound) {
		t.Errorf("Stat(old.txt) after rename = %v, want ErrFileNotFound", err)
	}
	if _, err := pool.Stat("new.txt"); err != nil {
		t.Errorf("Stat(new.txt) after rename failed: %v", err)
	}
}

func TestDeleteRemovesFile(t *testing.T) {
	pool := newTestPool(t)
	writeViaCommit(t, pool, "gone.txt", []byte("x"), time.Now())

	if err := pool.Delete("gone.txt"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := pool.Stat("gone.txt"); !errors.Is(err, scerrors.ErrFileNotFound) {
		t.Errorf("Stat after delete = %v, want ErrFileNotFound", err)
	}
}

func TestListSkipsTempSubdirectory(t *testing.T) {
	pool := newTestPool(t)
	writeViaCommit(t, pool, "one.txt", []byte("1"), time.Now())
	writeViaCommit(t, pool, "two.txt", []byte("22"), time.Now())

	entries, err := pool.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List returned %d entries, want 2: %+v", len(entries), entries)
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	if !names["one.txt"] || !names["two.txt"] {
		t.Errorf("List entries = %+v, want one.txt and two.txt", entries)
	}
}

func TestValidateNameRejectsPathTraversalAndSeparators(t *testing.T) {
	pool := newTestPool(t)
	bad := []string{"", ".", "..", "a/b", "a\\b", "../escape"}
	for _, name := range bad {
		if _, err := pool.Stat(name); !errors.Is(err, scerrors.ErrInvalidFileName) {
			t.Errorf("Stat(%q) = %v, want ErrInvalidFileName", name, err)
		}
	}
}

func TestNewFilePoolCreatesTempSubdir(t *testing.T) {
	dir := t.TempDir()
	if _, err := storagepool.NewFilePool(dir); err != nil {
		t.Fatalf("NewFilePool failed: %v", err)
	}
	if info, err := os.Stat(filepath.Join(dir, ".tmp")); err != nil || !info.IsDir() {
		t.Errorf("expected .tmp staging subdirectory to exist under %s", dir)
	}
}
