package session_test

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"net"
	"testing"
	"time"

	scerrors "github.com/safecloud-project/safecloud/internal/errors"
	"github.com/safecloud-project/safecloud/pkg/cryptoutil"
	"github.com/safecloud-project/safecloud/pkg/protocol"
	"github.com/safecloud-project/safecloud/pkg/session"
	"github.com/safecloud-project/safecloud/pkg/storagepool"
)

// newManagerPair builds a connected client/server Manager pair sharing a
// key and initial nonce, as if a handshake had just completed.
func newManagerPair(t *testing.T, pool storagepool.Pool) (client, server *session.Manager) {
	t.Helper()
	clientConn, serverConn := net.Pipe()

	key := make([]byte, 16)
	nonce := make([]byte, 12)
	for i := range key {
		key[i] = byte(i + 1)
	}
	for i := range nonce {
		nonce[i] = byte(i)
	}

	clientGCM, err := cryptoutil.NewGCMContext(key, nonce)
	if err != nil {
		t.Fatalf("NewGCMContext (client) failed: %v", err)
	}
	serverGCM, err := cryptoutil.NewGCMContext(append([]byte(nil), key...), append([]byte(nil), nonce...))
	if err != nil {
		t.Fatalf("NewGCMContext (server) failed: %v", err)
	}

	client = session.NewManager(protocol.NewFramer(clientConn), clientGCM, nil)
	server = session.NewManager(protocol.NewFramer(serverConn), serverGCM, pool)
	return client, server
}

func runServe(t *testing.T, server *session.Manager, done chan<- error) {
	t.Helper()
	go func() { done <- server.Serve() }()
}

// upload is a test helper wrapping Manager.Upload over an in-memory
// []byte, since the production signature now streams from an io.Reader.
func upload(client *session.Manager, name string, content []byte, mtime time.Time, confirm func(protocol.FileMetadata) bool) error {
	return client.Upload(name, bytes.NewReader(content), uint64(len(content)), mtime, confirm)
}

// download is download's counterpart: drains Manager.Download into a
// []byte for assertions.
func download(client *session.Manager, name string, confirm func(protocol.FileMetadata) bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := client.Download(name, &buf, confirm); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func TestUploadThenDownloadRoundTrip(t *testing.T) {
	pool, err := storagepool.NewFilePool(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilePool failed: %v", err)
	}
	client, server := newManagerPair(t, pool)

	done := make(chan error, 1)
	runServe(t, server, done)

	content := []byte("the quick brown fox jumps over the lazy dog")
	mtime := time.Unix(1_700_000_000, 0)
	if err := upload(client, "fox.txt", content, mtime, nil); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	got, err := download(client, "fox.txt", nil)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if sha256.Sum256(got) != sha256.Sum256(content) {
		t.Error("downloaded content does not match uploaded content")
	}

	if err := client.Bye(); err != nil {
		t.Fatalf("Bye failed: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("server.Serve() returned %v, want nil after BYE", err)
	}
}

func TestUploadZeroSizeFile(t *testing.T) {
	pool, err := storagepool.NewFilePool(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilePool failed: %v", err)
	}
	client, server := newManagerPair(t, pool)

	done := make(chan error, 1)
	runServe(t, server, done)

	if err := upload(client, "empty.txt", nil, time.Now(), nil); err != nil {
		t.Fatalf("Upload of empty file failed: %v", err)
	}

	got, err := download(client, "empty.txt", nil)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("downloaded content = %v, want empty", got)
	}

	_ = client.Bye()
	<-done
}

func TestUploadExistingFileRequiresConfirmation(t *testing.T) {
	pool, err := storagepool.NewFilePool(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilePool failed: %v", err)
	}
	client, server := newManagerPair(t, pool)

	done := make(chan error, 1)
	runServe(t, server, done)

	if err := upload(client, "dup.txt", []byte("v1"), time.Now(), nil); err != nil {
		t.Fatalf("first Upload failed: %v", err)
	}

	askedAboutExisting := false
	err = upload(client, "dup.txt", []byte("v2-longer-content"), time.Now(), func(existing protocol.FileMetadata) bool {
		askedAboutExisting = true
		if existing.Name != "dup.txt" {
			t.Errorf("existing.Name = %q, want dup.txt", existing.Name)
		}
		return true
	})
	if err != nil {
		t.Fatalf("overwrite Upload failed: %v", err)
	}
	if !askedAboutExisting {
		t.Error("confirmOverwrite callback was never invoked")
	}

	got, err := download(client, "dup.txt", nil)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if string(got) != "v2-longer-content" {
		t.Errorf("content after overwrite = %q, want %q", got, "v2-longer-content")
	}

	_ = client.Bye()
	<-done
}

func TestUploadDeclinedOverwriteCancelsAndKeepsOriginal(t *testing.T) {
	pool, err := storagepool.NewFilePool(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilePool failed: %v", err)
	}
	client, server := newManagerPair(t, pool)

	done := make(chan error, 1)
	runServe(t, server, done)

	if err := upload(client, "keep.txt", []byte("original"), time.Now(), nil); err != nil {
		t.Fatalf("first Upload failed: %v", err)
	}

	err = upload(client, "keep.txt", []byte("rejected"), time.Now(), func(protocol.FileMetadata) bool {
		return false
	})
	if !errors.Is(err, scerrors.ErrOperationCancelled) {
		t.Fatalf("declined overwrite returned %v, want ErrOperationCancelled", err)
	}

	got, err := download(client, "keep.txt", nil)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if string(got) != "original" {
		t.Errorf("content after declined overwrite = %q, want %q", got, "original")
	}

	_ = client.Bye()
	<-done
}

func TestDownloadMissingFileIsCancelled(t *testing.T) {
	pool, err := storagepool.NewFilePool(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilePool failed: %v", err)
	}
	client, server := newManagerPair(t, pool)

	done := make(chan error, 1)
	runServe(t, server, done)

	_, err = download(client, "ghost.txt", nil)
	if !errors.Is(err, scerrors.ErrOperationCancelled) {
		t.Fatalf("Download of missing file = %v, want ErrOperationCancelled", err)
	}

	if client.Operation() != session.OpIdle {
		t.Errorf("client operation = %v, want Idle after cancellation", client.Operation())
	}

	_ = client.Bye()
	<-done
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	pool, err := storagepool.NewFilePool(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilePool failed: %v", err)
	}
	client, server := newManagerPair(t, pool)

	done := make(chan error, 1)
	runServe(t, server, done)

	if err := upload(client, "todelete.txt", []byte("bye"), time.Now(), nil); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	confirmed := false
	if err := client.Delete("todelete.txt", func(protocol.FileMetadata) bool {
		confirmed = true
		return true
	}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !confirmed {
		t.Error("confirmDelete callback was never invoked")
	}

	if _, err := download(client, "todelete.txt", nil); !errors.Is(err, scerrors.ErrOperationCancelled) {
		t.Errorf("Download after delete = %v, want ErrOperationCancelled", err)
	}

	_ = client.Bye()
	<-done
}

func TestRenameSucceedsWithoutConfirmation(t *testing.T) {
	pool, err := storagepool.NewFilePool(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilePool failed: %v", err)
	}
	client, server := newManagerPair(t, pool)

	done := make(chan error, 1)
	runServe(t, server, done)

	if err := upload(client, "old.txt", []byte("data"), time.Now(), nil); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if err := client.Rename("old.txt", "new.txt"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	if _, err := download(client, "new.txt", nil); err != nil {
		t.Fatalf("Download(new.txt) failed: %v", err)
	}

	_ = client.Bye()
	<-done
}

func TestRenameConflictIsCancelled(t *testing.T) {
	pool, err := storagepool.NewFilePool(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilePool failed: %v", err)
	}
	client, server := newManagerPair(t, pool)

	done := make(chan error, 1)
	runServe(t, server, done)

	if err := upload(client, "a.txt", []byte("a"), time.Now(), nil); err != nil {
		t.Fatalf("Upload a.txt failed: %v", err)
	}
	if err := upload(client, "b.txt", []byte("b"), time.Now(), nil); err != nil {
		t.Fatalf("Upload b.txt failed: %v", err)
	}

	err = client.Rename("a.txt", "b.txt")
	if !errors.Is(err, scerrors.ErrOperationCancelled) {
		t.Fatalf("Rename onto existing name = %v, want ErrOperationCancelled", err)
	}

	_ = client.Bye()
	<-done
}

func TestListReturnsAllUploadedFiles(t *testing.T) {
	pool, err := storagepool.NewFilePool(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilePool failed: %v", err)
	}
	client, server := newManagerPair(t, pool)

	done := make(chan error, 1)
	runServe(t, server, done)

	for _, name := range []string{"one.txt", "two.txt", "three.txt"} {
		if err := upload(client, name, []byte(name), time.Now(), nil); err != nil {
			t.Fatalf("Upload(%s) failed: %v", name, err)
		}
	}

	entries, err := client.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List returned %d entries, want 3: %+v", len(entries), entries)
	}

	_ = client.Bye()
	<-done
}

// TestUploadDownloadLargeFileCrossesChunkBoundaries exercises the
// streaming raw-mode path over a payload spanning many
// constants.RawModeChunkSize-sized pieces, guarding against a
// regression to the old whole-buffer Seal/Open design.
func TestUploadDownloadLargeFileCrossesChunkBoundaries(t *testing.T) {
	pool, err := storagepool.NewFilePool(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilePool failed: %v", err)
	}
	client, server := newManagerPair(t, pool)

	done := make(chan error, 1)
	runServe(t, server, done)

	content := bytes.Repeat([]byte("0123456789abcdef"), 1<<16) // 1 MiB, not chunk-aligned at the tail
	content = append(content, []byte("trailing-tail-bytes")...)

	if err := upload(client, "big.bin", content, time.Now(), nil); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	got, err := download(client, "big.bin", nil)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("downloaded large file does not match uploaded content")
	}

	_ = client.Bye()
	<-done
}
