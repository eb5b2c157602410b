// rawstream.go implements the raw-mode streaming discipline of spec.md
// §4.5: once a control message has declared a byte count, the sender and
// receiver switch to reading/writing that many raw bytes directly off the
// connection, bypassing protocol.Framer's session-frame envelope (whose
// 4-byte length prefix tops out at constants.MaxFrameSize, far smaller
// than a bulk transfer). sendRawFrom/recvRawTo drive cryptoutil's
// StreamWriter/StreamReader in constants.RawModeChunkSize pieces through
// one borrowed pkg/buffers raw buffer per segment, so a raw-mode segment
// is bounded by disk and network throughput rather than by buffer
// capacity, with the GCM tag still produced or verified exactly once per
// segment.
package session

import (
	"bytes"
	"io"

	"github.com/safecloud-project/safecloud/internal/constants"
	"github.com/safecloud-project/safecloud/pkg/buffers"
)

// chunkBuffer borrows the Connection Manager's pooled raw buffer for the
// duration of one raw-mode segment and trims it down to the working
// chunk size sendRawFrom/recvRawTo actually copy through at a time.
func chunkBuffer(size uint64) (chunk []byte, release func()) {
	buf := buffers.GetRawBuffer()
	n := uint64(constants.RawModeChunkSize)
	if size < n {
		n = size
	}
	if n == 0 {
		n = 1 // io.CopyBuffer/ReadFull need a non-empty buffer even for size 0
	}
	return buf[:n], func() { buffers.PutRawBuffer(buf) }
}

// sendRawFrom reads exactly size bytes from src, sealing them into the
// raw-mode AEAD stream in constants.RawModeChunkSize pieces as they're
// read off src. Unlike the old whole-buffer design, size is not bounded
// by constants.RawBufferSize: only the per-chunk scratch buffer is.
func (m *Manager) sendRawFrom(src io.Reader, size uint64) error {
	sw, err := m.gcm.NewStreamSeal(m.framer.Raw())
	if err != nil {
		return err
	}

	chunk, release := chunkBuffer(size)
	defer release()

	remaining := size
	for remaining > 0 {
		n := uint64(len(chunk))
		if n > remaining {
			n = remaining
		}
		if _, err := io.ReadFull(src, chunk[:n]); err != nil {
			return err
		}
		if _, err := sw.Write(chunk[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	return sw.Close()
}

// recvRawTo reads size bytes of raw-mode ciphertext plus the trailing
// GCM tag from the connection, decrypting in constants.RawModeChunkSize
// pieces and writing each decrypted piece to dst as it arrives.
//
// Per StreamReader's contract, dst may receive plaintext derived from an
// ultimately-inauthentic segment: callers writing to anything other than
// a throwaway buffer must stage dst (e.g. a not-yet-committed temp file)
// and only make it visible once recvRawTo returns a nil error.
func (m *Manager) recvRawTo(dst io.Writer, size uint64) error {
	sr, err := m.gcm.NewStreamOpen(m.framer.Raw(), size)
	if err != nil {
		return err
	}

	chunk, release := chunkBuffer(size)
	defer release()

	if _, err := io.CopyBuffer(dst, sr, chunk); err != nil {
		return err
	}
	return sr.Close()
}

// sendRaw seals an already-buffered payload as a single raw-mode
// segment. Reserved for small, known-size blobs such as handleList's
// encoded file listing; file content streams through sendRawFrom instead
// so it never needs to be held in memory in full.
func (m *Manager) sendRaw(plaintext []byte) error {
	return m.sendRawFrom(bytes.NewReader(plaintext), uint64(len(plaintext)))
}

// recvRaw reads a raw-mode segment fully into memory. Reserved for
// small, known-size payloads the caller needs as one blob (e.g. List's
// encoded file listing); file content streams through recvRawTo instead.
func (m *Manager) recvRaw(size uint64) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(size))
	if err := m.recvRawTo(&buf, size); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
