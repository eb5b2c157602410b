// streamaead.go extends GCMContext with an incremental AES-128-GCM path
// for raw-mode bulk transfer. cipher.AEAD's Seal/Open only ever present
// GCM as a single whole-buffer call, which would force every file to be
// held in memory at once; StreamWriter and StreamReader instead encrypt
// or decrypt any number of RawModeChunkSize-sized chunks against one
// nonce, with the GCM tag produced or checked exactly once at the end of
// the segment. This mirrors original_source's server session manager,
// which fed a raw-mode transfer through repeated OpenSSL EVP_*Update
// calls and finalized the tag once all ciphertext had passed through.
package cryptoutil

import (
	"crypto/cipher"
	"crypto/subtle"
	"errors"
	"io"

	"github.com/safecloud-project/safecloud/internal/constants"
	scerrors "github.com/safecloud-project/safecloud/internal/errors"
)

// rawAEADState is the incremental GCM machinery shared by StreamWriter
// and StreamReader: one CTR keystream and one running GHASH accumulator,
// both seeded from a single nonce snapshot. Additional authenticated
// data is never used in raw-mode segments (both Seal and Open always
// pass nil), so the GHASH trailer's AAD-length field is always zero.
type rawAEADState struct {
	ctr     cipher.Stream
	gh      *ghash
	tagMask [constants.GCMTagSize]byte
	cBytes  uint64
}

// newRawAEADState derives H and the tag mask E(J0) from block, and
// starts the CTR keystream at counter 2 (counter 1 is reserved for the
// tag mask), exactly as NIST SP 800-38D's GCM construction requires for
// a 96-bit nonce.
func newRawAEADState(block cipher.Block, nonce [constants.GCMNonceSize]byte) *rawAEADState {
	var hKey [16]byte
	block.Encrypt(hKey[:], hKey[:])

	var j0 [16]byte
	copy(j0[:constants.GCMNonceSize], nonce[:])
	j0[15] = 1
	var tagMask [constants.GCMTagSize]byte
	block.Encrypt(tagMask[:], j0[:])

	var ctrIV [16]byte
	copy(ctrIV[:constants.GCMNonceSize], nonce[:])
	ctrIV[15] = 2

	return &rawAEADState{
		ctr:     cipher.NewCTR(block, ctrIV[:]),
		gh:      newGHASH(hKey),
		tagMask: tagMask,
	}
}

func (s *rawAEADState) tag() [constants.GCMTagSize]byte {
	y := s.gh.Sum(0, s.cBytes*8)
	var tag [constants.GCMTagSize]byte
	for i := range tag {
		tag[i] = y[i] ^ s.tagMask[i]
	}
	return tag
}

// StreamWriter incrementally seals one raw-mode segment. Each Write
// encrypts and emits one more chunk of plaintext; Close computes and
// writes the segment's single trailing authentication tag. A
// StreamWriter is bound to the nonce snapshotted when it was created and
// must be used for exactly one segment.
type StreamWriter struct {
	dst    io.Writer
	state  *rawAEADState
	closed bool
}

// Write encrypts plaintext into a freshly allocated buffer (plaintext
// itself is left unmodified) and
// writes the resulting ciphertext to the underlying connection,
// accumulating it into the segment's running tag.
func (w *StreamWriter) Write(plaintext []byte) (int, error) {
	if w.closed {
		return 0, scerrors.ErrInvalidState
	}
	if len(plaintext) == 0 {
		return 0, nil
	}
	ciphertext := make([]byte, len(plaintext))
	w.state.ctr.XORKeyStream(ciphertext, plaintext)
	w.state.gh.Write(ciphertext)
	w.state.cBytes += uint64(len(ciphertext))
	if _, err := w.dst.Write(ciphertext); err != nil {
		return 0, err
	}
	return len(plaintext), nil
}

// Close finalizes and writes the segment's GCM tag. It must be called
// exactly once, after every plaintext byte for the segment has been
// passed to Write.
func (w *StreamWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	tag := w.state.tag()
	_, err := w.dst.Write(tag[:])
	return err
}

// StreamReader incrementally opens one raw-mode segment of exactly size
// plaintext bytes. Read yields decrypted plaintext as ciphertext arrives
// from src; Close then reads and verifies the trailing tag.
//
// Plaintext handed back by Read is provisional until Close returns nil:
// CTR decryption produces correct-looking bytes whether or not the
// segment is actually authentic, since the tag covers the whole segment
// and necessarily arrives last. Callers must stage Read's output (e.g.
// storagepool's temp-file-then-CommitTemp pattern) and only make it
// visible to the rest of the system once Close has confirmed the tag.
type StreamReader struct {
	src       io.Reader
	state     *rawAEADState
	remaining uint64
}

// Read decrypts up to len(p) bytes (capped at the segment's remaining
// plaintext count) by reading that many ciphertext bytes from src.
func (r *StreamReader) Read(p []byte) (int, error) {
	if r.remaining == 0 {
		return 0, io.EOF
	}
	if uint64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := io.ReadFull(r.src, p)
	if n > 0 {
		chunk := p[:n]
		r.state.gh.Write(chunk)
		r.state.cBytes += uint64(n)
		r.remaining -= uint64(n)
		r.state.ctr.XORKeyStream(chunk, chunk)
	}
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return n, scerrors.ErrPeerDisconnected
		}
		return n, err
	}
	return n, nil
}

// Close reads and verifies the trailing tag once all size bytes have
// been consumed via Read. Its error must be checked before any
// plaintext produced by Read is treated as authentic; a mismatch is
// reported as scerrors.ErrAuthenticationFailed, same as Open.
func (r *StreamReader) Close() error {
	if r.remaining != 0 {
		return scerrors.ErrCiphertextTooShort
	}
	var gotTag [constants.GCMTagSize]byte
	if _, err := io.ReadFull(r.src, gotTag[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return scerrors.ErrPeerDisconnected
		}
		return err
	}
	wantTag := r.state.tag()
	if subtle.ConstantTimeCompare(gotTag[:], wantTag[:]) != 1 {
		return scerrors.ErrAuthenticationFailed
	}
	return nil
}

// NewStreamSeal begins sealing a raw-mode segment: the shared nonce
// counter is snapshotted and advanced exactly once for the segment's
// entire lifetime, mirroring Seal's per-message discipline even though
// the segment's ciphertext is produced by any number of chunked
// StreamWriter.Write calls before Close finalizes its tag.
func (g *GCMContext) NewStreamSeal(dst io.Writer) (*StreamWriter, error) {
	nonce, err := g.beginStream()
	if err != nil {
		return nil, err
	}
	return &StreamWriter{dst: dst, state: newRawAEADState(g.block, nonce)}, nil
}

// NewStreamOpen is NewStreamSeal's dual: it begins decrypting a
// size-byte raw-mode segment read from src, advancing the shared nonce
// counter exactly once up front. The counter is consumed whether or not
// the segment's tag later verifies; Open, by contrast, leaves the counter
// unchanged when verification fails.
func (g *GCMContext) NewStreamOpen(src io.Reader, size uint64) (*StreamReader, error) {
	nonce, err := g.beginStream()
	if err != nil {
		return nil, err
	}
	return &StreamReader{src: src, remaining: size, state: newRawAEADState(g.block, nonce)}, nil
}

// beginStream snapshots the current nonce and advances the shared
// counter by one, under the same lock Seal and Open use.
func (g *GCMContext) beginStream() ([constants.GCMNonceSize]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	nonce := g.nonce
	if err := g.advanceLocked(); err != nil {
		return nonce, err
	}
	return nonce, nil
}
