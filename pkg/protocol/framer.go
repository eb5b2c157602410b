// framer.go implements the Message Framer (spec.md §4.1): it reads and
// writes length-prefixed frames over a raw byte stream, with no knowledge
// of cipher state. It serves both the plaintext handshake phase and the
// AEAD-wrapped session phase; the distinction lives entirely in the
// caller, which chooses ReadHandshakeFrame/WriteHandshakeFrame or
// ReadSessionFrame/WriteSessionFrame.
package protocol

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/safecloud-project/safecloud/internal/constants"
	scerrors "github.com/safecloud-project/safecloud/internal/errors"
)

// SessionFrameHeaderSize is the size of a session frame's length prefix.
const SessionFrameHeaderSize = 4

// Framer reads and writes framed messages over an underlying byte stream.
type Framer struct {
	rw io.ReadWriter
}

// NewFramer wraps a connected byte stream with frame-level read/write
// operations.
func NewFramer(rw io.ReadWriter) *Framer {
	return &Framer{rw: rw}
}

// Raw returns the underlying byte stream for raw-mode transfer, which
// bypasses the framer's session-frame envelope entirely (spec.md §4.5):
// the session package's sendRawFrom/recvRawTo read and write a
// previously-declared byte count directly,
// since raw-mode payloads can exceed MaxFrameSize.
func (f *Framer) Raw() io.ReadWriter {
	return f.rw
}

// ReadHandshakeFrame reads one complete handshake frame and returns its
// message type and payload (header stripped).
func (f *Framer) ReadHandshakeFrame() (HandshakeMessageType, []byte, error) {
	header := make([]byte, HandshakeHeaderSize)
	if err := f.readFull(header); err != nil {
		return 0, nil, err
	}

	frameLen := binary.LittleEndian.Uint16(header[0:2])
	if int(frameLen) < HandshakeHeaderSize || int(frameLen) > constants.MaxFrameSize {
		return 0, nil, scerrors.ErrMsgLengthInvalid
	}
	mt := HandshakeMessageType(header[2])

	payloadLen := int(frameLen) - HandshakeHeaderSize
	if payloadLen == 0 {
		return mt, nil, nil
	}
	payload := make([]byte, payloadLen)
	if err := f.readFull(payload); err != nil {
		return 0, nil, err
	}
	return mt, payload, nil
}

// WriteHandshakeFrame writes a complete, pre-encoded handshake frame (as
// produced by EncodeClientHello/EncodeServerAuth/... or EncodeHandshakeError).
func (f *Framer) WriteHandshakeFrame(frame []byte) error {
	_, err := f.rw.Write(frame)
	return err
}

// ReadSessionFrame reads one session frame's outer wrapper and returns its
// body: the AEAD ciphertext with the 16-byte GCM tag appended, exactly as
// produced by GCMContext.Seal. The 4-byte length prefix covers only the
// body, not the prefix itself.
func (f *Framer) ReadSessionFrame() ([]byte, error) {
	header := make([]byte, SessionFrameHeaderSize)
	if err := f.readFull(header); err != nil {
		return nil, err
	}

	bodyLen := binary.LittleEndian.Uint32(header)
	if bodyLen < constants.GCMTagSize || bodyLen > constants.MaxFrameSize {
		return nil, scerrors.ErrMsgLengthInvalid
	}

	body := make([]byte, bodyLen)
	if err := f.readFull(body); err != nil {
		return nil, err
	}
	return body, nil
}

// WriteSessionFrame writes a session frame: a 4-byte little-endian length
// prefix followed by body (ciphertext||tag).
func (f *Framer) WriteSessionFrame(body []byte) error {
	header := make([]byte, SessionFrameHeaderSize)
	binary.LittleEndian.PutUint32(header, uint32(len(body)))
	if _, err := f.rw.Write(header); err != nil {
		return err
	}
	_, err := f.rw.Write(body)
	return err
}

// readFull reads exactly len(buf) bytes, mapping a mid-frame EOF to the
// framer's disconnection sentinel.
func (f *Framer) readFull(buf []byte) error {
	_, err := io.ReadFull(f.rw, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return scerrors.ErrPeerDisconnected
		}
		return err
	}
	return nil
}
