// codec.go implements serialization and deserialization of handshake and
// session messages.
//
// Wire format (handshake frame):
//
//	+--------+------+----------+
//	| Length | Type | Payload  |
//	| 2B LE  | 1B   | Variable |
//	+--------+------+----------+
//
// Length is a little-endian uint16 covering the whole frame, header
// included (spec.md §6: "all multi-byte integers little-endian").
//
// CLIENT_HELLO payload: Yc_PEM[L_DH] || iv_seed[16]
// SRV_AUTH payload:     Ys_PEM[L_DH] || srv_proof[272] || cert_PEM[var]
// CLI_AUTH payload:     name[31] (NUL-padded) || cli_proof[272]
// SRV_OK payload:       empty
package protocol

import (
	"encoding/binary"

	"github.com/safecloud-project/safecloud/internal/constants"
	scerrors "github.com/safecloud-project/safecloud/internal/errors"
)

// HandshakeHeaderSize is the size of a handshake frame header (length + type).
const HandshakeHeaderSize = 3

// clientAuthNameFieldSize is the fixed width of CLI_AUTH's name field: up to
// MaxClientNameLength bytes plus one mandatory NUL terminator.
const clientAuthNameFieldSize = constants.MaxClientNameLength + 1

// EncodeClientHello serializes a ClientHello into a complete handshake frame.
func EncodeClientHello(m *ClientHello) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	payload := make([]byte, 0, constants.DHPubKeySize+constants.CBCIVSize)
	payload = append(payload, m.YcPub...)
	payload = append(payload, m.IVSeed...)
	return encodeFrame(MsgClientHello, payload), nil
}

// DecodeClientHello parses a CLIENT_HELLO frame's payload (header already
// stripped by the Framer).
func DecodeClientHello(payload []byte) (*ClientHello, error) {
	want := constants.DHPubKeySize + constants.CBCIVSize
	if len(payload) != want {
		return nil, scerrors.ErrMalformedMessage
	}
	m := &ClientHello{
		YcPub:  append([]byte(nil), payload[:constants.DHPubKeySize]...),
		IVSeed: append([]byte(nil), payload[constants.DHPubKeySize:]...),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeServerAuth serializes a ServerAuth into a complete handshake frame.
func EncodeServerAuth(m *ServerAuth) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	payload := make([]byte, 0, constants.DHPubKeySize+constants.STSMAuthProofSize+len(m.CertPEM))
	payload = append(payload, m.YsPub...)
	payload = append(payload, m.Proof...)
	payload = append(payload, m.CertPEM...)
	return encodeFrame(MsgSrvAuth, payload), nil
}

// DecodeServerAuth parses a SRV_AUTH frame's payload.
func DecodeServerAuth(payload []byte) (*ServerAuth, error) {
	minLen := constants.DHPubKeySize + constants.STSMAuthProofSize
	if len(payload) <= minLen {
		return nil, scerrors.ErrMalformedMessage
	}
	m := &ServerAuth{
		YsPub:   append([]byte(nil), payload[:constants.DHPubKeySize]...),
		Proof:   append([]byte(nil), payload[constants.DHPubKeySize:minLen]...),
		CertPEM: append([]byte(nil), payload[minLen:]...),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeClientAuth serializes a ClientAuth into a complete handshake frame.
// The name is right-padded with NUL bytes to clientAuthNameFieldSize.
func EncodeClientAuth(m *ClientAuth) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	payload := make([]byte, clientAuthNameFieldSize+constants.STSMAuthProofSize)
	copy(payload, m.Name)
	copy(payload[clientAuthNameFieldSize:], m.Proof)
	return encodeFrame(MsgCliAuth, payload), nil
}

// DecodeClientAuth parses a CLI_AUTH frame's payload.
func DecodeClientAuth(payload []byte) (*ClientAuth, error) {
	want := clientAuthNameFieldSize + constants.STSMAuthProofSize
	if len(payload) != want {
		return nil, scerrors.ErrMalformedMessage
	}
	nameField := payload[:clientAuthNameFieldSize]
	nul := len(nameField)
	for i, b := range nameField {
		if b == 0 {
			nul = i
			break
		}
	}
	m := &ClientAuth{
		Name:  string(nameField[:nul]),
		Proof: append([]byte(nil), payload[clientAuthNameFieldSize:]...),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeServerOk serializes the empty SRV_OK frame.
func EncodeServerOk() []byte {
	return encodeFrame(MsgSrvOk, nil)
}

// EncodeHandshakeError serializes a typed, payload-free handshake error frame.
func EncodeHandshakeError(mt HandshakeMessageType) []byte {
	return encodeFrame(mt, nil)
}

// encodeFrame assembles a complete handshake frame: a 3-byte little-endian
// header followed by the payload.
func encodeFrame(mt HandshakeMessageType, payload []byte) []byte {
	buf := make([]byte, HandshakeHeaderSize+len(payload))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(HandshakeHeaderSize+len(payload)))
	buf[2] = byte(mt)
	copy(buf[HandshakeHeaderSize:], payload)
	return buf
}

// EncodeSessionMessage serializes a session message's plaintext: the
// one-byte type header followed by its type-specific payload. The result is
// what gets sealed as a single AEAD plaintext by the session's GCMContext;
// the session protocol carries no separate AAD, since GCM already
// authenticates the whole sealed plaintext under the frame's nonce.
func EncodeSessionMessage(mt SessionMessageType, payload []byte) []byte {
	buf := make([]byte, 1+len(payload))
	buf[0] = byte(mt)
	copy(buf[1:], payload)
	return buf
}

// DecodeSessionMessage splits a decrypted session plaintext back into its
// type header and payload.
func DecodeSessionMessage(plaintext []byte) (SessionMessageType, []byte, error) {
	if len(plaintext) < 1 {
		return 0, nil, scerrors.ErrMalformedSessMessage
	}
	return SessionMessageType(plaintext[0]), plaintext[1:], nil
}

// FileMetadata wire format: name_len[2 LE] || name_bytes || size[8 LE] ||
// mtime[8 LE] || ctime[8 LE].

// EncodeFileMetadata serializes a FileMetadata sub-message.
func EncodeFileMetadata(m *FileMetadata) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	name := []byte(m.Name)
	buf := make([]byte, 2+len(name)+8+8+8)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(name)))
	off := 2
	copy(buf[off:], name)
	off += len(name)
	binary.LittleEndian.PutUint64(buf[off:], m.Size)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], m.Mtime)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], m.Ctime)
	return buf, nil
}

// DecodeFileMetadata parses a FileMetadata sub-message, returning the
// number of bytes consumed from data.
func DecodeFileMetadata(data []byte) (*FileMetadata, int, error) {
	if len(data) < 2 {
		return nil, 0, scerrors.ErrMalformedSessMessage
	}
	nameLen := int(binary.LittleEndian.Uint16(data[0:2]))
	need := 2 + nameLen + 8 + 8 + 8
	if len(data) < need {
		return nil, 0, scerrors.ErrMalformedSessMessage
	}
	off := 2
	name := string(data[off : off+nameLen])
	off += nameLen
	size := binary.LittleEndian.Uint64(data[off:])
	off += 8
	mtime := binary.LittleEndian.Uint64(data[off:])
	off += 8
	ctime := binary.LittleEndian.Uint64(data[off:])
	off += 8

	m := &FileMetadata{Name: name, Size: size, Mtime: mtime, Ctime: ctime}
	if err := m.Validate(); err != nil {
		return nil, 0, err
	}
	return m, off, nil
}

// EncodeSize serializes a bare 8-byte little-endian size, used by the List
// operation to announce the byte length of its raw-mode segment (a listing
// has no single file name to hang a FileMetadata off of).
func EncodeSize(size uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, size)
	return buf
}

// DecodeSize parses a bare 8-byte little-endian size.
func DecodeSize(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, scerrors.ErrMalformedSessMessage
	}
	return binary.LittleEndian.Uint64(data), nil
}

// FileName wire format: name_len[2 LE] || name_bytes. Shared by
// FILE_DOWNLOAD_REQ and FILE_DELETE_REQ, whose payload is just the target
// name.

// EncodeFileName serializes a bare file name sub-message.
func EncodeFileName(name string) ([]byte, error) {
	if len(name) == 0 || len(name) > constants.MaxFileNameLength {
		return nil, scerrors.ErrInvalidFileName
	}
	buf := make([]byte, 2+len(name))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(name)))
	copy(buf[2:], name)
	return buf, nil
}

// DecodeFileName parses a bare file name sub-message.
func DecodeFileName(data []byte) (string, error) {
	if len(data) < 2 {
		return "", scerrors.ErrMalformedSessMessage
	}
	nameLen := int(binary.LittleEndian.Uint16(data[0:2]))
	if len(data) < 2+nameLen {
		return "", scerrors.ErrMalformedSessMessage
	}
	name := string(data[2 : 2+nameLen])
	if len(name) == 0 || len(name) > constants.MaxFileNameLength {
		return "", scerrors.ErrInvalidFileName
	}
	return name, nil
}

// FileList wire format (the raw-mode payload of a FILE_LIST_REQ response):
// count[4 LE] || FileMetadata entries back to back.

// EncodeFileList serializes a directory listing for the List operation's
// raw-mode segment.
func EncodeFileList(entries []FileMetadata) ([]byte, error) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(entries)))
	for i := range entries {
		enc, err := EncodeFileMetadata(&entries[i])
		if err != nil {
			return nil, err
		}
		buf = append(buf, enc...)
	}
	return buf, nil
}

// DecodeFileList parses a directory listing produced by EncodeFileList.
func DecodeFileList(data []byte) ([]FileMetadata, error) {
	if len(data) < 4 {
		return nil, scerrors.ErrMalformedSessMessage
	}
	count := int(binary.LittleEndian.Uint32(data[0:4]))
	off := 4
	entries := make([]FileMetadata, 0, count)
	for i := 0; i < count; i++ {
		m, n, err := DecodeFileMetadata(data[off:])
		if err != nil {
			return nil, err
		}
		entries = append(entries, *m)
		off += n
	}
	return entries, nil
}

// EncodeRenameRequest serializes a RenameRequest sub-message: two
// length-prefixed names.
func EncodeRenameRequest(m *RenameRequest) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	oldName := []byte(m.OldName)
	newName := []byte(m.NewName)
	buf := make([]byte, 2+len(oldName)+2+len(newName))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(oldName)))
	off := 2
	copy(buf[off:], oldName)
	off += len(oldName)
	binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(newName)))
	off += 2
	copy(buf[off:], newName)
	return buf, nil
}

// DecodeRenameRequest parses a RenameRequest sub-message.
func DecodeRenameRequest(data []byte) (*RenameRequest, error) {
	if len(data) < 2 {
		return nil, scerrors.ErrMalformedSessMessage
	}
	oldLen := int(binary.LittleEndian.Uint16(data[0:2]))
	off := 2
	if len(data) < off+oldLen+2 {
		return nil, scerrors.ErrMalformedSessMessage
	}
	oldName := string(data[off : off+oldLen])
	off += oldLen
	newLen := int(binary.LittleEndian.Uint16(data[off : off+2]))
	off += 2
	if len(data) < off+newLen {
		return nil, scerrors.ErrMalformedSessMessage
	}
	newName := string(data[off : off+newLen])

	m := &RenameRequest{OldName: oldName, NewName: newName}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
