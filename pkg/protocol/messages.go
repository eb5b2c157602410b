// Package protocol defines the wire message catalog for the SafeCloud STSM
// handshake and the AEAD-wrapped session protocol that follows it.
//
// This file (messages.go) implements the message catalog:
//
//	Client                                   Server
//	   | -------- CLIENT_HELLO -------------> |
//	   | <------- SRV_AUTH ------------------- |
//	   | -------- CLI_AUTH ------------------> |
//	   | <------- SRV_OK --------------------- |
//	   |      === session established ===      |
//
// All handshake frames are length-prefixed with a little-endian header;
// see framer.go for the wire encoding.
package protocol

import (
	"github.com/safecloud-project/safecloud/internal/constants"
	scerrors "github.com/safecloud-project/safecloud/internal/errors"
)

// HandshakeMessageType identifies the type of a key-exchange-phase frame.
type HandshakeMessageType uint8

// Handshake message types, per spec.md §6.
const (
	// MsgClientHello opens the handshake: the client's ephemeral DH public
	// key plus the IV seed.
	MsgClientHello HandshakeMessageType = 0x01
	// MsgSrvAuth carries the server's ephemeral DH public key, its signed
	// authentication proof, and its certificate.
	MsgSrvAuth HandshakeMessageType = 0x02
	// MsgCliAuth carries the client's asserted name and signed
	// authentication proof.
	MsgCliAuth HandshakeMessageType = 0x03
	// MsgSrvOk is the server's empty final acknowledgement.
	MsgSrvOk HandshakeMessageType = 0x04

	// MsgInvalidPubkey reports a malformed or out-of-range DH public key.
	MsgInvalidPubkey HandshakeMessageType = 0x10
	// MsgSrvCertRejected reports that the client's trust store rejected
	// the server's certificate.
	MsgSrvCertRejected HandshakeMessageType = 0x11
	// MsgSrvAuthFailed reports that the server's authentication proof
	// failed signature verification.
	MsgSrvAuthFailed HandshakeMessageType = 0x12
	// MsgCliAuthFailed reports that the client's authentication proof
	// failed signature verification.
	MsgCliAuthFailed HandshakeMessageType = 0x13
	// MsgClientLoginFailed is the uniform response to any client-identity
	// resolution failure.
	MsgClientLoginFailed HandshakeMessageType = 0x14
	// MsgUnexpectedMessage reports a message arriving out of sequence.
	MsgUnexpectedMessage HandshakeMessageType = 0x15
	// MsgMalformedMessage reports a frame that failed to parse.
	MsgMalformedMessage HandshakeMessageType = 0x16
	// MsgUnknownMsgType reports an unrecognized frame type byte.
	MsgUnknownMsgType HandshakeMessageType = 0x17
)

// IsError reports whether mt is one of the handshake error types.
func (mt HandshakeMessageType) IsError() bool {
	return mt >= MsgInvalidPubkey && mt <= MsgUnknownMsgType
}

// String returns a human-readable name for the handshake message type.
func (mt HandshakeMessageType) String() string {
	switch mt {
	case MsgClientHello:
		return "CLIENT_HELLO"
	case MsgSrvAuth:
		return "SRV_AUTH"
	case MsgCliAuth:
		return "CLI_AUTH"
	case MsgSrvOk:
		return "SRV_OK"
	case MsgInvalidPubkey:
		return "INVALID_PUBKEY"
	case MsgSrvCertRejected:
		return "SRV_CERT_REJECTED"
	case MsgSrvAuthFailed:
		return "SRV_AUTH_FAILED"
	case MsgCliAuthFailed:
		return "CLI_AUTH_FAILED"
	case MsgClientLoginFailed:
		return "CLIENT_LOGIN_FAILED"
	case MsgUnexpectedMessage:
		return "UNEXPECTED_MESSAGE"
	case MsgMalformedMessage:
		return "MALFORMED_MESSAGE"
	case MsgUnknownMsgType:
		return "UNKNOWN_MSG_TYPE"
	default:
		return "UNKNOWN"
	}
}

// SessionMessageType identifies the type of a session-phase (post-handshake)
// plaintext message header, carried inside the AEAD-protected payload.
type SessionMessageType uint8

// Session message types, per spec.md §4.3/§6.
const (
	SessMsgFileUploadReq   SessionMessageType = 0x01
	SessMsgFileDownloadReq SessionMessageType = 0x02
	SessMsgFileDeleteReq   SessionMessageType = 0x03
	SessMsgFileRenameReq   SessionMessageType = 0x04
	SessMsgFileListReq     SessionMessageType = 0x05
	SessMsgConfirm         SessionMessageType = 0x06
	SessMsgCancel          SessionMessageType = 0x07
	SessMsgCompleted       SessionMessageType = 0x08
	SessMsgBye             SessionMessageType = 0x09

	SessMsgErrInternalError          SessionMessageType = 0x10
	SessMsgErrUnexpectedSessMessage  SessionMessageType = 0x11
	SessMsgErrMalformedSessMessage   SessionMessageType = 0x12
	SessMsgErrUnknownSessMessageType SessionMessageType = 0x13
)

// IsError reports whether mt is one of the session error types.
func (mt SessionMessageType) IsError() bool {
	return mt >= SessMsgErrInternalError && mt <= SessMsgErrUnknownSessMessageType
}

// String returns a human-readable name for the session message type.
func (mt SessionMessageType) String() string {
	switch mt {
	case SessMsgFileUploadReq:
		return "FILE_UPLOAD_REQ"
	case SessMsgFileDownloadReq:
		return "FILE_DOWNLOAD_REQ"
	case SessMsgFileDeleteReq:
		return "FILE_DELETE_REQ"
	case SessMsgFileRenameReq:
		return "FILE_RENAME_REQ"
	case SessMsgFileListReq:
		return "FILE_LIST_REQ"
	case SessMsgConfirm:
		return "CONFIRM"
	case SessMsgCancel:
		return "CANCEL"
	case SessMsgCompleted:
		return "COMPLETED"
	case SessMsgBye:
		return "BYE"
	case SessMsgErrInternalError:
		return "ERR_INTERNAL_ERROR"
	case SessMsgErrUnexpectedSessMessage:
		return "ERR_UNEXPECTED_SESS_MESSAGE"
	case SessMsgErrMalformedSessMessage:
		return "ERR_MALFORMED_SESS_MESSAGE"
	case SessMsgErrUnknownSessMessageType:
		return "ERR_UNKNOWN_SESSMSG_TYPE"
	default:
		return "UNKNOWN"
	}
}

// ClientHello is the first handshake message: the client's ephemeral DH
// public key and the random IV seed it picks for the whole connection.
type ClientHello struct {
	YcPub  []byte // constants.DHPubKeySize bytes
	IVSeed []byte // 16 bytes
}

// Validate checks that ClientHello's fields have the fixed wire sizes.
func (m *ClientHello) Validate() error {
	if len(m.YcPub) != constants.DHPubKeySize {
		return scerrors.ErrInvalidPubkeyMessage
	}
	if len(m.IVSeed) != constants.CBCIVSize {
		return scerrors.ErrMalformedMessage
	}
	return nil
}

// ServerAuth is the server's response: its ephemeral DH public key, its
// signed authentication proof (encrypted under the just-derived K), and its
// X.509 certificate for the client to verify.
type ServerAuth struct {
	YsPub   []byte // constants.DHPubKeySize bytes
	Proof   []byte // constants.STSMAuthProofSize bytes
	CertPEM []byte // variable length
}

// Validate checks that ServerAuth's fixed-size fields match their wire
// sizes; CertPEM is variable-length and validated by certstore instead.
func (m *ServerAuth) Validate() error {
	if len(m.YsPub) != constants.DHPubKeySize {
		return scerrors.ErrInvalidPubkeyMessage
	}
	if len(m.Proof) != constants.STSMAuthProofSize {
		return scerrors.ErrMalformedMessage
	}
	if len(m.CertPEM) == 0 {
		return scerrors.ErrMalformedMessage
	}
	return nil
}

// ClientAuth is the client's final handshake message: its asserted user
// name and its own signed authentication proof.
type ClientAuth struct {
	Name  string // 1..constants.MaxClientNameLength bytes, sanitized by caller
	Proof []byte // constants.STSMAuthProofSize bytes
}

// Validate checks ClientAuth's field sizes. Character-set sanitization of
// Name is the caller's responsibility (pkg/handshake), since only the
// server-side decoder can reject on the spot with a specific wire error.
func (m *ClientAuth) Validate() error {
	if len(m.Name) == 0 || len(m.Name) > constants.MaxClientNameLength {
		return scerrors.ErrMalformedMessage
	}
	if len(m.Proof) != constants.STSMAuthProofSize {
		return scerrors.ErrMalformedMessage
	}
	return nil
}

// ServerOk is the handshake's final, empty acknowledgement frame.
type ServerOk struct{}

// FileMetadata describes a stored file: its name, size and timestamps, as
// carried by upload requests, existing-file notices, and list entries.
type FileMetadata struct {
	Name  string
	Size  uint64
	Mtime uint64 // Unix seconds
	Ctime uint64 // Unix seconds
}

// Validate checks that the file name is non-empty and within bounds. Path
// separators and reserved names (".", "..") are rejected by
// pkg/storagepool, which is the authority on safe on-disk names.
func (m *FileMetadata) Validate() error {
	if len(m.Name) == 0 || len(m.Name) > constants.MaxFileNameLength {
		return scerrors.ErrInvalidFileName
	}
	return nil
}

// RenameRequest carries the source and destination names for a FILE_RENAME_REQ.
type RenameRequest struct {
	OldName string
	NewName string
}

// Validate checks that both names are non-empty and within bounds.
func (m *RenameRequest) Validate() error {
	if len(m.OldName) == 0 || len(m.OldName) > constants.MaxFileNameLength {
		return scerrors.ErrInvalidFileName
	}
	if len(m.NewName) == 0 || len(m.NewName) > constants.MaxFileNameLength {
		return scerrors.ErrInvalidFileName
	}
	return nil
}
