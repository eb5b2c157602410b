// Package errors defines the sentinel and typed errors used throughout the
// SafeCloud secure channel implementation. Error messages avoid leaking
// internal state to a remote peer; see pkg/session for how these are mapped
// onto the wire error vocabulary before being sent.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for cryptographic primitives
var (
	// ErrInvalidKeySize indicates that a key has an incorrect size.
	ErrInvalidKeySize = errors.New("cryptoutil: invalid key size")

	// ErrInvalidPublicKey indicates that a DH or RSA public key is invalid.
	ErrInvalidPublicKey = errors.New("cryptoutil: invalid public key")

	// ErrInvalidPrivateKey indicates that a DH or RSA private key is invalid.
	ErrInvalidPrivateKey = errors.New("cryptoutil: invalid private key")

	// ErrDHKeyGenerationFailed indicates ephemeral DH key generation failed.
	ErrDHKeyGenerationFailed = errors.New("cryptoutil: DH key generation failed")

	// ErrSignatureInvalid indicates an RSA signature failed verification.
	ErrSignatureInvalid = errors.New("cryptoutil: RSA signature verification failed")
)

// Sentinel errors for AEAD and CBC operations
var (
	// ErrAuthenticationFailed indicates AEAD tag verification failed.
	ErrAuthenticationFailed = errors.New("cryptoutil: AEAD authentication failed")

	// ErrInvalidNonce indicates the nonce/IV size is incorrect.
	ErrInvalidNonce = errors.New("cryptoutil: invalid nonce size")

	// ErrCiphertextTooShort indicates a ciphertext is too short to contain
	// its authentication tag.
	ErrCiphertextTooShort = errors.New("cryptoutil: ciphertext too short")

	// ErrNonceDesync indicates the shared nonce counter has gone out of
	// sync between client and server, which is always fatal.
	ErrNonceDesync = errors.New("cryptoutil: nonce counter desynchronized")
)

// Sentinel errors for the Message Framer
var (
	// ErrMsgLengthInvalid indicates a frame declared a length smaller
	// than its header or larger than the receiving buffer's capacity.
	ErrMsgLengthInvalid = errors.New("framer: invalid frame length")

	// ErrPeerDisconnected indicates the peer closed the connection with
	// a partial frame buffered.
	ErrPeerDisconnected = errors.New("framer: peer disconnected mid-frame")
)

// Sentinel errors for the STSM handshake
var (
	// ErrInvalidPubkeyMessage indicates a malformed or undersized
	// CLIENT_HELLO/SRV_AUTH public key payload.
	ErrInvalidPubkeyMessage = errors.New("handshake: invalid public key message")

	// ErrServerCertRejected indicates the server's certificate failed
	// chain verification against the client's trust store.
	ErrServerCertRejected = errors.New("handshake: server certificate rejected")

	// ErrServerAuthFailed indicates the server's signed authentication
	// proof failed verification.
	ErrServerAuthFailed = errors.New("handshake: server authentication failed")

	// ErrClientAuthFailed indicates the client's signed authentication
	// proof failed verification.
	ErrClientAuthFailed = errors.New("handshake: client authentication failed")

	// ErrClientLoginFailed is the uniform error returned to a client for
	// any identity-resolution failure (unknown user, missing or malformed
	// public key file) so as not to leak which case occurred.
	ErrClientLoginFailed = errors.New("handshake: client login failed")

	// ErrUnexpectedMessage indicates a handshake message arrived out of
	// sequence for the current state.
	ErrUnexpectedMessage = errors.New("handshake: unexpected message")

	// ErrMalformedMessage indicates a handshake message failed to parse.
	ErrMalformedMessage = errors.New("handshake: malformed message")

	// ErrUnknownMessageType indicates a handshake frame declared an
	// unrecognized message type.
	ErrUnknownMessageType = errors.New("handshake: unknown message type")
)

// Sentinel errors for the session protocol
var (
	// ErrSessionClosed indicates the session has already been closed.
	ErrSessionClosed = errors.New("session: connection closed")

	// ErrInvalidState indicates an operation was attempted from a session
	// state that does not permit it.
	ErrInvalidState = errors.New("session: invalid state for operation")

	// ErrUnexpectedSessMessage indicates a session message arrived that is
	// not valid for the current operation's sub-state; recoverable, the
	// session returns to Idle.
	ErrUnexpectedSessMessage = errors.New("session: unexpected message")

	// ErrMalformedSessMessage indicates a session message failed to parse;
	// recoverable, the session returns to Idle.
	ErrMalformedSessMessage = errors.New("session: malformed message")

	// ErrUnknownSessMessageType indicates an unrecognized session message
	// type was received, implying nonce desynchronization; fatal.
	ErrUnknownSessMessageType = errors.New("session: unknown message type")

	// ErrInternalError is the generic error sent to a peer when a local
	// failure must not leak implementation detail (ERR_INTERNAL_ERROR).
	ErrInternalError = errors.New("session: internal error")

	// ErrMessageTooLarge indicates a frame declared a length exceeding the
	// maximum permitted frame size.
	ErrMessageTooLarge = errors.New("session: message too large")

	// ErrOperationCancelled indicates the peer sent CANCEL in response to
	// a request, either because the target file didn't satisfy a business
	// precondition (absent on download/delete, name conflict on rename)
	// or because the user declined an overwrite confirmation.
	ErrOperationCancelled = errors.New("session: operation cancelled by peer")

	// ErrIntegrityMismatch indicates an uploaded or downloaded file's
	// SHA-256 digest did not match the value declared by the sender.
	ErrIntegrityMismatch = errors.New("session: file integrity check failed")
)

// Sentinel errors for the storage pool
var (
	// ErrFileNotFound indicates the requested file does not exist in the
	// user's storage pool.
	ErrFileNotFound = errors.New("storagepool: file not found")

	// ErrFileExists indicates a rename or upload target already exists.
	ErrFileExists = errors.New("storagepool: file already exists")

	// ErrInvalidFileName indicates a file name fails sanitization (empty,
	// too long, or containing path traversal components).
	ErrInvalidFileName = errors.New("storagepool: invalid file name")
)

// Sentinel errors for rate limiting and connection admission
var (
	// ErrConnectionRateLimited indicates a remote IP exceeded the
	// concurrent-connection admission limit.
	ErrConnectionRateLimited = errors.New("connection: rate limited")

	// ErrHandshakeRateLimited indicates the server-wide handshake-attempt
	// token bucket, shared by all remote IPs, is exhausted.
	ErrHandshakeRateLimited = errors.New("connection: handshake rate limited")
)

// CryptoError wraps a cryptographic primitive failure with the operation
// name that produced it.
type CryptoError struct {
	Op  string // Operation that failed (e.g. "dh.SharedSecret", "rsa.Verify")
	Err error  // Underlying error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// NewCryptoError creates a new CryptoError.
func NewCryptoError(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// ProtocolError wraps a handshake or session protocol failure with the
// phase in which it occurred.
type ProtocolError struct {
	Phase string // Protocol phase (e.g., "handshake", "session")
	Err   error  // Underlying error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol %s: %v", e.Phase, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewProtocolError creates a new ProtocolError.
func NewProtocolError(phase string, err error) *ProtocolError {
	return &ProtocolError{Phase: phase, Err: err}
}

// StorageError wraps a storage-pool filesystem failure with the operation
// name that produced it.
type StorageError struct {
	Op  string // Operation that failed (e.g. "storagepool.CommitTemp")
	Err error  // Underlying error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
