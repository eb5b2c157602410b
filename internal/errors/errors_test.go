package errors

import (
	"errors"
	"strings"
	"testing"
)

// TestCryptoError tests CryptoError type.
func TestCryptoError(t *testing.T) {
	baseErr := errors.New("base error")
	cerr := NewCryptoError("dh.SharedSecret", baseErr)

	errStr := cerr.Error()
	if !strings.Contains(errStr, "dh.SharedSecret") {
		t.Errorf("Error string should contain operation: %q", errStr)
	}
	if !strings.Contains(errStr, "base error") {
		t.Errorf("Error string should contain base error: %q", errStr)
	}

	unwrapped := cerr.Unwrap()
	if unwrapped != baseErr {
		t.Errorf("Unwrap() returned %v, want %v", unwrapped, baseErr)
	}

	if cerr.Op != "dh.SharedSecret" {
		t.Errorf("Op = %q, want %q", cerr.Op, "dh.SharedSecret")
	}
	if cerr.Err != baseErr {
		t.Errorf("Err = %v, want %v", cerr.Err, baseErr)
	}
}

// TestProtocolError tests ProtocolError type.
func TestProtocolError(t *testing.T) {
	baseErr := errors.New("invalid message")
	perr := NewProtocolError("handshake", baseErr)

	errStr := perr.Error()
	if !strings.Contains(errStr, "handshake") {
		t.Errorf("Error string should contain phase: %q", errStr)
	}
	if !strings.Contains(errStr, "invalid message") {
		t.Errorf("Error string should contain base error: %q", errStr)
	}

	unwrapped := perr.Unwrap()
	if unwrapped != baseErr {
		t.Errorf("Unwrap() returned %v, want %v", unwrapped, baseErr)
	}

	if perr.Phase != "handshake" {
		t.Errorf("Phase = %q, want %q", perr.Phase, "handshake")
	}
	if perr.Err != baseErr {
		t.Errorf("Err = %v, want %v", perr.Err, baseErr)
	}
}

// TestStorageError tests StorageError type.
func TestStorageError(t *testing.T) {
	baseErr := errors.New("permission denied")
	serr := NewStorageError("storagepool.CommitTemp", baseErr)

	errStr := serr.Error()
	if !strings.Contains(errStr, "storagepool.CommitTemp") {
		t.Errorf("Error string should contain operation: %q", errStr)
	}
	if !strings.Contains(errStr, "permission denied") {
		t.Errorf("Error string should contain base error: %q", errStr)
	}

	unwrapped := serr.Unwrap()
	if unwrapped != baseErr {
		t.Errorf("Unwrap() returned %v, want %v", unwrapped, baseErr)
	}

	if serr.Op != "storagepool.CommitTemp" {
		t.Errorf("Op = %q, want %q", serr.Op, "storagepool.CommitTemp")
	}
}

// TestIsFunction tests the Is helper function.
func TestIsFunction(t *testing.T) {
	err := ErrInvalidKeySize
	if !Is(err, ErrInvalidKeySize) {
		t.Error("Is() should return true for matching sentinel error")
	}

	wrappedErr := NewCryptoError("operation", ErrSignatureInvalid)
	if !Is(wrappedErr, ErrSignatureInvalid) {
		t.Error("Is() should return true for wrapped sentinel error")
	}

	if Is(err, ErrSignatureInvalid) {
		t.Error("Is() should return false for non-matching error")
	}
}

// TestAsFunction tests the As helper function.
func TestAsFunction(t *testing.T) {
	cerr := NewCryptoError("test-op", ErrDHKeyGenerationFailed)

	var target *CryptoError
	if !As(cerr, &target) {
		t.Error("As() should return true for matching type")
	}
	if target.Op != "test-op" {
		t.Errorf("As() extracted Op = %q, want %q", target.Op, "test-op")
	}

	var protocolErr *ProtocolError
	if As(cerr, &protocolErr) {
		t.Error("As() should return false for non-matching type")
	}
}

// TestSentinelErrors tests all sentinel error definitions.
func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		// Crypto errors
		{"ErrInvalidKeySize", ErrInvalidKeySize},
		{"ErrInvalidPublicKey", ErrInvalidPublicKey},
		{"ErrInvalidPrivateKey", ErrInvalidPrivateKey},
		{"ErrDHKeyGenerationFailed", ErrDHKeyGenerationFailed},
		{"ErrSignatureInvalid", ErrSignatureInvalid},
		// AEAD/CBC errors
		{"ErrAuthenticationFailed", ErrAuthenticationFailed},
		{"ErrInvalidNonce", ErrInvalidNonce},
		{"ErrCiphertextTooShort", ErrCiphertextTooShort},
		{"ErrNonceDesync", ErrNonceDesync},
		// Framer errors
		{"ErrMsgLengthInvalid", ErrMsgLengthInvalid},
		{"ErrPeerDisconnected", ErrPeerDisconnected},
		// Handshake errors
		{"ErrInvalidPubkeyMessage", ErrInvalidPubkeyMessage},
		{"ErrServerCertRejected", ErrServerCertRejected},
		{"ErrServerAuthFailed", ErrServerAuthFailed},
		{"ErrClientAuthFailed", ErrClientAuthFailed},
		{"ErrClientLoginFailed", ErrClientLoginFailed},
		{"ErrUnexpectedMessage", ErrUnexpectedMessage},
		{"ErrMalformedMessage", ErrMalformedMessage},
		{"ErrUnknownMessageType", ErrUnknownMessageType},
		// Session errors
		{"ErrSessionClosed", ErrSessionClosed},
		{"ErrInvalidState", ErrInvalidState},
		{"ErrUnexpectedSessMessage", ErrUnexpectedSessMessage},
		{"ErrMalformedSessMessage", ErrMalformedSessMessage},
		{"ErrUnknownSessMessageType", ErrUnknownSessMessageType},
		{"ErrInternalError", ErrInternalError},
		{"ErrMessageTooLarge", ErrMessageTooLarge},
		{"ErrOperationCancelled", ErrOperationCancelled},
		{"ErrIntegrityMismatch", ErrIntegrityMismatch},
		// Storage pool errors
		{"ErrFileNotFound", ErrFileNotFound},
		{"ErrFileExists", ErrFileExists},
		{"ErrInvalidFileName", ErrInvalidFileName},
		// Rate limiting errors
		{"ErrConnectionRateLimited", ErrConnectionRateLimited},
		{"ErrHandshakeRateLimited", ErrHandshakeRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Errorf("%s is nil", tt.name)
			}
			errStr := tt.err.Error()
			if errStr == "" {
				t.Errorf("%s.Error() returned empty string", tt.name)
			}
		})
	}
}

// TestErrorWrapping tests error wrapping with CryptoError.
func TestErrorWrapping(t *testing.T) {
	baseErr := ErrInvalidKeySize
	wrapped := NewCryptoError("dh-keygen", baseErr)

	if !errors.Is(wrapped, baseErr) {
		t.Error("Wrapped error should match base error with errors.Is")
	}

	doubleWrapped := NewCryptoError("outer-op", wrapped)
	if !errors.Is(doubleWrapped, baseErr) {
		t.Error("Double-wrapped error should still match base error")
	}

	var cryptoErr *CryptoError
	if !errors.As(doubleWrapped, &cryptoErr) {
		t.Error("Should be able to extract CryptoError from double-wrapped")
	}
	if cryptoErr.Op != "outer-op" {
		t.Errorf("Extracted Op = %q, want %q", cryptoErr.Op, "outer-op")
	}
}

// TestProtocolErrorWrapping tests error wrapping with ProtocolError.
func TestProtocolErrorWrapping(t *testing.T) {
	baseErr := ErrUnexpectedMessage
	wrapped := NewProtocolError("client-hello", baseErr)

	if !errors.Is(wrapped, baseErr) {
		t.Error("Wrapped error should match base error with errors.Is")
	}

	var protocolErr *ProtocolError
	if !errors.As(wrapped, &protocolErr) {
		t.Error("Should be able to extract ProtocolError")
	}
	if protocolErr.Phase != "client-hello" {
		t.Errorf("Extracted Phase = %q, want %q", protocolErr.Phase, "client-hello")
	}
}

// TestMixedErrorTypes tests mixing CryptoError and ProtocolError.
func TestMixedErrorTypes(t *testing.T) {
	cryptoErr := NewCryptoError("dh", ErrSignatureInvalid)
	protocolErr := NewProtocolError("handshake", cryptoErr)

	var ce *CryptoError
	if !errors.As(protocolErr, &ce) {
		t.Error("Should be able to extract CryptoError from ProtocolError wrapper")
	}

	var pe *ProtocolError
	if !errors.As(protocolErr, &pe) {
		t.Error("Should be able to extract ProtocolError")
	}

	if !errors.Is(protocolErr, ErrSignatureInvalid) {
		t.Error("Should match base sentinel error through multiple wrappers")
	}
}

// TestErrorContextPreservation tests that error context is preserved.
func TestErrorContextPreservation(t *testing.T) {
	err := NewCryptoError("operation-1", ErrDHKeyGenerationFailed)
	wrapped := NewProtocolError("phase-1", err)

	errStr := wrapped.Error()
	if !strings.Contains(errStr, "phase-1") {
		t.Errorf("Error string missing protocol phase: %q", errStr)
	}
	if !strings.Contains(errStr, "operation-1") {
		t.Errorf("Error string missing crypto operation: %q", errStr)
	}
	if !strings.Contains(errStr, "DH key generation failed") {
		t.Errorf("Error string missing base error: %q", errStr)
	}
}

// TestNilErrorHandling tests handling of nil errors.
func TestNilErrorHandling(t *testing.T) {
	if Is(nil, ErrInvalidKeySize) {
		t.Error("Is(nil, target) should return false")
	}

	var target *CryptoError
	if As(nil, &target) {
		t.Error("As(nil, target) should return false")
	}
}
