package handshake

import (
	"errors"

	scerrors "github.com/safecloud-project/safecloud/internal/errors"
	"github.com/safecloud-project/safecloud/pkg/protocol"
)

// wireErrorType maps an internal handshake failure to the closed
// vocabulary of one-byte wire error types in spec.md §4.2. Errors with no
// specific wire representation fall back to MALFORMED_MESSAGE.
func wireErrorType(err error) protocol.HandshakeMessageType {
	switch {
	case errors.Is(err, scerrors.ErrInvalidPubkeyMessage):
		return protocol.MsgInvalidPubkey
	case errors.Is(err, scerrors.ErrServerCertRejected):
		return protocol.MsgSrvCertRejected
	case errors.Is(err, scerrors.ErrServerAuthFailed):
		return protocol.MsgSrvAuthFailed
	case errors.Is(err, scerrors.ErrClientAuthFailed):
		return protocol.MsgCliAuthFailed
	case errors.Is(err, scerrors.ErrClientLoginFailed):
		return protocol.MsgClientLoginFailed
	case errors.Is(err, scerrors.ErrUnexpectedMessage):
		return protocol.MsgUnexpectedMessage
	case errors.Is(err, scerrors.ErrUnknownMessageType):
		return protocol.MsgUnknownMsgType
	default:
		return protocol.MsgMalformedMessage
	}
}

// errorForWireType maps a handshake error frame received from the peer
// back into the corresponding local sentinel error.
func errorForWireType(mt protocol.HandshakeMessageType) error {
	switch mt {
	case protocol.MsgInvalidPubkey:
		return scerrors.ErrInvalidPubkeyMessage
	case protocol.MsgSrvCertRejected:
		return scerrors.ErrServerCertRejected
	case protocol.MsgSrvAuthFailed:
		return scerrors.ErrServerAuthFailed
	case protocol.MsgCliAuthFailed:
		return scerrors.ErrClientAuthFailed
	case protocol.MsgClientLoginFailed:
		return scerrors.ErrClientLoginFailed
	case protocol.MsgUnexpectedMessage:
		return scerrors.ErrUnexpectedMessage
	case protocol.MsgUnknownMsgType:
		return scerrors.ErrUnknownMessageType
	default:
		return scerrors.ErrMalformedMessage
	}
}

// sendError transmits the typed error frame corresponding to err as a
// courtesy before the caller closes the connection. Write failures are
// ignored: the connection is being torn down regardless.
func sendError(framer *protocol.Framer, err error) {
	_ = framer.WriteHandshakeFrame(protocol.EncodeHandshakeError(wireErrorType(err)))
}
