package session

import (
	"errors"

	scerrors "github.com/safecloud-project/safecloud/internal/errors"
	"github.com/safecloud-project/safecloud/pkg/protocol"
)

// wireErrorType maps an internal session failure to the closed vocabulary
// of protocol-level session error types. CANCEL is deliberately not
// produced here: it is the business-level "operation cannot proceed"
// signal sent by the handleX methods directly, not a mapped error.
func wireErrorType(err error) protocol.SessionMessageType {
	switch {
	case errors.Is(err, scerrors.ErrUnexpectedSessMessage):
		return protocol.SessMsgErrUnexpectedSessMessage
	case errors.Is(err, scerrors.ErrMalformedSessMessage):
		return protocol.SessMsgErrMalformedSessMessage
	case errors.Is(err, scerrors.ErrUnknownSessMessageType):
		return protocol.SessMsgErrUnknownSessMessageType
	default:
		return protocol.SessMsgErrInternalError
	}
}

// errorForWireType maps a session error frame received from the peer back
// into the corresponding local sentinel error.
func errorForWireType(mt protocol.SessionMessageType) error {
	switch mt {
	case protocol.SessMsgErrUnexpectedSessMessage:
		return scerrors.ErrUnexpectedSessMessage
	case protocol.SessMsgErrMalformedSessMessage:
		return scerrors.ErrMalformedSessMessage
	case protocol.SessMsgErrUnknownSessMessageType:
		return scerrors.ErrUnknownSessMessageType
	default:
		return scerrors.ErrInternalError
	}
}
