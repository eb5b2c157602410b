package session

import (
	scerrors "github.com/safecloud-project/safecloud/internal/errors"
	"github.com/safecloud-project/safecloud/pkg/cryptoutil"
	"github.com/safecloud-project/safecloud/pkg/protocol"
	"github.com/safecloud-project/safecloud/pkg/storagepool"
)

// Manager drives the session-phase protocol for one connection: it holds
// the AEAD context established by the handshake, the framer for
// control-message I/O, and the storage pool backing every file operation.
// A Manager is not safe for concurrent use; spec.md §5 runs one connection
// on one goroutine.
type Manager struct {
	framer *protocol.Framer
	gcm    *cryptoutil.GCMContext
	pool   storagepool.Pool

	op  Operation
	sub SubState
}

// NewManager builds a session manager for one connection. gcm must be
// seeded with the key and initial nonce the handshake produced.
func NewManager(framer *protocol.Framer, gcm *cryptoutil.GCMContext, pool storagepool.Pool) *Manager {
	return &Manager{
		framer: framer,
		gcm:    gcm,
		pool:   pool,
		op:     OpIdle,
		sub:    SubStart,
	}
}

// Operation returns the operation currently owning the session.
func (m *Manager) Operation() Operation {
	return m.op
}

// SubState returns the current operation's sub-state.
func (m *Manager) SubState() SubState {
	return m.sub
}

// resetIdle returns the manager to Idle, clearing any in-flight operation
// bookkeeping. Called after every operation's terminal COMPLETED/CANCEL and
// on CANCEL received mid-operation.
func (m *Manager) resetIdle() {
	m.op = OpIdle
	m.sub = SubStart
}

// sendMessage seals a session message's plaintext and writes it as a
// complete session frame.
func (m *Manager) sendMessage(mt protocol.SessionMessageType, payload []byte) error {
	plaintext := protocol.EncodeSessionMessage(mt, payload)
	body, err := m.gcm.Seal(plaintext, nil)
	if err != nil {
		return err
	}
	return m.framer.WriteSessionFrame(body)
}

// recvMessage reads one session frame and opens it, returning its type and
// payload. A tag-verification failure is always fatal, per spec.md §4.4:
// the caller must tear down the connection without replying.
func (m *Manager) recvMessage() (protocol.SessionMessageType, []byte, error) {
	body, err := m.framer.ReadSessionFrame()
	if err != nil {
		return 0, nil, err
	}
	plaintext, err := m.gcm.Open(body, nil)
	if err != nil {
		return 0, nil, err
	}
	return protocol.DecodeSessionMessage(plaintext)
}

// sendSessionError transmits the typed protocol-level error frame
// corresponding to err as a courtesy before the caller closes the
// connection. Write failures are ignored: the connection is being torn
// down regardless.
func (m *Manager) sendSessionError(err error) {
	_ = m.sendMessage(wireErrorType(err), nil)
}

// sendCancel sends CANCEL, the generic business-level "operation cannot
// proceed" signal (file absent, name conflict, overwrite declined), and
// resets the session to Idle. Unlike sendSessionError, this is not a
// protocol failure: the peer's library surfaces it to its caller as
// scerrors.ErrOperationCancelled, and the connection stays open.
func (m *Manager) sendCancel() error {
	err := m.sendMessage(protocol.SessMsgCancel, nil)
	m.resetIdle()
	return err
}

// requireMessageType reads one message and checks it matches want; a
// received error frame is mapped back to its sentinel error, and any other
// type (CANCEL included) is reported as ErrUnexpectedSessMessage.
func (m *Manager) requireMessageType(want protocol.SessionMessageType) ([]byte, error) {
	mt, payload, err := m.recvMessage()
	if err != nil {
		return nil, err
	}
	if mt.IsError() {
		return nil, errorForWireType(mt)
	}
	if mt != want {
		return nil, scerrors.ErrUnexpectedSessMessage
	}
	return payload, nil
}

// awaitConfirmOrCancel reads the client's reply to a CONFIRM question sent
// by the server (overwrite confirmation, delete confirmation) and reports
// whether the client confirmed. A CANCEL reply resets the session to Idle
// before returning.
func (m *Manager) awaitConfirmOrCancel() (bool, error) {
	mt, _, err := m.recvMessage()
	if err != nil {
		return false, err
	}
	switch mt {
	case protocol.SessMsgConfirm:
		return true, nil
	case protocol.SessMsgCancel:
		m.resetIdle()
		return false, nil
	case protocol.SessMsgBye:
		return false, scerrors.ErrSessionClosed
	default:
		if mt.IsError() {
			return false, errorForWireType(mt)
		}
		return false, scerrors.ErrUnexpectedSessMessage
	}
}
