// Package session implements the post-handshake Session Manager
// (spec.md §4.3): the AEAD-framed file-management protocol multiplexing
// upload, download, delete, rename and list operations over a single
// connection, plus the raw-mode streaming discipline used for their bulk
// transfers.
package session

// Operation identifies which top-level file operation, if any, currently
// owns the session. Idle means no operation is in flight and the next
// message received must be a request that starts one.
type Operation int

const (
	OpIdle Operation = iota
	OpUpload
	OpDownload
	OpDelete
	OpRename
	OpList
)

// String returns a human-readable name for the operation.
func (o Operation) String() string {
	switch o {
	case OpIdle:
		return "Idle"
	case OpUpload:
		return "Upload"
	case OpDownload:
		return "Download"
	case OpDelete:
		return "Delete"
	case OpRename:
		return "Rename"
	case OpList:
		return "List"
	default:
		return "Unknown"
	}
}

// SubState is an operation-scoped step within the hierarchical state
// machine of spec.md §4.3. Its meaning depends on the current Operation;
// callers must consult Operation before interpreting it.
type SubState int

const (
	// SubStart is the sub-state of every operation immediately after its
	// request message has been received/sent but before any
	// confirmation, raw transfer, or completion has happened.
	SubStart SubState = iota

	// SubAwaitCliConfirm is the server side waiting for the client's
	// CONFIRM/CANCEL reply to an overwrite, download or delete
	// confirmation question. Only reachable from Upload, Download and
	// Delete.
	SubAwaitCliConfirm

	// SubReceivingRaw is the server side actively consuming an Upload's
	// raw-mode ciphertext stream.
	SubReceivingRaw

	// SubSendingRaw is the sender side (server for Download/List)
	// actively producing a raw-mode ciphertext stream.
	SubSendingRaw

	// SubAwaitCliComplete is the server side waiting for the client's
	// COMPLETED acknowledgement after a raw-mode send. Only reachable
	// from Download and List.
	SubAwaitCliComplete

	// SubDone names the terminal sub-state of a completed operation. The
	// server handlers never store it: each calls resetIdle (Operation
	// Idle, sub-state SubStart) as soon as its operation ends.
	SubDone
)

// String returns a human-readable name for the sub-state.
func (s SubState) String() string {
	switch s {
	case SubStart:
		return "Start"
	case SubAwaitCliConfirm:
		return "AwaitCliConfirm"
	case SubReceivingRaw:
		return "ReceivingRaw"
	case SubSendingRaw:
		return "SendingRaw"
	case SubAwaitCliComplete:
		return "AwaitCliComplete"
	case SubDone:
		return "Done"
	default:
		return "Unknown"
	}
}
