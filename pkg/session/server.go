package session

import (
	"os"
	"time"

	scerrors "github.com/safecloud-project/safecloud/internal/errors"
	"github.com/safecloud-project/safecloud/pkg/protocol"
)

// Serve runs the server side of the session protocol until the client
// sends BYE or a fatal error occurs. Each iteration waits in Idle for the
// next request and dispatches it to the matching handler; handlers return
// to Idle themselves before Serve loops again.
func (m *Manager) Serve() error {
	for {
		mt, payload, err := m.recvMessage()
		if err != nil {
			return err
		}

		switch mt {
		case protocol.SessMsgBye:
			return nil
		case protocol.SessMsgFileUploadReq:
			m.op = OpUpload
			if err := m.handleUpload(payload); err != nil {
				m.sendSessionError(err)
				return err
			}
		case protocol.SessMsgFileDownloadReq:
			m.op = OpDownload
			if err := m.handleDownload(payload); err != nil {
				m.sendSessionError(err)
				return err
			}
		case protocol.SessMsgFileDeleteReq:
			m.op = OpDelete
			if err := m.handleDelete(payload); err != nil {
				m.sendSessionError(err)
				return err
			}
		case protocol.SessMsgFileRenameReq:
			m.op = OpRename
			if err := m.handleRename(payload); err != nil {
				m.sendSessionError(err)
				return err
			}
		case protocol.SessMsgFileListReq:
			m.op = OpList
			if err := m.handleList(); err != nil {
				m.sendSessionError(err)
				return err
			}
		default:
			if mt.IsError() {
				return errorForWireType(mt)
			}
			m.sendSessionError(scerrors.ErrUnexpectedSessMessage)
			return scerrors.ErrUnexpectedSessMessage
		}
	}
}

// handleUpload implements the server side of the Upload operation
// (spec.md §4.3). Start → (AwaitCliConfirm if overwrite) → ReceivingRaw →
// Done.
func (m *Manager) handleUpload(payload []byte) error {
	req, _, err := protocol.DecodeFileMetadata(payload)
	if err != nil {
		return err
	}

	if existing, statErr := m.pool.Stat(req.Name); statErr == nil {
		m.sub = SubAwaitCliConfirm
		meta := protocol.FileMetadata{Name: existing.Name, Size: existing.Size, Mtime: existing.Mtime, Ctime: existing.Ctime}
		encoded, err := protocol.EncodeFileMetadata(&meta)
		if err != nil {
			return err
		}
		if err := m.sendMessage(protocol.SessMsgConfirm, encoded); err != nil {
			return err
		}
		confirmed, err := m.awaitConfirmOrCancel()
		if err != nil {
			return err
		}
		if !confirmed {
			return nil
		}
	}

	if req.Size == 0 {
		if err := m.commitEmptyFile(req.Name, req.Mtime); err != nil {
			return err
		}
		m.resetIdle()
		return m.sendMessage(protocol.SessMsgCompleted, nil)
	}

	if err := m.sendMessage(protocol.SessMsgConfirm, nil); err != nil {
		return err
	}

	m.sub = SubReceivingRaw

	f, tempPath, err := m.pool.CreateTemp()
	if err != nil {
		return scerrors.NewStorageError("session.handleUpload", err)
	}
	// recvRawTo decrypts into f chunk by chunk as ciphertext arrives, but
	// the GCM tag covers the whole segment and only verifies once every
	// chunk has passed through: f may hold unauthenticated plaintext
	// until recvRawTo returns. CommitTemp's rename is what makes a file
	// visible to Stat/Open/List, so deferring it past this error check
	// keeps an inauthentic upload from ever being served back out.
	recvErr := m.recvRawTo(f, req.Size)
	closeErr := f.Close()
	if recvErr != nil {
		os.Remove(tempPath)
		return recvErr
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return scerrors.NewStorageError("session.handleUpload", closeErr)
	}
	if err := m.pool.CommitTemp(tempPath, req.Name, time.Unix(int64(req.Mtime), 0)); err != nil {
		return err
	}

	m.resetIdle()
	return m.sendMessage(protocol.SessMsgCompleted, nil)
}

func (m *Manager) commitEmptyFile(name string, mtime uint64) error {
	f, tempPath, err := m.pool.CreateTemp()
	if err != nil {
		return scerrors.NewStorageError("session.commitEmptyFile", err)
	}
	if err := f.Close(); err != nil {
		return scerrors.NewStorageError("session.commitEmptyFile", err)
	}
	return m.pool.CommitTemp(tempPath, name, time.Unix(int64(mtime), 0))
}

// handleDownload implements the server side of the Download operation: the
// dual of Upload, server as sender.
func (m *Manager) handleDownload(payload []byte) error {
	name, err := protocol.DecodeFileName(payload)
	if err != nil {
		return err
	}

	md, statErr := m.pool.Stat(name)
	if statErr != nil {
		return m.sendCancel()
	}

	meta := protocol.FileMetadata{Name: md.Name, Size: md.Size, Mtime: md.Mtime, Ctime: md.Ctime}
	encoded, err := protocol.EncodeFileMetadata(&meta)
	if err != nil {
		return err
	}

	if md.Size == 0 {
		if err := m.sendMessage(protocol.SessMsgConfirm, encoded); err != nil {
			return err
		}
		m.resetIdle()
		return m.sendMessage(protocol.SessMsgCompleted, nil)
	}

	m.sub = SubAwaitCliConfirm
	if err := m.sendMessage(protocol.SessMsgConfirm, encoded); err != nil {
		return err
	}
	confirmed, err := m.awaitConfirmOrCancel()
	if err != nil {
		return err
	}
	if !confirmed {
		return nil
	}

	f, openMeta, err := m.pool.Open(name)
	if err != nil {
		return err
	}

	m.sub = SubSendingRaw
	sendErr := m.sendRawFrom(f, openMeta.Size)
	f.Close()
	if sendErr != nil {
		return sendErr
	}

	m.sub = SubAwaitCliComplete
	if _, err := m.requireMessageType(protocol.SessMsgCompleted); err != nil {
		return err
	}
	m.resetIdle()
	return nil
}

// handleDelete implements the server side of the Delete operation: Start →
// AwaitCliConfirm → Done.
func (m *Manager) handleDelete(payload []byte) error {
	name, err := protocol.DecodeFileName(payload)
	if err != nil {
		return err
	}

	md, statErr := m.pool.Stat(name)
	if statErr != nil {
		return m.sendCancel()
	}

	meta := protocol.FileMetadata{Name: md.Name, Size: md.Size, Mtime: md.Mtime, Ctime: md.Ctime}
	encoded, err := protocol.EncodeFileMetadata(&meta)
	if err != nil {
		return err
	}

	m.sub = SubAwaitCliConfirm
	if err := m.sendMessage(protocol.SessMsgConfirm, encoded); err != nil {
		return err
	}
	confirmed, err := m.awaitConfirmOrCancel()
	if err != nil {
		return err
	}
	if !confirmed {
		return nil
	}

	if err := m.pool.Delete(name); err != nil {
		return err
	}
	m.resetIdle()
	return m.sendMessage(protocol.SessMsgCompleted, nil)
}

// handleRename implements the server side of the Rename operation: it
// validates both names and performs the rename in one step, with no
// confirmation round-trip.
func (m *Manager) handleRename(payload []byte) error {
	req, err := protocol.DecodeRenameRequest(payload)
	if err != nil {
		return err
	}

	if err := m.pool.Rename(req.OldName, req.NewName); err != nil {
		if scerrors.Is(err, scerrors.ErrFileNotFound) || scerrors.Is(err, scerrors.ErrFileExists) {
			return m.sendCancel()
		}
		return err
	}

	m.resetIdle()
	return m.sendMessage(protocol.SessMsgCompleted, nil)
}

// handleList implements the server side of the List operation: Start →
// SendingRaw → AwaitCliComplete → Done, with no confirmation step.
func (m *Manager) handleList() error {
	entries, err := m.pool.List()
	if err != nil {
		return err
	}

	wireEntries := make([]protocol.FileMetadata, len(entries))
	for i, e := range entries {
		wireEntries[i] = protocol.FileMetadata{Name: e.Name, Size: e.Size, Mtime: e.Mtime, Ctime: e.Ctime}
	}
	buf, err := protocol.EncodeFileList(wireEntries)
	if err != nil {
		return err
	}

	if err := m.sendMessage(protocol.SessMsgConfirm, protocol.EncodeSize(uint64(len(buf)))); err != nil {
		return err
	}

	m.sub = SubSendingRaw
	if err := m.sendRaw(buf); err != nil {
		return err
	}

	m.sub = SubAwaitCliComplete
	if _, err := m.requireMessageType(protocol.SessMsgCompleted); err != nil {
		return err
	}
	m.resetIdle()
	return nil
}
