package session

import (
	"io"
	"time"

	scerrors "github.com/safecloud-project/safecloud/internal/errors"
	"github.com/safecloud-project/safecloud/pkg/protocol"
)

// Upload reads exactly size bytes from src and sends them under name,
// with the given modification time, driving the client side of the
// Upload operation. src is streamed in constants.RawModeChunkSize
// pieces rather than read into memory up front, so an upload's RAM cost
// doesn't scale with file size. If the server reports an existing file
// at name, confirmOverwrite is called once with its metadata; returning
// false cancels the upload instead of overwriting.
func (m *Manager) Upload(name string, src io.Reader, size uint64, mtime time.Time, confirmOverwrite func(protocol.FileMetadata) bool) error {
	m.op = OpUpload
	req := protocol.FileMetadata{Name: name, Size: size, Mtime: uint64(mtime.Unix())}
	payload, err := protocol.EncodeFileMetadata(&req)
	if err != nil {
		return err
	}
	if err := m.sendMessage(protocol.SessMsgFileUploadReq, payload); err != nil {
		return err
	}

	mt, respPayload, err := m.recvMessage()
	if err != nil {
		return err
	}
	switch {
	case mt.IsError():
		return errorForWireType(mt)
	case mt == protocol.SessMsgCancel:
		m.resetIdle()
		return scerrors.ErrOperationCancelled
	case mt == protocol.SessMsgCompleted:
		// Zero-size upload of a file that didn't previously exist: the
		// server commits directly with no ready-to-receive round trip.
		m.resetIdle()
		return nil
	case mt != protocol.SessMsgConfirm:
		return scerrors.ErrUnexpectedSessMessage
	}

	if len(respPayload) > 0 {
		existing, _, err := protocol.DecodeFileMetadata(respPayload)
		if err != nil {
			return err
		}
		if confirmOverwrite == nil || !confirmOverwrite(*existing) {
			m.resetIdle()
			if err := m.sendCancel(); err != nil {
				return err
			}
			return scerrors.ErrOperationCancelled
		}
		if err := m.sendMessage(protocol.SessMsgConfirm, nil); err != nil {
			return err
		}

		mt, _, err = m.recvMessage()
		if err != nil {
			return err
		}
		switch {
		case mt.IsError():
			return errorForWireType(mt)
		case mt == protocol.SessMsgCompleted:
			// Zero-size overwrite: server committed the empty file and
			// skipped the raw-transfer round trip.
			m.resetIdle()
			return nil
		case mt != protocol.SessMsgConfirm:
			return scerrors.ErrUnexpectedSessMessage
		}
	}

	if err := m.sendRawFrom(src, size); err != nil {
		return err
	}

	mt, _, err = m.recvMessage()
	if err != nil {
		return err
	}
	if mt.IsError() {
		return errorForWireType(mt)
	}
	if mt != protocol.SessMsgCompleted {
		return scerrors.ErrUnexpectedSessMessage
	}

	m.resetIdle()
	return nil
}

// Download requests name and streams its full content into dst.
// confirmProceed, if non-nil, is called with the file's announced
// metadata before the raw transfer begins; returning false cancels the
// download. Like Upload, the transfer is streamed in bounded chunks
// rather than buffered in memory.
func (m *Manager) Download(name string, dst io.Writer, confirmProceed func(protocol.FileMetadata) bool) error {
	m.op = OpDownload
	payload, err := protocol.EncodeFileName(name)
	if err != nil {
		return err
	}
	if err := m.sendMessage(protocol.SessMsgFileDownloadReq, payload); err != nil {
		return err
	}

	mt, respPayload, err := m.recvMessage()
	if err != nil {
		return err
	}
	if mt.IsError() {
		return errorForWireType(mt)
	}
	if mt == protocol.SessMsgCancel {
		m.resetIdle()
		return scerrors.ErrOperationCancelled
	}
	if mt != protocol.SessMsgConfirm {
		return scerrors.ErrUnexpectedSessMessage
	}

	meta, _, err := protocol.DecodeFileMetadata(respPayload)
	if err != nil {
		return err
	}

	if meta.Size == 0 {
		mt, _, err := m.recvMessage()
		if err != nil {
			return err
		}
		if mt.IsError() {
			return errorForWireType(mt)
		}
		if mt != protocol.SessMsgCompleted {
			return scerrors.ErrUnexpectedSessMessage
		}
		m.resetIdle()
		return nil
	}

	if confirmProceed != nil && !confirmProceed(*meta) {
		m.resetIdle()
		if err := m.sendMessage(protocol.SessMsgCancel, nil); err != nil {
			return err
		}
		return scerrors.ErrOperationCancelled
	}
	if err := m.sendMessage(protocol.SessMsgConfirm, nil); err != nil {
		return err
	}

	if err := m.recvRawTo(dst, meta.Size); err != nil {
		return err
	}

	if err := m.sendMessage(protocol.SessMsgCompleted, nil); err != nil {
		return err
	}
	m.resetIdle()
	return nil
}

// Delete requests removal of name, confirming via confirmDelete with the
// server-reported metadata before the delete is carried out.
func (m *Manager) Delete(name string, confirmDelete func(protocol.FileMetadata) bool) error {
	m.op = OpDelete
	payload, err := protocol.EncodeFileName(name)
	if err != nil {
		return err
	}
	if err := m.sendMessage(protocol.SessMsgFileDeleteReq, payload); err != nil {
		return err
	}

	mt, respPayload, err := m.recvMessage()
	if err != nil {
		return err
	}
	if mt.IsError() {
		return errorForWireType(mt)
	}
	if mt == protocol.SessMsgCancel {
		m.resetIdle()
		return scerrors.ErrOperationCancelled
	}
	if mt != protocol.SessMsgConfirm {
		return scerrors.ErrUnexpectedSessMessage
	}

	meta, _, err := protocol.DecodeFileMetadata(respPayload)
	if err != nil {
		return err
	}
	if confirmDelete != nil && !confirmDelete(*meta) {
		m.resetIdle()
		if err := m.sendMessage(protocol.SessMsgCancel, nil); err != nil {
			return err
		}
		return scerrors.ErrOperationCancelled
	}
	if err := m.sendMessage(protocol.SessMsgConfirm, nil); err != nil {
		return err
	}

	mt, _, err = m.recvMessage()
	if err != nil {
		return err
	}
	if mt.IsError() {
		return errorForWireType(mt)
	}
	if mt != protocol.SessMsgCompleted {
		return scerrors.ErrUnexpectedSessMessage
	}
	m.resetIdle()
	return nil
}

// Rename requests that oldName be renamed to newName.
func (m *Manager) Rename(oldName, newName string) error {
	m.op = OpRename
	payload, err := protocol.EncodeRenameRequest(&protocol.RenameRequest{OldName: oldName, NewName: newName})
	if err != nil {
		return err
	}
	if err := m.sendMessage(protocol.SessMsgFileRenameReq, payload); err != nil {
		return err
	}

	mt, _, err := m.recvMessage()
	if err != nil {
		return err
	}
	if mt.IsError() {
		return errorForWireType(mt)
	}
	if mt == protocol.SessMsgCancel {
		m.resetIdle()
		return scerrors.ErrOperationCancelled
	}
	if mt != protocol.SessMsgCompleted {
		return scerrors.ErrUnexpectedSessMessage
	}
	m.resetIdle()
	return nil
}

// List requests a snapshot of the server's storage pool.
func (m *Manager) List() ([]protocol.FileMetadata, error) {
	m.op = OpList
	if err := m.sendMessage(protocol.SessMsgFileListReq, nil); err != nil {
		return nil, err
	}

	mt, sizePayload, err := m.recvMessage()
	if err != nil {
		return nil, err
	}
	if mt.IsError() {
		return nil, errorForWireType(mt)
	}
	if mt != protocol.SessMsgConfirm {
		return nil, scerrors.ErrUnexpectedSessMessage
	}
	size, err := protocol.DecodeSize(sizePayload)
	if err != nil {
		return nil, err
	}

	buf, err := m.recvRaw(size)
	if err != nil {
		return nil, err
	}
	entries, err := protocol.DecodeFileList(buf)
	if err != nil {
		return nil, err
	}

	if err := m.sendMessage(protocol.SessMsgCompleted, nil); err != nil {
		return nil, err
	}
	m.resetIdle()
	return entries, nil
}

// Bye sends the graceful shutdown request.
func (m *Manager) Bye() error {
	return m.sendMessage(protocol.SessMsgBye, nil)
}
