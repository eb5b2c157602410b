// Package buffers provides size-classed buffer pooling for the Connection
// Manager and session layer, reducing allocation churn for control frames
// and raw-mode bulk-transfer buffers.
package buffers

import (
	"sync"

	"github.com/safecloud-project/safecloud/internal/constants"
)

// Pool provides pooled byte slices sized for SafeCloud's two traffic
// classes: small framed control messages, and the large primary/secondary
// buffers the Connection Manager uses for raw-mode file streaming.
type Pool struct {
	control sync.Pool
	raw     sync.Pool
}

// globalPool is the default buffer pool instance.
var globalPool = NewPool()

// NewPool creates a new buffer pool.
func NewPool() *Pool {
	return &Pool{
		control: sync.Pool{
			New: func() any {
				buf := make([]byte, constants.MaxFrameSize)
				return &buf
			},
		},
		raw: sync.Pool{
			New: func() any {
				buf := make([]byte, constants.RawBufferSize)
				return &buf
			},
		},
	}
}

// GetControl returns a control-frame buffer of at least the requested size,
// up to MaxFrameSize. Larger requests bypass the pool.
func (p *Pool) GetControl(size int) []byte {
	if size <= 0 {
		return nil
	}
	if size > constants.MaxFrameSize {
		return make([]byte, size)
	}
	bufPtr := p.control.Get().(*[]byte)
	return (*bufPtr)[:size]
}

// PutControl returns a control-frame buffer to the pool.
func (p *Pool) PutControl(buf []byte) {
	if cap(buf) != constants.MaxFrameSize {
		return
	}
	buf = buf[:cap(buf)]
	zero(buf)
	p.control.Put(&buf)
}

// GetRaw returns a raw-mode I/O buffer (the Connection Manager's primary or
// secondary buffer) at its fixed RawBufferSize capacity.
func (p *Pool) GetRaw() []byte {
	bufPtr := p.raw.Get().(*[]byte)
	return (*bufPtr)[:constants.RawBufferSize]
}

// PutRaw returns a raw-mode I/O buffer to the pool.
func (p *Pool) PutRaw(buf []byte) {
	if cap(buf) != constants.RawBufferSize {
		return
	}
	buf = buf[:cap(buf)]
	zero(buf)
	p.raw.Put(&buf)
}

func zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

// GetControlBuffer returns a control-frame buffer from the global pool.
func GetControlBuffer(size int) []byte { return globalPool.GetControl(size) }

// PutControlBuffer returns a control-frame buffer to the global pool.
func PutControlBuffer(buf []byte) { globalPool.PutControl(buf) }

// GetRawBuffer returns a raw-mode I/O buffer from the global pool.
func GetRawBuffer() []byte { return globalPool.GetRaw() }

// PutRawBuffer returns a raw-mode I/O buffer to the global pool.
func PutRawBuffer(buf []byte) { globalPool.PutRaw(buf) }
