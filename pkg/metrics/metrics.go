// Package metrics provides observability primitives for the SafeCloud secure
// channel core.
//
// The package includes:
//   - Counter, Gauge, and Histogram metric types
//   - Prometheus-compatible metrics export
//   - OpenTelemetry tracing support
//   - Structured logging with levels
//   - Health check functionality
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates metrics from connection handshakes and sessions.
type Collector struct {
	// Connection metrics
	connectionsActive atomic.Uint64
	connectionsTotal  atomic.Uint64
	handshakesFailed  atomic.Uint64
	handshakeLatency  *Histogram

	// Traffic metrics
	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64
	framesSent    atomic.Uint64
	framesRecv    atomic.Uint64

	// Security metrics
	authFailures    atomic.Uint64
	aeadTagFailures atomic.Uint64
	nonceDesyncs    atomic.Uint64

	// Admission control metrics
	connectionRateLimits atomic.Uint64
	handshakeRateLimits  atomic.Uint64

	// File-operation metrics
	uploadsCompleted   atomic.Uint64
	downloadsCompleted atomic.Uint64
	deletesCompleted   atomic.Uint64
	renamesCompleted   atomic.Uint64
	listsCompleted     atomic.Uint64
	operationsFailed   atomic.Uint64

	// Error metrics
	encryptErrors  atomic.Uint64
	decryptErrors  atomic.Uint64
	protocolErrors atomic.Uint64

	// Performance histograms
	encryptLatency *Histogram
	decryptLatency *Histogram

	// Creation time for uptime tracking
	createdAt time.Time

	// Labels for this collector instance
	labels Labels
}

// Labels represents key-value pairs for metric labeling.
type Labels map[string]string

// NewCollector creates a new metrics collector.
func NewCollector(labels Labels) *Collector {
	if labels == nil {
		labels = make(Labels)
	}

	return &Collector{
		handshakeLatency: NewHistogram(HandshakeLatencyBuckets),
		encryptLatency:   NewHistogram(LatencyBuckets),
		decryptLatency:   NewHistogram(LatencyBuckets),
		createdAt:        time.Now(),
		labels:           labels,
	}
}

// Default bucket configurations for histograms.
var (
	// HandshakeLatencyBuckets for handshake duration (milliseconds).
	HandshakeLatencyBuckets = []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

	// LatencyBuckets for frame encrypt/decrypt operations (microseconds).
	LatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// --- Connection Metrics ---

// ConnectionStarted increments active and total connection counters.
func (c *Collector) ConnectionStarted() {
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionEnded decrements the active connection counter.
func (c *Collector) ConnectionEnded() {
	for {
		current := c.connectionsActive.Load()
		if current == 0 {
			return
		}
		if c.connectionsActive.CompareAndSwap(current, current-1) {
			return
		}
	}
}

// HandshakeFailed records a failed handshake attempt.
func (c *Collector) HandshakeFailed() {
	c.handshakesFailed.Add(1)
}

// RecordHandshakeLatency records a handshake duration.
func (c *Collector) RecordHandshakeLatency(d time.Duration) {
	c.handshakeLatency.Observe(float64(d.Milliseconds()))
}

// --- Traffic Metrics ---

// RecordBytesSent adds to the bytes sent counter.
func (c *Collector) RecordBytesSent(n uint64) {
	c.bytesSent.Add(n)
}

// RecordBytesReceived adds to the bytes received counter.
func (c *Collector) RecordBytesReceived(n uint64) {
	c.bytesReceived.Add(n)
}

// RecordFrameSent increments the frames-sent counter.
func (c *Collector) RecordFrameSent() {
	c.framesSent.Add(1)
}

// RecordFrameReceived increments the frames-received counter.
func (c *Collector) RecordFrameReceived() {
	c.framesRecv.Add(1)
}

// --- Security Metrics ---

// RecordAuthFailure increments the STSM authentication failure counter.
func (c *Collector) RecordAuthFailure() {
	c.authFailures.Add(1)
}

// RecordAEADTagFailure increments the GCM tag verification failure counter.
func (c *Collector) RecordAEADTagFailure() {
	c.aeadTagFailures.Add(1)
}

// RecordNonceDesync increments the nonce desynchronization counter.
func (c *Collector) RecordNonceDesync() {
	c.nonceDesyncs.Add(1)
}

// RecordConnectionRateLimit increments the connection admission rate-limit counter.
func (c *Collector) RecordConnectionRateLimit() {
	c.connectionRateLimits.Add(1)
}

// RecordHandshakeRateLimit increments the handshake rate-limit counter.
func (c *Collector) RecordHandshakeRateLimit() {
	c.handshakeRateLimits.Add(1)
}

// --- File Operation Metrics ---

// RecordUploadCompleted increments the completed-upload counter.
func (c *Collector) RecordUploadCompleted() { c.uploadsCompleted.Add(1) }

// RecordDownloadCompleted increments the completed-download counter.
func (c *Collector) RecordDownloadCompleted() { c.downloadsCompleted.Add(1) }

// RecordDeleteCompleted increments the completed-delete counter.
func (c *Collector) RecordDeleteCompleted() { c.deletesCompleted.Add(1) }

// RecordRenameCompleted increments the completed-rename counter.
func (c *Collector) RecordRenameCompleted() { c.renamesCompleted.Add(1) }

// RecordListCompleted increments the completed-list counter.
func (c *Collector) RecordListCompleted() { c.listsCompleted.Add(1) }

// RecordOperationFailed increments the failed file-operation counter.
func (c *Collector) RecordOperationFailed() { c.operationsFailed.Add(1) }

// --- Error Metrics ---

// RecordEncryptError increments the encryption error counter.
func (c *Collector) RecordEncryptError() {
	c.encryptErrors.Add(1)
}

// RecordDecryptError increments the decryption error counter.
func (c *Collector) RecordDecryptError() {
	c.decryptErrors.Add(1)
}

// RecordProtocolError increments the protocol error counter.
func (c *Collector) RecordProtocolError() {
	c.protocolErrors.Add(1)
}

// --- Performance Metrics ---

// RecordEncryptLatency records a session-frame encryption latency.
func (c *Collector) RecordEncryptLatency(d time.Duration) {
	c.encryptLatency.Observe(float64(d.Microseconds()))
}

// RecordDecryptLatency records a session-frame decryption latency.
func (c *Collector) RecordDecryptLatency(d time.Duration) {
	c.decryptLatency.Observe(float64(d.Microseconds()))
}

// --- Snapshot ---

// Snapshot returns a point-in-time snapshot of all metrics.
type Snapshot struct {
	// Timestamp of the snapshot
	Timestamp time.Time

	// Uptime since collector creation
	Uptime time.Duration

	// Connection metrics
	ConnectionsActive uint64
	ConnectionsTotal  uint64
	HandshakesFailed  uint64

	// Traffic metrics
	BytesSent     uint64
	BytesReceived uint64
	FramesSent    uint64
	FramesRecv    uint64

	// Security metrics
	AuthFailures    uint64
	AEADTagFailures uint64
	NonceDesyncs    uint64

	// Admission control metrics
	ConnectionRateLimits uint64
	HandshakeRateLimits  uint64

	// File-operation metrics
	UploadsCompleted   uint64
	DownloadsCompleted uint64
	DeletesCompleted   uint64
	RenamesCompleted   uint64
	ListsCompleted     uint64
	OperationsFailed   uint64

	// Error metrics
	EncryptErrors  uint64
	DecryptErrors  uint64
	ProtocolErrors uint64

	// Histogram summaries
	HandshakeLatency HistogramSummary
	EncryptLatency   HistogramSummary
	DecryptLatency   HistogramSummary

	// Labels
	Labels Labels
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Timestamp:          time.Now(),
		Uptime:             time.Since(c.createdAt),
		ConnectionsActive:  c.connectionsActive.Load(),
		ConnectionsTotal:   c.connectionsTotal.Load(),
		HandshakesFailed:   c.handshakesFailed.Load(),
		BytesSent:          c.bytesSent.Load(),
		BytesReceived:      c.bytesReceived.Load(),
		FramesSent:         c.framesSent.Load(),
		FramesRecv:         c.framesRecv.Load(),
		AuthFailures:         c.authFailures.Load(),
		AEADTagFailures:      c.aeadTagFailures.Load(),
		NonceDesyncs:         c.nonceDesyncs.Load(),
		ConnectionRateLimits: c.connectionRateLimits.Load(),
		HandshakeRateLimits:  c.handshakeRateLimits.Load(),
		UploadsCompleted:   c.uploadsCompleted.Load(),
		DownloadsCompleted: c.downloadsCompleted.Load(),
		DeletesCompleted:   c.deletesCompleted.Load(),
		RenamesCompleted:   c.renamesCompleted.Load(),
		ListsCompleted:     c.listsCompleted.Load(),
		OperationsFailed:   c.operationsFailed.Load(),
		EncryptErrors:      c.encryptErrors.Load(),
		DecryptErrors:      c.decryptErrors.Load(),
		ProtocolErrors:     c.protocolErrors.Load(),
		HandshakeLatency:   c.handshakeLatency.Summary(),
		EncryptLatency:     c.encryptLatency.Summary(),
		DecryptLatency:     c.decryptLatency.Summary(),
		Labels:             c.labels,
	}
}

// Reset clears all metrics (useful for testing).
func (c *Collector) Reset() {
	c.connectionsActive.Store(0)
	c.connectionsTotal.Store(0)
	c.handshakesFailed.Store(0)
	c.bytesSent.Store(0)
	c.bytesReceived.Store(0)
	c.framesSent.Store(0)
	c.framesRecv.Store(0)
	c.authFailures.Store(0)
	c.aeadTagFailures.Store(0)
	c.nonceDesyncs.Store(0)
	c.connectionRateLimits.Store(0)
	c.handshakeRateLimits.Store(0)
	c.uploadsCompleted.Store(0)
	c.downloadsCompleted.Store(0)
	c.deletesCompleted.Store(0)
	c.renamesCompleted.Store(0)
	c.listsCompleted.Store(0)
	c.operationsFailed.Store(0)
	c.encryptErrors.Store(0)
	c.decryptErrors.Store(0)
	c.protocolErrors.Store(0)
	c.handshakeLatency.Reset()
	c.encryptLatency.Reset()
	c.decryptLatency.Reset()
	c.createdAt = time.Now()
}

// --- Global Collector ---

var (
	globalCollector     *Collector
	globalCollectorOnce sync.Once
)

// Global returns the global metrics collector.
// Creates one with default settings if not already initialized.
func Global() *Collector {
	globalCollectorOnce.Do(func() {
		globalCollector = NewCollector(Labels{"instance": "default"})
	})
	return globalCollector
}

// SetGlobal sets the global metrics collector.
// Should be called during initialization before any metrics are recorded.
func SetGlobal(c *Collector) {
	globalCollectorOnce.Do(func() {})
	globalCollector = c
}
