package metrics

import (
	"context"
	"encoding/hex"
	"time"
)

// ConnectionObserver provides observability hooks for connection lifecycle,
// STSM handshakes, and session frame traffic. Attach one to a connection to
// automatically record metrics, traces, and structured log lines.
type ConnectionObserver struct {
	collector *Collector
	tracer    Tracer
	logger    *Logger
	connID    string
	role      string
}

// ConnectionObserverConfig configures a connection observer.
type ConnectionObserverConfig struct {
	Collector *Collector
	Tracer    Tracer
	Logger    *Logger
	ConnID    []byte
	Role      string // "client" or "server"
}

// NewConnectionObserver creates a new connection observer.
func NewConnectionObserver(cfg ConnectionObserverConfig) *ConnectionObserver {
	if cfg.Collector == nil {
		cfg.Collector = Global()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = GetTracer()
	}
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}

	connID := ""
	if len(cfg.ConnID) > 0 {
		connID = hex.EncodeToString(cfg.ConnID[:min(8, len(cfg.ConnID))])
	}

	return &ConnectionObserver{
		collector: cfg.Collector,
		tracer:    cfg.Tracer,
		logger: cfg.Logger.Named("connection").With(Fields{
			"conn_id": connID,
			"role":    cfg.Role,
		}),
		connID: connID,
		role:   cfg.Role,
	}
}

// OnConnectionOpen should be called when a TCP connection is accepted or dialed.
func (o *ConnectionObserver) OnConnectionOpen() {
	o.collector.ConnectionStarted()
	o.logger.Info("connection opened")
}

// OnConnectionClose should be called when a connection's lifecycle ends.
func (o *ConnectionObserver) OnConnectionClose() {
	o.collector.ConnectionEnded()
	o.logger.Info("connection closed")
}

// OnHandshakeStart returns a context and completion function for STSM handshake tracing.
func (o *ConnectionObserver) OnHandshakeStart(ctx context.Context) (context.Context, func(error)) {
	spanName := SpanHandshakeClient
	if o.role == "server" {
		spanName = SpanHandshakeServer
	}

	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, spanName, WithSpanKind(SpanKindServer))

	o.logger.Debug("handshake started")

	return ctx, func(err error) {
		duration := time.Since(start)
		o.collector.RecordHandshakeLatency(duration)

		if err != nil {
			o.collector.HandshakeFailed()
			o.logger.Error("handshake failed", Fields{
				"error":    err.Error(),
				"duration": duration.String(),
			})
		} else {
			o.logger.Info("handshake completed", Fields{
				"duration": duration.String(),
			})
		}

		endSpan(err)
	}
}

// OnEncrypt records session-frame encryption metrics.
func (o *ConnectionObserver) OnEncrypt(ctx context.Context, plaintextLen int) (context.Context, func(error)) {
	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, SpanEncrypt)

	return ctx, func(err error) {
		duration := time.Since(start)
		o.collector.RecordEncryptLatency(duration)

		if err != nil {
			o.collector.RecordEncryptError()
			o.logger.Debug("encrypt failed", Fields{"error": err.Error()})
		} else {
			o.collector.RecordBytesSent(uint64(plaintextLen))
			o.collector.RecordFrameSent()
		}

		endSpan(err)
	}
}

// OnDecrypt records session-frame decryption metrics.
func (o *ConnectionObserver) OnDecrypt(ctx context.Context, ciphertextLen int) (context.Context, func(error)) {
	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, SpanDecrypt)

	return ctx, func(err error) {
		duration := time.Since(start)
		o.collector.RecordDecryptLatency(duration)

		if err != nil {
			o.collector.RecordDecryptError()
			o.logger.Debug("decrypt failed", Fields{"error": err.Error()})
		} else {
			o.collector.RecordBytesReceived(uint64(ciphertextLen))
			o.collector.RecordFrameReceived()
		}

		endSpan(err)
	}
}

// OnAEADTagFailure records a GCM tag verification failure. Per the nonce
// discipline, the caller must tear down the connection after this fires.
func (o *ConnectionObserver) OnAEADTagFailure() {
	o.collector.RecordAEADTagFailure()
	o.logger.Warn("AEAD tag verification failed, closing connection")
}

// OnNonceDesync records a detected nonce desynchronization between peers.
func (o *ConnectionObserver) OnNonceDesync() {
	o.collector.RecordNonceDesync()
	o.logger.Error("nonce desynchronization detected")
}

// OnAuthFailure records an STSM authentication failure.
func (o *ConnectionObserver) OnAuthFailure() {
	o.collector.RecordAuthFailure()
	o.logger.Warn("STSM authentication failed")
}

// OnProtocolError records a protocol error.
func (o *ConnectionObserver) OnProtocolError(err error) {
	o.collector.RecordProtocolError()
	o.logger.Error("protocol error", Fields{"error": err.Error()})
}

// OnOperationStart returns a context and completion function for tracing a
// file-management operation (upload, download, delete, rename, list).
func (o *ConnectionObserver) OnOperationStart(ctx context.Context, op EventType) (context.Context, func(error)) {
	spanName := operationSpanName(op)
	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, spanName)

	o.logger.Debug("operation started", Fields{"operation": string(op)})

	return ctx, func(err error) {
		duration := time.Since(start)
		if err != nil {
			o.collector.RecordOperationFailed()
			o.logger.Error("operation failed", Fields{
				"operation": string(op),
				"error":     err.Error(),
				"duration":  duration.String(),
			})
		} else {
			o.recordOperationCompleted(op)
			o.logger.Info("operation completed", Fields{
				"operation": string(op),
				"duration":  duration.String(),
			})
		}
		endSpan(err)
	}
}

func (o *ConnectionObserver) recordOperationCompleted(op EventType) {
	switch op {
	case EventUpload:
		o.collector.RecordUploadCompleted()
	case EventDownload:
		o.collector.RecordDownloadCompleted()
	case EventDelete:
		o.collector.RecordDeleteCompleted()
	case EventRename:
		o.collector.RecordRenameCompleted()
	case EventList:
		o.collector.RecordListCompleted()
	}
}

func operationSpanName(op EventType) string {
	switch op {
	case EventUpload:
		return SpanUpload
	case EventDownload:
		return SpanDownload
	case EventDelete:
		return SpanDelete
	case EventRename:
		return SpanRename
	case EventList:
		return SpanList
	default:
		return "safecloud.operation.unknown"
	}
}

// Logger returns the observer's logger for custom logging.
func (o *ConnectionObserver) Logger() *Logger {
	return o.logger
}

// --- Instrumented Wrappers ---

// InstrumentedConnection wraps connection metrics collection.
// This can be used to wrap encrypt/decrypt calls.
type InstrumentedConnection struct {
	observer *ConnectionObserver
}

// NewInstrumentedConnection creates a new instrumented connection wrapper.
func NewInstrumentedConnection(observer *ConnectionObserver) *InstrumentedConnection {
	return &InstrumentedConnection{observer: observer}
}

// WrapEncrypt wraps an encrypt operation with metrics.
func (c *InstrumentedConnection) WrapEncrypt(ctx context.Context, plaintextLen int, fn func() error) error {
	_, done := c.observer.OnEncrypt(ctx, plaintextLen)
	err := fn()
	done(err)
	return err
}

// WrapDecrypt wraps a decrypt operation with metrics.
func (c *InstrumentedConnection) WrapDecrypt(ctx context.Context, ciphertextLen int, fn func() error) error {
	_, done := c.observer.OnDecrypt(ctx, ciphertextLen)
	err := fn()
	done(err)
	return err
}

// --- Event Types ---

// EventType represents a type of connection event for structured logging.
type EventType string

const (
	EventConnectionOpen  EventType = "connection.open"
	EventConnectionClose EventType = "connection.close"
	EventHandshakeStart  EventType = "handshake.start"
	EventHandshakeEnd    EventType = "handshake.end"
	EventDataSent        EventType = "data.sent"
	EventDataReceived    EventType = "data.received"
	EventAuthFailed      EventType = "security.auth_failed"
	EventAEADTagFailed   EventType = "security.aead_tag_failed"
	EventUpload          EventType = "operation.upload"
	EventDownload        EventType = "operation.download"
	EventDelete          EventType = "operation.delete"
	EventRename          EventType = "operation.rename"
	EventList            EventType = "operation.list"
	EventError           EventType = "error"
)

// Event represents a structured connection event.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	ConnID    string                 `json:"conn_id,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// min returns the smaller of two integers.
func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
