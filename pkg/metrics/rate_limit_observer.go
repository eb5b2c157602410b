package metrics

import "github.com/safecloud-project/safecloud/pkg/connection"

// RateLimitObserver implements connection.RateLimitObserver and records rate limit events.
type RateLimitObserver struct {
	collector *Collector
	logger    *Logger
}

var _ connection.RateLimitObserver = (*RateLimitObserver)(nil)

// NewRateLimitObserver creates a rate limit observer that records metrics and logs events.
func NewRateLimitObserver(collector *Collector, logger *Logger) *RateLimitObserver {
	if collector == nil {
		collector = Global()
	}
	if logger == nil {
		logger = GetLogger()
	}

	return &RateLimitObserver{
		collector: collector,
		logger:    logger.Named("rate_limit"),
	}
}

// OnConnectionRateLimit records a connection rate limit event.
func (o *RateLimitObserver) OnConnectionRateLimit(remoteIP string) {
	o.collector.RecordConnectionRateLimit()
	if remoteIP != "" {
		o.logger.Warn("connection rate limit exceeded", Fields{"remote_ip": remoteIP})
		return
	}
	o.logger.Warn("connection rate limit exceeded")
}

// OnHandshakeRateLimit records a handshake rate limit event.
func (o *RateLimitObserver) OnHandshakeRateLimit(remoteIP string) {
	o.collector.RecordHandshakeRateLimit()
	if remoteIP != "" {
		o.logger.Warn("handshake rate limit exceeded", Fields{"remote_ip": remoteIP})
		return
	}
	o.logger.Warn("handshake rate limit exceeded")
}

// ConnectionLogger adapts a *Logger to connection.Logger, whose methods
// take a plain map rather than the named Fields type so that package can
// stay free of a dependency back onto this one (this package already
// depends on it for RateLimitObserver's type assertion above).
type ConnectionLogger struct {
	logger *Logger
}

var _ connection.Logger = ConnectionLogger{}

// NewConnectionLogger wraps logger for use as a connection.ServerConfig.Logger.
func NewConnectionLogger(logger *Logger) ConnectionLogger {
	return ConnectionLogger{logger: logger}
}

// Critical logs msg at LevelCritical with fields.
func (c ConnectionLogger) Critical(msg string, fields map[string]interface{}) {
	c.logger.Critical(msg, Fields(fields))
}

// Warn logs msg at LevelWarn with fields.
func (c ConnectionLogger) Warn(msg string, fields map[string]interface{}) {
	c.logger.Warn(msg, Fields(fields))
}
