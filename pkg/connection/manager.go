// manager.go implements the Connection Manager (spec.md §4.5): it owns the
// raw socket and the phase a connection is in, and drives it from accepted
// socket through handshake to session phase. The Go realization runs one
// goroutine per connection rather than the original single-threaded
// select-driven reactor (see DESIGN.md) — each Conn's state is therefore
// isolated by construction, with no locking required between connections.
package connection

import (
	"crypto/rsa"
	"net"
	"path/filepath"
	"strconv"
	"sync/atomic"

	scerrors "github.com/safecloud-project/safecloud/internal/errors"
	"github.com/safecloud-project/safecloud/pkg/certstore"
	"github.com/safecloud-project/safecloud/pkg/cryptoutil"
	"github.com/safecloud-project/safecloud/pkg/handshake"
	"github.com/safecloud-project/safecloud/pkg/protocol"
	"github.com/safecloud-project/safecloud/pkg/session"
	"github.com/safecloud-project/safecloud/pkg/storagepool"
)

// Phase is a connection's position in its lifecycle: spec.md §3's
// {KeyExchange, Session, Closing}, advancing one-way only.
type Phase int32

const (
	PhaseKeyExchange Phase = iota
	PhaseSession
	PhaseClosing
)

func (p Phase) String() string {
	switch p {
	case PhaseKeyExchange:
		return "KeyExchange"
	case PhaseSession:
		return "Session"
	case PhaseClosing:
		return "Closing"
	default:
		return "Unknown"
	}
}

// Conn wraps one accepted or dialed socket with the display name and phase
// tracking spec.md §3 assigns to the Connection Manager. The primary and
// secondary ≥4 MiB buffers it describes live in pkg/buffers's pool and are
// borrowed for the duration of a raw-mode transfer rather than held for the
// life of the connection, which would otherwise pin 8 MiB per idle socket.
type Conn struct {
	conn net.Conn
	name string

	phase atomic.Int32
}

// newConn wraps conn, starting in the KeyExchange phase.
func newConn(netConn net.Conn, name string) *Conn {
	c := &Conn{conn: netConn, name: name}
	c.phase.Store(int32(PhaseKeyExchange))
	return c
}

// Phase returns the connection's current lifecycle phase.
func (c *Conn) Phase() Phase {
	return Phase(c.phase.Load())
}

// Advance moves the connection one step forward in its phase (KeyExchange
// -> Session -> Closing). Invariant 1 of spec.md §3: the transition is
// one-way. Calling Advance out of order is a programmer error, not a
// runtime one, so it panics rather than returning an error.
func (c *Conn) Advance(to Phase) {
	from := c.Phase()
	if to <= from {
		panic("connection: phase must advance forward")
	}
	c.phase.Store(int32(to))
}

// Name returns the connection's display name (the CLI username on the
// client side, `Guest<N>` until authenticated on the server side).
func (c *Conn) Name() string {
	return c.name
}

// RemoteAddr returns the underlying socket's remote address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close tears the connection down: closes the socket. Zeroization of the
// session key and any in-flight temp file cleanup is the caller's
// responsibility, since those belong to the handshake/session layer that
// outlives this Conn's awareness of them.
func (c *Conn) Close() error {
	c.phase.Store(int32(PhaseClosing))
	return c.conn.Close()
}

// ServerConfig bundles a server's long-term identity and collaborators,
// shared read-only across every connection it accepts.
type ServerConfig struct {
	PrivateKey *rsa.PrivateKey
	CertPEM    []byte
	Resolver   handshake.ClientResolver

	// PoolRoot is the directory under which each authenticated user gets
	// their own storagepool.FilePool, opened lazily once the handshake
	// reveals the peer's name (a directory per user, not a shared pool).
	PoolRoot string

	IPLimiter        *IPRateLimiter
	HandshakeLimiter *HandshakeLimiter
	Observer         RateLimitObserver

	// Logger records connection-lifecycle failures that abort a single
	// connection but leave the server healthy (handshake failure, GCM or
	// storage pool construction failure, a session loop that exits with
	// an error). Nil disables logging.
	Logger Logger
}

// Server accepts connections on a listener and drives each one from
// handshake through session phase on its own goroutine.
type Server struct {
	listener net.Listener
	config   ServerConfig

	nextGuestID atomic.Uint64
}

// NewServer wraps an already-bound listener with the Connection Manager's
// accept loop.
func NewServer(listener net.Listener, config ServerConfig) *Server {
	return &Server{listener: listener, config: config}
}

// Serve runs the accept loop until the listener is closed, handling each
// connection on its own goroutine via handle.
func (s *Server) Serve() error {
	for {
		netConn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handle(netConn)
	}
}

// handle runs one connection's full lifecycle: IP admission, handshake,
// and session phase, closing the socket on return.
func (s *Server) handle(netConn net.Conn) {
	defer netConn.Close()

	remoteIP := remoteIPOf(netConn)
	if s.config.IPLimiter != nil {
		if !s.config.IPLimiter.AllowConnection(remoteIP) {
			if s.config.Observer != nil {
				s.config.Observer.OnConnectionRateLimit(remoteIP)
			}
			return
		}
		defer s.config.IPLimiter.ReleaseConnection(remoteIP)
	}

	if s.config.HandshakeLimiter != nil && !s.config.HandshakeLimiter.AllowHandshake() {
		if s.config.Observer != nil {
			s.config.Observer.OnHandshakeRateLimit(remoteIP)
		}
		return
	}

	guestName := s.nextGuestName()
	conn := newConn(netConn, guestName)

	framer := protocol.NewFramer(netConn)
	hsServer := handshake.NewServer(framer, s.config.PrivateKey, s.config.CertPEM, s.config.Resolver)
	result, err := hsServer.Run()
	if err != nil {
		s.logHandshakeFailure(guestName, remoteIP, err)
		return
	}
	conn.name = result.PeerName
	conn.Advance(PhaseSession)

	gcm, err := cryptoutil.NewGCMContext(result.SessionKey, result.GCM.InitialNonce)
	if err != nil {
		s.log().Critical("session key setup failed", map[string]interface{}{"user": result.PeerName, "remote_ip": remoteIP, "error": err.Error()})
		return
	}

	pool, err := storagepool.NewFilePool(filepath.Join(s.config.PoolRoot, result.PeerName))
	if err != nil {
		s.log().Critical("storage pool open failed", map[string]interface{}{"user": result.PeerName, "error": err.Error()})
		return
	}

	mgr := session.NewManager(framer, gcm, pool)
	if err := mgr.Serve(); err != nil {
		s.log().Warn("session ended with error", map[string]interface{}{"user": result.PeerName, "remote_ip": remoteIP, "error": err.Error()})
	}
	conn.Advance(PhaseClosing)
}

// logHandshakeFailure records a failed handshake attempt. A userregistry
// lookup failure (unknown user, unreadable or malformed public key file) is
// always reported to the peer and logged here as ErrClientLoginFailed; only
// that sentinel's text reaches the log, so a missing-pubkey-file failure
// never surfaces above INFO detail even though the event itself is logged
// at CRITICAL. Any other handshake failure (bad proof, malformed frame,
// disconnect) is a routine rejection, not a server-side fault, and is
// logged at WARN.
func (s *Server) logHandshakeFailure(guestName, remoteIP string, err error) {
	fields := map[string]interface{}{"guest": guestName, "remote_ip": remoteIP, "error": err.Error()}
	if scerrors.Is(err, scerrors.ErrClientLoginFailed) {
		s.log().Critical("client login failed", fields)
		return
	}
	s.log().Warn("handshake failed", fields)
}

// log returns the configured logger, or a no-op one if none was set.
func (s *Server) log() Logger {
	if s.config.Logger != nil {
		return s.config.Logger
	}
	return nullLogger{}
}

// nullLogger discards every call; the zero value of Logger when
// ServerConfig.Logger is left unset.
type nullLogger struct{}

func (nullLogger) Critical(string, map[string]interface{}) {}
func (nullLogger) Warn(string, map[string]interface{})     {}

// nextGuestName returns the next `Guest<N>` display name for a connection
// that hasn't yet completed authentication.
func (s *Server) nextGuestName() string {
	n := s.nextGuestID.Add(1)
	return "Guest" + strconv.FormatUint(n, 10)
}

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

// DialResult is what a successful client-side Dial produces: a phase-
// tracked connection and a ready-to-use session manager.
type DialResult struct {
	Conn    *Conn
	Session *session.Manager
}

// Dial connects to address, runs the client side of the STSM handshake
// under the given identity and trust store, and returns a session manager
// ready to drive file operations.
func Dial(network, address string, privateKey *rsa.PrivateKey, name string, trustStore *certstore.TrustStore) (*DialResult, error) {
	netConn, err := net.Dial(network, address)
	if err != nil {
		return nil, err
	}

	conn := newConn(netConn, name)
	framer := protocol.NewFramer(netConn)
	hsClient := handshake.NewClient(framer, privateKey, name, trustStore)
	result, err := hsClient.Run()
	if err != nil {
		netConn.Close()
		return nil, err
	}
	conn.Advance(PhaseSession)

	gcm, err := cryptoutil.NewGCMContext(result.SessionKey, result.GCM.InitialNonce)
	if err != nil {
		netConn.Close()
		return nil, err
	}

	return &DialResult{
		Conn:    conn,
		Session: session.NewManager(framer, gcm, nil),
	}, nil
}

func remoteIPOf(c net.Conn) string {
	if tcpAddr, ok := c.RemoteAddr().(*net.TCPAddr); ok {
		return tcpAddr.IP.String()
	}
	host, _, err := net.SplitHostPort(c.RemoteAddr().String())
	if err == nil {
		return host
	}
	return c.RemoteAddr().String()
}

