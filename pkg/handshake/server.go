package handshake

import (
	"crypto/rsa"
	"math/big"

	"github.com/safecloud-project/safecloud/internal/constants"
	scerrors "github.com/safecloud-project/safecloud/internal/errors"
	"github.com/safecloud-project/safecloud/pkg/cryptoutil"
	"github.com/safecloud-project/safecloud/pkg/protocol"
)

// ClientResolver resolves a client's asserted, already-sanitized user name
// to its long-term RSA public key. Implemented by pkg/userregistry; any
// resolution failure (unknown user, malformed key file) is reported to the
// caller uniformly as ErrClientLoginFailed, per spec.md §4.2.
type ClientResolver interface {
	Lookup(name string) (*rsa.PublicKey, error)
}

// Server runs the server side of the STSM handshake over one connection.
type Server struct {
	framer     *protocol.Framer
	privateKey *rsa.PrivateKey
	certPEM    []byte
	resolver   ClientResolver

	state ServerState
}

// NewServer builds a server-side handshake driver. privateKey and certPEM
// are the server's long-term identity, shared read-only across
// connections; resolver looks up per-client public keys.
func NewServer(framer *protocol.Framer, privateKey *rsa.PrivateKey, certPEM []byte, resolver ClientResolver) *Server {
	return &Server{
		framer:     framer,
		privateKey: privateKey,
		certPEM:    certPEM,
		resolver:   resolver,
		state:      ServerAwaitClientHello,
	}
}

// State returns the current server handshake state.
func (s *Server) State() ServerState {
	return s.state
}

// Run drives the server through the full four-message exchange, returning
// the derived session key, initial GCM nonce, and the client's verified
// name. On any failure it sends a courtesy error frame (where the failure
// admits one) before returning.
func (s *Server) Run() (*Result, error) {
	ycPub, ivSeed, err := s.awaitClientHello()
	if err != nil {
		sendError(s.framer, err)
		s.state = ServerFailed
		return nil, err
	}

	serverKP, err := cryptoutil.GenerateDHKeyPair()
	if err != nil {
		sendError(s.framer, scerrors.ErrInvalidPubkeyMessage)
		s.state = ServerFailed
		return nil, err
	}
	defer serverKP.Zeroize()

	ysPub := serverKP.Marshal()
	sharedSecret := serverKP.SharedSecret(mustUnmarshalDH(ycPub))
	sessionKey := cryptoutil.DeriveSessionKey(sharedSecret)
	cryptoutil.Zeroize(sharedSecret)

	if err := s.sendServerAuth(ycPub, ysPub, ivSeed, sessionKey); err != nil {
		s.state = ServerFailed
		return nil, err
	}

	peerName, err := s.awaitClientAuth(ycPub, ysPub, ivSeed, sessionKey)
	if err != nil {
		sendError(s.framer, err)
		s.state = ServerFailed
		return nil, err
	}

	if err := s.framer.WriteHandshakeFrame(protocol.EncodeServerOk()); err != nil {
		s.state = ServerFailed
		return nil, err
	}

	s.state = ServerDone
	return &Result{
		SessionKey: sessionKey,
		GCM:        &GCMSeed{InitialNonce: append([]byte(nil), ivSeed[:constants.GCMNonceSize]...)},
		PeerName:   peerName,
	}, nil
}

func (s *Server) awaitClientHello() (ycPub, ivSeed []byte, err error) {
	if s.state != ServerAwaitClientHello {
		return nil, nil, scerrors.ErrInvalidState
	}

	mt, payload, err := s.framer.ReadHandshakeFrame()
	if err != nil {
		return nil, nil, err
	}
	if mt != protocol.MsgClientHello {
		return nil, nil, scerrors.ErrUnexpectedMessage
	}

	hello, err := protocol.DecodeClientHello(payload)
	if err != nil {
		return nil, nil, err
	}
	if _, err := cryptoutil.UnmarshalDHPublic(hello.YcPub); err != nil {
		return nil, nil, scerrors.ErrInvalidPubkeyMessage
	}

	s.state = ServerAwaitClientAuth
	return hello.YcPub, hello.IVSeed, nil
}

func (s *Server) sendServerAuth(ycPub, ysPub, ivSeed, sessionKey []byte) error {
	sig, err := cryptoutil.SignAuthProof(s.privateKey, authValueServer(ycPub, ysPub))
	if err != nil {
		return err
	}
	proof, err := cryptoutil.EncryptCBC(sessionKey, ivSeed[:constants.CBCIVSize], sig)
	if err != nil {
		return err
	}

	frame, err := protocol.EncodeServerAuth(&protocol.ServerAuth{
		YsPub:   ysPub,
		Proof:   proof,
		CertPEM: s.certPEM,
	})
	if err != nil {
		return err
	}
	return s.framer.WriteHandshakeFrame(frame)
}

func (s *Server) awaitClientAuth(ycPub, ysPub, ivSeed, sessionKey []byte) (string, error) {
	mt, payload, err := s.framer.ReadHandshakeFrame()
	if err != nil {
		return "", err
	}
	if mt != protocol.MsgCliAuth {
		return "", scerrors.ErrUnexpectedMessage
	}

	cliAuth, err := protocol.DecodeClientAuth(payload)
	if err != nil {
		return "", err
	}

	clientKey, err := s.resolver.Lookup(cliAuth.Name)
	if err != nil {
		return "", scerrors.ErrClientLoginFailed
	}

	sig, err := cryptoutil.DecryptCBC(sessionKey, ivSeed[:constants.CBCIVSize], cliAuth.Proof)
	if err != nil {
		return "", scerrors.ErrClientAuthFailed
	}

	authValue := authValueClient(cliAuth.Name, ycPub, ysPub)
	if err := cryptoutil.VerifyAuthProof(clientKey, authValue, sig); err != nil {
		return "", scerrors.ErrClientAuthFailed
	}

	return cliAuth.Name, nil
}

func mustUnmarshalDH(pub []byte) *big.Int {
	y, err := cryptoutil.UnmarshalDHPublic(pub)
	if err != nil {
		// The caller already validated this payload with
		// UnmarshalDHPublic before reaching this point.
		panic("handshake: unmarshaling a pre-validated DH public key failed")
	}
	return y
}
