package handshake

import (
	"crypto/rsa"

	"github.com/safecloud-project/safecloud/internal/constants"
	scerrors "github.com/safecloud-project/safecloud/internal/errors"
	"github.com/safecloud-project/safecloud/pkg/certstore"
	"github.com/safecloud-project/safecloud/pkg/cryptoutil"
	"github.com/safecloud-project/safecloud/pkg/protocol"
)

// Client runs the client side of the STSM handshake over one connection.
type Client struct {
	framer     *protocol.Framer
	privateKey *rsa.PrivateKey
	name       string
	trustStore *certstore.TrustStore

	state ClientState
}

// NewClient builds a client-side handshake driver. name is the already-
// sanitized local user name sent in CLI_AUTH.
func NewClient(framer *protocol.Framer, privateKey *rsa.PrivateKey, name string, trustStore *certstore.TrustStore) *Client {
	return &Client{
		framer:     framer,
		privateKey: privateKey,
		name:       name,
		trustStore: trustStore,
		state:      ClientInit,
	}
}

// State returns the current client handshake state.
func (c *Client) State() ClientState {
	return c.state
}

// Run drives the client through the full four-message exchange, returning
// the derived session key and initial GCM nonce on success.
func (c *Client) Run() (*Result, error) {
	if c.state != ClientInit {
		return nil, scerrors.ErrInvalidState
	}

	clientKP, err := cryptoutil.GenerateDHKeyPair()
	if err != nil {
		return nil, err
	}
	defer clientKP.Zeroize()

	ivSeed := make([]byte, constants.CBCIVSize)
	if err := cryptoutil.SecureRandom(ivSeed); err != nil {
		return nil, err
	}
	ycPub := clientKP.Marshal()

	frame, err := protocol.EncodeClientHello(&protocol.ClientHello{YcPub: ycPub, IVSeed: ivSeed})
	if err != nil {
		return nil, err
	}
	if err := c.framer.WriteHandshakeFrame(frame); err != nil {
		return nil, err
	}
	c.state = ClientAwaitServerAuth

	ysPub, sessionKey, err := c.awaitServerAuth(ycPub, ivSeed, clientKP)
	if err != nil {
		sendError(c.framer, err)
		c.state = ClientFailed
		return nil, err
	}

	if err := c.sendClientAuth(ycPub, ysPub, ivSeed, sessionKey); err != nil {
		c.state = ClientFailed
		return nil, err
	}
	c.state = ClientAwaitServerOk

	if err := c.awaitServerOk(); err != nil {
		c.state = ClientFailed
		return nil, err
	}

	c.state = ClientDone
	return &Result{
		SessionKey: sessionKey,
		GCM:        &GCMSeed{InitialNonce: append([]byte(nil), ivSeed[:constants.GCMNonceSize]...)},
	}, nil
}

func (c *Client) awaitServerAuth(ycPub, ivSeed []byte, clientKP *cryptoutil.DHKeyPair) (ysPub, sessionKey []byte, err error) {
	mt, payload, err := c.framer.ReadHandshakeFrame()
	if err != nil {
		return nil, nil, err
	}
	if mt != protocol.MsgSrvAuth {
		return nil, nil, scerrors.ErrUnexpectedMessage
	}

	srvAuth, err := protocol.DecodeServerAuth(payload)
	if err != nil {
		return nil, nil, err
	}

	ysBig, err := cryptoutil.UnmarshalDHPublic(srvAuth.YsPub)
	if err != nil {
		return nil, nil, scerrors.ErrInvalidPubkeyMessage
	}

	cert, err := c.trustStore.VerifyLeaf(srvAuth.CertPEM)
	if err != nil {
		return nil, nil, scerrors.ErrServerCertRejected
	}
	serverKey, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, nil, scerrors.ErrServerCertRejected
	}

	sharedSecret := clientKP.SharedSecret(ysBig)
	sessionKey = cryptoutil.DeriveSessionKey(sharedSecret)
	cryptoutil.Zeroize(sharedSecret)

	sig, err := cryptoutil.DecryptCBC(sessionKey, ivSeed[:constants.CBCIVSize], srvAuth.Proof)
	if err != nil {
		return nil, nil, scerrors.ErrServerAuthFailed
	}
	if err := cryptoutil.VerifyAuthProof(serverKey, authValueServer(ycPub, srvAuth.YsPub), sig); err != nil {
		return nil, nil, scerrors.ErrServerAuthFailed
	}

	return srvAuth.YsPub, sessionKey, nil
}

func (c *Client) sendClientAuth(ycPub, ysPub, ivSeed, sessionKey []byte) error {
	sig, err := cryptoutil.SignAuthProof(c.privateKey, authValueClient(c.name, ycPub, ysPub))
	if err != nil {
		return err
	}
	proof, err := cryptoutil.EncryptCBC(sessionKey, ivSeed[:constants.CBCIVSize], sig)
	if err != nil {
		return err
	}

	frame, err := protocol.EncodeClientAuth(&protocol.ClientAuth{Name: c.name, Proof: proof})
	if err != nil {
		return err
	}
	return c.framer.WriteHandshakeFrame(frame)
}

func (c *Client) awaitServerOk() error {
	mt, _, err := c.framer.ReadHandshakeFrame()
	if err != nil {
		return err
	}
	if mt.IsError() {
		return errorForWireType(mt)
	}
	if mt != protocol.MsgSrvOk {
		return scerrors.ErrUnexpectedMessage
	}
	return nil
}
