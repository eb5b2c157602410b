// Package handshake implements the STSM (Station-to-Station, Modified)
// authenticated key-exchange handshake described in spec.md §4.2: a
// four-message flow establishing a shared AES-128 session key K and the
// initial GCM nonce, with mutual RSA-signed authentication of the
// exchanged ephemeral Diffie-Hellman public keys.
package handshake

// ServerState is the server-side handshake state machine, per spec.md §4.2:
// AwaitClientHello --CLIENT_HELLO--> AwaitClientAuth --CLI_AUTH--> Done.
type ServerState int

const (
	ServerAwaitClientHello ServerState = iota
	ServerAwaitClientAuth
	ServerDone
	ServerFailed
)

// String returns a human-readable name for the server handshake state.
func (s ServerState) String() string {
	switch s {
	case ServerAwaitClientHello:
		return "AwaitClientHello"
	case ServerAwaitClientAuth:
		return "AwaitClientAuth"
	case ServerDone:
		return "Done"
	case ServerFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// ClientState is the client-side handshake state machine, per spec.md §4.2:
// Init --send CLIENT_HELLO--> AwaitServerAuth --SRV_AUTH--> AwaitServerOk
// --send CLI_AUTH, recv SRV_OK--> Done.
type ClientState int

const (
	ClientInit ClientState = iota
	ClientAwaitServerAuth
	ClientAwaitServerOk
	ClientDone
	ClientFailed
)

// String returns a human-readable name for the client handshake state.
func (s ClientState) String() string {
	switch s {
	case ClientInit:
		return "Init"
	case ClientAwaitServerAuth:
		return "AwaitServerAuth"
	case ClientAwaitServerOk:
		return "AwaitServerOk"
	case ClientDone:
		return "Done"
	case ClientFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Result is what a successful handshake, client or server side, produces:
// the derived session key and the GCMSeed carrying the shared initial
// nonce, from which the session's GCMContext is built. On the server side PeerName
// also carries the client's verified identity.
type Result struct {
	SessionKey []byte
	GCM        *GCMSeed
	PeerName   string
}

// GCMSeed carries the 12-byte GCM nonce view of the handshake IV seed,
// before a cryptoutil.GCMContext is constructed from it alongside K. Kept
// separate from cryptoutil.GCMContext so callers can choose the AEAD
// direction (or construct two contexts, one per direction, if ever
// required) without the handshake package depending on that choice.
type GCMSeed struct {
	InitialNonce []byte
}
