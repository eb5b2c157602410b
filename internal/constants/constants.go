// Package constants defines the wire sizes, cryptographic parameters and
// network defaults of the SafeCloud secure channel protocol.
package constants

// Protocol version and identification
const (
	// ProtocolVersion is the current version of the SafeCloud STSM protocol.
	ProtocolVersion uint16 = 0x0001

	// ProtocolName is used for log/metric namespacing.
	ProtocolName = "SafeCloud-STSM-v1"
)

// Diffie-Hellman parameters (2048-bit MODP group, DHX-style fixed generator)
const (
	// DHKeyBits is the modulus size of the classical Diffie-Hellman group.
	DHKeyBits = 2048

	// DHKeyBytes is DHKeyBits expressed in bytes.
	DHKeyBytes = DHKeyBits / 8

	// DHPubKeySize is the wire size of a serialized DH public key ("Yc"/"Ys").
	DHPubKeySize = DHKeyBytes
)

// RSA parameters (long-term identity keys)
const (
	// RSAKeyBits is the modulus size of client and server long-term RSA keys.
	RSAKeyBits = 2048

	// RSASignatureSize is the size in bytes of a PKCS1v15/SHA-256 signature
	// over an RSA-2048 key.
	RSASignatureSize = RSAKeyBits / 8
)

// AES-128-CBC parameters (STSM authentication proof encryption)
const (
	// CBCKeySize is the size of the AES-128 key used to encrypt the STSM
	// authentication proof.
	CBCKeySize = 16

	// CBCIVSize is the size of the CBC initialization vector.
	CBCIVSize = 16

	// CBCBlockSize is the AES block size.
	CBCBlockSize = 16

	// STSMAuthProofSize is the fixed wire size of the STSM authentication
	// proof: the RSA-2048 signature (RSASignatureSize bytes) over the
	// authentication value, AES-128-CBC encrypted. Since RSASignatureSize
	// is already a multiple of the block size, PKCS#7 padding adds one
	// full extra block.
	STSMAuthProofSize = RSASignatureSize + CBCBlockSize
)

// AES-128-GCM parameters (session AEAD)
const (
	// GCMKeySize is the size of the AES-128 session key, derived from the
	// DH shared secret.
	GCMKeySize = 16

	// GCMNonceSize is the size of the AES-GCM nonce (96 bits).
	GCMNonceSize = 12

	// GCMTagSize is the size of the AES-GCM authentication tag.
	GCMTagSize = 16
)

// Key derivation
const (
	// KDFOutputSize is the size, in bytes, of the session key derived from
	// the DH shared secret: the first 16 bytes of SHA-256(sharedSecret).
	KDFOutputSize = GCMKeySize
)

// Wire framing
const (
	// FrameLenFieldSize is the size of the little-endian length prefix that
	// precedes every handshake frame on the wire. Session frames use a
	// 4-byte prefix instead (protocol.SessionFrameHeaderSize).
	FrameLenFieldSize = 2

	// MaxFrameSize is the largest control-frame payload the framer will
	// allocate a buffer for, guarding against a malicious or corrupted
	// length prefix.
	MaxFrameSize = 65535

	// RawModeChunkSize is the size of a single plaintext chunk read from
	// disk and sealed into the raw-mode AEAD stream during bulk transfer.
	RawModeChunkSize = 4096

	// RawBufferSize is the size of the Connection Manager's raw-mode
	// primary and secondary I/O buffers.
	RawBufferSize = 4 << 20 // 4 MiB

	// MaxClientNameLength is the maximum length, in bytes, of a client
	// username (`\0' not included).
	MaxClientNameLength = 30
)

// Network defaults
const (
	// DefaultServerIP is the server's default bind address.
	DefaultServerIP = "127.0.0.1"

	// DefaultServerPort is the server's default listening port.
	DefaultServerPort = 51234

	// MinServerPort is the minimum accepted listening port (IANA dynamic
	// private port range).
	MinServerPort = 49152

	// MaxServerPort is the maximum accepted listening port.
	MaxServerPort = 65534

	// MaxQueuedConnections is the backlog passed to the listening socket.
	MaxQueuedConnections = 30

	// MaxConnections bounds the number of connections the server services
	// concurrently, mirroring the original single-threaded server's
	// select-set capacity (FD_SETSIZE-1, minus the listening socket).
	MaxConnections = 1023
)

// File operation limits
const (
	// MaxFileNameLength is the maximum length, in bytes, of a stored
	// file's name.
	MaxFileNameLength = 255

	// MaxPathLength caps the length of a client-supplied path to guard
	// against pathological allocation.
	MaxPathLength = 4096
)
