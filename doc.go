// Package quantumgo is the root of the SafeCloud secure channel module:
// an STSM handshake (2048-bit Diffie-Hellman, RSA-2048 signatures,
// AES-128-CBC authentication proofs) followed by an AES-128-GCM session
// protocol carrying file operations (upload, download, delete, rename,
// list) between a client and a server. The root package holds no code;
// the implementation lives in the packages below.
//
// # Package Structure
//
//   - cmd/server, cmd/client: command-line entry points
//   - pkg/cryptoutil: random bytes, DH, RSA, AES-CBC, AES-GCM (framed and streaming), KDF
//   - pkg/certstore: X.509 trust store for the server certificate
//   - pkg/userregistry: per-user RSA public-key lookup
//   - pkg/storagepool: per-user on-disk file storage
//   - pkg/protocol: wire messages, codec and framer
//   - pkg/handshake: STSM client and server
//   - pkg/session: session state machine and raw-mode transfers
//   - pkg/connection: Connection Manager and rate limiters
//   - pkg/buffers: pooled raw-transfer buffers
//   - pkg/metrics: metrics, logging, tracing and health checks
//   - pkg/version: version strings
//   - internal/constants: wire sizes and limits
//   - internal/errors: sentinel and typed error values
//
// # Testing
//
//	go test ./...
//
// For more information, see: https://github.com/safecloud-project/safecloud
package quantumgo
