package protocol_test

import (
	"bytes"
	"testing"

	"github.com/safecloud-project/safecloud/internal/constants"
	"github.com/safecloud-project/safecloud/pkg/protocol"
)

func fill(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestEncodeDecodeClientHello(t *testing.T) {
	original := &protocol.ClientHello{
		YcPub:  fill(constants.DHPubKeySize, 0xAB),
		IVSeed: fill(constants.CBCIVSize, 0x42),
	}

	encoded, err := protocol.EncodeClientHello(original)
	if err != nil {
		t.Fatalf("EncodeClientHello failed: %v", err)
	}
	if protocol.HandshakeMessageType(encoded[2]) != protocol.MsgClientHello {
		t.Errorf("wrong message type byte: got %d", encoded[2])
	}

	decoded, err := protocol.DecodeClientHello(encoded[protocol.HandshakeHeaderSize:])
	if err != nil {
		t.Fatalf("DecodeClientHello failed: %v", err)
	}
	if !bytes.Equal(decoded.YcPub, original.YcPub) {
		t.Error("YcPub mismatch after round trip")
	}
	if !bytes.Equal(decoded.IVSeed, original.IVSeed) {
		t.Error("IVSeed mismatch after round trip")
	}
}

func TestEncodeDecodeServerAuth(t *testing.T) {
	original := &protocol.ServerAuth{
		YsPub:   fill(constants.DHPubKeySize, 0x11),
		Proof:   fill(constants.STSMAuthProofSize, 0x22),
		CertPEM: []byte("-----BEGIN CERTIFICATE-----\nfakecert\n-----END CERTIFICATE-----\n"),
	}

	encoded, err := protocol.EncodeServerAuth(original)
	if err != nil {
		t.Fatalf("EncodeServerAuth failed: %v", err)
	}

	decoded, err := protocol.DecodeServerAuth(encoded[protocol.HandshakeHeaderSize:])
	if err != nil {
		t.Fatalf("DecodeServerAuth failed: %v", err)
	}
	if !bytes.Equal(decoded.YsPub, original.YsPub) {
		t.Error("YsPub mismatch after round trip")
	}
	if !bytes.Equal(decoded.Proof, original.Proof) {
		t.Error("Proof mismatch after round trip")
	}
	if !bytes.Equal(decoded.CertPEM, original.CertPEM) {
		t.Error("CertPEM mismatch after round trip")
	}
}

func TestEncodeDecodeClientAuth(t *testing.T) {
	original := &protocol.ClientAuth{
		Name:  "alice",
		Proof: fill(constants.STSMAuthProofSize, 0x33),
	}

	encoded, err := protocol.EncodeClientAuth(original)
	if err != nil {
		t.Fatalf("EncodeClientAuth failed: %v", err)
	}

	decoded, err := protocol.DecodeClientAuth(encoded[protocol.HandshakeHeaderSize:])
	if err != nil {
		t.Fatalf("DecodeClientAuth failed: %v", err)
	}
	if decoded.Name != original.Name {
		t.Errorf("Name mismatch: got %q, want %q", decoded.Name, original.Name)
	}
	if !bytes.Equal(decoded.Proof, original.Proof) {
		t.Error("Proof mismatch after round trip")
	}
}

func TestEncodeDecodeClientAuthRejectsOversizedName(t *testing.T) {
	original := &protocol.ClientAuth{
		Name:  string(fill(constants.MaxClientNameLength+1, 'a')),
		Proof: fill(constants.STSMAuthProofSize, 0x00),
	}
	if _, err := protocol.EncodeClientAuth(original); err == nil {
		t.Error("expected error for name exceeding MaxClientNameLength")
	}
}

func TestEncodeServerOk(t *testing.T) {
	frame := protocol.EncodeServerOk()
	if len(frame) != protocol.HandshakeHeaderSize {
		t.Errorf("SRV_OK frame should be header-only, got %d bytes", len(frame))
	}
	if protocol.HandshakeMessageType(frame[2]) != protocol.MsgSrvOk {
		t.Errorf("wrong message type byte: got %d", frame[2])
	}
}

func TestEncodeHandshakeError(t *testing.T) {
	frame := protocol.EncodeHandshakeError(protocol.MsgClientLoginFailed)
	if len(frame) != protocol.HandshakeHeaderSize {
		t.Errorf("error frame should be header-only, got %d bytes", len(frame))
	}
	if protocol.HandshakeMessageType(frame[2]) != protocol.MsgClientLoginFailed {
		t.Error("wrong error type encoded")
	}
}

func TestEncodeDecodeFileMetadata(t *testing.T) {
	original := &protocol.FileMetadata{Name: "report.pdf", Size: 123456, Mtime: 1700000000, Ctime: 1699999999}

	encoded, err := protocol.EncodeFileMetadata(original)
	if err != nil {
		t.Fatalf("EncodeFileMetadata failed: %v", err)
	}

	decoded, n, err := protocol.DecodeFileMetadata(encoded)
	if err != nil {
		t.Fatalf("DecodeFileMetadata failed: %v", err)
	}
	if n != len(encoded) {
		t.Errorf("consumed %d bytes, want %d", n, len(encoded))
	}
	if *decoded != *original {
		t.Errorf("decoded %+v, want %+v", decoded, original)
	}
}

func TestDecodeFileMetadataTrailingBytesIgnored(t *testing.T) {
	original := &protocol.FileMetadata{Name: "a.txt", Size: 1, Mtime: 2, Ctime: 3}
	encoded, _ := protocol.EncodeFileMetadata(original)
	encoded = append(encoded, 0xFF, 0xFF, 0xFF)

	_, n, err := protocol.DecodeFileMetadata(encoded)
	if err != nil {
		t.Fatalf("DecodeFileMetadata failed: %v", err)
	}
	if n != len(encoded)-3 {
		t.Errorf("consumed %d bytes, want %d (trailing bytes untouched)", n, len(encoded)-3)
	}
}

func TestEncodeDecodeRenameRequest(t *testing.T) {
	original := &protocol.RenameRequest{OldName: "draft.txt", NewName: "final.txt"}

	encoded, err := protocol.EncodeRenameRequest(original)
	if err != nil {
		t.Fatalf("EncodeRenameRequest failed: %v", err)
	}

	decoded, err := protocol.DecodeRenameRequest(encoded)
	if err != nil {
		t.Fatalf("DecodeRenameRequest failed: %v", err)
	}
	if *decoded != *original {
		t.Errorf("decoded %+v, want %+v", decoded, original)
	}
}

func TestDecodeClientHelloRejectsWrongSize(t *testing.T) {
	if _, err := protocol.DecodeClientHello(make([]byte, 4)); err == nil {
		t.Error("expected error decoding truncated ClientHello payload")
	}
}
