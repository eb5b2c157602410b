package cryptoutil_test

import (
	"bytes"
	"testing"

	"github.com/safecloud-project/safecloud/internal/constants"
	"github.com/safecloud-project/safecloud/pkg/cryptoutil"
)

func TestDHKeyGeneration(t *testing.T) {
	kp, err := cryptoutil.GenerateDHKeyPair()
	if err != nil {
		t.Fatalf("GenerateDHKeyPair failed: %v", err)
	}

	pub := kp.Marshal()
	if len(pub) != constants.DHPubKeySize {
		t.Errorf("public key size: got %d, want %d", len(pub), constants.DHPubKeySize)
	}
}

func TestDHKeyExchange(t *testing.T) {
	client, err := cryptoutil.GenerateDHKeyPair()
	if err != nil {
		t.Fatalf("GenerateDHKeyPair failed for client: %v", err)
	}
	server, err := cryptoutil.GenerateDHKeyPair()
	if err != nil {
		t.Fatalf("GenerateDHKeyPair failed for server: %v", err)
	}

	serverPub, err := cryptoutil.UnmarshalDHPublic(server.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalDHPublic failed: %v", err)
	}
	clientPub, err := cryptoutil.UnmarshalDHPublic(client.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalDHPublic failed: %v", err)
	}

	secretClient := client.SharedSecret(serverPub)
	secretServer := server.SharedSecret(clientPub)

	if !bytes.Equal(secretClient, secretServer) {
		t.Error("DH shared secrets do not match")
	}
	if len(secretClient) != constants.DHKeyBytes {
		t.Errorf("shared secret size: got %d, want %d", len(secretClient), constants.DHKeyBytes)
	}
}

func TestUnmarshalDHPublicRejectsWrongSize(t *testing.T) {
	_, err := cryptoutil.UnmarshalDHPublic([]byte{1, 2, 3})
	if err == nil {
		t.Error("expected error for undersized public key")
	}
}

func TestUnmarshalDHPublicRejectsDegenerateValues(t *testing.T) {
	zero := make([]byte, constants.DHPubKeySize)
	if _, err := cryptoutil.UnmarshalDHPublic(zero); err == nil {
		t.Error("expected error for zero public key")
	}

	one := make([]byte, constants.DHPubKeySize)
	one[len(one)-1] = 1
	if _, err := cryptoutil.UnmarshalDHPublic(one); err == nil {
		t.Error("expected error for public key value of 1")
	}
}

func TestDHKeyPairZeroize(t *testing.T) {
	kp, err := cryptoutil.GenerateDHKeyPair()
	if err != nil {
		t.Fatalf("GenerateDHKeyPair failed: %v", err)
	}
	kp.Zeroize()
	if kp.Private.Sign() != 0 {
		t.Error("Zeroize did not clear the private exponent")
	}
}
