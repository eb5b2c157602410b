// dh.go implements classical, finite-field Diffie-Hellman key agreement
// over the RFC 3526 2048-bit MODP Group ("Group 14"), the canonical
// 2048-bit safe-prime group used wherever OpenSSL-era protocols call for
// "2048-bit DH" without negotiating a group. Both peers use the same fixed
// (p, g); only the ephemeral exponents are generated per handshake.
package cryptoutil

import (
	"crypto/rand"
	"math/big"

	"github.com/safecloud-project/safecloud/internal/constants"
	scerrors "github.com/safecloud-project/safecloud/internal/errors"
)

// dhGroup14PHex is the RFC 3526 2048-bit MODP Group ("Group 14") prime.
const dhGroup14PHex = "" +
	"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
	"83655D23DCA3AD961C62F356208552BB9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
	"15728E5A8AACAA68FFFFFFFFFFFFFFFF"

// dhGroup14GHex is the group's generator.
const dhGroup14GHex = "2"

var (
	dhGroupP *big.Int
	dhGroupG *big.Int
)

func init() {
	dhGroupP, _ = new(big.Int).SetString(dhGroup14PHex, 16)
	dhGroupG, _ = new(big.Int).SetString(dhGroup14GHex, 16)
}

// DHKeyPair is an ephemeral Diffie-Hellman key pair: a random exponent and
// its corresponding public value g^x mod p.
type DHKeyPair struct {
	Private *big.Int
	Public  *big.Int
}

// GenerateDHKeyPair generates a fresh ephemeral DH key pair over the fixed
// 2048-bit group. The private exponent is drawn uniformly from [2, p-2].
func GenerateDHKeyPair() (*DHKeyPair, error) {
	pMinusThree := new(big.Int).Sub(dhGroupP, big.NewInt(3))

	priv, err := rand.Int(rand.Reader, pMinusThree)
	if err != nil {
		return nil, scerrors.NewCryptoError("GenerateDHKeyPair", err)
	}
	priv.Add(priv, big.NewInt(2))

	pub := new(big.Int).Exp(dhGroupG, priv, dhGroupP)

	return &DHKeyPair{Private: priv, Public: pub}, nil
}

// Marshal serializes the public key as a fixed-width, big-endian byte slice
// of DHPubKeySize bytes (the wire encoding of "Yc"/"Ys").
func (kp *DHKeyPair) Marshal() []byte {
	return marshalDHPublic(kp.Public)
}

func marshalDHPublic(pub *big.Int) []byte {
	out := make([]byte, constants.DHPubKeySize)
	b := pub.Bytes()
	copy(out[len(out)-len(b):], b)
	return out
}

// UnmarshalDHPublic parses a peer's fixed-width public key and validates
// that it lies within the group's valid range (2 <= y <= p-2), rejecting
// degenerate values that would leak the shared secret.
func UnmarshalDHPublic(b []byte) (*big.Int, error) {
	if len(b) != constants.DHPubKeySize {
		return nil, scerrors.ErrInvalidPublicKey
	}
	y := new(big.Int).SetBytes(b)

	two := big.NewInt(2)
	pMinusTwo := new(big.Int).Sub(dhGroupP, two)
	if y.Cmp(two) < 0 || y.Cmp(pMinusTwo) > 0 {
		return nil, scerrors.ErrInvalidPublicKey
	}
	return y, nil
}

// SharedSecret computes g^(xy) mod p from the local private exponent and
// the peer's public value.
func (kp *DHKeyPair) SharedSecret(peerPublic *big.Int) []byte {
	secret := new(big.Int).Exp(peerPublic, kp.Private, dhGroupP)
	out := make([]byte, constants.DHKeyBytes)
	b := secret.Bytes()
	copy(out[len(out)-len(b):], b)
	return out
}

// Zeroize clears the private exponent from memory. The public value and
// the big.Int's internal words are not guaranteed to be scrubbed by the Go
// runtime, but this bounds exposure of the most sensitive field.
func (kp *DHKeyPair) Zeroize() {
	if kp.Private != nil {
		kp.Private.SetInt64(0)
	}
}
