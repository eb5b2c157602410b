// cbc.go implements the one-shot AES-128-CBC encryption used to protect the
// STSM authentication proof: the 256-byte RSA signature over the
// authentication value (Yc||Ys on the server side, name||Yc||Ys on the
// client side), sent inside SRV_AUTH and CLI_AUTH. Session traffic never
// uses CBC; it exists only for this single handshake-phase proof.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/safecloud-project/safecloud/internal/constants"
	scerrors "github.com/safecloud-project/safecloud/internal/errors"
)

// EncryptCBC encrypts plaintext under AES-128-CBC with PKCS#7 padding using
// the 16-byte session key K and the 16-byte handshake IV.
func EncryptCBC(key, iv, plaintext []byte) ([]byte, error) {
	if len(key) != constants.CBCKeySize {
		return nil, scerrors.ErrInvalidKeySize
	}
	if len(iv) != constants.CBCIVSize {
		return nil, scerrors.ErrInvalidNonce
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, scerrors.NewCryptoError("EncryptCBC", err)
	}

	padded := pkcs7Pad(plaintext, constants.CBCBlockSize)
	ciphertext := make([]byte, len(padded))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, padded)

	return ciphertext, nil
}

// DecryptCBC decrypts an AES-128-CBC ciphertext produced by EncryptCBC and
// strips its PKCS#7 padding.
func DecryptCBC(key, iv, ciphertext []byte) ([]byte, error) {
	if len(key) != constants.CBCKeySize {
		return nil, scerrors.ErrInvalidKeySize
	}
	if len(iv) != constants.CBCIVSize {
		return nil, scerrors.ErrInvalidNonce
	}
	if len(ciphertext) == 0 || len(ciphertext)%constants.CBCBlockSize != 0 {
		return nil, scerrors.ErrCiphertextTooShort
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, scerrors.NewCryptoError("DecryptCBC", err)
	}

	padded := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(padded, ciphertext)

	return pkcs7Unpad(padded, constants.CBCBlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, scerrors.ErrCiphertextTooShort
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, scerrors.ErrAuthenticationFailed
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, scerrors.ErrAuthenticationFailed
		}
	}
	return data[:len(data)-padLen], nil
}
