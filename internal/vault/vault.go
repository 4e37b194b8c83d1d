// Package vault encrypts long-lived channel access tokens at rest.
//
// The at-rest format is "<ivHex>:<cipherHex>" with exactly one colon
// separator. Encryption is AES-256-CBC with a fresh random IV per call, so
// two encryptions of the same token never produce the same ciphertext.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const keyHexLen = 64 // 32 raw bytes

// MalformedCiphertextError indicates a stored credential that cannot be
// decrypted: bad segment count, invalid hex, or corrupted padding. It points
// at data corruption upstream and is never retried.
type MalformedCiphertextError struct {
	Reason string
}

func (e *MalformedCiphertextError) Error() string {
	return "malformed ciphertext: " + e.Reason
}

// Cipher encrypts and decrypts channel credentials with a single 256-bit key.
type Cipher struct {
	key []byte
}

// New creates a Cipher from a 64-character hex key. A key of any other shape
// is a configuration error, fatal to the process.
func New(hexKey string) (*Cipher, error) {
	if len(hexKey) != keyHexLen {
		return nil, fmt.Errorf("credential key must be %d hex characters, got %d", keyHexLen, len(hexKey))
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("credential key is not valid hex: %w", err)
	}
	return &Cipher{key: key}, nil
}

// Encrypt encrypts plaintext under a fresh random IV and returns
// hex(iv) + ":" + hex(ciphertext).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generating iv: %w", err)
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Any structural problem with the stored value
// yields a *MalformedCiphertextError.
func (c *Cipher) Decrypt(stored string) (string, error) {
	ivHex, ctHex, ok := strings.Cut(stored, ":")
	if !ok || ivHex == "" || ctHex == "" {
		return "", &MalformedCiphertextError{Reason: "expected <ivHex>:<cipherHex>"}
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", &MalformedCiphertextError{Reason: "iv is not valid hex"}
	}
	if len(iv) != aes.BlockSize {
		return "", &MalformedCiphertextError{Reason: "iv has wrong length"}
	}

	ct, err := hex.DecodeString(ctHex)
	if err != nil {
		return "", &MalformedCiphertextError{Reason: "ciphertext is not valid hex"}
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", &MalformedCiphertextError{Reason: "ciphertext is not a whole number of blocks"}
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	unpadded, err := unpad(plain, aes.BlockSize)
	if err != nil {
		return "", &MalformedCiphertextError{Reason: err.Error()}
	}
	return string(unpadded), nil
}

// pad applies PKCS#7 padding. The empty string pads to one full block, so a
// ciphertext is never empty.
func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	padded := make([]byte, len(b)+n)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, fmt.Errorf("bad padded length %d", len(b))
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, fmt.Errorf("bad padding byte %d", n)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return b[:len(b)-n], nil
}
