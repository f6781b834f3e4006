package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Encrypt mengenkripsi data dengan AES-GCM. Hasilnya base64(nonce||ciphertext).
func Encrypt(data, key string) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(data), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt mendekripsi data hasil Encrypt dengan key yang sama.
func Decrypt(data, key string) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", ErrCiphertextTooShort
	}

	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// DeriveKey memastikan key memiliki panjang 32 byte (AES-256).
func DeriveKey(key string) []byte {
	sum := sha256.Sum256([]byte(key))
	return sum[:]
}

func newGCM(key string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(DeriveKey(key))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
