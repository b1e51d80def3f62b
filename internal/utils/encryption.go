package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	nonceSize  = 12
	keySize    = 32
	iterations = 100000
)

var ErrCiphertext = errors.New("malformed ciphertext")

// Sealer encrypts small secrets (provider refresh tokens) at rest.
// Output layout is base64(salt | nonce | ciphertext).
type Sealer struct {
	passphrase []byte
}

func NewSealer(passphrase string) *Sealer {
	return &Sealer{passphrase: []byte(passphrase)}
}

func (s *Sealer) gcm(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(s.passphrase, salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}

func (s *Sealer) Seal(plaintext string) (string, error) {
	buf := make([]byte, saltSize+nonceSize)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	aead, err := s.gcm(buf[:saltSize])
	if err != nil {
		return "", err
	}
	out := aead.Seal(buf, buf[saltSize:], []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrCiphertext
	}
	if len(raw) < saltSize+nonceSize+1 {
		return "", ErrCiphertext
	}
	aead, err := s.gcm(raw[:saltSize])
	if err != nil {
		return "", err
	}
	nonce := raw[saltSize : saltSize+nonceSize]
	plain, err := aead.Open(nil, nonce, raw[saltSize+nonceSize:], nil)
	if err != nil {
		return "", ErrCiphertext
	}
	return string(plain), nil
}
