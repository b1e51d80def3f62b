package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// NewURLToken returns nBytes of randomness as unpadded base64url, suitable
// for invitation links.
func NewURLToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 32
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

const pairingCodeSpace = 10000

// NewPairingCode returns a uniformly random 4-digit code, leading zeros kept.
func NewPairingCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(pairingCodeSpace))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
