package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// sessionTokenBytes yields 192 bits of randomness, comfortably above the
// 128-bit floor required for an unguessable opaque credential.
const sessionTokenBytes = 24

// GenerateSessionToken returns a hex-encoded opaque session token.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateOneTimeCode returns a uniformly random six-digit decimal code in
// [100000, 999999]; no leading-zero codes are produced.
func GenerateOneTimeCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate one-time code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
