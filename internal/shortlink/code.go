package shortlink

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// charset for generated short codes. Alphanumeric only so codes survive
// copy-paste and URL encoding untouched.
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// defaultCodeLength gives 62^6 (~57 billion) possible codes.
const defaultCodeLength = 6

// generateCode returns a random short code of the given length.
// crypto/rand keeps codes unpredictable; guessing a code must not be
// easier than brute force.
func generateCode(length int) (string, error) {
	if length <= 0 {
		length = defaultCodeLength
	}
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("generate short code: %w", err)
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}
