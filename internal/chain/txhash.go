package chain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

// NewTxHash returns a random 32-byte hex identifier prefixed with 0x.
// It stands in for a transaction hash and carries no cryptographic meaning.
func NewTxHash() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate tx hash: %w", err)
	}
	return "0x" + hex.EncodeToString(b[:]), nil
}

// ValidTxHash reports whether s has the shape produced by NewTxHash.
func ValidTxHash(s string) bool {
	return txHashPattern.MatchString(s)
}
