// Package crypto implements passphrase hashing and verification for the
// nuclear lockdown abort and the disable lock.
package crypto

import (
	"antislack/internal/errs"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2-SHA256 parameters.
const (
	Iterations = 100000
	SaltLength = 16
	KeyLength  = 32

	MinPassphraseLength = 8
	MaxPassphraseLength = 128

	separator = "$"
)

// InvalidHashFormat is the VerifyResult error for a malformed stored hash.
const InvalidHashFormat = "invalid stored hash format"

// VerifyResult carries the outcome of a verification. Error is set only when
// the check could not run, never for a plain mismatch.
type VerifyResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, Iterations, KeyLength, sha256.New)
}

// Hash returns "hex(salt)$hex(key)" for passphrase using a fresh random salt.
func Hash(passphrase string) (string, error) {
	salt, err := RandBytes(SaltLength)
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(salt) + separator + hex.EncodeToString(deriveKey(passphrase, salt)), nil
}

// Verify recomputes the key with the stored salt and compares it in constant time.
func Verify(passphrase, stored string) VerifyResult {
	saltHex, expected, ok := strings.Cut(stored, separator)
	if !ok || saltHex == "" || expected == "" {
		return VerifyResult{Error: InvalidHashFormat}
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return VerifyResult{Error: InvalidHashFormat}
	}

	actual := hex.EncodeToString(deriveKey(passphrase, salt))
	return VerifyResult{Success: constantTimeEqual(actual, expected)}
}

// constantTimeEqual walks the longer input completely; a length difference
// only flips the result, it never shortens the loop.
func constantTimeEqual(a, b string) bool {
	n := max(len(a), len(b))
	diff := subtle.ConstantTimeEq(int32(len(a)), int32(len(b))) ^ 1
	for i := 0; i < n; i++ {
		var x, y byte
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		diff |= subtle.ConstantTimeByteEq(x, y) ^ 1
	}
	return diff == 0
}

// ValidateStrength rejects passphrases shorter than 8 or longer than 128 characters.
func ValidateStrength(passphrase string) error {
	n := utf8.RuneCountInString(passphrase)
	if n < MinPassphraseLength {
		return fmt.Errorf("%w: must be at least %d characters", errs.ErrWeakPassphrase, MinPassphraseLength)
	}
	if n > MaxPassphraseLength {
		return fmt.Errorf("%w: must be %d characters or less", errs.ErrWeakPassphrase, MaxPassphraseLength)
	}
	return nil
}
