// Package auth hashes and verifies the bearer tokens that guard mutating
// deal routes. Tokens never persist anywhere in clear text: configuration
// carries an scrypt hash, and presented tokens are re-derived and compared
// in constant time.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters, OWASP recommended.
const (
	scryptN = 32768
	scryptR = 8
	scryptP = 1
	keyLen  = 32
	saltLen = 16
)

// DefaultMinSecretLength applies when no policy length is configured.
const DefaultMinSecretLength = 12

// Hasher derives scrypt hashes for operator secrets, enforcing the
// strength policy before any hash is produced.
type Hasher struct {
	minLength int
}

// NewHasher creates a Hasher with the given minimum secret length.
func NewHasher(minLength int) *Hasher {
	if minLength <= 0 {
		minLength = DefaultMinSecretLength
	}
	return &Hasher{minLength: minLength}
}

// CheckStrength validates a candidate secret against the policy: minimum
// length, no whitespace, and a mix of letters and digits.
func (h *Hasher) CheckStrength(secret string) error {
	if len(secret) < h.minLength {
		return fmt.Errorf("secret must be at least %d characters", h.minLength)
	}

	var hasLetter, hasDigit bool
	for _, r := range secret {
		switch {
		case unicode.IsSpace(r):
			return fmt.Errorf("secret must not contain whitespace")
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("secret must mix letters and digits")
	}
	return nil
}

// Hash derives an scrypt hash of the secret with a fresh random salt.
// The encoding carries its own parameters: scrypt$N$r$p$salt$key.
func (h *Hasher) Hash(secret string) (string, error) {
	if err := h.CheckStrength(secret); err != nil {
		return "", err
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key, err := scrypt.Key([]byte(secret), salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	return fmt.Sprintf("scrypt$%d$%d$%d$%s$%s",
		scryptN, scryptR, scryptP,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// VerifySecret re-derives the presented secret with the parameters stored
// in the encoded hash and compares in constant time.
func VerifySecret(secret, encoded string) (bool, error) {
	n, r, p, salt, want, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	got, err := scrypt.Key([]byte(secret), salt, n, r, p, len(want))
	if err != nil {
		return false, fmt.Errorf("derive key: %w", err)
	}

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// CheckEncodedHash validates that a configured hash is well formed, so a
// bad deployment fails at startup instead of rejecting every token.
func CheckEncodedHash(encoded string) error {
	_, _, _, _, _, err := decodeHash(encoded)
	return err
}

func decodeHash(encoded string) (n, r, p int, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "scrypt" {
		return 0, 0, 0, nil, nil, fmt.Errorf("malformed secret hash")
	}

	if n, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("malformed secret hash: bad N")
	}
	if r, err = strconv.Atoi(parts[2]); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("malformed secret hash: bad r")
	}
	if p, err = strconv.Atoi(parts[3]); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("malformed secret hash: bad p")
	}
	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("malformed secret hash: bad salt")
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("malformed secret hash: bad key")
	}
	if len(key) == 0 {
		return 0, 0, 0, nil, nil, fmt.Errorf("malformed secret hash: empty key")
	}
	return n, r, p, salt, key, nil
}
