package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 120000
	saltBytes        = 16
	digestBytes      = sha256.Size
)

// HashPassword derives a PBKDF2-HMAC-SHA256 hash and encodes it as
// "base64(salt)$base64(digest)".
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	digest := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, digestBytes, sha256.New)
	return base64.StdEncoding.EncodeToString(salt) + "$" + base64.StdEncoding.EncodeToString(digest), nil
}

// VerifyPassword checks a password against a stored hash. Malformed
// hashes verify as false, never as an error.
func VerifyPassword(password, storedHash string) bool {
	saltB64, digestB64, ok := strings.Cut(storedHash, "$")
	if !ok || saltB64 == "" || digestB64 == "" {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}
	digest, err := base64.StdEncoding.DecodeString(digestB64)
	if err != nil {
		return false
	}

	candidate := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, len(digest), sha256.New)
	return hmac.Equal(candidate, digest)
}
