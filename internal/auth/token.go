package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// TokenBytes is the amount of randomness in a session token (144 bits).
const TokenBytes = 18

// GenerateToken returns a new opaque, URL-safe session token.
// The token is handed to the client once and never stored.
func GenerateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DeriveSessionID maps a token to the identifier it is persisted under:
// the lowercase hex SHA-256 digest of the token bytes.
func DeriveSessionID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
