package auth

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	require.Len(t, raw, TokenBytes)
	require.Len(t, token, 24)
}

func TestGenerateToken_unique(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for range 10000 {
		token, err := GenerateToken()
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup, "token generated twice: %s", token)
		seen[token] = struct{}{}
	}
}

func TestDeriveSessionID(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected string
	}{
		{
			name:     "known vector",
			token:    "abc",
			expected: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
		{
			name:     "empty token",
			token:    "",
			expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, DeriveSessionID(tt.token))
		})
	}
}

func TestDeriveSessionID_deterministic(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)

	id := DeriveSessionID(token)
	require.Equal(t, id, DeriveSessionID(token))
	require.Len(t, id, 64)
	require.NotEqual(t, token, id)
	require.Regexp(t, "^[0-9a-f]{64}$", id)
}
