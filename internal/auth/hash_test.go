package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasher_Hash(t *testing.T) {
	hasher := NewHasher(0)

	t.Run("round trip", func(t *testing.T) {
		encoded, err := hasher.Hash("deal-ops-token-2026")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(encoded, "scrypt$32768$8$1$"))

		ok, err := VerifySecret("deal-ops-token-2026", encoded)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = VerifySecret("deal-ops-token-2027", encoded)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("salts differ", func(t *testing.T) {
		first, err := hasher.Hash("deal-ops-token-2026")
		require.NoError(t, err)
		second, err := hasher.Hash("deal-ops-token-2026")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("weak secret rejected", func(t *testing.T) {
		_, err := hasher.Hash("short1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 12 characters")
	})
}

func TestHasher_CheckStrength(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		minLen  int
		wantErr string
	}{
		{name: "strong", secret: "deal-ops-token-2026", minLen: 0},
		{name: "too short", secret: "abc123", minLen: 0, wantErr: "at least 12 characters"},
		{name: "custom minimum", secret: "abcdefgh1234", minLen: 16, wantErr: "at least 16 characters"},
		{name: "no digits", secret: "only-letters-here", minLen: 0, wantErr: "mix letters and digits"},
		{name: "no letters", secret: "123456789012", minLen: 0, wantErr: "mix letters and digits"},
		{name: "whitespace", secret: "deal ops token 2026", minLen: 0, wantErr: "whitespace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewHasher(tt.minLen).CheckStrength(tt.secret)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestVerifySecret_MalformedHash(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{name: "garbage", encoded: "not-a-hash"},
		{name: "wrong scheme", encoded: "bcrypt$10$x$y$z$w"},
		{name: "missing parts", encoded: "scrypt$32768$8$1$c2FsdA"},
		{name: "bad parameters", encoded: "scrypt$many$8$1$c2FsdA$a2V5"},
		{name: "bad salt encoding", encoded: "scrypt$32768$8$1$!!!$a2V5"},
		{name: "empty key", encoded: "scrypt$32768$8$1$c2FsdA$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifySecret("deal-ops-token-2026", tt.encoded)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "malformed secret hash")
		})
	}
}

func TestCheckEncodedHash(t *testing.T) {
	encoded, err := NewHasher(0).Hash("deal-ops-token-2026")
	require.NoError(t, err)

	assert.NoError(t, CheckEncodedHash(encoded))
	assert.Error(t, CheckEncodedHash("scrypt$oops"))
}
