package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerifier_TokenRoundTrip(t *testing.T) {
	req := require.New(t)
	verifier := NewVerifier([]byte("test_secret_key"))

	token, err := verifier.GenerateToken("user-42", "Alice", time.Hour)
	req.NoError(err)
	req.NotEmpty(token)

	claims, err := verifier.ValidateToken(token)
	req.NoError(err)
	req.Equal("user-42", claims.UserID)
	req.Equal("Alice", claims.DisplayName)
}

func TestVerifier_RejectsForeignSignature(t *testing.T) {
	req := require.New(t)
	verifier := NewVerifier([]byte("test_secret_key"))
	other := NewVerifier([]byte("another_secret_key"))

	token, err := other.GenerateToken("user-42", "Alice", time.Hour)
	req.NoError(err)

	_, err = verifier.ValidateToken(token)
	req.Error(err)
}

func TestVerifier_RejectsExpiredToken(t *testing.T) {
	req := require.New(t)
	verifier := NewVerifier([]byte("test_secret_key"))

	token, err := verifier.GenerateToken("user-42", "Alice", -time.Minute)
	req.NoError(err)

	_, err = verifier.ValidateToken(token)
	req.Error(err)
}

func TestPasskey_HashAndCompare(t *testing.T) {
	req := require.New(t)

	hash, err := HashPasskey("open sesame")
	req.NoError(err)
	req.Contains(hash, "$argon2id$")

	ok, err := ComparePasskey("open sesame", hash)
	req.NoError(err)
	req.True(ok)

	ok, err = ComparePasskey("close sesame", hash)
	req.NoError(err)
	req.False(ok)
}

func TestPasskey_RejectsMalformedHash(t *testing.T) {
	_, err := ComparePasskey("anything", "not-a-hash")
	require.Error(t, err)
}
