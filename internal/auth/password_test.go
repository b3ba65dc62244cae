package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword_VerifyRoundTrip(t *testing.T) {
	digest, err := HashPassword("secret123")
	require.NoError(t, err)
	require.NotEmpty(t, digest)
	require.NotEqual(t, "secret123", digest)

	require.True(t, CheckPassword("secret123", digest))
	require.False(t, CheckPassword("secret124", digest))
}

func TestHashPassword_SaltedDigestsDiffer(t *testing.T) {
	first, err := HashPassword("secret123")
	require.NoError(t, err)
	second, err := HashPassword("secret123")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.True(t, CheckPassword("secret123", first))
	require.True(t, CheckPassword("secret123", second))
}

func TestCheckPassword_MalformedDigest(t *testing.T) {
	require.False(t, CheckPassword("secret123", ""))
	require.False(t, CheckPassword("secret123", "not-a-bcrypt-digest"))
}
