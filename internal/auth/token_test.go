package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, secret string, ttl time.Duration) *TokenCodec {
	t.Helper()

	codec, err := NewTokenCodec(secret, "HS256", ttl)
	require.NoError(t, err)
	return codec
}

func TestTokenCodec_IssueAndVerify(t *testing.T) {
	codec := newTestCodec(t, "super-secret", time.Hour)

	token, err := codec.Issue(123)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, uint64(123), userID)
}

func TestTokenCodec_ZeroTTLExpiresImmediately(t *testing.T) {
	codec := newTestCodec(t, "super-secret", 0)

	token, err := codec.Issue(1)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	issuer := newTestCodec(t, "right-secret", time.Hour)
	verifier := newTestCodec(t, "wrong-secret", time.Hour)

	token, err := issuer.Issue(1)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenCodec_TruncatedToken(t *testing.T) {
	codec := newTestCodec(t, "super-secret", time.Hour)

	token, err := codec.Issue(1)
	require.NoError(t, err)

	_, err = codec.Verify(token[:len(token)-1])
	require.Error(t, err)
}

func TestTokenCodec_MalformedToken(t *testing.T) {
	codec := newTestCodec(t, "super-secret", time.Hour)

	_, err := codec.Verify("not.a.jwt")
	require.ErrorIs(t, err, ErrTokenMalformed)

	_, err = codec.Verify("")
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestNewTokenCodec_RejectsNonHMACAlgorithms(t *testing.T) {
	_, err := NewTokenCodec("secret", "RS256", time.Hour)
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	_, err = NewTokenCodec("secret", "none", time.Hour)
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}
