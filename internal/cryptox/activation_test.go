package cryptox

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var lowerHex64 = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestGenerateActivationToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tok, err := GenerateActivationToken(now, 0)
	require.NoError(t, err)
	require.Regexp(t, lowerHex64, tok.Token)
	require.Regexp(t, lowerHex64, tok.Hash)
	require.NotEqual(t, tok.Token, tok.Hash)
	require.Equal(t, HashActivationToken(tok.Token), tok.Hash)
	require.Equal(t, now.Add(DefaultActivationTTL), tok.ExpiresAt)

	other, err := GenerateActivationToken(now, time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, tok.Token, other.Token)
	require.Equal(t, now.Add(time.Hour), other.ExpiresAt)
}

func TestVerifyActivationToken(t *testing.T) {
	now := time.Now()
	tok, err := GenerateActivationToken(now, time.Hour)
	require.NoError(t, err)

	require.True(t, VerifyActivationToken(tok.Token, tok.Hash, now.Add(time.Hour), now))
	require.True(t, VerifyActivationToken(tok.Token, tok.Hash, now, now), "expiry instant is still valid")
	require.False(t, VerifyActivationToken(tok.Token, tok.Hash, now.Add(-time.Second), now))

	wrong, err := RandomHex(TokenBytes)
	require.NoError(t, err)
	require.False(t, VerifyActivationToken(wrong, tok.Hash, now.Add(time.Hour), now))
	require.False(t, VerifyActivationToken("", tok.Hash, now.Add(time.Hour), now))
	require.False(t, VerifyActivationToken(tok.Token, "", now.Add(time.Hour), now))
}

func TestRandomHex(t *testing.T) {
	token, err := RandomHex(TokenBytes)
	require.NoError(t, err)
	require.Regexp(t, lowerHex64, token)

	_, err = RandomHex(0)
	require.Error(t, err)
}
