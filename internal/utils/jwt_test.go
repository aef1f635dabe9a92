// internal/utils/jwt_test.go
package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginTokenRoundTrip(t *testing.T) {
	keys, err := LoadOrGenerateLoginKeys("")
	require.NoError(t, err)

	token, err := keys.Sign("42", 30*time.Minute)
	require.NoError(t, err)

	subject, err := keys.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "42", subject)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	keys, err := LoadOrGenerateLoginKeys("")
	require.NoError(t, err)

	token, err := keys.Sign("42", -time.Minute)
	require.NoError(t, err)

	_, err = keys.Verify(token)
	assert.Error(t, err)
}

func TestTokenFromDifferentKeyIsRejected(t *testing.T) {
	keysA, err := LoadOrGenerateLoginKeys("")
	require.NoError(t, err)
	keysB, err := LoadOrGenerateLoginKeys("")
	require.NoError(t, err)

	token, err := keysA.Sign("42", 30*time.Minute)
	require.NoError(t, err)

	_, err = keysB.Verify(token)
	assert.Error(t, err)
}

func TestPublicKeyPEM(t *testing.T) {
	keys, err := LoadOrGenerateLoginKeys("")
	require.NoError(t, err)

	pemData, err := keys.PublicKeyPEM()
	require.NoError(t, err)
	assert.Contains(t, pemData, "BEGIN PUBLIC KEY")
}
