package invites

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)
	require.Len(t, token, TokenLen)
	require.True(t, ValidateTokenFormat(token))

	other, err := GenerateToken()
	require.NoError(t, err)
	require.NotEqual(t, token, other)
}

func TestValidateTokenFormat(t *testing.T) {
	require.False(t, ValidateTokenFormat(""))
	require.False(t, ValidateTokenFormat("short"))
	require.False(t, ValidateTokenFormat("zz0a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8"))

	token, err := GenerateToken()
	require.NoError(t, err)
	require.False(t, ValidateTokenFormat(token+"00"))
	require.False(t, ValidateTokenFormat(token[:TokenLen-2]))
}
