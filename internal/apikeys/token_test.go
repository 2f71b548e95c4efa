package apikeys

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token, hash, err := GenerateToken()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(token, TokenPrefix))
	require.Len(t, hash, 32)
	require.Equal(t, hash, HashToken(token))

	other, otherHash, err := GenerateToken()
	require.NoError(t, err)
	require.NotEqual(t, token, other)
	require.NotEqual(t, hash, otherHash)
}

func TestValidateTokenFormat(t *testing.T) {
	token, _, err := GenerateToken()
	require.NoError(t, err)
	require.True(t, ValidateTokenFormat(token))

	require.False(t, ValidateTokenFormat(""))
	require.False(t, ValidateTokenFormat("obk_"))
	require.False(t, ValidateTokenFormat("obk_not!base64url"))
	require.False(t, ValidateTokenFormat("fgk_"+token[len(TokenPrefix):]))
	require.False(t, ValidateTokenFormat(token[:len(token)-4]))
}
