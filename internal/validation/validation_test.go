package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateSlug(t *testing.T) {
	require.NoError(t, ValidateSlug("acme"))
	require.NoError(t, ValidateSlug("acme-labs-2"))
	require.ErrorIs(t, ValidateSlug("ab"), ErrSlugTooShort)
	require.ErrorIs(t, ValidateSlug("-acme"), ErrInvalidSlug)
	require.ErrorIs(t, ValidateSlug("acme_labs"), ErrInvalidSlug)
}

func TestSlugFromName(t *testing.T) {
	require.Equal(t, "alices-organization", SlugFromName("Alice's Organization"))
	require.Equal(t, "acme-labs", SlugFromName("  Acme   Labs!  "))
	require.Equal(t, "a1-b2", SlugFromName("A1 (b2)"))
}

func TestValidateWebhookURL(t *testing.T) {
	require.NoError(t, ValidateWebhookURL("https://hooks.example.com/x"))
	require.Error(t, ValidateWebhookURL(""))
	require.Error(t, ValidateWebhookURL("http://hooks.example.com/x"))
}
