package invites

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInvitationPredicates(t *testing.T) {
	now := time.Now().UTC()

	pending := &Invitation{Status: StatusPending, ExpiresAt: now.Add(time.Hour)}
	require.True(t, pending.IsPending())
	require.False(t, pending.IsExpired(now))
	require.True(t, pending.IsValid(now))
	require.Equal(t, StatusPending, pending.EffectiveStatus(now))

	// Expiry is evaluated at read time; the stored status stays pending.
	lapsed := &Invitation{Status: StatusPending, ExpiresAt: now.Add(-time.Minute)}
	require.True(t, lapsed.IsPending())
	require.True(t, lapsed.IsExpired(now))
	require.False(t, lapsed.IsValid(now))
	require.Equal(t, StatusExpired, lapsed.EffectiveStatus(now))

	accepted := &Invitation{Status: StatusAccepted, ExpiresAt: now.Add(-time.Minute)}
	require.False(t, accepted.IsPending())
	require.False(t, accepted.IsValid(now))
	require.Equal(t, StatusAccepted, accepted.EffectiveStatus(now))

	cancelled := &Invitation{Status: StatusCancelled, ExpiresAt: now.Add(time.Hour)}
	require.False(t, cancelled.IsValid(now))
	require.Equal(t, StatusCancelled, cancelled.EffectiveStatus(now))
}

func TestInvitationExpiryBoundary(t *testing.T) {
	now := time.Now().UTC()

	// An invitation expiring exactly now is already expired.
	boundary := &Invitation{Status: StatusPending, ExpiresAt: now}
	require.True(t, boundary.IsExpired(now))
	require.False(t, boundary.IsValid(now))
}
