package orgs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleIsAssignable(t *testing.T) {
	require.True(t, RoleAdmin.IsAssignable())
	require.True(t, RoleMember.IsAssignable())

	require.False(t, Role("").IsAssignable())
	require.False(t, Role("owner").IsAssignable())
	require.False(t, Role("super-admin").IsAssignable())
	require.False(t, Role("Admin").IsAssignable())
}
