package tenant

import (
	"context"

	"github.com/google/uuid"
)

// TeamResolver adapts the tenant context to the team-scoped permission
// checks in internal/rbac. uuid.Nil is the sentinel for "global" and is
// never a real organization ID.
type TeamResolver struct{}

// PermissionsTeamID returns the current organization's ID, or uuid.Nil when
// no tenant context is set.
func (TeamResolver) PermissionsTeamID(ctx context.Context) uuid.UUID {
	return FromContext(ctx).ID()
}

// SetPermissionsTeamID is deliberately a no-op. Tenant switching is owned
// exclusively by Context so there is a single source of truth for the
// current organization.
func (TeamResolver) SetPermissionsTeamID(uuid.UUID) {}
