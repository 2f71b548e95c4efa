package orgs

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role is an organization-scoped membership role.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// TeamRoleNames are the roles provisioned for every organization.
var TeamRoleNames = []string{string(RoleAdmin), string(RoleMember)}

// IsAssignable reports whether the role can be granted through membership
// or invitation flows.
func (r Role) IsAssignable() bool {
	return r == RoleAdmin || r == RoleMember
}

var (
	// ErrOrgNotFound is returned when the organization doesn't exist or is deleted
	ErrOrgNotFound = errors.New("organization not found")

	// ErrSlugConflict is returned when the slug is already taken
	ErrSlugConflict = errors.New("organization slug already exists")

	// ErrNotMember is returned when the user is not a member of the organization
	ErrNotMember = errors.New("user is not a member of the organization")

	// ErrInsufficientPermissions is returned when the actor lacks the required role
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	// ErrMemberNotFound is returned when the target membership doesn't exist
	ErrMemberNotFound = errors.New("member not found")

	// ErrInvalidRole is returned when a role is not assignable
	ErrInvalidRole = errors.New("invalid role")

	// ErrUserNotFound is returned when the user to add doesn't exist
	ErrUserNotFound = errors.New("user not found")
)

// Org is an organization (tenant).
type Org struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	OwnerID   *uuid.UUID     `json:"owner_id"`
	Settings  map[string]any `json:"settings"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt *time.Time     `json:"-"`
}

// OrgWithRole is an organization together with the requesting user's
// membership details in it.
type OrgWithRole struct {
	Org
	Role      Role `json:"role"`
	IsDefault bool `json:"is_default"`
	IsOwner   bool `json:"is_owner"`
}

// MemberInfo is a row in an organization's member listing.
type MemberInfo struct {
	UserID    uuid.UUID  `json:"user_id"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	IsOwner   bool       `json:"is_owner"`
	IsDefault bool       `json:"-"`
	JoinedAt  time.Time  `json:"joined_at"`
	InvitedBy *uuid.UUID `json:"invited_by,omitempty"`
}

// RemovalOutcome describes what a member removal did, including any
// ownership succession it triggered.
type RemovalOutcome struct {
	RemovedUserID uuid.UUID  `json:"removed_user_id"`
	WasOwner      bool       `json:"was_owner"`
	NewOwnerID    *uuid.UUID `json:"new_owner_id,omitempty"`
	OrgDeleted    bool       `json:"org_deleted"`
}

// Transfer rejection reasons.
const (
	TransferReasonNotMember = "new owner is not a member of the organization"
	TransferReasonSameOwner = "user is already the owner"
)

// TransferResult is the outcome of an ownership transfer attempt. A
// rejected transfer is not an error: Transferred is false and Reason says
// why nothing was changed.
type TransferResult struct {
	Transferred     bool       `json:"transferred"`
	Reason          string     `json:"reason,omitempty"`
	PreviousOwnerID *uuid.UUID `json:"previous_owner_id,omitempty"`
	NewOwnerID      uuid.UUID  `json:"new_owner_id"`
}
