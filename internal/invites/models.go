// Package invites implements the organization invitation lifecycle:
// create, list, cancel, resend and accept. Expiry is a read-time predicate
// over expires_at; rows are never flipped to an "expired" status.
package invites

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Invitation statuses persisted in org_invitations.status.
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusCancelled = "cancelled"

	// StatusExpired is derived, never stored.
	StatusExpired = "expired"
)

var (
	// ErrInviteNotFound is returned when no invitation matches
	ErrInviteNotFound = errors.New("invitation not found")

	// ErrInviteNotActive is returned when the invitation was already accepted or cancelled
	ErrInviteNotActive = errors.New("invitation is no longer active")

	// ErrInviteExpired is returned when the invitation is past its expiry
	ErrInviteExpired = errors.New("invitation has expired")

	// ErrInviteEmailMismatch is returned when the accepting user's email doesn't match
	ErrInviteEmailMismatch = errors.New("invitation was issued for a different email")

	// ErrDuplicateInvite is returned when a pending invitation already exists for the email
	ErrDuplicateInvite = errors.New("a pending invitation already exists for this email")

	// ErrInvalidEmail is returned when the invitation email doesn't parse
	ErrInvalidEmail = errors.New("invalid email address")
)

// Invitation is a row in org_invitations.
type Invitation struct {
	ID         uuid.UUID  `json:"id"`
	OrgID      uuid.UUID  `json:"org_id"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	Status     string     `json:"status"`
	Token      string     `json:"-"`
	InvitedBy  *uuid.UUID `json:"invited_by,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"-"`
}

// IsPending reports whether the invitation is still in the pending state,
// regardless of expiry.
func (i *Invitation) IsPending() bool {
	return i.Status == StatusPending
}

// IsExpired reports whether the invitation's expiry has passed.
func (i *Invitation) IsExpired(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}

// IsValid reports whether the invitation can still be accepted: pending and
// not expired.
func (i *Invitation) IsValid(now time.Time) bool {
	return i.IsPending() && !i.IsExpired(now)
}

// EffectiveStatus is the status as seen by clients: a pending invitation
// past its expiry reads as expired.
func (i *Invitation) EffectiveStatus(now time.Time) string {
	if i.IsPending() && i.IsExpired(now) {
		return StatusExpired
	}
	return i.Status
}

// ResendResult is the outcome of a resend attempt. Resending a
// non-pending invitation is rejected with a reasoned result, not applied
// silently.
type ResendResult struct {
	Resent     bool        `json:"resent"`
	Reason     string      `json:"reason,omitempty"`
	Invitation *Invitation `json:"invitation,omitempty"`
}

// Resend rejection reasons.
const (
	ResendReasonNotPending = "invitation is no longer pending"
)
