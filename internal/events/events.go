// Package events provides the synchronous in-process domain event bus.
// Organization and invitation services publish events; cross-cutting
// listeners (audit log, webhook notifications) subscribe. Dispatch happens
// inline on the publishing goroutine, after the publishing transaction has
// committed; listener failures are logged and never propagate to the caller.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event is a domain event. Name returns the stable action identifier
// recorded in the audit log (e.g. "org.member_added").
type Event interface {
	Name() string
}

// Listener consumes domain events.
type Listener interface {
	Handle(ctx context.Context, event Event) error
}

// Bus dispatches events to subscribed listeners in subscription order.
type Bus struct {
	listeners []Listener
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(l Listener) {
	b.listeners = append(b.listeners, l)
}

// Publish delivers the event to every listener. Listener errors are logged
// and swallowed; the publishing operation has already committed.
func (b *Bus) Publish(ctx context.Context, event Event) {
	for _, l := range b.listeners {
		if err := l.Handle(ctx, event); err != nil {
			log.Error().
				Err(err).
				Str("event", event.Name()).
				Msg("Event listener failed")
		}
	}
}

// OrgCreated is emitted when an organization is created.
type OrgCreated struct {
	OrgID       uuid.UUID
	Slug        string
	OwnerUserID uuid.UUID
	Personal    bool
}

func (OrgCreated) Name() string { return "org.created" }

// OrgDeleted is emitted when an organization is soft-deleted because its
// last member was removed.
type OrgDeleted struct {
	OrgID       uuid.UUID
	ActorUserID uuid.UUID
}

func (OrgDeleted) Name() string { return "org.deleted" }

// MemberAdded is emitted when a user joins an organization.
type MemberAdded struct {
	OrgID       uuid.UUID
	UserID      uuid.UUID
	Role        string
	InvitedBy   *uuid.UUID
	ActorUserID uuid.UUID
}

func (MemberAdded) Name() string { return "org.member_added" }

// MemberRemoved is emitted when a user is removed from an organization.
type MemberRemoved struct {
	OrgID       uuid.UUID
	UserID      uuid.UUID
	ActorUserID uuid.UUID
	WasOwner    bool
	NewOwnerID  *uuid.UUID
}

func (MemberRemoved) Name() string { return "org.member_removed" }

// OwnershipTransferred is emitted when an organization's owner changes.
type OwnershipTransferred struct {
	OrgID           uuid.UUID
	PreviousOwnerID *uuid.UUID
	NewOwnerID      uuid.UUID
	ActorUserID     uuid.UUID
}

func (OwnershipTransferred) Name() string { return "org.ownership_transferred" }

// InviteSent is emitted when an invitation is created.
type InviteSent struct {
	InviteID     uuid.UUID
	OrgID        uuid.UUID
	OrgName      string
	Email        string
	Role         string
	InvitedBy    uuid.UUID
	ExpiresAt    time.Time
	ExistingUser bool
}

func (InviteSent) Name() string { return "org.invite_sent" }

// InviteAccepted is emitted when an invitation is accepted.
type InviteAccepted struct {
	InviteID    uuid.UUID
	OrgID       uuid.UUID
	Email       string
	Role        string
	ActorUserID uuid.UUID
}

func (InviteAccepted) Name() string { return "org.invite_accepted" }

// InviteCancelled is emitted when a pending invitation is cancelled.
type InviteCancelled struct {
	InviteID    uuid.UUID
	OrgID       uuid.UUID
	Email       string
	ActorUserID uuid.UUID
}

func (InviteCancelled) Name() string { return "org.invite_cancelled" }

// InviteResent is emitted when a pending invitation's token is regenerated.
type InviteResent struct {
	InviteID     uuid.UUID
	OrgID        uuid.UUID
	OrgName      string
	Email        string
	Role         string
	ActorUserID  uuid.UUID
	ExpiresAt    time.Time
	ExistingUser bool
}

func (InviteResent) Name() string { return "org.invite_resent" }
