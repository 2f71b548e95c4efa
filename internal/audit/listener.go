package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/orgbase/orgbase/internal/events"
)

// Listener subscribes to the event bus and writes one audit entry per
// organization event, keyed by the event name.
type Listener struct {
	writer *Writer
}

func NewListener(writer *Writer) *Listener {
	return &Listener{writer: writer}
}

func (l *Listener) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.OrgCreated:
		return l.writer.Log(ctx, LogParams{
			OrgID:       &e.OrgID,
			ActorUserID: &e.OwnerUserID,
			Action:      e.Name(),
			Meta: map[string]any{
				"slug":     e.Slug,
				"personal": e.Personal,
			},
		})
	case events.OrgDeleted:
		return l.writer.Log(ctx, LogParams{
			OrgID:       &e.OrgID,
			ActorUserID: &e.ActorUserID,
			Action:      e.Name(),
			Meta:        map[string]any{},
		})
	case events.MemberAdded:
		meta := map[string]any{
			"target_user_id": e.UserID.String(),
			"role":           e.Role,
		}
		if e.InvitedBy != nil {
			meta["invited_by"] = e.InvitedBy.String()
		}
		return l.writer.Log(ctx, LogParams{
			OrgID:       &e.OrgID,
			ActorUserID: actorOrNil(e.ActorUserID),
			Action:      e.Name(),
			Meta:        meta,
		})
	case events.MemberRemoved:
		meta := map[string]any{
			"target_user_id": e.UserID.String(),
			"was_owner":      e.WasOwner,
		}
		if e.NewOwnerID != nil {
			meta["new_owner_id"] = e.NewOwnerID.String()
		}
		return l.writer.Log(ctx, LogParams{
			OrgID:       &e.OrgID,
			ActorUserID: actorOrNil(e.ActorUserID),
			Action:      e.Name(),
			Meta:        meta,
		})
	case events.OwnershipTransferred:
		meta := map[string]any{
			"new_owner_id": e.NewOwnerID.String(),
		}
		if e.PreviousOwnerID != nil {
			meta["previous_owner_id"] = e.PreviousOwnerID.String()
		}
		return l.writer.Log(ctx, LogParams{
			OrgID:       &e.OrgID,
			ActorUserID: actorOrNil(e.ActorUserID),
			Action:      e.Name(),
			Meta:        meta,
		})
	case events.InviteSent:
		return l.writer.Log(ctx, LogParams{
			OrgID:       &e.OrgID,
			ActorUserID: &e.InvitedBy,
			Action:      e.Name(),
			Meta: map[string]any{
				"invite_id": e.InviteID.String(),
				"email":     e.Email,
				"role":      e.Role,
			},
		})
	case events.InviteAccepted:
		return l.writer.Log(ctx, LogParams{
			OrgID:       &e.OrgID,
			ActorUserID: actorOrNil(e.ActorUserID),
			Action:      e.Name(),
			Meta: map[string]any{
				"invite_id": e.InviteID.String(),
				"email":     e.Email,
				"role":      e.Role,
			},
		})
	case events.InviteCancelled:
		return l.writer.Log(ctx, LogParams{
			OrgID:       &e.OrgID,
			ActorUserID: actorOrNil(e.ActorUserID),
			Action:      e.Name(),
			Meta: map[string]any{
				"invite_id": e.InviteID.String(),
				"email":     e.Email,
			},
		})
	case events.InviteResent:
		return l.writer.Log(ctx, LogParams{
			OrgID:       &e.OrgID,
			ActorUserID: actorOrNil(e.ActorUserID),
			Action:      e.Name(),
			Meta: map[string]any{
				"invite_id": e.InviteID.String(),
				"email":     e.Email,
			},
		})
	}
	return nil
}

func actorOrNil(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
