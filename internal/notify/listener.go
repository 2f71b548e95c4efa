package notify

import (
	"context"
	"fmt"

	"github.com/orgbase/orgbase/internal/events"
)

// Listener subscribes to the event bus and forwards invitation events to
// the webhook client.
type Listener struct {
	client  *Client
	baseURL string
}

// NewListener wires the webhook client to the event bus. baseURL is the
// public base URL used to build invitation accept links.
func NewListener(client *Client, baseURL string) *Listener {
	return &Listener{client: client, baseURL: baseURL}
}

func (l *Listener) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.InviteSent:
		l.client.PostInvite(ctx, InviteMessage{
			OrgName:      e.OrgName,
			Email:        e.Email,
			Role:         e.Role,
			AcceptURL:    l.acceptURL(),
			ExpiresAt:    e.ExpiresAt,
			ExistingUser: e.ExistingUser,
		})
	case events.InviteResent:
		l.client.PostInvite(ctx, InviteMessage{
			OrgName:      e.OrgName,
			Email:        e.Email,
			Role:         e.Role,
			AcceptURL:    l.acceptURL(),
			ExpiresAt:    e.ExpiresAt,
			ExistingUser: e.ExistingUser,
			Resend:       true,
		})
	}
	return nil
}

// acceptURL is where invited users redeem their token. The token itself is
// delivered out of band by the invite creator, never through the webhook.
func (l *Listener) acceptURL() string {
	return fmt.Sprintf("%s/invitations/accept", l.baseURL)
}
