package telemetry

import (
	"context"

	"github.com/orgbase/orgbase/internal/events"
)

// Listener increments domain counters from the event bus.
type Listener struct{}

func NewListener() *Listener {
	return &Listener{}
}

func (Listener) Handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.OrgCreated:
		kind := "standard"
		if e.Personal {
			kind = "personal"
		}
		OrgsCreatedTotal.WithLabelValues(kind).Inc()
	case events.InviteSent:
		InvitesTotal.WithLabelValues("sent").Inc()
	case events.InviteAccepted:
		InvitesTotal.WithLabelValues("accepted").Inc()
	case events.InviteCancelled:
		InvitesTotal.WithLabelValues("cancelled").Inc()
	case events.InviteResent:
		InvitesTotal.WithLabelValues("resent").Inc()
	}
	return nil
}
