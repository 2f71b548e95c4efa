// Package notify delivers invitation notifications to an outbound webhook.
// Delivery is best-effort: failures are logged at WARN and never surface to
// the flows that triggered them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// InviteMessage contains the fields of an invitation notification.
type InviteMessage struct {
	OrgName      string    `json:"org_name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	AcceptURL    string    `json:"accept_url"`
	ExpiresAt    time.Time `json:"expires_at"`
	ExistingUser bool      `json:"existing_user"`
	Resend       bool      `json:"resend"`
}

// Client posts notifications to a webhook URL. A client with an empty URL
// is disabled and drops every message silently.
type Client struct {
	webhookURL string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a webhook client. webhookURL may be empty to disable
// notifications.
func NewClient(webhookURL string, timeoutMS int) *Client {
	timeout := time.Duration(timeoutMS) * time.Millisecond
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

// Enabled reports whether a webhook URL is configured.
func (c *Client) Enabled() bool {
	return c.webhookURL != ""
}

// PostInvite sends an invitation notification. Never returns an error; all
// failures are logged at WARN so invitation flows are unaffected.
func (c *Client) PostInvite(ctx context.Context, msg InviteMessage) {
	if !c.Enabled() {
		return
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		log.Warn().
			Err(err).
			Str("email", msg.Email).
			Msg("Failed to marshal invite notification")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		log.Warn().
			Err(err).
			Msg("Failed to create webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			log.Warn().
				Err(err).
				Dur("timeout", c.timeout).
				Str("email", msg.Email).
				Msg("Invite notification timed out")
		} else {
			log.Warn().
				Err(err).
				Str("email", msg.Email).
				Msg("Failed to send invite notification")
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Warn().
			Int("status_code", resp.StatusCode).
			Str("email", msg.Email).
			Msg("Webhook returned error status")
		return
	}

	log.Info().
		Str("org", msg.OrgName).
		Str("email", msg.Email).
		Bool("resend", msg.Resend).
		Msg("Invite notification sent")
}
