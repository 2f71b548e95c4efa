// Package retention implements the scheduled housekeeping job: purging
// long-dead pending invitations and trimming the audit log. Expiry itself
// is a read-time predicate; this job only removes rows that have been
// expired for longer than the purge window.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PurgeExpiredInvitations deletes pending invitations whose expiry passed
// more than purgeDays ago. Accepted and cancelled invitations are kept as
// history. Idempotent.
//
// Returns the number of rows deleted.
func PurgeExpiredInvitations(ctx context.Context, pool *pgxpool.Pool, purgeDays int) (int64, error) {
	tag, err := pool.Exec(ctx, `
		DELETE FROM org_invitations
		WHERE status = 'pending'
		  AND expires_at < NOW() - INTERVAL '1 day' * $1
	`, purgeDays)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired invitations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// TrimAuditLog deletes audit entries older than retentionDays. Idempotent.
//
// Returns the number of rows deleted.
func TrimAuditLog(ctx context.Context, pool *pgxpool.Pool, retentionDays int) (int64, error) {
	tag, err := pool.Exec(ctx, `
		DELETE FROM audit_log
		WHERE created_at < NOW() - INTERVAL '1 day' * $1
	`, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to trim audit log: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RunRetentionJob executes both retention operations and logs the results.
// This is the entry point called by the cron scheduler.
func RunRetentionJob(ctx context.Context, pool *pgxpool.Pool, invitePurgeDays, auditRetentionDays int) error {
	log.Info().
		Int("invite_purge_days", invitePurgeDays).
		Int("audit_retention_days", auditRetentionDays).
		Msg("Starting retention job")

	startTime := time.Now()

	invitesPurged, err := PurgeExpiredInvitations(ctx, pool, invitePurgeDays)
	if err != nil {
		log.Error().Err(err).Msg("Failed to purge expired invitations")
		return fmt.Errorf("invitation purge failed: %w", err)
	}

	auditTrimmed, err := TrimAuditLog(ctx, pool, auditRetentionDays)
	if err != nil {
		log.Error().Err(err).Msg("Failed to trim audit log")
		return fmt.Errorf("audit log trim failed: %w", err)
	}

	log.Info().
		Int64("invitations_purged", invitesPurged).
		Int64("audit_entries_deleted", auditTrimmed).
		Dur("duration", time.Since(startTime)).
		Msg("Retention job completed")

	return nil
}
