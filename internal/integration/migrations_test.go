package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntegration_MigrationsApplyToFreshPostgres(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)

	for _, table := range []string{"users", "organizations", "org_memberships", "org_invitations", "roles", "user_roles", "api_keys", "audit_log"} {
		var count int
		err := pool.QueryRow(context.Background(), `
			SELECT COUNT(*)
			FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		`, table).Scan(&count)
		require.NoError(t, err)
		require.Equal(t, 1, count, "missing table %s", table)
	}

	// Global roles are seeded by the migrations.
	var roleCount int
	err := pool.QueryRow(context.Background(), `
		SELECT COUNT(*) FROM roles WHERE name IN ('super-admin', 'user')
	`).Scan(&roleCount)
	require.NoError(t, err)
	require.Equal(t, 2, roleCount)
}
