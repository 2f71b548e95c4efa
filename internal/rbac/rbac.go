// Package rbac stores and queries role assignments scoped by team.
// A team ID is an organization ID; the zero UUID is the sentinel for global
// roles. Every operation takes its team ID explicitly; there is no
// process-global "current team" slot to switch and restore.
package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// GlobalTeam is the team ID under which global (non-organization) roles live.
var GlobalTeam = uuid.Nil

var (
	// ErrRoleNotFound is returned when a role does not exist for the team
	ErrRoleNotFound = errors.New("role not found")
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so role operations
// can participate in a caller's transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EnsureTeamRoles creates the named roles for the team if they do not exist.
// Idempotent; safe to call on every membership mutation.
func EnsureTeamRoles(ctx context.Context, q Querier, teamID uuid.UUID, names ...string) error {
	for _, name := range names {
		_, err := q.Exec(ctx, `
			INSERT INTO roles (name, team_id)
			VALUES ($1, $2)
			ON CONFLICT (name, team_id) DO NOTHING
		`, name, teamID)
		if err != nil {
			return fmt.Errorf("failed to ensure role %q: %w", name, err)
		}
	}
	return nil
}

// AssignRole grants the user the named role within the team. Assigning an
// already-held role is a no-op.
func AssignRole(ctx context.Context, q Querier, userID uuid.UUID, name string, teamID uuid.UUID) error {
	tag, err := q.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = $2 AND team_id = $3
		ON CONFLICT (user_id, role_id) DO NOTHING
	`, userID, name, teamID)
	if err != nil {
		return fmt.Errorf("failed to assign role %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		// Either already assigned or the role row is missing; disambiguate.
		var exists bool
		err := q.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1 AND team_id = $2)
		`, name, teamID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check role existence: %w", err)
		}
		if !exists {
			return ErrRoleNotFound
		}
	}
	return nil
}

// RemoveTeamRoles deletes all of the user's role assignments scoped to the
// team. Roles held in other teams and globally are untouched.
func RemoveTeamRoles(ctx context.Context, q Querier, userID, teamID uuid.UUID) error {
	_, err := q.Exec(ctx, `
		DELETE FROM user_roles ur
		USING roles r
		WHERE ur.role_id = r.id
		  AND ur.user_id = $1
		  AND r.team_id = $2
	`, userID, teamID)
	if err != nil {
		return fmt.Errorf("failed to remove team roles: %w", err)
	}
	return nil
}

// HasRole reports whether the user holds the named role within the team.
func HasRole(ctx context.Context, q Querier, userID uuid.UUID, name string, teamID uuid.UUID) (bool, error) {
	var has bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM user_roles ur
			INNER JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = $1 AND r.name = $2 AND r.team_id = $3
		)
	`, userID, name, teamID).Scan(&has)
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return has, nil
}

// RoleNames returns the names of all roles the user holds within the team,
// ordered by name.
func RoleNames(ctx context.Context, q Querier, userID, teamID uuid.UUID) ([]string, error) {
	rows, err := q.Query(ctx, `
		SELECT r.name
		FROM user_roles ur
		INNER JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1 AND r.team_id = $2
		ORDER BY r.name
	`, userID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roles: %w", err)
	}
	return names, nil
}
