package postgres

import (
	"context"
	"fmt"
)

// GrantRepository implements access.Repository using PostgreSQL.
type GrantRepository struct {
	db *DB
}

// NewGrantRepository creates a new GrantRepository.
func NewGrantRepository(db *DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// Roles returns the set of role names granted to a user.
func (r *GrantRepository) Roles(ctx context.Context, userID int64) ([]string, error) {
	query := `SELECT role FROM whitelist_roles WHERE user_id = $1`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query role grants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan role grant: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read role grants: %w", err)
	}
	return roles, nil
}

// Grant adds a role grant, ignoring duplicates.
func (r *GrantRepository) Grant(ctx context.Context, userID int64, role string) error {
	query := `
		INSERT INTO whitelist_roles (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, userID, role); err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}
	return nil
}

// RevokeAll removes every grant for a user.
func (r *GrantRepository) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM whitelist_roles WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke roles: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count revoked roles: %w", err)
	}
	return n, nil
}
