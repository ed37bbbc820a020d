package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/timedealhq/creditbot/pkg/domain/credit"
)

// CreditRepository implements credit.Repository using PostgreSQL.
// Add and Subtract are single upsert statements so the read-modify-write
// serializes at the row level; Subtract clamps server-side with GREATEST.
type CreditRepository struct {
	db *DB
}

// NewCreditRepository creates a new CreditRepository.
func NewCreditRepository(db *DB) *CreditRepository {
	return &CreditRepository{db: db}
}

// Get returns the balance for a user, 0 when no row exists.
func (r *CreditRepository) Get(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT credits FROM credits WHERE user_id = $1`

	var credits int64
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&credits)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get credits: %w", err)
	}
	return credits, nil
}

// Set upserts the exact balance and returns the new value.
func (r *CreditRepository) Set(ctx context.Context, userID, amount int64) (int64, error) {
	query := `
		INSERT INTO credits (user_id, credits)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET credits = EXCLUDED.credits
		RETURNING credits
	`

	var credits int64
	if err := r.db.QueryRowContext(ctx, query, userID, amount).Scan(&credits); err != nil {
		return 0, fmt.Errorf("failed to set credits: %w", err)
	}
	return credits, nil
}

// Add atomically increments the balance, creating the row when absent.
func (r *CreditRepository) Add(ctx context.Context, userID, delta int64) (int64, error) {
	query := `
		INSERT INTO credits (user_id, credits)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET credits = credits.credits + $2
		RETURNING credits
	`

	var credits int64
	if err := r.db.QueryRowContext(ctx, query, userID, delta).Scan(&credits); err != nil {
		return 0, fmt.Errorf("failed to add credits: %w", err)
	}
	return credits, nil
}

// Subtract atomically decrements the balance, clamping at zero in the
// same statement. A missing row is created at 0.
func (r *CreditRepository) Subtract(ctx context.Context, userID, delta int64) (int64, error) {
	query := `
		INSERT INTO credits (user_id, credits)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO UPDATE
		SET credits = GREATEST(credits.credits - $2, 0)
		RETURNING credits
	`

	var credits int64
	if err := r.db.QueryRowContext(ctx, query, userID, delta).Scan(&credits); err != nil {
		return 0, fmt.Errorf("failed to subtract credits: %w", err)
	}
	return credits, nil
}

// Leaderboard returns all positive balances in display order.
func (r *CreditRepository) Leaderboard(ctx context.Context) ([]credit.Balance, error) {
	query := `
		SELECT user_id, credits
		FROM credits
		WHERE credits > 0
		ORDER BY credits DESC, user_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []credit.Balance
	for rows.Next() {
		var b credit.Balance
		if err := rows.Scan(&b.UserID, &b.Credits); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leaderboard rows: %w", err)
	}
	return out, nil
}

// WipeAll removes every balance row.
func (r *CreditRepository) WipeAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credits`); err != nil {
		return fmt.Errorf("failed to wipe credits: %w", err)
	}
	return nil
}
