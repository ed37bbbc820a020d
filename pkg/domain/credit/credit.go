// Package credit provides the domain model for per-user credit balances.
// Balances are non-negative integers; a missing row is equivalent to a
// balance of zero.
package credit

import (
	"context"
	"errors"
)

// ErrInvalidAmount indicates a caller-supplied amount outside the
// operation's domain (negative for set, non-positive for add/subtract).
var ErrInvalidAmount = errors.New("invalid credit amount")

// Balance is a user's current credit balance.
type Balance struct {
	UserID  int64
	Credits int64
}

// Repository defines persistence for credit balances.
//
// Add and Subtract must be atomic read-modify-write operations at the
// storage layer: concurrent calls for the same user must serialize there
// and never lose an update or produce a negative balance.
type Repository interface {
	// Get returns the balance for a user, 0 when no row exists.
	Get(ctx context.Context, userID int64) (int64, error)

	// Set upserts the exact balance and returns the new value.
	Set(ctx context.Context, userID, amount int64) (int64, error)

	// Add atomically increments the balance, creating the row at delta
	// when absent, and returns the new value.
	Add(ctx context.Context, userID, delta int64) (int64, error)

	// Subtract atomically decrements the balance, clamping at zero.
	// The clamp is computed in the same atomic step as the read; a row
	// is created at 0 when absent. Returns the new value.
	Subtract(ctx context.Context, userID, delta int64) (int64, error)

	// Leaderboard returns all balances with credits > 0, ordered by
	// credits descending, ties broken by user id ascending.
	Leaderboard(ctx context.Context) ([]Balance, error)

	// WipeAll removes every balance row.
	WipeAll(ctx context.Context) error
}
