// Package access provides access-tier resolution and the command
// permission matrix. Tiers are derived per request from a static owner
// set plus stored role grants; they are never persisted directly.
package access

import (
	"context"
	"errors"
)

var (
	// ErrPermissionDenied indicates the caller's tier does not allow the
	// requested command. The message never reveals which tier would have
	// been required.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidRole indicates a role name outside the fixed grant set.
	ErrInvalidRole = errors.New("invalid role")
)

// Tier is an ordered access level.
type Tier int

// Access tiers, lowest to highest.
const (
	TierNone Tier = iota
	TierStaff
	TierManager
	TierTagManager
	TierOwners
)

// String returns the tier's grant-role spelling.
func (t Tier) String() string {
	switch t {
	case TierOwners:
		return RoleOwners
	case TierTagManager:
		return RoleTagManager
	case TierManager:
		return RoleManager
	case TierStaff:
		return RoleStaff
	default:
		return "none"
	}
}

// Grant role names, the fixed enumerated set stored in the grants table.
const (
	RoleOwners     = "owners"
	RoleTagManager = "tag_manager"
	RoleManager    = "manager"
	RoleStaff      = "staff"
)

// ValidRoles is the set of role names a grant may carry.
var ValidRoles = map[string]bool{
	RoleOwners:     true,
	RoleTagManager: true,
	RoleManager:    true,
	RoleStaff:      true,
}

// TierFromRoles resolves a set of granted role names to a tier.
// Multiple simultaneous grants are legal; precedence resolves them.
func TierFromRoles(roles []string) Tier {
	have := make(map[string]bool, len(roles))
	for _, r := range roles {
		have[r] = true
	}
	switch {
	case have[RoleOwners]:
		return TierOwners
	case have[RoleTagManager]:
		return TierTagManager
	case have[RoleManager]:
		return TierManager
	case have[RoleStaff]:
		return TierStaff
	default:
		return TierNone
	}
}

// Repository defines persistence for stored role grants.
type Repository interface {
	// Roles returns the set of role names granted to a user.
	Roles(ctx context.Context, userID int64) ([]string, error)

	// Grant adds a role grant with set semantics; duplicates are ignored.
	Grant(ctx context.Context, userID int64, role string) error

	// RevokeAll removes every grant for a user and reports how many
	// rows were deleted.
	RevokeAll(ctx context.Context, userID int64) (int64, error)
}
