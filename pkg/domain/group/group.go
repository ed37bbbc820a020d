// Package group provides the domain model for the external
// group-management service: its role catalog, membership records, and
// the client interface the core consumes. Roles and memberships are
// owned by the external service; this process holds read-through copies
// only.
package group

import (
	"context"
	"errors"
	"fmt"
)

// GuestRoleName is the service's built-in sentinel role. It is never an
// assignable target, regardless of its rank.
const GuestRoleName = "Guest"

var (
	// ErrNotInGroup indicates the target user holds no membership in the
	// active group.
	ErrNotInGroup = errors.New("user is not in the group")

	// ErrNoAssignableRole indicates the role catalog has no candidate
	// below which a member can be reset.
	ErrNoAssignableRole = errors.New("no assignable role in the group")

	// ErrUpstreamUnavailable indicates the role catalog could not be
	// fetched from the external service.
	ErrUpstreamUnavailable = errors.New("group service unavailable")
)

// Role is an entry in the external group's role catalog.
type Role struct {
	ID   int64
	Name string
	Rank int
}

// Assignable reports whether the role is a candidate for rank
// assignment. Rank 0 and the guest sentinel are excluded.
func (r Role) Assignable() bool {
	return r.Rank > 0 && r.Name != GuestRoleName
}

// Membership is a user's membership record in the external group.
// Memberships are always fetched fresh, never persisted locally.
type Membership struct {
	ID     string
	UserID int64
	RoleID int64
}

// MembershipPage is one page of a membership listing.
type MembershipPage struct {
	Memberships   []Membership
	NextPageToken string
}

// Client is the interface to the external group-management service.
// All calls carry a static credential; failures surface status code and
// body via *UpstreamError.
type Client interface {
	// ListRoles fetches the group's full role catalog.
	ListRoles(ctx context.Context) ([]Role, error)

	// FindMembership looks up a user's membership via a filtered query.
	// Returns (nil, nil) when the user has no membership.
	FindMembership(ctx context.Context, userID int64) (*Membership, error)

	// ListMemberships fetches one page of the group's membership
	// listing. An empty pageToken starts at page one; the returned
	// NextPageToken is empty on the final page.
	ListMemberships(ctx context.Context, pageToken string, pageSize int) (*MembershipPage, error)

	// UpdateMembershipRole reassigns a membership to a role. Single
	// attempt, no retry.
	UpdateMembershipRole(ctx context.Context, membershipID string, roleID int64) error

	// LookupUserID resolves a display name to a user id.
	LookupUserID(ctx context.Context, username string) (int64, error)
}

// UpstreamError carries the status and diagnostic body of a failed call
// to the external group service.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("group service %s failed: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("group service %s failed: status %d", e.Op, e.StatusCode)
}
