// Package app provides the application services behind the bot's
// commands: credit ledger operations, access-tier resolution and
// gating, the role catalog cache, and rank synchronization against the
// external group service.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/timedealhq/creditbot/pkg/domain/access"
	"github.com/timedealhq/creditbot/pkg/logger"
)

// AccessService resolves caller tiers and gates commands. The owner id
// set is an immutable configuration value injected at construction.
type AccessService struct {
	owners map[int64]struct{}
	repo   access.Repository
	logger *logger.Logger
}

// NewAccessService creates a new AccessService.
func NewAccessService(ownerIDs []int64, repo access.Repository, log *logger.Logger) *AccessService {
	owners := make(map[int64]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = struct{}{}
	}
	return &AccessService{
		owners: owners,
		repo:   repo,
		logger: log.With("service", "access"),
	}
}

// ResolveTier maps a caller to an access tier. Static owners
// short-circuit without a store lookup; otherwise the highest-ranked
// stored grant wins.
func (s *AccessService) ResolveTier(ctx context.Context, userID int64) (access.Tier, error) {
	if _, ok := s.owners[userID]; ok {
		return access.TierOwners, nil
	}

	roles, err := s.repo.Roles(ctx, userID)
	if err != nil {
		return access.TierNone, fmt.Errorf("resolve tier: %w", err)
	}
	return access.TierFromRoles(roles), nil
}

// Authorize gates a command behind the caller's tier. It must run
// before any side-effecting operation. A denial carries no hint of
// which tier would have been required.
func (s *AccessService) Authorize(ctx context.Context, userID int64, cmd access.Command) error {
	tier, err := s.ResolveTier(ctx, userID)
	if err != nil {
		return err
	}
	if !access.CanUse(tier, cmd) {
		s.logger.Debug("command denied", "user_id", userID, "command", string(cmd))
		return access.ErrPermissionDenied
	}
	return nil
}

// Grant adds a stored role grant with set semantics.
func (s *AccessService) Grant(ctx context.Context, userID int64, role string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if !access.ValidRoles[role] {
		return access.ErrInvalidRole
	}

	if err := s.repo.Grant(ctx, userID, role); err != nil {
		return err
	}
	s.logger.Info("role granted", "user_id", userID, "role", role)
	return nil
}

// RevokeAll removes every stored grant for a user and reports how many
// were removed.
func (s *AccessService) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repo.RevokeAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("roles revoked", "user_id", userID, "removed", n)
	return n, nil
}
