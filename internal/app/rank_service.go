package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/timedealhq/creditbot/internal/metrics"
	"github.com/timedealhq/creditbot/pkg/audit"
	"github.com/timedealhq/creditbot/pkg/domain/group"
	"github.com/timedealhq/creditbot/pkg/logger"
)

// ErrUnresolvedIdentifier indicates a target identifier that could not
// be resolved to an external user id. Lookup failures degrade to this
// same result: both conditions call for the same correction, a valid
// identifier from the caller.
var ErrUnresolvedIdentifier = errors.New("could not resolve user identifier")

// SweepStore persists bulk sweep progress so the in-progress state is
// visible while a sweep runs.
type SweepStore interface {
	Save(ctx context.Context, report *group.SweepReport) error
	Get(ctx context.Context, runID string) (*group.SweepReport, error)
	Latest(ctx context.Context) (*group.SweepReport, error)
}

// RankChange is the result of a single rank assignment.
type RankChange struct {
	UserID       int64
	MembershipID string
	Previous     group.Role
	PreviousOK   bool
	New          group.Role
	NewlyRanked  bool
}

// AuditLine renders the change for the audit log. Wording depends on
// whether the member previously held the lowest assignable role.
func (c *RankChange) AuditLine() string {
	if c.NewlyRanked {
		return fmt.Sprintf("user %d newly ranked to %s", c.UserID, c.New.Name)
	}
	prev := c.Previous.Name
	if !c.PreviousOK {
		prev = "unknown"
	}
	return fmt.Sprintf("user %d rank changed from %s to %s", c.UserID, prev, c.New.Name)
}

// MemberRank labels a member's current role.
type MemberRank struct {
	UserID       int64
	MembershipID string
	Role         group.Role
	RoleKnown    bool
}

// RankService locates memberships and synchronizes ranks in the
// external group. Single role changes are one external call with no
// retry; the bulk sweep continues past per-item failures and only a
// page fetch aborts it.
type RankService struct {
	client group.Client
	cache  *RoleCache
	sweeps SweepStore
	audit  audit.Sink
	logger *logger.Logger
}

// NewRankService creates a new RankService.
func NewRankService(client group.Client, cache *RoleCache, sweeps SweepStore, sink audit.Sink, log *logger.Logger) *RankService {
	return &RankService{
		client: client,
		cache:  cache,
		sweeps: sweeps,
		audit:  sink,
		logger: log.With("service", "rank"),
	}
}

// ResolveExternalID maps a raw identifier to an external user id. A
// purely numeric identifier is parsed directly; anything else goes
// through the service's username lookup. Not-found and lookup failures
// both come back as (0, false).
func (s *RankService) ResolveExternalID(ctx context.Context, raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	if isNumeric(raw) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	}

	id, err := s.client.LookupUserID(ctx, raw)
	if err != nil {
		s.logger.Debug("username lookup failed", "username", raw, "error", err)
		return 0, false
	}
	return id, true
}

// FindMembership locates a user's membership record. Transport and
// status failures surface as errors; an absent membership is (nil, nil).
func (s *RankService) FindMembership(ctx context.Context, userID int64) (*group.Membership, error) {
	return s.client.FindMembership(ctx, userID)
}

// GetRank returns a member's current role, labeled from the role cache.
func (s *RankService) GetRank(ctx context.Context, identifier string) (*MemberRank, error) {
	if err := s.cache.Load(ctx, false); err != nil {
		return nil, err
	}

	userID, ok := s.ResolveExternalID(ctx, identifier)
	if !ok {
		return nil, ErrUnresolvedIdentifier
	}

	m, err := s.client.FindMembership(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, group.ErrNotInGroup
	}

	role, known := s.cache.Lookup(m.RoleID)
	return &MemberRank{
		UserID:       userID,
		MembershipID: m.ID,
		Role:         role,
		RoleKnown:    known,
	}, nil
}

// ListRoles returns the cached role catalog, loading it on first use.
func (s *RankService) ListRoles(ctx context.Context, force bool) ([]group.Role, error) {
	if err := s.cache.Load(ctx, force); err != nil {
		return nil, err
	}
	return s.cache.Roles(), nil
}

// AssignRank resolves the identifier, locates the membership, and
// reassigns it to the given role. Re-ranking a member who already holds
// a non-lowest role is allowed and reported as a change.
func (s *RankService) AssignRank(ctx context.Context, identifier string, roleID int64) (*RankChange, error) {
	if err := s.cache.Load(ctx, false); err != nil {
		return nil, err
	}

	userID, ok := s.ResolveExternalID(ctx, identifier)
	if !ok {
		return nil, ErrUnresolvedIdentifier
	}

	return s.assign(ctx, userID, roleID)
}

// ClearRank resets the member to the current lowest assignable role.
func (s *RankService) ClearRank(ctx context.Context, identifier string) (*RankChange, error) {
	if err := s.cache.Load(ctx, false); err != nil {
		return nil, err
	}

	lowest, ok := s.cache.LowestAssignable()
	if !ok {
		return nil, group.ErrNoAssignableRole
	}

	userID, resolved := s.ResolveExternalID(ctx, identifier)
	if !resolved {
		return nil, ErrUnresolvedIdentifier
	}

	return s.assign(ctx, userID, lowest.ID)
}

func (s *RankService) assign(ctx context.Context, userID, roleID int64) (*RankChange, error) {
	m, err := s.client.FindMembership(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, group.ErrNotInGroup
	}

	prior, priorOK := s.cache.Lookup(m.RoleID)

	if err := s.client.UpdateMembershipRole(ctx, m.ID, roleID); err != nil {
		return nil, err
	}

	newRole, newOK := s.cache.Lookup(roleID)
	if !newOK {
		newRole = group.Role{ID: roleID, Name: "unknown"}
	}

	lowest, hasLowest := s.cache.LowestAssignable()
	change := &RankChange{
		UserID:       userID,
		MembershipID: m.ID,
		Previous:     prior,
		PreviousOK:   priorOK,
		New:          newRole,
		NewlyRanked:  priorOK && hasLowest && prior.ID == lowest.ID,
	}

	s.logger.Info("rank assigned",
		"user_id", userID,
		"membership_id", m.ID,
		"role_id", roleID,
		"newly_ranked", change.NewlyRanked,
	)
	s.audit.Record(ctx, change.AuditLine())

	return change, nil
}

// BulkResetAll pages through every membership and reconciles each to
// the target role. Members already at the target are skipped and not
// counted as changed. A per-item failure increments failed and the
// sweep continues; a page fetch failure aborts the sweep with the
// counts accumulated so far. Progress is published after every page.
func (s *RankService) BulkResetAll(ctx context.Context, targetRoleID int64, runID string) (*group.SweepReport, error) {
	report := &group.SweepReport{
		RunID:        runID,
		TargetRoleID: targetRoleID,
		Status:       group.SweepRunning,
		StartedAt:    time.Now().UTC(),
	}
	s.publish(ctx, report)

	pageToken := ""
	for {
		page, err := s.client.ListMemberships(ctx, pageToken, 0)
		if err != nil {
			now := time.Now().UTC()
			report.Status = group.SweepAborted
			report.AbortReason = err.Error()
			report.FinishedAt = &now
			s.publish(ctx, report)
			metrics.SweepsTotal.WithLabelValues(string(group.SweepAborted)).Inc()
			s.logger.Error("rank sweep aborted",
				"run_id", runID,
				"scanned", report.Scanned,
				"changed", report.Changed,
				"failed", report.Failed,
				"error", err,
			)
			return report, err
		}

		for _, m := range page.Memberships {
			report.Scanned++
			if m.RoleID == targetRoleID {
				continue
			}
			if err := s.client.UpdateMembershipRole(ctx, m.ID, targetRoleID); err != nil {
				report.Failed++
				s.logger.Warn("rank reset failed for member",
					"run_id", runID,
					"membership_id", m.ID,
					"error", err,
				)
				continue
			}
			report.Changed++
		}

		s.publish(ctx, report)

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	now := time.Now().UTC()
	report.Status = group.SweepCompleted
	report.FinishedAt = &now
	s.publish(ctx, report)
	metrics.SweepsTotal.WithLabelValues(string(group.SweepCompleted)).Inc()

	s.logger.Info("rank sweep completed",
		"run_id", runID,
		"scanned", report.Scanned,
		"changed", report.Changed,
		"failed", report.Failed,
	)
	s.audit.Record(ctx, fmt.Sprintf("rank sweep %s completed: scanned %d, changed %d, failed %d",
		runID, report.Scanned, report.Changed, report.Failed))

	return report, nil
}

// SweepStatus returns the most recent sweep report, or (nil, nil) when
// no sweep has run.
func (s *RankService) SweepStatus(ctx context.Context) (*group.SweepReport, error) {
	return s.sweeps.Latest(ctx)
}

// LowestAssignable exposes the cache's current reset target.
func (s *RankService) LowestAssignable(ctx context.Context) (group.Role, error) {
	if err := s.cache.Load(ctx, false); err != nil {
		return group.Role{}, err
	}
	lowest, ok := s.cache.LowestAssignable()
	if !ok {
		return group.Role{}, group.ErrNoAssignableRole
	}
	return lowest, nil
}

// publish saves progress and updates the sweep gauges. Persistence
// failures are logged and do not interrupt the sweep.
func (s *RankService) publish(ctx context.Context, report *group.SweepReport) {
	metrics.SweepScanned.Set(float64(report.Scanned))
	metrics.SweepChanged.Set(float64(report.Changed))
	metrics.SweepFailed.Set(float64(report.Failed))

	if err := s.sweeps.Save(ctx, report); err != nil {
		s.logger.Warn("failed to publish sweep progress", "run_id", report.RunID, "error", err)
	}
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
