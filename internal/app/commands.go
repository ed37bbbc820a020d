package app

import (
	"context"
	"errors"
	"time"

	"github.com/timedealhq/creditbot/internal/metrics"
	"github.com/timedealhq/creditbot/pkg/domain/access"
	"github.com/timedealhq/creditbot/pkg/domain/credit"
	"github.com/timedealhq/creditbot/pkg/domain/group"
	"github.com/timedealhq/creditbot/pkg/logger"
	"github.com/timedealhq/creditbot/pkg/validator"
)

// ErrConfirmationRequired indicates a destructive command invoked
// without its confirmation flag.
var ErrConfirmationRequired = errors.New("confirmation required")

// SweepLauncher starts a bulk rank reset in the background and returns
// its run id.
type SweepLauncher interface {
	EnqueueRankReset(ctx context.Context, targetRoleID int64) (string, error)
}

// CommandService is the boundary the command layer calls: one method
// per command, each gated by the access matrix before any side effect.
// The command layer owns message rendering and visibility policy; this
// layer returns plain results and errors.
type CommandService struct {
	access   *AccessService
	credits  *CreditService
	ranks    *RankService
	sweeps   SweepLauncher
	validate *validator.Validator
	logger   *logger.Logger
}

// NewCommandService creates a new CommandService.
func NewCommandService(
	accessSvc *AccessService,
	creditSvc *CreditService,
	rankSvc *RankService,
	sweeps SweepLauncher,
	v *validator.Validator,
	log *logger.Logger,
) *CommandService {
	return &CommandService{
		access:   accessSvc,
		credits:  creditSvc,
		ranks:    rankSvc,
		sweeps:   sweeps,
		validate: v,
		logger:   log.With("service", "commands"),
	}
}

// run applies the permission gate, executes fn, and records metrics.
func (s *CommandService) run(ctx context.Context, callerID int64, cmd access.Command, fn func() error) error {
	start := time.Now()
	name := string(cmd)

	if err := s.access.Authorize(ctx, callerID, cmd); err != nil {
		status := "error"
		if errors.Is(err, access.ErrPermissionDenied) {
			status = "denied"
		}
		metrics.CommandsTotal.WithLabelValues(name, status).Inc()
		return err
	}

	err := fn()
	metrics.CommandDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.CommandsTotal.WithLabelValues(name, "ok").Inc()
	case errors.Is(err, credit.ErrInvalidAmount),
		errors.Is(err, access.ErrInvalidRole),
		errors.Is(err, ErrConfirmationRequired):
		metrics.CommandsTotal.WithLabelValues(name, "invalid").Inc()
	default:
		metrics.CommandsTotal.WithLabelValues(name, "error").Inc()
	}
	return err
}

// CreditsInput asks for a user's balance. A zero TargetID defaults to
// the caller.
type CreditsInput struct {
	CallerID int64 `validate:"required"`
	TargetID int64
}

// Credits returns the target's balance.
func (s *CommandService) Credits(ctx context.Context, in CreditsInput) (int64, error) {
	if err := s.validate.Validate(in); err != nil {
		return 0, err
	}

	target := in.TargetID
	if target == 0 {
		target = in.CallerID
	}

	var out int64
	err := s.run(ctx, in.CallerID, access.CommandCredits, func() error {
		var err error
		out, err = s.credits.Get(ctx, target)
		return err
	})
	return out, err
}

// CreditsLeaderboard returns all positive balances, best first.
func (s *CommandService) CreditsLeaderboard(ctx context.Context, callerID int64) ([]credit.Balance, error) {
	var out []credit.Balance
	err := s.run(ctx, callerID, access.CommandCreditsLeaderboard, func() error {
		var err error
		out, err = s.credits.Leaderboard(ctx)
		return err
	})
	return out, err
}

// AdjustCreditsInput adds to or subtracts from a balance. A zero
// TargetID defaults to the caller.
type AdjustCreditsInput struct {
	CallerID int64 `validate:"required"`
	TargetID int64
	Amount   int64 `validate:"required,gt=0"`
}

// AddCredits adds credits to the target's balance.
func (s *CommandService) AddCredits(ctx context.Context, in AdjustCreditsInput) (int64, error) {
	if err := s.validate.Validate(in); err != nil {
		return 0, err
	}

	target := in.TargetID
	if target == 0 {
		target = in.CallerID
	}

	var out int64
	err := s.run(ctx, in.CallerID, access.CommandAddCredits, func() error {
		var err error
		out, err = s.credits.Add(ctx, target, in.Amount)
		return err
	})
	return out, err
}

// SubCredits subtracts credits from the target's balance, clamping at
// zero.
func (s *CommandService) SubCredits(ctx context.Context, in AdjustCreditsInput) (int64, error) {
	if err := s.validate.Validate(in); err != nil {
		return 0, err
	}

	target := in.TargetID
	if target == 0 {
		target = in.CallerID
	}

	var out int64
	err := s.run(ctx, in.CallerID, access.CommandSubCredits, func() error {
		var err error
		out, err = s.credits.Subtract(ctx, target, in.Amount)
		return err
	})
	return out, err
}

// SetCreditsInput sets an exact balance.
type SetCreditsInput struct {
	CallerID int64 `validate:"required"`
	TargetID int64 `validate:"required"`
	Amount   int64 `validate:"gte=0"`
}

// SetCredits sets the target's balance to an exact amount.
func (s *CommandService) SetCredits(ctx context.Context, in SetCreditsInput) (int64, error) {
	if err := s.validate.Validate(in); err != nil {
		return 0, err
	}

	var out int64
	err := s.run(ctx, in.CallerID, access.CommandSetCredits, func() error {
		var err error
		out, err = s.credits.Set(ctx, in.TargetID, in.Amount)
		return err
	})
	return out, err
}

// WipeCredits removes every balance. Requires the confirmation flag.
func (s *CommandService) WipeCredits(ctx context.Context, callerID int64, confirm bool) error {
	return s.run(ctx, callerID, access.CommandWipeCredits, func() error {
		if !confirm {
			return ErrConfirmationRequired
		}
		return s.credits.WipeAll(ctx)
	})
}

// WhitelistInput grants a stored role.
type WhitelistInput struct {
	CallerID int64  `validate:"required"`
	TargetID int64  `validate:"required"`
	Role     string `validate:"required,role_name"`
}

// Whitelist grants a stored role to the target.
func (s *CommandService) Whitelist(ctx context.Context, in WhitelistInput) error {
	if err := s.validate.Validate(in); err != nil {
		return err
	}

	return s.run(ctx, in.CallerID, access.CommandWhitelist, func() error {
		return s.access.Grant(ctx, in.TargetID, in.Role)
	})
}

// Unwhitelist revokes all stored roles from the target and reports how
// many were removed.
func (s *CommandService) Unwhitelist(ctx context.Context, callerID, targetID int64) (int64, error) {
	var removed int64
	err := s.run(ctx, callerID, access.CommandUnwhitelist, func() error {
		var err error
		removed, err = s.access.RevokeAll(ctx, targetID)
		return err
	})
	return removed, err
}

// Ranks lists the external group's role catalog.
func (s *CommandService) Ranks(ctx context.Context, callerID int64, force bool) ([]group.Role, error) {
	var out []group.Role
	err := s.run(ctx, callerID, access.CommandRanks, func() error {
		var err error
		out, err = s.ranks.ListRoles(ctx, force)
		return err
	})
	return out, err
}

// GetRank reports the target member's current role.
func (s *CommandService) GetRank(ctx context.Context, callerID int64, identifier string) (*MemberRank, error) {
	var out *MemberRank
	err := s.run(ctx, callerID, access.CommandGetRank, func() error {
		var err error
		out, err = s.ranks.GetRank(ctx, identifier)
		return err
	})
	return out, err
}

// SetRankInput assigns an external role to a member.
type SetRankInput struct {
	CallerID   int64  `validate:"required"`
	Identifier string `validate:"required"`
	RoleID     int64  `validate:"required,gt=0"`
}

// SetRank assigns the role to the identified member.
func (s *CommandService) SetRank(ctx context.Context, in SetRankInput) (*RankChange, error) {
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	var out *RankChange
	err := s.run(ctx, in.CallerID, access.CommandSetRank, func() error {
		var err error
		out, err = s.ranks.AssignRank(ctx, in.Identifier, in.RoleID)
		return err
	})
	return out, err
}

// Unrank resets the identified member to the lowest assignable role.
func (s *CommandService) Unrank(ctx context.Context, callerID int64, identifier string) (*RankChange, error) {
	var out *RankChange
	err := s.run(ctx, callerID, access.CommandUnrank, func() error {
		var err error
		out, err = s.ranks.ClearRank(ctx, identifier)
		return err
	})
	return out, err
}

// RankAllInput starts a bulk rank reset. A zero RoleID targets the
// lowest assignable role.
type RankAllInput struct {
	CallerID int64 `validate:"required"`
	RoleID   int64
	Confirm  bool
}

// RankAll enqueues a bulk rank reset sweep and returns its run id.
func (s *CommandService) RankAll(ctx context.Context, in RankAllInput) (string, error) {
	if err := s.validate.Validate(in); err != nil {
		return "", err
	}

	var runID string
	err := s.run(ctx, in.CallerID, access.CommandRankAll, func() error {
		if !in.Confirm {
			return ErrConfirmationRequired
		}

		target := in.RoleID
		if target == 0 {
			lowest, err := s.ranks.LowestAssignable(ctx)
			if err != nil {
				return err
			}
			target = lowest.ID
		}

		var err error
		runID, err = s.sweeps.EnqueueRankReset(ctx, target)
		return err
	})
	return runID, err
}

// SweepStatus reports the most recent sweep's progress.
func (s *CommandService) SweepStatus(ctx context.Context, callerID int64) (*group.SweepReport, error) {
	var out *group.SweepReport
	err := s.run(ctx, callerID, access.CommandRankAll, func() error {
		var err error
		out, err = s.ranks.SweepStatus(ctx)
		return err
	})
	return out, err
}
