package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timedealhq/creditbot/pkg/domain/access"
	"github.com/timedealhq/creditbot/pkg/domain/group"
	"github.com/timedealhq/creditbot/pkg/validator"
)

const (
	ownerID      int64 = 900
	tagManagerID int64 = 200
	managerID    int64 = 300
	staffID      int64 = 400
	plainID      int64 = 500
)

type fakeSweepLauncher struct {
	targets []int64
	err     error
}

func (l *fakeSweepLauncher) EnqueueRankReset(ctx context.Context, targetRoleID int64) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	l.targets = append(l.targets, targetRoleID)
	return "run-test", nil
}

type commandFixture struct {
	svc      *CommandService
	credits  *fakeCreditRepo
	grants   *fakeAccessRepo
	client   *fakeGroupClient
	launcher *fakeSweepLauncher
}

func newCommandFixture(t *testing.T) *commandFixture {
	t.Helper()
	log := testLogger()
	ctx := context.Background()

	grants := newFakeAccessRepo()
	require.NoError(t, grants.Grant(ctx, tagManagerID, access.RoleTagManager))
	require.NoError(t, grants.Grant(ctx, managerID, access.RoleManager))
	require.NoError(t, grants.Grant(ctx, staffID, access.RoleStaff))

	client := newFakeGroupClient()
	client.roles = catalogRoles()

	credits := newFakeCreditRepo()
	cache := NewRoleCache(client, log)
	sweeps := newFakeSweepStore()
	launcher := &fakeSweepLauncher{}

	svc := NewCommandService(
		NewAccessService([]int64{ownerID}, grants, log),
		NewCreditService(credits, log),
		NewRankService(client, cache, sweeps, &recordSink{}, log),
		launcher,
		validator.New(),
		log,
	)

	return &commandFixture{
		svc:      svc,
		credits:  credits,
		grants:   grants,
		client:   client,
		launcher: launcher,
	}
}

func TestCommands_CreditsDefaultsToCaller(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	_, err := f.credits.Set(ctx, plainID, 120)
	require.NoError(t, err)

	got, err := f.svc.Credits(ctx, CreditsInput{CallerID: plainID})
	require.NoError(t, err)
	assert.Equal(t, int64(120), got)
}

func TestCommands_CreditsAllowedForEveryone(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	for _, caller := range []int64{ownerID, tagManagerID, managerID, staffID, plainID} {
		_, err := f.svc.Credits(ctx, CreditsInput{CallerID: caller, TargetID: 1})
		assert.NoError(t, err, "caller %d", caller)

		_, err = f.svc.CreditsLeaderboard(ctx, caller)
		assert.NoError(t, err, "caller %d", caller)
	}
}

func TestCommands_NoTierDeniedEverythingElse(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddCredits(ctx, AdjustCreditsInput{CallerID: plainID, TargetID: 1, Amount: 10})
	assert.ErrorIs(t, err, access.ErrPermissionDenied)

	_, err = f.svc.Ranks(ctx, plainID, false)
	assert.ErrorIs(t, err, access.ErrPermissionDenied)

	err = f.svc.WipeCredits(ctx, plainID, true)
	assert.ErrorIs(t, err, access.ErrPermissionDenied)
}

func TestCommands_StaffDeniedSetCredits(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddCredits(ctx, AdjustCreditsInput{CallerID: staffID, TargetID: 1, Amount: 10})
	require.NoError(t, err)

	_, err = f.svc.SetCredits(ctx, SetCreditsInput{CallerID: staffID, TargetID: 1, Amount: 10})
	assert.ErrorIs(t, err, access.ErrPermissionDenied)
}

func TestCommands_ManagerDeniedGrantAndRankCommands(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetCredits(ctx, SetCreditsInput{CallerID: managerID, TargetID: 1, Amount: 10})
	require.NoError(t, err)

	err = f.svc.Whitelist(ctx, WhitelistInput{CallerID: managerID, TargetID: 1, Role: "staff"})
	assert.ErrorIs(t, err, access.ErrPermissionDenied)

	_, err = f.svc.Unwhitelist(ctx, managerID, 1)
	assert.ErrorIs(t, err, access.ErrPermissionDenied)

	_, err = f.svc.Ranks(ctx, managerID, false)
	assert.ErrorIs(t, err, access.ErrPermissionDenied)

	_, err = f.svc.RankAll(ctx, RankAllInput{CallerID: managerID, Confirm: true})
	assert.ErrorIs(t, err, access.ErrPermissionDenied)
}

func TestCommands_TagManagerRankPowers(t *testing.T) {
	f := newCommandFixture(t)
	f.client.memberships[777] = &group.Membership{ID: "m-777", UserID: 777, RoleID: 101}
	ctx := context.Background()

	_, err := f.svc.Ranks(ctx, tagManagerID, false)
	require.NoError(t, err)

	_, err = f.svc.SetRank(ctx, SetRankInput{CallerID: tagManagerID, Identifier: "777", RoleID: 102})
	require.NoError(t, err)

	err = f.svc.Whitelist(ctx, WhitelistInput{CallerID: tagManagerID, TargetID: 1, Role: "staff"})
	assert.ErrorIs(t, err, access.ErrPermissionDenied)

	err = f.svc.WipeCredits(ctx, tagManagerID, true)
	assert.ErrorIs(t, err, access.ErrPermissionDenied)
}

func TestCommands_OwnerGrantFlow(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	err := f.svc.Whitelist(ctx, WhitelistInput{CallerID: ownerID, TargetID: plainID, Role: "manager"})
	require.NoError(t, err)

	// The new grant takes effect on the next command.
	_, err = f.svc.SetCredits(ctx, SetCreditsInput{CallerID: plainID, TargetID: 1, Amount: 5})
	require.NoError(t, err)

	removed, err := f.svc.Unwhitelist(ctx, ownerID, plainID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = f.svc.SetCredits(ctx, SetCreditsInput{CallerID: plainID, TargetID: 1, Amount: 5})
	assert.ErrorIs(t, err, access.ErrPermissionDenied)
}

func TestCommands_WhitelistRejectsUnknownRole(t *testing.T) {
	f := newCommandFixture(t)

	err := f.svc.Whitelist(context.Background(), WhitelistInput{CallerID: ownerID, TargetID: 1, Role: "janitor"})

	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestCommands_WipeCreditsRequiresConfirmation(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	_, err := f.credits.Set(ctx, 1, 100)
	require.NoError(t, err)

	err = f.svc.WipeCredits(ctx, ownerID, false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.NotEmpty(t, f.credits.balances)

	require.NoError(t, f.svc.WipeCredits(ctx, ownerID, true))
	assert.Empty(t, f.credits.balances)
}

func TestCommands_AdjustValidation(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	var verrs validator.ValidationErrors

	_, err := f.svc.AddCredits(ctx, AdjustCreditsInput{CallerID: ownerID, TargetID: 1, Amount: 0})
	assert.ErrorAs(t, err, &verrs)

	_, err = f.svc.AddCredits(ctx, AdjustCreditsInput{CallerID: ownerID, TargetID: 1, Amount: -3})
	assert.ErrorAs(t, err, &verrs)

	_, err = f.svc.SetCredits(ctx, SetCreditsInput{CallerID: ownerID, TargetID: 1, Amount: -1})
	assert.ErrorAs(t, err, &verrs)
}

func TestCommands_RankAllRequiresConfirmation(t *testing.T) {
	f := newCommandFixture(t)

	_, err := f.svc.RankAll(context.Background(), RankAllInput{CallerID: ownerID})
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Empty(t, f.launcher.targets)
}

func TestCommands_RankAllDefaultsToLowestAssignable(t *testing.T) {
	f := newCommandFixture(t)

	runID, err := f.svc.RankAll(context.Background(), RankAllInput{CallerID: ownerID, Confirm: true})
	require.NoError(t, err)
	assert.Equal(t, "run-test", runID)
	assert.Equal(t, []int64{101}, f.launcher.targets)
}

func TestCommands_RankAllExplicitTarget(t *testing.T) {
	f := newCommandFixture(t)

	_, err := f.svc.RankAll(context.Background(), RankAllInput{CallerID: tagManagerID, RoleID: 103, Confirm: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{103}, f.launcher.targets)
}
