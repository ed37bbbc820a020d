package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timedealhq/creditbot/pkg/domain/group"
)

func newTestRankService(client *fakeGroupClient) (*RankService, *fakeSweepStore, *recordSink) {
	log := testLogger()
	cache := NewRoleCache(client, log)
	sweeps := newFakeSweepStore()
	sink := &recordSink{}
	return NewRankService(client, cache, sweeps, sink, log), sweeps, sink
}

func TestRankService_ResolveExternalID(t *testing.T) {
	client := newFakeGroupClient()
	client.usernames["captain_k"] = 777
	svc, _, _ := newTestRankService(client)
	ctx := context.Background()

	t.Run("numeric identifier parses directly", func(t *testing.T) {
		id, ok := svc.ResolveExternalID(ctx, "123456")
		require.True(t, ok)
		assert.Equal(t, int64(123456), id)
	})

	t.Run("username resolves via lookup", func(t *testing.T) {
		id, ok := svc.ResolveExternalID(ctx, "captain_k")
		require.True(t, ok)
		assert.Equal(t, int64(777), id)
	})

	t.Run("unknown username", func(t *testing.T) {
		_, ok := svc.ResolveExternalID(ctx, "nobody")
		assert.False(t, ok)
	})

	t.Run("lookup failure degrades to unresolved", func(t *testing.T) {
		client.mu.Lock()
		client.lookupErr = errors.New("timeout")
		client.mu.Unlock()
		defer func() {
			client.mu.Lock()
			client.lookupErr = nil
			client.mu.Unlock()
		}()

		_, ok := svc.ResolveExternalID(ctx, "captain_k")
		assert.False(t, ok)
	})

	t.Run("empty identifier", func(t *testing.T) {
		_, ok := svc.ResolveExternalID(ctx, "  ")
		assert.False(t, ok)
	})
}

func TestRankService_GetRank(t *testing.T) {
	client := newFakeGroupClient()
	client.roles = catalogRoles()
	client.memberships[777] = &group.Membership{ID: "m-777", UserID: 777, RoleID: 102}
	svc, _, _ := newTestRankService(client)
	ctx := context.Background()

	got, err := svc.GetRank(ctx, "777")
	require.NoError(t, err)
	assert.Equal(t, int64(777), got.UserID)
	assert.Equal(t, "m-777", got.MembershipID)
	assert.True(t, got.RoleKnown)
	assert.Equal(t, "Veteran", got.Role.Name)
}

func TestRankService_GetRankNotInGroup(t *testing.T) {
	client := newFakeGroupClient()
	client.roles = catalogRoles()
	svc, _, _ := newTestRankService(client)

	_, err := svc.GetRank(context.Background(), "555")
	assert.ErrorIs(t, err, group.ErrNotInGroup)
}

func TestRankService_AssignRankUnresolvedIdentifier(t *testing.T) {
	client := newFakeGroupClient()
	client.roles = catalogRoles()
	svc, _, _ := newTestRankService(client)

	_, err := svc.AssignRank(context.Background(), "no_such_user", 102)
	assert.ErrorIs(t, err, ErrUnresolvedIdentifier)
	assert.Empty(t, client.updateCalls)
}

func TestRankService_AssignRankNotInGroupWritesNothing(t *testing.T) {
	client := newFakeGroupClient()
	client.roles = catalogRoles()
	svc, _, _ := newTestRankService(client)

	_, err := svc.AssignRank(context.Background(), "555", 102)
	assert.ErrorIs(t, err, group.ErrNotInGroup)
	assert.Empty(t, client.updateCalls)
}

func TestRankService_AssignRankNewlyRanked(t *testing.T) {
	client := newFakeGroupClient()
	client.roles = catalogRoles()
	// Member currently holds the lowest assignable role.
	client.memberships[777] = &group.Membership{ID: "m-777", UserID: 777, RoleID: 101}
	svc, _, sink := newTestRankService(client)

	change, err := svc.AssignRank(context.Background(), "777", 102)
	require.NoError(t, err)
	assert.True(t, change.NewlyRanked)
	assert.Equal(t, "Veteran", change.New.Name)
	assert.Equal(t, "user 777 newly ranked to Veteran", change.AuditLine())

	lines := sink.all()
	require.Len(t, lines, 1)
	assert.Equal(t, "user 777 newly ranked to Veteran", lines[0])
}

func TestRankService_AssignRankDirectReRank(t *testing.T) {
	client := newFakeGroupClient()
	client.roles = catalogRoles()
	// Member already holds a non-lowest role; re-ranking is allowed.
	client.memberships[777] = &group.Membership{ID: "m-777", UserID: 777, RoleID: 102}
	svc, _, _ := newTestRankService(client)

	change, err := svc.AssignRank(context.Background(), "777", 103)
	require.NoError(t, err)
	assert.False(t, change.NewlyRanked)
	assert.Equal(t, "user 777 rank changed from Veteran to Officer", change.AuditLine())
	assert.Equal(t, []string{"m-777"}, client.updateCalls)
}

func TestRankService_AssignRankUpstreamFailure(t *testing.T) {
	client := newFakeGroupClient()
	client.roles = catalogRoles()
	client.memberships[777] = &group.Membership{ID: "m-777", UserID: 777, RoleID: 101}
	client.updateErrs["m-777"] = &group.UpstreamError{Op: "update membership", StatusCode: 503}
	svc, _, sink := newTestRankService(client)

	_, err := svc.AssignRank(context.Background(), "777", 102)
	require.Error(t, err)

	var upstream *group.UpstreamError
	assert.ErrorAs(t, err, &upstream)
	assert.Empty(t, sink.all())
}

func TestRankService_ClearRankTargetsLowest(t *testing.T) {
	client := newFakeGroupClient()
	client.roles = catalogRoles()
	client.memberships[777] = &group.Membership{ID: "m-777", UserID: 777, RoleID: 103}
	svc, _, _ := newTestRankService(client)

	change, err := svc.ClearRank(context.Background(), "777")
	require.NoError(t, err)
	assert.Equal(t, int64(101), change.New.ID)
	assert.Equal(t, "Member", change.New.Name)
	assert.Equal(t, int64(101), client.memberships[777].RoleID)
}

func TestRankService_ClearRankNoAssignableRole(t *testing.T) {
	client := newFakeGroupClient()
	client.roles = []group.Role{{ID: 100, Name: "Guest", Rank: 0}}
	client.memberships[777] = &group.Membership{ID: "m-777", UserID: 777, RoleID: 100}
	svc, _, _ := newTestRankService(client)

	_, err := svc.ClearRank(context.Background(), "777")
	assert.ErrorIs(t, err, group.ErrNoAssignableRole)
	assert.Empty(t, client.updateCalls)
}

func TestRankService_ListRoles(t *testing.T) {
	client := newFakeGroupClient()
	client.roles = catalogRoles()
	svc, _, _ := newTestRankService(client)
	ctx := context.Background()

	roles, err := svc.ListRoles(ctx, false)
	require.NoError(t, err)
	assert.Len(t, roles, 4)
	assert.Equal(t, 1, client.listRolesCalls)

	_, err = svc.ListRoles(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, client.listRolesCalls)
}

func TestRankService_BulkResetAll(t *testing.T) {
	newClient := func() *fakeGroupClient {
		client := newFakeGroupClient()
		client.roles = catalogRoles()
		return client
	}

	t.Run("skips members already at target", func(t *testing.T) {
		client := newClient()
		client.pages = []group.MembershipPage{{
			Memberships: []group.Membership{
				{ID: "m-1", UserID: 1, RoleID: 102},
				{ID: "m-2", UserID: 2, RoleID: 103},
				{ID: "m-3", UserID: 3, RoleID: 102},
				{ID: "m-4", UserID: 4, RoleID: 109},
			},
		}}
		svc, sweeps, _ := newTestRankService(client)

		report, err := svc.BulkResetAll(context.Background(), 102, "run-1")
		require.NoError(t, err)

		assert.Equal(t, group.SweepCompleted, report.Status)
		assert.Equal(t, 4, report.Scanned)
		assert.Equal(t, 2, report.Changed)
		assert.Equal(t, 0, report.Failed)
		assert.Equal(t, []string{"m-2", "m-4"}, client.updateCalls)
		require.NotNil(t, report.FinishedAt)

		latest, err := sweeps.Latest(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "run-1", latest.RunID)
		assert.Equal(t, group.SweepCompleted, latest.Status)
	})

	t.Run("per-item failure continues the sweep", func(t *testing.T) {
		client := newClient()
		client.pages = []group.MembershipPage{{
			Memberships: []group.Membership{
				{ID: "m-1", UserID: 1, RoleID: 103},
				{ID: "m-2", UserID: 2, RoleID: 102},
				{ID: "m-3", UserID: 3, RoleID: 109},
			},
		}}
		client.updateErrs["m-3"] = &group.UpstreamError{Op: "update membership", StatusCode: 500}
		svc, _, _ := newTestRankService(client)

		report, err := svc.BulkResetAll(context.Background(), 102, "run-2")
		require.NoError(t, err)

		assert.Equal(t, group.SweepCompleted, report.Status)
		assert.Equal(t, 3, report.Scanned)
		assert.Equal(t, 1, report.Changed)
		assert.Equal(t, 1, report.Failed)
	})

	t.Run("page fetch failure aborts with partial counts", func(t *testing.T) {
		client := newClient()
		client.pages = []group.MembershipPage{{
			Memberships: []group.Membership{
				{ID: "m-1", UserID: 1, RoleID: 103},
				{ID: "m-2", UserID: 2, RoleID: 102},
			},
			NextPageToken: "page-2",
		}}
		client.pageErrs[1] = errors.New("bad gateway")
		svc, sweeps, _ := newTestRankService(client)

		report, err := svc.BulkResetAll(context.Background(), 102, "run-3")
		require.Error(t, err)

		assert.Equal(t, group.SweepAborted, report.Status)
		assert.Equal(t, 2, report.Scanned)
		assert.Equal(t, 1, report.Changed)
		assert.Equal(t, "bad gateway", report.AbortReason)
		require.NotNil(t, report.FinishedAt)

		latest, lerr := sweeps.Latest(context.Background())
		require.NoError(t, lerr)
		assert.Equal(t, group.SweepAborted, latest.Status)
	})

	t.Run("follows pagination across pages", func(t *testing.T) {
		client := newClient()
		client.pages = []group.MembershipPage{
			{
				Memberships:   []group.Membership{{ID: "m-1", UserID: 1, RoleID: 103}},
				NextPageToken: "page-2",
			},
			{
				Memberships: []group.Membership{{ID: "m-2", UserID: 2, RoleID: 109}},
			},
		}
		svc, _, sink := newTestRankService(client)

		report, err := svc.BulkResetAll(context.Background(), 102, "run-4")
		require.NoError(t, err)

		assert.Equal(t, 2, report.Scanned)
		assert.Equal(t, 2, report.Changed)

		lines := sink.all()
		require.Len(t, lines, 1)
		assert.Equal(t, "rank sweep run-4 completed: scanned 2, changed 2, failed 0", lines[0])
	})

	t.Run("store failure does not interrupt the sweep", func(t *testing.T) {
		client := newClient()
		client.pages = []group.MembershipPage{{
			Memberships: []group.Membership{{ID: "m-1", UserID: 1, RoleID: 103}},
		}}
		svc, sweeps, _ := newTestRankService(client)
		sweeps.saveErr = errors.New("redis down")

		report, err := svc.BulkResetAll(context.Background(), 102, "run-5")
		require.NoError(t, err)
		assert.Equal(t, group.SweepCompleted, report.Status)
		assert.Equal(t, 1, report.Changed)
	})
}
