package app

import (
	"context"
	"io"
	"sync"

	"github.com/timedealhq/creditbot/pkg/domain/credit"
	"github.com/timedealhq/creditbot/pkg/domain/group"
	"github.com/timedealhq/creditbot/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

// fakeCreditRepo implements credit.Repository in memory with the same
// clamp-at-zero arithmetic the SQL layer provides.
type fakeCreditRepo struct {
	mu       sync.Mutex
	balances map[int64]int64
	err      error
}

func newFakeCreditRepo() *fakeCreditRepo {
	return &fakeCreditRepo{balances: make(map[int64]int64)}
}

func (r *fakeCreditRepo) Get(ctx context.Context, userID int64) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[userID], nil
}

func (r *fakeCreditRepo) Set(ctx context.Context, userID, amount int64) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[userID] = amount
	return amount, nil
}

func (r *fakeCreditRepo) Add(ctx context.Context, userID, delta int64) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[userID] += delta
	return r.balances[userID], nil
}

func (r *fakeCreditRepo) Subtract(ctx context.Context, userID, delta int64) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.balances[userID] - delta
	if next < 0 {
		next = 0
	}
	r.balances[userID] = next
	return next, nil
}

func (r *fakeCreditRepo) Leaderboard(ctx context.Context) ([]credit.Balance, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]credit.Balance, 0, len(r.balances))
	for id, c := range r.balances {
		if c > 0 {
			out = append(out, credit.Balance{UserID: id, Credits: c})
		}
	}
	// Highest first, user id ascending on ties.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Credits > out[i].Credits ||
				(out[j].Credits == out[i].Credits && out[j].UserID < out[i].UserID) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (r *fakeCreditRepo) WipeAll(ctx context.Context) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances = make(map[int64]int64)
	return nil
}

// fakeAccessRepo implements access.Repository in memory.
type fakeAccessRepo struct {
	mu     sync.Mutex
	grants map[int64]map[string]bool
	err    error
}

func newFakeAccessRepo() *fakeAccessRepo {
	return &fakeAccessRepo{grants: make(map[int64]map[string]bool)}
}

func (r *fakeAccessRepo) Roles(ctx context.Context, userID int64) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for role := range r.grants[userID] {
		out = append(out, role)
	}
	return out, nil
}

func (r *fakeAccessRepo) Grant(ctx context.Context, userID int64, role string) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.grants[userID] == nil {
		r.grants[userID] = make(map[string]bool)
	}
	r.grants[userID][role] = true
	return nil
}

func (r *fakeAccessRepo) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.grants[userID]))
	delete(r.grants, userID)
	return n, nil
}

// fakeGroupClient implements group.Client with scripted data and
// per-call error injection.
type fakeGroupClient struct {
	mu sync.Mutex

	roles    []group.Role
	rolesErr error

	memberships map[int64]*group.Membership
	findErr     error

	pages    []group.MembershipPage
	pageErrs map[int]error
	pageCall int

	updateErrs  map[string]error
	updateCalls []string

	usernames map[string]int64
	lookupErr error

	listRolesCalls int
}

func newFakeGroupClient() *fakeGroupClient {
	return &fakeGroupClient{
		memberships: make(map[int64]*group.Membership),
		pageErrs:    make(map[int]error),
		updateErrs:  make(map[string]error),
		usernames:   make(map[string]int64),
	}
}

func (c *fakeGroupClient) ListRoles(ctx context.Context) ([]group.Role, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listRolesCalls++
	if c.rolesErr != nil {
		return nil, c.rolesErr
	}
	out := make([]group.Role, len(c.roles))
	copy(out, c.roles)
	return out, nil
}

func (c *fakeGroupClient) FindMembership(ctx context.Context, userID int64) (*group.Membership, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.findErr != nil {
		return nil, c.findErr
	}
	m, ok := c.memberships[userID]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (c *fakeGroupClient) ListMemberships(ctx context.Context, pageToken string, pageSize int) (*group.MembershipPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.pageCall
	c.pageCall++
	if err := c.pageErrs[idx]; err != nil {
		return nil, err
	}
	if idx >= len(c.pages) {
		return &group.MembershipPage{}, nil
	}
	page := c.pages[idx]
	return &page, nil
}

func (c *fakeGroupClient) UpdateMembershipRole(ctx context.Context, membershipID string, roleID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.updateErrs[membershipID]; err != nil {
		return err
	}
	c.updateCalls = append(c.updateCalls, membershipID)
	for _, m := range c.memberships {
		if m.ID == membershipID {
			m.RoleID = roleID
		}
	}
	return nil
}

func (c *fakeGroupClient) LookupUserID(ctx context.Context, username string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lookupErr != nil {
		return 0, c.lookupErr
	}
	id, ok := c.usernames[username]
	if !ok {
		return 0, &group.UpstreamError{Op: "lookup user", StatusCode: 404}
	}
	return id, nil
}

// fakeSweepStore implements SweepStore in memory.
type fakeSweepStore struct {
	mu      sync.Mutex
	reports map[string]*group.SweepReport
	latest  *group.SweepReport
	saveErr error
	saves   int
}

func newFakeSweepStore() *fakeSweepStore {
	return &fakeSweepStore{reports: make(map[string]*group.SweepReport)}
}

func (s *fakeSweepStore) Save(ctx context.Context, report *group.SweepReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	cp := *report
	s.reports[report.RunID] = &cp
	s.latest = &cp
	return nil
}

func (s *fakeSweepStore) Get(ctx context.Context, runID string) (*group.SweepReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports[runID], nil
}

func (s *fakeSweepStore) Latest(ctx context.Context) (*group.SweepReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, nil
}

// recordSink captures audit lines for assertions.
type recordSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *recordSink) Record(ctx context.Context, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

func (s *recordSink) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}
