package app

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/timedealhq/creditbot/pkg/domain/group"
	"github.com/timedealhq/creditbot/pkg/logger"
)

// RoleCache is the process-wide cache of the external group's role
// catalog. It has two states, empty and loaded; a non-forced load
// returns immediately once loaded, and the cache stays valid for the
// process lifetime unless a forced reload replaces it. A failed fetch
// never touches the previous contents. Concurrent forced reloads may
// race; the last successful load wins.
type RoleCache struct {
	client group.Client
	logger *logger.Logger

	sf singleflight.Group

	mu     sync.RWMutex
	loaded bool
	byID   map[int64]group.Role
	roles  []group.Role
	lowest *group.Role
}

// NewRoleCache creates an empty RoleCache.
func NewRoleCache(client group.Client, log *logger.Logger) *RoleCache {
	return &RoleCache{
		client: client,
		logger: log.With("component", "rolecache"),
	}
}

// Load populates the cache from the external service. When force is
// false and a prior load succeeded, it returns immediately; concurrent
// non-forced loads share a single upstream fetch.
func (c *RoleCache) Load(ctx context.Context, force bool) error {
	if force {
		return c.refresh(ctx)
	}

	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}

	_, err, _ := c.sf.Do("load", func() (any, error) {
		return nil, c.refresh(ctx)
	})
	return err
}

func (c *RoleCache) refresh(ctx context.Context) error {
	fetched, err := c.client.ListRoles(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", group.ErrUpstreamUnavailable, err)
	}

	byID := make(map[int64]group.Role, len(fetched))
	roles := make([]group.Role, 0, len(fetched))
	var lowest *group.Role
	for _, r := range fetched {
		byID[r.ID] = r
		roles = append(roles, r)
		if !r.Assignable() {
			continue
		}
		if lowest == nil || r.Rank < lowest.Rank {
			rc := r
			lowest = &rc
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Rank < roles[j].Rank })

	c.mu.Lock()
	c.byID = byID
	c.roles = roles
	c.lowest = lowest
	c.loaded = true
	c.mu.Unlock()

	floor := "none"
	if lowest != nil {
		floor = lowest.Name
	}
	c.logger.Info("role catalog loaded", "roles", len(roles), "assignable_floor", floor)
	return nil
}

// Lookup returns a role from the last successful load. It never
// triggers a fetch.
func (c *RoleCache) Lookup(roleID int64) (group.Role, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.byID[roleID]
	return r, ok
}

// LowestAssignable returns the minimum-rank assignable role from the
// last successful load.
func (c *RoleCache) LowestAssignable() (group.Role, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lowest == nil {
		return group.Role{}, false
	}
	return *c.lowest, true
}

// Roles returns the cached catalog sorted by rank ascending.
func (c *RoleCache) Roles() []group.Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]group.Role, len(c.roles))
	copy(out, c.roles)
	return out
}
