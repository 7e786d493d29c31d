package project

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/marmos91/refperm/internal/logger"
)

// ticketLock is a mutex that admits waiters in arrival order.
type ticketLock struct {
	mu      sync.Mutex
	cond    sync.Cond
	next    uint64
	serving uint64
}

func (l *ticketLock) Lock() {
	l.mu.Lock()
	ticket := l.next
	l.next++
	for ticket != l.serving {
		l.cond.Wait()
	}
	l.mu.Unlock()
}

func (l *ticketLock) Unlock() {
	l.mu.Lock()
	l.serving++
	l.cond.Broadcast()
	l.mu.Unlock()
}

// projectList holds the sorted universe of project names. Readers load the
// current slice without locking; writers replace it under the ticket lock.
// A published slice is never modified.
type projectList struct {
	names     atomic.Pointer[[]string]
	lock      ticketLock
	mutations uint64 // guarded by lock
}

func (l *projectList) init() {
	l.lock.cond.L = &l.lock.mu
}

// update applies fn to a copy of the current list. A list that was never
// loaded stays unloaded; the next read fetches it from the store.
func (l *projectList) update(fn func([]string) []string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.mutations++
	cur := l.names.Load()
	if cur == nil {
		return
	}
	next := fn(slices.Clone(*cur))
	l.names.Store(&next)
}

// All returns every project name, sorted. The list is read from the store
// on first use and then maintained incrementally.
func (c *Cache) All(ctx context.Context) ([]string, error) {
	if p := c.list.names.Load(); p != nil {
		return slices.Clone(*p), nil
	}
	names, err := c.loadList(ctx, false)
	if err != nil {
		return nil, err
	}
	return slices.Clone(names), nil
}

// ByPrefix returns the sorted project names starting with prefix.
func (c *Cache) ByPrefix(ctx context.Context, prefix string) ([]string, error) {
	p := c.list.names.Load()
	var names []string
	if p != nil {
		names = *p
	} else {
		var err error
		if names, err = c.loadList(ctx, false); err != nil {
			return nil, err
		}
	}

	start, _ := slices.BinarySearch(names, prefix)
	var out []string
	for _, n := range names[start:] {
		if !strings.HasPrefix(n, prefix) {
			break
		}
		out = append(out, n)
	}
	return out, nil
}

// RefreshProjectList re-reads the project list from the store.
func (c *Cache) RefreshProjectList(ctx context.Context) error {
	_, err := c.loadList(ctx, true)
	return err
}

// OnCreateProject adds name to the project list.
func (c *Cache) OnCreateProject(name string) {
	c.list.update(func(names []string) []string {
		i, found := slices.BinarySearch(names, name)
		if found {
			return names
		}
		return slices.Insert(names, i, name)
	})
	logger.Debug("Project added to list", logger.Project(name))
}

// Remove drops name from the project list and the cache.
func (c *Cache) Remove(name string) {
	c.list.update(func(names []string) []string {
		if i, found := slices.BinarySearch(names, name); found {
			return slices.Delete(names, i, i+1)
		}
		return names
	})
	c.Evict(name)
}

// Rename moves oldName to newName in the project list and evicts both.
func (c *Cache) Rename(oldName, newName string) {
	c.list.update(func(names []string) []string {
		if i, found := slices.BinarySearch(names, oldName); found {
			names = slices.Delete(names, i, i+1)
		}
		if i, found := slices.BinarySearch(names, newName); !found {
			names = slices.Insert(names, i, newName)
		}
		return names
	})
	c.Evict(oldName)
	c.Evict(newName)
}

// loadList fetches the list from the store outside the lock and publishes
// it unless a mutation happened meanwhile.
func (c *Cache) loadList(ctx context.Context, force bool) ([]string, error) {
	c.list.lock.Lock()
	seq := c.list.mutations
	c.list.lock.Unlock()

	v, err, _ := c.loads.Do("\x00list", func() (any, error) {
		names, err := c.store.List(ctx)
		if err != nil {
			return nil, &BackendError{Project: "*", Err: err}
		}
		names = slices.Clone(names)
		slices.Sort(names)
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	names := v.([]string)

	c.list.lock.Lock()
	if c.list.mutations == seq && (force || c.list.names.Load() == nil) {
		c.list.names.Store(&names)
	}
	c.list.lock.Unlock()
	return names, nil
}
