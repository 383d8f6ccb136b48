package memory

import (
	"sort"

	"github.com/bcnelson/sandbox-console/internal/domain"
)

// collection is an id-keyed set of environment-owned records with a
// secondary index by environment id. It is not locked; Store holds the lock.
type collection[T any] struct {
	items map[string]*T
	byEnv map[string]map[string]struct{}

	idOf  func(*T) string
	envOf func(*T) string
	clone func(*T) *T
	less  func(a, b *T) bool
}

func newCollection[T any](idOf, envOf func(*T) string, clone func(*T) *T, less func(a, b *T) bool) *collection[T] {
	return &collection[T]{
		items: make(map[string]*T),
		byEnv: make(map[string]map[string]struct{}),
		idOf:  idOf,
		envOf: envOf,
		clone: clone,
		less:  less,
	}
}

func (c *collection[T]) insert(v *T) error {
	id := c.idOf(v)
	if _, exists := c.items[id]; exists {
		return domain.ErrAlreadyExists
	}
	c.items[id] = c.clone(v)
	c.index(id, c.envOf(v))
	return nil
}

func (c *collection[T]) get(id string) (*T, error) {
	v, exists := c.items[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return c.clone(v), nil
}

func (c *collection[T]) replace(v *T) error {
	id := c.idOf(v)
	old, exists := c.items[id]
	if !exists {
		return domain.ErrNotFound
	}
	if prev, next := c.envOf(old), c.envOf(v); prev != next {
		c.unindex(id, prev)
		c.index(id, next)
	}
	c.items[id] = c.clone(v)
	return nil
}

func (c *collection[T]) remove(id string) error {
	v, exists := c.items[id]
	if !exists {
		return domain.ErrNotFound
	}
	c.unindex(id, c.envOf(v))
	delete(c.items, id)
	return nil
}

// list returns copies of the environment's records in collection order.
func (c *collection[T]) list(envID string) []*T {
	ids := c.byEnv[envID]
	out := make([]*T, 0, len(ids))
	for id := range ids {
		out = append(out, c.clone(c.items[id]))
	}
	sort.Slice(out, func(i, j int) bool {
		if c.less(out[i], out[j]) {
			return true
		}
		if c.less(out[j], out[i]) {
			return false
		}
		return c.idOf(out[i]) < c.idOf(out[j])
	})
	return out
}

func (c *collection[T]) count(envID string) int {
	return len(c.byEnv[envID])
}

// removeEnvironment drops every record owned by envID and returns how many went.
func (c *collection[T]) removeEnvironment(envID string) int {
	ids := c.byEnv[envID]
	for id := range ids {
		delete(c.items, id)
	}
	delete(c.byEnv, envID)
	return len(ids)
}

func (c *collection[T]) index(id, envID string) {
	set, ok := c.byEnv[envID]
	if !ok {
		set = make(map[string]struct{})
		c.byEnv[envID] = set
	}
	set[id] = struct{}{}
}

func (c *collection[T]) unindex(id, envID string) {
	set := c.byEnv[envID]
	delete(set, id)
	if len(set) == 0 {
		delete(c.byEnv, envID)
	}
}
