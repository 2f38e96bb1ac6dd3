package contest

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

// ErrNotFound is returned when a contest id is unknown to the registry.
var ErrNotFound = fmt.Errorf("contest not found")

// Registry resolves a contest id to its current lifecycle status and
// ordered question list. Sessions re-validate through it at join time
// instead of trusting a cached value.
type Registry interface {
	Lookup(contestID string) (*Contest, error)
}

// InMemRegistry is a concurrent in-memory Registry.
type InMemRegistry struct {
	contests *xsync.MapOf[string, *Contest]
}

func NewInMemRegistry() *InMemRegistry {
	return &InMemRegistry{
		contests: xsync.NewMapOf[string, *Contest](),
	}
}

func (r *InMemRegistry) Lookup(contestID string) (*Contest, error) {
	c, ok := r.contests.Load(contestID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, contestID)
	}
	return c, nil
}

// Put stores or replaces a contest.
func (r *InMemRegistry) Put(c *Contest) {
	r.contests.Store(c.ID, c)
}

// SetStatus moves a contest to a new lifecycle status.
func (r *InMemRegistry) SetStatus(contestID string, status Status) error {
	c, ok := r.contests.Load(contestID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, contestID)
	}
	// contests are stored as immutable values; replace wholesale
	cp := *c
	cp.Status = status
	r.contests.Store(contestID, &cp)
	return nil
}

// Size returns the number of registered contests.
func (r *InMemRegistry) Size() int {
	return r.contests.Size()
}

// All returns a snapshot of every registered contest.
func (r *InMemRegistry) All() []*Contest {
	res := make([]*Contest, 0, r.contests.Size())
	r.contests.Range(func(_ string, c *Contest) bool {
		res = append(res, c)
		return true
	})
	return res
}
