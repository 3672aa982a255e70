package services

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"
)

// SearchSnapshot is one completed catalog query, tagged with the sequence
// number of the submission that produced it.
type SearchSnapshot struct {
	Seq        uint64
	Filter     CatalogFilter
	Page       CatalogPage
	Err        error
	FinishedAt time.Time
}

// SearchCoordinatorDeps wires the coordinator dependencies.
type SearchCoordinatorDeps struct {
	Catalog CatalogService
	// Delay simulates the round trip of a remote search before the query
	// runs; zero in tests.
	Delay  time.Duration
	Clock  func() time.Time
	Logger func(context.Context, string, map[string]any)
}

// SearchCoordinator serialises concurrent catalog queries so the published
// snapshot is always the most recently submitted one. Submissions are never
// cancelled; a slow query that finishes after a later submission has published
// is simply dropped.
type SearchCoordinator struct {
	mu      sync.Mutex
	catalog CatalogService
	delay   time.Duration
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)

	seq        uint64
	lastFilter CatalogFilter
	hasFilter  bool
	latest     SearchSnapshot
	hasLatest  bool
}

// NewSearchCoordinator constructs a SearchCoordinator.
func NewSearchCoordinator(deps SearchCoordinatorDeps) (*SearchCoordinator, error) {
	if deps.Catalog == nil {
		return nil, errors.New("search coordinator: catalog service is required")
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &SearchCoordinator{
		catalog: deps.Catalog,
		delay:   deps.Delay,
		now:     now,
		logger:  logger,
	}, nil
}

// Submit queues a catalog query and returns its sequence number plus a channel
// closed when the query finishes (published or dropped). Changing anything
// except the page resets the requested page to 1.
func (c *SearchCoordinator) Submit(ctx context.Context, filter CatalogFilter) (uint64, <-chan struct{}) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	if c.hasFilter && filterMutated(c.lastFilter, filter) {
		filter.Page = 1
	}
	c.lastFilter = filter
	c.hasFilter = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.run(ctx, seq, filter)
	}()
	return seq, done
}

// Snapshot returns the latest published result, if any query has completed.
func (c *SearchCoordinator) Snapshot() (SearchSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.hasLatest
}

func (c *SearchCoordinator) run(ctx context.Context, seq uint64, filter CatalogFilter) {
	if c.delay > 0 {
		timer := time.NewTimer(c.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}

	page, err := c.catalog.Search(ctx, filter)
	snapshot := SearchSnapshot{
		Seq:        seq,
		Filter:     filter,
		Page:       page,
		Err:        err,
		FinishedAt: c.now().UTC(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasLatest && snapshot.Seq <= c.latest.Seq {
		c.logger(ctx, "catalog.search_stale_dropped", map[string]any{
			"seq":       snapshot.Seq,
			"published": c.latest.Seq,
		})
		return
	}
	c.latest = snapshot
	c.hasLatest = true
}

// filterMutated reports whether anything other than the requested page differs.
func filterMutated(prev, next CatalogFilter) bool {
	prev.Page = 0
	next.Page = 0
	return !reflect.DeepEqual(prev, next)
}
