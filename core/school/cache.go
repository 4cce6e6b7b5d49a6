package school

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/aminofabian/squlll/core"
)

// Source fetches the collections the workflows read from.
type Source interface {
	ListAcademicYears(ctx context.Context) ([]AcademicYear, error)
	ListFeeBuckets(ctx context.Context) ([]FeeBucket, error)
	ListGradeLevels(ctx context.Context) ([]GradeLevel, error)
}

// Refetcher is notified after a mutation so the cached collections can be reloaded.
type Refetcher interface {
	RequestRefetch()
}

// Cache keeps the last fetched Snapshot of one tenant.
// Background refetches requested through RequestRefetch are debounced.
type Cache struct {
	src    Source
	logger core.Logger

	mu   sync.RWMutex
	snap Snapshot
	ok   bool

	debouncer *core.Debouncer
	nowFunc   func() time.Time
}

func NewCache(src Source, logger core.Logger, debounce time.Duration) *Cache {
	c := &Cache{src: src, logger: logger, nowFunc: time.Now}
	c.debouncer = core.NewDebouncer(debounce, c.backgroundRefetch)
	return c
}

// Snapshot returns the cached snapshot, fetching it on first use.
func (c *Cache) Snapshot(ctx context.Context) (Snapshot, error) {
	c.mu.RLock()
	snap, ok := c.snap, c.ok
	c.mu.RUnlock()
	if ok {
		return snap, nil
	}
	return c.Refetch(ctx)
}

// Refetch reloads every collection now.
func (c *Cache) Refetch(ctx context.Context) (Snapshot, error) {
	years, err := c.src.ListAcademicYears(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "listing academic years")
	}
	buckets, err := c.src.ListFeeBuckets(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "listing fee buckets")
	}
	grades, err := c.src.ListGradeLevels(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "listing grade levels")
	}
	snap := Snapshot{
		AcademicYears: years,
		FeeBuckets:    buckets,
		GradeLevels:   grades,
		FetchedAt:     c.nowFunc().UTC(),
	}

	c.mu.Lock()
	c.snap, c.ok = snap, true
	c.mu.Unlock()
	return snap, nil
}

// RequestRefetch schedules a background refetch; repeated requests within the debounce window coalesce.
func (c *Cache) RequestRefetch() {
	c.debouncer.Trigger()
}

// RefetchPending reports whether a debounced refetch is scheduled.
func (c *Cache) RefetchPending() bool {
	return c.debouncer.Pending()
}

func (c *Cache) Close() {
	c.debouncer.Stop()
}

func (c *Cache) backgroundRefetch() {
	if _, err := c.Refetch(context.Background()); err != nil && c.logger != nil {
		c.logger.Error("background refetch failed", err)
	}
}

// Caches hands out one Cache per tenant.
type Caches struct {
	newSource func(schoolID string) Source
	logger    core.Logger
	debounce  time.Duration

	mu     sync.Mutex
	caches map[string]*Cache
}

func NewCaches(newSource func(schoolID string) Source, logger core.Logger, debounce time.Duration) *Caches {
	return &Caches{
		newSource: newSource,
		logger:    logger,
		debounce:  debounce,
		caches:    make(map[string]*Cache),
	}
}

func (cs *Caches) For(schoolID string) *Cache {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	c, ok := cs.caches[schoolID]
	if !ok {
		c = NewCache(cs.newSource(schoolID), cs.logger, cs.debounce)
		cs.caches[schoolID] = c
	}
	return c
}

func (cs *Caches) Close() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for _, c := range cs.caches {
		c.Close()
	}
}
