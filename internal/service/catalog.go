package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
	"github.com/yourusername/hoop-signals/internal/logger"
	"github.com/yourusername/hoop-signals/internal/metrics"
	"github.com/yourusername/hoop-signals/internal/models"
	"github.com/yourusername/hoop-signals/internal/strategy"
)

const activeCacheKey = "active"

// maxFailureBackoff caps how long a stale catalog is served before the next reload attempt
const maxFailureBackoff = 30 * time.Second

// catalogSnapshot is one compiled load of the active strategies
type catalogSnapshot struct {
	list     []*strategy.Compiled
	byID     map[uuid.UUID]*strategy.Compiled
	loadedAt time.Time
}

// Catalog compiles strategy records and caches them for a TTL. Strategies that left the
// active set are looked up individually so their open signals can still settle.
type Catalog struct {
	source        StrategySource
	cache         *cache.Cache
	ttl           time.Duration
	defaultExpiry string
	log           *logger.StrategyLogger

	mu    sync.Mutex // serializes reloads
	last  *catalogSnapshot
	names map[uuid.UUID]string
}

// NewCatalog creates a catalog over source
func NewCatalog(source StrategySource, ttl time.Duration, defaultExpiry string, log *logger.StrategyLogger) *Catalog {
	if defaultExpiry == "" {
		defaultExpiry = models.DefaultExpiryClock
	}
	return &Catalog{
		source:        source,
		cache:         cache.New(ttl, ttl*2),
		ttl:           ttl,
		defaultExpiry: defaultExpiry,
		log:           log,
		names:         make(map[uuid.UUID]string),
	}
}

// Active returns the compiled active strategies, reloading when the cached copy expired
func (c *Catalog) Active(ctx context.Context) ([]*strategy.Compiled, error) {
	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.list, nil
}

// ActiveByID returns the compiled active strategies keyed by ID
func (c *Catalog) ActiveByID(ctx context.Context) (map[uuid.UUID]*strategy.Compiled, error) {
	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.byID, nil
}

// Lookup resolves one strategy, including inactive ones. ok is false when the strategy no
// longer exists.
func (c *Catalog) Lookup(ctx context.Context, id uuid.UUID) (*strategy.Compiled, bool, error) {
	byID, err := c.ActiveByID(ctx)
	if err != nil {
		return nil, false, err
	}
	if compiled, ok := byID[id]; ok {
		return compiled, true, nil
	}

	key := "strategy:" + id.String()
	if v, found := c.cache.Get(key); found {
		metrics.RecordCacheHit()
		compiled, _ := v.(*strategy.Compiled)
		return compiled, compiled != nil, nil
	}
	metrics.RecordCacheMiss()

	rec, err := c.source.GetByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		// cache the miss so an orphan does not hit the database every tick
		c.cache.Set(key, (*strategy.Compiled)(nil), c.ttl)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up strategy %s: %w", id, err)
	}

	compiled := c.compile(rec)
	c.cache.Set(key, compiled, c.ttl)
	return compiled, true, nil
}

// Refresh reloads the active strategies regardless of the cache state
func (c *Catalog) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.reload(ctx)
	return err
}

// Loaded reports whether at least one load succeeded
func (c *Catalog) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last != nil
}

func (c *Catalog) load(ctx context.Context) (*catalogSnapshot, error) {
	if v, found := c.cache.Get(activeCacheKey); found {
		metrics.RecordCacheHit()
		return v.(*catalogSnapshot), nil
	}
	metrics.RecordCacheMiss()

	c.mu.Lock()
	defer c.mu.Unlock()

	// another caller may have reloaded while we waited
	if v, found := c.cache.Get(activeCacheKey); found {
		return v.(*catalogSnapshot), nil
	}
	return c.reload(ctx)
}

// reload must be called with mu held
func (c *Catalog) reload(ctx context.Context) (*catalogSnapshot, error) {
	start := time.Now()

	records, err := c.source.GetActive(ctx)
	if err != nil {
		if c.last != nil {
			c.log.WithError(err).Warn("Strategy reload failed, keeping previous catalog")
			c.cache.Set(activeCacheKey, c.last, c.failureBackoff())
			return c.last, nil
		}
		return nil, fmt.Errorf("failed to load strategies: %w", err)
	}

	snap := &catalogSnapshot{
		list:     make([]*strategy.Compiled, 0, len(records)),
		byID:     make(map[uuid.UUID]*strategy.Compiled, len(records)),
		loadedAt: start,
	}
	inert := 0
	for _, rec := range records {
		if rec == nil {
			continue
		}
		compiled := c.compile(rec)
		if compiled.Inert() {
			inert++
		}
		snap.list = append(snap.list, compiled)
		snap.byID[compiled.ID] = compiled
	}

	c.logMembershipChanges(snap)
	c.cache.Set(activeCacheKey, snap, c.ttl)
	c.last = snap

	duration := time.Since(start)
	metrics.RecordCatalogRefresh(len(snap.list)-inert, inert, duration.Seconds())
	c.log.LogCatalogRefresh(len(snap.list), len(snap.list)-inert, inert, float64(duration.Milliseconds()))
	return snap, nil
}

func (c *Catalog) failureBackoff() time.Duration {
	if c.ttl > 0 && c.ttl < maxFailureBackoff {
		return c.ttl
	}
	return maxFailureBackoff
}

func (c *Catalog) compile(rec *models.Strategy) *strategy.Compiled {
	if rec.ExpiryClock == "" {
		copied := *rec
		copied.ExpiryClock = c.defaultExpiry
		rec = &copied
	}

	compiled := strategy.Compile(rec)
	for _, w := range compiled.Warnings {
		c.log.LogConfigWarning(compiled.ID.String(), compiled.Name, w, compiled.Inert())
	}
	c.log.LogStrategyCompiled(compiled.ID.String(), compiled.Name, compiled.TwoStage,
		len(compiled.EntryTriggers), len(compiled.CloseTriggers), len(compiled.Rules))
	return compiled
}

// logMembershipChanges must be called with mu held
func (c *Catalog) logMembershipChanges(snap *catalogSnapshot) {
	next := make(map[uuid.UUID]string, len(snap.byID))
	for id, compiled := range snap.byID {
		next[id] = compiled.Name
		if _, ok := c.names[id]; !ok && c.last != nil {
			c.log.LogStrategyActivation(id.String(), compiled.Name, "appeared in active set")
		}
	}
	for id, name := range c.names {
		if _, ok := next[id]; !ok {
			c.log.LogStrategyDeactivation(id.String(), name, "left active set")
		}
	}
	c.names = next
}
