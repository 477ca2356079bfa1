package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/proxydeck/internal/domain"
	"github.com/MrSnakeDoc/proxydeck/internal/logger"
)

// Fetcher is the data-source capability the cache consumes: one call, all
// raw records, or an error. Sources open and close their own connections
// per call.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.RawRecord, error)
}

// Mirror persists published snapshots so a restarted instance can serve
// known data before its first poll. Saves are best effort.
type Mirror interface {
	SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error
}

// Config carries the cache's immutable settings.
type Config struct {
	Interval        time.Duration // 0 disables scheduled polling; manual reloads still run
	FetchTimeout    time.Duration
	PageTitle       string
	PublicHTTPPort  int
	PublicHTTPSPort int
}

// Cache owns the refresh loop: fetch, transform, sort, hash, and publish a
// new immutable snapshot when — and only when — the content changed.
// Readers never block on a poll and always observe a complete snapshot.
type Cache struct {
	fetcher     Fetcher
	mirror      Mirror
	log         logger.Logger
	transformer *domain.Transformer
	interval    time.Duration
	fetchTO     time.Duration
	meta        domain.Meta

	snapshot atomic.Pointer[domain.Snapshot]
	ready    atomic.Bool

	// pollMu serializes whole poll cycles; publication order and the
	// monotonic version depend on it.
	pollMu   sync.Mutex
	lastHash string
	version  uint64

	mu      sync.Mutex // guards the scheduling lifecycle below
	stopCh  chan struct{}
	trigger chan struct{}
}

func New(cfg Config, fetcher Fetcher, mirror Mirror, log logger.Logger) *Cache {
	c := &Cache{
		fetcher:     fetcher,
		mirror:      mirror,
		log:         log,
		transformer: domain.NewTransformer(cfg.PublicHTTPPort, cfg.PublicHTTPSPort),
		interval:    cfg.Interval,
		fetchTO:     cfg.FetchTimeout,
		meta: domain.Meta{
			PageTitle:       cfg.PageTitle,
			PollIntervalMs:  cfg.Interval.Milliseconds(),
			PublicHTTPPort:  cfg.PublicHTTPPort,
			PublicHTTPSPort: cfg.PublicHTTPSPort,
		},
		trigger: make(chan struct{}, 1),
	}
	c.snapshot.Store(&domain.Snapshot{
		Version:  "0",
		Services: []domain.Service{},
		Meta:     c.meta,
	})
	return c
}

// GetSnapshot returns the current snapshot. It never blocks and never
// triggers I/O; before the first successful poll it returns the empty
// version-"0" snapshot.
func (c *Cache) GetSnapshot() *domain.Snapshot {
	return c.snapshot.Load()
}

// IsReady reports whether at least one poll cycle has completed. A failed
// fetch still counts: readiness tracks attempts, not freshness.
func (c *Cache) IsReady() bool {
	return c.ready.Load()
}

// Start performs one poll synchronously, then schedules periodic polls
// and serves manual reload triggers. A zero interval skips the schedule
// but triggers keep working.
// A second Start cancels the previous schedule first, so at most one
// timer loop is ever active. The initial poll's failure is logged, not
// returned; the service stays up and serves what it has.
func (c *Cache) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.stopCh != nil {
		close(c.stopCh)
	}
	stopCh := make(chan struct{})
	c.stopCh = stopCh
	c.mu.Unlock()

	if err := c.pollOnce(ctx); err != nil {
		c.log.Error("initial poll failed", logger.Error(err))
	}

	// With a zero interval the tick channel stays nil and never fires,
	// but the loop still runs so manual reloads keep draining c.trigger.
	var ticker *time.Ticker
	var tick <-chan time.Time
	if c.interval > 0 {
		ticker = time.NewTicker(c.interval)
		tick = ticker.C
	} else {
		c.log.Info("scheduled polling disabled, manual refresh only")
	}

	go func() {
		if ticker != nil {
			defer ticker.Stop()
		}
		for {
			select {
			case <-tick:
				if err := c.pollOnce(ctx); err != nil {
					c.log.Error("scheduled poll failed", logger.Error(err))
				}
			case <-c.trigger:
				c.log.Info("manual poll triggered")
				if err := c.pollOnce(ctx); err != nil {
					c.log.Error("manual poll failed", logger.Error(err))
				}
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop cancels future scheduled polls. Idempotent; safe before Start. The
// last snapshot stays readable and an in-flight cycle is left to finish.
func (c *Cache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
}

// ForcePoll runs exactly one poll cycle now, independent of the schedule.
func (c *Cache) ForcePoll(ctx context.Context) error {
	return c.pollOnce(ctx)
}

// TriggerReload asks the scheduler loop for an immediate poll without
// blocking. It reports false when a reload is already pending or no
// scheduler loop is running.
func (c *Cache) TriggerReload() bool {
	select {
	case c.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Seed primes the cache from a previously persisted snapshot. It does not
// mark the cache ready; the next poll decides whether anything changed
// relative to the seeded content.
func (c *Cache) Seed(snap *domain.Snapshot) {
	if snap == nil {
		return
	}
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	if snap.Services == nil {
		snap.Services = []domain.Service{}
	}
	snap.Meta = c.meta
	if v, err := strconv.ParseUint(snap.Version, 10, 64); err == nil {
		c.version = v
	}
	if h, err := hashOf(snap.Services); err == nil {
		c.lastHash = h
	}
	c.snapshot.Store(snap)
}

func (c *Cache) pollOnce(ctx context.Context) error {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	// Ready is set once the attempt completes, whatever its outcome.
	defer c.ready.Store(true)

	fctx := ctx
	if c.fetchTO > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, c.fetchTO)
		defer cancel()
	}

	raw, err := c.fetcher.Fetch(fctx)
	if err != nil {
		c.log.Error("fetch failed, keeping previous snapshot", logger.Error(err))
		return err
	}

	services := make([]domain.Service, 0, len(raw))
	for _, r := range raw {
		if svc, ok := c.transformer.Transform(r); ok {
			services = append(services, svc)
		}
	}
	sort.SliceStable(services, func(i, j int) bool {
		return services[i].ID < services[j].ID
	})

	hash, err := hashOf(services)
	if err != nil {
		// Canonical services always serialize; reaching this means a
		// transformer bug, not a condition to recover from.
		c.log.Error("snapshot serialization failed", logger.Error(err))
		return err
	}

	changed := hash != c.lastHash
	if changed {
		c.version++
		now := time.Now()
		snap := &domain.Snapshot{
			Version:   strconv.FormatUint(c.version, 10),
			UpdatedAt: &now,
			Services:  services,
			Meta:      c.meta,
		}
		c.snapshot.Store(snap)
		c.lastHash = hash
		c.saveMirror(ctx, snap)
	}

	c.log.Info("poll completed",
		logger.Bool("changed", changed),
		logger.String("version", c.snapshot.Load().Version),
		logger.Int("count", len(services)),
	)
	return nil
}

func (c *Cache) saveMirror(ctx context.Context, snap *domain.Snapshot) {
	if c.mirror == nil {
		return
	}
	mctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.mirror.SaveSnapshot(mctx, snap); err != nil {
		c.log.Warn("failed to mirror snapshot", logger.Error(err))
	}
}

// hashOf digests the deterministic JSON of the sorted service list. Equality
// testing only; not a security hash.
func hashOf(services []domain.Service) (string, error) {
	data, err := json.Marshal(services)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
