// Package mediainfo caches probed media durations and sizes across runs.
package mediainfo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/singleflight"
)

const (
	// RetentionWindow is how long an unused record survives a save.
	RetentionWindow = 7 * 24 * time.Hour
	// MaxAge is how long any record survives a save, used or not.
	MaxAge = 30 * 24 * time.Hour
	// MaxRecords caps the persisted file, keeping the most recently used.
	MaxRecords = 3000
)

// ErrNotFound is returned when a path has no record and cannot be probed.
var ErrNotFound = errors.New("media info not found")

// Info is what callers need from a probe.
type Info struct {
	Duration time.Duration
	Size     int64
}

// Record is one cached entry.
type Record struct {
	Key      string
	Duration time.Duration
	Size     int64
	Created  time.Time
	LastUsed time.Time
}

// Expirable reports whether the record should be dropped at save time.
func (r Record) Expirable(now time.Time) bool {
	return now.Sub(r.LastUsed) > RetentionWindow || now.Sub(r.Created) > MaxAge
}

// Prober inspects a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (Info, error)
}

// Store persists records.
type Store interface {
	Load() ([]Record, error)
	Save(records []Record) error
	Clear() error
}

// Cache maps source paths to probed media info. At most one probe runs per
// path at a time; paths whose probe failed are not retried for the life of
// the Cache. Expiry is applied only by Save.
type Cache struct {
	prober Prober
	store  Store
	logger hclog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	records map[string]*Record
	failed  map[string]struct{}
	flights map[string]*flight

	group singleflight.Group
}

// flight is the context shared by every caller waiting on one probe. It is
// cancelled when the last waiter leaves, not when the first one does.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// errAbandoned marks a probe whose waiters all left before it finished.
var errAbandoned = fmt.Errorf("%w: probe abandoned", ErrNotFound)

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New returns an empty Cache. Call Load to read persisted records.
func New(prober Prober, store Store, opts ...Option) *Cache {
	c := &Cache{
		prober:  prober,
		store:   store,
		now:     time.Now,
		records: make(map[string]*Record),
		failed:  make(map[string]struct{}),
		flights: make(map[string]*flight),
	}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = hclog.NewNullLogger()
	}
	return c
}

// Key normalizes a path into a cache key.
func Key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Load merges persisted records into memory. Records already in memory win.
func (c *Cache) Load() error {
	if c.store == nil {
		return nil
	}
	recs, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("load media cache: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range recs {
		if _, ok := c.records[r.Key]; ok {
			continue
		}
		r := r
		if r.LastUsed.Before(r.Created) {
			r.LastUsed = r.Created
		}
		c.records[r.Key] = &r
	}
	c.logger.Debug("media cache loaded", "records", len(recs))
	return nil
}

// Get returns the media info for path, probing on a miss. Concurrent callers
// for the same path share one probe; a caller whose ctx ends stops waiting
// without failing the others.
func (c *Cache) Get(ctx context.Context, path string) (Info, error) {
	key := Key(path)
	for {
		if info, ok := c.touch(key); ok {
			return info, nil
		}
		if c.isFailed(key) || c.prober == nil {
			return Info{}, ErrNotFound
		}
		if err := ctx.Err(); err != nil {
			return Info{}, fmt.Errorf("%w: %v", ErrNotFound, err)
		}

		info, err := c.await(ctx, key, path)
		if errors.Is(err, errAbandoned) && ctx.Err() == nil {
			// We joined a probe the other waiters gave up on.
			continue
		}
		return info, err
	}
}

func (c *Cache) await(ctx context.Context, key, path string) (Info, error) {
	f := c.join(ctx, key)
	defer c.leave(key, f)

	ch := c.group.DoChan(key, func() (any, error) {
		if info, ok := c.touch(key); ok {
			return info, nil
		}
		if c.isFailed(key) {
			return nil, ErrNotFound
		}
		info, err := c.prober.Probe(f.ctx, path)
		if err != nil {
			if f.ctx.Err() != nil {
				return nil, errAbandoned
			}
			c.markFailed(key)
			c.logger.Warn("probe failed", "path", path, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return c.insert(key, info), nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Info{}, res.Err
		}
		if res.Shared {
			c.logger.Trace("probe shared", "path", path)
		}
		return res.Val.(Info), nil
	case <-ctx.Done():
		return Info{}, fmt.Errorf("%w: %v", ErrNotFound, ctx.Err())
	}
}

// join registers a waiter on the flight for key, starting one if needed.
// The flight context keeps ctx's values but not its cancellation.
func (c *Cache) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++
	return f
}

func (c *Cache) leave(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
	}
}

func (c *Cache) touch(key string) (Info, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.records[key]
	if !ok {
		return Info{}, false
	}
	if now := c.now(); now.After(r.LastUsed) {
		r.LastUsed = now
	}
	return Info{Duration: r.Duration, Size: r.Size}, true
}

func (c *Cache) insert(key string, info Info) Info {
	// Millisecond precision matches the persisted form.
	info.Duration = info.Duration.Truncate(time.Millisecond)
	now := c.now()
	c.mu.Lock()
	c.records[key] = &Record{
		Key:      key,
		Duration: info.Duration,
		Size:     info.Size,
		Created:  now,
		LastUsed: now,
	}
	c.mu.Unlock()
	return info
}

func (c *Cache) isFailed(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.failed[key]
	return ok
}

func (c *Cache) markFailed(key string) {
	c.mu.Lock()
	c.failed[key] = struct{}{}
	c.mu.Unlock()
}

// Failed returns the keys whose probe failed, sorted.
func (c *Cache) Failed() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.failed))
	for k := range c.failed {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of records in memory.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Records returns a copy of every in-memory record, most recently used first.
func (c *Cache) Records() []Record {
	c.mu.RLock()
	out := make([]Record, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, *r)
	}
	c.mu.RUnlock()
	sortByRecency(out)
	return out
}

// Survivors applies the save-time eviction rules to recs.
func Survivors(recs []Record, now time.Time) []Record {
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if !r.Expirable(now) {
			out = append(out, r)
		}
	}
	sortByRecency(out)
	if len(out) > MaxRecords {
		out = out[:MaxRecords]
	}
	return out
}

// Save persists the records that survive eviction.
func (c *Cache) Save() error {
	if c.store == nil {
		return nil
	}
	recs := c.Records()
	c.mu.RLock()
	kept := recs[:0]
	for _, r := range recs {
		if _, bad := c.failed[r.Key]; !bad {
			kept = append(kept, r)
		}
	}
	c.mu.RUnlock()

	out := Survivors(kept, c.now())
	if err := c.store.Save(out); err != nil {
		return fmt.Errorf("save media cache: %w", err)
	}
	c.logger.Debug("media cache saved", "records", len(out), "evicted", len(kept)-len(out))
	return nil
}

// Clear drops every record and failure and removes the persisted file.
func (c *Cache) Clear() error {
	c.mu.Lock()
	c.records = make(map[string]*Record)
	c.failed = make(map[string]struct{})
	c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	return c.store.Clear()
}

func sortByRecency(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].LastUsed.Equal(recs[j].LastUsed) {
			return recs[i].LastUsed.After(recs[j].LastUsed)
		}
		return recs[i].Key < recs[j].Key
	})
}
