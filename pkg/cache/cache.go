// Package cache mirrors the remote item store into memory.
//
// The remote service only addresses items by ID and reports partial paths.
// The cache keeps three views over what it has fetched:
//   - id -> Item, populated by GetItem and by every listing
//   - parent id -> ordered listing, populated by fully paged GetChildren
//   - absolute path -> id, a reverse index for path resolution
//
// Nothing expires on its own. Callers that mutate the remote store must
// invalidate what they touched (Invalidate, InvalidateListing,
// InvalidateTree); a fresh fetch always wins over a stale copy.
package cache

import (
	"context"
	"strings"
	"sync"

	"github.com/marmos91/dittocloud/internal/logger"
	"github.com/marmos91/dittocloud/pkg/remote"
)

// Config configures the cache.
type Config struct {
	// PathIndex enables the absolute path -> id reverse index. Disabling it
	// never changes results, only the number of listings walked.
	PathIndex bool `mapstructure:"path_index"`
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{PathIndex: true}
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Items    int
	Listings int
	Paths    int
	Devices  int
	Hits     uint64
	Misses   uint64
}

// Cache is the Item Cache.
//
// It is meant for a single session. Maps are guarded by a mutex so Stats
// can be read from another goroutine (e.g. a metrics scrape), but no lock is
// held across service calls: two concurrent fetches of the same ID simply
// both hit the service.
type Cache struct {
	svc     remote.Service
	cfg     Config
	metrics Metrics

	mu       sync.Mutex
	items    map[int64]*Item
	listings map[int64][]*Item
	paths    map[string]int64
	devices  map[int64]string
	hits     uint64
	misses   uint64
}

// New creates an empty cache in front of svc. metrics may be nil.
func New(svc remote.Service, cfg Config, metrics Metrics) *Cache {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Cache{
		svc:      svc,
		cfg:      cfg,
		metrics:  metrics,
		items:    make(map[int64]*Item),
		listings: make(map[int64][]*Item),
		paths:    make(map[string]int64),
		devices:  make(map[int64]string),
	}
}

// Service returns the underlying remote service.
func (c *Cache) Service() remote.Service {
	return c.svc
}

// Get returns the item for id, fetching it on a miss.
// The root is synthetic and never fetched.
func (c *Cache) Get(ctx context.Context, id int64) (*Item, error) {
	if id == RootID {
		return Root(), nil
	}

	c.mu.Lock()
	item, ok := c.items[id]
	c.mu.Unlock()
	c.observe(KindItem, ok)
	if ok {
		return item.Clone(), nil
	}

	rec, err := c.svc.GetItem(ctx, id)
	if err != nil {
		return nil, remote.AsServiceError("get item", err)
	}
	if rec == nil {
		return nil, remote.NewError(remote.ErrSchema, "empty record for item %d", id)
	}

	item, err = c.toItem(ctx, rec)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.store(item)
	c.recordSize()
	c.mu.Unlock()

	return item.Clone(), nil
}

// Children returns the complete listing of parentID in service order,
// following continuation tokens until the service reports none.
// Every child is also cached by ID.
func (c *Cache) Children(ctx context.Context, parentID int64) ([]*Item, error) {
	c.mu.Lock()
	listing, ok := c.listings[parentID]
	c.mu.Unlock()
	c.observe(KindListing, ok)
	if ok {
		return cloneAll(listing), nil
	}

	var (
		records []*remote.Record
		token   string
		pages   int
	)
	for {
		page, next, err := c.svc.GetChildren(ctx, parentID, token)
		if err != nil {
			return nil, remote.AsServiceError("list children", err)
		}
		pages++
		records = append(records, page...)
		logger.Debug("listing %d: page %d with %d items (continuation: %t)", parentID, pages, len(page), next != "")
		if next == "" {
			break
		}
		token = next
	}
	c.metrics.ObserveListing(pages, len(records))

	if parentID == RootID {
		c.rememberDevices(records)
	}

	listing = make([]*Item, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			return nil, remote.NewError(remote.ErrSchema, "empty record in listing of %d", parentID)
		}
		item, err := c.toItem(ctx, rec)
		if err != nil {
			return nil, err
		}
		listing = append(listing, item)
	}

	c.mu.Lock()
	for _, item := range listing {
		c.store(item)
	}
	c.listings[parentID] = listing
	c.recordSize()
	c.mu.Unlock()

	return cloneAll(listing), nil
}

// Lookup consults the path index. It never calls the service.
func (c *Cache) Lookup(path string) (*Item, bool) {
	if path == "/" {
		return Root(), true
	}
	if !c.cfg.PathIndex {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.paths[path]
	if !ok {
		c.observeLocked(KindPath, false)
		return nil, false
	}
	item, ok := c.items[id]
	if !ok || item.AbsolutePath != path {
		delete(c.paths, path)
		c.observeLocked(KindPath, false)
		return nil, false
	}
	c.observeLocked(KindPath, true)
	return item.Clone(), true
}

// DeviceName returns the name of a device, listing the root on first use
// and once more if the device is not known yet.
func (c *Cache) DeviceName(ctx context.Context, deviceID int64) (string, error) {
	c.mu.Lock()
	name, ok := c.devices[deviceID]
	c.mu.Unlock()
	if ok {
		return name, nil
	}

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			c.InvalidateListing(RootID)
		}
		if _, err := c.Children(ctx, RootID); err != nil {
			return "", err
		}
		c.mu.Lock()
		name, ok = c.devices[deviceID]
		c.mu.Unlock()
		if ok {
			return name, nil
		}
	}
	return "", remote.NewError(remote.ErrSchema, "unknown device %d", deviceID)
}

// Invalidate drops id from the item map, its own listing and the path
// index. The parent's listing is left alone; use InvalidateListing for it.
func (c *Cache) Invalidate(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked(id)
	c.recordSize()
}

// InvalidateListing drops the cached listing of parentID.
func (c *Cache) InvalidateListing(parentID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listings, parentID)
	c.recordSize()
}

// InvalidateTree drops id and every cached descendant, found both through
// cached listings and through the path index. Used after a folder is moved
// or renamed, since every path below it changed.
func (c *Cache) InvalidateTree(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var prefix string
	if item, ok := c.items[id]; ok {
		prefix = item.AbsolutePath + "/"
	}

	stack := []int64{id}
	seen := make(map[int64]bool)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		for _, child := range c.listings[cur] {
			stack = append(stack, child.ID)
		}
		c.invalidateLocked(cur)
	}

	if prefix != "" {
		for childID, item := range c.items {
			if strings.HasPrefix(item.AbsolutePath, prefix) {
				c.invalidateLocked(childID)
			}
		}
	}
	c.recordSize()
}

// Clear drops everything except the known device names.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.items)
	clear(c.listings)
	clear(c.paths)
	c.recordSize()
}

// Stats returns counters and sizes.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Items:    len(c.items),
		Listings: len(c.listings),
		Paths:    len(c.paths),
		Devices:  len(c.devices),
		Hits:     c.hits,
		Misses:   c.misses,
	}
}

// ============================================================================
// Internals
// ============================================================================

// toItem converts a record, reconstructing its absolute path.
func (c *Cache) toItem(ctx context.Context, rec *remote.Record) (*Item, error) {
	if rec.Name == "" {
		return nil, remote.NewError(remote.ErrSchema, "item %d has no name", rec.ID)
	}

	item := &Item{
		ID:                   rec.ID,
		ParentID:             rec.ParentID,
		DeviceID:             rec.DeviceID,
		Name:                 rec.Name,
		Category:             rec.Category,
		Size:                 rec.Size,
		InRecycleBin:         rec.InRecycleBin,
		CreationTime:         rec.CreationTime,
		LastModificationTime: rec.LastModificationTime,
		LastUploadTime:       rec.LastUploadTime,
		URL:                  rec.URL,
		OptimizedURL:         rec.OptimizedURL,
		Data:                 rec.Data,
	}

	if rec.Category == remote.CategoryDevice || rec.ParentID == RootID {
		item.AbsolutePath = "/" + rec.Name
		return item, nil
	}

	device, err := c.DeviceName(ctx, rec.DeviceID)
	if err != nil {
		return nil, err
	}

	if rec.Category == remote.CategoryRecycleBin {
		item.AbsolutePath = "/" + device + "/" + remote.RecycleBinName
		return item, nil
	}

	if rec.FilePath == "" {
		return nil, remote.NewError(remote.ErrSchema, "item %d (%s) has no file path", rec.ID, rec.Name)
	}

	prefix := "/" + device
	if rec.InRecycleBin {
		prefix += "/" + remote.RecycleBinName
	}
	partial := rec.FilePath
	if !strings.HasPrefix(partial, "/") {
		partial = "/" + partial
	}
	item.AbsolutePath = prefix + partial
	return item, nil
}

func (c *Cache) rememberDevices(records []*remote.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range records {
		if rec != nil && rec.Category == remote.CategoryDevice && rec.Name != "" {
			c.devices[rec.ID] = rec.Name
		}
	}
}

// store caches item by ID and path. Callers hold mu.
func (c *Cache) store(item *Item) {
	if old, ok := c.items[item.ID]; ok && old.AbsolutePath != item.AbsolutePath {
		if c.paths[old.AbsolutePath] == item.ID {
			delete(c.paths, old.AbsolutePath)
		}
	}
	c.items[item.ID] = item
	if c.cfg.PathIndex {
		c.paths[item.AbsolutePath] = item.ID
	}
}

// invalidateLocked drops one id. Callers hold mu.
func (c *Cache) invalidateLocked(id int64) {
	if id == RootID {
		delete(c.listings, RootID)
		return
	}
	if item, ok := c.items[id]; ok {
		if c.paths[item.AbsolutePath] == id {
			delete(c.paths, item.AbsolutePath)
		}
		delete(c.items, id)
	}
	delete(c.listings, id)
}

func (c *Cache) observe(kind string, hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observeLocked(kind, hit)
}

func (c *Cache) observeLocked(kind string, hit bool) {
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	c.metrics.ObserveLookup(kind, hit)
}

// recordSize publishes sizes. Callers hold mu.
func (c *Cache) recordSize() {
	c.metrics.RecordSize(len(c.items), len(c.listings))
}

func cloneAll(items []*Item) []*Item {
	out := make([]*Item, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}
