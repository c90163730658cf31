package handlers

import (
	"sync"
	"time"

	"github.com/cxusage/cxusage/internal/usage"
	"github.com/cxusage/cxusage/server/internal/database"
)

// datasetSource is the slice of the database the cache needs.
type datasetSource interface {
	GetDatasets(userID string) ([]database.Dataset, error)
}

// ViewCache caches each user's merged aggregate. Uploads invalidate
// with a short debounce so a burst of client syncs triggers one rebuild
// instead of one per upload.
type ViewCache struct {
	db    datasetSource
	delay time.Duration

	mu      sync.Mutex
	merged  map[string]*usage.Aggregate
	pending map[string]int // generation counter per user
}

// NewViewCache creates a cache with the given invalidation debounce
func NewViewCache(db datasetSource, delay time.Duration) *ViewCache {
	return &ViewCache{
		db:      db,
		delay:   delay,
		merged:  make(map[string]*usage.Aggregate),
		pending: make(map[string]int),
	}
}

// Get returns the user's merged aggregate, rebuilding it from the
// stored datasets on a cache miss. Nil with nil error means the user
// has no usable data yet.
func (c *ViewCache) Get(userID string) (*usage.Aggregate, error) {
	c.mu.Lock()
	if merged, ok := c.merged[userID]; ok {
		c.mu.Unlock()
		return merged, nil
	}
	c.mu.Unlock()

	merged, err := c.rebuild(userID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// Keep a rebuild racing an invalidation from overwriting the
	// invalidated slot with stale data.
	if _, invalidating := c.pending[userID]; !invalidating {
		c.merged[userID] = merged
	}
	c.mu.Unlock()
	return merged, nil
}

// Invalidate drops the user's cached view after the debounce window.
// Later invalidations bump the generation so only the last timer fires.
func (c *ViewCache) Invalidate(userID string) {
	c.mu.Lock()
	c.pending[userID]++
	gen := c.pending[userID]
	c.mu.Unlock()

	time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.pending[userID] != gen {
			// A newer invalidation superseded this timer.
			return
		}
		delete(c.pending, userID)
		delete(c.merged, userID)
	})
}

// rebuild merges every stored client dataset for the user. Documents
// that no longer decode are skipped.
func (c *ViewCache) rebuild(userID string) (*usage.Aggregate, error) {
	datasets, err := c.db.GetDatasets(userID)
	if err != nil {
		return nil, err
	}

	inputs := make([]*usage.Aggregate, 0, len(datasets))
	for _, ds := range datasets {
		agg, err := usage.DecodeImport(ds.Document)
		if err != nil {
			continue
		}
		inputs = append(inputs, agg)
	}
	return usage.Merge(inputs), nil
}
