// Package modelcache holds loaded model handles shared by all pipeline workers.
package modelcache

import (
	"context"
	"sync"
	"time"

	"github.com/marketscope/predictd/pkg/models"
	"golang.org/x/sync/singleflight"
)

// Loader resolves a model name into a ready handle. Predictor providers
// implement this; the load may block on remote I/O.
type Loader interface {
	LoadModel(ctx context.Context, modelName string) (*models.ModelHandle, error)
}

type entry struct {
	handle   *models.ModelHandle
	loadedAt time.Time
}

// Cache is a load-once model handle cache. Concurrent first accesses for the
// same name collapse into a single load; every caller receives the same
// handle. A non-zero TTL expires entries, which are then reloaded through the
// same single-flight path on next access.
type Cache struct {
	loader Loader
	ttl    time.Duration

	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
}

func New(loader Loader, ttl time.Duration) *Cache {
	return &Cache{
		loader:  loader,
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// GetOrLoad returns the cached handle for modelName, loading it on first
// access. Failed loads are not cached; the next caller retries.
func (c *Cache) GetOrLoad(ctx context.Context, modelName string) (*models.ModelHandle, error) {
	if handle, ok := c.lookup(modelName); ok {
		return handle, nil
	}

	v, err, _ := c.group.Do(modelName, func() (any, error) {
		// Re-check under the flight: a previous winner may have populated the
		// entry between our lookup and joining the group.
		if handle, ok := c.lookup(modelName); ok {
			return handle, nil
		}

		handle, err := c.loader.LoadModel(ctx, modelName)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[modelName] = entry{handle: handle, loadedAt: time.Now()}
		c.mu.Unlock()
		return handle, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.ModelHandle), nil
}

// Reset drops all cached handles. The next access per name reloads.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len reports the number of live (non-expired) entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, e := range c.entries {
		if !c.expired(e) {
			n++
		}
	}
	return n
}

func (c *Cache) lookup(modelName string) (*models.ModelHandle, bool) {
	c.mu.RLock()
	e, ok := c.entries[modelName]
	c.mu.RUnlock()
	if !ok || c.expired(e) {
		return nil, false
	}
	return e.handle, true
}

func (c *Cache) expired(e entry) bool {
	return c.ttl > 0 && time.Since(e.loadedAt) > c.ttl
}
