package playback

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Track is an immutable catalog entry. Many rooms may reference the same
// track; the id is derived from the source locator, so registering the same
// source twice yields the same entry.
type Track struct {
	ID       string
	Name     string
	Locator  string
	Duration time.Duration
}

// Catalog is the process-wide content-addressed track catalog.
type Catalog struct {
	mu     sync.RWMutex
	tracks map[string]Track
}

// NewCatalog builds an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{tracks: make(map[string]Track)}
}

// Register adds a track, or returns the existing entry for the same source.
func (c *Catalog) Register(name, locator string, duration time.Duration) Track {
	id := trackID(locator)

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tracks[id]; ok {
		return t
	}
	t := Track{ID: id, Name: name, Locator: locator, Duration: duration}
	c.tracks[id] = t
	return t
}

// Get looks a track up by id.
func (c *Catalog) Get(id string) (Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tracks[id]
	return t, ok
}

func trackID(locator string) string {
	sum := sha256.Sum256([]byte(locator))
	return hex.EncodeToString(sum[:8])
}
