package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/blob-tools-mcp/internal/blob"
)

// defaultRunCapacity is the number of detection runs kept for follow-up tools.
const defaultRunCapacity = 32

// DetectionRun is a cached blob_detect result.
type DetectionRun struct {
	ID        string
	Path      string
	Width     int
	Height    int
	Params    blob.Params
	Octaves   int
	Result    *blob.Result
	CreatedAt time.Time
}

// RunCache keeps the most recent detection runs by ID. When full, the
// oldest run is dropped. RunCache is safe for concurrent use.
type RunCache struct {
	mu       sync.RWMutex
	capacity int
	runs     map[string]*DetectionRun
	order    []string
}

// NewRunCache creates a cache holding up to capacity runs (at least one).
func NewRunCache(capacity int) *RunCache {
	if capacity < 1 {
		capacity = 1
	}
	return &RunCache{
		capacity: capacity,
		runs:     make(map[string]*DetectionRun),
	}
}

// Put assigns run a new ID, stores it and returns the ID.
func (c *RunCache) Put(run *DetectionRun) string {
	run.ID = uuid.NewString()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.order) >= c.capacity {
		delete(c.runs, c.order[0])
		c.order = c.order[1:]
	}
	c.runs[run.ID] = run
	c.order = append(c.order, run.ID)
	return run.ID
}

// Get returns the run with the given ID.
func (c *RunCache) Get(id string) (*DetectionRun, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	run, ok := c.runs[id]
	return run, ok
}

// Len reports the number of cached runs.
func (c *RunCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.runs)
}
