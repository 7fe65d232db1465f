// Package dedupe tracks keys that already have work pending so repeated
// triggers for the same key can be folded into one.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSize = 10_000

// Deduper records keys to ensure at-most-one pending unit of work per key.
type Deduper interface {
	// SeenAndRecord atomically checks if key is recorded and records it if not.
	// Returns true if key was already recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord releases key once its work finished or could not be scheduled.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryDeduper is a bounded set. When full, the oldest key is dropped so
// a stuck key can never block new ones forever.
type inMemoryDeduper struct {
	mu      sync.Mutex
	order   *list.List               // oldest at front
	index   map[string]*list.Element // key -> element in order
	maxSize int                      // <= 0 means unbounded
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		order:   list.New(),
		index:   make(map[string]*list.Element),
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.index[key]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.index, oldest.Value.(string))
	}
	d.index[key] = d.order.PushBack(key)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key]; ok {
		d.order.Remove(el)
		delete(d.index, key)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
