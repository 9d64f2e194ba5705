// Package dedupe tracks keys of work that is already in flight so duplicate
// submissions can be dropped.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Deduper records keys to keep at most one unit of work per key in flight.
type Deduper interface {
	// SeenAndRecord reports whether key is already recorded and records it if
	// not. The check and the record are atomic.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so the same work can be submitted again.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inFlight is a mutex-guarded key set. When bounded it evicts the oldest key
// once full, so a key whose Unrecord was lost cannot block its work forever.
type inFlight struct {
	mu      sync.Mutex
	keys    map[string]*list.Element
	order   *list.List // oldest at the front
	maxSize int
}

// NewInMemoryDeduper returns a Deduper kept in process memory.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inFlight{
		keys:    make(map[string]*list.Element),
		order:   list.New(),
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inFlight) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.keys[key]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.keys, oldest.Value.(string))
	}
	d.keys[key] = d.order.PushBack(key)
	return false
}

func (d *inFlight) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.keys[key]; ok {
		d.order.Remove(el)
		delete(d.keys, key)
	}
}

func (d *inFlight) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
