// Package deduper tracks the organization identifiers already emitted
// within one search pass, so overlapping scroll windows do not produce
// duplicate records. A Deduper is scoped to a single pass and discarded
// with it.
package deduper

import (
	"context"
	"sync"
)

type Deduper interface {
	// AddIfNotExists marks key as seen and reports whether it was new.
	AddIfNotExists(ctx context.Context, key string) bool
}

func New() Deduper {
	return &deduper{
		seen: make(map[string]struct{}),
	}
}

type deduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func (d *deduper) AddIfNotExists(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return false
	}

	d.seen[key] = struct{}{}

	return true
}
