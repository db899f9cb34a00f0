package scraper

import (
	"context"
	"sync"

	"github.com/gosom/scrapemate"

	"github.com/gosom/yandex-maps-scraper/ymaps"
)

// collector is a scrapemate ResultWriter that accumulates the entries a
// pass produces so the caller can read them synchronously once the app
// stops. Results are kept in arrival order.
type collector struct {
	mu      sync.Mutex
	entries []*ymaps.Entry
}

func newCollector() *collector {
	return &collector{
		entries: []*ymaps.Entry{},
	}
}

func (c *collector) Run(ctx context.Context, in <-chan scrapemate.Result) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case result, ok := <-in:
			if !ok {
				return nil
			}

			c.add(result.Data)
		}
	}
}

func (c *collector) add(data any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch v := data.(type) {
	case []*ymaps.Entry:
		c.entries = append(c.entries, v...)
	case *ymaps.Entry:
		c.entries = append(c.entries, v)
	}
}

func (c *collector) Entries() []*ymaps.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*ymaps.Entry, len(c.entries))
	copy(out, c.entries)

	return out
}
