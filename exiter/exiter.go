// Package exiter watches the progress counters of a scrape pass and
// cancels the app context once every seed job has completed and every
// place found has been processed. Without it the scrapemate app would only
// stop on its inactivity timeout.
package exiter

import (
	"context"
	"sync"
	"time"
)

type Exiter interface {
	SetSeedCount(count int)
	SetCancelFunc(cancel context.CancelFunc)
	IncrSeedCompleted(delta int)
	IncrPlacesFound(delta int)
	IncrPlacesCompleted(delta int)
	Run(ctx context.Context)
}

func New() Exiter {
	return &exiter{}
}

type exiter struct {
	mu sync.Mutex

	seedCount       int
	seedCompleted   int
	placesFound     int
	placesCompleted int

	cancel context.CancelFunc
}

func (e *exiter) SetSeedCount(count int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seedCount = count
}

func (e *exiter) SetCancelFunc(cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancel = cancel
}

func (e *exiter) IncrSeedCompleted(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seedCompleted += delta
}

func (e *exiter) IncrPlacesFound(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.placesFound += delta
}

func (e *exiter) IncrPlacesCompleted(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.placesCompleted += delta
}

func (e *exiter) Run(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.isDone() {
				e.mu.Lock()
				cancel := e.cancel
				e.mu.Unlock()

				if cancel != nil {
					cancel()
				}

				return
			}
		}
	}
}

func (e *exiter) isDone() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.seedCompleted < e.seedCount {
		return false
	}

	return e.placesCompleted >= e.placesFound
}
