// Package scraper runs search and detail passes against Yandex Maps. Each
// pass gets its own browser session (a one-shot scrapemate app), owned
// exclusively by that pass; concurrent passes are bounded by a semaphore
// rather than sharing a session.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gosom/scrapemate"
	"github.com/gosom/scrapemate/scrapemateapp"
	"golang.org/x/sync/semaphore"

	"github.com/gosom/yandex-maps-scraper/deduper"
	"github.com/gosom/yandex-maps-scraper/exiter"
	"github.com/gosom/yandex-maps-scraper/ymaps"
)

// MaxResults is the hard ceiling on records per search pass; caller limits
// are silently clamped to it.
const MaxResults = 100

const exitOnInactivity = 3 * time.Minute

var (
	ErrEmptyQuery = errors.New("query must not be empty")
	ErrNotFound   = errors.New("organization not found")
	ErrNoOrgID    = errors.New("organization id must not be empty")
)

type Scraper struct {
	headless bool
	sessions *semaphore.Weighted
}

// New builds a Scraper that allows at most maxSessions concurrent browser
// sessions.
func New(headless bool, maxSessions int64) *Scraper {
	if maxSessions < 1 {
		maxSessions = 1
	}

	return &Scraper{
		headless: headless,
		sessions: semaphore.NewWeighted(maxSessions),
	}
}

// Search runs one search pass and returns the extracted organizations in
// render order. The limit is clamped to [0, MaxResults]. Once the result
// list has started rendering, failures degrade to partial results instead
// of errors; only session startup and context errors surface.
func (s *Scraper) Search(ctx context.Context, query, city string, limit int) ([]*ymaps.Entry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if limit < 0 {
		limit = 0
	}

	if limit > MaxResults {
		limit = MaxResults
	}

	if limit == 0 {
		return []*ymaps.Entry{}, nil
	}

	if err := s.sessions.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sessions.Release(1)

	results := newCollector()

	mon := exiter.New()
	mon.SetSeedCount(1)

	job := ymaps.NewSearchJob("", query, city, limit,
		ymaps.WithDeduper(deduper.New()),
		ymaps.WithExitMonitor(mon),
	)

	if err := s.runPass(ctx, results, mon, job); err != nil {
		return nil, err
	}

	return results.Entries(), nil
}

// Details fetches the detail page of one organization. It returns
// ErrNotFound when the page navigation itself fails; individual field
// misses still produce a record with empty sentinels.
func (s *Scraper) Details(ctx context.Context, orgID string) (*ymaps.Entry, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, ErrNoOrgID
	}

	if err := s.sessions.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sessions.Release(1)

	results := newCollector()

	mon := exiter.New()
	mon.SetSeedCount(1)

	job := ymaps.NewDetailJob("", orgID, ymaps.WithDetailExitMonitor(mon))

	if err := s.runPass(ctx, results, mon, job); err != nil {
		return nil, err
	}

	entries := results.Entries()
	if len(entries) == 0 {
		return nil, ErrNotFound
	}

	return entries[0], nil
}

// runPass starts a one-shot scrapemate app for a single job and blocks
// until the exit monitor reports completion or ctx is cancelled. Post-start
// failures are logged, not returned: whatever the collector holds is the
// outcome of the pass.
func (s *Scraper) runPass(ctx context.Context, results *collector, mon exiter.Exiter, job scrapemate.IJob) error {
	passCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	mon.SetCancelFunc(cancel)

	app, err := s.newApp(results)
	if err != nil {
		return fmt.Errorf("starting browser session: %w", err)
	}

	defer func() {
		if cerr := app.Close(); cerr != nil {
			log.Printf("scraper: closing session: %v", cerr)
		}
	}()

	go mon.Run(passCtx)

	err = app.Start(passCtx, job)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		log.Printf("scraper: pass finished with error: %v", err)
	}

	// The caller's own cancellation still surfaces.
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return nil
}

func (s *Scraper) newApp(w scrapemate.ResultWriter) (*scrapemateapp.ScrapemateApp, error) {
	opts := []func(*scrapemateapp.Config) error{
		scrapemateapp.WithConcurrency(1),
		scrapemateapp.WithExitOnInactivity(exitOnInactivity),
	}

	if s.headless {
		opts = append(opts, scrapemateapp.WithJS(scrapemateapp.DisableImages()))
	} else {
		opts = append(opts, scrapemateapp.WithJS(scrapemateapp.Headfull(), scrapemateapp.DisableImages()))
	}

	cfg, err := scrapemateapp.NewConfig([]scrapemate.ResultWriter{w}, opts...)
	if err != nil {
		return nil, err
	}

	return scrapemateapp.NewScrapeMateApp(cfg)
}
