package ymaps

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/gosom/scrapemate"

	"github.com/gosom/yandex-maps-scraper/deduper"
	"github.com/gosom/yandex-maps-scraper/exiter"
)

type SearchJobOptions func(*SearchJob)

// SearchJob drives one search pass: it navigates the Yandex Maps landing
// page, submits the composed query, scroll-paginates the result list and
// parses the rendered snippets into entries.
type SearchJob struct {
	scrapemate.Job

	Query string
	City  string
	Limit int

	Deduper     deduper.Deduper
	ExitMonitor exiter.Exiter
}

func NewSearchJob(id, query, city string, limit int, opts ...SearchJobOptions) *SearchJob {
	const (
		maxRetries = 3
		prio       = scrapemate.PriorityLow
	)

	if id == "" {
		id = uuid.New().String()
	}

	job := SearchJob{
		Job: scrapemate.Job{
			ID:         id,
			Method:     http.MethodGet,
			URL:        landingURL,
			MaxRetries: maxRetries,
			Priority:   prio,
		},
		Query: query,
		City:  city,
		Limit: limit,
	}

	for _, opt := range opts {
		opt(&job)
	}

	return &job
}

func WithDeduper(d deduper.Deduper) SearchJobOptions {
	return func(j *SearchJob) {
		j.Deduper = d
	}
}

func WithExitMonitor(e exiter.Exiter) SearchJobOptions {
	return func(j *SearchJob) {
		j.ExitMonitor = e
	}
}

// SearchQuery is the string typed into the search box: the query plus the
// optional city separated by a single space.
func (j *SearchJob) SearchQuery() string {
	return strings.TrimSpace(j.Query + " " + j.City)
}

func (j *SearchJob) Process(ctx context.Context, resp *scrapemate.Response) (any, []scrapemate.IJob, error) {
	defer func() {
		resp.Document = nil
		resp.Body = nil
	}()

	defer func() {
		if j.ExitMonitor != nil {
			j.ExitMonitor.IncrSeedCompleted(1)
		}
	}()

	log := scrapemate.GetLoggerFromContext(ctx)

	// A structural failure before the result list rendered (search box or
	// list container never appeared) ends the pass with zero results, it
	// does not surface as an error to the caller.
	if resp.Error != nil {
		log.Warn("search pass failed before results rendered", "query", j.SearchQuery(), "error", resp.Error)

		return []*Entry{}, nil, nil
	}

	doc, ok := resp.Document.(*goquery.Document)
	if !ok {
		return nil, nil, fmt.Errorf("could not convert to goquery document")
	}

	entries := entriesFromDoc(ctx, doc, j.Limit, j.Deduper)

	if j.ExitMonitor != nil {
		j.ExitMonitor.IncrPlacesFound(len(entries))
		j.ExitMonitor.IncrPlacesCompleted(len(entries))
	}

	log.Info(fmt.Sprintf("%d organizations extracted", len(entries)))

	return entries, nil, nil
}

// entriesFromDoc walks the rendered snippet nodes in order and extracts up
// to limit records, dropping the ones whose id was already seen this pass.
// Records without a stable id cannot be deduplicated and always pass
// through.
func entriesFromDoc(ctx context.Context, doc *goquery.Document, limit int, dedup deduper.Deduper) []*Entry {
	entries := make([]*Entry, 0, limit)

	doc.Find(snippetSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(entries) >= limit {
			return false
		}

		entry := EntryFromSnippet(s)

		if entry.ID != "" && dedup != nil && !dedup.AddIfNotExists(ctx, entry.ID) {
			return true
		}

		entries = append(entries, entry)

		return true
	})

	return entries
}

func (j *SearchJob) BrowserActions(ctx context.Context, page scrapemate.BrowserPage) scrapemate.Response {
	var resp scrapemate.Response

	pageResponse, err := page.Goto(j.GetFullURL(), scrapemate.WaitUntilDOMContentLoaded)
	if err != nil {
		resp.Error = err

		return resp
	}

	hideAutomationSignals(page)

	resp.URL = pageResponse.URL
	resp.StatusCode = pageResponse.StatusCode
	resp.Headers = pageResponse.Headers

	// The search box and the result list are the two structural elements
	// the pass cannot start without. Their timeouts are the only fatal
	// conditions of the whole search.
	if err := page.WaitForSelector(searchInputSelector, structuralTimeout); err != nil {
		resp.Error = fmt.Errorf("search input not found: %w", err)

		return resp
	}

	if err := submitSearch(page, j.SearchQuery()); err != nil {
		resp.Error = err

		return resp
	}

	if err := page.WaitForSelector(resultListSelector, structuralTimeout); err != nil {
		resp.Error = fmt.Errorf("result list not found: %w", err)

		return resp
	}

	// Past this point failures degrade to partial data: whatever has been
	// rendered so far is snapshotted and parsed.
	if _, err := scrollResults(ctx, page, j.Limit); err != nil {
		log := scrapemate.GetLoggerFromContext(ctx)
		log.Warn("scroll pagination stopped early", "query", j.SearchQuery(), "error", err)
	}

	body, err := page.Content()
	if err != nil {
		resp.Error = err

		return resp
	}

	resp.Body = []byte(body)

	return resp
}

// ProcessOnFetchError lets Process turn structural failures into an empty
// result set instead of a failed job.
func (j *SearchJob) ProcessOnFetchError() bool {
	return true
}
