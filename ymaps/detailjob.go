package ymaps

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/gosom/scrapemate"

	"github.com/gosom/yandex-maps-scraper/exiter"
)

type DetailJobOptions func(*DetailJob)

// DetailJob fetches the dedicated page of one organization and extracts
// the detail-level fields the listing snippet does not carry: website,
// schedule, the full phone list and coordinates.
type DetailJob struct {
	scrapemate.Job

	OrgID       string
	ExitMonitor exiter.Exiter
}

func NewDetailJob(parentID, orgID string, opts ...DetailJobOptions) *DetailJob {
	const (
		maxRetries = 1
		prio       = scrapemate.PriorityHigh
	)

	job := DetailJob{
		Job: scrapemate.Job{
			ID:         uuid.New().String(),
			ParentID:   parentID,
			Method:     http.MethodGet,
			URL:        orgBaseURL + orgID + "/",
			MaxRetries: maxRetries,
			Priority:   prio,
		},
		OrgID: orgID,
	}

	for _, opt := range opts {
		opt(&job)
	}

	return &job
}

func WithDetailExitMonitor(e exiter.Exiter) DetailJobOptions {
	return func(j *DetailJob) {
		j.ExitMonitor = e
	}
}

func (j *DetailJob) Process(ctx context.Context, resp *scrapemate.Response) (any, []scrapemate.IJob, error) {
	defer func() {
		resp.Document = nil
		resp.Body = nil
	}()

	defer func() {
		if j.ExitMonitor != nil {
			j.ExitMonitor.IncrPlacesCompleted(1)
			j.ExitMonitor.IncrSeedCompleted(1)
		}
	}()

	log := scrapemate.GetLoggerFromContext(ctx)

	// A failed navigation produces no record; the deferred counters above
	// still complete the pass so the caller is not left waiting on the
	// inactivity timeout.
	if resp.Error != nil {
		log.Warn("organization page not reachable", "org", j.OrgID, "error", resp.Error)

		return nil, nil, nil
	}

	doc, ok := resp.Document.(*goquery.Document)
	if !ok {
		return nil, nil, fmt.Errorf("could not convert to goquery document")
	}

	entry := EntryFromDetailPage(doc, j.OrgID, resp.URL)

	log.Info("organization details extracted", "org", j.OrgID, "name", entry.Name)

	return entry, nil, nil
}

// ProcessOnFetchError routes failed navigations through Process so the
// pass still completes its counters.
func (j *DetailJob) ProcessOnFetchError() bool {
	return true
}

func (j *DetailJob) BrowserActions(ctx context.Context, page scrapemate.BrowserPage) scrapemate.Response {
	var resp scrapemate.Response

	pageResponse, err := page.Goto(j.GetFullURL(), scrapemate.WaitUntilDOMContentLoaded)
	if err != nil {
		resp.Error = err

		return resp
	}

	hideAutomationSignals(page)

	resp.StatusCode = pageResponse.StatusCode
	resp.Headers = pageResponse.Headers

	// Unlike the search pass, a missing header is not fatal here: the page
	// may legitimately lack any given block, fields just come back empty.
	_ = page.WaitForSelector(detailNameSelectors[len(detailNameSelectors)-1], structuralTimeout)

	// Small extra wait for content that lands after the initial load.
	page.WaitForTimeout(settleTimeout)

	// The settled URL carries the map center (ll=<lon>,<lat>) for this
	// organization, which is where coordinates come from.
	resp.URL = page.URL()

	body, err := page.Content()
	if err != nil {
		resp.Error = err

		return resp
	}

	resp.Body = []byte(body)

	return resp
}

// EntryFromDetailPage extracts the detail-level record. Field misses
// degrade to empty sentinels exactly as in snippet extraction.
func EntryFromDetailPage(doc *goquery.Document, orgID, pageURL string) *Entry {
	entry := NewEntry()
	entry.ID = orgID

	root := doc.Selection

	entry.Name = textOf(root, detailNameSelectors...)
	entry.Categories = textOf(root, snippetCategoriesSelectors...)
	entry.Rating = textOf(root, detailRatingSelectors...)
	entry.ReviewsCount = parseReviewsCount(textOf(root, detailReviewsSelectors...))
	entry.Address = textOf(root, detailAddressSelectors...)
	entry.Schedule = textOf(root, detailScheduleSelectors...)
	entry.WebSite = attrOf(root, "href", detailWebsiteSelectors...)
	entry.Phones = joinedPhones(root)
	entry.SocialNetworks = socialLinks(doc)
	entry.Latitude, entry.Longitude = coordinatesFromURL(pageURL)

	return entry
}

func joinedPhones(root *goquery.Selection) string {
	var phones []string

	root.Find(detailPhoneSelector).Each(func(_ int, s *goquery.Selection) {
		if p := strings.TrimSpace(s.Text()); p != "" {
			phones = append(phones, p)
		}
	})

	return strings.Join(phones, ";")
}

// coordinatesFromURL reads the ll query parameter of a settled maps URL.
// Yandex orders it longitude first.
func coordinatesFromURL(raw string) (lat, lon string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", ""
	}

	ll := u.Query().Get("ll")
	if ll == "" {
		return "", ""
	}

	parts := strings.Split(ll, ",")
	if len(parts) != 2 {
		return "", ""
	}

	return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[0])
}
