package web

import (
	"context"
	"fmt"
	"time"

	"github.com/gosom/yandex-maps-scraper/auth"
	"github.com/gosom/yandex-maps-scraper/config"
	"github.com/gosom/yandex-maps-scraper/storage"
	"github.com/gosom/yandex-maps-scraper/ymaps"
)

// Searcher runs scrape passes. Satisfied by *scraper.Scraper.
type Searcher interface {
	Search(ctx context.Context, query, city string, limit int) ([]*ymaps.Entry, error)
	Details(ctx context.Context, orgID string) (*ymaps.Entry, error)
}

type Service struct {
	store    *storage.Store
	scraper  Searcher
	auth     *auth.Service
	settings *config.Settings
}

func NewService(store *storage.Store, scr Searcher, authSvc *auth.Service, settings *config.Settings) *Service {
	return &Service{
		store:    store,
		scraper:  scr,
		auth:     authSvc,
		settings: settings,
	}
}

type SearchParams struct {
	Query     string
	City      string
	Limit     int
	IPAddress string
	UserAgent string
}

type SearchResult struct {
	RequestID int64          `json:"request_id"`
	Count     int            `json:"count"`
	Data      []*ymaps.Entry `json:"data"`
	Remaining int            `json:"remaining_requests"`
}

// RunSearch logs the request, runs one search pass and persists whatever
// it produced. The request log row exists even when the pass fails, so
// quota accounting covers failed scrapes too.
func (s *Service) RunSearch(ctx context.Context, lic *storage.License, remaining int, p SearchParams) (*SearchResult, error) {
	rl := &storage.RequestLog{
		LicenseID:   lic.ID,
		Query:       p.Query,
		RequestedAt: time.Now().UTC(),
		IPAddress:   p.IPAddress,
		UserAgent:   p.UserAgent,
	}

	if err := s.store.CreateRequestLog(ctx, rl); err != nil {
		return nil, fmt.Errorf("logging request: %w", err)
	}

	scrapeCtx, cancel := context.WithTimeout(ctx, s.settings.ScrapeTimeout)
	defer cancel()

	entries, err := s.scraper.Search(scrapeCtx, p.Query, p.City, p.Limit)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveEntries(ctx, rl.ID, entries); err != nil {
		return nil, fmt.Errorf("saving results: %w", err)
	}

	if err := s.store.SetRequestResults(ctx, rl.ID, len(entries)); err != nil {
		return nil, fmt.Errorf("updating request log: %w", err)
	}

	if err := s.store.IncrTotalRequests(ctx, lic.ID); err != nil {
		return nil, fmt.Errorf("updating license counters: %w", err)
	}

	return &SearchResult{
		RequestID: rl.ID,
		Count:     len(entries),
		Data:      entries,
		Remaining: remaining - 1,
	}, nil
}

func (s *Service) Export(ctx context.Context, requestID int64) ([]*ymaps.Entry, error) {
	return s.store.EntriesByRequest(ctx, requestID)
}

func (s *Service) Details(ctx context.Context, orgID string) (*ymaps.Entry, error) {
	scrapeCtx, cancel := context.WithTimeout(ctx, s.settings.ScrapeTimeout)
	defer cancel()

	return s.scraper.Details(scrapeCtx, orgID)
}

type CreateLicenseParams struct {
	OwnerName      string
	Email          string
	DurationDays   int
	RequestsPerDay int
}

func (s *Service) CreateLicense(ctx context.Context, p CreateLicenseParams) (*storage.License, error) {
	if p.DurationDays <= 0 {
		p.DurationDays = s.settings.LicenseDurationDays
	}

	if p.RequestsPerDay <= 0 {
		p.RequestsPerDay = s.settings.DefaultRequestsPerDay
	}

	now := time.Now().UTC()

	lic := &storage.License{
		Key:            auth.NewLicenseKey(),
		OwnerName:      p.OwnerName,
		Email:          p.Email,
		IsActive:       true,
		CreatedAt:      now,
		ExpiresAt:      now.AddDate(0, 0, p.DurationDays),
		RequestsPerDay: p.RequestsPerDay,
	}

	if err := s.store.CreateLicense(ctx, lic); err != nil {
		return nil, fmt.Errorf("creating license: %w", err)
	}

	return lic, nil
}

type LicenseInfo struct {
	storage.License
	TodayRequests int `json:"today_requests"`
}

func (s *Service) ListLicenses(ctx context.Context) ([]LicenseInfo, error) {
	licenses, err := s.store.ListLicenses(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	infos := make([]LicenseInfo, 0, len(licenses))

	for _, lic := range licenses {
		today, err := s.store.CountRequestsSince(ctx, lic.ID, dayStart)
		if err != nil {
			return nil, err
		}

		infos = append(infos, LicenseInfo{License: lic, TodayRequests: today})
	}

	return infos, nil
}
