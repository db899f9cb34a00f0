// Package auth issues and verifies license keys and admin access tokens.
// Rate limiting is per license per UTC day, backed by the request log.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gosom/yandex-maps-scraper/storage"
)

var (
	ErrUnknownKey = errors.New("unknown license key")
	ErrInactive   = errors.New("license is inactive")
	ErrExpired    = errors.New("license has expired")
	ErrDailyLimit = errors.New("daily request limit exceeded")
)

type Service struct {
	store  *storage.Store
	secret []byte

	// now is swappable in tests.
	now func() time.Time
}

func NewService(store *storage.Store, secret string) *Service {
	return &Service{
		store:  store,
		secret: []byte(secret),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// VerifyLicense checks that the key exists, is active, has not expired and
// has quota left for the current UTC day. It returns the license together
// with the number of requests remaining today.
func (s *Service) VerifyLicense(ctx context.Context, key string) (*storage.License, int, error) {
	lic, err := s.store.GetLicenseByKey(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, 0, ErrUnknownKey
	}

	if err != nil {
		return nil, 0, fmt.Errorf("loading license: %w", err)
	}

	if !lic.IsActive {
		return nil, 0, ErrInactive
	}

	now := s.now()
	if lic.ExpiresAt.Before(now) {
		return nil, 0, ErrExpired
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	used, err := s.store.CountRequestsSince(ctx, lic.ID, dayStart)
	if err != nil {
		return nil, 0, fmt.Errorf("counting requests: %w", err)
	}

	remaining := lic.RequestsPerDay - used
	if remaining <= 0 {
		return nil, 0, ErrDailyLimit
	}

	return lic, remaining, nil
}
