package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gosom/yandex-maps-scraper/storage"
	"github.com/gosom/yandex-maps-scraper/ymaps"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

func newTestLicense(t *testing.T, store *storage.Store, key string) *storage.License {
	t.Helper()

	now := time.Now().UTC()

	lic := &storage.License{
		Key:            key,
		OwnerName:      "Иван Петров",
		Email:          "ivan@example.com",
		IsActive:       true,
		CreatedAt:      now,
		ExpiresAt:      now.AddDate(0, 0, 30),
		RequestsPerDay: 100,
	}

	require.NoError(t, store.CreateLicense(context.Background(), lic))
	require.NotZero(t, lic.ID)

	return lic
}

func TestLicenseRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	created := newTestLicense(t, store, "YKP-202608-AAAA1111")

	got, err := store.GetLicenseByKey(ctx, created.Key)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, "Иван Петров", got.OwnerName)
	require.Equal(t, "ivan@example.com", got.Email)
	require.True(t, got.IsActive)
	require.Equal(t, 100, got.RequestsPerDay)
	require.Zero(t, got.TotalRequests)
}

func TestGetLicenseByKeyNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.GetLicenseByKey(context.Background(), "YKP-000000-00000000")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListLicenses(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	first := newTestLicense(t, store, "YKP-202608-AAAA1111")
	second := newTestLicense(t, store, "YKP-202608-BBBB2222")

	licenses, err := store.ListLicenses(context.Background())
	require.NoError(t, err)
	require.Len(t, licenses, 2)
	require.Equal(t, first.ID, licenses[0].ID)
	require.Equal(t, second.ID, licenses[1].ID)
}

func TestIncrTotalRequests(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	lic := newTestLicense(t, store, "YKP-202608-AAAA1111")

	require.NoError(t, store.IncrTotalRequests(ctx, lic.ID))
	require.NoError(t, store.IncrTotalRequests(ctx, lic.ID))

	got, err := store.GetLicenseByKey(ctx, lic.Key)
	require.NoError(t, err)
	require.Equal(t, 2, got.TotalRequests)
}

func TestCountRequestsSince(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	lic := newTestLicense(t, store, "YKP-202608-AAAA1111")

	now := time.Now().UTC()

	for _, at := range []time.Time{
		now.Add(-48 * time.Hour),
		now.Add(-1 * time.Hour),
		now,
	} {
		require.NoError(t, store.CreateRequestLog(ctx, &storage.RequestLog{
			LicenseID:   lic.ID,
			Query:       "кафе",
			RequestedAt: at,
		}))
	}

	count, err := store.CountRequestsSince(ctx, lic.ID, now.Add(-2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = store.CountRequestsSince(ctx, lic.ID, now.Add(-72*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestRequestLogResults(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	lic := newTestLicense(t, store, "YKP-202608-AAAA1111")

	rl := &storage.RequestLog{
		LicenseID:   lic.ID,
		Query:       "кафе Москва",
		RequestedAt: time.Now().UTC(),
		IPAddress:   "192.0.2.1",
		UserAgent:   "test-agent",
	}

	require.NoError(t, store.CreateRequestLog(ctx, rl))
	require.NotZero(t, rl.ID)
	require.NoError(t, store.SetRequestResults(ctx, rl.ID, 7))
}

func TestSaveAndLoadEntries(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	lic := newTestLicense(t, store, "YKP-202608-AAAA1111")

	rl := &storage.RequestLog{LicenseID: lic.ID, Query: "кафе", RequestedAt: time.Now().UTC()}
	require.NoError(t, store.CreateRequestLog(ctx, rl))

	first := ymaps.NewEntry()
	first.ID = "111"
	first.Name = "Кафе Уют"
	first.Phones = "+7 (495) 123-45-67;+7 (495) 765-43-21"
	first.ReviewsCount = 12
	first.Latitude = "55.7558"
	first.Longitude = "37.6177"
	first.SocialNetworks["vk"] = "https://vk.com/cafeuyut"

	second := ymaps.NewEntry()
	second.ID = "222"
	second.Name = "Столовая №1"

	require.NoError(t, store.SaveEntries(ctx, rl.ID, []*ymaps.Entry{first, second}))

	entries, err := store.EntriesByRequest(ctx, rl.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, "111", entries[0].ID)
	require.Equal(t, "Кафе Уют", entries[0].Name)
	require.Equal(t, "+7 (495) 123-45-67;+7 (495) 765-43-21", entries[0].Phones)
	require.Equal(t, 12, entries[0].ReviewsCount)
	require.Equal(t, "55.7558", entries[0].Latitude)
	require.Equal(t, "https://vk.com/cafeuyut", entries[0].SocialNetworks["vk"])

	require.Equal(t, "222", entries[1].ID)
}

func TestEntriesByRequestNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.EntriesByRequest(context.Background(), 42)
	require.ErrorIs(t, err, storage.ErrNotFound)
}
