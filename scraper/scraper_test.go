package scraper

import (
	"context"
	"testing"

	"github.com/gosom/scrapemate"
	"github.com/stretchr/testify/require"

	"github.com/gosom/yandex-maps-scraper/ymaps"
)

func TestSearchRejectsEmptyQuery(t *testing.T) {
	t.Parallel()

	s := New(true, 1)

	_, err := s.Search(context.Background(), "   ", "Москва", 10)
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchZeroLimitShortCircuits(t *testing.T) {
	t.Parallel()

	// A zero or negative limit never opens a browser session.
	s := New(true, 1)

	entries, err := s.Search(context.Background(), "кафе", "Москва", 0)
	require.NoError(t, err)
	require.Empty(t, entries)

	entries, err = s.Search(context.Background(), "кафе", "Москва", -5)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDetailsRejectsEmptyOrgID(t *testing.T) {
	t.Parallel()

	s := New(true, 1)

	_, err := s.Details(context.Background(), "  ")
	require.ErrorIs(t, err, ErrNoOrgID)
}

func TestCollector(t *testing.T) {
	t.Parallel()

	c := newCollector()

	first := ymaps.NewEntry()
	first.ID = "111"

	second := ymaps.NewEntry()
	second.ID = "222"

	third := ymaps.NewEntry()
	third.ID = "333"

	c.add([]*ymaps.Entry{first, second})
	c.add(third)
	c.add("unexpected type is ignored")

	entries := c.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, "111", entries[0].ID)
	require.Equal(t, "222", entries[1].ID)
	require.Equal(t, "333", entries[2].ID)
}

func TestCollectorRun(t *testing.T) {
	t.Parallel()

	c := newCollector()

	in := make(chan scrapemate.Result, 2)

	entry := ymaps.NewEntry()
	entry.ID = "111"

	in <- scrapemate.Result{Data: entry}
	in <- scrapemate.Result{Data: []*ymaps.Entry{}}
	close(in)

	require.NoError(t, c.Run(context.Background(), in))

	entries := c.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "111", entries[0].ID)
}

func TestCollectorRunStopsOnContext(t *testing.T) {
	t.Parallel()

	c := newCollector()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := make(chan scrapemate.Result)

	require.NoError(t, c.Run(ctx, in))
	require.Empty(t, c.Entries())
}
