package ymaps

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gosom/yandex-maps-scraper/deduper"
)

func snippetDoc(t *testing.T, ids ...string) string {
	t.Helper()

	var sb strings.Builder

	sb.WriteString("<body>")

	for i, id := range ids {
		sb.WriteString(`<div class="search-snippet-view">`)

		if id != "" {
			fmt.Fprintf(&sb, `<a href="/maps/org/%s/">x</a>`, id)
		}

		fmt.Fprintf(&sb, `<div class="search-business-snippet-view__title">Организация %d</div>`, i+1)
		sb.WriteString(`</div>`)
	}

	sb.WriteString("</body>")

	return sb.String()
}

func TestEntriesFromDocKeepsRenderOrder(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, snippetDoc(t, "111", "222", "333"))

	entries := entriesFromDoc(context.Background(), doc, 10, deduper.New())

	require.Len(t, entries, 3)
	require.Equal(t, "111", entries[0].ID)
	require.Equal(t, "222", entries[1].ID)
	require.Equal(t, "333", entries[2].ID)
}

func TestEntriesFromDocHonorsLimit(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, snippetDoc(t, "111", "222", "333", "444"))

	entries := entriesFromDoc(context.Background(), doc, 2, deduper.New())

	require.Len(t, entries, 2)
	require.Equal(t, "111", entries[0].ID)
	require.Equal(t, "222", entries[1].ID)
}

func TestEntriesFromDocDropsDuplicates(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, snippetDoc(t, "111", "222", "111", "333"))

	entries := entriesFromDoc(context.Background(), doc, 10, deduper.New())

	require.Len(t, entries, 3)

	seen := map[string]bool{}
	for _, e := range entries {
		require.False(t, seen[e.ID], "id %s emitted twice", e.ID)
		seen[e.ID] = true
	}
}

func TestEntriesFromDocKeepsRecordsWithoutID(t *testing.T) {
	t.Parallel()

	// Records without a stable id cannot collide and always pass through.
	doc := mustDoc(t, snippetDoc(t, "", "", "111"))

	entries := entriesFromDoc(context.Background(), doc, 10, deduper.New())

	require.Len(t, entries, 3)
	require.Empty(t, entries[0].ID)
	require.Empty(t, entries[1].ID)
	require.Equal(t, "111", entries[2].ID)
}

func TestNewSearchJob(t *testing.T) {
	t.Parallel()

	job := NewSearchJob("", "кафе", "Москва", 50)

	require.NotEmpty(t, job.ID)
	require.Equal(t, landingURL, job.URL)
	require.Equal(t, 50, job.Limit)
	require.Equal(t, 3, job.MaxRetries)
	require.True(t, job.ProcessOnFetchError())
}

func TestSearchQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		city  string
		want  string
	}{
		{"кафе", "Москва", "кафе Москва"},
		{"кафе", "", "кафе"},
		{"аптека 24", "Санкт-Петербург", "аптека 24 Санкт-Петербург"},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			t.Parallel()

			job := NewSearchJob("", tc.query, tc.city, 10)
			require.Equal(t, tc.want, job.SearchQuery())
		})
	}
}
