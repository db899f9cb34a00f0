package ymaps

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Entry is one extracted organization. Every text field is independently
// optional: "" means "not found on the page", it is never an error. ID is
// "" when no org link with a numeric identifier was present, in which case
// the record cannot be deduplicated.
type Entry struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Categories     string            `json:"categories"`
	Address        string            `json:"address"`
	Phones         string            `json:"phones"`
	WebSite        string            `json:"website"`
	Rating         string            `json:"rating"`
	ReviewsCount   int               `json:"reviews_count"`
	Schedule       string            `json:"schedule"`
	Latitude       string            `json:"latitude"`
	Longitude      string            `json:"longitude"`
	Attributes     map[string]string `json:"attributes"`
	SocialNetworks map[string]string `json:"social_networks"`
}

func NewEntry() *Entry {
	return &Entry{
		Attributes:     map[string]string{},
		SocialNetworks: map[string]string{},
	}
}

// EntryFromSnippet extracts an organization from one listing snippet node.
// Each field tries its selector chain in order and keeps the first element
// that exists; a full-chain miss leaves the sentinel value in place.
func EntryFromSnippet(sel *goquery.Selection) *Entry {
	entry := NewEntry()

	entry.ID = orgIDFromLinks(sel)
	entry.Name = textOf(sel, snippetNameSelectors...)
	entry.Categories = textOf(sel, snippetCategoriesSelectors...)
	entry.Rating = textOf(sel, snippetRatingSelectors...)
	entry.ReviewsCount = parseReviewsCount(textOf(sel, snippetReviewsSelectors...))
	entry.Address = textOf(sel, snippetAddressSelectors...)
	entry.Phones = textOf(sel, snippetPhoneSelectors...)

	return entry
}

// firstMatch returns the first element matched by any selector in the
// chain, or nil when the whole chain misses.
func firstMatch(root *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if m := root.Find(sel).First(); m.Length() > 0 {
			return m
		}
	}

	return nil
}

func textOf(root *goquery.Selection, selectors ...string) string {
	m := firstMatch(root, selectors...)
	if m == nil {
		return ""
	}

	return strings.TrimSpace(m.Text())
}

func attrOf(root *goquery.Selection, attr string, selectors ...string) string {
	m := firstMatch(root, selectors...)
	if m == nil {
		return ""
	}

	return strings.TrimSpace(m.AttrOr(attr, ""))
}

// orgIDFromLinks scans the anchors inside root for an organization URL and
// returns its numeric identifier segment, or "" when no anchor carries one.
func orgIDFromLinks(root *goquery.Selection) string {
	var id string

	root.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if m := orgIDRe.FindStringSubmatch(a.AttrOr("href", "")); len(m) == 2 {
			id = m[1]

			return false
		}

		return true
	})

	return id
}

// parseReviewsCount accepts only an all-digits string. Yandex renders the
// count as bare digits in the snippet badge; decorated text such as
// "12 отзывов" comes from unrelated elements and is deliberately dropped
// to 0 rather than guessed at.
func parseReviewsCount(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}

	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0
		}
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}

	return n
}

// CsvHeaders returns the export column names. They match the spreadsheet
// layout the product has always shipped, so they stay in Russian.
func CsvHeaders() []string {
	return []string{
		"ID",
		"Название",
		"Категории",
		"Адрес",
		"Телефоны",
		"Сайт",
		"Рейтинг",
		"Отзывов",
		"График",
		"Широта",
		"Долгота",
	}
}

func (e *Entry) CsvRow() []string {
	return []string{
		e.ID,
		e.Name,
		e.Categories,
		e.Address,
		e.Phones,
		e.WebSite,
		e.Rating,
		strconv.Itoa(e.ReviewsCount),
		e.Schedule,
		e.Latitude,
		e.Longitude,
	}
}
