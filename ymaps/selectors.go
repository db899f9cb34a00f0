package ymaps

import "regexp"

// All CSS selectors for the Yandex Maps UI live here. The site ships hashed
// class names around stable substrings, so every selector matches on a class
// substring and every field carries an ordered fallback chain. When Yandex
// changes markup, this file is the only one that needs touching.

const (
	landingURL = "https://yandex.ru/maps/"
	orgBaseURL = "https://yandex.ru/maps/org/"

	searchInputSelector  = `input[placeholder*='оиск']`
	searchSubmitSelector = `button[type='submit']`
	resultListSelector   = `[class*='search-list-view']`
	snippetSelector      = `[class*='search-snippet-view']`
)

// Listing snippet fields.
var (
	snippetNameSelectors = []string{
		`[class*='search-business-snippet-view__title']`,
		`[class*='orgpage-header-title']`,
		`h1, h2, h3`,
	}
	snippetCategoriesSelectors = []string{
		`[class*='business-categories']`,
		`[class*='search-business-snippet-view__category']`,
	}
	snippetRatingSelectors = []string{
		`[class*='business-rating-badge-view__rating']`,
		`[class*='business-rating-badge']`,
	}
	snippetReviewsSelectors = []string{
		`[class*='business-review-count']`,
		`[class*='business-rating-amount']`,
	}
	snippetAddressSelectors = []string{
		`[class*='business-address']`,
		`[class*='search-business-snippet-view__address']`,
	}
	snippetPhoneSelectors = []string{
		`[class*='business-phone']`,
	}
)

// Detail page fields.
var (
	detailNameSelectors = []string{
		`[class*='orgpage-header-view__header']`,
		`h1`,
	}
	detailRatingSelectors = []string{
		`[class*='business-rating-badge-view__rating']`,
		`[class*='business-rating-badge']`,
	}
	detailReviewsSelectors = []string{
		`[class*='business-rating-amount']`,
		`[class*='business-review-count']`,
	}
	detailAddressSelectors = []string{
		`[class*='card-address']`,
		`[class*='business-address']`,
	}
	detailScheduleSelectors = []string{
		`[class*='business-schedule-view']`,
	}
	detailWebsiteSelectors = []string{
		`[class*='business-urls-view__link']`,
	}

	// Phones are the one multi-valued field: every match is kept.
	detailPhoneSelector = `[class*='business-phones-view__phone-number']`
)

// orgIDRe matches the numeric identifier segment of an organization URL,
// e.g. /maps/org/123456/.
var orgIDRe = regexp.MustCompile(`org/(\d+)`)
