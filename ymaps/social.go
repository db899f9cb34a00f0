package ymaps

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// socialHosts maps a network name to the hosts its profile links live on.
// Order matters only for determinism; the first link found per network wins.
var socialHosts = []struct {
	name  string
	hosts []string
}{
	{"vk", []string{"vk.com", "m.vk.com"}},
	{"telegram", []string{"t.me", "telegram.me"}},
	{"whatsapp", []string{"wa.me", "api.whatsapp.com"}},
	{"odnoklassniki", []string{"ok.ru"}},
	{"instagram", []string{"instagram.com"}},
	{"facebook", []string{"facebook.com", "fb.com"}},
	{"youtube", []string{"youtube.com", "youtu.be"}},
	{"twitter", []string{"twitter.com", "x.com"}},
}

// socialLinks scans every anchor on a detail page for links into known
// social networks and returns one profile URL per network found.
func socialLinks(doc *goquery.Document) map[string]string {
	found := map[string]string{}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}

		parsed, err := url.Parse(href)
		if err != nil || parsed.Host == "" {
			return
		}

		host := strings.ToLower(strings.TrimPrefix(parsed.Host, "www."))

		for _, network := range socialHosts {
			if _, ok := found[network.name]; ok {
				continue
			}

			for _, h := range network.hosts {
				if host == h {
					found[network.name] = href

					break
				}
			}
		}
	})

	return found
}
