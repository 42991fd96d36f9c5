package cleaner

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/sitedigest/models"
)

// ExtractLinks parses the raw HTML and separates hyperlinks into internal
// and external groups based on whether their host matches the source URL's
// host. Hrefs are resolved against the source URL; non-http(s) schemes
// (fragments, javascript:, mailto:, tel:) are dropped.
//
// The partition here is a convenience for consumers; discovery re-validates
// the same-domain rule itself with a stricter comparison.
func ExtractLinks(rawHTML string, sourceURL string) models.LinksResult {
	result := models.LinksResult{
		Internal: []models.Link{},
		External: []models.Link{},
	}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return result
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return result
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		link := models.Link{
			Href: resolved.String(),
			Text: strings.TrimSpace(s.Text()),
		}

		if strings.EqualFold(resolved.Host, base.Host) {
			result.Internal = append(result.Internal, link)
		} else {
			result.External = append(result.External, link)
		}
	})

	return result
}
