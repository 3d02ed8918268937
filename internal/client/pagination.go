package client

import (
	"context"
	"iter"

	"csgostash/scraper/internal/config"
	"csgostash/scraper/internal/domain"

	log "github.com/sirupsen/logrus"
)

// Paginate yields startURL and then every distinct page linked from its
// pagination control, in document order. The control is assumed to list all
// pages of the listing, so linked pages are not fetched. A page without a
// control is a single-page listing. Nothing is fetched until the second
// value is requested.
func Paginate(ctx context.Context, f Fetcher, sel config.SelectorConfig, startURL string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !yield(startURL, nil) {
			return
		}

		doc, err := f.Fetch(ctx, startURL)
		if err != nil {
			yield("", err)
			return
		}

		control := doc.Find(sel.Pagination).First()
		if control.Length() == 0 {
			log.Debugf("%v: %s, treating as a single page", domain.ErrPaginationAbsent, startURL)
			return
		}

		seen := map[string]struct{}{
			normalizeURL(startURL): {},
		}

		links := control.Find(sel.PaginationLink)
		for i := range links.Length() {
			href, ok := links.Eq(i).Attr("href")
			if !ok || !usableHref(href) {
				continue
			}

			pageURL, err := ResolveURL(startURL, href)
			if err != nil {
				log.Warnf("Skipping pagination link on %s: %v", startURL, err)
				continue
			}

			key := normalizeURL(pageURL)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			if !yield(pageURL, nil) {
				return
			}
		}
	}
}
