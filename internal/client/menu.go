package client

import (
	"context"
	"iter"
	"strings"

	"csgostash/scraper/internal/config"

	log "github.com/sirupsen/logrus"
)

// MenuLinks yields the links of every home page dropdown whose toggle text
// equals label. Placeholder links such as "#" are left out.
func MenuLinks(ctx context.Context, f Fetcher, sel config.SelectorConfig, homeURL, label string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		doc, err := f.Fetch(ctx, homeURL)
		if err != nil {
			yield("", err)
			return
		}

		items := doc.Find(sel.MenuItem)
		matched := 0
		for i := range items.Length() {
			item := items.Eq(i)
			links := item.Find(sel.MenuLink)
			if strings.TrimSpace(links.First().Text()) != label {
				continue
			}
			matched++

			for j := range links.Length() {
				href, ok := links.Eq(j).Attr("href")
				if !ok || !usableHref(href) {
					continue
				}

				linkURL, err := ResolveURL(homeURL, href)
				if err != nil {
					log.Warnf("Skipping menu link on %s: %v", homeURL, err)
					continue
				}

				if !yield(linkURL, nil) {
					return
				}
			}
		}

		if matched == 0 {
			log.Warnf("⚠️ No menu labelled %q on %s", label, homeURL)
		}
	}
}
