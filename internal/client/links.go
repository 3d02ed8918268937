package client

import (
	"context"
	"iter"
	"strings"

	"csgostash/scraper/internal/config"
	"csgostash/scraper/internal/domain"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// CollectLinks yields the detail page URL of every item container on one
// listing page, in document order. Containers are elements carrying
// containerClass; each tag in sel.ContainerTags is tried in turn until one
// matches. Containers without a link are skipped. If no tag matches at all a
// *domain.MarkupShapeMismatchError is yielded.
func CollectLinks(ctx context.Context, f Fetcher, sel config.SelectorConfig, listingURL, containerClass string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		doc, err := f.Fetch(ctx, listingURL)
		if err != nil {
			yield("", err)
			return
		}

		containers, tried := findContainers(doc, sel.ContainerTags, containerClass)
		if containers == nil {
			yield("", &domain.MarkupShapeMismatchError{
				URL:      listingURL,
				Selector: containerClass,
				Tried:    tried,
			})
			return
		}

		for i := range containers.Length() {
			href, ok := containerHref(containers.Eq(i))
			if !ok {
				continue
			}

			detailURL, err := ResolveURL(listingURL, href)
			if err != nil {
				log.Warnf("Skipping item link on %s: %v", listingURL, err)
				continue
			}

			if !yield(detailURL, nil) {
				return
			}
		}
	}
}

// findContainers returns the matches of the first tag that has any, along
// with the selectors it tried.
func findContainers(doc *goquery.Document, tags []string, containerClass string) (*goquery.Selection, []string) {
	classSelector := "." + strings.Join(strings.Fields(containerClass), ".")

	tried := make([]string, 0, len(tags))
	for _, tag := range tags {
		selector := tag + classSelector
		tried = append(tried, selector)

		if found := doc.Find(selector); found.Length() > 0 {
			if len(tried) > 1 {
				log.Debugf("Item containers matched fallback selector %s", selector)
			}
			return found, tried
		}
	}
	return nil, tried
}

// containerHref returns the container's own href when it is an anchor,
// otherwise the href of its first anchor. Later anchors are never consulted.
func containerHref(s *goquery.Selection) (string, bool) {
	anchor := s
	if goquery.NodeName(s) != "a" {
		anchor = s.Find("a").First()
	}

	href, ok := anchor.Attr("href")
	if !ok || !usableHref(href) {
		return "", false
	}
	return strings.TrimSpace(href), true
}
