package client

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
)

const normalizeFlags = purell.FlagsSafe |
	purell.FlagRemoveFragment |
	purell.FlagSortQuery

// ResolveURL makes href absolute against base.
func ResolveURL(base, href string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}

// normalizeURL returns the key two spellings of the same page share.
func normalizeURL(raw string) string {
	normalized, err := purell.NormalizeURLString(raw, normalizeFlags)
	if err != nil {
		return raw
	}
	return normalized
}

// usableHref reports whether href points at a page rather than being a
// placeholder such as "#" on disabled pagination buttons.
func usableHref(href string) bool {
	href = strings.TrimSpace(href)
	return href != "" && href != "#" && !strings.HasPrefix(href, "javascript:")
}
