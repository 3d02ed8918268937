package task

import "csgostash/scraper/internal/domain"

// PageRetryTask re-collects the detail links of one listing page. With Walk
// set, ListingURL is a listing root whose pagination could not be read and
// the whole root is walked again, skipping its first SkipPages pages.
type PageRetryTask struct {
	ListingURL string              `json:"listing_url"` // Listing page whose links could not be collected
	Category   domain.ItemCategory `json:"category"`
	Walk       bool                `json:"walk,omitempty"`
	SkipPages  int                 `json:"skip_pages,omitempty"` // Pages of the root already crawled
	RetryCount int                 `json:"retry_count"`
	Error      string              `json:"error"` // Error message from the last failure
}

func (t *PageRetryTask) TaskType() string {
	return TypePageRetry
}

func (t *PageRetryTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
