package domain

// ItemResult is the outcome of extracting one detail URL.
type ItemResult struct {
	URL      string
	Category ItemCategory
	Record   *ItemRecord
	Err      error
}

func (r ItemResult) OK() bool {
	return r.Err == nil
}

// Failure is a skipped detail or listing URL and the reason it was skipped.
type Failure struct {
	URL      string       `json:"url"`
	Category ItemCategory `json:"category"`
	Reason   string       `json:"reason"`
}

type CategoryStats struct {
	ListingPages int `json:"listing_pages"`
	Succeeded    int `json:"succeeded"`
	Failed       int `json:"failed"`
	Duplicates   int `json:"duplicates"`
}

// Report summarises a crawl. Records are handed to the sink as they are
// produced and are not kept here.
type Report struct {
	Categories map[ItemCategory]*CategoryStats `json:"categories"`
	Failures   []Failure                       `json:"failures"`
}

func NewReport() *Report {
	return &Report{
		Categories: make(map[ItemCategory]*CategoryStats),
	}
}

func (r *Report) Stats(category ItemCategory) *CategoryStats {
	stats, ok := r.Categories[category]
	if !ok {
		stats = &CategoryStats{}
		r.Categories[category] = stats
	}
	return stats
}

// Add records the outcome of one item.
func (r *Report) Add(result ItemResult) {
	stats := r.Stats(result.Category)
	if result.OK() {
		stats.Succeeded++
		return
	}
	stats.Failed++
	r.Failures = append(r.Failures, Failure{
		URL:      result.URL,
		Category: result.Category,
		Reason:   result.Err.Error(),
	})
}

// AddFailure records a failure that is not tied to a single item, such as
// a listing page that could not be collected.
func (r *Report) AddFailure(category ItemCategory, url string, err error) {
	r.Stats(category).Failed++
	r.Failures = append(r.Failures, Failure{URL: url, Category: category, Reason: err.Error()})
}

func (r *Report) Total() (succeeded, failed int) {
	for _, s := range r.Categories {
		succeeded += s.Succeeded
		failed += s.Failed
	}
	return succeeded, failed
}
