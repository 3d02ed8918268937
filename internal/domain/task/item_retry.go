package task

import "csgostash/scraper/internal/domain"

type ItemRetryTask struct {
	ItemURL    string              `json:"item_url"` // Detail page that failed
	Category   domain.ItemCategory `json:"category"`
	RetryCount int                 `json:"retry_count"` // Number of times this item has been retried
	Error      string              `json:"error"`
}

func (t *ItemRetryTask) TaskType() string {
	return TypeItemRetry
}

func (t *ItemRetryTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
