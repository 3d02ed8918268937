package sink

import (
	"context"
	"errors"

	"csgostash/scraper/internal/domain"
	"csgostash/scraper/internal/repository"
)

// Sink consumes finished records in the order they are produced.
type Sink interface {
	Put(ctx context.Context, record domain.ItemRecord) error
}

// Multi hands every record to each sink and joins their errors.
type Multi []Sink

func (m Multi) Put(ctx context.Context, record domain.ItemRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Put(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type repositorySink struct {
	repo repository.RecordRepository
}

// NewRepository stores records through repo. Re-scraped URLs overwrite their row.
func NewRepository(repo repository.RecordRepository) Sink {
	return &repositorySink{repo: repo}
}

func (s *repositorySink) Put(ctx context.Context, record domain.ItemRecord) error {
	return s.repo.SaveRecord(ctx, record)
}
