package repository

import (
	"context"
	"fmt"

	"csgostash/scraper/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS item_records (
	url        TEXT PRIMARY KEY,
	category   TEXT NOT NULL,
	name       TEXT NOT NULL,
	data       JSONB NOT NULL,
	scraped_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// RecordRepository stores item records keyed by their detail URL, so
// scraping the same page again replaces the earlier row.
type RecordRepository interface {
	EnsureSchema(ctx context.Context) error
	SaveRecord(ctx context.Context, record domain.ItemRecord) error
}

type recordRepository struct {
	db *pgxpool.Pool
}

func NewRecordRepository(db *pgxpool.Pool) RecordRepository {
	return &recordRepository{
		db: db,
	}
}

func (r *recordRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create item_records table: %w", err)
	}
	return nil
}

func (r *recordRepository) SaveRecord(ctx context.Context, record domain.ItemRecord) error {
	query := `
	INSERT INTO item_records (url, category, name, data)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (url)
	DO UPDATE SET category = $2, name = $3, data = $4, scraped_at = now()`
	_, err := r.db.Exec(ctx, query, record.SourceURL, record.Category.String(), record.Name(), record)
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", record.SourceURL, err)
	}

	return nil
}
