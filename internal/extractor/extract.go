package extractor

import (
	"context"
	"errors"
	"fmt"

	"csgostash/scraper/internal/client"
	"csgostash/scraper/internal/config"
	"csgostash/scraper/internal/domain"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// FromURL fetches a detail page and extracts the record for category.
func FromURL(ctx context.Context, f client.Fetcher, sel config.SelectorConfig, category domain.ItemCategory, url string) (domain.ItemRecord, error) {
	doc, err := f.Fetch(ctx, url)
	if err != nil {
		return domain.ItemRecord{}, err
	}
	return Extract(category, doc, sel, url)
}

// Extract builds the record for category from a parsed detail page. It only
// reads doc, so extracting the same page twice yields equal records.
func Extract(category domain.ItemCategory, doc *goquery.Document, sel config.SelectorConfig, sourceURL string) (domain.ItemRecord, error) {
	page := NewPage(doc, sel, sourceURL)
	record := domain.ItemRecord{Category: category, SourceURL: sourceURL}

	var err error
	switch category {
	case domain.ItemCategoryWeaponSkin, domain.ItemCategorySticker:
		record.Skin, err = extractSkin(page)
	case domain.ItemCategoryCollection:
		record.Collection, err = extractCollection(page)
	case domain.ItemCategorySouvenirPackage:
		record.Souvenir, err = extractSouvenirPackage(page)
	default:
		err = fmt.Errorf("unknown item category %q", category)
	}
	if err != nil {
		return domain.ItemRecord{}, err
	}
	return record, nil
}

func extractSkin(p *Page) (*domain.SkinRecord, error) {
	name, err := p.Name()
	if err != nil {
		return nil, err
	}

	rarity, err := optional(p.Rarity())
	if err != nil {
		return nil, err
	}

	prices, err := p.Prices()
	if err != nil {
		return nil, err
	}

	return &domain.SkinRecord{Name: name, Rarity: rarity, Prices: prices}, nil
}

func extractCollection(p *Page) (*domain.CollectionRecord, error) {
	name, err := p.Name()
	if err != nil {
		return nil, err
	}

	items, err := p.Items()
	if err != nil {
		return nil, err
	}

	return &domain.CollectionRecord{Name: name, Items: items}, nil
}

// Only the title of a souvenir package is required.
func extractSouvenirPackage(p *Page) (*domain.SouvenirPackageRecord, error) {
	title, err := p.Title()
	if err != nil {
		return nil, err
	}

	record := &domain.SouvenirPackageRecord{Title: title}
	if record.ImageURL, err = optional(p.ImageURL()); err != nil {
		return nil, err
	}
	if record.CollectionURL, err = optional(p.CollectionURL()); err != nil {
		return nil, err
	}
	if record.CollectionName, err = optional(p.CollectionName()); err != nil {
		return nil, err
	}
	if record.Contents, err = optional(p.SouvenirContents()); err != nil {
		return nil, err
	}
	return record, nil
}

// optional turns a missing field into its zero value.
func optional[T any](value T, err error) (T, error) {
	if err == nil {
		return value, nil
	}
	var mf *domain.MissingFieldError
	if errors.As(err, &mf) {
		log.Debugf("Optional field %s absent: %v", mf.Field, err)
		var zero T
		return zero, nil
	}
	return value, err
}
