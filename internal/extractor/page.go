package extractor

import (
	"strings"

	"csgostash/scraper/internal/client"
	"csgostash/scraper/internal/config"
	"csgostash/scraper/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

// Page reads item fields from a parsed detail page. Every accessor trims
// surrounding whitespace and fails with *domain.MissingFieldError when the
// element is absent or empty.
type Page struct {
	doc       *goquery.Document
	sel       config.SelectorConfig
	sourceURL string
}

// NewPage wraps doc. sourceURL is used to make relative links absolute and may be empty.
func NewPage(doc *goquery.Document, sel config.SelectorConfig, sourceURL string) *Page {
	return &Page{doc: doc, sel: sel, sourceURL: sourceURL}
}

// Name returns the page's primary heading.
func (p *Page) Name() (string, error) {
	return p.text(p.sel.Heading, domain.FieldDescription)
}

// Title is Name under the souvenir package vocabulary.
func (p *Page) Title() (string, error) {
	return p.Name()
}

// Rarity returns the quality label. Some items have none, so callers
// usually treat a FieldWear miss as an absent value.
func (p *Page) Rarity() (string, error) {
	return p.text(p.sel.Rarity, domain.FieldWear)
}

// Prices maps the first cell of every data row of the price table to its
// second cell. Rows with fewer than two cells are skipped.
func (p *Page) Prices() (domain.PriceTable, error) {
	rows, err := p.dataRows()
	if err != nil {
		return nil, err
	}

	prices := domain.PriceTable{}
	for i := range rows.Length() {
		cells := rows.Eq(i).Find(p.sel.TableCell)
		if cells.Length() < 2 {
			continue
		}
		condition := strings.TrimSpace(cells.Eq(0).Text())
		price := strings.TrimSpace(cells.Eq(1).Text())
		prices = prices.Set(condition, price)
	}
	return prices, nil
}

// Items returns the first cell of every data row of the item table.
func (p *Page) Items() ([]string, error) {
	rows, err := p.dataRows()
	if err != nil {
		return nil, err
	}

	items := []string{}
	for i := range rows.Length() {
		cells := rows.Eq(i).Find(p.sel.TableCell)
		if cells.Length() == 0 {
			continue
		}
		items = append(items, strings.TrimSpace(cells.First().Text()))
	}
	return items, nil
}

func (p *Page) ImageURL() (string, error) {
	return p.link(p.sel.Image, "src", domain.FieldImage)
}

func (p *Page) CollectionURL() (string, error) {
	return p.link(p.sel.CollectionLink, "href", domain.FieldCollection)
}

func (p *Page) CollectionName() (string, error) {
	return p.text(p.sel.CollectionLink, domain.FieldCollection)
}

// SouvenirContents lists the item names shown as package contents.
func (p *Page) SouvenirContents() ([]string, error) {
	var contents []string
	p.doc.Find(p.sel.SouvenirContents).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			contents = append(contents, text)
		}
	})
	if len(contents) == 0 {
		return nil, &domain.MissingFieldError{Field: domain.FieldContents, Selector: p.sel.SouvenirContents}
	}
	return contents, nil
}

// dataRows returns the rows of the first matching table minus its header row.
func (p *Page) dataRows() (*goquery.Selection, error) {
	table := p.doc.Find(p.sel.PriceTable).First()
	if table.Length() == 0 {
		return nil, &domain.MissingFieldError{Field: domain.FieldPriceTable, Selector: p.sel.PriceTable}
	}
	rows := table.Find(p.sel.TableRow)
	if rows.Length() == 0 {
		return rows, nil
	}
	return rows.Slice(1, goquery.ToEnd), nil
}

func (p *Page) text(selector string, field domain.FieldKind) (string, error) {
	text := strings.TrimSpace(p.doc.Find(selector).First().Text())
	if text == "" {
		return "", &domain.MissingFieldError{Field: field, Selector: selector}
	}
	return text, nil
}

func (p *Page) link(selector, attr string, field domain.FieldKind) (string, error) {
	value, ok := p.doc.Find(selector).First().Attr(attr)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return "", &domain.MissingFieldError{Field: field, Selector: selector}
	}
	if p.sourceURL == "" {
		return value, nil
	}
	resolved, err := client.ResolveURL(p.sourceURL, value)
	if err != nil {
		return value, nil
	}
	return resolved, nil
}
