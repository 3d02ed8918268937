package sink

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"csgostash/scraper/internal/domain"

	"github.com/jedib0t/go-pretty/v6/table"
)

var separator = strings.Repeat("-", 50)

type writerSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter prints human readable records to w.
func NewWriter(w io.Writer) Sink {
	return &writerSink{w: w}
}

func (s *writerSink) Put(_ context.Context, record domain.ItemRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Scraping %s: %s\n", record.Category.GetCategoryName(), record.Name())
	fmt.Fprintf(&b, "URL: %s\n", record.SourceURL)

	switch {
	case record.Skin != nil:
		rarity := record.Skin.Rarity
		if rarity == "" {
			rarity = "n/a"
		}
		fmt.Fprintf(&b, "Rarity: %s\n", rarity)
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Condition", "Price"})
		for _, p := range record.Skin.Prices {
			t.AppendRow(table.Row{p.Condition, p.Price})
		}
		b.WriteString(t.Render())
		b.WriteString("\n")
	case record.Collection != nil:
		b.WriteString(listTable("Items", record.Collection.Items))
	case record.Souvenir != nil:
		fmt.Fprintf(&b, "Image URL: %s\n", record.Souvenir.ImageURL)
		fmt.Fprintf(&b, "Collection: %s (%s)\n", record.Souvenir.CollectionName, record.Souvenir.CollectionURL)
		b.WriteString(listTable("Contents", record.Souvenir.Contents))
	}

	b.WriteString("\n" + separator + "\n\n")

	_, err := io.WriteString(s.w, b.String())
	return err
}

func listTable(header string, values []string) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", header})
	for i, v := range values {
		t.AppendRow(table.Row{i + 1, v})
	}
	return t.Render() + "\n"
}
