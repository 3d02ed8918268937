package sink

import (
	"fmt"
	"io"

	"csgostash/scraper/internal/domain"

	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteReport prints per-category totals followed by every failed URL.
func WriteReport(w io.Writer, report *domain.Report) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Category", "Listing pages", "Scraped", "Failed", "Duplicates"})
	for _, category := range domain.ItemCategories {
		stats, ok := report.Categories[category]
		if !ok {
			continue
		}
		t.AppendRow(table.Row{category.GetCategoryName(), stats.ListingPages, stats.Succeeded, stats.Failed, stats.Duplicates})
	}
	succeeded, failed := report.Total()
	t.AppendFooter(table.Row{"Total", "", succeeded, failed, ""})

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	if len(report.Failures) == 0 {
		return nil
	}

	f := table.NewWriter()
	f.AppendHeader(table.Row{"Category", "URL", "Reason"})
	for _, failure := range report.Failures {
		f.AppendRow(table.Row{failure.Category.GetCategoryName(), failure.URL, failure.Reason})
	}
	_, err := fmt.Fprintln(w, f.Render())
	return err
}
