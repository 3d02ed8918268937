package sink

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"csgostash/scraper/internal/domain"

	"github.com/stretchr/testify/require"
)

type recordingRepo struct {
	saved []domain.ItemRecord
	err   error
}

func (r *recordingRepo) EnsureSchema(context.Context) error { return nil }

func (r *recordingRepo) SaveRecord(_ context.Context, record domain.ItemRecord) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, record)
	return nil
}

func TestWriterPrintsSkin(t *testing.T) {
	var buf bytes.Buffer
	record := domain.ItemRecord{
		Category:  domain.ItemCategoryWeaponSkin,
		SourceURL: "https://csgostash.com/skin/1",
		Skin: &domain.SkinRecord{
			Name:   "AK-47 | Redline",
			Rarity: "Classified Rifle",
			Prices: domain.PriceTable{{Condition: "Factory New", Price: "$10.50"}},
		},
	}

	require.NoError(t, NewWriter(&buf).Put(context.Background(), record))

	out := buf.String()
	require.Contains(t, out, "Scraping Weapon Skin: AK-47 | Redline")
	require.Contains(t, out, "Rarity: Classified Rifle")
	require.Contains(t, out, "Factory New")
	require.Contains(t, out, "$10.50")
	require.Contains(t, out, separator)
}

func TestWriterPrintsCollectionAndSouvenir(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.Put(context.Background(), domain.ItemRecord{
		Category:   domain.ItemCategoryCollection,
		Collection: &domain.CollectionRecord{Name: "The Dust 2 Collection", Items: []string{"P2000 | Amber Fade"}},
	}))
	require.NoError(t, w.Put(context.Background(), domain.ItemRecord{
		Category: domain.ItemCategorySouvenirPackage,
		Souvenir: &domain.SouvenirPackageRecord{
			Title:          "Dust II Souvenir Package",
			CollectionName: "The Dust 2 Collection",
			Contents:       []string{"SG 553 | Damascus Steel"},
		},
	}))

	out := buf.String()
	require.Contains(t, out, "Scraping Collection: The Dust 2 Collection")
	require.Contains(t, out, "P2000 | Amber Fade")
	require.Contains(t, out, "Scraping Souvenir Package: Dust II Souvenir Package")
	require.Contains(t, out, "SG 553 | Damascus Steel")
}

func TestMultiJoinsErrors(t *testing.T) {
	ok := &recordingRepo{}
	failing := &recordingRepo{err: errors.New("db down")}
	record := domain.ItemRecord{Category: domain.ItemCategorySticker, Skin: &domain.SkinRecord{Name: "Crown"}}

	err := Multi{NewRepository(ok), NewRepository(failing)}.Put(context.Background(), record)

	require.ErrorContains(t, err, "db down")
	require.Equal(t, []domain.ItemRecord{record}, ok.saved)
}

func TestWriteReport(t *testing.T) {
	report := domain.NewReport()
	report.Add(domain.ItemResult{URL: "https://csgostash.com/skin/1", Category: domain.ItemCategoryWeaponSkin, Record: &domain.ItemRecord{}})
	report.Add(domain.ItemResult{URL: "https://csgostash.com/skin/2", Category: domain.ItemCategoryWeaponSkin, Err: errors.New("item has no description")})
	report.Stats(domain.ItemCategorySticker).Duplicates = 3

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, report))

	out := buf.String()
	require.Contains(t, out, "Weapon Skin")
	require.Contains(t, out, "Sticker")
	require.Contains(t, out, "https://csgostash.com/skin/2")
	require.Contains(t, out, "item has no description")
	require.NotContains(t, out, "https://csgostash.com/skin/1")
}

func TestWriteReportWithoutFailures(t *testing.T) {
	report := domain.NewReport()
	report.Stats(domain.ItemCategoryCollection).Succeeded = 2

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, report))
	require.NotContains(t, buf.String(), "REASON")
}
