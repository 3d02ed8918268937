package config

import (
	"os"
	"path/filepath"
	"testing"

	"csgostash/scraper/internal/domain"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	require.Equal(t, "https://csgostash.com/", cfg.Catalog.BaseURL)
	require.Equal(t, 30, cfg.Catalog.Timeout)
	require.Equal(t, 1, cfg.Crawl.Workers)
	require.Equal(t, DefaultSelectors(), cfg.Selectors)
	require.Equal(t, []string{"stdout"}, cfg.Sink.Targets)
	require.False(t, cfg.Redis.Enabled)

	skins := cfg.Category(domain.ItemCategoryWeaponSkin)
	require.Equal(t, []string{"weapon"}, skins.Roots)
	require.Equal(t, "details-link", skins.ContainerClass)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
catalog:
  base_url: http://localhost:8080/
  timeout: 5
crawl:
  workers: 4
  categories:
    sticker:
      roots: ["stickers/all"]
      menus: ["Stickers"]
      container_class: sticker-link
selectors:
  heading: h2.title
  container_tags: [section, a]
sink:
  targets: [stdout, postgres]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "http://localhost:8080/", cfg.Catalog.BaseURL)
	require.Equal(t, 5, cfg.Catalog.Timeout)
	require.Equal(t, 4, cfg.Crawl.Workers)
	require.Equal(t, "h2.title", cfg.Selectors.Heading)
	require.Equal(t, []string{"section", "a"}, cfg.Selectors.ContainerTags)
	// untouched selectors keep their defaults
	require.Equal(t, DefaultSelectors().PriceTable, cfg.Selectors.PriceTable)

	stickers := cfg.Category(domain.ItemCategorySticker)
	require.Equal(t, []string{"stickers/all"}, stickers.Roots)
	require.Equal(t, []string{"Stickers"}, stickers.Menus)
	require.Equal(t, "sticker-link", stickers.ContainerClass)
}

func TestLoadRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name     string
		contents string
	}{
		{name: "relative base url", contents: "catalog:\n  base_url: /just/a/path\n"},
		{name: "zero workers", contents: "crawl:\n  workers: 0\n"},
		{name: "unknown sink", contents: "sink:\n  targets: [kafka]\n"},
		{name: "unknown category", contents: "crawl:\n  categories:\n    agent:\n      roots: [agents]\n"},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, test.contents))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
