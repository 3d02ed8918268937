package config

import "github.com/spf13/viper"

// SelectorConfig is every piece of site markup the scraper depends on.
// The site does not version its HTML, so all selectors live here and can be
// overridden under the "selectors" key without touching extraction code.
type SelectorConfig struct {
	// Detail pages
	Heading          string `mapstructure:"heading"`
	Rarity           string `mapstructure:"rarity"`
	PriceTable       string `mapstructure:"price_table"`
	TableRow         string `mapstructure:"table_row"`
	TableCell        string `mapstructure:"table_cell"`
	Image            string `mapstructure:"image"`
	CollectionLink   string `mapstructure:"collection_link"`
	SouvenirContents string `mapstructure:"souvenir_contents"`

	// Listing pages
	Pagination     string `mapstructure:"pagination"`
	PaginationLink string `mapstructure:"pagination_link"`
	// ContainerTags are tried in order with the container class until one matches.
	ContainerTags []string `mapstructure:"container_tags"`
	DetailsClass  string   `mapstructure:"details_class"`

	// Home page menus
	MenuItem string `mapstructure:"menu_item"`
	MenuLink string `mapstructure:"menu_link"`
}

func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Heading:          "h1",
		Rarity:           "div.quality",
		PriceTable:       "table.table.table-bordered.table-condensed",
		TableRow:         "tr",
		TableCell:        "td",
		Image:            "img.main-skin-img",
		CollectionLink:   "div.collection-link a",
		SouvenirContents: "div.souvenir-contents h3",

		Pagination:     "ul.pagination",
		PaginationLink: "a",
		ContainerTags:  []string{"div", "a"},
		DetailsClass:   "details-link",

		MenuItem: "li.dropdown",
		MenuLink: "a",
	}
}

func setSelectorDefaults(v *viper.Viper) {
	d := DefaultSelectors()
	v.SetDefault("selectors.heading", d.Heading)
	v.SetDefault("selectors.rarity", d.Rarity)
	v.SetDefault("selectors.price_table", d.PriceTable)
	v.SetDefault("selectors.table_row", d.TableRow)
	v.SetDefault("selectors.table_cell", d.TableCell)
	v.SetDefault("selectors.image", d.Image)
	v.SetDefault("selectors.collection_link", d.CollectionLink)
	v.SetDefault("selectors.souvenir_contents", d.SouvenirContents)
	v.SetDefault("selectors.pagination", d.Pagination)
	v.SetDefault("selectors.pagination_link", d.PaginationLink)
	v.SetDefault("selectors.container_tags", d.ContainerTags)
	v.SetDefault("selectors.details_class", d.DetailsClass)
	v.SetDefault("selectors.menu_item", d.MenuItem)
	v.SetDefault("selectors.menu_link", d.MenuLink)
}
