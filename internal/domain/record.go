package domain

// Price is one row of a price table: condition (wear) label and price text.
type Price struct {
	Condition string `json:"condition"`
	Price     string `json:"price"`
}

// PriceTable keeps prices in page order.
type PriceTable []Price

// Set stores price under condition, overwriting an existing entry in place.
func (t PriceTable) Set(condition, price string) PriceTable {
	for i := range t {
		if t[i].Condition == condition {
			t[i].Price = price
			return t
		}
	}
	return append(t, Price{Condition: condition, Price: price})
}

// Get returns the price for condition.
func (t PriceTable) Get(condition string) (string, bool) {
	for _, p := range t {
		if p.Condition == condition {
			return p.Price, true
		}
	}
	return "", false
}

// SkinRecord is the shape shared by weapon skins and stickers.
type SkinRecord struct {
	Name   string     `json:"name"`
	Rarity string     `json:"rarity,omitempty"` // empty when the page has no rarity label
	Prices PriceTable `json:"prices"`
}

type CollectionRecord struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

type SouvenirPackageRecord struct {
	Title          string   `json:"title"`
	ImageURL       string   `json:"image_url"`
	CollectionURL  string   `json:"collection_url"`
	CollectionName string   `json:"collection_name"`
	Contents       []string `json:"contents"`
}

// ItemRecord is a variant keyed by Category. Exactly one of Skin, Collection
// or Souvenir is set, matching the category.
type ItemRecord struct {
	Category  ItemCategory `json:"category"`
	SourceURL string       `json:"source_url"`

	Skin       *SkinRecord            `json:"skin,omitempty"`
	Collection *CollectionRecord      `json:"collection,omitempty"`
	Souvenir   *SouvenirPackageRecord `json:"souvenir,omitempty"`
}

// Name returns the record's name or title.
func (r ItemRecord) Name() string {
	switch {
	case r.Skin != nil:
		return r.Skin.Name
	case r.Collection != nil:
		return r.Collection.Name
	case r.Souvenir != nil:
		return r.Souvenir.Title
	}
	return ""
}
