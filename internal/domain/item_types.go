package domain

import "fmt"

type ItemCategory string

func (c ItemCategory) String() string {
	return string(c)
}

const (
	ItemCategoryWeaponSkin      ItemCategory = "weapon_skin"      // Weapon skins
	ItemCategoryCollection      ItemCategory = "collection"       // Collections
	ItemCategorySticker         ItemCategory = "sticker"          // Stickers
	ItemCategorySouvenirPackage ItemCategory = "souvenir_package" // Souvenir packages
)

// ItemCategories is the crawl order used when no filter is given.
var ItemCategories = []ItemCategory{
	ItemCategoryWeaponSkin,
	ItemCategoryCollection,
	ItemCategorySouvenirPackage,
	ItemCategorySticker,
}

func (c ItemCategory) GetCategoryName() string {
	switch c {
	case ItemCategoryWeaponSkin:
		return "Weapon Skin"
	case ItemCategoryCollection:
		return "Collection"
	case ItemCategorySticker:
		return "Sticker"
	case ItemCategorySouvenirPackage:
		return "Souvenir Package"
	default:
		return "Unknown"
	}
}

func ParseItemCategory(s string) (ItemCategory, error) {
	for _, c := range ItemCategories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown item category %q", s)
}
