package domain

import (
	"errors"
	"fmt"
)

// ErrPaginationAbsent marks a listing page without a pagination control.
// It is logged by the walker and never returned to callers.
var ErrPaginationAbsent = errors.New("page has no pagination")

type FetchErrorKind string

const (
	FetchUnreachable FetchErrorKind = "unreachable"
	FetchStatus      FetchErrorKind = "status"
	FetchDecode      FetchErrorKind = "decode"
)

// FetchError is returned by the page fetcher for network, status or decode failures.
type FetchError struct {
	URL        string
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchStatus:
		return fmt.Sprintf("fetch %s: HTTP status %d", e.URL, e.StatusCode)
	default:
		if e.Err != nil {
			return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
		}
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err carries a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

type FieldKind string

const (
	FieldDescription FieldKind = "description" // name or title heading
	FieldWear        FieldKind = "wear"        // rarity / quality label
	FieldCollection  FieldKind = "collection"
	FieldPriceTable  FieldKind = "price_table"
	FieldImage       FieldKind = "image"
	FieldContents    FieldKind = "contents"

	// Reserved: no extraction routine reads these yet.
	FieldLore             FieldKind = "lore"
	FieldDateAdded        FieldKind = "date_added"
	FieldStattrakSouvenir FieldKind = "stattrak_souvenir"
)

// MissingFieldError reports a required element absent from a fetched page.
type MissingFieldError struct {
	Field    FieldKind
	Selector string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("item has no %s (selector %q)", e.Field, e.Selector)
}

// IsMissingField reports whether err is a *MissingFieldError for field.
func IsMissingField(err error, field FieldKind) bool {
	var mf *MissingFieldError
	return errors.As(err, &mf) && mf.Field == field
}

// MarkupShapeMismatchError is returned when no known container variant
// matches on a listing page.
type MarkupShapeMismatchError struct {
	URL      string
	Selector string
	Tried    []string
}

func (e *MarkupShapeMismatchError) Error() string {
	return fmt.Sprintf("no item containers %q found on %s (tried %v)", e.Selector, e.URL, e.Tried)
}
