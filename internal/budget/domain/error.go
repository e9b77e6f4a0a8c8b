package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                = errors.New("budget_not_found")
	ErrItemNotFound            = errors.New("item_not_found")
	ErrEmptyItemList           = errors.New("empty_item_list")
	ErrDiscountExceedsSubtotal = errors.New("discount_exceeds_subtotal")
	ErrClientNotOwned          = errors.New("client_not_owned")
	ErrInvalidStatus           = errors.New("invalid_status")
	ErrInvalidValidUntil       = errors.New("invalid_valid_until")
	ErrInvalidCurrency         = errors.New("invalid_currency")
	ErrInvalidTitle            = errors.New("invalid_title")
	ErrInvalidDiscount         = errors.New("invalid_discount")
	ErrInvalidClientID         = errors.New("invalid_client_id")
	ErrInvalidID               = errors.New("invalid_id")
	ErrInvalidUser             = errors.New("invalid_user")
	ErrInvalidPageToken        = errors.New("invalid_page_token")
)

// Item validation reasons.
const (
	ReasonRequired    = "required"
	ReasonPositive    = "must_be_positive"
	ReasonNonNegative = "must_not_be_negative"
	ReasonNotAllowed  = "not_allowed"
	ReasonTooPrecise  = "too_precise"
	ReasonOutOfRange  = "out_of_range"
	ReasonTooMany     = "too_many"
	ReasonTooLong     = "too_long"
)

// NoIndex marks an item error that does not belong to a batch.
const NoIndex = -1

// InvalidItemError reports the first rule a line item broke. Index is the
// position in a batch, or NoIndex for single-item operations.
type InvalidItemError struct {
	Index  int
	Field  string
	Reason string
}

func (e *InvalidItemError) Error() string {
	if e.Index == NoIndex {
		return fmt.Sprintf("invalid item: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid item %d: %s %s", e.Index, e.Field, e.Reason)
}

// Path is the request field the error points at, e.g. items[2].quantity.
func (e *InvalidItemError) Path() string {
	if e.Index == NoIndex {
		return e.Field
	}
	if e.Field == "" {
		return fmt.Sprintf("items[%d]", e.Index)
	}
	return fmt.Sprintf("items[%d].%s", e.Index, e.Field)
}

// UnknownFieldError is returned when a request names a field outside the
// allowed set for the operation.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}
