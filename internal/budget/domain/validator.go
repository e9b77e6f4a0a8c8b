package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	quantityScale = 3
	moneyScale    = 2
	maxNameLength = 255
)

// maxMoney is the largest value a numeric(14,2) column holds.
var maxMoney = decimal.RequireFromString("999999999999.99")

// LineTotal is the exact product of quantity and unit price.
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice)
}

// ValidateItem checks one candidate item and returns it with LineTotal set.
// IDs and timestamps are left for the caller.
func ValidateItem(index int, in ItemInput) (LineItem, error) {
	item := LineItem{
		ServiceID:   trimOptional(in.ServiceID),
		Name:        strings.TrimSpace(in.Name),
		Description: trimOptional(in.Description),
		Unit:        Unit(strings.ToLower(strings.TrimSpace(in.Unit))),
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		SortOrder:   in.SortOrder,
	}
	if err := checkItem(index, &item); err != nil {
		return LineItem{}, err
	}
	return item, nil
}

// ValidateItems validates the whole batch before anything is written.
func ValidateItems(items []ItemInput, maxItems int) ([]LineItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItemList
	}
	if maxItems > 0 && len(items) > maxItems {
		return nil, &InvalidItemError{Index: NoIndex, Field: "items", Reason: ReasonTooMany}
	}
	out := make([]LineItem, 0, len(items))
	for i, in := range items {
		item, err := ValidateItem(i, in)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// ApplyItemPatch merges patch over current and re-validates the result.
func ApplyItemPatch(current LineItem, patch UpdateItemRequest) (LineItem, error) {
	next := current
	if patch.ServiceID != nil {
		next.ServiceID = trimOptional(patch.ServiceID)
	}
	if patch.Name != nil {
		next.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		next.Description = trimOptional(patch.Description)
	}
	if patch.Unit != nil {
		next.Unit = Unit(strings.ToLower(strings.TrimSpace(*patch.Unit)))
	}
	if patch.Quantity != nil {
		next.Quantity = *patch.Quantity
	}
	if patch.UnitPrice != nil {
		next.UnitPrice = *patch.UnitPrice
	}
	if patch.SortOrder != nil {
		next.SortOrder = *patch.SortOrder
	}
	if err := checkItem(NoIndex, &next); err != nil {
		return LineItem{}, err
	}
	return next, nil
}

func checkItem(index int, item *LineItem) error {
	invalid := func(field, reason string) error {
		return &InvalidItemError{Index: index, Field: field, Reason: reason}
	}

	if item.Name == "" {
		return invalid("name", ReasonRequired)
	}
	if utf8.RuneCountInString(item.Name) > maxNameLength {
		return invalid("name", ReasonTooLong)
	}
	if _, ok := ParseUnit(string(item.Unit)); !ok {
		return invalid("unit", ReasonNotAllowed)
	}
	if !item.Quantity.IsPositive() {
		return invalid("quantity", ReasonPositive)
	}
	if exceedsScale(item.Quantity, quantityScale) {
		return invalid("quantity", ReasonTooPrecise)
	}
	if item.UnitPrice.IsNegative() {
		return invalid("unit_price", ReasonNonNegative)
	}
	if exceedsScale(item.UnitPrice, moneyScale) {
		return invalid("unit_price", ReasonTooPrecise)
	}
	if item.UnitPrice.GreaterThan(maxMoney) {
		return invalid("unit_price", ReasonOutOfRange)
	}
	if item.SortOrder < 0 {
		return invalid("sort_order", ReasonNonNegative)
	}

	// line_total is stored in cents and must equal the product exactly.
	item.LineTotal = LineTotal(item.Quantity, item.UnitPrice)
	if exceedsScale(item.LineTotal, moneyScale) {
		return invalid("line_total", ReasonTooPrecise)
	}
	if item.LineTotal.GreaterThan(maxMoney) {
		return invalid("line_total", ReasonOutOfRange)
	}
	return nil
}

func exceedsScale(d decimal.Decimal, scale int32) bool {
	return !d.Equal(d.Truncate(scale))
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
