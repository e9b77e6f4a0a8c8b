package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validInput() ItemInput {
	return ItemInput{Name: "Design", Unit: "hr", Quantity: dec("2"), UnitPrice: dec("50")}
}

func TestValidateItemComputesLineTotal(t *testing.T) {
	item, err := ValidateItem(0, ItemInput{
		Name:      "  Logo  ",
		Unit:      "UN",
		Quantity:  dec("1.5"),
		UnitPrice: dec("33.34"),
		SortOrder: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "Logo", item.Name)
	assert.Equal(t, UnitUnit, item.Unit)
	assert.True(t, item.LineTotal.Equal(dec("50.01")), item.LineTotal.String())
}

func TestLineTotalIsExactProduct(t *testing.T) {
	assert.True(t, LineTotal(dec("3"), dec("0.33")).Equal(dec("0.99")))
	assert.True(t, LineTotal(dec("0.25"), dec("10.40")).Equal(dec("2.6")))
	assert.True(t, LineTotal(dec("0.333"), dec("1.00")).Equal(dec("0.333")))

	item, err := ValidateItem(0, ItemInput{Name: "Hours", Unit: "hr", Quantity: dec("1.5"), UnitPrice: dec("19.90")})
	require.NoError(t, err)
	assert.True(t, item.LineTotal.Equal(item.Quantity.Mul(item.UnitPrice)), item.LineTotal.String())
	assert.True(t, item.LineTotal.Equal(dec("29.85")), item.LineTotal.String())
}

func TestValidateItemRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ItemInput)
		field  string
		reason string
	}{
		{"blank name", func(in *ItemInput) { in.Name = "   " }, "name", ReasonRequired},
		{"bad unit", func(in *ItemInput) { in.Unit = "kg" }, "unit", ReasonNotAllowed},
		{"zero quantity", func(in *ItemInput) { in.Quantity = decimal.Zero }, "quantity", ReasonPositive},
		{"negative quantity", func(in *ItemInput) { in.Quantity = dec("-1") }, "quantity", ReasonPositive},
		{"quantity precision", func(in *ItemInput) { in.Quantity = dec("1.0001") }, "quantity", ReasonTooPrecise},
		{"negative price", func(in *ItemInput) { in.UnitPrice = dec("-0.01") }, "unit_price", ReasonNonNegative},
		{"price precision", func(in *ItemInput) { in.UnitPrice = dec("1.001") }, "unit_price", ReasonTooPrecise},
		{"sub-cent line total", func(in *ItemInput) {
			in.Quantity = dec("0.333")
			in.UnitPrice = dec("1.00")
		}, "line_total", ReasonTooPrecise},
		{"half-cent line total", func(in *ItemInput) {
			in.Quantity = dec("1.5")
			in.UnitPrice = dec("33.33")
		}, "line_total", ReasonTooPrecise},
		{"negative sort order", func(in *ItemInput) { in.SortOrder = -1 }, "sort_order", ReasonNonNegative},
		{"line total overflow", func(in *ItemInput) {
			in.Quantity = dec("1000")
			in.UnitPrice = dec("999999999999.99")
		}, "line_total", ReasonOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := ValidateItem(3, in)

			var invalid *InvalidItemError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, 3, invalid.Index)
			assert.Equal(t, tc.field, invalid.Field)
			assert.Equal(t, tc.reason, invalid.Reason)
		})
	}
}

func TestValidateItemAllowsFreeItem(t *testing.T) {
	in := validInput()
	in.UnitPrice = decimal.Zero
	item, err := ValidateItem(0, in)
	require.NoError(t, err)
	assert.True(t, item.LineTotal.IsZero())
}

func TestValidateItemsReportsIndex(t *testing.T) {
	bad := validInput()
	bad.Quantity = decimal.Zero

	_, err := ValidateItems([]ItemInput{validInput(), validInput(), bad}, 10)
	var invalid *InvalidItemError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 2, invalid.Index)
	assert.Equal(t, "items[2].quantity", invalid.Path())
}

func TestValidateItemsEmptyAndTooMany(t *testing.T) {
	_, err := ValidateItems(nil, 10)
	assert.ErrorIs(t, err, ErrEmptyItemList)

	_, err = ValidateItems([]ItemInput{validInput(), validInput()}, 1)
	var invalid *InvalidItemError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, ReasonTooMany, invalid.Reason)
	assert.Equal(t, "items", invalid.Path())
}

func TestApplyItemPatch(t *testing.T) {
	current, err := ValidateItem(0, validInput())
	require.NoError(t, err)

	qty := dec("3")
	next, err := ApplyItemPatch(current, UpdateItemRequest{Quantity: &qty})
	require.NoError(t, err)
	assert.True(t, next.LineTotal.Equal(dec("150")))
	assert.Equal(t, current.Name, next.Name)

	blank := " "
	_, err = ApplyItemPatch(current, UpdateItemRequest{Name: &blank})
	var invalid *InvalidItemError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, NoIndex, invalid.Index)
	assert.Equal(t, "name", invalid.Path())
}

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"draft", "sent", "approved", "rejected", "canceled"} {
		_, ok := ParseStatus(raw)
		assert.True(t, ok, raw)
	}
	_, ok := ParseStatus("archived")
	assert.False(t, ok)
	_, ok = ParseStatus("")
	assert.False(t, ok)
}
