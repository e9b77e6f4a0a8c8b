package domain

import "github.com/shopspring/decimal"

// Totals are the derived monetary fields of a budget.
type Totals struct {
	Subtotal decimal.Decimal
	Total    decimal.Decimal
}

// Recalculate sums lineTotals and applies discount. It never looks at stored
// budget totals, so calling it twice on the same input gives the same result.
func Recalculate(lineTotals []decimal.Decimal, discount decimal.Decimal) (Totals, error) {
	subtotal := decimal.Zero
	for _, lt := range lineTotals {
		subtotal = subtotal.Add(lt)
	}
	return RecalculateFromSubtotal(subtotal, discount)
}

// RecalculateFromSubtotal is Recalculate for a subtotal already summed by the store.
func RecalculateFromSubtotal(subtotal, discount decimal.Decimal) (Totals, error) {
	if discount.IsNegative() {
		return Totals{}, ErrInvalidDiscount
	}
	subtotal = subtotal.Round(moneyScale)
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		return Totals{}, ErrDiscountExceedsSubtotal
	}
	if subtotal.GreaterThan(maxMoney) {
		return Totals{}, &InvalidItemError{Index: NoIndex, Field: "items", Reason: ReasonOutOfRange}
	}
	return Totals{Subtotal: subtotal, Total: total}, nil
}

// ValidateDiscount checks a user-supplied discount before it reaches the recalculator.
func ValidateDiscount(d decimal.Decimal) error {
	if d.IsNegative() || exceedsScale(d, moneyScale) || d.GreaterThan(maxMoney) {
		return ErrInvalidDiscount
	}
	return nil
}

func LineTotals(items []LineItem) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		out = append(out, item.LineTotal)
	}
	return out
}
