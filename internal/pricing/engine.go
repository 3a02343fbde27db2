package pricing

import "github.com/shopspring/decimal"

// Money is a decimal amount in the warehouse currency.
type Money = decimal.Decimal

// Line describes one priced basket line.
type Line struct {
	ItemID    string `json:"itemId"`
	Qty       int    `json:"qty"`
	UnitPrice Money  `json:"unitPrice"`
	// Payable is the amount owed for the line after any discount rule.
	Payable Money  `json:"payable"`
	Rule    string `json:"rule,omitempty"`
}

// Summary aggregates computed pricing components.
type Summary struct {
	Lines    []Line `json:"lines"`
	Subtotal Money  `json:"subtotal"`
	Discount Money  `json:"discount"`
	Total    Money  `json:"total"`
	Currency string `json:"currency"`
}

// Compute totals the provided lines. Subtotal is the undiscounted sum of
// unit price times quantity; Total is the sum of payable amounts.
func Compute(lines []Line, currency string) Summary {
	subtotal := decimal.Zero
	total := decimal.Zero
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty))))
		total = total.Add(l.Payable)
	}
	discount := subtotal.Sub(total)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return Summary{
		Lines:    lines,
		Subtotal: subtotal,
		Discount: discount,
		Total:    total,
		Currency: currency,
	}
}
