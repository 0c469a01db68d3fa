package models

import "github.com/shopspring/decimal"

// VATRate is the flat display rate applied on top of order subtotals.
var VATRate = decimal.NewFromFloat(0.20)

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	VAT      decimal.Decimal `json:"vat"`
	Total    decimal.Decimal `json:"total"`
}

// Totals is a display computation only; nothing in the lifecycle depends on it.
func (o *Order) Totals() Totals {
	subtotal := decimal.Zero
	for _, line := range o.Lines {
		subtotal = subtotal.Add(line.Subtotal())
	}
	vat := subtotal.Mul(VATRate).Round(2)
	return Totals{
		Subtotal: subtotal,
		VAT:      vat,
		Total:    subtotal.Add(vat),
	}
}

// UnitCount is the number of ordered units across all lines.
func (o *Order) UnitCount() int {
	n := 0
	for _, line := range o.Lines {
		n += line.Quantity
	}
	return n
}
