package cart

import (
	"github.com/shopspring/decimal"

	"ms-licensing/internal/models"
)

// Pricer computes cart totals. Everything stays an exact decimal; rounding
// to two places happens only when an amount is rendered for display.
type Pricer struct {
	VATRate decimal.Decimal
}

func NewPricer(vatRate float64) *Pricer {
	return &Pricer{VATRate: decimal.NewFromFloat(vatRate)}
}

// Compute fills in the aggregate fields of a quote from its lines:
//
//	subtotal = Σ unit prices
//	discount = subtotal × couponRate
//	tax      = (subtotal − discount) × VAT rate
//	total    = subtotal − discount + tax
func (p *Pricer) Compute(quote *models.Quote, couponRate decimal.Decimal) {
	subtotal := decimal.Zero
	for _, line := range quote.Lines {
		subtotal = subtotal.Add(line.UnitPrice)
	}

	discount := subtotal.Mul(couponRate)
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(p.VATRate)

	quote.Subtotal = subtotal
	quote.Discount = discount
	quote.Tax = tax
	quote.Total = taxable.Add(tax)
}

// DisplayAmount renders an exact amount at the presentation boundary.
func DisplayAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
