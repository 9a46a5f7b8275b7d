package document

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// VATRate is the flat VAT surcharge applied to every quote subtotal.
const VATRate = 0.16

// Placeholder is printed instead of any monetary figure when no subtotal has
// been priced yet.
const Placeholder = "TBD"

// Totals holds the three monetised figures of a quote. All three are nil
// together when the subtotal is unknown.
type Totals struct {
	Subtotal *float64
	VAT      *float64
	Total    *float64
}

// ComputeTotals derives VAT and the final total from a subtotal.
func ComputeTotals(subtotal *float64) Totals {
	if subtotal == nil {
		return Totals{}
	}
	sub := round2(*subtotal)
	vat := round2(sub * VATRate)
	total := round2(sub + vat)
	return Totals{Subtotal: &sub, VAT: &vat, Total: &total}
}

// FormatMoney renders "KES 116,000.00", or TBD for a nil amount.
func FormatMoney(currency string, amount *float64) string {
	if amount == nil {
		return Placeholder
	}
	return currency + " " + formatNumber(*amount)
}

func formatNumber(v float64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%.2f", v)
}

func formatQuantity(v float64) string {
	p := message.NewPrinter(language.English)
	if v == math.Trunc(v) {
		return p.Sprintf("%d", int64(v))
	}
	return p.Sprintf("%.2f", v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
