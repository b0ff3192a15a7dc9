package handler

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// defaultLocale groups digits the Indian way (12,34,567)
const defaultLocale = "en-IN"

// Formatter renders leaderboard metrics for display in one locale
type Formatter struct {
	printer  *message.Printer
	currency string
	point    string
}

// NewFormatter creates a formatter. An unparsable locale falls back to en-IN.
func NewFormatter(currencySymbol, locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(defaultLocale)
	}
	printer := message.NewPrinter(tag)
	return &Formatter{
		printer:  printer,
		currency: currencySymbol,
		point:    decimalPoint(printer),
	}
}

// decimalPoint is the locale's fraction separator
func decimalPoint(p *message.Printer) string {
	s := p.Sprint(number.Decimal(1.5, number.MinFractionDigits(1)))
	if !strings.HasPrefix(s, "1") || !strings.HasSuffix(s, "5") || len(s) < 3 {
		return "."
	}
	return s[1 : len(s)-1]
}

// Money formats a sales volume with the currency symbol, e.g. ₹12,34,567.5
func (f *Formatter) Money(d decimal.Decimal) string {
	return f.currency + f.Decimal(d)
}

// Percent formats a rate that is already a percentage, e.g. 97.5%
func (f *Formatter) Percent(d decimal.Decimal) string {
	return f.Decimal(d) + "%"
}

// Decimal formats with locale grouping and at most two fraction digits.
// Only the integer part goes through the locale printer, so numeric(18,2)
// values keep every digit.
func (f *Formatter) Decimal(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")
	grouped := whole
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		grouped = f.printer.Sprint(number.Decimal(n))
	}

	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return sign + grouped
	}
	return sign + grouped + f.point + frac
}

// Count formats an integer with locale grouping
func (f *Formatter) Count(n int64) string {
	return f.printer.Sprint(number.Decimal(n))
}
