package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Languages that write the currency symbol after the amount.
var suffixSymbol = map[string]bool{
	"fr": true, "de": true, "es": true, "it": true, "pt": true, "nl": true,
	"pl": true, "sv": true, "da": true, "fi": true, "nb": true, "cs": true, "ru": true,
}

// Formatter renders amounts with locale grouping and the currency symbol.
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
	symbol  string
	suffix  bool
}

// NewFormatter parses a BCP 47 locale (e.g. "fr-FR") and an ISO 4217 code.
func NewFormatter(locale, code string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", code, err)
	}
	p := message.NewPrinter(tag)
	base, _ := tag.Base()
	return &Formatter{
		printer: p,
		unit:    unit,
		symbol:  p.Sprint(currency.Symbol(unit)),
		suffix:  suffixSymbol[base.String()],
	}, nil
}

// MustFormatter is NewFormatter that panics on bad input.
func MustFormatter(locale, code string) *Formatter {
	f, err := NewFormatter(locale, code)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Formatter) Currency() string {
	return f.unit.String()
}

// Format rounds to two fraction digits; the float conversion only feeds display.
func (f *Formatter) Format(amount decimal.Decimal) string {
	n := f.printer.Sprint(number.Decimal(amount.Round(2).InexactFloat64(), number.Scale(2)))
	if f.suffix {
		return n + " " + f.symbol
	}
	return f.symbol + n
}

// FormatSummary renders all three summary amounts.
func (f *Formatter) FormatSummary(s Summary) (subtotal, shipping, total string) {
	return f.Format(s.Subtotal), f.Format(s.Shipping), f.Format(s.Total)
}
