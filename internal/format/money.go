// Package format renders amounts for people. The aggregation packages never
// format; surfaces ask a MoneyFormatter.
package format

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"tracker/internal/core"
)

// MoneyFormatter formats amounts in one currency for one locale.
type MoneyFormatter struct {
	tag     language.Tag
	unit    currency.Unit
	printer *message.Printer
	symbol  string
}

// NewMoneyFormatter parses a BCP 47 locale and an ISO 4217 currency code.
func NewMoneyFormatter(locale, code string) (*MoneyFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", code, err)
	}
	p := message.NewPrinter(tag)
	return &MoneyFormatter{
		tag:     tag,
		unit:    unit,
		printer: p,
		symbol:  p.Sprint(currency.Symbol(unit)),
	}, nil
}

// Format renders v with the currency symbol and two decimals. Non-finite
// values render as zero.
func (f *MoneyFormatter) Format(v float64) string {
	if !core.IsFinite(v) {
		v = 0
	}
	v = core.RoundCents(v)
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	return sign + f.symbol + f.Number(v)
}

// Number renders v with locale grouping and two decimals, without a symbol.
func (f *MoneyFormatter) Number(v float64) string {
	if !core.IsFinite(v) {
		v = 0
	}
	return f.printer.Sprint(number.Decimal(core.RoundCents(v), number.Scale(2)))
}

func (f *MoneyFormatter) Currency() string { return f.unit.String() }

func (f *MoneyFormatter) Locale() string { return f.tag.String() }

// Registry caches formatters per locale and currency.
type Registry struct {
	mu    sync.Mutex
	items map[string]*MoneyFormatter
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]*MoneyFormatter)}
}

// Get returns the cached formatter for locale and code, creating it on first
// use.
func (r *Registry) Get(locale, code string) (*MoneyFormatter, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	key := strings.ToLower(locale) + ":" + code
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.items[key]; ok {
		return f, nil
	}
	f, err := NewMoneyFormatter(locale, code)
	if err != nil {
		return nil, err
	}
	r.items[key] = f
	return f, nil
}
