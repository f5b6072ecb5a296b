// Package format turns prices and timestamps into display text.
//
// Formatting is table-driven per locale instead of going through CLDR data:
// the UI only ever shows one currency per deployment and the output must be
// stable byte for byte (tests and HTMX partials compare it).
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"dtmoney/internal/core"
)

// DefaultLocale is used when no locale is configured.
const DefaultLocale = "pt-BR"

// Locale describes how one locale renders money and calendar dates.
type Locale struct {
	Tag            string
	CurrencySymbol string
	DecimalSep     string
	GroupSep       string
	SymbolAfter    bool // "45,50 €" instead of "€ 45,50"
	SymbolSpace    bool
	DateLayout     string
}

var locales = map[string]Locale{
	"pt-BR": {Tag: "pt-BR", CurrencySymbol: "R$", DecimalSep: ",", GroupSep: ".", SymbolSpace: true, DateLayout: "02/01/2006"},
	"en-US": {Tag: "en-US", CurrencySymbol: "$", DecimalSep: ".", GroupSep: ",", DateLayout: "1/2/2006"},
	"it-IT": {Tag: "it-IT", CurrencySymbol: "€", DecimalSep: ",", GroupSep: ".", SymbolAfter: true, SymbolSpace: true, DateLayout: "2/1/2006"},
}

// Locales returns the supported locale tags.
func Locales() []string {
	return []string{"en-US", "it-IT", "pt-BR"}
}

// Formatter renders prices and dates for a locale. The zero value is not
// usable; build one with New.
type Formatter struct {
	locale   Locale
	location *time.Location
}

// New returns a formatter for the given locale tag. Dates are shown in loc;
// nil means time.Local.
func New(tag string, loc *time.Location) (*Formatter, error) {
	if tag == "" {
		tag = DefaultLocale
	}
	l, ok := locales[tag]
	if !ok {
		return nil, fmt.Errorf("unsupported locale %q: must be one of %v", tag, Locales())
	}
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{locale: l, location: loc}, nil
}

// MustNew is New for static configuration.
func MustNew(tag string, loc *time.Location) *Formatter {
	f, err := New(tag, loc)
	if err != nil {
		panic(err)
	}
	return f
}

// Locale returns the formatter's locale tag.
func (f *Formatter) Locale() string {
	return f.locale.Tag
}

// Price formats a monetary amount, e.g. "R$ 45,50". Negative amounts (only
// balances can be negative) get a leading "-".
func (f *Formatter) Price(m core.Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	number := groupThousands(strconv.FormatInt(cents/100, 10), f.locale.GroupSep) +
		f.locale.DecimalSep + fmt.Sprintf("%02d", cents%100)

	sep := ""
	if f.locale.SymbolSpace {
		sep = " "
	}
	var out string
	if f.locale.SymbolAfter {
		out = number + sep + f.locale.CurrencySymbol
	} else {
		out = f.locale.CurrencySymbol + sep + number
	}
	if neg {
		return "-" + out
	}
	return out
}

// TransactionPrice applies the sign convention: outcomes are prefixed with
// "- " for display only, the stored magnitude is never negated.
func (f *Formatter) TransactionPrice(t core.Transaction) string {
	if t.IsOutcome() {
		return "- " + f.Price(t.Price)
	}
	return f.Price(t.Price)
}

// Date formats a createdAt value as a calendar date. Unparseable values are
// returned unchanged so a bad row never breaks the table.
func (f *Formatter) Date(createdAt string) string {
	t, err := core.ParseCreatedAt(createdAt)
	if err != nil {
		return createdAt
	}
	return f.Time(t)
}

// Time formats an instant as a calendar date in the formatter's location.
func (f *Formatter) Time(t time.Time) string {
	return t.In(f.location).Format(f.locale.DateLayout)
}

func groupThousands(digits, sep string) string {
	if len(digits) <= 3 || sep == "" {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
