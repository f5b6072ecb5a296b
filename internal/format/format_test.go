package format

import (
	"testing"
	"time"

	"dtmoney/internal/core"
)

func TestTransactionPriceSignConvention(t *testing.T) {
	f := MustNew("pt-BR", time.UTC)

	out := core.Transaction{Type: core.Outcome, Price: core.NewMoney(45.5)}
	if got := f.TransactionPrice(out); got != "- R$ 45,50" {
		t.Fatalf("outcome: expected %q, got %q", "- R$ 45,50", got)
	}
	in := core.Transaction{Type: core.Income, Price: core.NewMoney(45.5)}
	if got := f.TransactionPrice(in); got != "R$ 45,50" {
		t.Fatalf("income: expected %q, got %q", "R$ 45,50", got)
	}
	if out.Price.Cents != 4550 {
		t.Fatalf("stored magnitude must not change, got %d", out.Price.Cents)
	}
}

func TestPriceLocales(t *testing.T) {
	cases := []struct {
		locale string
		cents  int64
		want   string
	}{
		{"pt-BR", 0, "R$ 0,00"},
		{"pt-BR", 5, "R$ 0,05"},
		{"pt-BR", 123456789, "R$ 1.234.567,89"},
		{"pt-BR", -4550, "-R$ 45,50"},
		{"en-US", 123456, "$1,234.56"},
		{"it-IT", 100000, "1.000,00 €"},
	}
	for _, tc := range cases {
		f := MustNew(tc.locale, time.UTC)
		if got := f.Price(core.Money{Cents: tc.cents}); got != tc.want {
			t.Errorf("%s %d: expected %q, got %q", tc.locale, tc.cents, tc.want, got)
		}
	}
}

func TestDate(t *testing.T) {
	f := MustNew("pt-BR", time.UTC)
	if got := f.Date("2022-10-05T14:48:00.000Z"); got != "05/10/2022" {
		t.Fatalf("expected 05/10/2022, got %q", got)
	}
	if got := f.Date("not a date"); got != "not a date" {
		t.Fatalf("unparseable dates should pass through, got %q", got)
	}

	// Late UTC evening is already the next day further east.
	tokyo := time.FixedZone("JST", 9*60*60)
	us := MustNew("en-US", tokyo)
	if got := us.Date("2022-10-05T20:00:00Z"); got != "10/6/2022" {
		t.Fatalf("expected 10/6/2022, got %q", got)
	}
}

func TestNewRejectsUnknownLocale(t *testing.T) {
	if _, err := New("xx-XX", nil); err == nil {
		t.Fatalf("expected error for unknown locale")
	}
	f, err := New("", nil)
	if err != nil || f.Locale() != DefaultLocale {
		t.Fatalf("empty tag should fall back to %s, got %v %v", DefaultLocale, f, err)
	}
}
