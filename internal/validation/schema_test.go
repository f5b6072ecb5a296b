package validation

import (
	"errors"
	"testing"

	"dtmoney/internal/core"
)

func TestValidateFormAccepts(t *testing.T) {
	s := New()
	in, err := s.ValidateForm(FormValues{
		Description: "  Desenvolvimento de site ",
		Price:       "14000,00",
		Category:    "Venda",
		Type:        "income",
	})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if in.Description != "Desenvolvimento de site" || in.Price.Cents != 1400000 || in.Category != "Venda" || in.Type != core.Income {
		t.Fatalf("unexpected input %+v", in)
	}
}

func TestValidateFormRejects(t *testing.T) {
	good := FormValues{Description: "Hamburguer", Price: "45.5", Category: "Alimentação", Type: "outcome"}
	tests := []struct {
		name  string
		edit  func(*FormValues)
		field string
	}{
		{"missing description", func(v *FormValues) { v.Description = "" }, FieldDescription},
		{"blank description", func(v *FormValues) { v.Description = "   " }, FieldDescription},
		{"non-numeric price", func(v *FormValues) { v.Price = "abc" }, FieldPrice},
		{"empty price", func(v *FormValues) { v.Price = "" }, FieldPrice},
		{"zero price", func(v *FormValues) { v.Price = "0" }, FieldPrice},
		{"missing category", func(v *FormValues) { v.Category = "" }, FieldCategory},
		{"missing type", func(v *FormValues) { v.Type = "" }, FieldType},
		{"unknown type", func(v *FormValues) { v.Type = "expense" }, FieldType},
		{"type is case sensitive", func(v *FormValues) { v.Type = "Income" }, FieldType},
	}
	s := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := good
			tt.edit(&v)
			in, err := s.ValidateForm(v)
			if err == nil {
				t.Fatalf("expected error, got input %+v", in)
			}
			errs, ok := AsErrors(err)
			if !ok {
				t.Fatalf("expected Errors, got %T", err)
			}
			if !errs.Has(tt.field) || len(errs) != 1 {
				t.Fatalf("expected only %s to fail, got %v", tt.field, errs)
			}
			if in != (core.CreateTransactionInput{}) {
				t.Fatalf("expected zero input on failure, got %+v", in)
			}
		})
	}
}

func TestValidateFormReportsAllFields(t *testing.T) {
	_, err := New().ValidateForm(FormValues{})
	errs, ok := AsErrors(err)
	if !ok {
		t.Fatalf("expected Errors, got %v", err)
	}
	for _, f := range []string{FieldDescription, FieldPrice, FieldCategory, FieldType} {
		if !errs.Has(f) {
			t.Errorf("expected error for %s in %v", f, errs)
		}
	}
}

func TestValidatePayload(t *testing.T) {
	s := New()
	ok := core.NewTransaction{
		Description: "Aluguel",
		Price:       core.Money{Cents: 120000},
		Category:    "Casa",
		Type:        core.Outcome,
		CreatedAt:   "2022-10-05T14:48:00.000Z",
	}
	if err := s.ValidatePayload(ok); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := ok
	bad.Type = "transfer"
	bad.CreatedAt = "yesterday"
	err := s.ValidatePayload(bad)
	errs, isErrs := AsErrors(err)
	if !isErrs || !errs.Has(FieldType) || !errs.Has(FieldCreatedAt) {
		t.Fatalf("expected type and createdAt errors, got %v", err)
	}

	var target Errors
	if !errors.As(err, &target) {
		t.Fatalf("errors.As should find Errors")
	}
	if target.Error() == "" {
		t.Fatalf("expected message")
	}
}
