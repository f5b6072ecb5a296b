// Package validation holds the declarative schema for transaction creation.
//
// The schema is expressed as validator struct tags; raw form text is coerced
// to typed values first (the price field becomes cents) and then checked as a
// unit, so one submit reports every bad field at once.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"dtmoney/internal/core"
)

// Field names used in Errors. They match the HTML input names and the JSON
// keys of the API payload.
const (
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldCategory    = "category"
	FieldType        = "type"
	FieldCreatedAt   = "createdAt"
)

// Errors maps a field name to a user-facing message.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field has an error.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// AsErrors unwraps err into Errors.
func AsErrors(err error) (Errors, bool) {
	var ve Errors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// FormValues is the raw text captured by the creation form.
type FormValues struct {
	Description string
	Price       string
	Category    string
	Type        string
}

type transactionForm struct {
	Description string               `json:"description" validate:"required,notblank"`
	Price       core.Money           `json:"price" validate:"gt=0"`
	Category    string               `json:"category" validate:"required,notblank"`
	Type        core.TransactionType `json:"type" validate:"required,oneof=income outcome"`
}

var messages = map[string]string{
	FieldDescription: "Informe a descrição",
	FieldPrice:       "Informe um valor numérico maior que zero",
	FieldCategory:    "Informe a categoria",
	FieldType:        "Selecione entrada ou saída",
	FieldCreatedAt:   "Data de criação inválida",
}

// Schema validates creation input. It is safe for concurrent use.
type Schema struct {
	v *validator.Validate
}

// New builds the schema and registers the custom rules it relies on.
func New() *Schema {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Money is validated through its cents.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if m, ok := field.Interface().(core.Money); ok {
			return m.Cents
		}
		return nil
	}, core.Money{})
	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(fmt.Sprintf("register notblank: %v", err))
	}
	return &Schema{v: v}
}

// ValidateForm coerces raw form text and validates it. On failure the
// returned error is Errors and the input is the zero value.
func (s *Schema) ValidateForm(fv FormValues) (core.CreateTransactionInput, error) {
	errs := Errors{}

	form := transactionForm{
		Description: strings.TrimSpace(fv.Description),
		Category:    strings.TrimSpace(fv.Category),
		Type:        core.TransactionType(strings.TrimSpace(fv.Type)),
	}
	cents, err := core.ParseDecimalToCents(fv.Price)
	if err != nil {
		errs[FieldPrice] = messages[FieldPrice]
	}
	form.Price = core.Money{Cents: cents}

	s.collect(form, errs)
	if len(errs) > 0 {
		return core.CreateTransactionInput{}, errs
	}
	return core.CreateTransactionInput{
		Description: form.Description,
		Type:        form.Type,
		Price:       form.Price,
		Category:    form.Category,
	}, nil
}

// ValidatePayload checks a wire payload, as received by the API.
func (s *Schema) ValidatePayload(nt core.NewTransaction) error {
	errs := Errors{}
	s.collect(nt, errs)
	if nt.CreatedAt != "" && !errs.Has(FieldCreatedAt) {
		if _, err := core.ParseCreatedAt(nt.CreatedAt); err != nil {
			errs[FieldCreatedAt] = messages[FieldCreatedAt]
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *Schema) collect(v interface{}, errs Errors) {
	err := s.v.Struct(v)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs["_"] = err.Error()
		return
	}
	for _, fe := range fieldErrs {
		field := fe.Field()
		if errs.Has(field) {
			continue
		}
		msg, ok := messages[field]
		if !ok {
			msg = fmt.Sprintf("failed %q rule", fe.Tag())
		}
		errs[field] = msg
	}
}
