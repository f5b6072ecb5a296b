// This file holds helpers for reading and checking request data.

package http

import (
	"net/http"
	"strings"

	"dtmoney/internal/validation"
)

// maxFormBytes bounds the creation form body.
const maxFormBytes = 16 << 10

// Form field names posted by the creation form.
const (
	formDescription = "description"
	formPrice       = "price"
	formCategory    = "category"
	formType        = "type"
	queryParam      = "query"
)

// sanitizeInput removes control characters except tab, newline and carriage
// return. It does not trim; the schema decides what blank means.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(w http.ResponseWriter, r *http.Request) *HTMXResponseBuilder {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Formato de requisição inválido")
	}
	return nil
}

// FormValuesFromRequest reads the creation form fields. Call after ParseForm.
func FormValuesFromRequest(r *http.Request) validation.FormValues {
	return validation.FormValues{
		Description: sanitizeInput(r.PostForm.Get(formDescription)),
		Price:       sanitizeInput(r.PostForm.Get(formPrice)),
		Category:    sanitizeInput(r.PostForm.Get(formCategory)),
		Type:        sanitizeInput(r.PostForm.Get(formType)),
	}
}

// SearchQuery returns the search text exactly as typed.
func SearchQuery(r *http.Request) string {
	return r.URL.Query().Get(queryParam)
}

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
