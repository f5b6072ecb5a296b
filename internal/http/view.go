package http

import (
	"dtmoney/internal/core"
	"dtmoney/internal/form"
	"dtmoney/internal/format"
	"dtmoney/internal/store"
	"dtmoney/internal/validation"
)

// Messages shown in the list panel.
const (
	msgListFailed = "Não foi possível carregar as transações."
	msgEmptyList  = "Nenhuma transação encontrada."
)

type transactionRow struct {
	ID          int64
	Description string
	Category    string
	Price       string
	Date        string
	Outcome     bool
}

type summaryView struct {
	Income   string
	Outcome  string
	Total    string
	Negative bool
}

type listView struct {
	Rows    []transactionRow
	Summary summaryView
	Query   string
	Loading bool
	Error   string
	Empty   string

	// RetryQuery repeats the failed fetch from the error banner.
	RetryQuery string
}

type formView struct {
	Values    validation.FormValues
	Errors    validation.Errors
	FormError string
}

type pageView struct {
	List   listView
	Form   formView
	Locale string
}

func newListView(f *format.Formatter, snap store.Snapshot) listView {
	v := listView{
		Rows:    make([]transactionRow, 0, len(snap.Transactions)),
		Summary: newSummaryView(f, core.Summarize(snap.Transactions)),
		Query:   snap.Query,
		Loading: snap.Status == store.StatusLoading,
	}
	// Create failures are reported on the form, never on the list.
	if snap.FetchErr != nil {
		v.Error = msgListFailed
		v.RetryQuery = snap.FetchQuery
	}
	for _, t := range snap.Transactions {
		v.Rows = append(v.Rows, transactionRow{
			ID:          t.ID,
			Description: t.Description,
			Category:    t.Category,
			Price:       f.TransactionPrice(t),
			Date:        f.Date(t.CreatedAt),
			Outcome:     t.IsOutcome(),
		})
	}
	if len(v.Rows) == 0 && v.Error == "" {
		v.Empty = msgEmptyList
	}
	return v
}

func newSummaryView(f *format.Formatter, s core.Summary) summaryView {
	return summaryView{
		Income:   f.Price(s.Income),
		Outcome:  f.Price(s.Outcome),
		Total:    f.Price(s.Total),
		Negative: s.Total.Cents < 0,
	}
}

func newFormView(st form.State) formView {
	return formView{
		Values:    st.Values,
		Errors:    st.Errors,
		FormError: st.FormError,
	}
}
