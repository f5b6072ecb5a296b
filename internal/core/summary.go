package core

// Summary aggregates a collection for the summary cards.
type Summary struct {
	Income  Money
	Outcome Money
	Total   Money // Income - Outcome, may be negative
}

// Summarize sums incomes and outcomes over txs.
func Summarize(txs []Transaction) Summary {
	var s Summary
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.Income = s.Income.Add(t.Price)
		case Outcome:
			s.Outcome = s.Outcome.Add(t.Price)
		}
	}
	s.Total = s.Income.Sub(s.Outcome)
	return s
}
