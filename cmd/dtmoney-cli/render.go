package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"dtmoney/internal/core"
	"dtmoney/internal/format"
)

// renderList prints transactions as an aligned table followed by the summary.
func renderList(w io.Writer, f *format.Formatter, txs []core.Transaction) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDESCRIÇÃO\tPREÇO\tCATEGORIA\tDATA")
	for _, t := range txs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Description, f.TransactionPrice(t), t.Category, f.Date(t.CreatedAt))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := core.Summarize(txs)
	_, err := fmt.Fprintf(w, "\nEntradas: %s  Saídas: %s  Total: %s\n",
		f.Price(s.Income), f.Price(s.Outcome), f.Price(s.Total))
	return err
}

// renderRow prints one transaction on a single line.
func renderRow(w io.Writer, f *format.Formatter, t core.Transaction) error {
	_, err := fmt.Fprintf(w, "#%d %s %s (%s) %s\n", t.ID, t.Description, f.TransactionPrice(t), t.Category, f.Date(t.CreatedAt))
	return err
}
