package renderer

import (
	"bytes"
	"time"

	"github.com/etnz/tradesim"
	md "github.com/nao1215/markdown"
)

// HistoryMarkdown renders the value history of a portfolio.
func HistoryMarkdown(points []tradesim.ValuePoint) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Value history")

	if len(points) == 0 {
		doc.PlainText("No history yet.")
		return doc.String()
	}

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{"Time", "Value", "Change"},
		Rows:   [][]string{},
	}
	for i, p := range points {
		change := ""
		if i > 0 {
			change = p.Value.Sub(points[i-1].Value).SignedString()
		}
		when := "unknown"
		if !p.Timestamp.IsZero() {
			when = p.Timestamp.Local().Format(time.DateTime)
		}
		table.Rows = append(table.Rows, []string{when, p.Value.String(), change})
	}
	doc.Table(table)
	return doc.String()
}
