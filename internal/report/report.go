// Package report renders batch results for terminal output.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/joseph-ayodele/notafiscal/constants"
	"github.com/joseph-ayodele/notafiscal/internal/entity"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")).
			PaddingLeft(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			PaddingLeft(2)
)

// Render formats the table, summary and document errors of one batch.
func Render(res *entity.BatchResult) string {
	if res == nil {
		return ""
	}
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("NF-e batch %s", res.RunID)))
	b.WriteString("\n\n")
	b.WriteString(Table(res.Table))
	b.WriteString("\n\n")
	b.WriteString(Summary(res))

	if len(res.Failures) > 0 {
		b.WriteString("\n\n")
		b.WriteString(headerStyle.Render(fmt.Sprintf("Errors (%d)", len(res.Failures))))
		for _, f := range res.Failures {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(fmt.Sprintf("#%d %s: %s", f.Position+1, f.Document, f.Error)))
		}
	}
	b.WriteString("\n")
	return b.String()
}

// Table renders invoice rows under the export column labels.
func Table(t entity.InvoiceTable) string {
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))).
		Headers(constants.ColumnLabels()...).
		Rows(t.Rows()...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return tbl.String()
}

// Summary renders the derived statistics of a batch.
func Summary(res *entity.BatchResult) string {
	s := res.Summary
	lines := []struct {
		label string
		value any
	}{
		{"Documents", res.Documents},
		{"Rows", len(res.Table)},
		{"Duplicates removed", res.DuplicatesRemoved},
		{"Distinct notas", s.TotalNotas},
		{"Distinct emissores", s.UniqueEmissores},
		{"Distinct clientes", s.UniqueClientes},
		{"Top nota", quoted(s.TopNota)},
		{"Top cliente", quoted(s.TopCliente)},
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, labelStyle.Render(fmt.Sprintf("%-19s %v", l.label+":", l.value)))
	}
	return strings.Join(out, "\n")
}

func quoted(v string) string {
	if v == "" {
		return `""`
	}
	return v
}
