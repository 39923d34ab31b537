package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"
)

var statRows = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

func (s ColumnStats) values() []float64 {
	return []float64{float64(s.Count), s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max}
}

// Text renders the report as newline-joined sections.
func (r *Report) Text() string {
	parts := []string{
		shapeText(r.Rows, r.Cols),
		fmt.Sprintf("\n--- First %d Rows ---", len(r.Head)),
		headText(r.Columns, r.Head),
		"\n--- Column Names ---",
		strings.Join(r.Columns, ", "),
		"\n--- Summary Statistics ---",
		describeText(r.Stats),
		"\n--- Missing Values ---\n" + missingText(r.Missing),
	}
	return strings.Join(parts, "\n")
}

func shapeText(rows, cols int) string {
	return fmt.Sprintf("Dataset Shape: %d rows, %d columns", rows, cols)
}

func headText(columns []string, head [][]string) string {
	if len(head) == 0 {
		return fmt.Sprintf("Empty DataFrame\nColumns: [%s]\nIndex: []", strings.Join(columns, ", "))
	}
	header := append([]string{""}, columns...)
	rows := make([][]string, len(head))
	for i, row := range head {
		rows[i] = append([]string{strconv.Itoa(i)}, row...)
	}
	return plainTable(header, rows, nil)
}

func describeText(st []ColumnStats) string {
	if len(st) == 0 {
		return "(no numeric columns)"
	}
	header := []string{""}
	for _, s := range st {
		header = append(header, s.Name)
	}
	rows := make([][]string, len(statRows))
	for i, label := range statRows {
		row := []string{label}
		for _, s := range st {
			row = append(row, formatStat(s.values()[i]))
		}
		rows[i] = row
	}
	return plainTable(header, rows, nil)
}

func missingText(mc []MissingCount) string {
	if len(mc) == 0 {
		return "(no columns)"
	}
	rows := make([][]string, len(mc))
	for i, m := range mc {
		rows[i] = []string{m.Name, strconv.Itoa(m.Count)}
	}
	return plainTable(nil, rows, []int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
}

// plainTable renders a borderless, right-aligned text table.
func plainTable(header []string, rows [][]string, align []int) string {
	var b strings.Builder
	tw := tablewriter.NewWriter(&b)
	if header != nil {
		tw.SetHeader(header)
	}
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetBorder(false)
	tw.SetHeaderLine(false)
	tw.SetColumnSeparator("")
	tw.SetCenterSeparator("")
	tw.SetRowSeparator("")
	tw.SetHeaderAlignment(tablewriter.ALIGN_RIGHT)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	if align != nil {
		tw.SetColumnAlignment(align)
	}
	tw.AppendBulk(rows)
	tw.Render()
	return strings.TrimRight(b.String(), "\n")
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// Markdown renders the report with the same sections as Markdown tables.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Dataset Summary\n\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: `%s`\n\n", r.Name))
	}
	b.WriteString("## Shape\n\n")
	b.WriteString(shapeText(r.Rows, r.Cols))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("## First %d Rows\n\n", len(r.Head)))
	if len(r.Head) == 0 || len(r.Columns) == 0 {
		b.WriteString("_no rows_\n\n")
	} else {
		writeMDTable(&b, r.Columns, r.Head)
	}

	b.WriteString("## Column Names\n\n")
	if len(r.Columns) == 0 {
		b.WriteString("_no columns_\n\n")
	} else {
		b.WriteString(strings.Join(r.Columns, ", "))
		b.WriteString("\n\n")
	}

	b.WriteString("## Summary Statistics\n\n")
	if len(r.Stats) == 0 {
		b.WriteString("_no numeric columns_\n\n")
	} else {
		header := []string{"statistic"}
		for _, s := range r.Stats {
			header = append(header, s.Name)
		}
		rows := make([][]string, len(statRows))
		for i, label := range statRows {
			row := []string{label}
			for _, s := range r.Stats {
				row = append(row, formatStat(s.values()[i]))
			}
			rows[i] = row
		}
		writeMDTable(&b, header, rows)
	}

	b.WriteString("## Missing Values\n\n")
	if len(r.Missing) == 0 {
		b.WriteString("_no columns_\n")
	} else {
		rows := make([][]string, len(r.Missing))
		for i, m := range r.Missing {
			rows[i] = []string{m.Name, strconv.Itoa(m.Count)}
		}
		writeMDTable(&b, []string{"column", "missing"}, rows)
	}
	return b.String()
}

func writeMDTable(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| ")
	for i, h := range header {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeVal(h))
	}
	b.WriteString(" |\n|")
	for range header {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString("| ")
		for i, v := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			if utf8.RuneCountInString(v) > 80 {
				v = string([]rune(v)[:77]) + "..."
			}
			b.WriteString(safeVal(v))
		}
		b.WriteString(" |\n")
	}
	b.WriteString("\n")
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
