package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the table with a header row and no index column. Missing
// cells are written as empty fields so the output reloads to the same table.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	names := t.Names()
	if err := cw.Write(names); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i], _ = t.Column(n)
	}
	rec := make([]string, len(names))
	for r := 0; r < t.Rows(); r++ {
		for j, c := range cols {
			if c.Missing[r] {
				rec[j] = ""
			} else {
				rec[j] = c.Str[r]
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
