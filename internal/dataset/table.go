package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/google/uuid"
)

// Kind is the inferred storage type of a column.
type Kind string

const (
	Numeric Kind = "numeric"
	Text    Kind = "text"
)

// naToken is the cell value gota treats as missing for every series type.
const naToken = "NaN"

// DefaultMissingValues lists the cell values read as missing.
var DefaultMissingValues = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL"}

// Table is an immutable, ordered set of equally long named columns.
// Every Table carries a fresh ID; derived tables get a new one.
type Table struct {
	id    string
	name  string
	df    dataframe.DataFrame
	kinds []Kind
	index map[string]int
}

// Column is a read-only snapshot of a single column.
type Column struct {
	Name    string
	Kind    Kind
	Num     []float64 // numeric columns only, NaN where missing
	Str     []string  // cell text; "" where missing
	Missing []bool
}

// Len returns the number of cells.
func (c Column) Len() int { return len(c.Missing) }

// MissingCount returns the number of missing cells.
func (c Column) MissingCount() int {
	n := 0
	for _, m := range c.Missing {
		if m {
			n++
		}
	}
	return n
}

// Present returns the non-missing numeric values in row order.
func (c Column) Present() []float64 {
	out := make([]float64, 0, len(c.Num))
	for i, v := range c.Num {
		if !c.Missing[i] {
			out = append(out, v)
		}
	}
	return out
}

// FromRecords builds a Table from a header and data rows. Cells found in
// missing are treated as missing; nil means DefaultMissingValues. Every row
// must have exactly len(header) cells.
func FromRecords(name string, header []string, rows [][]string, missing []string) (*Table, error) {
	if missing == nil {
		missing = DefaultMissingValues
	}
	na := make(map[string]struct{}, len(missing))
	for _, m := range missing {
		na[m] = struct{}{}
	}
	names := normalizeHeader(header)
	for i, r := range rows {
		if len(r) != len(names) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", i+1, len(r), len(names))
		}
	}
	cols := make([]series.Series, 0, len(names))
	kinds := make([]Kind, 0, len(names))
	for j, colName := range names {
		raw := make([]string, len(rows))
		for i, r := range rows {
			v := r[j]
			if _, ok := na[v]; ok {
				v = naToken
			}
			raw[i] = v
		}
		s, kind := inferSeries(colName, raw)
		cols = append(cols, s)
		kinds = append(kinds, kind)
	}
	return newTable(name, cols, kinds)
}

// inferSeries stores the column as float when every present cell parses as a
// number, and as string otherwise.
func inferSeries(name string, raw []string) (series.Series, Kind) {
	nums := make([]string, len(raw))
	numeric := true
	for i, v := range raw {
		if v == naToken {
			nums[i] = naToken
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) {
			numeric = false
			break
		}
		nums[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	if numeric {
		return series.New(nums, series.Float, name), Numeric
	}
	return series.New(raw, series.String, name), Text
}

func newTable(name string, cols []series.Series, kinds []Kind) (*Table, error) {
	t := &Table{id: uuid.NewString(), name: name, kinds: kinds, index: make(map[string]int, len(cols))}
	if len(cols) > 0 {
		t.df = dataframe.New(cols...)
		if t.df.Err != nil {
			return nil, fmt.Errorf("build table: %w", t.df.Err)
		}
	}
	for i, s := range cols {
		t.index[s.Name] = i
	}
	return t, nil
}

// normalizeHeader names empty headers "Unnamed: i" and suffixes duplicates
// with ".1", ".2", ... in order of appearance.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	taken := make(map[string]struct{}, len(header))
	for _, h := range header {
		taken[h] = struct{}{}
	}
	for i, h := range header {
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[h]; dup {
			cand := h
			for {
				n++
				cand = fmt.Sprintf("%s.%d", h, n)
				if _, clash := taken[cand]; !clash {
					break
				}
			}
			seen[h] = n
			taken[cand] = struct{}{}
			out[i] = cand
			continue
		}
		seen[h] = 0
		out[i] = h
	}
	return out
}

// ID identifies this table instance.
func (t *Table) ID() string { return t.id }

// Name is the source the table was loaded from, if any.
func (t *Table) Name() string { return t.name }

// Rows returns the row count.
func (t *Table) Rows() int {
	if len(t.kinds) == 0 {
		return 0
	}
	return t.df.Nrow()
}

// Cols returns the column count.
func (t *Table) Cols() int { return len(t.kinds) }

// Names returns column names in table order.
func (t *Table) Names() []string {
	if len(t.kinds) == 0 {
		return nil
	}
	return t.df.Names()
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// KindOf returns the column kind and whether the column exists.
func (t *Table) KindOf(name string) (Kind, bool) {
	i, ok := t.index[name]
	if !ok {
		return "", false
	}
	return t.kinds[i], true
}

// NumericNames returns the numeric column names in table order.
func (t *Table) NumericNames() []string {
	var out []string
	for _, n := range t.Names() {
		if k, _ := t.KindOf(n); k == Numeric {
			out = append(out, n)
		}
	}
	return out
}

// Column returns a snapshot of the named column.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	s := t.df.Col(name)
	n := s.Len()
	c := Column{Name: name, Kind: t.kinds[i], Str: make([]string, n), Missing: make([]bool, n)}
	if c.Kind == Numeric {
		c.Num = s.Float()
	}
	for r := 0; r < n; r++ {
		e := s.Elem(r)
		if e.IsNA() {
			c.Missing[r] = true
			continue
		}
		if c.Kind == Numeric {
			c.Str[r] = strconv.FormatFloat(c.Num[r], 'g', -1, 64)
		} else {
			c.Str[r] = e.String()
		}
	}
	return c, true
}

// WithColumn returns a copy of t with a text column set from values. Missing
// cells are given by missing[i]. An existing column of that name is replaced
// in place; otherwise the column is appended.
func (t *Table) WithColumn(name string, values []string, missing []bool) (*Table, error) {
	if len(values) != t.Rows() || len(missing) != len(values) {
		return nil, fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.Rows())
	}
	if len(t.kinds) == 0 {
		return nil, errors.New("cannot add a column to a table without columns")
	}
	raw := make([]string, len(values))
	for i, v := range values {
		if missing[i] {
			raw[i] = naToken
		} else {
			raw[i] = v
		}
	}
	df := t.df.Mutate(series.New(raw, series.String, name))
	if df.Err != nil {
		return nil, fmt.Errorf("add column %q: %w", name, df.Err)
	}
	out := &Table{id: uuid.NewString(), name: t.name, df: df, index: make(map[string]int, len(t.kinds)+1)}
	for i, n := range df.Names() {
		out.index[n] = i
		if j, ok := t.index[n]; ok && n != name {
			out.kinds = append(out.kinds, t.kinds[j])
		} else {
			out.kinds = append(out.kinds, Text)
		}
	}
	return out, nil
}
