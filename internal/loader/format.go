package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Records is raw tabular content: a header and equally wide data rows.
type Records struct {
	Header []string
	Rows   [][]string
}

// Format reads one on-disk or uploaded representation of a table.
type Format interface {
	Name() string
	CanRead(filename string) bool
	Read(r io.Reader, opt Options) (Records, error)
}

var registry []Format

// Register adds a format to the registry. Later registrations win ties.
func Register(f Format) {
	registry = append([]Format{f}, registry...)
}

// formatFor selects a format by file name, falling back to comma-separated text.
func formatFor(filename string) Format {
	for _, f := range registry {
		if f.CanRead(filename) {
			return f
		}
	}
	return delimited{name: "csv", comma: ','}
}

func init() {
	Register(delimited{name: "csv", comma: ',', exts: []string{".csv", ".txt"}})
	Register(delimited{name: "tsv", comma: '\t', exts: []string{".tsv", ".tab"}})
	Register(workbook{})
}

type delimited struct {
	name  string
	comma rune
	exts  []string
}

func (d delimited) Name() string { return d.name }

func (d delimited) CanRead(filename string) bool {
	name := strings.ToLower(filename)
	for _, e := range d.exts {
		if strings.HasSuffix(name, e) {
			return true
		}
	}
	return false
}

// byteOrderMark is written by spreadsheet exports at the start of UTF-8 text.
const byteOrderMark = "\ufeff"

func (d delimited) Read(r io.Reader, opt Options) (Records, error) {
	cr := csv.NewReader(r)
	cr.Comma = d.comma
	if opt.Delimiter != 0 {
		cr.Comma = opt.Delimiter
	}
	// Every row must match the header width.
	cr.FieldsPerRecord = 0
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Records{}, &ParseError{Err: errors.New("no columns to parse: file is empty")}
		}
		return Records{}, csvParseError(err)
	}
	out := Records{Header: append([]string(nil), header...)}
	out.Header[0] = strings.TrimPrefix(out.Header[0], byteOrderMark)
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Records{}, csvParseError(err)
		}
		out.Rows = append(out.Rows, rec)
	}
	return out, nil
}

func csvParseError(err error) *ParseError {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Err: pe.Err}
	}
	return &ParseError{Err: err}
}

type workbook struct{}

func (workbook) Name() string { return "xlsx" }

func (workbook) CanRead(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xlsm")
}

// Read takes the sheet named opt.SheetName, else the opt.SheetIndex-th sheet
// (1-based), else the first. Short rows are padded; rows wider than the
// header are rejected.
func (workbook) Read(r io.Reader, opt Options) (Records, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Records{}, &ParseError{Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Records{}, &ParseError{Err: errors.New("workbook has no sheets")}
	}
	sheet := sheets[0]
	switch {
	case opt.SheetName != "":
		found := false
		for _, s := range sheets {
			if strings.EqualFold(s, opt.SheetName) {
				sheet, found = s, true
				break
			}
		}
		if !found {
			return Records{}, &ParseError{Err: fmt.Errorf("sheet %q not found; available sheets: %s", opt.SheetName, strings.Join(sheets, ", "))}
		}
	case opt.SheetIndex > 0:
		if opt.SheetIndex > len(sheets) {
			return Records{}, &ParseError{Err: fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", opt.SheetIndex, len(sheets))}
		}
		sheet = sheets[opt.SheetIndex-1]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Records{}, &ParseError{Err: fmt.Errorf("read sheet %q: %w", sheet, err)}
	}
	if len(rows) == 0 {
		return Records{}, &ParseError{Err: fmt.Errorf("sheet %q is empty", sheet)}
	}
	out := Records{Header: rows[0]}
	width := len(out.Header)
	for i, row := range rows[1:] {
		if len(row) > width {
			return Records{}, &ParseError{Line: i + 2, Err: fmt.Errorf("row has %d cells, header has %d", len(row), width)}
		}
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
