package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/edaloom/internal/dataset"
	"github.com/KaramelBytes/edaloom/internal/utils"
	"github.com/sirupsen/logrus"
)

// Options controls how a table is read and enriched.
type Options struct {
	// Delimiter overrides the format default for delimited text. 0 keeps it.
	Delimiter rune
	// SheetName and SheetIndex (1-based) select a workbook sheet.
	SheetName  string
	SheetIndex int
	// MissingValues are the cell values read as missing; nil uses the defaults.
	MissingValues []string
	// Bins derives a categorical column when its source column is present.
	Bins dataset.BinSpec
	// Logger receives diagnostics; nil discards them.
	Logger logrus.FieldLogger
}

// DefaultOptions returns options that bin daily active minutes.
func DefaultOptions() Options {
	return Options{Bins: dataset.DefaultBinSpec()}
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	l := logrus.New()
	l.Out = io.Discard
	return l
}

// Load reads the file at path into a table. It returns *FileError when the
// file cannot be read and *ParseError when its content is not tabular.
func Load(path string, opt Options) (*dataset.Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &FileError{Path: path, Err: errors.New("is a directory")}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	return load(bytes.NewReader(data), path, opt)
}

// LoadReader reads an uploaded stream. name selects the format by extension.
func LoadReader(r io.Reader, name string, opt Options) (*dataset.Table, error) {
	if name == "" {
		name = "upload.csv"
	}
	return load(r, name, opt)
}

func load(r io.Reader, name string, opt Options) (*dataset.Table, error) {
	log := opt.logger().WithField("path", name)
	f := formatFor(name)
	recs, err := f.Read(r, opt)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Name = filepath.Base(name)
			return nil, pe
		}
		return nil, &ParseError{Name: filepath.Base(name), Err: err}
	}
	t, err := dataset.FromRecords(filepath.Base(name), recs.Header, recs.Rows, opt.MissingValues)
	if err != nil {
		return nil, &ParseError{Name: filepath.Base(name), Err: err}
	}
	log = log.WithFields(logrus.Fields{"format": f.Name(), "rows": t.Rows(), "cols": t.Cols()})
	if opt.Bins.Source == "" {
		log.Debug("loaded table")
		return t, nil
	}
	if err := opt.Bins.Validate(); err != nil {
		return nil, err
	}
	out, derived, err := opt.Bins.Derive(t)
	if err != nil {
		return nil, fmt.Errorf("derive %s: %w", opt.Bins.Target, err)
	}
	switch {
	case derived:
		log.WithField("column", opt.Bins.Target).Debug("derived bin column")
	case t.Has(opt.Bins.Source):
		log.WithField("column", opt.Bins.Source).Warn("bin source column is not numeric; skipping")
	}
	log.Debug("loaded table")
	return out, nil
}

// ExportFile writes the table as CSV to path atomically.
func ExportFile(path string, t *dataset.Table) error {
	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, t); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
