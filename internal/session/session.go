package session

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/KaramelBytes/edaloom/internal/analysis"
	"github.com/KaramelBytes/edaloom/internal/charts"
	"github.com/KaramelBytes/edaloom/internal/dataset"
	"github.com/KaramelBytes/edaloom/internal/loader"
	"github.com/jellydator/ttlcache/v3"
	"github.com/sirupsen/logrus"
)

// ErrNoTable is returned when no table has been loaded yet.
var ErrNoTable = errors.New("no table loaded")

// Options configures a session.
type Options struct {
	Loader   loader.Options
	Summary  analysis.Options
	Registry *charts.Registry
	// CacheTTL bounds how long a section stays cached; 0 keeps it until the next load.
	CacheTTL time.Duration
	Logger   logrus.FieldLogger
}

type key struct {
	table   string
	section string
}

// Session holds the current table and memoizes summary sections for it.
type Session struct {
	opt   Options
	log   logrus.FieldLogger
	mu    sync.RWMutex
	table *dataset.Table
	cache *ttlcache.Cache[key, string]
}

// New returns an empty session.
func New(opt Options) *Session {
	if opt.Registry == nil {
		opt.Registry = charts.DefaultRegistry()
	}
	log := opt.Logger
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	if opt.Loader.Logger == nil {
		opt.Loader.Logger = log
	}
	ttl := opt.CacheTTL
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	return &Session{
		opt:   opt,
		log:   log,
		cache: ttlcache.New[key, string](ttlcache.WithTTL[key, string](ttl)),
	}
}

// Load reads path and makes it the current table.
func (s *Session) Load(path string) (*dataset.Table, error) {
	t, err := loader.Load(path, s.opt.Loader)
	if err != nil {
		return nil, err
	}
	s.Set(t)
	return t, nil
}

// LoadReader reads an uploaded stream and makes it the current table.
func (s *Session) LoadReader(r io.Reader, name string) (*dataset.Table, error) {
	t, err := loader.LoadReader(r, name, s.opt.Loader)
	if err != nil {
		return nil, err
	}
	s.Set(t)
	return t, nil
}

// Set replaces the current table and drops every cached section.
func (s *Session) Set(t *dataset.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = t
	s.cache.DeleteAll()
	s.log.WithFields(logrus.Fields{"table": t.ID(), "rows": t.Rows(), "cols": t.Cols()}).Info("table loaded")
}

// Table returns the current table.
func (s *Session) Table() (*dataset.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return nil, ErrNoTable
	}
	return s.table, nil
}

// Registry returns the chart registry in use.
func (s *Session) Registry() *charts.Registry { return s.opt.Registry }

// Section returns the text of one summary section, computing it at most
// once per table.
func (s *Session) Section(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return "", ErrNoTable
	}
	k := key{table: s.table.ID(), section: name}
	if item := s.cache.Get(k); item != nil {
		return item.Value(), nil
	}
	out, err := analysis.Section(s.table, name, s.opt.Summary)
	if err != nil {
		return "", err
	}
	s.cache.Set(k, out, ttlcache.DefaultTTL)
	s.log.WithField("section", name).Debug("summary section computed")
	return out, nil
}

// Report returns the full summary of the current table.
func (s *Session) Report() (*analysis.Report, error) {
	t, err := s.Table()
	if err != nil {
		return nil, err
	}
	return analysis.Summarize(t, s.opt.Summary), nil
}

// Render builds a chart from the current table.
func (s *Session) Render(req charts.Request) (charts.Result, error) {
	t, err := s.Table()
	if err != nil {
		return nil, err
	}
	res, err := charts.Render(t, req, s.opt.Registry)
	if err != nil {
		return nil, err
	}
	if u, ok := res.(charts.Unavailable); ok {
		s.log.WithFields(logrus.Fields{"chart": req.Name, "reason": u.Reason}).Warn("chart unavailable")
	}
	return res, nil
}

// Cached returns the number of cached sections.
func (s *Session) Cached() int { return s.cache.Len() }
