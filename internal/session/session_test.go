package session

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/KaramelBytes/edaloom/internal/analysis"
	"github.com/KaramelBytes/edaloom/internal/charts"
	"github.com/KaramelBytes/edaloom/internal/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession() *Session {
	return New(Options{Loader: loader.DefaultOptions(), Summary: analysis.DefaultOptions()})
}

func TestNoTable(t *testing.T) {
	s := newSession()
	_, err := s.Table()
	assert.ErrorIs(t, err, ErrNoTable)
	_, err = s.Section(analysis.SectionShape)
	assert.ErrorIs(t, err, ErrNoTable)
	_, err = s.Render(charts.Request{Name: "correlation_matrix"})
	assert.ErrorIs(t, err, ErrNoTable)
	_, err = s.Report()
	assert.ErrorIs(t, err, ErrNoTable)
}

func TestSectionMemoizedAndInvalidated(t *testing.T) {
	s := newSession()
	first, err := s.LoadReader(strings.NewReader("daily_active_minutes_instagram,gender\n50,M\n150,F\n"), "a.csv")
	require.NoError(t, err)

	shape, err := s.Section(analysis.SectionShape)
	require.NoError(t, err)
	assert.Equal(t, "Dataset Shape: 2 rows, 3 columns", shape)
	_, err = s.Section(analysis.SectionShape)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Cached())

	_, err = s.Section(analysis.SectionMissing)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Cached())

	second, err := s.LoadReader(strings.NewReader("gender\nM\n"), "b.csv")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Zero(t, s.Cached(), "a new load drops cached sections")

	shape, err = s.Section(analysis.SectionShape)
	require.NoError(t, err)
	assert.Equal(t, "Dataset Shape: 1 rows, 1 columns", shape)
}

func TestSectionUnknown(t *testing.T) {
	s := newSession()
	_, err := s.LoadReader(strings.NewReader("a\n1\n"), "")
	require.NoError(t, err)
	_, err = s.Section("bogus")
	assert.Error(t, err)
	assert.Zero(t, s.Cached())
}

func TestLoadFailureKeepsTable(t *testing.T) {
	s := newSession()
	dir := t.TempDir()
	p := filepath.Join(dir, "ok.csv")
	require.NoError(t, os.WriteFile(p, []byte("a,b\n1,2\n"), 0o644))
	tbl, err := s.Load(p)
	require.NoError(t, err)

	_, err = s.Load(filepath.Join(dir, "missing.csv"))
	var fe *loader.FileError
	require.ErrorAs(t, err, &fe)

	cur, err := s.Table()
	require.NoError(t, err)
	assert.Equal(t, tbl.ID(), cur.ID())
}

func TestRenderDelegates(t *testing.T) {
	s := newSession()
	_, err := s.LoadReader(strings.NewReader("daily_active_minutes_instagram,gender\n50,M\n150,F\n450,F\n"), "s.csv")
	require.NoError(t, err)

	res, err := s.Render(charts.Request{Name: "activity_by_gender"})
	require.NoError(t, err)
	_, ok := res.(*charts.Chart)
	assert.True(t, ok)

	res, err = s.Render(charts.Request{Name: "activity_by_employment"})
	require.NoError(t, err)
	u, ok := res.(charts.Unavailable)
	require.True(t, ok)
	assert.Equal(t, []string{"employment_status"}, u.Missing)
}

func TestConcurrentReaders(t *testing.T) {
	s := newSession()
	_, err := s.LoadReader(strings.NewReader("x,y\n1,2\n2,4\n3,7\n"), "c.csv")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, sec := range analysis.Sections {
				_, err := s.Section(sec)
				assert.NoError(t, err)
			}
			_, err := s.Render(charts.Request{Name: "correlation_matrix"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, len(analysis.Sections), s.Cached())
}
