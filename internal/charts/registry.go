package charts

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/edaloom/internal/dataset"
)

// Kind selects the builder for a chart.
type Kind string

const (
	KindDistribution Kind = "distribution"
	KindGroupedCount Kind = "grouped_count"
	KindBinAggregate Kind = "bin_aggregate"
	KindCorrelation  Kind = "correlation"
	KindHistogram    Kind = "histogram"
	KindValueCounts  Kind = "value_counts"
)

var kinds = map[Kind]bool{
	KindDistribution: true,
	KindGroupedCount: true,
	KindBinAggregate: true,
	KindCorrelation:  true,
	KindHistogram:    true,
	KindValueCounts:  true,
}

// Spec describes one chart and the columns it needs.
//
//	distribution   Column (numeric)
//	grouped_count  Group, Hue
//	bin_aggregate  Column (numeric measure), Hue (bin column)
//	correlation    every numeric column
//	histogram      request column (numeric)
//	value_counts   request column
type Spec struct {
	Name   string `mapstructure:"name" yaml:"name,omitempty" json:"name"`
	Kind   Kind   `mapstructure:"kind" yaml:"kind" json:"kind"`
	Title  string `mapstructure:"title" yaml:"title,omitempty" json:"title,omitempty"`
	Column string `mapstructure:"column" yaml:"column,omitempty" json:"column,omitempty"`
	Group  string `mapstructure:"group" yaml:"group,omitempty" json:"group,omitempty"`
	Hue    string `mapstructure:"hue" yaml:"hue,omitempty" json:"hue,omitempty"`
	// Bins overrides the registry bin count for distribution and histogram charts.
	Bins int `mapstructure:"bins" yaml:"bins,omitempty" json:"bins,omitempty"`
}

// AdHoc reports whether the chart takes its column from the request.
func (s Spec) AdHoc() bool { return s.Kind == KindHistogram || s.Kind == KindValueCounts }

// Required lists the fixed columns the chart needs.
func (s Spec) Required() []string {
	switch s.Kind {
	case KindDistribution:
		return []string{s.Column}
	case KindGroupedCount:
		return []string{s.Group, s.Hue}
	case KindBinAggregate:
		return []string{s.Column, s.Hue}
	}
	return nil
}

// Validate checks the kind and that the fixed columns are named.
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("chart spec: name is required")
	}
	if !kinds[s.Kind] {
		return fmt.Errorf("chart %s: unknown kind %q", s.Name, s.Kind)
	}
	for _, c := range s.Required() {
		if c == "" {
			return fmt.Errorf("chart %s: %s needs columns %v", s.Name, s.Kind, s.Required())
		}
	}
	if s.Bins < 0 {
		return fmt.Errorf("chart %s: bins must not be negative", s.Name)
	}
	return nil
}

// Options holds the numeric knobs shared by all charts.
type Options struct {
	DistributionBins int    `mapstructure:"distribution_bins" yaml:"distribution_bins" json:"distribution_bins"`
	HistogramBins    int    `mapstructure:"histogram_bins" yaml:"histogram_bins" json:"histogram_bins"`
	SampleThreshold  int    `mapstructure:"sample_threshold" yaml:"sample_threshold" json:"sample_threshold"`
	SampleSize       int    `mapstructure:"sample_size" yaml:"sample_size" json:"sample_size"`
	Seed             uint64 `mapstructure:"seed" yaml:"seed" json:"seed"`
	MaxDistinct      int    `mapstructure:"max_distinct" yaml:"max_distinct" json:"max_distinct"`
	Top              int    `mapstructure:"top" yaml:"top" json:"top"`
	KDEPoints        int    `mapstructure:"kde_points" yaml:"kde_points" json:"kde_points"`
}

// DefaultOptions returns the standard chart settings.
func DefaultOptions() Options {
	return Options{
		DistributionBins: 20,
		HistogramBins:    30,
		SampleThreshold:  10000,
		SampleSize:       10000,
		Seed:             42,
		MaxDistinct:      20,
		Top:              10,
		KDEPoints:        200,
	}
}

// Registry maps chart names to specs. It is read-only once built.
type Registry struct {
	specs map[string]Spec
	order []string
	// Bins orders bin labels for grouped and aggregate charts.
	Bins dataset.BinSpec
	Opts Options
}

// NewRegistry returns an empty registry.
func NewRegistry(opt Options, bins dataset.BinSpec) *Registry {
	return &Registry{specs: map[string]Spec{}, Bins: bins, Opts: opt}
}

// DefaultSpecs returns the built-in charts in display order.
func DefaultSpecs(bins dataset.BinSpec) []Spec {
	return []Spec{
		{Name: "activity_distribution", Kind: KindDistribution, Title: "Daily Active Minutes on Instagram", Column: bins.Source},
		{Name: "activity_by_gender", Kind: KindGroupedCount, Title: "Activity by Gender", Group: "gender", Hue: bins.Target},
		{Name: "activity_by_employment", Kind: KindGroupedCount, Title: "Activity by Employment Status", Group: "employment_status", Hue: bins.Target},
		{Name: "reels_by_activity", Kind: KindBinAggregate, Title: "Reels Watched by Activity", Column: "reels_watched_per_day", Hue: bins.Target},
		{Name: "activity_by_age", Kind: KindBinAggregate, Title: "Average Age by Activity", Column: "age", Hue: bins.Target},
		{Name: "correlation_matrix", Kind: KindCorrelation, Title: "Feature Correlations"},
		{Name: "histogram", Kind: KindHistogram, Title: "Histogram"},
		{Name: "value_counts", Kind: KindValueCounts, Title: "Value Counts"},
	}
}

// DefaultRegistry returns the built-in charts for the default bin specification.
func DefaultRegistry() *Registry {
	bins := dataset.DefaultBinSpec()
	r := NewRegistry(DefaultOptions(), bins)
	for _, s := range DefaultSpecs(bins) {
		_ = r.Register(s)
	}
	return r
}

// Register adds or replaces a chart. Replaced charts keep their position.
func (r *Registry) Register(s Spec) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, ok := r.specs[s.Name]; !ok {
		r.order = append(r.order, s.Name)
	}
	r.specs[s.Name] = s
	return nil
}

// Merge registers overrides keyed by chart name. New names are appended in
// sorted order so the result does not depend on map iteration.
func (r *Registry) Merge(overrides map[string]Spec) error {
	names := make([]string, 0, len(overrides))
	for n := range overrides {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		s := overrides[n]
		s.Name = n
		if base, ok := r.specs[n]; ok {
			s = mergeSpec(base, s)
		}
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}

func mergeSpec(base, o Spec) Spec {
	if o.Kind != "" {
		base.Kind = o.Kind
	}
	if o.Title != "" {
		base.Title = o.Title
	}
	if o.Column != "" {
		base.Column = o.Column
	}
	if o.Group != "" {
		base.Group = o.Group
	}
	if o.Hue != "" {
		base.Hue = o.Hue
	}
	if o.Bins != 0 {
		base.Bins = o.Bins
	}
	return base
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (Spec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// Specs returns every chart in registration order.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.specs[n])
	}
	return out
}

// Names returns every chart name in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
