package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/KaramelBytes/edaloom/internal/analysis"
	"github.com/KaramelBytes/edaloom/internal/charts"
	"github.com/KaramelBytes/edaloom/internal/dataset"
	"github.com/KaramelBytes/edaloom/internal/render"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// HistogramConfig controls the ad hoc histogram.
type HistogramConfig struct {
	Bins            int    `mapstructure:"bins" yaml:"bins"`
	SampleThreshold int    `mapstructure:"sample_threshold" yaml:"sample_threshold"`
	SampleSize      int    `mapstructure:"sample_size" yaml:"sample_size"`
	Seed            uint64 `mapstructure:"seed" yaml:"seed"`
}

// ValueCountsConfig controls the value counts chart.
type ValueCountsConfig struct {
	MaxDistinct int `mapstructure:"max_distinct" yaml:"max_distinct"`
	Top         int `mapstructure:"top" yaml:"top"`
}

// RenderConfig sets chart output defaults.
type RenderConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Width  int    `mapstructure:"width" yaml:"width"`
	Height int    `mapstructure:"height" yaml:"height"`
}

// Global configuration structure.
type Global struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	HeadRows      int      `mapstructure:"head_rows" yaml:"head_rows"`
	MissingValues []string `mapstructure:"missing_values" yaml:"missing_values"`
	// Delimiter overrides the field separator of delimited files; empty keeps the format default.
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`

	Bins             dataset.BinSpec   `mapstructure:"bins" yaml:"bins"`
	DistributionBins int               `mapstructure:"distribution_bins" yaml:"distribution_bins"`
	Histogram        HistogramConfig   `mapstructure:"histogram" yaml:"histogram"`
	ValueCounts      ValueCountsConfig `mapstructure:"value_counts" yaml:"value_counts"`
	// Charts overrides or adds registry entries by name.
	Charts map[string]charts.Spec `mapstructure:"charts" yaml:"charts,omitempty"`

	Render RenderConfig `mapstructure:"render" yaml:"render"`

	CacheTTLSec int    `mapstructure:"cache_ttl_sec" yaml:"cache_ttl_sec"`
	ServerAddr  string `mapstructure:"server_addr" yaml:"server_addr"`
}

// Dir returns ~/.edaloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".edaloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.edaloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	bins := dataset.DefaultBinSpec()
	copt := charts.DefaultOptions()
	ropt := render.DefaultOptions()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("head_rows", 5)
	v.SetDefault("missing_values", dataset.DefaultMissingValues)
	v.SetDefault("delimiter", "")
	v.SetDefault("bins.source", bins.Source)
	v.SetDefault("bins.target", bins.Target)
	v.SetDefault("bins.edges", bins.Edges)
	v.SetDefault("bins.labels", bins.Labels)
	v.SetDefault("bins.right", bins.Right)
	v.SetDefault("distribution_bins", copt.DistributionBins)
	v.SetDefault("histogram.bins", copt.HistogramBins)
	v.SetDefault("histogram.sample_threshold", copt.SampleThreshold)
	v.SetDefault("histogram.sample_size", copt.SampleSize)
	v.SetDefault("histogram.seed", copt.Seed)
	v.SetDefault("value_counts.max_distinct", copt.MaxDistinct)
	v.SetDefault("value_counts.top", copt.Top)
	v.SetDefault("render.format", string(render.PNG))
	v.SetDefault("render.width", ropt.Width)
	v.SetDefault("render.height", ropt.Height)
	v.SetDefault("cache_ttl_sec", 0)
	v.SetDefault("server_addr", ":8080")
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// A .env file in the working directory is read first if present.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	v := viper.New()
	v.SetEnvPrefix("EDALOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the bin specification and every size setting.
func (c *Global) Validate() error {
	if err := c.Bins.Validate(); err != nil {
		return err
	}
	positive := map[string]int{
		"head_rows":                  c.HeadRows,
		"distribution_bins":          c.DistributionBins,
		"histogram.bins":             c.Histogram.Bins,
		"histogram.sample_threshold": c.Histogram.SampleThreshold,
		"histogram.sample_size":      c.Histogram.SampleSize,
		"value_counts.max_distinct":  c.ValueCounts.MaxDistinct,
		"value_counts.top":           c.ValueCounts.Top,
		"render.width":               c.Render.Width,
		"render.height":              c.Render.Height,
	}
	for k, n := range positive {
		if n <= 0 {
			return fmt.Errorf("config %s must be positive, got %d", k, n)
		}
	}
	if c.CacheTTLSec < 0 {
		return fmt.Errorf("config cache_ttl_sec must not be negative, got %d", c.CacheTTLSec)
	}
	if _, err := render.ParseFormat(c.Render.Format); err != nil {
		return fmt.Errorf("config render.format: %w", err)
	}
	if _, err := c.DelimiterRune(); err != nil {
		return err
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	return nil
}

// DelimiterRune returns the configured delimiter, or 0 when unset.
// "\t" and "tab" both select a tab.
func (c *Global) DelimiterRune() (rune, error) {
	return ParseDelimiter(c.Delimiter)
}

// ParseDelimiter turns a flag or config value into a single rune.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\n' || r == '\r' {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

// ChartOptions maps the chart settings onto charts.Options.
func (c *Global) ChartOptions() charts.Options {
	opt := charts.DefaultOptions()
	opt.DistributionBins = c.DistributionBins
	opt.HistogramBins = c.Histogram.Bins
	opt.SampleThreshold = c.Histogram.SampleThreshold
	opt.SampleSize = c.Histogram.SampleSize
	opt.Seed = c.Histogram.Seed
	opt.MaxDistinct = c.ValueCounts.MaxDistinct
	opt.Top = c.ValueCounts.Top
	return opt
}

// Registry builds the chart registry from the defaults and the charts overrides.
func (c *Global) Registry() (*charts.Registry, error) {
	reg := charts.NewRegistry(c.ChartOptions(), c.Bins)
	for _, s := range charts.DefaultSpecs(c.Bins) {
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}
	if err := reg.Merge(c.Charts); err != nil {
		return nil, fmt.Errorf("config charts: %w", err)
	}
	return reg, nil
}

// SummaryOptions maps head_rows onto analysis.Options.
func (c *Global) SummaryOptions() analysis.Options {
	return analysis.Options{HeadRows: c.HeadRows}
}

// RenderOptions returns the canvas size.
func (c *Global) RenderOptions() render.Options {
	return render.Options{Width: c.Render.Width, Height: c.Render.Height}
}

// CacheTTL returns the section cache lifetime; 0 means no expiry.
func (c *Global) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}
