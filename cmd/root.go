package cmd

import (
	"errors"
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/edaloom/internal/config"
	"github.com/KaramelBytes/edaloom/internal/loader"
	"github.com/KaramelBytes/edaloom/internal/logging"
	"github.com/KaramelBytes/edaloom/internal/session"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// Input flags (override config if set)
	flagDelimiter  string
	flagSheetName  string
	flagSheetIndex int

	// Loaded configuration and the logger built from it
	cfg    *cfgpkg.Global
	cfgErr error
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "edaloom",
	Short: "EDALoom CLI: summarize and chart survey tables",
	Long: `EDALoom loads a CSV/TSV/XLSX survey table, derives activity bins, prints a
descriptive summary and renders a fixed catalogue of charts to PNG, SVG or JSON.
The same pipeline is available over HTTP with "edaloom serve".`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Runs before every command so repeated executions see fresh config.
	cobra.OnInitialize(loadConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.edaloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagDelimiter, "delimiter", "", "field delimiter for CSV/TSV: ',' | ';' | 'tab' | any single character (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagSheetName, "sheet-name", "", "XLSX: sheet name to load")
	rootCmd.PersistentFlags().IntVar(&flagSheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

func loadConfig() {
	cfg, cfgErr = nil, nil
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands that need config report cfgErr themselves
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfgErr = err
		logger = logging.Discard()
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	if flagDelimiter != "" {
		cfg.Delimiter = flagDelimiter
	}
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	l, err := logging.New(level, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: invalid logging config: %v\n", err)
		l, _ = logging.New("info", "text")
	}
	logger = l
}

// settings returns the loaded configuration or the reason it is missing.
func settings() (*cfgpkg.Global, error) {
	if cfg == nil {
		if cfgErr != nil {
			return nil, fmt.Errorf("config: %w", cfgErr)
		}
		return nil, errors.New("config not loaded")
	}
	return cfg, nil
}

func loaderOptions(c *cfgpkg.Global) (loader.Options, error) {
	delim, err := c.DelimiterRune()
	if err != nil {
		return loader.Options{}, fmt.Errorf("--delimiter: %w", err)
	}
	if flagSheetIndex < 0 {
		return loader.Options{}, fmt.Errorf("--sheet-index must be >= 1, got %d", flagSheetIndex)
	}
	return loader.Options{
		Delimiter:     delim,
		SheetName:     flagSheetName,
		SheetIndex:    flagSheetIndex,
		MissingValues: c.MissingValues,
		Bins:          c.Bins,
		Logger:        logger,
	}, nil
}

// newSession builds an empty session from the loaded configuration.
func newSession() (*session.Session, *cfgpkg.Global, error) {
	c, err := settings()
	if err != nil {
		return nil, nil, err
	}
	lopt, err := loaderOptions(c)
	if err != nil {
		return nil, nil, err
	}
	reg, err := c.Registry()
	if err != nil {
		return nil, nil, err
	}
	sess := session.New(session.Options{
		Loader:   lopt,
		Summary:  c.SummaryOptions(),
		Registry: reg,
		CacheTTL: c.CacheTTL(),
		Logger:   logger,
	})
	return sess, c, nil
}

// openTable builds a session and loads path into it.
func openTable(path string) (*session.Session, *cfgpkg.Global, error) {
	sess, c, err := newSession()
	if err != nil {
		return nil, nil, err
	}
	if _, err := sess.Load(path); err != nil {
		return nil, nil, err
	}
	return sess, c, nil
}
