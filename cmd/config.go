package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/edaloom/internal/config"
	"github.com/KaramelBytes/edaloom/internal/render"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set EDALoom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(w, "log_format: %s\n", cfg.LogFormat)
		fmt.Fprintf(w, "head_rows: %d\n", cfg.HeadRows)
		if cfg.Delimiter != "" {
			fmt.Fprintf(w, "delimiter: %q\n", cfg.Delimiter)
		}
		fmt.Fprintf(w, "missing_values: %s\n", strings.Join(cfg.MissingValues, ", "))
		fmt.Fprintf(w, "bins.source: %s\n", cfg.Bins.Source)
		fmt.Fprintf(w, "bins.target: %s\n", cfg.Bins.Target)
		fmt.Fprintf(w, "bins.edges: %v\n", cfg.Bins.Edges)
		fmt.Fprintf(w, "bins.labels: %s\n", strings.Join(cfg.Bins.Labels, ", "))
		fmt.Fprintf(w, "distribution_bins: %d\n", cfg.DistributionBins)
		fmt.Fprintf(w, "histogram.bins: %d\n", cfg.Histogram.Bins)
		fmt.Fprintf(w, "histogram.sample_threshold: %d\n", cfg.Histogram.SampleThreshold)
		fmt.Fprintf(w, "histogram.sample_size: %d\n", cfg.Histogram.SampleSize)
		fmt.Fprintf(w, "histogram.seed: %d\n", cfg.Histogram.Seed)
		fmt.Fprintf(w, "value_counts.max_distinct: %d\n", cfg.ValueCounts.MaxDistinct)
		fmt.Fprintf(w, "value_counts.top: %d\n", cfg.ValueCounts.Top)
		fmt.Fprintf(w, "render.format: %s\n", cfg.Render.Format)
		fmt.Fprintf(w, "render.size: %dx%d\n", cfg.Render.Width, cfg.Render.Height)
		if len(cfg.Charts) > 0 {
			fmt.Fprintf(w, "charts: %d override(s)\n", len(cfg.Charts))
		}
		fmt.Fprintf(w, "cache_ttl_sec: %d\n", cfg.CacheTTLSec)
		fmt.Fprintf(w, "server_addr: %s\n", cfg.ServerAddr)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		atoi := func() (int, error) {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("invalid int for %s: %w", key, err)
			}
			return i, nil
		}
		var err error
		switch key {
		case "log_level":
			cfg.LogLevel = val
		case "log_format":
			cfg.LogFormat = val
		case "head_rows":
			cfg.HeadRows, err = atoi()
		case "delimiter":
			cfg.Delimiter = val
		case "missing_values":
			cfg.MissingValues = strings.Split(val, ",")
		case "bins.source":
			cfg.Bins.Source = val
		case "bins.target":
			cfg.Bins.Target = val
		case "distribution_bins":
			cfg.DistributionBins, err = atoi()
		case "histogram.bins":
			cfg.Histogram.Bins, err = atoi()
		case "histogram.sample_threshold":
			cfg.Histogram.SampleThreshold, err = atoi()
		case "histogram.sample_size":
			cfg.Histogram.SampleSize, err = atoi()
		case "histogram.seed":
			var seed uint64
			seed, err = strconv.ParseUint(val, 10, 64)
			if err != nil {
				err = fmt.Errorf("invalid seed: %w", err)
			}
			cfg.Histogram.Seed = seed
		case "value_counts.max_distinct":
			cfg.ValueCounts.MaxDistinct, err = atoi()
		case "value_counts.top":
			cfg.ValueCounts.Top, err = atoi()
		case "render.format":
			var f render.Format
			f, err = render.ParseFormat(val)
			cfg.Render.Format = string(f)
		case "render.width":
			cfg.Render.Width, err = atoi()
		case "render.height":
			cfg.Render.Height, err = atoi()
		case "cache_ttl_sec":
			cfg.CacheTTLSec, err = atoi()
		case "server_addr":
			cfg.ServerAddr = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
