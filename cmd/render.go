package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/edaloom/internal/charts"
	"github.com/KaramelBytes/edaloom/internal/render"
	"github.com/KaramelBytes/edaloom/internal/utils"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	rndColumn     string
	rndFormat     string
	rndOutputPath string
)

var renderCmd = &cobra.Command{
	Use:   "render <file> <chart>",
	Short: "Render one chart from the registry (see 'edaloom charts')",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, c, err := openTable(args[0])
		if err != nil {
			return err
		}
		format, err := chartFormat(c.Render.Format, rndFormat)
		if err != nil {
			return err
		}
		req := charts.Request{Name: args[1], Column: rndColumn}
		res, err := sess.Render(req)
		if err != nil {
			return err
		}
		switch v := res.(type) {
		case charts.Unavailable:
			warnUnavailable(cmd, v)
			return nil
		case *charts.Chart:
			out := rndOutputPath
			if out == "" {
				out = render.FileName(req, format)
			}
			if err := writeChart(out, v, format, c.RenderOptions()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s to %s\n", v.Name, out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVar(&rndColumn, "column", "", "column for the histogram and value_counts charts")
	renderCmd.Flags().StringVar(&rndFormat, "format", "", "output format: "+render.FormatNames("|")+" (default from config)")
	renderCmd.Flags().StringVarP(&rndOutputPath, "output", "o", "", "output file (default <chart>.<format> in the current directory)")
}

// chartFormat picks the flag value when set, else the configured default.
func chartFormat(configured, flag string) (render.Format, error) {
	if flag != "" {
		return render.ParseFormat(flag)
	}
	return render.ParseFormat(configured)
}

func writeChart(path string, c *charts.Chart, f render.Format, opt render.Options) error {
	var buf bytes.Buffer
	if err := render.Write(&buf, c, f, opt); err != nil {
		return fmt.Errorf("render %s: %w", c.Name, err)
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func warnUnavailable(cmd *cobra.Command, u charts.Unavailable) {
	yellow := color.New(color.FgYellow)
	_, _ = yellow.Fprintf(cmd.OutOrStdout(), "⚠ Chart unavailable: %s\n", u.String())
}
