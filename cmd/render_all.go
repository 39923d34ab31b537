package cmd

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/KaramelBytes/edaloom/internal/charts"
	"github.com/KaramelBytes/edaloom/internal/render"
	"github.com/KaramelBytes/edaloom/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	raOutDir      string
	raFormat      string
	raColumn      string
	raNoOverwrite bool
	raQuiet       bool
)

// renderOutcome is what one chart job produced; exactly one field is set.
type renderOutcome struct {
	path        string
	unavailable *charts.Unavailable
}

var renderAllCmd = &cobra.Command{
	Use:   "render-all <file>",
	Short: "Render every registered chart into a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, c, err := openTable(args[0])
		if err != nil {
			return err
		}
		format, err := chartFormat(c.Render.Format, raFormat)
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(raOutDir); err != nil {
			return fmt.Errorf("create --out-dir: %w", err)
		}

		var reqs []charts.Request
		for _, sp := range sess.Registry().Specs() {
			switch {
			case !sp.AdHoc():
				reqs = append(reqs, charts.Request{Name: sp.Name})
			case raColumn != "":
				reqs = append(reqs, charts.Request{Name: sp.Name, Column: raColumn})
			}
		}
		// Output names are fixed up front so --no-overwrite never races.
		paths := make([]string, len(reqs))
		for i, req := range reqs {
			paths[i] = filepath.Join(raOutDir, render.FileName(req, format))
			if raNoOverwrite {
				paths[i] = utils.UniquePath(paths[i])
			}
		}

		ropt := c.RenderOptions()
		outcomes := make([]renderOutcome, len(reqs))
		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i, req := range reqs {
			g.Go(func() error {
				res, err := sess.Render(req)
				if err != nil {
					return fmt.Errorf("%s: %w", req.Name, err)
				}
				switch v := res.(type) {
				case charts.Unavailable:
					outcomes[i].unavailable = &v
				case *charts.Chart:
					if err := writeChart(paths[i], v, format, ropt); err != nil {
						return err
					}
					outcomes[i].path = paths[i]
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		total := len(reqs)
		written := 0
		for i, o := range outcomes {
			if o.unavailable != nil {
				warnUnavailable(cmd, *o.unavailable)
				continue
			}
			written++
			if !raQuiet {
				fmt.Fprintf(cmd.OutOrStdout(), "[%d/%d] %s -> %s\n", i+1, total, reqs[i].Name, o.path)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Rendered %d of %d charts into %s\n", written, total, raOutDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderAllCmd)
	renderAllCmd.Flags().StringVar(&raOutDir, "out-dir", "charts", "directory to write charts into")
	renderAllCmd.Flags().StringVar(&raFormat, "format", "", "output format: "+render.FormatNames("|")+" (default from config)")
	renderAllCmd.Flags().StringVar(&raColumn, "column", "", "also render the histogram and value_counts charts for this column")
	renderAllCmd.Flags().BoolVar(&raNoOverwrite, "no-overwrite", false, "write to <name>__N.<ext> instead of replacing existing files")
	renderAllCmd.Flags().BoolVar(&raQuiet, "quiet", false, "suppress per-chart progress lines")
}
