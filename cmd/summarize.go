package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/KaramelBytes/edaloom/internal/analysis"
	"github.com/KaramelBytes/edaloom/internal/utils"
	"github.com/spf13/cobra"
)

var (
	sumOutputPath string
	sumFormat     string
	sumHeadRows   int
	sumSection    string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file>",
	Short: "Print shape, preview, columns, describe table and missing counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if sumHeadRows > 0 && cfg != nil {
			cfg.HeadRows = sumHeadRows
		}
		sess, _, err := openTable(args[0])
		if err != nil {
			return err
		}

		var out string
		switch strings.ToLower(sumFormat) {
		case "", "text":
			section := sumSection
			if section == "" {
				section = analysis.SectionReport
			}
			if section != analysis.SectionReport && !slices.Contains(analysis.Sections, section) {
				return fmt.Errorf("unknown --section %q (use one of %s, %s)", section, strings.Join(analysis.Sections, ", "), analysis.SectionReport)
			}
			if out, err = sess.Section(section); err != nil {
				return err
			}
		case "markdown", "md":
			if sumSection != "" {
				return fmt.Errorf("--section is only supported with --format text")
			}
			rep, err := sess.Report()
			if err != nil {
				return err
			}
			out = rep.Markdown()
		default:
			return fmt.Errorf("unsupported --format: %s (use text|markdown)", sumFormat)
		}

		if sumOutputPath != "" {
			if err := utils.SafeWriteFile(sumOutputPath, []byte(out+"\n")); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", sumOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().StringVarP(&sumOutputPath, "output", "o", "", "write the summary to a file instead of stdout")
	summarizeCmd.Flags().StringVar(&sumFormat, "format", "text", "output format: text|markdown")
	summarizeCmd.Flags().IntVar(&sumHeadRows, "head", 0, "number of preview rows (overrides config head_rows)")
	summarizeCmd.Flags().StringVar(&sumSection, "section", "", "print a single section: shape|head|columns|describe|missing")
}
