package cmd

import (
	"fmt"

	"github.com/KaramelBytes/edaloom/internal/loader"
	"github.com/KaramelBytes/edaloom/internal/server"
	"github.com/spf13/cobra"
)

var expOutputPath string

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the processed table (with the derived bin column) as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, _, err := openTable(args[0])
		if err != nil {
			return err
		}
		t, err := sess.Table()
		if err != nil {
			return err
		}
		if err := loader.ExportFile(expOutputPath, t); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d rows, %d columns to %s\n", t.Rows(), t.Cols(), expOutputPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&expOutputPath, "output", "o", server.ExportName, "output CSV path")
}
