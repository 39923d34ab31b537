package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/edaloom/internal/charts"
	"github.com/KaramelBytes/edaloom/internal/utils"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var chartsJSON bool

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "List the registered charts and the columns they need",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		reg, err := c.Registry()
		if err != nil {
			return err
		}
		specs := reg.Specs()
		if chartsJSON {
			b, err := utils.PrettyJSON(specs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		}

		tw := tablewriter.NewWriter(cmd.OutOrStdout())
		tw.SetHeader([]string{"Name", "Kind", "Requires", "Title"})
		tw.SetAutoFormatHeaders(false)
		tw.SetAutoWrapText(false)
		for _, sp := range specs {
			tw.Append([]string{sp.Name, string(sp.Kind), requires(sp), sp.Title})
		}
		tw.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartsCmd)
	chartsCmd.Flags().BoolVar(&chartsJSON, "json", false, "print the registry as JSON")
}

func requires(sp charts.Spec) string {
	switch {
	case sp.AdHoc():
		return "--column"
	case sp.Kind == charts.KindCorrelation:
		return "2+ numeric columns"
	}
	return strings.Join(sp.Required(), ", ")
}
