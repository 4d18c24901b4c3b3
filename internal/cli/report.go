package cli

import (
	"os"

	"github.com/spf13/cobra"

	"citecheck/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <report.json>",
	Short: "Re-render the summary of an existing verification report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := report.ReadJSON(args[0])
		if err != nil {
			return err
		}
		report.RenderSummary(os.Stdout, rep)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
