package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"warscan/internal/segment"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <screenshot>...",
	Short: "Analyze one or more frames of a battle report",
	Long: `Analyze runs the full pipeline on the given screenshots and prints the
row analysis as JSON. Multiple screenshots are treated as consecutive
frames of the same report, so the dialog layout found in the first frame
is reused for the rest.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := buildAnalyzer()
		if err != nil {
			return err
		}
		defer cleanup()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		var mem segment.Memory
		for _, path := range args {
			var rep any
			rep, mem, err = a.AnalyzeFile(path, mem, debugSink(""))
			if err != nil {
				return err
			}
			if err := enc.Encode(rep); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
