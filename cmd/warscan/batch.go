package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"warscan/internal/analyze"
	"warscan/internal/imageio"
	"warscan/internal/segment"
)

var (
	batchOut        string
	batchKeepLayout bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Analyze every screenshot in a directory",
	Long: `Batch analyzes all supported images under a directory, in name order,
and writes one JSON report per line. By default each file is treated as
an independent report; --same-report reuses the dialog layout across
files, for directories holding the frames of a single report.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := imageio.ListDir(args[0])
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no supported images under %s", args[0])
		}

		a, cleanup, err := buildAnalyzer()
		if err != nil {
			return err
		}
		defer cleanup()

		out := os.Stdout
		if batchOut != "" {
			f, err := os.Create(batchOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		enc := json.NewEncoder(out)

		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Analyzing"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)

		var mem segment.Memory
		failed := 0
		for _, path := range files {
			if cmd.Context().Err() != nil {
				return cmd.Context().Err()
			}
			var rep *analyze.Report
			rep, mem, err = a.AnalyzeFile(path, mem, debugSink(stem(path)))
			if err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "\n%s: %v\n", path, err)
			} else if err := enc.Encode(rep); err != nil {
				return err
			}
			if !batchKeepLayout {
				mem.Reset()
			}
			bar.Add(1)
		}
		fmt.Fprintln(os.Stderr)
		if failed > 0 {
			return fmt.Errorf("%d of %d screenshots failed", failed, len(files))
		}
		return nil
	},
}

func stem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func init() {
	batchCmd.Flags().StringVarP(&batchOut, "out", "o", "", "Write reports to a file instead of stdout")
	batchCmd.Flags().BoolVar(&batchKeepLayout, "same-report", false, "Treat all files as frames of one report")
	rootCmd.AddCommand(batchCmd)
}
