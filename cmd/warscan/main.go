// Command warscan analyzes battle report screenshots: it slices the report
// dialog into rows, reads scores and resolves player identities against a
// crop library.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"warscan/internal/analyze"
	"warscan/internal/config"
	"warscan/internal/match"
	"warscan/internal/ocr"
	"warscan/internal/segment"
	"warscan/internal/version"
)

var (
	cfgPath  string
	debugDir string
	noOCR    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "warscan",
	Short:   "Battle report screenshot analysis",
	Version: version.Full(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if debugDir != "" {
			cfg.DebugDir = debugDir
		}
		setupLogging(cfg.LogLevel)
		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&debugDir, "debug-dir", "", "Write debug images to this directory")
	rootCmd.PersistentFlags().BoolVar(&noOCR, "no-ocr", false, "Skip score recognition")
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

// buildAnalyzer assembles the pipeline from the loaded config. The returned
// cleanup releases the OCR engine.
func buildAnalyzer() (*analyze.Analyzer, func(), error) {
	log := slog.Default()

	segPrm := segment.DefaultParams()
	if cfg.Segment.MinRows > 0 {
		segPrm.MinRows = cfg.Segment.MinRows
	}
	if cfg.Segment.DialogPad > 0 {
		segPrm.DialogPadPx = cfg.Segment.DialogPad
	}
	if cfg.Segment.Extent > 0 {
		segPrm.DialogMinExtent = cfg.Segment.Extent
	}
	seg := segment.NewSegmenter(segPrm, log)

	matchPrm := match.DefaultParams()
	if cfg.Match.TopKHash > 0 {
		matchPrm.TopKHash = cfg.Match.TopKHash
	}
	if cfg.Match.TopKProf > 0 {
		matchPrm.TopKProf = cfg.Match.TopKProf
	}
	if cfg.Match.MaxCand > 0 {
		matchPrm.MaxCand = cfg.Match.MaxCand
	}
	if cfg.Match.VerdictCacheLimit > 0 {
		matchPrm.VerdictCacheLimit = cfg.Match.VerdictCacheLimit
	}
	matcher := match.NewMatcher(matchPrm, nil, log)

	lib, err := match.OpenLibrary(cfg.LibraryDir)
	if err != nil {
		return nil, nil, err
	}

	var eng *ocr.Engine
	cleanup := func() {}
	if !noOCR {
		eng, err = ocr.NewEngine()
		if err != nil {
			log.Warn("score OCR unavailable", "err", err)
			eng = nil
		} else {
			cleanup = func() { eng.Close() }
		}
	}

	return analyze.New(seg, matcher, lib, eng, log), cleanup, nil
}

// debugSink returns a sink under the configured debug dir, or nil.
func debugSink(sub string) *segment.DebugSink {
	if cfg.DebugDir == "" {
		return nil
	}
	dir := cfg.DebugDir
	if sub != "" {
		dir = filepath.Join(dir, sub)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil
	}
	return segment.NewDebugSink(dir, slog.Default())
}
