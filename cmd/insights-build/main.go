// Batch tool: scan the snapshot archive, compute the descriptive insight
// aggregates, and write the site artifact JSON documents.
//
// Usage:
//
//	insights-build -archive data/archive -out data/site [-limit N]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"sentiscan/internal/archive"
	"sentiscan/internal/config"
	"sentiscan/internal/insights"
	"sentiscan/internal/util"
)

func main() {
	var (
		cfgPath     = flag.String("config", "config/sentiscan.yaml", "path to YAML config (optional)")
		archiveRoot = flag.String("archive", "", "archive root directory (overrides config)")
		outDir      = flag.String("out", "", "artifact output directory (overrides config)")
		limit       = flag.Int("limit", 0, "stop after N records; bounded test runs only")
		seed        = flag.Int64("seed", 0, "fix the sampling seed for reproducible example fields")
	)
	flag.Parse()

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if *archiveRoot != "" {
		cfg.Archive.Root = *archiveRoot
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *limit > 0 {
		cfg.Aggregation.ScanLimit = *limit
	}
	if *seed != 0 {
		cfg.Aggregation.Seed = *seed
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	if cfg.Aggregation.ScanLimit > 0 {
		logger.Warn("scan limit set; output is truncated and must not be published",
			"limit", cfg.Aggregation.ScanLimit)
	}

	opts := insights.Options{
		PrefixCap:         cfg.Aggregation.PrefixCap,
		ReservoirCapacity: cfg.Aggregation.ReservoirCapacity,
		Seed:              cfg.Aggregation.Seed,
	}

	report, err := insights.Run(context.Background(), cfg.Archive.Root, cfg.Output.Dir,
		cfg.Aggregation.ScanLimit, opts, logger)
	switch {
	case errors.Is(err, archive.ErrEmptyArchive):
		fmt.Fprintf(os.Stderr, "archive root %q is missing or empty\n", cfg.Archive.Root)
		os.Exit(1)
	case errors.Is(err, insights.ErrNoUsableRecords):
		fmt.Fprintf(os.Stderr, "no usable records found (%d seen, %d malformed)\n",
			report.Walk.Lines, report.Walk.Malformed)
		os.Exit(1)
	case err != nil:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("insights build complete",
		"usable", report.TotalUsable,
		"artifacts", len(report.Artifacts),
		"out", cfg.Output.Dir,
	)
}
