// Batch tool family for the tiered Parquet exports: build them from the
// archive, verify them, push them to object storage, and apply retention.
//
// Usage:
//
//	tier-export build  [-archive DIR] [-tier-dir DIR] [-limit N]
//	tier-export verify [-tier-dir DIR]
//	tier-export upload [-tier-dir DIR]
//	tier-export retention
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"sentiscan/internal/archive"
	"sentiscan/internal/config"
	"sentiscan/internal/inventory"
	"sentiscan/internal/tier"
	"sentiscan/internal/util"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tier-export <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  build      Build tier1/tier2 Parquet files from the archive\n")
		fmt.Fprintf(os.Stderr, "  verify     Re-read written tier files and check them\n")
		fmt.Fprintf(os.Stderr, "  upload     Upload tier files to object storage\n")
		fmt.Fprintf(os.Stderr, "  retention  Remove remote tier files outside the retention window\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cfgPath := fs.String("config", "config/sentiscan.yaml", "path to YAML config (optional)")
	archiveRoot := fs.String("archive", "", "archive root directory (overrides config)")
	tierDir := fs.String("tier-dir", "", "tier output directory (overrides config)")
	limit := fs.Int("limit", 0, "stop after N records; bounded test runs only")
	fs.Parse(os.Args[2:])

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if *archiveRoot != "" {
		cfg.Archive.Root = *archiveRoot
	}
	if *tierDir != "" {
		cfg.Tier.OutDir = *tierDir
	}
	if *limit > 0 {
		cfg.Aggregation.ScanLimit = *limit
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)
	ctx := context.Background()

	switch cmd {
	case "build":
		inv, err := inventory.Open(cfg.Inventory.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		defer inv.Close()

		e := &tier.Exporter{OutDir: cfg.Tier.OutDir, Log: logger, Inventory: inv}
		report, err := e.Build(ctx, cfg.Archive.Root, cfg.Aggregation.ScanLimit)
		if err != nil {
			if errors.Is(err, archive.ErrEmptyArchive) {
				fmt.Fprintf(os.Stderr, "archive root %q is missing or empty\n", cfg.Archive.Root)
			} else {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			os.Exit(1)
		}
		if cfg.Tier.Verify {
			if err := e.VerifyAll(report); err != nil {
				fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
				os.Exit(1)
			}
		}
		logger.Info("tier build complete", "days", len(report.DaysWrote))

	case "verify":
		inv, err := inventory.Open(cfg.Inventory.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		defer inv.Close()

		days, err := inv.Days(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if len(days) == 0 {
			fmt.Fprintln(os.Stderr, "inventory is empty; run build first")
			os.Exit(1)
		}
		for _, day := range days {
			rows, err := tier.VerifyDayFile(tier.DayPath(cfg.Tier.OutDir, day), day, -1)
			if err != nil {
				fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
				os.Exit(1)
			}
			if _, err := tier.VerifyRollupFile(tier.RollupPath(cfg.Tier.OutDir, day), day); err != nil {
				fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
				os.Exit(1)
			}
			logger.Info("day verified", "day", day, "rows", rows)
		}

	case "upload":
		lc, err := tier.NewLifecycle(cfg.ObjectStore, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		inv, err := inventory.Open(cfg.Inventory.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		defer inv.Close()

		days, err := inv.Days(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		for _, day := range days {
			if err := lc.UploadDay(ctx, tier.DayPath(cfg.Tier.OutDir, day), "tier1", day); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			if err := lc.UploadDay(ctx, tier.RollupPath(cfg.Tier.OutDir, day), "tier2", day); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
		}
		logger.Info("upload complete", "days", len(days))

	case "retention":
		lc, err := tier.NewLifecycle(cfg.ObjectStore, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		total := 0
		for _, tierName := range []string{"tier1", "tier2"} {
			removed, err := lc.ApplyRetention(ctx, tierName, time.Now())
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			total += removed
		}
		logger.Info("retention applied", "removed", total)

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		flag.Usage()
		os.Exit(1)
	}
}
