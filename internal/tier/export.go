package tier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sentiscan/internal/archive"
	"sentiscan/internal/inventory"
	"sentiscan/internal/record"
)

// ExportReport summarizes one export run.
type ExportReport struct {
	Walk       archive.Stats
	DaysWrote  []string
	RowsPerDay map[string]int
}

// Exporter builds the tiered Parquet tree from the snapshot archive.
type Exporter struct {
	OutDir string
	Log    *slog.Logger

	// Inventory, when set, receives per-shard scan results (pass one of
	// the two-pass flow).
	Inventory *inventory.Store
}

// Build walks the archive once and writes tier-1 and tier-2 files for every
// day that has usable records. The walker delivers days in order, so rows
// are flushed day by day and memory stays bounded by the largest single
// day. scanLimit > 0 bounds the walk for tests only.
func (e *Exporter) Build(ctx context.Context, archiveRoot string, scanLimit int) (ExportReport, error) {
	report := ExportReport{RowsPerDay: make(map[string]int)}

	log := e.Log
	if log == nil {
		log = slog.Default()
	}

	var (
		currentDay    string
		pending       []SnapshotRecord
		usableByShard int
	)

	flush := func() error {
		if currentDay == "" {
			return nil
		}
		if len(pending) == 0 {
			log.Info("no usable records for day, skipping", "day", currentDay)
			return nil
		}
		merged, err := WriteDay(e.OutDir, currentDay, pending)
		if err != nil {
			return err
		}
		if _, err := WriteRollup(e.OutDir, currentDay, merged); err != nil {
			return err
		}
		report.DaysWrote = append(report.DaysWrote, currentDay)
		report.RowsPerDay[currentDay] = len(merged)
		log.Info("tier files written", "day", currentDay, "rows", len(merged))
		pending = pending[:0]
		return nil
	}

	w := &archive.Walker{Root: archiveRoot, ScanLimit: scanLimit, Log: log}
	if e.Inventory != nil {
		w.OnShard = func(path, day string, lines, malformed, delivered int) {
			sh := inventory.Shard{
				Path:      path,
				Day:       day,
				Lines:     lines,
				Malformed: malformed,
				Usable:    usableByShard,
				ScannedAt: time.Now(),
			}
			usableByShard = 0
			if err := e.Inventory.Upsert(ctx, sh); err != nil {
				log.Warn("inventory upsert failed", "path", path, "error", err)
			}
		}
	}

	st, err := w.Walk(ctx, func(r record.Record, day string) error {
		if day != currentDay {
			if err := flush(); err != nil {
				return err
			}
			currentDay = day
		}
		if sr, ok := FromRecord(r, day); ok {
			pending = append(pending, sr)
			usableByShard++
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("walking archive: %w", err)
	}
	report.Walk = st

	if err := flush(); err != nil {
		return report, err
	}
	return report, nil
}

// VerifyAll re-reads every day file the report claims were written and
// checks them against the recorded row counts.
func (e *Exporter) VerifyAll(report ExportReport) error {
	for _, day := range report.DaysWrote {
		if _, err := VerifyDayFile(DayPath(e.OutDir, day), day, report.RowsPerDay[day]); err != nil {
			return err
		}
		if _, err := VerifyRollupFile(RollupPath(e.OutDir, day), day); err != nil {
			return err
		}
	}
	return nil
}
