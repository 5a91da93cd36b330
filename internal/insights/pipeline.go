package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sentiscan/internal/archive"
	"sentiscan/internal/record"
)

// ErrNoUsableRecords is returned when a scan finishes without a single
// gate-passing record. Publishing artifacts from such a scan is disallowed:
// downstream cannot tell "no data" from "success".
var ErrNoUsableRecords = errors.New("no usable records in archive")

// RunReport summarizes one completed pipeline run.
type RunReport struct {
	Walk        archive.Stats
	TotalUsable int
	Artifacts   []string
}

// Run executes the full pipeline: walk the archive, gate and fold every
// record, finalize all accumulators, write every artifact atomically into
// outDir. scanLimit > 0 bounds the walk for test harnesses only.
func Run(ctx context.Context, archiveRoot, outDir string, scanLimit int, opts Options, log *slog.Logger) (RunReport, error) {
	var report RunReport

	agg := New(opts)
	w := &archive.Walker{Root: archiveRoot, ScanLimit: scanLimit, Log: log}

	st, err := w.Walk(ctx, func(r record.Record, day string) error {
		return agg.Consume(r, day)
	})
	if err != nil {
		return report, fmt.Errorf("walking archive: %w", err)
	}
	report.Walk = st
	report.TotalUsable = agg.TotalUsable()

	if report.TotalUsable == 0 {
		return report, ErrNoUsableRecords
	}

	log.Info("scan complete",
		"days", st.Days,
		"shards", st.Shards,
		"lines", st.Lines,
		"malformed", st.Malformed,
		"usable", report.TotalUsable,
	)

	for name, doc := range agg.Artifacts(time.Now()) {
		if err := WriteArtifact(outDir, name, doc); err != nil {
			return report, err
		}
		report.Artifacts = append(report.Artifacts, name)
		log.Info("artifact written", "name", name)
	}
	return report, nil
}
