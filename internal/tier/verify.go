package tier

import (
	"fmt"

	"github.com/parquet-go/parquet-go"

	"sentiscan/internal/stats"
)

// VerifyDayFile reads back one tier-1 file and checks it: every float
// column finite, day column consistent, and (when expectRows >= 0) the row
// count matching the writer's manifest. Returns the row count.
func VerifyDayFile(path, day string, expectRows int) (int, error) {
	rows, err := parquet.ReadFile[SnapshotRecord](path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}

	if expectRows >= 0 && len(rows) != expectRows {
		return len(rows), fmt.Errorf("%s: has %d rows, manifest says %d", path, len(rows), expectRows)
	}

	for i, r := range rows {
		if r.Day != day {
			return len(rows), fmt.Errorf("%s: row %d carries day %q, want %q", path, i, r.Day, day)
		}
		for name, v := range map[string]float64{
			"mid": r.Mid, "bid": r.Bid, "ask": r.Ask,
			"spread_bps": r.SpreadBps, "liq_qv_usd": r.LiqQvUSD,
			"hybrid_score": r.HybridScore,
		} {
			if !stats.IsFinite(v) {
				return len(rows), fmt.Errorf("%s: row %d has non-finite %s", path, i, name)
			}
		}
	}
	return len(rows), nil
}

// VerifyRollupFile reads back one tier-2 file and checks row sanity.
func VerifyRollupFile(path, day string) (int, error) {
	rows, err := parquet.ReadFile[DailySymbolRecord](path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	for i, r := range rows {
		if r.Day != day {
			return len(rows), fmt.Errorf("%s: row %d carries day %q, want %q", path, i, r.Day, day)
		}
		if r.Sessions <= 0 {
			return len(rows), fmt.Errorf("%s: row %d has %d sessions", path, i, r.Sessions)
		}
		if !stats.IsFinite(r.MedianSpreadBps) || !stats.IsFinite(r.MedianLiqQvUSD) || !stats.IsFinite(r.MedianHybrid) {
			return len(rows), fmt.Errorf("%s: row %d has a non-finite median", path, i)
		}
	}
	return len(rows), nil
}
