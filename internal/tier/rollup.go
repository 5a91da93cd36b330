package tier

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"

	"sentiscan/internal/stats"
)

// DailySymbolRecord is the tier-2 Parquet schema: one row per symbol per
// day, rolled up from that day's tier-1 rows.
type DailySymbolRecord struct {
	Day             string  `parquet:"day"`
	Symbol          string  `parquet:"symbol"`
	Sessions        int64   `parquet:"sessions"`
	MedianSpreadBps float64 `parquet:"median_spread_bps"`
	MedianLiqQvUSD  float64 `parquet:"median_liq_qv_usd"`
	HasLiquidity    bool    `parquet:"has_liquidity"`
	MedianHybrid    float64 `parquet:"median_hybrid"`
	HasHybrid       bool    `parquet:"has_hybrid"`
	PostsTotal      int64   `parquet:"posts_total"`
	SilentSessions  int64   `parquet:"silent_sessions"`
}

// Rollup computes the per-symbol daily roll-up for one day's tier-1 rows.
// Output is sorted by symbol.
func Rollup(day string, rows []SnapshotRecord) []DailySymbolRecord {
	type agg struct {
		sessions int64
		spread   []float64
		liq      []float64
		hybrid   []float64
		posts    int64
		silent   int64
	}

	bySymbol := make(map[string]*agg)
	for i := range rows {
		r := &rows[i]
		a := bySymbol[r.Symbol]
		if a == nil {
			a = &agg{}
			bySymbol[r.Symbol] = a
		}
		a.sessions++
		a.spread = append(a.spread, r.SpreadBps)
		if r.HasLiquidity {
			a.liq = append(a.liq, r.LiqQvUSD)
		}
		if r.HasHybrid {
			a.hybrid = append(a.hybrid, r.HybridScore)
		}
		if r.HasPosts {
			a.posts += r.PostsTotal
			if r.PostsTotal == 0 {
				a.silent++
			}
		}
	}

	out := make([]DailySymbolRecord, 0, len(bySymbol))
	for sym, a := range bySymbol {
		rec := DailySymbolRecord{
			Day:            day,
			Symbol:         sym,
			Sessions:       a.sessions,
			PostsTotal:     a.posts,
			SilentSessions: a.silent,
		}
		rec.MedianSpreadBps, _ = stats.Median(a.spread)
		rec.MedianLiqQvUSD, rec.HasLiquidity = stats.Median(a.liq)
		rec.MedianHybrid, rec.HasHybrid = stats.Median(a.hybrid)
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// WriteRollup writes one day's tier-2 file, replacing any previous version.
func WriteRollup(outDir, day string, rows []SnapshotRecord) (string, error) {
	path := RollupPath(outDir, day)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating tier2 dir: %w", err)
	}
	if err := parquet.WriteFile(path, Rollup(day, rows)); err != nil {
		return "", fmt.Errorf("writing tier2 for %s: %w", day, err)
	}
	return path, nil
}
