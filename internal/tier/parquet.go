// Package tier builds the tiered Parquet exports of the snapshot archive
// and manages their lifecycle in S3-compatible object storage. Tier 1 is
// one row per usable record; tier 2 is a per-symbol daily roll-up. The
// usability gate is the same one the insights core applies.
package tier

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"

	"sentiscan/internal/record"
)

// SnapshotRecord is the tier-1 Parquet schema: one flattened usable
// snapshot. Missing optional fields keep their zero value with the matching
// Has* flag cleared, so a true zero never masquerades as absent.
type SnapshotRecord struct {
	Symbol       string  `parquet:"symbol"`
	Day          string  `parquet:"day"` // YYYY-MM-DD
	AdmittedAt   int64   `parquet:"admitted_at,timestamp(millisecond)"`
	Mid          float64 `parquet:"mid"`
	Bid          float64 `parquet:"bid"`
	Ask          float64 `parquet:"ask"`
	SpreadBps    float64 `parquet:"spread_bps"`
	SpotSamples  int64   `parquet:"spot_samples"`
	LiqQvUSD     float64 `parquet:"liq_qv_usd"`
	HasLiquidity bool    `parquet:"has_liquidity"`
	PostsTotal   int64   `parquet:"posts_total"`
	HasPosts     bool    `parquet:"has_posts"`
	HybridScore  float64 `parquet:"hybrid_score"`
	HasHybrid    bool    `parquet:"has_hybrid"`
}

// FromRecord flattens one gate-passing record for the given calendar day.
// The second return is false when the record does not pass the gate.
func FromRecord(r record.Record, day string) (SnapshotRecord, bool) {
	if ok, _ := record.Usable(r); !ok {
		return SnapshotRecord{}, false
	}

	sr := SnapshotRecord{
		Symbol: r.Symbol(),
		Day:    day,
	}
	sr.AdmittedAt, _ = r.Int("meta", "admitted_at_unix_ms")
	sr.Mid, _ = r.Float("spot_raw", "mid")
	sr.Bid, _ = r.Float("spot_raw", "bid")
	sr.Ask, _ = r.Float("spot_raw", "ask")
	sr.SpreadBps, _ = r.Float("spot_raw", "spread_bps")

	if prices, ok := r.Slice("spot_prices"); ok {
		sr.SpotSamples = int64(len(prices))
	}
	sr.LiqQvUSD, sr.HasLiquidity = r.Float("liquidity", "liq_qv_usd")

	if w, ok := r.SentimentWindow(); ok {
		if posts, pok := record.AsFloat(w["posts_total"]); pok {
			sr.PostsTotal = int64(posts)
			sr.HasPosts = true
		}
		if hds, hok := w["hybrid_decision_stats"].(map[string]any); hok {
			sr.HybridScore, sr.HasHybrid = record.AsFloat(hds["mean_score"])
		}
	}
	return sr, true
}

// DayPath returns the tier-1 file path for one day.
// Layout: <outDir>/tier1/<YYYYMMDD>.parquet
func DayPath(outDir, day string) string {
	return filepath.Join(outDir, "tier1", compactDay(day)+".parquet")
}

// RollupPath returns the tier-2 file path for one day.
func RollupPath(outDir, day string) string {
	return filepath.Join(outDir, "tier2", compactDay(day)+".parquet")
}

// compactDay strips the dashes from YYYY-MM-DD.
func compactDay(day string) string {
	out := make([]byte, 0, 8)
	for i := 0; i < len(day); i++ {
		if day[i] != '-' {
			out = append(out, day[i])
		}
	}
	return string(out)
}

// WriteDay writes (or re-merges) one day's tier-1 file. Existing rows are
// deduplicated against incoming ones by (symbol, admitted_at), preferring
// incoming, so re-running an export converges. Returns the merged rows
// (the tier-2 input and the verify manifest).
func WriteDay(outDir, day string, records []SnapshotRecord) ([]SnapshotRecord, error) {
	path := DayPath(outDir, day)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating tier1 dir: %w", err)
	}

	existing, _ := parquet.ReadFile[SnapshotRecord](path)
	merged := mergeSnapshots(existing, records)

	if err := parquet.WriteFile(path, merged); err != nil {
		return nil, fmt.Errorf("writing tier1 for %s: %w", day, err)
	}
	return merged, nil
}

// mergeSnapshots deduplicates by (symbol, admitted_at), preferring incoming
// rows. Results are sorted by symbol then admitted_at.
func mergeSnapshots(existing, incoming []SnapshotRecord) []SnapshotRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]SnapshotRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.AdmittedAt}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.AdmittedAt}] = r
	}

	merged := make([]SnapshotRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Symbol != merged[j].Symbol {
			return merged[i].Symbol < merged[j].Symbol
		}
		return merged[i].AdmittedAt < merged[j].AdmittedAt
	})
	return merged
}
