package tier

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"sentiscan/internal/record"
)

func usableRecord(symbol string, admittedAt int64, posts float64, spread float64) record.Record {
	prices := make([]any, record.MinSpotSamples)
	for i := range prices {
		prices[i] = map[string]any{"ts": float64(i), "mid": 100.0}
	}
	return record.Record{
		"meta": map[string]any{
			"schema_version":      float64(7),
			"admitted_at_unix_ms": float64(admittedAt),
		},
		"symbol": symbol,
		"spot_raw": map[string]any{
			"mid": 100.0, "bid": 99.9, "ask": 100.1, "spread_bps": spread,
		},
		"spot_prices": prices,
		"liquidity":   map[string]any{"liq_qv_usd": 50000.0},
		"twitter_sentiment_windows": map[string]any{
			"last_cycle": map[string]any{
				"posts_total":           posts,
				"hybrid_decision_stats": map[string]any{"mean_score": 0.25},
			},
		},
	}
}

func TestFromRecordFlattens(t *testing.T) {
	sr, ok := FromRecord(usableRecord("BTCUSDT", 1700000000000, 5, 2.0), "2024-03-01")
	if !ok {
		t.Fatal("gate-passing record should flatten")
	}
	if sr.Symbol != "BTCUSDT" || sr.Day != "2024-03-01" {
		t.Errorf("identity fields = %q/%q", sr.Symbol, sr.Day)
	}
	if sr.AdmittedAt != 1700000000000 {
		t.Errorf("AdmittedAt = %d", sr.AdmittedAt)
	}
	if sr.SpotSamples != int64(record.MinSpotSamples) {
		t.Errorf("SpotSamples = %d", sr.SpotSamples)
	}
	if !sr.HasPosts || sr.PostsTotal != 5 {
		t.Errorf("posts = %d (has=%v), want 5", sr.PostsTotal, sr.HasPosts)
	}
	if !sr.HasHybrid || sr.HybridScore != 0.25 {
		t.Errorf("hybrid = %v (has=%v)", sr.HybridScore, sr.HasHybrid)
	}
	if !sr.HasLiquidity || sr.LiqQvUSD != 50000.0 {
		t.Errorf("liquidity = %v (has=%v)", sr.LiqQvUSD, sr.HasLiquidity)
	}
}

func TestFromRecordRejectsUnusable(t *testing.T) {
	r := record.Record{"meta": map[string]any{"schema_version": float64(6)}}
	if _, ok := FromRecord(r, "2024-03-01"); ok {
		t.Error("gate-failing record must not flatten")
	}
}

func TestWriteDayMergeDedup(t *testing.T) {
	dir := t.TempDir()

	first := []SnapshotRecord{
		{Symbol: "AAA", Day: "2024-03-01", AdmittedAt: 1, SpreadBps: 2},
		{Symbol: "BBB", Day: "2024-03-01", AdmittedAt: 1, SpreadBps: 3},
	}
	if _, err := WriteDay(dir, "2024-03-01", first); err != nil {
		t.Fatalf("WriteDay: %v", err)
	}

	// Re-run with one duplicate (updated) and one new row.
	second := []SnapshotRecord{
		{Symbol: "AAA", Day: "2024-03-01", AdmittedAt: 1, SpreadBps: 9},
		{Symbol: "CCC", Day: "2024-03-01", AdmittedAt: 2, SpreadBps: 4},
	}
	merged, err := WriteDay(dir, "2024-03-01", second)
	if err != nil {
		t.Fatalf("WriteDay re-run: %v", err)
	}
	if len(merged) != 3 {
		t.Fatalf("merged %d rows, want 3", len(merged))
	}

	rows, err := parquet.ReadFile[SnapshotRecord](DayPath(dir, "2024-03-01"))
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("file has %d rows, want 3", len(rows))
	}
	// Incoming wins the dedupe; rows are sorted by symbol.
	if rows[0].Symbol != "AAA" || rows[0].SpreadBps != 9 {
		t.Errorf("row 0 = %+v, want updated AAA", rows[0])
	}
}

func TestRollup(t *testing.T) {
	rows := []SnapshotRecord{
		{Symbol: "AAA", Day: "2024-03-01", SpreadBps: 2, HasPosts: true, PostsTotal: 0, HasHybrid: true, HybridScore: 0.1},
		{Symbol: "AAA", Day: "2024-03-01", SpreadBps: 4, HasPosts: true, PostsTotal: 6, HasHybrid: true, HybridScore: 0.3},
		{Symbol: "BBB", Day: "2024-03-01", SpreadBps: 8},
	}

	out := Rollup("2024-03-01", rows)
	if len(out) != 2 {
		t.Fatalf("rollup has %d rows, want 2", len(out))
	}

	aaa := out[0]
	if aaa.Symbol != "AAA" || aaa.Sessions != 2 {
		t.Fatalf("first row = %+v", aaa)
	}
	if aaa.MedianSpreadBps != 3 {
		t.Errorf("AAA median spread = %v, want 3", aaa.MedianSpreadBps)
	}
	if aaa.PostsTotal != 6 || aaa.SilentSessions != 1 {
		t.Errorf("AAA posts/silent = %d/%d, want 6/1", aaa.PostsTotal, aaa.SilentSessions)
	}
	if !aaa.HasHybrid || aaa.MedianHybrid != 0.2 {
		t.Errorf("AAA hybrid median = %v", aaa.MedianHybrid)
	}

	bbb := out[1]
	if bbb.HasHybrid || bbb.HasLiquidity {
		t.Error("BBB should have no hybrid/liquidity medians")
	}
}

func TestExporterBuildAndVerify(t *testing.T) {
	archiveRoot := t.TempDir()
	outDir := t.TempDir()

	writeDayShard(t, archiveRoot, "20240301", []record.Record{
		usableRecord("AAA", 1, 0, 2.0),
		usableRecord("BBB", 2, 5, 3.0),
	})
	writeDayShard(t, archiveRoot, "20240302", []record.Record{
		usableRecord("AAA", 3, 7, 2.5),
	})

	e := &Exporter{OutDir: outDir}
	report, err := e.Build(context.Background(), archiveRoot, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(report.DaysWrote) != 2 {
		t.Fatalf("DaysWrote = %v, want 2 days", report.DaysWrote)
	}
	if report.RowsPerDay["2024-03-01"] != 2 || report.RowsPerDay["2024-03-02"] != 1 {
		t.Errorf("RowsPerDay = %v", report.RowsPerDay)
	}

	if err := e.VerifyAll(report); err != nil {
		t.Errorf("VerifyAll: %v", err)
	}

	// Tier-2 exists and rolls up per symbol.
	rows, err := parquet.ReadFile[DailySymbolRecord](RollupPath(outDir, "2024-03-01"))
	if err != nil {
		t.Fatalf("reading tier2: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("tier2 has %d rows, want 2", len(rows))
	}
}

func writeDayShard(t *testing.T, root, day string, recs []record.Record) {
	t.Helper()
	dir := filepath.Join(root, day)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(filepath.Join(dir, "shard.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for _, r := range recs {
		data, err := json.Marshal(r)
		if err != nil {
			t.Fatal(err)
		}
		f.Write(data)
		f.Write([]byte("\n"))
	}
}
