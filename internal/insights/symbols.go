package insights

import (
	"sort"

	"sentiscan/internal/record"
	"sentiscan/internal/stats"
)

// symbolAgg is the running per-symbol state. Metric lists are prefix-capped
// so a hyperactive symbol cannot grow memory without bound; session and
// silence counters stay exact.
type symbolAgg struct {
	sessions  int
	silent    int
	firstDay  string
	lastDay   string
	posts     []float64
	hybrid    []float64
	spread    []float64
	liquidity []float64
}

// SymbolTableBuilder builds the one-row-per-symbol artifact.
type SymbolTableBuilder struct {
	cap  int
	syms map[string]*symbolAgg
}

// NewSymbolTableBuilder creates an empty builder with the given per-metric
// prefix cap.
func NewSymbolTableBuilder(sampleCap int) *SymbolTableBuilder {
	return &SymbolTableBuilder{cap: sampleCap, syms: make(map[string]*symbolAgg)}
}

// AddEntry folds one usable record for its symbol. Records without a symbol
// identifier are ignored; the gate does not require one, but a per-symbol
// row for "" would be noise.
func (b *SymbolTableBuilder) AddEntry(r record.Record, day string) {
	sym := r.Symbol()
	if sym == "" {
		return
	}

	agg := b.syms[sym]
	if agg == nil {
		agg = &symbolAgg{firstDay: day, lastDay: day}
		b.syms[sym] = agg
	}
	agg.sessions++
	if day < agg.firstDay {
		agg.firstDay = day
	}
	if day > agg.lastDay {
		agg.lastDay = day
	}

	if posts, ok := postsTotal(r); ok {
		agg.posts = stats.CappedAppend(agg.posts, posts, b.cap)
		if posts == 0 {
			agg.silent++
		}
	}
	if score, ok := hybridScore(r); ok {
		agg.hybrid = stats.CappedAppend(agg.hybrid, score, b.cap)
	}
	if spread, ok := r.Float("spot_raw", "spread_bps"); ok {
		agg.spread = stats.CappedAppend(agg.spread, spread, b.cap)
	}
	if liq, ok := r.Float("liquidity", "liq_qv_usd"); ok {
		agg.liquidity = stats.CappedAppend(agg.liquidity, liq, b.cap)
	}
}

// Distinct returns the number of symbols seen so far.
func (b *SymbolTableBuilder) Distinct() int { return len(b.syms) }

// BuildDoc finalizes the table. Rows are keyed by symbol; the JSON encoder
// sorts map keys, so output order is stable across runs.
func (b *SymbolTableBuilder) BuildDoc() Doc {
	rows := make(Doc, len(b.syms))
	symbols := make([]string, 0, len(b.syms))
	for sym := range b.syms {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		agg := b.syms[sym]
		row := Doc{
			"sessions":     agg.sessions,
			"first_day":    agg.firstDay,
			"last_day":     agg.lastDay,
			"posts":        summarize(agg.posts, 1),
			"hybrid_score": summarize(agg.hybrid, 4),
			"spread_bps":   summarize(agg.spread, 4),
			"liq_qv_usd":   summarize(agg.liquidity, 2),
		}
		if len(agg.posts) > 0 {
			row["pct_silent"] = stats.Round(100*float64(agg.silent)/float64(agg.sessions), 1)
		} else {
			row["pct_silent"] = Unavailable("no post counts observed")
		}
		rows[sym] = row
	}

	return Doc{
		"distinct_symbols": len(b.syms),
		"sample_cap":       b.cap,
		"sample_note":      "per-symbol metric lists are prefix-capped; summaries are biased toward early sessions once the cap is exceeded",
		"symbols":          rows,
	}
}
