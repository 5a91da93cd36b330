package insights

import (
	"math/rand"
	"time"

	"sentiscan/internal/record"
	"sentiscan/internal/stats"
)

// Options configures one aggregation run. Zero values select the defaults.
type Options struct {
	// PrefixCap bounds every capped sample list (coverage examples,
	// per-bin and per-symbol metrics).
	PrefixCap int

	// ReservoirCapacity bounds the spread-sample reservoir.
	ReservoirCapacity int

	// Seed fixes both random sources (reservoir and preview get distinct
	// derived seeds, never a shared source). Zero means seed from the
	// clock: example fields then differ across runs, which is the
	// documented production behavior.
	Seed int64
}

// Default bounds. Every per-key list in the core is capped by one of these,
// keeping memory independent of archive size.
const (
	DefaultPrefixCap         = 10000
	DefaultReservoirCapacity = 5000
)

func (o Options) withDefaults() Options {
	if o.PrefixCap <= 0 {
		o.PrefixCap = DefaultPrefixCap
	}
	if o.ReservoirCapacity <= 0 {
		o.ReservoirCapacity = DefaultReservoirCapacity
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	return o
}

// Aggregator owns the whole accumulator family for one scan. It is single
// owner, single threaded: the walker calls Consume once per record in
// arrival order, then Artifacts exactly once. Never reuse an Aggregator
// across scans; a fresh scan builds a fresh one.
type Aggregator struct {
	opts Options

	scale     *ScaleTracker
	coverage  *CoverageTracker
	activity  *RegimeBins
	sentiment *RegimeBins
	symbols   *SymbolTableBuilder

	// spreadSample is reservoir-fed and therefore run-dependent unless the
	// seed is fixed; it feeds example statistics only.
	spreadSample *stats.Reservoir

	preview *previewPicker

	gateReasons map[string]int
}

// New creates a fresh aggregator family.
func New(opts Options) *Aggregator {
	opts = opts.withDefaults()
	return &Aggregator{
		opts:         opts,
		scale:        NewScaleTracker(),
		coverage:     NewCoverageTracker(opts.PrefixCap),
		activity:     NewActivityBins(opts.PrefixCap),
		sentiment:    NewSentimentBuckets(opts.PrefixCap),
		symbols:      NewSymbolTableBuilder(opts.PrefixCap),
		spreadSample: stats.NewReservoir(opts.ReservoirCapacity, rand.New(rand.NewSource(opts.Seed))),
		preview:      newPreviewPicker(rand.New(rand.NewSource(opts.Seed + 1))),
		gateReasons:  make(map[string]int),
	}
}

// Consume gates one walked record and folds it into every accumulator.
// The gate runs exactly once here; all accumulators see the same decision.
func (a *Aggregator) Consume(r record.Record, day string) error {
	usable, reason := record.Usable(r)
	a.scale.Observe(r, day, usable)
	if !usable {
		a.gateReasons[reason]++
		return nil
	}

	a.coverage.AddEntry(r)
	a.activity.AddEntry(r)
	a.sentiment.AddEntry(r)
	a.symbols.AddEntry(r, day)
	a.preview.offer(r, day)

	if spread, ok := r.Float("spot_raw", "spread_bps"); ok {
		a.spreadSample.Offer(spread)
	}
	return nil
}

// TotalUsable returns the exact usable-record count so far.
func (a *Aggregator) TotalUsable() int { return a.scale.TotalUsable() }

// Artifacts finalizes every accumulator into its named document. The
// generation time is a parameter so tests can pin it.
func (a *Aggregator) Artifacts(now time.Time) map[string]Doc {
	ts := Timestamp(now)
	stamp := func(doc Doc) Doc {
		doc["generated_at"] = ts
		return doc
	}

	return map[string]Doc{
		"dataset_summary.json":   stamp(a.summaryDoc()),
		"coverage.json":          stamp(a.coverage.BuildDoc()),
		"scale.json":             stamp(a.scale.BuildDoc()),
		"activity_regimes.json":  stamp(a.activity.BuildDoc()),
		"sentiment_buckets.json": stamp(a.sentiment.BuildDoc()),
		"symbol_table.json":      stamp(a.symbols.BuildDoc()),
	}
}

// summaryDoc is the top-level dataset summary: exact totals plus the two
// explicitly non-deterministic example blocks (reservoir spread sample and
// the preview row).
func (a *Aggregator) summaryDoc() Doc {
	gate := make(Doc, len(a.gateReasons))
	for reason, n := range a.gateReasons {
		gate[reason] = n
	}

	doc := Doc{
		"total_seen":       a.scale.TotalSeen(),
		"total_usable":     a.scale.TotalUsable(),
		"distinct_symbols": a.symbols.Distinct(),
		"gate_rejections":  gate,
	}

	sample := a.spreadSample.Values()
	spread := Doc{
		"deterministic": false,
		"note":          "uniform reservoir sample; values differ across runs unless the seed is fixed",
		"n_offered":     a.spreadSample.Seen(),
		"n_retained":    a.spreadSample.Len(),
		"summary":       summarize(sample, 4),
	}
	doc["spread_bps_sample"] = spread

	doc["preview"] = a.preview.doc()
	return doc
}

// previewPicker keeps one uniformly chosen usable record as a human
// readable preview row. It owns its own rand source so the reservoir
// sampler stays independently seedable.
type previewPicker struct {
	rng  *rand.Rand
	seen int64
	row  Doc
}

func newPreviewPicker(rng *rand.Rand) *previewPicker {
	return &previewPicker{rng: rng}
}

func (p *previewPicker) offer(r record.Record, day string) {
	p.seen++
	if p.seen > 1 && p.rng.Int63n(p.seen) != 0 {
		return
	}

	row := Doc{"symbol": r.Symbol(), "day": day}
	if mid, ok := r.Float("spot_raw", "mid"); ok {
		row["mid"] = mid
	}
	if spread, ok := r.Float("spot_raw", "spread_bps"); ok {
		row["spread_bps"] = spread
	}
	if posts, ok := postsTotal(r); ok {
		row["posts_total"] = posts
	}
	if score, ok := hybridScore(r); ok {
		row["hybrid_score"] = score
	}
	p.row = row
}

func (p *previewPicker) doc() Doc {
	if p.row == nil {
		return Doc{
			"deterministic": false,
			"row":           Unavailable("no usable records"),
		}
	}
	return Doc{
		"deterministic": false,
		"note":          "single uniformly chosen usable record; changes across runs",
		"row":           p.row,
	}
}
