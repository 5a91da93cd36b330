package insights

import (
	"fmt"
	"math"

	"sentiscan/internal/record"
	"sentiscan/internal/stats"
)

// metricDef names one scalar tracked inside every bin of a regime
// accumulator.
type metricDef struct {
	name string
	get  func(r record.Record) (float64, bool)
}

// regimeMetrics is the shared metric set for both regime partitions.
var regimeMetrics = []metricDef{
	{"spread_bps", func(r record.Record) (float64, bool) {
		return r.Float("spot_raw", "spread_bps")
	}},
	{"liq_qv_usd", func(r record.Record) (float64, bool) {
		return r.Float("liquidity", "liq_qv_usd")
	}},
	{"liq_global_pct", func(r record.Record) (float64, bool) {
		return r.Float("derived", "liq_global_pct")
	}},
	{"hybrid_score", hybridScore},
}

// hybridScore reads the hybrid sentiment decision score from the preferred
// window.
func hybridScore(r record.Record) (float64, bool) {
	w, ok := r.SentimentWindow()
	if !ok {
		return 0, false
	}
	hds, ok := w["hybrid_decision_stats"].(map[string]any)
	if !ok {
		return 0, false
	}
	return record.AsFloat(hds["mean_score"])
}

// postsTotal reads posts_total from the preferred window.
func postsTotal(r record.Record) (float64, bool) {
	w, ok := r.SentimentWindow()
	if !ok {
		return 0, false
	}
	return record.AsFloat(w["posts_total"])
}

// binAgg is the running state for one non-empty bin.
type binAgg struct {
	count   int
	samples map[string][]float64
}

// RegimeBins partitions usable records by one scalar into named bins and
// collects per-bin metric samples. Unlike the coverage report, bins that
// stay empty are dropped at build time: they are data-dependent partitions,
// not a declared set.
type RegimeBins struct {
	label    string
	bins     []stats.Bin
	key      func(r record.Record) (float64, bool)
	cap      int
	binned   int
	unbinned int
	perBin   map[string]*binAgg
}

// activityBins are the post-count regimes.
var activityBins = []stats.Bin{
	{Name: "0", Min: 0, Max: 0},
	{Name: "1-2", Min: 1, Max: 2},
	{Name: "3-9", Min: 3, Max: 9},
	{Name: "10-24", Min: 10, Max: 24},
	{Name: "25-49", Min: 25, Max: 49},
	{Name: "50+", Min: 50, Max: math.MaxFloat64},
}

// NewActivityBins partitions by posts_total in the preferred sentiment
// window.
func NewActivityBins(sampleCap int) *RegimeBins {
	return &RegimeBins{
		label:  "activity_by_post_volume",
		bins:   activityBins,
		key:    postsTotal,
		cap:    sampleCap,
		perBin: make(map[string]*binAgg),
	}
}

// NewSentimentBuckets partitions by the hybrid mean score in buckets of
// width 0.2 covering [-1.0, 1.0]. Shared boundaries resolve to the more
// negative bucket (ascending inclusive-inclusive, first match wins).
func NewSentimentBuckets(sampleCap int) *RegimeBins {
	var bins []stats.Bin
	for lo := -1.0; lo < 1.0-1e-9; lo += 0.2 {
		hi := lo + 0.2
		bins = append(bins, stats.Bin{
			Name: fmt.Sprintf("%.1f..%.1f", lo, hi),
			Min:  lo - 1e-9,
			Max:  hi + 1e-9,
		})
	}
	return &RegimeBins{
		label:  "sentiment_by_score_bucket",
		bins:   bins,
		key:    hybridScore,
		cap:    sampleCap,
		perBin: make(map[string]*binAgg),
	}
}

// AddEntry folds one usable record: assign the bin, append capped metric
// samples. Records whose key scalar is missing or out of range are counted
// separately and excluded from shares.
func (rb *RegimeBins) AddEntry(r record.Record) {
	v, ok := rb.key(r)
	if !ok {
		rb.unbinned++
		return
	}
	name, ok := stats.AssignBin(v, rb.bins)
	if !ok {
		rb.unbinned++
		return
	}

	agg := rb.perBin[name]
	if agg == nil {
		agg = &binAgg{samples: make(map[string][]float64, len(regimeMetrics))}
		rb.perBin[name] = agg
	}
	agg.count++
	rb.binned++

	for _, m := range regimeMetrics {
		if mv, mok := m.get(r); mok {
			agg.samples[m.name] = stats.CappedAppend(agg.samples[m.name], mv, rb.cap)
		}
	}
}

// BuildDoc finalizes the partition: per non-empty bin, the exact count, the
// share of all binned records, and summary statistics per metric.
func (rb *RegimeBins) BuildDoc() Doc {
	regimes := make(Doc)
	order := []string{}
	for _, b := range rb.bins {
		agg := rb.perBin[b.Name]
		if agg == nil {
			continue // empty bins carry no information
		}
		order = append(order, b.Name)

		metrics := make(Doc, len(regimeMetrics))
		for _, m := range regimeMetrics {
			metrics[m.name] = summarize(agg.samples[m.name], 4)
		}
		regimes[b.Name] = Doc{
			"n_entries": agg.count,
			"share_pct": stats.Round(100*float64(agg.count)/float64(rb.binned), 1),
			"metrics":   metrics,
		}
	}

	doc := Doc{
		"partition":   rb.label,
		"bin_order":   order,
		"n_binned":    rb.binned,
		"n_unbinned":  rb.unbinned,
		"sample_cap":  rb.cap,
		"sample_note": "per-bin metric lists are prefix-capped; summaries are biased toward early records once the cap is exceeded",
		"regimes":     regimes,
	}
	if rb.binned == 0 {
		doc["regimes"] = Doc{}
		doc["note"] = Unavailable("no records carried the partition scalar")
	}
	return doc
}
