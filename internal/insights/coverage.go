package insights

import (
	"sentiscan/internal/record"
	"sentiscan/internal/stats"
)

// featureGroup is one member of the fixed coverage report. probe reports
// whether the group's defining fields are structurally present in a record
// and, when they are, may yield one finite example value.
type featureGroup struct {
	name  string
	probe func(r record.Record) (present bool, sample float64, sampleOK bool)
}

// featureGroups is the declared set. Every group appears in the coverage
// artifact exactly once, even at 0% presence; the report's completeness
// contract depends on this list never being filtered.
var featureGroups = []featureGroup{
	{"market_microstructure", func(r record.Record) (bool, float64, bool) {
		if _, ok := r.Float("spot_raw", "mid"); !ok {
			return false, 0, false
		}
		v, ok := r.Float("spot_raw", "spread_bps")
		return true, v, ok
	}},
	{"liquidity", func(r record.Record) (bool, float64, bool) {
		v, ok := r.Float("liquidity", "liq_qv_usd")
		return ok, v, ok
	}},
	{"order_book_depth", func(r record.Record) (bool, float64, bool) {
		v, ok := r.Float("liquidity", "depth_snapshot_usd")
		return ok, v, ok
	}},
	{"time_series", func(r record.Record) (bool, float64, bool) {
		s, ok := r.Slice("spot_prices")
		if !ok || len(s) == 0 {
			return false, 0, false
		}
		return true, float64(len(s)), true
	}},
	{"lexicon_sentiment", func(r record.Record) (bool, float64, bool) {
		return windowScore(r, "lexicon_sentiment")
	}},
	{"ai_sentiment", func(r record.Record) (bool, float64, bool) {
		return windowScore(r, "ai_sentiment")
	}},
	{"activity", func(r record.Record) (bool, float64, bool) {
		w, ok := r.SentimentWindow()
		if !ok {
			return false, 0, false
		}
		act, ok := w["sentiment_activity"].(map[string]any)
		if !ok {
			return false, 0, false
		}
		v, vok := record.AsFloat(act["recent_posts_count"])
		return true, v, vok
	}},
	{"engagement", func(r record.Record) (bool, float64, bool) {
		w, ok := r.SentimentWindow()
		if !ok {
			return false, 0, false
		}
		v, vok := record.AsFloat(w["posts_total"])
		return vok, v, vok
	}},
	{"author_stats", func(r record.Record) (bool, float64, bool) {
		w, ok := r.SentimentWindow()
		if !ok {
			return false, 0, false
		}
		as, ok := w["author_stats"].(map[string]any)
		if !ok {
			return false, 0, false
		}
		v, vok := record.AsFloat(as["unique_authors"])
		return true, v, vok
	}},
}

// windowScore probes a sentiment score field that may be a bare number or a
// mapping carrying a "score" / "mean_score" sub-key.
func windowScore(r record.Record, key string) (bool, float64, bool) {
	w, ok := r.SentimentWindow()
	if !ok {
		return false, 0, false
	}
	v, present := w[key]
	if !present || v == nil {
		return false, 0, false
	}
	if f, fok := record.AsFloat(v); fok {
		return true, f, true
	}
	if m, mok := v.(map[string]any); mok {
		for _, sub := range []string{"score", "mean_score"} {
			if f, fok := record.AsFloat(m[sub]); fok {
				return true, f, true
			}
		}
		return true, 0, false
	}
	return false, 0, false
}

// CoverageTracker counts, per declared feature group, how many usable
// records structurally carry the group, and keeps a prefix-capped example
// value list per group for a median.
type CoverageTracker struct {
	total   int
	counts  map[string]int
	samples map[string][]float64
	cap     int
}

// NewCoverageTracker creates an empty tracker. sampleCap bounds each
// group's example list (first-N, chronologically early-biased past the cap).
func NewCoverageTracker(sampleCap int) *CoverageTracker {
	return &CoverageTracker{
		counts:  make(map[string]int, len(featureGroups)),
		samples: make(map[string][]float64, len(featureGroups)),
		cap:     sampleCap,
	}
}

// AddEntry folds one usable record into the tracker.
func (c *CoverageTracker) AddEntry(r record.Record) {
	c.total++
	for _, g := range featureGroups {
		present, sample, ok := g.probe(r)
		if !present {
			continue
		}
		c.counts[g.name]++
		if ok {
			c.samples[g.name] = stats.CappedAppend(c.samples[g.name], sample, c.cap)
		}
	}
}

// BuildDoc finalizes the tracker. Every declared group appears exactly once;
// a group nothing exhibited is rendered with an explicit marker, never
// dropped.
func (c *CoverageTracker) BuildDoc() Doc {
	groups := make(Doc, len(featureGroups))
	for _, g := range featureGroups {
		count := c.counts[g.name]
		entry := Doc{"records_with_group": count}
		if c.total > 0 {
			entry["presence_pct"] = stats.Round(100*float64(count)/float64(c.total), 1)
		} else {
			entry["presence_pct"] = Unavailable("no usable records")
		}
		if count == 0 {
			entry["present"] = false
		} else {
			entry["present"] = true
		}
		med, ok := stats.Median(c.samples[g.name])
		entry["median_example"] = numOr(med, ok, 4, "no example values")
		groups[g.name] = entry
	}

	return Doc{
		"total_usable": c.total,
		"sample_cap":   c.cap,
		"sample_note":  "example lists are prefix-capped; medians are biased toward early records once the cap is exceeded",
		"groups":       groups,
	}
}
