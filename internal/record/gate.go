package record

import "fmt"

// Gate constants. Every consumer in this repository admits records through
// exactly this gate; do not fork a variant with different keys or thresholds.
const (
	// RequiredSchemaVersion is the only archive schema the tooling reads.
	RequiredSchemaVersion = 7

	// MinSpotSamples is the minimum spot_prices length for a record to
	// carry a usable sampling density.
	MinSpotSamples = 700
)

// spotRawRequired lists the spot_raw fields a usable record must carry,
// checked in this order so failure reasons are stable.
var spotRawRequired = []string{"mid", "bid", "ask", "spread_bps"}

// Usable reports whether a record passes the structural gate, along with a
// short reason naming the first failed condition. Conditions are checked in
// a fixed order (schema version, spot_prices length, spot_raw keys,
// sentiment cycle presence) and evaluation stops at the first failure.
func Usable(r Record) (bool, string) {
	ver, ok := r.Int("meta", "schema_version")
	if !ok || ver != RequiredSchemaVersion {
		return false, fmt.Sprintf("schema_version is not %d", RequiredSchemaVersion)
	}

	prices, ok := r.Slice("spot_prices")
	if !ok || len(prices) < MinSpotSamples {
		n := 0
		if ok {
			n = len(prices)
		}
		return false, fmt.Sprintf("spot_prices has %d samples, need %d", n, MinSpotSamples)
	}

	spotRaw, ok := r.Map("spot_raw")
	if !ok {
		return false, "spot_raw missing"
	}
	for _, key := range spotRawRequired {
		if v, present := spotRaw[key]; !present || v == nil {
			return false, fmt.Sprintf("spot_raw missing %s", key)
		}
	}

	if !r.hasSentimentCycle() {
		return false, "no sentiment cycle window"
	}

	return true, ""
}

// hasSentimentCycle reports whether twitter_sentiment_windows carries a
// non-null last_cycle or last_2_cycles mapping.
func (r Record) hasSentimentCycle() bool {
	for _, key := range []string{"last_cycle", "last_2_cycles"} {
		if w, ok := r.Map("twitter_sentiment_windows", key); ok && w != nil {
			return true
		}
	}
	return false
}

// SentimentWindow returns the preferred sentiment window mapping for a
// record: last_cycle when present, else last_2_cycles. Accumulators read
// posts, scores and activity flags through this single chooser so they all
// see the same window.
func (r Record) SentimentWindow() (map[string]any, bool) {
	if w, ok := r.Map("twitter_sentiment_windows", "last_cycle"); ok {
		return w, true
	}
	if w, ok := r.Map("twitter_sentiment_windows", "last_2_cycles"); ok {
		return w, true
	}
	return nil, false
}
