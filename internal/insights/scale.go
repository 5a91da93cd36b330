package insights

import (
	"fmt"
	"time"

	"sentiscan/internal/record"
	"sentiscan/internal/stats"
)

// ScaleTracker measures how big the archive is: record totals, calendar
// span, distinct symbols, distinct sentiment cycles. Everything here is an
// exact count; no sampling is involved, so re-scans reproduce it exactly.
type ScaleTracker struct {
	totalSeen   int
	totalUsable int
	firstDay    string // YYYY-MM-DD, lexicographic min
	lastDay     string
	symbols     map[string]struct{}
	cycles      map[string]struct{}
}

// NewScaleTracker creates an empty tracker.
func NewScaleTracker() *ScaleTracker {
	return &ScaleTracker{
		symbols: make(map[string]struct{}),
		cycles:  make(map[string]struct{}),
	}
}

// Observe folds one walked record. Every parsed record counts toward
// total_seen; symbols, cycles and the day span advance only on usable ones.
func (s *ScaleTracker) Observe(r record.Record, day string, usable bool) {
	s.totalSeen++
	if !usable {
		return
	}
	s.totalUsable++

	// Zero-padded YYYY-MM-DD compares correctly as a string.
	if s.firstDay == "" || day < s.firstDay {
		s.firstDay = day
	}
	if day > s.lastDay {
		s.lastDay = day
	}

	if sym := r.Symbol(); sym != "" {
		s.symbols[sym] = struct{}{}
	}
	for _, key := range []string{"last_cycle", "last_2_cycles"} {
		if id, ok := cycleID(r, key); ok {
			s.cycles[id] = struct{}{}
		}
	}
}

// cycleID extracts bucket_meta.cycle_id from one sentiment window; tokens
// may arrive as strings or numbers.
func cycleID(r record.Record, window string) (string, bool) {
	v, ok := r.Get("twitter_sentiment_windows", window, "bucket_meta", "cycle_id")
	if !ok || v == nil {
		return "", false
	}
	switch id := v.(type) {
	case string:
		return id, id != ""
	case float64:
		return fmt.Sprintf("%.0f", id), true
	default:
		return "", false
	}
}

// TotalSeen returns the exact number of records observed.
func (s *ScaleTracker) TotalSeen() int { return s.totalSeen }

// TotalUsable returns the exact number of gate-passing records observed.
func (s *ScaleTracker) TotalUsable() int { return s.totalUsable }

// DaySpan returns the inclusive calendar-day span of the usable records,
// or 0 when none were seen.
func (s *ScaleTracker) DaySpan() int {
	if s.firstDay == "" {
		return 0
	}
	first, err1 := time.Parse("2006-01-02", s.firstDay)
	last, err2 := time.Parse("2006-01-02", s.lastDay)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(last.Sub(first).Hours()/24) + 1
}

// BuildDoc finalizes the tracker into its artifact payload.
func (s *ScaleTracker) BuildDoc() Doc {
	doc := Doc{
		"total_seen":       s.totalSeen,
		"total_usable":     s.totalUsable,
		"distinct_symbols": len(s.symbols),
		"distinct_cycles":  len(s.cycles),
	}

	if s.totalSeen > 0 {
		doc["usable_ratio"] = stats.Round(float64(s.totalUsable)/float64(s.totalSeen), 4)
	} else {
		doc["usable_ratio"] = Unavailable("no records seen")
	}

	span := s.DaySpan()
	if span == 0 {
		doc["first_day"] = Unavailable("no usable records")
		doc["last_day"] = Unavailable("no usable records")
		doc["day_span"] = 0
		doc["avg_usable_per_day"] = Unavailable("no usable records")
		return doc
	}

	doc["first_day"] = s.firstDay
	doc["last_day"] = s.lastDay
	doc["day_span"] = span
	doc["avg_usable_per_day"] = stats.Round(float64(s.totalUsable)/float64(span), 2)
	return doc
}
