package stats

import "math/rand"

// Reservoir maintains a fixed-capacity uniform random sample of a value
// stream seen exactly once (Vitter's Algorithm R). After n offers each
// offered value is retained with probability capacity/n.
//
// Sampling is randomized: two scans of the same archive produce different
// reservoirs unless the caller seeds the source identically. Reservoir-fed
// statistics are therefore example-grade only; exact counts and gate
// decisions never flow through a reservoir.
type Reservoir struct {
	capacity int
	seen     int64
	items    []float64
	rng      *rand.Rand
}

// NewReservoir creates a reservoir with the given capacity. The rand source
// is owned by the caller and must not be shared with other randomized
// components (preview pickers keep their own source).
func NewReservoir(capacity int, rng *rand.Rand) *Reservoir {
	return &Reservoir{
		capacity: capacity,
		items:    make([]float64, 0, capacity),
		rng:      rng,
	}
}

// Offer presents one value to the reservoir.
func (r *Reservoir) Offer(v float64) {
	r.seen++
	if len(r.items) < r.capacity {
		r.items = append(r.items, v)
		return
	}
	if j := r.rng.Int63n(r.seen); j < int64(r.capacity) {
		r.items[j] = v
	}
}

// Seen returns the number of values offered so far, including evicted ones.
func (r *Reservoir) Seen() int64 { return r.seen }

// Len returns the current sample size: min(seen, capacity).
func (r *Reservoir) Len() int { return len(r.items) }

// Values returns a copy of the retained sample. The reservoir itself is
// never sorted; callers sort the snapshot when computing statistics.
func (r *Reservoir) Values() []float64 {
	out := make([]float64, len(r.items))
	copy(out, r.items)
	return out
}
