// Package history keeps the most recent LTP observations of one instrument.
package history

import "sync"

// DefaultSize is the number of prices retained when no size is configured.
const DefaultSize = 300

// Stats summarizes the retained prices. OK is false when nothing is retained.
type Stats struct {
	High    float64 `json:"high"`
	Low     float64 `json:"low"`
	Average float64 `json:"avg_ltp"`
	Count   int     `json:"count"`
	OK      bool    `json:"-"`
}

// Ring is a fixed-capacity price buffer; the oldest price is evicted first.
type Ring struct {
	mu     sync.RWMutex
	prices []float64
	start  int
	count  int
}

func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultSize
	}
	return &Ring{prices: make([]float64, size)}
}

// Append records a price. Non-positive prices are ignored and false is returned.
func (r *Ring) Append(price float64) bool {
	if price <= 0 {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	capacity := len(r.prices)
	if r.count < capacity {
		r.prices[(r.start+r.count)%capacity] = price
		r.count++
		return true
	}
	r.prices[r.start] = price
	r.start = (r.start + 1) % capacity
	return true
}

// Stats computes high, low and mean over exactly the retained prices.
func (r *Ring) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.count == 0 {
		return Stats{}
	}
	capacity := len(r.prices)
	first := r.prices[r.start]
	st := Stats{High: first, Low: first, Count: r.count, OK: true}
	sum := 0.0
	for i := 0; i < r.count; i++ {
		p := r.prices[(r.start+i)%capacity]
		if p > st.High {
			st.High = p
		}
		if p < st.Low {
			st.Low = p
		}
		sum += p
	}
	st.Average = sum / float64(r.count)
	return st
}

// Last returns the newest price.
func (r *Ring) Last() (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.count == 0 {
		return 0, false
	}
	return r.prices[(r.start+r.count-1)%len(r.prices)], true
}

// Values returns the retained prices, oldest first.
func (r *Ring) Values() []float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]float64, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.prices[(r.start+i)%len(r.prices)]
	}
	return out
}

func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

func (r *Ring) Cap() int {
	return len(r.prices)
}

// Reset drops every retained price.
func (r *Ring) Reset() {
	r.mu.Lock()
	r.start = 0
	r.count = 0
	r.mu.Unlock()
}
