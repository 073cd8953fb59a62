// Package history keeps a bounded, time-windowed series of rate samples per interface.
package history

import (
	"errors"
	"time"

	"github.com/shini4i/netchoo/internal/stats"
)

// DefaultWindow is the trailing duration retained when none is configured.
const DefaultWindow = 5 * time.Minute

// ErrOutOfOrder is returned when a sample is older than the newest retained one.
var ErrOutOfOrder = errors.New("sample older than newest retained sample")

// History is the retained samples of one interface, oldest first.
//
// Retention is by age, not by count: a sample is kept while it is younger
// than the window, so the number of samples follows the sampling interval.
// When the sampling interval is known, ages are counted in whole intervals so
// that timer and read jitter never changes how many samples fit the window.
// History is not safe for concurrent use; the scheduler goroutine owns it.
type History struct {
	name     string
	window   time.Duration
	interval time.Duration
	samples  []stats.RateSample

	maxRx float64
	maxTx float64
	// stale is set when a peak was evicted and the maxima must be rescanned.
	stale bool
}

// New returns an empty history for the named interface.
// A non-positive window means DefaultWindow.
func New(name string, window time.Duration) *History {
	if window <= 0 {
		window = DefaultWindow
	}
	return &History{name: name, window: window}
}

// Name returns the interface name.
func (h *History) Name() string { return h.name }

// Window returns the retained duration.
func (h *History) Window() time.Duration { return h.window }

// SetWindow changes the retained duration. Samples are not evicted until the next Trim.
func (h *History) SetWindow(window time.Duration) {
	if window > 0 {
		h.window = window
	}
}

// Interval returns the sampling interval used by Trim, or zero if unknown.
func (h *History) Interval() time.Duration { return h.interval }

// SetInterval tells Trim how far apart samples are expected to be. Zero
// makes Trim compare exact ages.
func (h *History) SetInterval(interval time.Duration) {
	if interval >= 0 {
		h.interval = interval
	}
}

// Len returns the number of retained samples.
func (h *History) Len() int { return len(h.samples) }

// Append adds a sample at the newest end.
func (h *History) Append(s stats.RateSample) error {
	if n := len(h.samples); n > 0 && s.Timestamp.Before(h.samples[n-1].Timestamp) {
		return ErrOutOfOrder
	}
	h.samples = append(h.samples, s)
	if !h.stale {
		h.maxRx = max(h.maxRx, s.RxRate)
		h.maxTx = max(h.maxTx, s.TxRate)
	}
	return nil
}

// EvictOlderThan drops every sample taken at or before cutoff and returns how
// many were dropped. With cutoff = now - window, a sample exactly one window
// old has aged out. Samples leave strictly in timestamp order.
func (h *History) EvictOlderThan(cutoff time.Time) int {
	n := 0
	for n < len(h.samples) && !h.samples[n].Timestamp.After(cutoff) {
		s := h.samples[n]
		if s.RxRate >= h.maxRx || s.TxRate >= h.maxTx {
			h.stale = true
		}
		n++
	}
	if n == 0 {
		return 0
	}

	h.samples = append(h.samples[:0], h.samples[n:]...)
	if len(h.samples) == 0 {
		h.maxRx, h.maxTx, h.stale = 0, 0, false
	}
	return n
}

// Trim evicts everything that has aged out of the window as of now.
//
// Without an interval a sample ages out once now - ts >= window. With one,
// a sample's age is rounded to whole intervals first, so exactly
// ceil(window/interval) samples survive as long as jitter stays below half
// an interval.
func (h *History) Trim(now time.Time) int {
	return h.EvictOlderThan(now.Add(-h.retention()))
}

// retention is the age at which a sample is evicted.
func (h *History) retention() time.Duration {
	if h.interval <= 0 {
		return h.window
	}
	slots := (h.window + h.interval - 1) / h.interval
	return slots*h.interval - h.interval/2
}

// MaxRx returns the highest receive rate in the window.
func (h *History) MaxRx() float64 {
	h.refresh()
	return h.maxRx
}

// MaxTx returns the highest transmit rate in the window.
func (h *History) MaxTx() float64 {
	h.refresh()
	return h.maxTx
}

// MaxRate returns the highest rate in either direction in the window.
func (h *History) MaxRate() float64 {
	h.refresh()
	return max(h.maxRx, h.maxTx)
}

func (h *History) refresh() {
	if !h.stale {
		return
	}
	h.maxRx, h.maxTx = 0, 0
	for _, s := range h.samples {
		h.maxRx = max(h.maxRx, s.RxRate)
		h.maxTx = max(h.maxTx, s.TxRate)
	}
	h.stale = false
}

// Samples returns a deep copy of the retained samples, oldest first.
func (h *History) Samples() []stats.RateSample {
	out := make([]stats.RateSample, len(h.samples))
	for i, s := range h.samples {
		out[i] = s.Clone()
	}
	return out
}

// Latest returns a copy of the newest sample.
func (h *History) Latest() (stats.RateSample, bool) {
	if len(h.samples) == 0 {
		return stats.RateSample{}, false
	}
	return h.samples[len(h.samples)-1].Clone(), true
}
