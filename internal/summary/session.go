package summary

import (
	"log/slog"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/shini4i/netchoo/internal/stats"
)

// sessionAccuracy is the relative accuracy of session quantiles.
const sessionAccuracy = 0.01

// SessionStats describes an interface since it was first seen.
type SessionStats struct {
	FirstSeen time.Time     `json:"first_seen"`
	Duration  time.Duration `json:"duration"`
	Samples   int           `json:"samples"`
	RxBytes   uint64        `json:"rx_bytes"`
	TxBytes   uint64        `json:"tx_bytes"`
	Resets    int           `json:"resets"`
	RxP95     float64       `json:"rx_p95"`
	TxP95     float64       `json:"tx_p95"`
	PeakRx    float64       `json:"peak_rx"`
	PeakTx    float64       `json:"peak_tx"`
}

// Session accumulates lifetime totals and streaming quantiles for one
// interface. Memory stays bounded no matter how long the session runs.
type Session struct {
	firstSeen time.Time
	last      time.Time
	samples   int
	rxBytes   uint64
	txBytes   uint64
	resets    int
	peakRx    float64
	peakTx    float64

	rx *ddsketch.DDSketch
	tx *ddsketch.DDSketch
}

// NewSession starts a session at firstSeen.
func NewSession(firstSeen time.Time) *Session {
	return &Session{
		firstSeen: firstSeen,
		last:      firstSeen,
		rx:        newSketch(),
		tx:        newSketch(),
	}
}

func newSketch() *ddsketch.DDSketch {
	s, err := ddsketch.NewDefaultDDSketch(sessionAccuracy)
	if err != nil {
		// Only reachable with an invalid accuracy constant.
		panic(err)
	}
	return s
}

// Add records one tick's sample.
func (s *Session) Add(sample stats.RateSample) {
	s.samples++
	s.rxBytes += sample.RxDelta
	s.txBytes += sample.TxDelta
	if sample.Reset() {
		s.resets++
	}
	if sample.Timestamp.After(s.last) {
		s.last = sample.Timestamp
	}
	rx, tx := finite(sample.RxRate), finite(sample.TxRate)
	s.peakRx = max(s.peakRx, rx)
	s.peakTx = max(s.peakTx, tx)

	if err := s.rx.Add(rx); err != nil {
		slog.Debug("Dropping session sample", "interface", sample.Interface, "direction", "rx", "error", err)
	}
	if err := s.tx.Add(tx); err != nil {
		slog.Debug("Dropping session sample", "interface", sample.Interface, "direction", "tx", "error", err)
	}
}

// Stats returns a snapshot of the session.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		FirstSeen: s.firstSeen,
		Duration:  s.last.Sub(s.firstSeen),
		Samples:   s.samples,
		RxBytes:   s.rxBytes,
		TxBytes:   s.txBytes,
		Resets:    s.resets,
		RxP95:     quantile(s.rx, 0.95),
		TxP95:     quantile(s.tx, 0.95),
		PeakRx:    s.peakRx,
		PeakTx:    s.peakTx,
	}
}

// quantile returns the q-quantile, or 0 for an empty sketch.
func quantile(sk *ddsketch.DDSketch, q float64) float64 {
	if sk.IsEmpty() {
		return 0
	}
	v, err := sk.GetValueAtQuantile(q)
	if err != nil {
		return 0
	}
	return v
}
