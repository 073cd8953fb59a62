package stats

import (
	"time"

	"github.com/shini4i/netchoo/internal/counter"
)

// Direction names a counter that moved backwards.
type Direction string

// Counter directions reported in RateSample.ResetOf.
const (
	DirRxBytes   Direction = "rx_bytes"
	DirTxBytes   Direction = "tx_bytes"
	DirRxPackets Direction = "rx_packets"
	DirTxPackets Direction = "tx_packets"
)

// Rate derives an interface's throughput from two successive counter readings.
//
// A nil prev (first sighting) or a non-positive elapsed yields a zero sample.
// A counter that decreased is treated as reset: that direction reads zero for
// this tick and is listed in ResetOf. Rates are never negative.
func Rate(prev *counter.Counters, cur counter.Counters, elapsed time.Duration) RateSample {
	sample := RateSample{
		Interface: cur.Interface,
		Timestamp: cur.Timestamp,
	}
	if prev == nil || elapsed <= 0 {
		return sample
	}

	secs := elapsed.Seconds()
	var reset bool

	sample.RxDelta, reset = delta(prev.RxBytes, cur.RxBytes)
	sample.noteReset(reset, DirRxBytes)
	sample.TxDelta, reset = delta(prev.TxBytes, cur.TxBytes)
	sample.noteReset(reset, DirTxBytes)

	sample.RxRate = float64(sample.RxDelta) / secs
	sample.TxRate = float64(sample.TxDelta) / secs

	if prev.HasPackets && cur.HasPackets {
		rxp, reset := delta(prev.RxPackets, cur.RxPackets)
		sample.noteReset(reset, DirRxPackets)
		txp, reset := delta(prev.TxPackets, cur.TxPackets)
		sample.noteReset(reset, DirTxPackets)

		sample.RxPacketRate = float64(rxp) / secs
		sample.TxPacketRate = float64(txp) / secs
	}

	return sample
}

// Elapsed is the time between two readings of the same interface.
// Both timestamps normally carry monotonic readings, so wall clock steps do not leak in.
func Elapsed(prev *counter.Counters, cur counter.Counters) time.Duration {
	if prev == nil || prev.Timestamp.IsZero() || cur.Timestamp.IsZero() {
		return 0
	}
	return cur.Timestamp.Sub(prev.Timestamp)
}

// delta returns cur-prev, or (0, true) when the counter went backwards.
// The subtraction is only performed when it cannot wrap.
func delta(prev, cur uint64) (uint64, bool) {
	if cur < prev {
		return 0, true
	}
	return cur - prev, false
}

func (s *RateSample) noteReset(reset bool, dir Direction) {
	if reset {
		s.ResetOf = append(s.ResetOf, dir)
	}
}
