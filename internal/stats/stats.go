// Package stats turns counter readings into throughput rates and formats
// them for display.
package stats

import (
	"slices"
	"time"
)

// RateSample is an interface's throughput over one tick.
type RateSample struct {
	// Interface is the network interface name (e.g., "eth0", "wg0").
	Interface string `json:"interface"`

	// RxRate is the receive rate in bytes per second.
	RxRate float64 `json:"rx_rate"`
	// TxRate is the transmit rate in bytes per second.
	TxRate float64 `json:"tx_rate"`

	// RxPacketRate and TxPacketRate are zero when the feed has no packet counters.
	RxPacketRate float64 `json:"rx_packet_rate"`
	TxPacketRate float64 `json:"tx_packet_rate"`

	// RxDelta and TxDelta are the bytes credited to this tick.
	RxDelta uint64 `json:"rx_delta"`
	TxDelta uint64 `json:"tx_delta"`

	// ResetOf lists the counters that went backwards during this tick.
	ResetOf []Direction `json:"reset_of,omitempty"`

	// Timestamp is when the underlying counters were read.
	Timestamp time.Time `json:"timestamp"`
}

// Peak returns the larger of the two byte rates.
func (s RateSample) Peak() float64 {
	if s.RxRate > s.TxRate {
		return s.RxRate
	}
	return s.TxRate
}

// Reset reports whether any counter was reset during this tick.
func (s RateSample) Reset() bool {
	return len(s.ResetOf) > 0
}

// Clone returns a copy that shares no memory with s.
func (s RateSample) Clone() RateSample {
	s.ResetOf = slices.Clone(s.ResetOf)
	return s
}
