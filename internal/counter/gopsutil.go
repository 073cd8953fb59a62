package counter

import (
	"context"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// ioCountersFunc matches psnet.IOCountersWithContext.
type ioCountersFunc func(ctx context.Context, pernic bool) ([]psnet.IOCountersStat, error)

// GopsutilSource reads per-NIC counters through gopsutil. It works on every
// platform gopsutil supports, not only Linux.
type GopsutilSource struct {
	ioCounters ioCountersFunc
	now        func() time.Time
}

// NewGopsutilSource returns a gopsutil-backed source.
func NewGopsutilSource() *GopsutilSource {
	return &GopsutilSource{ioCounters: psnet.IOCountersWithContext, now: time.Now}
}

// Name implements Source.
func (s *GopsutilSource) Name() string { return "gopsutil" }

// Snapshot implements Source.
func (s *GopsutilSource) Snapshot(ctx context.Context) (Snapshot, error) {
	return readGuarded(ctx, s.Name(), func() (Snapshot, error) {
		stats, err := s.ioCounters(ctx, true)
		if err != nil {
			return nil, unavailable(s.Name(), err)
		}

		ts := s.now()
		snap := make(Snapshot, len(stats))
		for _, st := range stats {
			if st.Name == "" {
				continue
			}
			snap[st.Name] = Counters{
				Interface:  st.Name,
				RxBytes:    st.BytesRecv,
				TxBytes:    st.BytesSent,
				RxPackets:  st.PacketsRecv,
				TxPackets:  st.PacketsSent,
				HasPackets: true,
				Timestamp:  ts,
			}
		}
		return snap, nil
	})
}
