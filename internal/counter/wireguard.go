package counter

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// deviceLister is the part of *wgctrl.Client the source needs.
type deviceLister interface {
	Devices() ([]*wgtypes.Device, error)
	Close() error
}

// ErrReadInFlight is returned when an earlier device read has not returned
// yet. wgctrl calls cannot be cancelled, so a hung read is left to finish on
// its own instead of stacking more reads behind it.
var ErrReadInFlight = errors.New("previous device read still running")

// WireGuardSource reports one record per WireGuard device, summing the
// transfer counters of all its peers. The kernel keeps no packet counts
// per peer, so HasPackets is false.
type WireGuardSource struct {
	mu      sync.Mutex
	client  deviceLister
	reading bool
	open    func() (deviceLister, error)
	now     func() time.Time
}

// NewWireGuardSource returns a source that opens a wgctrl client lazily,
// so a missing WireGuard module shows up as SourceUnavailable per tick
// instead of failing at startup.
func NewWireGuardSource() *WireGuardSource {
	return &WireGuardSource{
		open: func() (deviceLister, error) { return wgctrl.New() },
		now:  time.Now,
	}
}

// Name implements Source.
func (s *WireGuardSource) Name() string { return "wireguard" }

// Snapshot implements Source.
func (s *WireGuardSource) Snapshot(ctx context.Context) (Snapshot, error) {
	return readGuarded(ctx, s.Name(), func() (Snapshot, error) {
		client, err := s.acquire()
		if err != nil {
			return nil, unavailable(s.Name(), err)
		}

		devices, err := client.Devices()
		s.release(client, err != nil)
		if err != nil {
			return nil, unavailable(s.Name(), err)
		}

		ts := s.now()
		snap := make(Snapshot, len(devices))
		for _, dev := range devices {
			var rx, tx uint64
			for _, peer := range dev.Peers {
				rx += nonNegative(peer.ReceiveBytes)
				tx += nonNegative(peer.TransmitBytes)
			}
			snap[dev.Name] = Counters{
				Interface: dev.Name,
				RxBytes:   rx,
				TxBytes:   tx,
				Timestamp: ts,
			}
		}
		return snap, nil
	})
}

// acquire marks a read as running and returns the client, opening it first
// if needed. The lock is not held during the read itself.
func (s *WireGuardSource) acquire() (deviceLister, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reading {
		return nil, ErrReadInFlight
	}
	if s.client == nil {
		client, err := s.open()
		if err != nil {
			return nil, err
		}
		s.client = client
	}
	s.reading = true
	return s.client, nil
}

// release ends a read. A client that failed, or that Close detached while
// the read was running, is closed here; the next tick reopens one.
func (s *WireGuardSource) release(client deviceLister, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reading = false
	switch {
	case s.client != client:
		_ = client.Close()
	case failed:
		_ = client.Close()
		s.client = nil
	}
}

// Close releases the wgctrl client. It never waits for a running read; that
// read closes the client when it returns.
func (s *WireGuardSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	client := s.client
	s.client = nil
	if client == nil || s.reading {
		return nil
	}
	return client.Close()
}

func nonNegative(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}
