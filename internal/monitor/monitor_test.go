package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shini4i/netchoo/internal/counter"
	"github.com/shini4i/netchoo/internal/scale"
	"github.com/shini4i/netchoo/internal/stats"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func at(tick int) time.Time {
	return epoch.Add(time.Duration(tick) * time.Second)
}

func reading(name string, rx, tx uint64, ts time.Time) counter.Counters {
	return counter.Counters{Interface: name, RxBytes: rx, TxBytes: tx, Timestamp: ts}
}

func TestTick_SteadyTrafficWithinWindow(t *testing.T) {
	m := New(Options{Window: 5 * time.Second})
	deltas := []uint64{0, 1000, 1000, 1000, 0, 1000}
	wantRates := []float64{0, 1000, 1000, 1000, 0, 1000}

	var rx uint64
	var view View
	for i, d := range deltas {
		rx += d
		view = m.Tick(counter.Snapshot{"eth0": reading("eth0", rx, 0, at(i))}, at(i))

		iv, ok := view.Get("eth0")
		require.True(t, ok)
		assert.InDelta(t, wantRates[i], iv.Latest.RxRate, 1e-9, "tick %d", i+1)
		assert.Zero(t, iv.Latest.TxRate)
	}

	iv := view.Interfaces["eth0"]
	require.Len(t, iv.Samples, 5)
	assert.Equal(t, []float64{1000, 1000, 1000, 0, 1000}, iv.RxSeries())
	assert.Equal(t, at(1), iv.Samples[0].Timestamp)
	assert.InDelta(t, 1000, iv.MaxRate(), 1e-9)
	assert.InDelta(t, 1200, iv.AxisMax, 1e-9)
	assert.Equal(t, 5, iv.Window.Samples)
	assert.Equal(t, 6, iv.Session.Samples)
	assert.Equal(t, uint64(4000), iv.Session.RxBytes)
}

func TestTick_VanishedInterfaceIsDropped(t *testing.T) {
	m := New(Options{Window: time.Minute})

	for i := 0; i < 3; i++ {
		snap := counter.Snapshot{
			"eth0": reading("eth0", uint64(i)*100, 0, at(i)),
			"eth1": reading("eth1", uint64(i)*200, 0, at(i)),
		}
		view := m.Tick(snap, at(i))
		assert.Equal(t, []string{"eth0", "eth1"}, view.Names())
	}

	view := m.Tick(counter.Snapshot{"eth0": reading("eth0", 300, 0, at(3))}, at(3))
	assert.Equal(t, []string{"eth0"}, view.Names())
	assert.Equal(t, []string{"eth0"}, m.Known())

	view = m.Tick(counter.Snapshot{
		"eth0": reading("eth0", 400, 0, at(4)),
		"eth1": reading("eth1", 5000, 0, at(4)),
	}, at(4))

	eth1 := view.Interfaces["eth1"]
	require.Len(t, eth1.Samples, 1, "a returning interface starts over")
	assert.Zero(t, eth1.Latest.RxRate)
	assert.Equal(t, at(4), eth1.Session.FirstSeen)
}

func TestTick_MalformedRecordAddsNoSample(t *testing.T) {
	m := New(Options{Window: time.Minute})

	m.Tick(counter.Snapshot{
		"eth0": reading("eth0", 0, 0, at(0)),
		"eth1": reading("eth1", 0, 0, at(0)),
	}, at(0))

	view := m.Tick(counter.Snapshot{
		"eth0": reading("eth0", 1000, 500, at(1)),
		"eth1": {Interface: "eth1", Timestamp: at(1), Malformed: true},
	}, at(1))

	eth0 := view.Interfaces["eth0"]
	require.Len(t, eth0.Samples, 2)
	assert.InDelta(t, 1000, eth0.Latest.RxRate, 1e-9)
	assert.InDelta(t, 500, eth0.Latest.TxRate, 1e-9)
	assert.False(t, eth0.Stale)

	eth1 := view.Interfaces["eth1"]
	assert.True(t, eth1.Stale)
	require.Len(t, eth1.Samples, 1)
	assert.Equal(t, at(0), eth1.Latest.Timestamp)

	view = m.Tick(counter.Snapshot{
		"eth0": reading("eth0", 2000, 1000, at(2)),
		"eth1": reading("eth1", 4000, 0, at(2)),
	}, at(2))

	eth1 = view.Interfaces["eth1"]
	assert.False(t, eth1.Stale)
	require.Len(t, eth1.Samples, 2)
	assert.InDelta(t, 2000, eth1.Latest.RxRate, 1e-9, "measured against the last good reading")
}

func TestTick_MalformedUnknownInterfaceIsSkipped(t *testing.T) {
	m := New(Options{})

	view := m.Tick(counter.Snapshot{"eth9": {Interface: "eth9", Malformed: true}}, at(0))

	assert.Empty(t, view.Interfaces)
	assert.Zero(t, m.Len())
}

func TestTick_CounterResetReadsZero(t *testing.T) {
	m := New(Options{Window: time.Minute})

	m.Tick(counter.Snapshot{"eth0": reading("eth0", 5000, 5000, at(0))}, at(0))
	view := m.Tick(counter.Snapshot{"eth0": reading("eth0", 100, 6000, at(1))}, at(1))

	latest := view.Interfaces["eth0"].Latest
	assert.Zero(t, latest.RxRate)
	assert.InDelta(t, 1000, latest.TxRate, 1e-9)
	assert.Equal(t, []stats.Direction{stats.DirRxBytes}, latest.ResetOf)
	assert.Equal(t, 1, view.Interfaces["eth0"].Session.Resets)
}

func TestTick_IdleInterfaceUsesFloor(t *testing.T) {
	m := New(Options{Scale: scale.Model{Headroom: 1.5, Floor: 1024}})

	view := m.Tick(counter.Snapshot{"wg0": reading("wg0", 0, 0, at(0))}, at(0))

	iv := view.Interfaces["wg0"]
	assert.InDelta(t, 1536, iv.AxisMax, 1e-9)
	assert.Equal(t, counter.KindTunnel, iv.Kind)
	assert.False(t, iv.DockerBridge)
}

func TestTick_AxisShrinksAfterBurstLeavesWindow(t *testing.T) {
	m := New(Options{Window: 3 * time.Second})
	rx := []uint64{0, 100000, 100100, 100200, 100300, 100400}

	var view View
	for i, v := range rx {
		view = m.Tick(counter.Snapshot{"eth0": reading("eth0", v, 0, at(i))}, at(i))
		iv := view.Interfaces["eth0"]
		assert.GreaterOrEqual(t, iv.AxisMax, iv.MaxRate(), "tick %d", i+1)
	}

	assert.InDelta(t, 120, view.Interfaces["eth0"].AxisMax, 1e-9)
}

func TestTick_ViewIsIndependentOfState(t *testing.T) {
	m := New(Options{Window: time.Minute})

	m.Tick(counter.Snapshot{"eth0": reading("eth0", 0, 0, at(0))}, at(0))
	first := m.Tick(counter.Snapshot{"eth0": reading("eth0", 1000, 0, at(1))}, at(1))

	iv := first.Interfaces["eth0"]
	iv.Samples[1].RxRate = 1e12

	second := m.Tick(counter.Snapshot{"eth0": reading("eth0", 2000, 0, at(2))}, at(2))
	assert.Equal(t, []float64{0, 1000, 1000}, second.Interfaces["eth0"].RxSeries())
	assert.InDelta(t, 1000, second.Interfaces["eth0"].MaxRate(), 1e-9)
}

func TestTick_ViewDoesNotShareResetLists(t *testing.T) {
	m := New(Options{Window: time.Minute})

	m.Tick(counter.Snapshot{"eth0": reading("eth0", 5000, 0, at(0))}, at(0))
	view := m.Tick(counter.Snapshot{"eth0": reading("eth0", 10, 0, at(1))}, at(1))

	iv := view.Interfaces["eth0"]
	require.Equal(t, []stats.Direction{stats.DirRxBytes}, iv.Latest.ResetOf)
	iv.Latest.ResetOf[0] = stats.DirTxPackets
	iv.Samples[1].ResetOf[0] = stats.DirTxPackets

	next := m.Tick(counter.Snapshot{"eth0": reading("eth0", 20, 0, at(2))}, at(2))
	assert.Equal(t, []stats.Direction{stats.DirRxBytes}, next.Interfaces["eth0"].Samples[1].ResetOf)
}

func TestTick_JitteredTicksKeepWindowCount(t *testing.T) {
	m := New(Options{Window: 5 * time.Second, Interval: time.Second})
	// Each tick's reading is taken slightly early or late, and the tick
	// completes a little after the read.
	jitter := []time.Duration{0, 40, -30, 25, -45, 10, 35, -20, 45, -40, 5, 30}

	for i, j := range jitter {
		read := at(i).Add(j * time.Millisecond)
		now := read.Add(3 * time.Millisecond)
		view := m.Tick(counter.Snapshot{"eth0": reading("eth0", uint64(i)*1000, 0, read)}, now)

		assert.Len(t, view.Interfaces["eth0"].Samples, min(i+1, 5), "tick %d", i+1)
	}
}

func TestSetInterval(t *testing.T) {
	m := New(Options{Window: 5 * time.Second})
	m.Tick(counter.Snapshot{"eth0": reading("eth0", 0, 0, at(0))}, at(0))

	m.SetInterval(time.Second)
	m.SetInterval(-time.Second)

	assert.Equal(t, time.Second, m.Interval())
	assert.Equal(t, time.Second, m.interfaces["eth0"].history.Interval())

	m.Tick(counter.Snapshot{"eth1": reading("eth1", 0, 0, at(1))}, at(1))
	assert.Equal(t, time.Second, m.interfaces["eth1"].history.Interval(), "new interfaces inherit the interval")
}

func TestSetWindow(t *testing.T) {
	m := New(Options{Window: time.Minute})
	for i := 0; i < 10; i++ {
		m.Tick(counter.Snapshot{"eth0": reading("eth0", uint64(i), 0, at(i))}, at(i))
	}

	m.SetWindow(2 * time.Second)
	m.SetWindow(0)
	view := m.Tick(counter.Snapshot{"eth0": reading("eth0", 10, 0, at(10))}, at(10))

	assert.Equal(t, 2*time.Second, m.Window())
	assert.Len(t, view.Interfaces["eth0"].Samples, 2)
}

func TestNew_Defaults(t *testing.T) {
	m := New(Options{})

	assert.Equal(t, 5*time.Minute, m.Window())
	assert.Empty(t, m.Known())
}
