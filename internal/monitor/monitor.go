// Package monitor holds the per-interface state between ticks and turns each
// counter snapshot into a View for renderers.
package monitor

import (
	"log/slog"
	"sort"
	"time"

	"github.com/shini4i/netchoo/internal/counter"
	"github.com/shini4i/netchoo/internal/history"
	"github.com/shini4i/netchoo/internal/scale"
	"github.com/shini4i/netchoo/internal/stats"
	"github.com/shini4i/netchoo/internal/summary"
)

// Options configures a Monitor. Zero values fall back to defaults.
type Options struct {
	// Window is the retained history duration.
	Window time.Duration
	// Scale derives each interface's axis maximum.
	Scale scale.Model
	// Interval is the expected time between ticks. When set, history
	// retention counts whole intervals and tolerates timer jitter.
	Interval time.Duration
}

// Monitor is the state carried across ticks: the previous counter reading,
// history and session of every interface still present.
// Not safe for concurrent use; the scheduler goroutine owns it.
type Monitor struct {
	window   time.Duration
	interval time.Duration
	scale    scale.Model
	windower *summary.Windower

	interfaces map[string]*ifaceState
}

type ifaceState struct {
	kind    counter.Kind
	prev    counter.Counters
	history *history.History
	session *summary.Session
}

// New returns an empty Monitor.
func New(opts Options) *Monitor {
	if opts.Window <= 0 {
		opts.Window = history.DefaultWindow
	}
	if opts.Scale == (scale.Model{}) {
		opts.Scale = scale.Default()
	}
	return &Monitor{
		window:     opts.Window,
		interval:   max(opts.Interval, 0),
		scale:      opts.Scale,
		windower:   summary.NewWindower(),
		interfaces: make(map[string]*ifaceState),
	}
}

// Window returns the retained history duration.
func (m *Monitor) Window() time.Duration { return m.window }

// SetWindow changes the retained duration for every interface. Older samples
// are evicted on the next tick. Call it from the goroutine that calls Tick.
func (m *Monitor) SetWindow(window time.Duration) {
	if window <= 0 {
		return
	}
	m.window = window
	for _, st := range m.interfaces {
		st.history.SetWindow(window)
	}
}

// Interval returns the expected time between ticks, zero if unknown.
func (m *Monitor) Interval() time.Duration { return m.interval }

// SetInterval changes the expected time between ticks for every interface.
// Call it from the goroutine that calls Tick.
func (m *Monitor) SetInterval(interval time.Duration) {
	if interval < 0 {
		return
	}
	m.interval = interval
	for _, st := range m.interfaces {
		st.history.SetInterval(interval)
	}
}

// Len returns the number of tracked interfaces.
func (m *Monitor) Len() int { return len(m.interfaces) }

// Known returns the tracked interface names, sorted.
func (m *Monitor) Known() []string {
	names := make([]string, 0, len(m.interfaces))
	for name := range m.interfaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tick folds one snapshot into the state and returns the resulting view.
//
// Interfaces missing from snap are forgotten together with their history. An
// interface reported as malformed keeps its state but gets no sample this
// tick; its next good reading is measured against the last good one. A newly
// seen interface starts with a zero sample.
func (m *Monitor) Tick(snap counter.Snapshot, now time.Time) View {
	for name := range m.interfaces {
		if _, ok := snap[name]; !ok {
			slog.Debug("Interface disappeared", "interface", name)
			delete(m.interfaces, name)
		}
	}

	view := View{Time: now, Interfaces: make(map[string]InterfaceView, len(snap))}

	for _, name := range snap.Names() {
		cur := snap[name]
		if cur.Timestamp.IsZero() {
			cur.Timestamp = now
		}

		st, known := m.interfaces[name]
		if cur.Malformed {
			if !known {
				continue
			}
			st.history.Trim(now)
			view.Interfaces[name] = m.viewOf(name, st, true)
			continue
		}

		var prev *counter.Counters
		if known {
			prev = &st.prev
		} else {
			slog.Debug("Interface appeared", "interface", name)
			st = &ifaceState{
				kind:    counter.Classify(name),
				history: history.New(name, m.window),
				session: summary.NewSession(cur.Timestamp),
			}
			st.history.SetInterval(m.interval)
			m.interfaces[name] = st
		}

		sample := stats.Rate(prev, cur, stats.Elapsed(prev, cur))
		if sample.Reset() {
			slog.Debug("Counter reset", "interface", name, "counters", sample.ResetOf)
		}
		if err := st.history.Append(sample); err != nil {
			slog.Warn("Dropping sample", "interface", name, "error", err)
		} else {
			st.session.Add(sample)
		}
		st.prev = cur
		st.history.Trim(now)

		view.Interfaces[name] = m.viewOf(name, st, false)
	}

	return view
}

func (m *Monitor) viewOf(name string, st *ifaceState, stale bool) InterfaceView {
	samples := st.history.Samples()
	iv := InterfaceView{
		Name:         name,
		Kind:         st.kind,
		DockerBridge: counter.IsDockerBridge(name),
		Stale:        stale,
		Samples:      samples,
		AxisMax:      m.scale.AxisMax(st.history),
		MaxRx:        st.history.MaxRx(),
		MaxTx:        st.history.MaxTx(),
		Window:       m.windower.Summarize(samples),
		Session:      st.session.Stats(),
	}
	if latest, ok := st.history.Latest(); ok {
		iv.Latest = latest
	}
	return iv
}
