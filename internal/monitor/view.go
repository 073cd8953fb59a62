package monitor

import (
	"sort"
	"time"

	"github.com/shini4i/netchoo/internal/counter"
	"github.com/shini4i/netchoo/internal/stats"
	"github.com/shini4i/netchoo/internal/summary"
)

// InterfaceView is everything a renderer needs to draw one interface.
type InterfaceView struct {
	Name         string       `json:"name"`
	Kind         counter.Kind `json:"kind"`
	DockerBridge bool         `json:"docker_bridge"`

	// Stale is set when this tick's record for the interface was unreadable
	// and no new sample was added.
	Stale bool `json:"stale"`

	// Samples is the retained history, oldest first.
	Samples []stats.RateSample `json:"samples"`
	Latest  stats.RateSample   `json:"latest"`

	// AxisMax is the vertical scale for both directions.
	AxisMax float64 `json:"axis_max"`
	MaxRx   float64 `json:"max_rx"`
	MaxTx   float64 `json:"max_tx"`

	Window  summary.WindowStats  `json:"window"`
	Session summary.SessionStats `json:"session"`
}

// MaxRate is the highest rate in either direction over the window.
func (v InterfaceView) MaxRate() float64 {
	return max(v.MaxRx, v.MaxTx)
}

// RxSeries returns the receive rates of the retained samples.
func (v InterfaceView) RxSeries() []float64 {
	out := make([]float64, len(v.Samples))
	for i, s := range v.Samples {
		out[i] = s.RxRate
	}
	return out
}

// TxSeries returns the transmit rates of the retained samples.
func (v InterfaceView) TxSeries() []float64 {
	out := make([]float64, len(v.Samples))
	for i, s := range v.Samples {
		out[i] = s.TxRate
	}
	return out
}

// View is the state published after a tick. It shares no mutable memory with
// the Monitor that produced it.
type View struct {
	Time       time.Time                `json:"time"`
	Interfaces map[string]InterfaceView `json:"interfaces"`
}

// Names returns the interface names in the view, sorted.
func (v View) Names() []string {
	names := make([]string, 0, len(v.Interfaces))
	for name := range v.Interfaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named interface.
func (v View) Get(name string) (InterfaceView, bool) {
	iv, ok := v.Interfaces[name]
	return iv, ok
}
