// Package ui renders monitor views: a terminal dashboard, a system tray icon
// and a plain line log. Every renderer is fed scheduler notifications and
// never touches monitor state directly.
package ui

import (
	"golang.org/x/term"

	"github.com/shini4i/netchoo/internal/config"
	"github.com/shini4i/netchoo/internal/monitor"
)

// DetectRenderer resolves "auto" (or empty) to the dashboard when fd is a
// terminal and to the line log otherwise.
func DetectRenderer(name string, fd int) string {
	if name != "" && name != config.RendererAuto {
		return name
	}
	if term.IsTerminal(fd) {
		return config.RendererTerm
	}
	return config.RendererLog
}

// TerminalWidth returns the width of the terminal on fd, or fallback when fd
// is not a terminal.
func TerminalWidth(fd int, fallback int) int {
	if !term.IsTerminal(fd) {
		return fallback
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

// Flow is one direction of an interface as presented to the user.
type Flow struct {
	Label  string
	Rate   float64
	Peak   float64
	Series []float64
}

// Flows splits an interface into its downstream and upstream flows.
//
// Normally down is receive and up is transmit. With reverse set, docker
// bridges are shown from the containers' side: what the host transmits into
// the bridge is what the containers download.
func Flows(iv monitor.InterfaceView, reverse bool) (down, up Flow) {
	rx := Flow{Label: "rx", Rate: iv.Latest.RxRate, Peak: iv.MaxRx, Series: iv.RxSeries()}
	tx := Flow{Label: "tx", Rate: iv.Latest.TxRate, Peak: iv.MaxTx, Series: iv.TxSeries()}

	if reverse && iv.DockerBridge {
		rx.Label, tx.Label = "to host", "to containers"
		return tx, rx
	}
	return rx, tx
}

// tail returns at most n trailing values of s.
func tail(s []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}
