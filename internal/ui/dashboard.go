package ui

import (
	"context"
	"fmt"
	"sort"

	termui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/shini4i/netchoo/internal/monitor"
	"github.com/shini4i/netchoo/internal/scheduler"
	"github.com/shini4i/netchoo/internal/stats"
)

// DefaultMaxGraphs caps how many interfaces get a graph panel.
const DefaultMaxGraphs = 4

// DashboardOptions configures a Dashboard.
type DashboardOptions struct {
	DockerReverse bool
	// MaxGraphs is the number of graph panels; the busiest interfaces win.
	MaxGraphs int
	// OnRefresh is called when the user presses "r".
	OnRefresh func()
	// OnZoom is called with true for "+" (shorter window) and false for "-".
	OnZoom func(in bool)
	// OnSpeed is called with true for "f" (shorter interval) and false for "s".
	OnSpeed func(faster bool)
}

// Dashboard is a full-screen terminal view: a table of every interface, a
// pair of sparklines for the busiest ones, and a status line.
type Dashboard struct {
	opts DashboardOptions

	table  *widgets.Table
	status *widgets.Paragraph
	graphs []*widgets.SparklineGroup
	grid   *termui.Grid

	width, height int
	view          *monitor.View
}

// NewDashboard creates the widgets. Nothing is drawn until Run.
func NewDashboard(opts DashboardOptions) *Dashboard {
	if opts.MaxGraphs <= 0 {
		opts.MaxGraphs = DefaultMaxGraphs
	}

	table := widgets.NewTable()
	table.Title = " interfaces "
	table.TextStyle = termui.NewStyle(termui.ColorWhite)
	table.RowSeparator = false
	table.BorderStyle.Fg = termui.ColorCyan
	table.Rows = [][]string{tableHeader()}

	status := widgets.NewParagraph()
	status.Title = " status "
	status.Text = "waiting for first sample"
	status.Border = true

	return &Dashboard{
		opts:   opts,
		table:  table,
		status: status,
		grid:   termui.NewGrid(),
	}
}

// Run takes over the terminal and draws every notification from updates.
// It returns when the user quits, ctx is done or updates is closed.
func (d *Dashboard) Run(ctx context.Context, updates <-chan scheduler.Notification) error {
	if err := termui.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer termui.Close()

	d.resize(termui.TerminalDimensions())
	termui.Render(d.grid)

	events := termui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			if e.ID == "<Resize>" {
				payload := e.Payload.(termui.Resize)
				d.resize(payload.Width, payload.Height)
				termui.Clear()
				termui.Render(d.grid)
				continue
			}
			if d.handleKey(e.ID) {
				return nil
			}
		case n, ok := <-updates:
			if !ok {
				return nil
			}
			d.apply(n)
			termui.Clear()
			termui.Render(d.grid)
		}
	}
}

// handleKey runs the action bound to a key and reports whether to quit.
func (d *Dashboard) handleKey(id string) bool {
	switch id {
	case "q", "<C-c>":
		return true
	case "r":
		if d.opts.OnRefresh != nil {
			d.opts.OnRefresh()
		}
	case "+", "=":
		if d.opts.OnZoom != nil {
			d.opts.OnZoom(true)
		}
	case "-":
		if d.opts.OnZoom != nil {
			d.opts.OnZoom(false)
		}
	case "f":
		if d.opts.OnSpeed != nil {
			d.opts.OnSpeed(true)
		}
	case "s":
		if d.opts.OnSpeed != nil {
			d.opts.OnSpeed(false)
		}
	}
	return false
}

func (d *Dashboard) resize(width, height int) {
	d.width, d.height = width, height
	d.layout()
}

// apply updates the widgets from a notification. A failed tick only changes
// the status line; the last good view stays on screen.
func (d *Dashboard) apply(n scheduler.Notification) {
	if n.Failed() {
		d.status.Text = fmt.Sprintf("[%s](fg:red) tick %d: %v (%d consecutive)",
			n.Time.Format("15:04:05"), n.Seq, n.Err, n.ConsecutiveFailures)
		d.status.BorderStyle.Fg = termui.ColorRed
		return
	}

	d.view = n.View
	d.status.Text = fmt.Sprintf("%s  tick %d  every %s  window %s  %d interfaces  (q quit, r refresh, +/- window, f/s interval)",
		n.Time.Format("15:04:05"), n.Seq, n.Interval, n.Window, len(n.View.Interfaces))
	d.status.BorderStyle.Fg = termui.ColorWhite

	d.table.Rows = [][]string{tableHeader()}
	for _, name := range n.View.Names() {
		d.table.Rows = append(d.table.Rows, d.tableRow(n.View.Interfaces[name]))
	}

	busiest := busiestFirst(*n.View)
	if len(busiest) > d.opts.MaxGraphs {
		busiest = busiest[:d.opts.MaxGraphs]
	}
	d.graphs = d.graphs[:0]
	for _, iv := range busiest {
		d.graphs = append(d.graphs, d.graph(iv))
	}

	d.layout()
}

func tableHeader() []string {
	return []string{"interface", "kind", "down", "up", "p95 down", "p95 up", "axis", "session"}
}

func (d *Dashboard) tableRow(iv monitor.InterfaceView) []string {
	down, up := Flows(iv, d.opts.DockerReverse)
	p95Down, p95Up := iv.Window.Rx.P95, iv.Window.Tx.P95
	if down.Label != "rx" {
		p95Down, p95Up = p95Up, p95Down
	}

	name := iv.Name
	if iv.Stale {
		name += " (stale)"
	}
	return []string{
		name,
		string(iv.Kind),
		stats.FormatRate(down.Rate),
		stats.FormatRate(up.Rate),
		stats.FormatRate(p95Down),
		stats.FormatRate(p95Up),
		stats.FormatRate(iv.AxisMax),
		stats.FormatBytes(iv.Session.RxBytes+iv.Session.TxBytes) + " / " + stats.FormatDuration(iv.Session.Duration),
	}
}

func (d *Dashboard) graph(iv monitor.InterfaceView) *widgets.SparklineGroup {
	down, up := Flows(iv, d.opts.DockerReverse)
	width := d.width - 2

	lines := make([]*widgets.Sparkline, 0, 2)
	for _, f := range []struct {
		flow  Flow
		color termui.Color
	}{
		{down, termui.ColorGreen},
		{up, termui.ColorYellow},
	} {
		sl := widgets.NewSparkline()
		sl.Data = tail(f.flow.Series, width)
		sl.MaxVal = iv.AxisMax
		sl.LineColor = f.color
		sl.TitleStyle.Fg = f.color
		sl.Title = fmt.Sprintf("%s %s (peak %s)", f.flow.Label, stats.FormatRate(f.flow.Rate), stats.FormatRate(f.flow.Peak))
		lines = append(lines, sl)
	}

	group := widgets.NewSparklineGroup(lines...)
	group.Title = fmt.Sprintf(" %s [%s] axis %s ", iv.Name, iv.Kind, stats.FormatRate(iv.AxisMax))
	return group
}

// layout rebuilds the grid: table on top, one row per graph, status last.
func (d *Dashboard) layout() {
	grid := termui.NewGrid()
	grid.SetRect(0, 0, d.width, d.height)

	const statusShare = 0.1
	tableShare := 1 - statusShare
	if len(d.graphs) > 0 {
		tableShare = 0.3
	}

	rows := []interface{}{termui.NewRow(tableShare, termui.NewCol(1.0, d.table))}
	for _, g := range d.graphs {
		share := (1 - tableShare - statusShare) / float64(len(d.graphs))
		rows = append(rows, termui.NewRow(share, termui.NewCol(1.0, g)))
	}
	rows = append(rows, termui.NewRow(statusShare, termui.NewCol(1.0, d.status)))

	grid.Set(rows...)
	d.grid = grid
}

// busiestFirst orders interfaces by window peak, highest first, then by name.
func busiestFirst(v monitor.View) []monitor.InterfaceView {
	out := make([]monitor.InterfaceView, 0, len(v.Interfaces))
	for _, iv := range v.Interfaces {
		out = append(out, iv)
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i].MaxRate(), out[j].MaxRate()
		if pi != pj {
			return pi > pj
		}
		return out[i].Name < out[j].Name
	})
	return out
}
