package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shini4i/netchoo/internal/scale"
	"github.com/shini4i/netchoo/internal/scheduler"
	"github.com/shini4i/netchoo/internal/stats"
)

// DefaultBarWidth is the bar length used when LineLog.BarWidth is unset.
const DefaultBarWidth = 20

// LineLog writes one line per interface per tick, with each direction's
// current rate drawn as a bar scaled to the interface's axis.
type LineLog struct {
	Out           io.Writer
	BarWidth      int
	DockerReverse bool
}

// Write renders a notification.
func (l *LineLog) Write(n scheduler.Notification) error {
	var b strings.Builder

	if n.Failed() {
		fmt.Fprintf(&b, "%s ! %v (%d consecutive)\n", n.Time.Format("15:04:05"), n.Err, n.ConsecutiveFailures)
		_, err := io.WriteString(l.Out, b.String())
		return err
	}

	width := l.BarWidth
	if width <= 0 {
		width = DefaultBarWidth
	}

	for _, name := range n.View.Names() {
		iv := n.View.Interfaces[name]
		down, up := Flows(iv, l.DockerReverse)

		marker := " "
		if iv.Stale {
			marker = "?"
		}
		fmt.Fprintf(&b, "%s %s%-12s ↓ %12s %s  ↑ %12s %s  max %s\n",
			n.Time.Format("15:04:05"), marker, name,
			stats.FormatRate(down.Rate), bar(down.Rate, iv.AxisMax, width),
			stats.FormatRate(up.Rate), bar(up.Rate, iv.AxisMax, width),
			stats.FormatRate(iv.AxisMax))
	}

	_, err := io.WriteString(l.Out, b.String())
	return err
}

// bar draws rate as a fraction of axisMax, in width cells.
func bar(rate, axisMax float64, width int) string {
	filled := int(scale.Normalize(rate, axisMax)*float64(width) + 0.5)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(" ", width-filled) + "]"
}

// Run writes every notification from updates until ctx is done or updates
// is closed.
func (l *LineLog) Run(ctx context.Context, updates <-chan scheduler.Notification) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-updates:
			if !ok {
				return nil
			}
			if err := l.Write(n); err != nil {
				return fmt.Errorf("write line log: %w", err)
			}
		}
	}
}
