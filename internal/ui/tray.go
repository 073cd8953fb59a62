package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"fyne.io/systray"

	"github.com/shini4i/netchoo/internal/counter"
	"github.com/shini4i/netchoo/internal/monitor"
	"github.com/shini4i/netchoo/internal/scheduler"
	"github.com/shini4i/netchoo/internal/stats"
)

// DefaultTrayItems is the number of interface rows in the tray menu.
const DefaultTrayItems = 6

var (
	// ErrTrayAlreadyRunning is returned when attempting to modify callbacks after Run() has been called.
	ErrTrayAlreadyRunning = errors.New("cannot modify callbacks after Tray.Run() is called")
	// ErrTrayRunTwice is returned when Run() is called more than once.
	ErrTrayRunTwice = errors.New("Tray.Run() called twice")
	// ErrTrayMissingCallbacks is returned when Run() is called without all required callbacks set.
	ErrTrayMissingCallbacks = errors.New("all callbacks (OnRefresh, OnQuit) must be set before calling Run()")
)

// Tray shows aggregate throughput as a system tray icon, with one menu row
// per interface.
type Tray struct {
	mu sync.RWMutex

	// State
	dockerReverse bool
	view          *monitor.View
	lastErr       error
	failures      int
	shown         iconState
	levels        [iconBars]int

	// Menu items
	menuStatus  *systray.MenuItem
	menuTotal   *systray.MenuItem
	menuIfaces  []*systray.MenuItem
	menuRefresh *systray.MenuItem
	menuQuit    *systray.MenuItem
	maxItems    int

	// Callbacks - must be set before Run() is called
	onRefresh func()
	onQuit    func()

	// Done channel to signal goroutine termination
	done chan struct{}

	// Lifecycle flags
	running   bool
	closeOnce sync.Once
}

// NewTray creates a tray consumer. maxItems <= 0 means DefaultTrayItems.
func NewTray(dockerReverse bool, maxItems int) *Tray {
	if maxItems <= 0 {
		maxItems = DefaultTrayItems
	}
	return &Tray{
		dockerReverse: dockerReverse,
		maxItems:      maxItems,
		done:          make(chan struct{}),
	}
}

// OnRefresh registers a callback for when Refresh is clicked in tray.
// Must be called before Run(). Returns ErrTrayAlreadyRunning if called after Run().
func (t *Tray) OnRefresh(callback func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return ErrTrayAlreadyRunning
	}
	t.onRefresh = callback
	return nil
}

// OnQuit registers a callback for when Quit is clicked in tray.
// Must be called before Run(). Returns ErrTrayAlreadyRunning if called after Run().
func (t *Tray) OnQuit(callback func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return ErrTrayAlreadyRunning
	}
	t.onQuit = callback
	return nil
}

// Update routes a scheduler notification to SetView or SetError.
func (t *Tray) Update(n scheduler.Notification) {
	if n.Failed() {
		t.SetError(n.Err, n.ConsecutiveFailures)
		return
	}
	t.SetView(n.View)
}

// SetView shows a fresh view and clears any error.
func (t *Tray) SetView(v *monitor.View) {
	t.mu.Lock()
	t.view = v
	t.lastErr = nil
	t.failures = 0
	t.mu.Unlock()
	t.updateIcon()
	t.updateMenu()
}

// SetError marks the source as failing. The last view stays in the menu.
func (t *Tray) SetError(err error, failures int) {
	t.mu.Lock()
	t.lastErr = err
	t.failures = failures
	t.mu.Unlock()
	t.updateIcon()
	t.updateMenu()
}

// Run starts the system tray icon and blocks until the tray is closed. Call
// it from the main goroutine. All callbacks (OnRefresh, OnQuit)
// must be registered before calling Run().
// Returns ErrTrayMissingCallbacks if any callback is not set.
// Returns ErrTrayRunTwice if called more than once.
func (t *Tray) Run() error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return ErrTrayRunTwice
	}

	if t.onRefresh == nil || t.onQuit == nil {
		t.mu.Unlock()
		return ErrTrayMissingCallbacks
	}

	t.running = true
	t.mu.Unlock()

	systray.Run(t.onReady, t.onExit)
	return nil
}

// Quit closes the system tray icon and terminates the click handler goroutine.
// Safe to call multiple times.
func (t *Tray) Quit() {
	t.closeOnce.Do(func() {
		close(t.done)
		systray.Quit()
	})
}

// onReady is called when the tray is ready to be configured.
func (t *Tray) onReady() {
	systray.SetIcon(iconIdlePNG)
	t.mu.Lock()
	t.shown = iconIdle
	t.mu.Unlock()
	systray.SetTitle("netchoo")
	systray.SetTooltip("netchoo - waiting for first sample")

	t.menuStatus = systray.AddMenuItem("Waiting for first sample", "Sampler status")
	t.menuStatus.Disable()
	t.menuTotal = systray.AddMenuItem("", "Total throughput")
	t.menuTotal.Disable()
	t.menuTotal.Hide()

	systray.AddSeparator()

	items := make([]*systray.MenuItem, t.maxItems)
	for i := range items {
		items[i] = systray.AddMenuItem("", "Interface throughput")
		items[i].Disable()
		items[i].Hide()
	}

	systray.AddSeparator()

	refresh := systray.AddMenuItem("Refresh now", "Take a sample immediately")
	quit := systray.AddMenuItem("Quit", "Quit netchoo")

	t.mu.Lock()
	t.menuIfaces = items
	t.menuRefresh = refresh
	t.menuQuit = quit
	t.mu.Unlock()

	go t.handleMenuClicks()

	t.updateIcon()
	t.updateMenu()
	slog.Info("System tray initialized")
}

// onExit is called when the tray is being closed.
func (t *Tray) onExit() {
	slog.Info("System tray closed")
}

// handleMenuClicks processes menu item clicks.
func (t *Tray) handleMenuClicks() {
	for {
		select {
		case <-t.done:
			return
		case _, ok := <-t.menuRefresh.ClickedCh:
			if !ok {
				return
			}
			if t.onRefresh != nil {
				t.onRefresh()
			}
		case _, ok := <-t.menuQuit.ClickedCh:
			if !ok {
				return
			}
			if t.onQuit != nil {
				t.onQuit()
			}
		}
	}
}

// iconState is the kind of icon currently shown.
type iconState int

const (
	iconUnset iconState = iota
	iconIdle
	iconError
	iconGraph
)

// updateIcon redraws the icon from the busiest interface's recent samples.
func (t *Tray) updateIcon() {
	t.mu.Lock()
	if t.menuStatus == nil {
		t.mu.Unlock()
		return // Not initialized yet
	}
	icon := t.nextIcon()
	view, lastErr := t.view, t.lastErr
	t.mu.Unlock()

	if icon != nil {
		systray.SetIcon(icon)
	}
	systray.SetTooltip(trayTooltip(view, lastErr))
}

// nextIcon returns the icon to show, or nil when the one already shown is
// still right. The caller must hold t.mu.
func (t *Tray) nextIcon() []byte {
	state, levels := iconIdle, [iconBars]int{}
	switch {
	case t.lastErr != nil:
		state = iconError
	case t.view != nil && len(t.view.Interfaces) > 0:
		state = iconGraph
		busiest := busiestFirst(*t.view)[0]
		series := make([]float64, len(busiest.Samples))
		for i, sample := range busiest.Samples {
			series[i] = sample.Peak()
		}
		levels = iconLevels(series, busiest.AxisMax)
	}

	if state == t.shown && levels == t.levels {
		return nil
	}
	t.shown, t.levels = state, levels

	switch state {
	case iconError:
		return iconErrorPNG
	case iconGraph:
		return generateGraphIcon(levels, colorActive)
	default:
		return iconIdlePNG
	}
}

// updateMenu updates the menu items based on current state.
func (t *Tray) updateMenu() {
	t.mu.RLock()
	if t.menuStatus == nil {
		t.mu.RUnlock()
		return // Not initialized yet
	}
	view, lastErr, failures := t.view, t.lastErr, t.failures
	items := t.menuIfaces
	t.mu.RUnlock()

	if lastErr != nil {
		t.menuStatus.SetTitle(fmt.Sprintf("Source failing (%d): %v", failures, lastErr))
	} else if view != nil {
		t.menuStatus.SetTitle(fmt.Sprintf("Updated %s", view.Time.Format("15:04:05")))
	}

	if view == nil {
		return
	}

	t.menuTotal.SetTitle(totalLine(*view, t.dockerReverse))
	t.menuTotal.Show()

	lines := interfaceLines(*view, t.dockerReverse, len(items))
	for i, item := range items {
		if i < len(lines) {
			item.SetTitle(lines[i])
			item.Show()
		} else {
			item.Hide()
		}
	}
}

// totalLine sums the latest rates of every non-loopback interface.
func totalLine(v monitor.View, reverse bool) string {
	var down, up float64
	for _, iv := range v.Interfaces {
		if iv.Kind == counter.KindLoopback {
			continue
		}
		d, u := Flows(iv, reverse)
		down += d.Rate
		up += u.Rate
	}
	return fmt.Sprintf("Total  ↓ %s  ↑ %s", stats.FormatRate(down), stats.FormatRate(up))
}

// interfaceLines renders up to limit interfaces, busiest first.
func interfaceLines(v monitor.View, reverse bool, limit int) []string {
	busiest := busiestFirst(v)
	if len(busiest) > limit {
		busiest = busiest[:limit]
	}
	lines := make([]string, 0, len(busiest))
	for _, iv := range busiest {
		down, up := Flows(iv, reverse)
		line := fmt.Sprintf("%s  ↓ %s  ↑ %s", iv.Name, stats.FormatRate(down.Rate), stats.FormatRate(up.Rate))
		if iv.Stale {
			line += "  (stale)"
		}
		lines = append(lines, line)
	}
	return lines
}

func trayTooltip(v *monitor.View, lastErr error) string {
	switch {
	case lastErr != nil:
		return "netchoo - " + lastErr.Error()
	case v == nil:
		return "netchoo - waiting for first sample"
	}
	names := v.Names()
	if len(names) == 0 {
		return "netchoo - no interfaces"
	}
	return "netchoo - " + strings.Join(names, ", ")
}
