package counter

import (
	"log/slog"
	"path"
)

// Filter selects which interfaces of a snapshot are monitored.
type Filter struct {
	// IncludeLoopback keeps lo and friends.
	IncludeLoopback bool
	// OnlyActive keeps interfaces that are up or have moved any traffic.
	OnlyActive bool
	// Exclude holds glob patterns (path.Match syntax) of interfaces to drop.
	Exclude []string
	// OperState looks up an interface's operstate. Nil, or an error from it,
	// counts as "unknown" and the interface is kept.
	OperState func(name string) (string, error)
}

// Apply returns a new snapshot holding only the selected interfaces.
func (f Filter) Apply(snap Snapshot) Snapshot {
	out := make(Snapshot, len(snap))
	for name, c := range snap {
		if f.keep(c) {
			out[name] = c
		}
	}
	return out
}

func (f Filter) keep(c Counters) bool {
	if !f.IncludeLoopback && Classify(c.Interface) == KindLoopback {
		return false
	}
	for _, pattern := range f.Exclude {
		matched, err := path.Match(pattern, c.Interface)
		if err != nil {
			slog.Debug("Ignoring bad exclude pattern", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return false
		}
	}
	if f.OnlyActive && !c.Malformed {
		return f.active(c)
	}
	return true
}

func (f Filter) active(c Counters) bool {
	if c.RxBytes > 0 || c.TxBytes > 0 {
		return true
	}
	if f.OperState == nil {
		return true
	}
	state, err := f.OperState(c.Interface)
	if err != nil {
		return true
	}
	return state == "up"
}

// ValidatePatterns reports the first malformed exclude pattern.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := path.Match(p, ""); err != nil {
			return err
		}
	}
	return nil
}
