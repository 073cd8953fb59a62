package counter

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultSysfsNet is the base path for network interface statistics.
const DefaultSysfsNet = "/sys/class/net"

// SysfsSource reads counters from /sys/class/net/<iface>/statistics.
type SysfsSource struct {
	root string
	now  func() time.Time
}

// NewSysfsSource returns a source rooted at root.
// An empty root means DefaultSysfsNet.
func NewSysfsSource(root string) *SysfsSource {
	if root == "" {
		root = DefaultSysfsNet
	}
	return &SysfsSource{root: filepath.Clean(root), now: time.Now}
}

// Name implements Source.
func (s *SysfsSource) Name() string { return "sysfs" }

// Snapshot implements Source. An interface whose statistics cannot be read
// (it vanished between listing and reading, or a file is garbled) is
// reported with Malformed set.
func (s *SysfsSource) Snapshot(ctx context.Context) (Snapshot, error) {
	return readGuarded(ctx, s.Name(), func() (Snapshot, error) {
		entries, err := os.ReadDir(s.root)
		if err != nil {
			return nil, unavailable(s.Name(), err)
		}

		ts := s.now()
		snap := make(Snapshot, len(entries))
		for i, entry := range entries {
			name := entry.Name()
			c, err := s.readInterface(name)
			if err != nil {
				slog.Warn("Skipping counter record", "source", s.Name(), "interface", name,
					"error", &RecordError{Line: i + 1, Interface: name, Reason: err.Error()})
				snap[name] = Counters{Interface: name, Timestamp: ts, Malformed: true}
				continue
			}
			c.Timestamp = ts
			snap[name] = c
		}
		return snap, nil
	})
}

func (s *SysfsSource) readInterface(name string) (Counters, error) {
	statsDir := filepath.Join(s.root, name, "statistics")

	var values [4]uint64
	for i, file := range []string{"rx_bytes", "tx_bytes", "rx_packets", "tx_packets"} {
		v, err := s.readStatFile(filepath.Join(statsDir, file))
		if err != nil {
			return Counters{}, err
		}
		values[i] = v
	}

	return Counters{
		Interface:  name,
		RxBytes:    values[0],
		TxBytes:    values[1],
		RxPackets:  values[2],
		TxPackets:  values[3],
		HasPackets: true,
	}, nil
}

// readStatFile reads a single stat file and parses it as uint64.
// The path must stay inside the source root.
func (s *SysfsSource) readStatFile(path string) (uint64, error) {
	cleanPath, err := s.within(path)
	if err != nil {
		return 0, err
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 -- path validated above
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
}

// OperState returns the operstate of an interface ("up", "down", "unknown", ...).
func (s *SysfsSource) OperState(name string) (string, error) {
	cleanPath, err := s.within(filepath.Join(s.root, name, "operstate"))
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(cleanPath) // #nosec G304 -- path validated above
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *SysfsSource) within(path string) (string, error) {
	cleanPath := filepath.Clean(path)
	if !strings.HasPrefix(cleanPath, s.root+string(filepath.Separator)) {
		return "", errors.New("invalid stats path: outside sysfs network directory")
	}
	return cleanPath, nil
}
