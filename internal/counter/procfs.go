package counter

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultProcNetDev is the kernel's per-interface counter table.
const DefaultProcNetDev = "/proc/net/dev"

// Field positions after the interface name in /proc/net/dev.
const (
	fieldRxBytes   = 0
	fieldRxPackets = 1
	fieldTxBytes   = 8
	fieldTxPackets = 9

	minProcFields = fieldTxPackets + 1
)

// ProcNetDevSource reads counters from a /proc/net/dev formatted file.
type ProcNetDevSource struct {
	path string
	now  func() time.Time
}

// NewProcNetDevSource returns a source for the given path.
// An empty path means DefaultProcNetDev.
func NewProcNetDevSource(path string) *ProcNetDevSource {
	if path == "" {
		path = DefaultProcNetDev
	}
	return &ProcNetDevSource{path: path, now: time.Now}
}

// Name implements Source.
func (s *ProcNetDevSource) Name() string { return "procfs" }

// Snapshot implements Source. Malformed lines are logged and skipped.
func (s *ProcNetDevSource) Snapshot(ctx context.Context) (Snapshot, error) {
	return readGuarded(ctx, s.Name(), func() (Snapshot, error) {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, unavailable(s.Name(), err)
		}

		snap, skipped, err := ParseProcNetDev(bytes.NewReader(data), s.now())
		if err != nil {
			return nil, unavailable(s.Name(), err)
		}
		for _, rerr := range skipped {
			slog.Warn("Skipping counter record", "source", s.Name(), "path", s.path, "error", rerr)
		}
		return snap, nil
	})
}

// ParseProcNetDev parses a /proc/net/dev style table.
//
// Header lines (any line containing '|') and blank lines are ignored. Each
// remaining line is "name: n0 n1 ..." or, without a colon, "name n0 n1 ...".
// Lines that cannot be parsed are returned as *RecordError values in skipped
// and do not affect other interfaces; when the interface name is known it is
// kept in snap with Malformed set. err is only set for read failures.
func ParseProcNetDev(r io.Reader, ts time.Time) (snap Snapshot, skipped []error, err error) {
	snap = make(Snapshot)
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.Contains(line, "|") {
			continue
		}

		c, rerr := parseProcLine(line, lineNo)
		if rerr != nil {
			skipped = append(skipped, rerr)
			if _, seen := snap[rerr.Interface]; rerr.Interface != "" && !seen {
				snap[rerr.Interface] = Counters{Interface: rerr.Interface, Timestamp: ts, Malformed: true}
			}
			continue
		}
		if prev, dup := snap[c.Interface]; dup && !prev.Malformed {
			skipped = append(skipped, &RecordError{Line: lineNo, Interface: c.Interface, Reason: "duplicate interface"})
			continue
		}
		c.Timestamp = ts
		snap[c.Interface] = c
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("scan counter table: %w", err)
	}

	return snap, skipped, nil
}

func parseProcLine(line string, lineNo int) (Counters, *RecordError) {
	var name, rest string
	if before, after, found := strings.Cut(line, ":"); found {
		name, rest = strings.TrimSpace(before), after
	} else {
		fields := strings.Fields(line)
		name = fields[0]
		rest = strings.Join(fields[1:], " ")
	}
	if name == "" {
		return Counters{}, &RecordError{Line: lineNo, Reason: "missing interface name"}
	}

	fields := strings.Fields(rest)
	if len(fields) < minProcFields {
		return Counters{}, &RecordError{
			Line:      lineNo,
			Interface: name,
			Reason:    fmt.Sprintf("expected at least %d fields, got %d", minProcFields, len(fields)),
		}
	}

	values := make([]uint64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return Counters{}, &RecordError{
				Line:      lineNo,
				Interface: name,
				Reason:    fmt.Sprintf("field %d: %q is not a counter", i, f),
			}
		}
		values[i] = v
	}

	return Counters{
		Interface:  name,
		RxBytes:    values[fieldRxBytes],
		RxPackets:  values[fieldRxPackets],
		TxBytes:    values[fieldTxBytes],
		TxPackets:  values[fieldTxPackets],
		HasPackets: true,
	}, nil
}
