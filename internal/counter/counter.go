// Package counter reads cumulative per-interface traffic counters.
//
// A Source returns a Snapshot: every interface that currently reports
// counters, including loopback and virtual devices. Deciding which of them
// are interesting is left to Filter.
package counter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrSourceUnavailable is returned when the counter feed cannot be read at all.
	ErrSourceUnavailable = errors.New("counter source unavailable")
	// ErrMalformedRecord marks a single interface record that could not be parsed.
	ErrMalformedRecord = errors.New("malformed counter record")
)

// Counters is one interface's cumulative counters at a point in time.
type Counters struct {
	Interface string

	RxBytes uint64
	TxBytes uint64

	// Packet counters are only meaningful when HasPackets is set.
	RxPackets  uint64
	TxPackets  uint64
	HasPackets bool

	// Timestamp carries a monotonic clock reading when taken from time.Now.
	Timestamp time.Time

	// Malformed marks an interface that is present in the feed but whose
	// record could not be parsed this time. Its counter fields are zero and
	// must not be used.
	Malformed bool
}

// Snapshot maps interface name to its counters.
type Snapshot map[string]Counters

// Names returns the interface names in the snapshot, sorted.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Source produces counter snapshots.
type Source interface {
	// Name identifies the backend in logs ("procfs", "sysfs", ...).
	Name() string
	// Snapshot reads the counters of every interface currently known to the feed.
	Snapshot(ctx context.Context) (Snapshot, error)
}

// SourceError wraps a failure to read the feed. It matches both
// ErrSourceUnavailable and the underlying cause with errors.Is.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrSourceUnavailable, e.Source, e.Err)
}

// Unwrap exposes the sentinel and the cause.
func (e *SourceError) Unwrap() []error {
	return []error{ErrSourceUnavailable, e.Err}
}

func unavailable(source string, err error) error {
	return &SourceError{Source: source, Err: err}
}

// RecordError describes one record that was skipped.
type RecordError struct {
	Line      int
	Interface string
	Reason    string
}

func (e *RecordError) Error() string {
	if e.Interface != "" {
		return fmt.Sprintf("line %d (%s): %s", e.Line, e.Interface, e.Reason)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Unwrap returns ErrMalformedRecord.
func (e *RecordError) Unwrap() error {
	return ErrMalformedRecord
}

// readGuarded runs a blocking read and gives up when ctx is done.
// The read goroutine is left to finish on its own; its result is dropped.
func readGuarded(ctx context.Context, source string, read func() (Snapshot, error)) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(source, err)
	}

	type result struct {
		snap Snapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		snap, err := read()
		done <- result{snap: snap, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, unavailable(source, ctx.Err())
	case r := <-done:
		return r.snap, r.err
	}
}
