package counter

import "context"

// FilteredSource applies a Filter to every snapshot of an underlying source.
type FilteredSource struct {
	Source Source
	Filter Filter
}

// Name implements Source.
func (f FilteredSource) Name() string { return f.Source.Name() }

// Snapshot implements Source.
func (f FilteredSource) Snapshot(ctx context.Context) (Snapshot, error) {
	snap, err := f.Source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return f.Filter.Apply(snap), nil
}

// Close closes the underlying source when it holds resources.
func (f FilteredSource) Close() error {
	if c, ok := f.Source.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
