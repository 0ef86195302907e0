package watch

import "context"

// Prober fetches the current observable state of one resource. The engine
// bounds ctx with its probe timeout; implementations must not block past it.
//
// extra carries the record's cached derived identifiers; the returned extra
// replaces it when non-empty, letting probers resolve expensive lookups once.
type Prober interface {
	Probe(ctx context.Context, resourceKey, extra string) (Observation, string, error)
}

// Notifier delivers one event to the watch's sink channel. Delivery is
// at-most-once from the engine's perspective: errors are surfaced to the
// observability sink and never retried.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// SnapshotStore persists the full watch set. Load returns records in
// insertion order; a missing snapshot is an empty set, undecodable data is
// ErrCorruptSnapshot.
type SnapshotStore interface {
	Load(ctx context.Context) ([]Watch, error)
	Save(ctx context.Context, watches []Watch) error
	Close() error
}
