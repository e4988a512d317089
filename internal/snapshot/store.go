// Package snapshot persists the last known state of every watched course.
package snapshot

import (
	"context"
	"errors"
)

const (
	report_store_load  = "store.load"
	report_store_save  = "store.save"
	report_count_saved = "store.records"
)

var (
	ErrStoreRead  = errors.New("snapshot: read failed")
	ErrStoreWrite = errors.New("snapshot: write failed")
)

// Store loads and saves a single keyed snapshot.
//
// Only one writer is expected at a time, callers must not run overlapping checks against the
// same store.
type Store interface {
	// Load returns the stored snapshot. Missing or unreadable state is reported and
	// treated as an empty snapshot, it is never fatal.
	Load(ctx context.Context) Snapshot
	// Save atomically replaces the stored snapshot, a failed save leaves the previous
	// snapshot intact.
	Save(ctx context.Context, s Snapshot) error
}
