// Package watcher reports debounced source changes so smrt can rescan.
package watcher

import "context"

// SourceWatcher monitors source files and reports changes in debounced batches.
type SourceWatcher interface {
	// Start begins watching, calling callback with each batch of changed
	// files, sorted. Callbacks run one at a time on the watch goroutine.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the watcher and waits for the watch goroutine to exit.
	Stop() error
}

// Filter decides which paths are watched. Dir is consulted for directories
// (false skips the whole subtree) and File for changed files.
type Filter struct {
	Dir  func(path string) bool
	File func(path string) bool
}
