// Package watch defines the change-notification source the engine consumes.
// The engine depends only on the ChangeSource interface; the concrete
// implementation here polls the tree, but any event source (or a test
// driver) can stand in.
package watch

import "time"

// FSEvent is a single detected filesystem change. Action is an opaque,
// source-specific string; the engine does not interpret it.
type FSEvent struct {
	Path      string
	Action    string
	Timestamp time.Time
	Mask      int
}

// ChangeSource pushes change notifications. Implementations invoke the
// callback for each detected change and additionally queue events for
// pull-style consumption via NextEvent.
type ChangeSource interface {
	// SetCallback registers fn to be invoked with the changed path on each
	// detected change.
	SetCallback(fn func(path string))
	// AddWatch starts watching path (recursively for directories).
	AddWatch(path string) error
	// RemoveWatch stops watching path.
	RemoveWatch(path string) error
	// NextEvent pops the oldest queued event.
	NextEvent() (FSEvent, bool)
	// Empty reports whether no events are queued.
	Empty() bool
	// Stop shuts the source down.
	Stop()
}
