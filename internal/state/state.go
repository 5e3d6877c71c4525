// Package state persists the per-site alert flags between passes.
package state

import "context"

// State maps a site name to whether its alert is currently active (already
// notified). A missing entry reads as false.
type State map[string]bool

// Active reports the flag for name.
func (s State) Active(name string) bool {
	return s[name]
}

// Clone returns an independent copy.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Store loads and saves a State.
//
// Load never returns a nil State: when the backing data is missing,
// unreadable or corrupt it returns an empty State together with the error,
// so callers can log the problem and carry on.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
	Close() error
}
