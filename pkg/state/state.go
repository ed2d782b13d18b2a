// Package state persists the Current Directory State between invocations.
//
// The state is tiny (an item ID and its absolute path) and written after
// every successful cd. Backends live in sub-packages: file (a YAML
// document), badger (an embedded key-value store) and memory (tests).
package state

import (
	"context"
	"fmt"
)

// State is the current working directory of a session.
type State struct {
	ID   int64  `yaml:"id" json:"id"`
	Path string `yaml:"path" json:"path"`
}

// Default is the state of a fresh session: the root.
func Default() State {
	return State{ID: 0, Path: "/"}
}

// Validate rejects states that cannot have been produced by a cd.
func (s State) Validate() error {
	if s.ID < 0 {
		return fmt.Errorf("invalid state: negative id %d", s.ID)
	}
	if len(s.Path) == 0 || s.Path[0] != '/' {
		return fmt.Errorf("invalid state: path %q is not absolute", s.Path)
	}
	if s.ID == 0 && s.Path != "/" {
		return fmt.Errorf("invalid state: root id with path %q", s.Path)
	}
	return nil
}

// Store loads and saves the state.
//
// Load reports found=false (and Default()) when nothing was saved yet.
// Implementations must not return a state that fails Validate.
type Store interface {
	Load(ctx context.Context) (st State, found bool, err error)
	Save(ctx context.Context, st State) error
	Close() error
}
