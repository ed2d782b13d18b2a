// Package fs presents the remote item store as a path-addressed
// filesystem with a persistent current directory.
//
// A Session bundles the item cache, the current directory and the store it
// is persisted to. Every operation takes the session explicitly; nothing is
// global.
package fs

import (
	"context"
	"fmt"

	"github.com/marmos91/dittocloud/internal/logger"
	"github.com/marmos91/dittocloud/pkg/cache"
	"github.com/marmos91/dittocloud/pkg/remote"
	"github.com/marmos91/dittocloud/pkg/state"
)

// NoID is returned by dry-run folder creation in place of a real ID.
const NoID int64 = -1

// Session is the client-side view of one user's remote filesystem.
type Session struct {
	cache *cache.Cache
	store state.Store
	cwd   state.State
}

// NewSession loads the current directory from store and checks it still
// resolves. A stored directory that vanished remotely (or was moved) is
// replaced by the root, with a warning.
func NewSession(ctx context.Context, c *cache.Cache, store state.Store) (*Session, error) {
	s := &Session{cache: c, store: store, cwd: state.Default()}

	saved, ok, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load current directory: %w", err)
	}
	if !ok || saved.ID == cache.RootID {
		return s, nil
	}

	item, err := c.Get(ctx, saved.ID)
	switch {
	case remote.IsNotFound(err):
		logger.Warn("Saved directory %s (#%d) no longer exists, starting at /", saved.Path, saved.ID)
		return s, nil
	case err != nil:
		return nil, err
	case !item.IsFolder() || item.InRecycleBin:
		logger.Warn("Saved directory %s (#%d) is no longer usable, starting at /", saved.Path, saved.ID)
		return s, nil
	}

	if item.AbsolutePath != saved.Path {
		logger.Debug("Saved directory #%d moved from %s to %s", saved.ID, saved.Path, item.AbsolutePath)
	}
	s.cwd = state.State{ID: item.ID, Path: item.AbsolutePath}
	return s, nil
}

// Cache returns the session's item cache.
func (s *Session) Cache() *cache.Cache {
	return s.cache
}

// Pwd returns the current directory.
func (s *Session) Pwd() state.State {
	return s.cwd
}

// Cd changes the current directory and persists it.
func (s *Session) Cd(ctx context.Context, ref PathRef) (state.State, error) {
	item, err := s.Resolve(ctx, ref)
	if err != nil {
		return s.cwd, err
	}
	if !item.IsFolder() {
		return s.cwd, &remote.Error{Code: remote.ErrNotAFolder, Message: "not a folder", Path: item.AbsolutePath}
	}

	next := state.State{ID: item.ID, Path: item.AbsolutePath}
	if err := s.store.Save(ctx, next); err != nil {
		return s.cwd, fmt.Errorf("failed to save current directory: %w", err)
	}
	s.cwd = next
	return s.cwd, nil
}

// Resolve returns the item designated by ref.
func (s *Session) Resolve(ctx context.Context, ref PathRef) (*cache.Item, error) {
	switch ref.Kind() {
	case RefID:
		return s.cache.Get(ctx, ref.ID())
	case RefPath:
		return s.resolvePath(ctx, ref.Path())
	default:
		return s.cache.Get(ctx, s.cwd.ID)
	}
}

func (s *Session) resolvePath(ctx context.Context, p string) (*cache.Item, error) {
	abs, err := Normalize(s.cwd.Path, p)
	if err != nil {
		return nil, err
	}
	if item, ok := s.cache.Lookup(abs); ok {
		return item, nil
	}

	start := cache.Root()
	segments := Split(abs)
	if isRelativeDescent(p) && s.cwd.ID != cache.RootID {
		cwd, err := s.cache.Get(ctx, s.cwd.ID)
		if err != nil {
			return nil, err
		}
		start = cwd
		segments = Split(mustNormalize("/", p))
	}
	return s.walkDown(ctx, start, segments)
}

// walkDown matches segments one listing at a time, starting below from.
func (s *Session) walkDown(ctx context.Context, from *cache.Item, segments []string) (*cache.Item, error) {
	cur := from
	for _, seg := range segments {
		if !cur.IsFolder() {
			return nil, &remote.Error{Code: remote.ErrNotAFolder, Message: "not a folder", Path: cur.AbsolutePath}
		}
		children, err := s.cache.Children(ctx, cur.ID)
		if err != nil {
			return nil, err
		}
		next := childNamed(children, seg)
		if next == nil {
			return nil, remote.NotFound(seg, cur.AbsolutePath)
		}
		cur = next
	}
	return cur, nil
}

// Exists reports whether ref resolves. Errors other than NotFound and
// NotAFolder propagate.
func (s *Session) Exists(ctx context.Context, ref PathRef) (bool, error) {
	_, err := s.Resolve(ctx, ref)
	switch {
	case err == nil:
		return true, nil
	case remote.IsNotFound(err), remote.IsNotAFolder(err):
		return false, nil
	default:
		return false, err
	}
}

// IsFolder reports whether ref resolves to a folder-category item.
func (s *Session) IsFolder(ctx context.Context, ref PathRef) (bool, error) {
	item, err := s.Resolve(ctx, ref)
	if err != nil {
		return false, err
	}
	return item.IsFolder(), nil
}

// Children lists the folder designated by ref.
func (s *Session) Children(ctx context.Context, ref PathRef) ([]*cache.Item, error) {
	item, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !item.IsFolder() {
		return nil, &remote.Error{Code: remote.ErrNotAFolder, Message: "not a folder", Path: item.AbsolutePath}
	}
	return s.cache.Children(ctx, item.ID)
}

// Parent returns the folder containing ref. The root is its own parent.
func (s *Session) Parent(ctx context.Context, ref PathRef) (*cache.Item, error) {
	item, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if item.IsRoot() {
		return item, nil
	}
	return s.cache.Get(ctx, item.ParentID)
}

// Devices lists the top-level devices.
func (s *Session) Devices(ctx context.Context) ([]*cache.Item, error) {
	return s.cache.Children(ctx, cache.RootID)
}

func childNamed(children []*cache.Item, name string) *cache.Item {
	for _, child := range children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// mustNormalize is for inputs already known not to climb above the root.
func mustNormalize(cwd, p string) string {
	abs, err := Normalize(cwd, p)
	if err != nil {
		panic(err)
	}
	return abs
}
