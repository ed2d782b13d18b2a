package fs

import (
	"context"
	"strings"

	"github.com/marmos91/dittocloud/internal/logger"
	"github.com/marmos91/dittocloud/pkg/cache"
	"github.com/marmos91/dittocloud/pkg/checksum"
	"github.com/marmos91/dittocloud/pkg/remote"
)

// ============================================================================
// Folder creation
// ============================================================================

// Mkdir creates a folder named name under parentID and returns its ID.
//
// An existing folder of that name is returned as is. In dry-run mode nothing
// is created and NoID is returned for a folder that would be. Devices
// cannot be created, so the root is never a valid parent.
func (s *Session) Mkdir(ctx context.Context, name string, parentID int64, dryRun bool) (int64, error) {
	if err := validName(name); err != nil {
		return NoID, err
	}
	if parentID == NoID {
		return NoID, remote.NewError(remote.ErrInvalidArgument, "cannot create %s: parent folder does not exist", name)
	}
	if parentID == cache.RootID {
		return NoID, remote.NewError(remote.ErrInvalidArgument, "cannot create %s: devices cannot be created", name)
	}

	parent, err := s.cache.Get(ctx, parentID)
	if err != nil {
		return NoID, err
	}
	if !parent.IsFolder() {
		return NoID, &remote.Error{Code: remote.ErrNotAFolder, Message: "not a folder", Path: parent.AbsolutePath}
	}

	children, err := s.cache.Children(ctx, parentID)
	if err != nil {
		return NoID, err
	}
	if existing := childNamed(children, name); existing != nil {
		if !existing.IsFolder() {
			return NoID, &remote.Error{Code: remote.ErrTargetExists, Message: "a file with that name exists", Path: existing.AbsolutePath}
		}
		logger.Debug("%s already exists", existing.AbsolutePath)
		return existing.ID, nil
	}

	target := Join(parent.AbsolutePath, name)
	if dryRun {
		logger.Info("Would create %s", target)
		return NoID, nil
	}

	id, err := s.cache.Service().CreateItem(ctx, name, parentID, 0, checksum.Folder)
	if err != nil {
		return NoID, remote.AsServiceError("create folder", err)
	}
	s.cache.InvalidateListing(parentID)
	logger.Debug("Created %s (#%d)", target, id)
	return id, nil
}

// Mkpath creates every missing folder along p, like mkdir -p, and returns
// the ID of the last one. Existing non-folders along the way are an error.
// In dry-run mode NoID is returned as soon as one folder would be created.
func (s *Session) Mkpath(ctx context.Context, p string, dryRun bool) (int64, error) {
	abs, err := Normalize(s.cwd.Path, p)
	if err != nil {
		return NoID, err
	}
	if item, ok := s.cache.Lookup(abs); ok && item.IsFolder() {
		return item.ID, nil
	}

	cur := cache.Root()
	for _, seg := range Split(abs) {
		children, err := s.cache.Children(ctx, cur.ID)
		if err != nil {
			return NoID, err
		}
		if next := childNamed(children, seg); next != nil {
			if !next.IsFolder() {
				return NoID, &remote.Error{Code: remote.ErrNotAFolder, Message: "not a folder", Path: next.AbsolutePath}
			}
			cur = next
			continue
		}

		id, err := s.Mkdir(ctx, seg, cur.ID, dryRun)
		if err != nil {
			return NoID, err
		}
		if id == NoID {
			return NoID, nil
		}
		if cur, err = s.cache.Get(ctx, id); err != nil {
			return NoID, err
		}
	}
	return cur.ID, nil
}

// ============================================================================
// Move and delete
// ============================================================================

// Mv moves and/or renames source to target and returns the item's ID.
//
// When target is an existing folder the item moves into it keeping its
// name. When target does not exist its parent folders are created and the
// item takes the target's basename. The service renames and moves in
// separate calls, so the order is chosen to never collide with a sibling
// in the intermediate state.
func (s *Session) Mv(ctx context.Context, source, target string) (int64, error) {
	srcPath, err := Normalize(s.cwd.Path, source)
	if err != nil {
		return NoID, err
	}
	dstPath, err := Normalize(s.cwd.Path, target)
	if err != nil {
		return NoID, err
	}
	if srcPath == dstPath {
		return NoID, &remote.Error{Code: remote.ErrInvalidArgument, Message: "source and target are the same", Path: srcPath}
	}

	src, err := s.resolvePath(ctx, srcPath)
	if err != nil {
		return NoID, err
	}
	if src.IsRoot() || src.Category == remote.CategoryDevice || src.Category == remote.CategoryRecycleBin {
		return NoID, &remote.Error{Code: remote.ErrInvalidArgument, Message: "cannot move " + src.Category.String(), Path: srcPath}
	}
	if strings.HasPrefix(dstPath, srcPath+"/") {
		return NoID, &remote.Error{Code: remote.ErrInvalidArgument, Message: "cannot move a folder below itself", Path: dstPath}
	}

	var destFolder *cache.Item
	newName := src.Name

	dst, err := s.resolvePath(ctx, dstPath)
	switch {
	case err == nil && dst.IsFolder():
		destFolder = dst
	case err == nil:
		return NoID, &remote.Error{Code: remote.ErrTargetExists, Message: "target exists", Path: dstPath}
	case remote.IsNotFound(err):
		parentID, err := s.Mkpath(ctx, Dir(dstPath), false)
		if err != nil {
			return NoID, err
		}
		if destFolder, err = s.cache.Get(ctx, parentID); err != nil {
			return NoID, err
		}
		newName = Base(dstPath)
	default:
		return NoID, err
	}
	if destFolder.IsRoot() {
		return NoID, &remote.Error{Code: remote.ErrInvalidArgument, Message: "only devices live at the root", Path: dstPath}
	}

	destChildren, err := s.cache.Children(ctx, destFolder.ID)
	if err != nil {
		return NoID, err
	}
	if clash := childNamed(destChildren, newName); clash != nil {
		if clash.ID == src.ID {
			return NoID, &remote.Error{Code: remote.ErrInvalidArgument, Message: "already there", Path: clash.AbsolutePath}
		}
		return NoID, &remote.Error{Code: remote.ErrTargetExists, Message: "target exists", Path: clash.AbsolutePath}
	}

	id, err := s.relocate(ctx, src, destFolder, newName, destChildren)
	s.cache.InvalidateTree(src.ID)
	s.cache.InvalidateListing(src.ParentID)
	s.cache.InvalidateListing(destFolder.ID)
	if err != nil {
		return NoID, err
	}

	if err := s.followCwd(ctx, srcPath); err != nil {
		return id, err
	}

	logger.Debug("Moved %s to %s", srcPath, Join(destFolder.AbsolutePath, newName))
	return id, nil
}

func (s *Session) relocate(ctx context.Context, src, dest *cache.Item, newName string, destChildren []*cache.Item) (int64, error) {
	svc := s.cache.Service()

	if dest.ID == src.ParentID {
		id, err := svc.RenameItem(ctx, src.ID, newName)
		return id, remote.AsServiceError("rename", err)
	}
	if newName == src.Name {
		id, err := svc.MoveItem(ctx, src.ID, dest.ID)
		return id, remote.AsServiceError("move", err)
	}

	siblings, err := s.cache.Children(ctx, src.ParentID)
	if err != nil {
		return NoID, err
	}

	switch {
	case childNamed(siblings, newName) == nil:
		id, err := svc.RenameItem(ctx, src.ID, newName)
		if err != nil {
			return NoID, remote.AsServiceError("rename", err)
		}
		moved, err := svc.MoveItem(ctx, id, dest.ID)
		if err != nil {
			rollback("rename", src, func() error {
				_, rerr := svc.RenameItem(ctx, id, src.Name)
				return rerr
			})
			return NoID, remote.AsServiceError("move", err)
		}
		return moved, nil
	case childNamed(destChildren, src.Name) == nil:
		id, err := svc.MoveItem(ctx, src.ID, dest.ID)
		if err != nil {
			return NoID, remote.AsServiceError("move", err)
		}
		renamed, err := svc.RenameItem(ctx, id, newName)
		if err != nil {
			rollback("move", src, func() error {
				_, rerr := svc.MoveItem(ctx, id, src.ParentID)
				return rerr
			})
			return NoID, remote.AsServiceError("rename", err)
		}
		return renamed, nil
	default:
		return NoID, &remote.Error{
			Code:    remote.ErrTargetExists,
			Message: "both the old and the new name are taken",
			Path:    Join(dest.AbsolutePath, newName),
		}
	}
}

// rollback undoes the first half of a rename/move pair whose second half
// failed. A failed undo leaves the item half-moved; that is only logged.
func rollback(step string, src *cache.Item, undo func() error) {
	if err := undo(); err != nil {
		logger.Warn("Failed to undo %s of %s: %v", step, src.AbsolutePath, err)
		return
	}
	logger.Debug("Undid %s of %s", step, src.AbsolutePath)
}

// Rm soft-deletes the item designated by ref into its device's recycle bin
// and returns the path it had.
func (s *Session) Rm(ctx context.Context, ref PathRef) (string, error) {
	item, err := s.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if item.IsRoot() {
		return "", &remote.Error{Code: remote.ErrInvalidArgument, Message: "cannot remove the root", Path: "/"}
	}

	removed := item.AbsolutePath
	if err := s.cache.Service().DeleteItem(ctx, item.ID); err != nil {
		return "", remote.AsServiceError("delete", err)
	}

	s.cache.InvalidateTree(item.ID)
	s.cache.InvalidateListing(item.ParentID)
	if segs := Split(removed); len(segs) > 0 {
		if bin, ok := s.cache.Lookup(Join("/"+segs[0], remote.RecycleBinName)); ok {
			s.cache.InvalidateListing(bin.ID)
		}
	}
	if s.cwd.Path == removed || strings.HasPrefix(s.cwd.Path, removed+"/") {
		logger.Warn("Current directory was removed, moving to %s", item.ParentPath())
		if _, err := s.Cd(ctx, ByID(item.ParentID)); err != nil {
			return removed, err
		}
	}

	logger.Debug("Removed %s (#%d)", removed, item.ID)
	return removed, nil
}

// followCwd keeps the current directory valid when it sat at or below a
// moved path.
func (s *Session) followCwd(ctx context.Context, moved string) error {
	if s.cwd.Path != moved && !strings.HasPrefix(s.cwd.Path, moved+"/") {
		return nil
	}
	_, err := s.Cd(ctx, ByID(s.cwd.ID))
	return err
}
