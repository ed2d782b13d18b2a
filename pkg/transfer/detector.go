package transfer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/marmos91/dittocloud/internal/logger"
	"github.com/marmos91/dittocloud/pkg/cache"
	"github.com/marmos91/dittocloud/pkg/fs"
	"github.com/marmos91/dittocloud/pkg/remote"
	"github.com/spf13/afero"
)

// Detector decides whether a local file differs from its uploaded copy by
// size and timestamps alone. Re-saving identical bytes counts as a change.
type Detector struct {
	session *fs.Session
	local   afero.Fs
}

// NewDetector creates a detector reading local files from local.
func NewDetector(session *fs.Session, local afero.Fs) *Detector {
	return &Detector{session: session, local: local}
}

// Comparison is the evidence behind a HasChanged answer.
type Comparison struct {
	Local  string
	Remote string

	LocalSize     int64
	LocalModified time.Time

	// RemoteFound is false when no uploaded copy exists; size and upload
	// time are then 0 and the Unix epoch.
	RemoteFound    bool
	RemoteSize     int64
	RemoteUploaded time.Time
}

// Changed is true when sizes differ or the local file was modified after
// the last upload.
func (c Comparison) Changed() bool {
	return c.LocalSize != c.RemoteSize || c.LocalModified.After(c.RemoteUploaded)
}

// String renders the comparison in local time.
func (c Comparison) String() string {
	return fmt.Sprintf("%s: local size %d, remote size %d, last modified %s, last uploaded %s",
		c.Local, c.LocalSize, c.RemoteSize,
		cache.FormatTime(c.LocalModified), cache.FormatTime(c.RemoteUploaded))
}

// HasChanged compares localFile with remote, which is either the file
// itself or the folder it was uploaded to.
func (d *Detector) HasChanged(ctx context.Context, localFile string, remoteRef fs.PathRef) (bool, error) {
	c, err := d.Explain(ctx, localFile, remoteRef)
	if err != nil {
		return false, err
	}
	logger.Debug("%s", c)
	return c.Changed(), nil
}

// Explain gathers the values HasChanged decides on.
func (d *Detector) Explain(ctx context.Context, localFile string, remoteRef fs.PathRef) (Comparison, error) {
	info, err := d.local.Stat(localFile)
	if err != nil {
		return Comparison{}, fmt.Errorf("failed to stat %s: %w", localFile, err)
	}

	c := Comparison{
		Local:          localFile,
		Remote:         remoteRef.String(),
		LocalSize:      info.Size(),
		LocalModified:  info.ModTime(),
		RemoteUploaded: time.Unix(0, 0).UTC(),
	}

	item, err := d.session.Resolve(ctx, remoteRef)
	switch {
	case remote.IsNotFound(err):
		return c, nil
	case err != nil:
		return Comparison{}, err
	}

	if item.IsFolder() {
		name := filepath.Base(localFile)
		c.Remote = fs.Join(item.AbsolutePath, name)

		children, err := d.session.Cache().Children(ctx, item.ID)
		if err != nil {
			return Comparison{}, err
		}
		item = nil
		for _, child := range children {
			if child.Name == name {
				item = child
				break
			}
		}
		if item == nil {
			return c, nil
		}
	}

	c.Remote = item.AbsolutePath
	c.RemoteFound = true
	c.RemoteSize = item.Size
	c.RemoteUploaded = item.LastUploadTime
	return c, nil
}
