package cache

import (
	"strings"
	"time"

	"github.com/marmos91/dittocloud/pkg/remote"
)

// RootID is the ID of the synthetic root above all devices.
const RootID int64 = 0

// TimeLayout is how FormatTime renders instants.
const TimeLayout = "2006-01-02 15:04:05"

// Item is one node of the remote hierarchy with its client-side absolute
// path.
type Item struct {
	ID       int64
	ParentID int64
	DeviceID int64
	Name     string

	// AbsolutePath is reconstructed client side:
	//   /<device>                          devices
	//   /<device>/Recycle Bin              recycle bins
	//   /<device>[/Recycle Bin]<partial>   everything else
	AbsolutePath string

	Category     remote.Category
	Size         int64
	InRecycleBin bool

	// Zero values mean unavailable.
	CreationTime         time.Time
	LastModificationTime time.Time
	LastUploadTime       time.Time

	URL          string
	OptimizedURL string
	Data         string
}

// Root returns the synthetic root item.
func Root() *Item {
	return &Item{
		ID:           RootID,
		Name:         "/",
		AbsolutePath: "/",
		Category:     remote.CategoryRoot,
	}
}

// IsRoot reports whether the item is the synthetic root.
func (i *Item) IsRoot() bool {
	return i.ID == RootID
}

// IsFolder reports whether the item can have children.
func (i *Item) IsFolder() bool {
	return i.Category.IsFolder()
}

// HasParent is false only for the root.
func (i *Item) HasParent() bool {
	return !i.IsRoot()
}

// ParentPath returns the absolute path of the item's parent.
func (i *Item) ParentPath() string {
	if i.IsRoot() {
		return "/"
	}
	idx := strings.LastIndex(i.AbsolutePath, "/")
	if idx <= 0 {
		return "/"
	}
	return i.AbsolutePath[:idx]
}

// Clone returns a copy of the item.
func (i *Item) Clone() *Item {
	c := *i
	return &c
}

// FormatTime renders t in the local timezone, or "Unavailable" for the
// zero instant.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "Unavailable"
	}
	return t.Local().Format(TimeLayout)
}
