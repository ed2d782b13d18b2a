package remote

import (
	"fmt"
	"time"
)

// Category is the service's item type code.
type Category int

// Category codes as reported by the service. Root is synthetic: the service
// has no record for ID 0.
const (
	CategoryRoot       Category = -1
	CategoryFile       Category = 0
	CategoryDevice     Category = 1
	CategoryFolder     Category = 2
	CategoryImage      Category = 3
	CategoryVideo      Category = 4
	CategoryMusic      Category = 5
	CategoryDocument   Category = 6
	CategoryRecycleBin Category = 10
)

var categoryNames = map[Category]string{
	CategoryRoot:       "Root",
	CategoryFile:       "File",
	CategoryDevice:     "Device",
	CategoryFolder:     "Folder",
	CategoryImage:      "Image",
	CategoryVideo:      "Video",
	CategoryMusic:      "Music",
	CategoryDocument:   "Document",
	CategoryRecycleBin: "Recycle Bin",
}

// String returns the display name, or "Category <code>" for codes the
// client does not know about.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category %d", int(c))
}

// Known reports whether c is one of the documented codes.
func (c Category) Known() bool {
	_, ok := categoryNames[c]
	return ok
}

// IsFolder reports whether items of this category can have children.
func (c Category) IsFolder() bool {
	switch c {
	case CategoryFolder, CategoryDevice, CategoryRecycleBin, CategoryRoot:
		return true
	}
	return false
}

// RecycleBinName is the name the client uses for a device's recycle bin.
const RecycleBinName = "Recycle Bin"

// Record is an item as returned by the service.
//
// FilePath is the service's partial path: it omits the device name and the
// recycle bin segment. The client reconstructs the absolute path.
type Record struct {
	ID       int64
	ParentID int64
	DeviceID int64
	Name     string
	FilePath string
	Category Category
	Size     int64

	InRecycleBin bool

	// Zero values mean the service did not report the instant.
	CreationTime         time.Time
	LastModificationTime time.Time
	LastUploadTime       time.Time

	URL          string
	OptimizedURL string

	// Data holds small inline content, base64 encoded.
	Data string
}

// Clone returns a copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// UploadAuth is the authorization returned ahead of every content upload.
type UploadAuth struct {
	// BaseURL is the endpoint the multipart form is posted to
	BaseURL string

	// KeyPrefix prefixes the object key; it ends with "/"
	KeyPrefix string

	// Fields are the signed policy fields to send verbatim with the form
	// (policy, signature, access id, acl, cache control, ...)
	Fields map[string]string
}
