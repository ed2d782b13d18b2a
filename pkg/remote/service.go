// Package remote defines the contract of the remote item service the client
// mirrors, together with the error taxonomy shared by the client packages.
//
// The service addresses items by integer ID only. Everything path based
// (resolution, current directory, recursive transfers) is built client side
// in pkg/cache and pkg/fs.
package remote

import "context"

// Service is the remote item store.
//
// Implementations own transport, authentication and request framing.
// Errors should be *Error values; anything else is treated as ErrService by
// callers (see AsServiceError).
type Service interface {
	// GetItem returns the record for id.
	// Returns ErrNotFound if the service reports no such item.
	GetItem(ctx context.Context, id int64) (*Record, error)

	// GetChildren returns one page of the children of parentID, in service
	// order, plus a continuation token. An empty token means the listing is
	// complete. Pass "" to start a listing.
	GetChildren(ctx context.Context, parentID int64, token string) ([]*Record, string, error)

	// CreateItem creates a folder (size 0, folder checksum) or finalizes an
	// uploaded file (real size and checksum) and returns its ID.
	CreateItem(ctx context.Context, name string, parentID int64, size int64, checksum string) (int64, error)

	// DeleteItem moves the item to its device's recycle bin.
	DeleteItem(ctx context.Context, id int64) error

	// RenameItem renames an item in place and returns its ID.
	RenameItem(ctx context.Context, id int64, newName string) (int64, error)

	// MoveItem reparents an item and returns its ID.
	MoveItem(ctx context.Context, id int64, newParentID int64) (int64, error)

	// GetUploadAuthorization precedes every content upload into parentID.
	GetUploadAuthorization(ctx context.Context, parentID int64) (*UploadAuth, error)
}
