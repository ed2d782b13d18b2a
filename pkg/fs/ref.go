package fs

import (
	"strconv"
	"strings"

	"github.com/marmos91/dittocloud/pkg/remote"
)

// RefKind tells how a PathRef designates an item.
type RefKind int

const (
	// RefCurrent designates the current directory
	RefCurrent RefKind = iota

	// RefID designates an item by remote ID
	RefID

	// RefPath designates an item by absolute or cwd-relative path
	RefPath
)

// PathRef designates a remote item. The zero value is Current().
type PathRef struct {
	kind RefKind
	id   int64
	path string
}

// ByID designates an item by remote ID.
func ByID(id int64) PathRef {
	return PathRef{kind: RefID, id: id}
}

// ByPath designates an item by path. Relative paths are resolved against
// the current directory.
func ByPath(p string) PathRef {
	if p == "" {
		return Current()
	}
	return PathRef{kind: RefPath, path: p}
}

// Current designates the current directory.
func Current() PathRef {
	return PathRef{kind: RefCurrent}
}

// ParseRef interprets user input: "" is the current directory, "#<digits>"
// an ID, anything else a path. Bare digits are a path (a folder may well be
// named "2024").
func ParseRef(s string) (PathRef, error) {
	if s == "" {
		return Current(), nil
	}
	if digits, ok := strings.CutPrefix(s, "#"); ok {
		id, err := strconv.ParseInt(digits, 10, 64)
		if err != nil || id < 0 {
			return PathRef{}, remote.NewError(remote.ErrInvalidArgument, "invalid item id %q", s)
		}
		return ByID(id), nil
	}
	return ByPath(s), nil
}

func (r PathRef) Kind() RefKind { return r.kind }
func (r PathRef) ID() int64     { return r.id }
func (r PathRef) Path() string  { return r.path }

func (r PathRef) String() string {
	switch r.kind {
	case RefID:
		return "#" + strconv.FormatInt(r.id, 10)
	case RefPath:
		return r.path
	default:
		return "."
	}
}
