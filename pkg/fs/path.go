package fs

import (
	"strings"

	"github.com/marmos91/dittocloud/pkg/remote"
)

// Normalize makes p absolute against cwd and collapses ".", ".." and
// repeated separators. Climbing above the root is an error rather than
// being clamped.
func Normalize(cwd, p string) (string, error) {
	if p == "" {
		p = cwd
	}
	if !strings.HasPrefix(p, "/") {
		p = cwd + "/" + p
	}

	var stack []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(stack) == 0 {
				return "", &remote.Error{Code: remote.ErrInvalidArgument, Message: "path climbs above the root", Path: p}
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, seg)
		}
	}
	return "/" + strings.Join(stack, "/"), nil
}

// Split returns the segments of an absolute, normalized path.
func Split(abs string) []string {
	trimmed := strings.Trim(abs, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// Dir returns the parent of an absolute, normalized path.
func Dir(abs string) string {
	i := strings.LastIndex(abs, "/")
	if i <= 0 {
		return "/"
	}
	return abs[:i]
}

// Base returns the last segment of an absolute, normalized path.
func Base(abs string) string {
	return abs[strings.LastIndex(abs, "/")+1:]
}

// Join appends name to an absolute folder path.
func Join(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// isRelativeDescent reports whether p can be resolved by walking down
// from the current directory.
func isRelativeDescent(p string) bool {
	if strings.HasPrefix(p, "/") {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return remote.NewError(remote.ErrInvalidArgument, "invalid name %q", name)
	}
	return nil
}
