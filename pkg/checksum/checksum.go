// Package checksum computes the content-integrity token the remote service
// requires when an upload is finalized.
//
// The token format is a contract of the service, not of this client. The
// default Hasher reproduces the observed format (a seeded SHA1 wrapped in a
// small length-prefixed frame, base64 encoded) but it has never been
// confirmed against the vendor; callers can plug in another Hasher.
package checksum

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// Folder is the checksum sent when creating folders (size 0).
const Folder = "CgAQAg"

// Hasher produces the checksum of a content stream.
type Hasher interface {
	Sum(r io.Reader) (string, error)
}

// HasherFunc adapts a function to the Hasher interface.
type HasherFunc func(r io.Reader) (string, error)

func (f HasherFunc) Sum(r io.Reader) (string, error) {
	return f(r)
}

// seed is prepended to the content before hashing.
var seed = []byte{13, 7, 2, 2, 15, 40, 75, 117, 13, 10, 19, 16, 29, 23, 3, 36}

type seededSHA1 struct{}

// SeededSHA1 is the default Hasher.
var SeededSHA1 Hasher = seededSHA1{}

func (seededSHA1) Sum(r io.Reader) (string, error) {
	h := sha1.New()
	h.Write(seed)
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	digest := h.Sum(nil)

	framed := make([]byte, 0, len(digest)+4)
	framed = append(framed, 10, byte(len(digest)))
	framed = append(framed, digest...)
	framed = append(framed, 16, 0)

	return base64.StdEncoding.EncodeToString(framed), nil
}

// File hashes the file at path on fsys with h.
func File(fsys afero.Fs, h Hasher, path string) (string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return h.Sum(f)
}
