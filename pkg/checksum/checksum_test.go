package checksum

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeededSHA1Frame(t *testing.T) {
	content := []byte("hello world")

	sum, err := SeededSHA1.Sum(bytes.NewReader(content))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sum)
	require.NoError(t, err)
	require.Len(t, raw, 2+sha1.Size+2)

	assert.Equal(t, byte(10), raw[0])
	assert.Equal(t, byte(sha1.Size), raw[1])
	assert.Equal(t, []byte{16, 0}, raw[len(raw)-2:])

	h := sha1.New()
	h.Write(seed)
	h.Write(content)
	assert.Equal(t, h.Sum(nil), raw[2:2+sha1.Size])
}

func TestSeededSHA1Deterministic(t *testing.T) {
	a, err := SeededSHA1.Sum(strings.NewReader("same"))
	require.NoError(t, err)
	b, err := SeededSHA1.Sum(strings.NewReader("same"))
	require.NoError(t, err)
	c, err := SeededSHA1.Sum(strings.NewReader("different"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, Folder, a)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestSeededSHA1ReadError(t *testing.T) {
	_, err := SeededSHA1.Sum(failingReader{})
	assert.ErrorContains(t, err, "boom")
}

func TestFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/a.txt", []byte("payload"), 0o644))

	got, err := File(fsys, SeededSHA1, "/a.txt")
	require.NoError(t, err)

	want, err := SeededSHA1.Sum(strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = File(fsys, SeededSHA1, "/missing")
	assert.Error(t, err)
}

func TestHasherFunc(t *testing.T) {
	h := HasherFunc(func(r io.Reader) (string, error) {
		b, err := io.ReadAll(r)
		return string(b), err
	})
	sum, err := h.Sum(strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", sum)
}
